// ABOUTME: Input chunks and output events of the reframer
// ABOUTME: Configuration updates, frames, source seek requests and end of stream
package reframe

import (
	"fmt"

	"github.com/Resonate-Protocol/flacframe/pkg/audio"
)

const (
	// NoOffset marks a chunk or frame without a known source byte offset.
	NoOffset int64 = -1
	// NoTimestamp marks a chunk without a host timestamp.
	NoTimestamp int64 = -1
)

// Chunk is one piece of input as delivered by the host.
type Chunk struct {
	Data []byte
	// Offset is the source byte offset of Data[0], or NoOffset.
	Offset int64
	// CTS is the host timestamp of the chunk in the output timescale, or
	// NoTimestamp.
	CTS int64
}

// Event is emitted by the reframer. It is one of *ConfigUpdate, *Frame,
// *SourceSeek or *EndOfStream.
type Event interface {
	event()
}

// StreamConfig describes the stream for downstream decoders.
type StreamConfig struct {
	SampleRate    uint32
	Channels      int
	ChannelLayout audio.ChannelMask
	BitsPerSample uint8
	// SamplesPerFrame is the nominal block size, 0 when variable.
	SamplesPerFrame uint32
	// DecoderConfig holds the raw bytes from the magic through STREAMINFO.
	DecoderConfig []byte
	// Bitrate is an estimate in bits per second for sized seekable sources.
	Bitrate uint64
	// TotalSamples/SampleRate is the stream duration; TotalSamples is 0 when
	// unknown.
	TotalSamples uint64
	Timescale    uint32
	// Seekable is set when seeks are served from the index.
	Seekable bool
}

// Format converts the configuration to an audio.Format.
func (c StreamConfig) Format() audio.Format {
	return audio.Format{
		Codec:         "flac",
		SampleRate:    int(c.SampleRate),
		Channels:      c.Channels,
		BitDepth:      int(c.BitsPerSample),
		ChannelLayout: c.ChannelLayout,
		CodecHeader:   c.DecoderConfig,
	}
}

// ConfigUpdate announces the stream configuration. Partial is set for a
// mid-stream sample rate or channel layout change, in which case only
// SampleRate, Channels and ChannelLayout changed.
type ConfigUpdate struct {
	Config  StreamConfig
	Partial bool
}

// Frame is one complete FLAC frame.
type Frame struct {
	Data []byte
	// CTS and Duration are in the output timescale.
	CTS       uint64
	Duration  uint32
	SyncPoint bool
	// Offset is the source byte offset of the frame, or NoOffset.
	Offset int64
	Header FrameHeader
	// Forced is set for a residual emitted at end of input without a
	// following sync code.
	Forced bool
}

// SourceSeek asks the host to continue delivering input from Offset.
type SourceSeek struct {
	Offset int64
}

// EndOfStream is emitted once after the last frame.
type EndOfStream struct{}

func (*ConfigUpdate) event() {}
func (*Frame) event()        {}
func (*SourceSeek) event()   {}
func (*EndOfStream) event()  {}

func (e *ConfigUpdate) String() string {
	c := e.Config
	kind := "config"
	if e.Partial {
		kind = "config change"
	}
	return fmt.Sprintf("%s: %d Hz, %d ch (%s), %d bit, %d samples/frame",
		kind, c.SampleRate, c.Channels, c.ChannelLayout, c.BitsPerSample, c.SamplesPerFrame)
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame cts=%d dur=%d size=%d offset=%d", f.CTS, f.Duration, len(f.Data), f.Offset)
}

// State is the reframer state.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingHeader
	StateStreaming
	StateSeeking
	StateFlushing
	StateEOS
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingHeader:
		return "awaiting-header"
	case StateStreaming:
		return "streaming"
	case StateSeeking:
		return "seeking"
	case StateFlushing:
		return "flushing"
	case StateEOS:
		return "eos"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats counts reframer activity.
type Stats struct {
	FramesEmitted    uint64
	FramesSuppressed uint64
	Resyncs          uint64
	DroppedBytes     uint64
	RejectedSyncs    uint64
	FooterChecks     uint64
}
