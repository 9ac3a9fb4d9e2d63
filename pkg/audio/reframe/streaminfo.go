// ABOUTME: FLAC magic and metadata block list parsing
// ABOUTME: Extracts STREAMINFO and locates the first audio frame
package reframe

import (
	"bytes"
	"errors"
	"time"

	"github.com/Resonate-Protocol/flacframe/internal/bits"
)

// Magic starts every FLAC stream.
var Magic = []byte("fLaC")

const (
	blockTypeStreamInfo = 0
	streamInfoLength    = 34
	blockHeaderLength   = 4
)

// errNeedMore reports that the metadata list is not complete yet.
var errNeedMore = errors.New("need more data")

// StreamInfo holds the global stream parameters from the STREAMINFO block.
type StreamInfo struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	Channels      uint8
	BitsPerSample uint8
	TotalSamples  uint64
}

// BlockSize returns the nominal samples per frame, 0 for a variable block size stream.
func (si StreamInfo) BlockSize() uint32 {
	if si.MinBlockSize == si.MaxBlockSize {
		return uint32(si.MinBlockSize)
	}
	return 0
}

// Duration returns the stream length as the rational TotalSamples/SampleRate.
// num is 0 when the encoder did not record a sample count.
func (si StreamInfo) Duration() (num uint64, den uint32) {
	return si.TotalSamples, si.SampleRate
}

// Length converts Duration to a time.Duration.
func (si StreamInfo) Length() time.Duration {
	if si.SampleRate == 0 {
		return 0
	}
	secs := si.TotalSamples / uint64(si.SampleRate)
	rem := si.TotalSamples % uint64(si.SampleRate)
	return time.Duration(secs)*time.Second +
		time.Duration(rem*uint64(time.Second)/uint64(si.SampleRate))
}

// metadata is the result of parsing magic plus the metadata block list.
type metadata struct {
	info StreamInfo
	// configEnd is the byte offset just past the STREAMINFO block.
	configEnd int
	// frameStart is the byte offset just past the last metadata block.
	frameStart int
	blocks     int
}

// Probe reports whether data begins with the FLAC magic.
func Probe(data []byte) (mime string, ok bool) {
	if len(data) > len(Magic) && bytes.HasPrefix(data, Magic) {
		return "audio/flac", true
	}
	return "", false
}

// parseMetadata parses magic and the metadata block list at the start of data.
// It returns errNeedMore while the list is incomplete.
func parseMetadata(data []byte) (metadata, error) {
	var md metadata

	if len(data) < len(Magic) {
		if !bytes.HasPrefix(Magic, data) {
			return md, ErrBadMagic
		}
		return md, errNeedMore
	}
	if !bytes.Equal(data[:len(Magic)], Magic) {
		return md, ErrBadMagic
	}

	pos := len(Magic)
	found := false
	for {
		if pos+blockHeaderLength > len(data) {
			return md, errNeedMore
		}
		c := bits.NewCursor(data[pos : pos+blockHeaderLength])
		last := c.ReadBit()
		blockType := c.Read(7)
		length := int(c.ReadU24())

		body := pos + blockHeaderLength
		if body+length > len(data) {
			return md, errNeedMore
		}

		if blockType == blockTypeStreamInfo && !found {
			info, err := parseStreamInfo(data[body : body+length])
			if err != nil {
				return md, err
			}
			md.info = info
			md.configEnd = body + length
			found = true
		}

		pos = body + length
		md.blocks++
		if last {
			break
		}
	}

	if !found {
		return md, ErrMissingStreamInfo
	}
	md.frameStart = pos
	return md, nil
}

// parseStreamInfo decodes the fixed STREAMINFO layout.
func parseStreamInfo(body []byte) (StreamInfo, error) {
	var si StreamInfo
	if len(body) < streamInfoLength {
		return si, ErrInvalidStreamInfo
	}

	c := bits.NewCursor(body)
	si.MinBlockSize = c.ReadU16()
	si.MaxBlockSize = c.ReadU16()
	si.MinFrameSize = c.ReadU24()
	si.MaxFrameSize = c.ReadU24()
	si.SampleRate = uint32(c.Read(20))
	si.Channels = uint8(c.Read(3)) + 1
	si.BitsPerSample = uint8(c.Read(5)) + 1
	si.TotalSamples = c.Read(36)
	// 16 bytes of audio MD5 follow; not needed for framing
	c.SkipBytes(16)

	if c.Overflow() || si.SampleRate == 0 {
		return si, ErrInvalidStreamInfo
	}
	return si, nil
}
