// ABOUTME: Audio fundamentals package providing core types
// ABOUTME: Defines Format and channel layout masks
// Package audio provides fundamental audio types shared by the reframer, the
// relay and the wire protocol.
//
// This package defines:
//   - Format: Describes an audio stream (codec, sample rate, channels, bit depth, codec header)
//   - ChannelMask: Speaker positions present in a stream
//
// Example:
//
//	format := audio.Format{
//	    Codec:         "flac",
//	    SampleRate:    44100,
//	    Channels:      2,
//	    BitDepth:      16,
//	    ChannelLayout: audio.FrontLeft | audio.FrontRight,
//	}
package audio
