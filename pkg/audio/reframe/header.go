// ABOUTME: FLAC frame header decoder
// ABOUTME: Validates sync, field codes, coded number, CRC-8 and the first subframe type
package reframe

import (
	"github.com/Resonate-Protocol/flacframe/internal/bits"
	"github.com/Resonate-Protocol/flacframe/internal/crc"
	"github.com/Resonate-Protocol/flacframe/pkg/audio"
)

const (
	frameSync = 0x7FFC

	// minHeaderBytes is the largest possible header plus the first subframe
	// header byte; a candidate is only decoded once this much is buffered.
	minHeaderBytes = 17
)

var blockSizes = [16]uint32{
	0, 192, 576, 1152, 2304, 4608, 0, 0,
	256, 512, 1024, 2048, 4096, 8192, 16384, 32768,
}

var sampleRates = [12]uint32{
	0, 88200, 176400, 192000, 8000, 16000, 22050, 24000, 32000, 44100, 48000, 96000,
}

// sampleSizes maps the sample size code; 0 means "from STREAMINFO" and
// code 3 is reserved.
var sampleSizes = [8]uint8{0, 8, 12, 0, 16, 20, 24, 32}

// FrameHeader is the decoded header of one frame.
type FrameHeader struct {
	BlockSize  uint32
	SampleRate uint32
	Channels   int
	// ChannelCode is the raw channel assignment; 8 to 10 are stereo
	// decorrelation modes.
	ChannelCode   uint8
	ChannelLayout audio.ChannelMask
	// BitsPerSample is 0 when the frame defers to STREAMINFO.
	BitsPerSample uint8
	// VariableBlockSize is the blocking strategy bit. Number is a sample
	// number when set and a frame number otherwise.
	VariableBlockSize bool
	Number            uint64
	// Size is the header length in bytes, CRC-8 included.
	Size int
}

// decodeHeader decodes the frame header at the start of data. streamRate is
// used for frames whose sample rate code defers to STREAMINFO. ok is false
// for anything that is not a plausible frame start.
func decodeHeader(data []byte, streamRate uint32) (h FrameHeader, ok bool) {
	c := bits.NewCursor(data)

	if c.Read(15) != frameSync {
		return h, false
	}
	h.VariableBlockSize = c.ReadBit()

	bsCode := uint8(c.Read(4))
	srCode := uint8(c.Read(4))
	chCode := uint8(c.Read(4))
	ssCode := uint8(c.Read(3))
	reserved := c.ReadBit()
	if c.Overflow() || bsCode == 0 || srCode == 0xF || ssCode == 3 || reserved {
		return h, false
	}

	channels, valid := channelsForCode(chCode)
	if !valid {
		return h, false
	}
	h.Channels = channels
	h.ChannelCode = chCode
	h.ChannelLayout = LayoutMask(channels)
	h.BitsPerSample = sampleSizes[ssCode]

	num, valid := c.ReadUTF8()
	if !valid {
		return h, false
	}
	h.Number = num

	switch bsCode {
	case 6:
		h.BlockSize = uint32(c.Read(8)) + 1
	case 7:
		h.BlockSize = uint32(c.Read(16)) + 1
	default:
		h.BlockSize = blockSizes[bsCode]
	}

	switch {
	case srCode == 0:
		h.SampleRate = streamRate
	case srCode == 0xC:
		h.SampleRate = uint32(c.Read(8)) * 1000
	case srCode == 0xD:
		h.SampleRate = uint32(c.Read(16))
	case srCode == 0xE:
		h.SampleRate = uint32(c.Read(16)) * 10
	default:
		h.SampleRate = sampleRates[srCode]
	}

	headerLen := c.BytePos()
	sum := c.ReadU8()
	if c.Overflow() || h.SampleRate == 0 {
		return h, false
	}
	if crc.CRC8(data[:headerLen]) != sum {
		return h, false
	}
	h.Size = headerLen + 1

	// First subframe: zero padding bit then the 6-bit type.
	if c.ReadBit() {
		return h, false
	}
	subType := uint8(c.Read(6))
	if c.Overflow() || !validSubframeType(subType) {
		return h, false
	}
	return h, true
}

// validSubframeType accepts CONSTANT, VERBATIM, FIXED and LPC subframes.
func validSubframeType(t uint8) bool {
	return t <= 1 || (t >= 8 && t <= 12) || t >= 32
}

// isSyncCandidate reports whether b0, b1 can start a frame.
func isSyncCandidate(b0, b1 byte) bool {
	return b0 == 0xFF && b1&0xFC == 0xF8
}
