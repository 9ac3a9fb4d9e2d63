// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and speaker positions for channel layouts
package audio

import "math/bits"

// Format describes audio stream format
type Format struct {
	Codec         string
	SampleRate    int
	Channels      int
	BitDepth      int
	ChannelLayout ChannelMask
	CodecHeader   []byte // For FLAC: "fLaC" through the STREAMINFO block
}

// ChannelMask is a set of speaker positions, one bit per speaker
type ChannelMask uint64

// Speaker positions, in WAVE_FORMAT_EXTENSIBLE bit order
const (
	FrontLeft ChannelMask = 1 << iota
	FrontRight
	FrontCenter
	LowFrequency
	BackLeft
	BackRight
	FrontLeftOfCenter
	FrontRightOfCenter
	BackCenter
	SideLeft
	SideRight
)

// Count returns the number of speakers in the mask
func (m ChannelMask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Has reports whether every speaker of other is present in m
func (m ChannelMask) Has(other ChannelMask) bool {
	return m&other == other
}

var speakerNames = []struct {
	mask ChannelMask
	name string
}{
	{FrontLeft, "FL"},
	{FrontRight, "FR"},
	{FrontCenter, "FC"},
	{LowFrequency, "LFE"},
	{BackLeft, "BL"},
	{BackRight, "BR"},
	{FrontLeftOfCenter, "FLC"},
	{FrontRightOfCenter, "FRC"},
	{BackCenter, "BC"},
	{SideLeft, "SL"},
	{SideRight, "SR"},
}

// String lists the speakers, e.g. "FL+FR"
func (m ChannelMask) String() string {
	if m == 0 {
		return "none"
	}
	s := ""
	for _, sp := range speakerNames {
		if m&sp.mask != 0 {
			if s != "" {
				s += "+"
			}
			s += sp.name
		}
	}
	return s
}
