// ABOUTME: FLAC channel assignment to speaker layout mapping
// ABOUTME: Uses the fixed FLAC channel order for one to eight channels
package reframe

import "github.com/Resonate-Protocol/flacframe/pkg/audio"

// channelLayouts is indexed by channel count.
var channelLayouts = [9]audio.ChannelMask{
	0,
	audio.FrontCenter,
	audio.FrontLeft | audio.FrontRight,
	audio.FrontLeft | audio.FrontRight | audio.FrontCenter,
	audio.FrontLeft | audio.FrontRight | audio.BackLeft | audio.BackRight,
	audio.FrontLeft | audio.FrontRight | audio.FrontCenter | audio.BackLeft | audio.BackRight,
	audio.FrontLeft | audio.FrontRight | audio.FrontCenter | audio.LowFrequency | audio.BackLeft | audio.BackRight,
	audio.FrontLeft | audio.FrontRight | audio.FrontCenter | audio.LowFrequency | audio.BackCenter | audio.SideLeft | audio.SideRight,
	audio.FrontLeft | audio.FrontRight | audio.FrontCenter | audio.LowFrequency | audio.BackLeft | audio.BackRight | audio.SideLeft | audio.SideRight,
}

// LayoutMask returns the speaker mask for a channel count. Mono and
// out-of-range counts have no mask.
func LayoutMask(channels int) audio.ChannelMask {
	if channels < 2 || channels >= len(channelLayouts) {
		return 0
	}
	return channelLayouts[channels]
}

// channelsForCode maps a frame header channel assignment code to a channel
// count. Codes 8 to 10 are the stereo decorrelation modes.
func channelsForCode(code uint8) (int, bool) {
	switch {
	case code <= 7:
		return int(code) + 1, true
	case code <= 10:
		return 2, true
	}
	return 0, false
}
