// ABOUTME: Tests for audio types
// ABOUTME: Tests channel mask helpers
package audio

import "testing"

func TestChannelMaskCount(t *testing.T) {
	tests := []struct {
		name     string
		mask     ChannelMask
		expected int
	}{
		{"none", 0, 0},
		{"mono", FrontCenter, 1},
		{"stereo", FrontLeft | FrontRight, 2},
		{"5.1", FrontLeft | FrontRight | FrontCenter | LowFrequency | BackLeft | BackRight, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mask.Count(); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestChannelMaskString(t *testing.T) {
	tests := []struct {
		mask     ChannelMask
		expected string
	}{
		{0, "none"},
		{FrontCenter, "FC"},
		{FrontLeft | FrontRight, "FL+FR"},
		{FrontLeft | FrontRight | FrontCenter | LowFrequency | BackCenter | SideLeft | SideRight, "FL+FR+FC+LFE+BC+SL+SR"},
	}

	for _, tt := range tests {
		if got := tt.mask.String(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestChannelMaskHas(t *testing.T) {
	stereo := FrontLeft | FrontRight
	if !stereo.Has(FrontLeft) {
		t.Error("expected stereo to contain FL")
	}
	if stereo.Has(FrontLeft | FrontCenter) {
		t.Error("expected stereo not to contain FC")
	}
}
