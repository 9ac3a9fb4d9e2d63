// ABOUTME: Tests for the synthetic FLAC builder
// ABOUTME: Cross-checks generated streams with the mewkiz/flac decoder
package flactest

import (
	"bytes"
	"io"
	"testing"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

func TestBuildDecodes(t *testing.T) {
	s := Stream{SampleRate: 44100, Channels: 2, BitsPerSample: 16, BlockSize: 4096, Frames: 3, Padding: 10}
	data, frames := Build(s)

	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("flac.New failed: %v", err)
	}
	defer stream.Close()

	info := stream.Info
	if info.SampleRate != 44100 || info.NChannels != 2 || info.BitsPerSample != 16 {
		t.Errorf("StreamInfo = %d Hz %d ch %d bit", info.SampleRate, info.NChannels, info.BitsPerSample)
	}
	if info.BlockSizeMin != 4096 || info.BlockSizeMax != 4096 {
		t.Errorf("block size = %d/%d, want 4096", info.BlockSizeMin, info.BlockSizeMax)
	}
	if info.NSamples != 3*4096 {
		t.Errorf("NSamples = %d, want %d", info.NSamples, 3*4096)
	}

	n := 0
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("frame %d: %v", n, err)
		}
		if f.BlockSize != 4096 {
			t.Errorf("frame %d block size = %d", n, f.BlockSize)
		}
		for ch, sub := range f.Subframes {
			for _, i := range []int{0, 1, 4095} {
				if want := Sample(uint64(n), ch, i); sub.Samples[i] != want {
					t.Errorf("frame %d ch %d sample %d = %d, want %d", n, ch, i, sub.Samples[i], want)
				}
			}
		}
		n++
	}
	if n != len(frames) {
		t.Errorf("decoded %d frames, want %d", n, len(frames))
	}
}

func TestEncodeFrameOddParameters(t *testing.T) {
	s := Stream{SampleRate: 44100, Channels: 1, BitsPerSample: 16, BlockSize: 1000, Frames: 1}
	f := EncodeFrame(s, Frame{Number: 200, SampleRate: 22000, BlockSize: 1000})

	stream, err := flac.New(bytes.NewReader(append(Header(s), f...)))
	if err != nil {
		t.Fatalf("flac.New failed: %v", err)
	}
	defer stream.Close()

	got, err := stream.ParseNext()
	if err != nil {
		t.Fatalf("ParseNext failed: %v", err)
	}
	if got.BlockSize != 1000 {
		t.Errorf("block size = %d, want 1000", got.BlockSize)
	}
	if got.SampleRate != 22000 {
		t.Errorf("sample rate = %d, want 22000", got.SampleRate)
	}
	if got.Num != 200 {
		t.Errorf("frame number = %d, want 200", got.Num)
	}
}

func TestEncodeUTF8(t *testing.T) {
	tests := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0xC2, 0x80}},
		{2048, []byte{0xE0, 0xA0, 0x80}},
		{1 << 32, []byte{0xFE, 0x84, 0x80, 0x80, 0x80, 0x80, 0x80}},
	}
	for _, tt := range tests {
		if got := EncodeUTF8(tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeUTF8(%d) = % X, want % X", tt.v, got, tt.want)
		}
	}
}

func TestBuildTags(t *testing.T) {
	s := Stream{SampleRate: 48000, Channels: 1, BitsPerSample: 16, BlockSize: 1152, Frames: 1,
		Tags: []string{"TITLE=Test Tone", "ARTIST=flactest"}, Padding: 8}
	data, _ := Build(s)

	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("flac.Parse failed: %v", err)
	}
	defer stream.Close()

	var tags [][2]string
	for _, block := range stream.Blocks {
		if vc, ok := block.Body.(*meta.VorbisComment); ok {
			tags = vc.Tags
		}
	}
	want := [][2]string{{"TITLE", "Test Tone"}, {"ARTIST", "flactest"}}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tag %d = %v, want %v", i, tags[i], want[i])
		}
	}
}
