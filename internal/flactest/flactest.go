// ABOUTME: Synthetic FLAC stream builder for tests
// ABOUTME: Writes STREAMINFO and verbatim-subframe frames with real CRCs
package flactest

import (
	"github.com/Resonate-Protocol/flacframe/internal/crc"
)

// Stream describes a synthetic FLAC stream.
type Stream struct {
	SampleRate    uint32
	Channels      int
	BitsPerSample int
	BlockSize     int
	Frames        int
	// TotalSamples defaults to Frames*BlockSize.
	TotalSamples uint64
	// Tags adds a VORBIS_COMMENT block with these KEY=value entries.
	Tags []string
	// Padding adds a PADDING block of this many bytes at the end of the
	// metadata.
	Padding int
}

// Frame describes one frame. Zero fields take the stream values.
type Frame struct {
	Number        uint64
	BlockSize     int
	SampleRate    uint32
	Channels      int
	BitsPerSample int
	// InheritRate writes sample rate code 0 (use STREAMINFO).
	InheritRate bool
	// Samples holds per channel samples; nil generates them.
	Samples [][]int32
}

// Sample returns the generated sample for a frame, channel and index. Values
// are even and below 2000, so no 16-bit sample byte pair can look like a sync
// code.
func Sample(frame uint64, ch, i int) int32 {
	return int32((uint64(i*37+ch*11)+frame)%1000) * 2
}

// Header returns the magic and metadata blocks.
func Header(s Stream) []byte {
	w := &bitWriter{}
	w.writeBytes([]byte("fLaC"))

	writeBlockHeader(w, len(s.Tags) == 0 && s.Padding <= 0, 0, 34)
	total := s.TotalSamples
	if total == 0 {
		total = uint64(s.Frames * s.BlockSize)
	}
	w.write(uint64(s.BlockSize), 16)
	w.write(uint64(s.BlockSize), 16)
	w.write(0, 24)
	w.write(0, 24)
	w.write(uint64(s.SampleRate), 20)
	w.write(uint64(s.Channels-1), 3)
	w.write(uint64(s.BitsPerSample-1), 5)
	w.write(total, 36)
	w.writeBytes(make([]byte, 16))

	if len(s.Tags) > 0 {
		body := vorbisComment("flactest", s.Tags)
		writeBlockHeader(w, s.Padding <= 0, 4, len(body))
		w.writeBytes(body)
	}
	if s.Padding > 0 {
		writeBlockHeader(w, true, 1, s.Padding)
		w.writeBytes(make([]byte, s.Padding))
	}
	return w.bytes()
}

func writeBlockHeader(w *bitWriter, last bool, blockType, length int) {
	var flag uint64
	if last {
		flag = 1
	}
	w.write(flag, 1)
	w.write(uint64(blockType), 7)
	w.write(uint64(length), 24)
}

// vorbisComment encodes a VORBIS_COMMENT body; its lengths are little endian.
func vorbisComment(vendor string, tags []string) []byte {
	var out []byte
	le32 := func(n int) {
		out = append(out, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	le32(len(vendor))
	out = append(out, vendor...)
	le32(len(tags))
	for _, t := range tags {
		le32(len(t))
		out = append(out, t...)
	}
	return out
}

// Build returns the complete stream and, separately, each encoded frame.
func Build(s Stream) ([]byte, [][]byte) {
	data := Header(s)
	frames := make([][]byte, 0, s.Frames)
	for i := 0; i < s.Frames; i++ {
		f := EncodeFrame(s, Frame{Number: uint64(i)})
		frames = append(frames, f)
		data = append(data, f...)
	}
	return data, frames
}

// EncodeFrame encodes one fixed-blocksize frame with verbatim subframes.
func EncodeFrame(s Stream, f Frame) []byte {
	if f.BlockSize == 0 {
		f.BlockSize = s.BlockSize
	}
	if f.SampleRate == 0 {
		f.SampleRate = s.SampleRate
	}
	if f.Channels == 0 {
		f.Channels = s.Channels
	}
	if f.BitsPerSample == 0 {
		f.BitsPerSample = s.BitsPerSample
	}

	w := &bitWriter{}
	w.write(0xFFF8, 16)

	bsCode, bsExtra, bsBits := blockSizeCode(f.BlockSize)
	srCode, srExtra, srBits := sampleRateCode(f.SampleRate)
	if f.InheritRate {
		srCode, srBits = 0, 0
	}
	w.write(uint64(bsCode), 4)
	w.write(uint64(srCode), 4)
	w.write(uint64(f.Channels-1), 4)
	w.write(uint64(sampleSizeCode(f.BitsPerSample)), 3)
	w.write(0, 1)
	w.writeBytes(EncodeUTF8(f.Number))
	if bsBits > 0 {
		w.write(uint64(bsExtra), bsBits)
	}
	if srBits > 0 {
		w.write(uint64(srExtra), srBits)
	}
	w.writeBytes([]byte{crc.CRC8(w.bytes())})

	for ch := 0; ch < f.Channels; ch++ {
		// zero pad bit, VERBATIM type 000001, no wasted bits
		w.write(0x02, 8)
		for i := 0; i < f.BlockSize; i++ {
			var v int32
			if f.Samples != nil {
				v = f.Samples[ch][i]
			} else {
				v = Sample(f.Number, ch, i)
			}
			w.write(uint64(v)&(1<<uint(f.BitsPerSample)-1), uint(f.BitsPerSample))
		}
	}
	w.align()

	out := w.bytes()
	sum := crc.CRC16(out)
	return append(out, byte(sum>>8), byte(sum))
}

// GenSamples returns the generated samples of a frame, for callers that
// want to modify some of them.
func GenSamples(number uint64, channels, blockSize int) [][]int32 {
	out := make([][]int32, channels)
	for ch := range out {
		out[ch] = make([]int32, blockSize)
		for i := range out[ch] {
			out[ch][i] = Sample(number, ch, i)
		}
	}
	return out
}

var blockSizeTable = map[int]uint8{
	192: 1, 576: 2, 1152: 3, 2304: 4, 4608: 5,
	256: 8, 512: 9, 1024: 10, 2048: 11, 4096: 12, 8192: 13, 16384: 14, 32768: 15,
}

func blockSizeCode(n int) (code uint8, extra uint32, nbits uint) {
	if c, ok := blockSizeTable[n]; ok {
		return c, 0, 0
	}
	if n <= 256 {
		return 6, uint32(n - 1), 8
	}
	return 7, uint32(n - 1), 16
}

var sampleRateTable = map[uint32]uint8{
	88200: 1, 176400: 2, 192000: 3, 8000: 4, 16000: 5, 22050: 6,
	24000: 7, 32000: 8, 44100: 9, 48000: 10, 96000: 11,
}

func sampleRateCode(rate uint32) (code uint8, extra uint32, nbits uint) {
	if c, ok := sampleRateTable[rate]; ok {
		return c, 0, 0
	}
	switch {
	case rate%1000 == 0 && rate/1000 < 256:
		return 0xC, rate / 1000, 8
	case rate < 1<<16:
		return 0xD, rate, 16
	default:
		return 0xE, rate / 10, 16
	}
}

func sampleSizeCode(bps int) uint8 {
	switch bps {
	case 8:
		return 1
	case 12:
		return 2
	case 16:
		return 4
	case 20:
		return 5
	case 24:
		return 6
	case 32:
		return 7
	}
	return 0
}

// EncodeUTF8 writes v in the FLAC coded number format.
func EncodeUTF8(v uint64) []byte {
	if v < 0x80 {
		return []byte{byte(v)}
	}
	n := 2
	for ; n < 7; n++ {
		if v < 1<<uint(5*n+1) {
			break
		}
	}
	out := make([]byte, n)
	for i := n - 1; i > 0; i-- {
		out[i] = 0x80 | byte(v&0x3F)
		v >>= 6
	}
	out[0] = byte(0xFF<<uint(8-n)) | byte(v)
	return out
}

type bitWriter struct {
	buf  []byte
	acc  uint64
	nacc uint
}

func (w *bitWriter) write(v uint64, n uint) {
	for n > 0 {
		take := n
		if take > 8 {
			take = 8
		}
		n -= take
		w.acc = w.acc<<take | (v>>n)&(1<<take-1)
		w.nacc += take
		for w.nacc >= 8 {
			w.nacc -= 8
			w.buf = append(w.buf, byte(w.acc>>w.nacc))
		}
	}
}

func (w *bitWriter) writeBytes(b []byte) {
	for _, x := range b {
		w.write(uint64(x), 8)
	}
}

func (w *bitWriter) align() {
	if w.nacc > 0 {
		w.write(0, 8-w.nacc)
	}
}

// bytes returns the completed whole bytes.
func (w *bitWriter) bytes() []byte {
	return w.buf
}
