// ABOUTME: Transient MSB-first bit reader over a byte window
// ABOUTME: Reads past the end return zero and latch an overflow flag
package bits

// Cursor reads bits from a byte slice, most significant bit first.
//
// A Cursor never owns its window: create one per parse and drop it when the
// parse is done. Reads beyond the window return zero and set the overflow
// flag, so a caller can decode a whole structure and check Overflow once.
type Cursor struct {
	data     []byte
	pos      uint // bit position
	overflow bool
}

// NewCursor returns a cursor positioned at the first bit of data.
func NewCursor(data []byte) Cursor {
	return Cursor{data: data}
}

// Overflow reports whether any read ran past the end of the window.
func (c *Cursor) Overflow() bool {
	return c.overflow
}

// BytePos returns the index of the byte holding the next unread bit.
func (c *Cursor) BytePos() int {
	return int(c.pos >> 3)
}

// Available returns the number of whole bytes left after the current position.
func (c *Cursor) Available() int {
	n := len(c.data) - int((c.pos+7)>>3)
	if n < 0 {
		return 0
	}
	return n
}

// Aligned reports whether the cursor sits on a byte boundary.
func (c *Cursor) Aligned() bool {
	return c.pos&7 == 0
}

// Read returns the next n bits (n <= 64) as an unsigned value.
func (c *Cursor) Read(n uint) uint64 {
	if n == 0 {
		return 0
	}
	if c.overflow || c.pos+n > uint(len(c.data))*8 {
		c.overflow = true
		c.pos = uint(len(c.data)) * 8
		return 0
	}

	var v uint64
	for n > 0 {
		b := c.data[c.pos>>3]
		used := c.pos & 7
		avail := 8 - used
		take := avail
		if n < take {
			take = n
		}
		bitsOut := (uint64(b) >> (avail - take)) & (1<<take - 1)
		v = v<<take | bitsOut
		c.pos += take
		n -= take
	}
	return v
}

// ReadBit returns the next bit.
func (c *Cursor) ReadBit() bool {
	return c.Read(1) == 1
}

// ReadU8 returns the next 8 bits.
func (c *Cursor) ReadU8() uint8 {
	return uint8(c.Read(8))
}

// ReadU16 returns the next 16 bits.
func (c *Cursor) ReadU16() uint16 {
	return uint16(c.Read(16))
}

// ReadU24 returns the next 24 bits.
func (c *Cursor) ReadU24() uint32 {
	return uint32(c.Read(24))
}

// ReadU32 returns the next 32 bits.
func (c *Cursor) ReadU32() uint32 {
	return uint32(c.Read(32))
}

// SkipBytes advances the cursor by n bytes.
func (c *Cursor) SkipBytes(n int) {
	if n <= 0 {
		return
	}
	if c.overflow || c.pos+uint(n)*8 > uint(len(c.data))*8 {
		c.overflow = true
		c.pos = uint(len(c.data)) * 8
		return
	}
	c.pos += uint(n) * 8
}

// ReadUTF8 decodes a FLAC "UTF-8" coded number: the count of leading one bits
// in the first byte gives the total length, each continuation byte must start
// with the bits 10. ok is false for a malformed sequence or an overflow.
// Values of up to 36 bits (seven bytes, lead byte 0xFE) are accepted.
func (c *Cursor) ReadUTF8() (v uint64, ok bool) {
	first := c.ReadU8()
	if c.overflow {
		return 0, false
	}

	var extra int
	switch {
	case first&0x80 == 0:
		return uint64(first), true
	case first&0xE0 == 0xC0:
		v, extra = uint64(first&0x1F), 1
	case first&0xF0 == 0xE0:
		v, extra = uint64(first&0x0F), 2
	case first&0xF8 == 0xF0:
		v, extra = uint64(first&0x07), 3
	case first&0xFC == 0xF8:
		v, extra = uint64(first&0x03), 4
	case first&0xFE == 0xFC:
		v, extra = uint64(first&0x01), 5
	case first == 0xFE:
		v, extra = 0, 6
	default:
		// 10xxxxxx as a lead byte, or 0xFF
		return 0, false
	}

	for i := 0; i < extra; i++ {
		b := c.ReadU8()
		if c.overflow || b&0xC0 != 0x80 {
			return 0, false
		}
		v = v<<6 | uint64(b&0x3F)
	}
	return v, true
}
