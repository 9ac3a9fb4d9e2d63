// ABOUTME: Growable byte reservoir holding input across Feed calls
// ABOUTME: Tracks the pending region and the source offset of its first byte
package reframe

// reservoir accumulates input. buf[start:start+remain] is the pending region.
type reservoir struct {
	buf    []byte
	start  int
	remain int
	limit  int

	// offset is the source byte offset of buf[start], valid while
	// contiguous is set.
	offset     int64
	contiguous bool
}

func newReservoir(limit int) *reservoir {
	return &reservoir{limit: limit}
}

// pending returns the unconsumed region. The slice is only valid until the
// next append.
func (r *reservoir) pending() []byte {
	return r.buf[r.start : r.start+r.remain]
}

func (r *reservoir) empty() bool {
	return r.remain == 0
}

// append adds data behind the pending region. offset is the source offset of
// data[0] or NoOffset.
func (r *reservoir) append(data []byte, offset int64) error {
	if len(data) == 0 {
		return nil
	}

	switch {
	case offset == NoOffset:
		r.contiguous = false
	case r.remain == 0:
		r.offset = offset
		r.contiguous = true
	case r.contiguous && r.offset+int64(r.remain) != offset:
		r.contiguous = false
	}

	need := r.remain + len(data)
	if need > r.limit {
		return ErrBufferLimit
	}

	if r.start+need > len(r.buf) {
		if need <= cap(r.buf) {
			// compact in place
			copy(r.buf[:cap(r.buf)], r.buf[r.start:r.start+r.remain])
			r.buf = r.buf[:cap(r.buf)]
		} else {
			size := 2 * cap(r.buf)
			if size < need {
				size = need
			}
			if size > r.limit {
				size = r.limit
			}
			grown := make([]byte, size)
			copy(grown, r.buf[r.start:r.start+r.remain])
			r.buf = grown
		}
		r.start = 0
	}

	copy(r.buf[r.start+r.remain:], data)
	r.remain = need
	return nil
}

// consume drops n bytes from the front of the pending region.
func (r *reservoir) consume(n int) {
	if n > r.remain {
		n = r.remain
	}
	r.start += n
	r.remain -= n
	r.offset += int64(n)
	if r.remain == 0 {
		r.start = 0
	}
}

// frontOffset returns the source offset of the first pending byte, or
// NoOffset when contiguity is lost.
func (r *reservoir) frontOffset() int64 {
	if !r.contiguous {
		return NoOffset
	}
	return r.offset
}

// reset empties the reservoir but keeps its storage.
func (r *reservoir) reset() {
	r.start = 0
	r.remain = 0
	r.contiguous = false
}

// release empties the reservoir and drops its storage.
func (r *reservoir) release() {
	r.reset()
	r.buf = nil
}
