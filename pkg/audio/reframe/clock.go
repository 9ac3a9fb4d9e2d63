// ABOUTME: Composition timestamp bookkeeping for emitted frames
// ABOUTME: Converts block sizes from the stream sample rate to the output timescale
package reframe

import "math"

// clock tracks the composition time of the next frame in output timescale
// units.
type clock struct {
	// configured is the requested output timescale, 0 when output time is
	// counted in samples.
	configured uint32
	// timescale converts seconds to output units: configured, or the
	// STREAMINFO sample rate.
	timescale uint32
	cts       uint64
	// established is set once cts has a base for the current session.
	established bool
}

// duration converts a block of samples at rate to output units.
func (c *clock) duration(block, rate uint32) uint32 {
	if !c.rescaled(rate) {
		return block
	}
	return uint32((uint64(block)*uint64(c.configured) + uint64(rate)/2) / uint64(rate))
}

// rescaled reports whether output time differs from sample time at rate.
func (c *clock) rescaled(rate uint32) bool {
	return c.configured != 0 && c.configured != rate && rate != 0
}

func (c *clock) advance(d uint32) {
	c.cts += uint64(d)
	c.established = true
}

// set overwrites the current time, as after a seek or a host supplied base.
func (c *clock) set(cts uint64) {
	c.cts = cts
	c.established = true
}

func (c *clock) reset() {
	c.cts = 0
	c.established = false
}

// ticks converts seconds to output units.
func (c *clock) ticks(seconds float64) uint64 {
	if seconds <= 0 || c.timescale == 0 {
		return 0
	}
	return uint64(math.Round(seconds * float64(c.timescale)))
}

// seconds converts output units to seconds.
func (c *clock) seconds(ticks uint64) float64 {
	if c.timescale == 0 {
		return 0
	}
	return float64(ticks) / float64(c.timescale)
}
