// ABOUTME: Reframer configuration and source description
// ABOUTME: Indexing window, CRC policy, output timescale and buffer limit
package reframe

import "log/slog"

const (
	// DefaultIndexWindow is the default seek index granularity in seconds.
	DefaultIndexWindow = 1.0

	// DefaultMaxBuffer bounds the reservoir; metadata blocks such as embedded
	// pictures must fit in it.
	DefaultMaxBuffer = 64 << 20
)

// Config configures a Reframer
type Config struct {
	// IndexWindow is the seek index granularity in seconds; <= 0 disables
	// index construction.
	IndexWindow float64

	// ForceCRC verifies the CRC-16 footer of every frame instead of only when
	// sample rate or channel layout change.
	ForceCRC bool

	// Timescale is the output clock rate. 0 uses the stream sample rate.
	Timescale uint32

	// MaxBuffer is the largest reservoir size in bytes. 0 uses DefaultMaxBuffer.
	MaxBuffer int

	// Logger receives diagnostics. nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default reframer configuration
func DefaultConfig() Config {
	return Config{
		IndexWindow: DefaultIndexWindow,
		MaxBuffer:   DefaultMaxBuffer,
	}
}

// SourceInfo describes the input out of band.
type SourceInfo struct {
	// Seekable is true for a fully available, bounded source (a local file)
	// that can be repositioned; false for a live feed.
	Seekable bool

	// Size is the total byte length of the source, 0 when unknown.
	Size int64
}

func (c Config) withDefaults() Config {
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = DefaultMaxBuffer
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
