// ABOUTME: Error values reported by the FLAC reframer
// ABOUTME: Corruption errors wrap ErrNonCompliantBitstream and are fatal
package reframe

import (
	"errors"
	"fmt"
)

// ErrNonCompliantBitstream classifies every fatal stream corruption.
var ErrNonCompliantBitstream = errors.New("non-compliant FLAC bitstream")

var (
	// ErrBadMagic means the stream does not start with "fLaC".
	ErrBadMagic = errors.New("invalid FLAC magic")
	// ErrMissingStreamInfo means the metadata ended without a STREAMINFO block.
	ErrMissingStreamInfo = errors.New("missing STREAMINFO block")
	// ErrInvalidStreamInfo means the STREAMINFO block is too short or declares a zero sample rate.
	ErrInvalidStreamInfo = errors.New("invalid STREAMINFO block")
	// ErrTruncatedMetadata means input ended inside the metadata block list.
	ErrTruncatedMetadata = errors.New("truncated metadata")

	// ErrBufferLimit means the reservoir would grow past Config.MaxBuffer.
	ErrBufferLimit = errors.New("reframer buffer limit exceeded")
)

// corrupt wraps a corruption cause in the bitstream error class.
func corrupt(cause error) error {
	return fmt.Errorf("%w: %w", ErrNonCompliantBitstream, cause)
}
