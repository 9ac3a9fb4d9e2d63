// ABOUTME: Frame boundary search over the pending region
// ABOUTME: Sync code, header decode and conditional CRC-16 footer validation
package reframe

import (
	"bytes"

	"github.com/Resonate-Protocol/flacframe/internal/crc"
)

// streamParams are the parameters a steady-state frame is expected to carry.
type streamParams struct {
	sampleRate uint32
	channels   int
}

// synchronizer finds the end of the frame at the start of a region, which is
// the start of the next valid frame.
type synchronizer struct {
	forceCRC bool
	// resume is where the next scan of the same region continues.
	resume int

	rejected     uint64
	footerChecks uint64
}

// scanResult reports the outcome of one scan.
type scanResult int

const (
	scanWait  scanResult = iota // no boundary yet, more input needed
	scanFound                   // boundary found
)

// next looks for the start of the next frame in region. headValid tells
// whether region starts with a decodable frame header; when it does not, the
// first plausible header is taken as a resynchronisation point without a
// footer check.
func (s *synchronizer) next(region []byte, est streamParams, headValid bool) (int, scanResult) {
	from := s.resume
	if from < 2 {
		from = 2
	}

	for from < len(region) {
		i := bytes.IndexByte(region[from:], 0xFF)
		if i < 0 {
			s.resume = len(region)
			return 0, scanWait
		}
		cand := from + i
		if cand+minHeaderBytes >= len(region) {
			s.resume = cand
			return 0, scanWait
		}

		if isSyncCandidate(region[cand], region[cand+1]) {
			if s.accept(region, cand, est, headValid) {
				s.resume = 0
				return cand, scanFound
			}
			s.rejected++
		}
		from = cand + 1
	}

	s.resume = len(region)
	return 0, scanWait
}

func (s *synchronizer) accept(region []byte, cand int, est streamParams, headValid bool) bool {
	h, ok := decodeHeader(region[cand:], est.sampleRate)
	if !ok {
		return false
	}
	if !headValid {
		return true
	}
	if !s.forceCRC && h.SampleRate == est.sampleRate && h.Channels == est.channels {
		return true
	}
	s.footerChecks++
	return crc.MatchFooter(region[:cand-2], region[cand-2:cand])
}

func (s *synchronizer) reset() {
	s.resume = 0
}
