// ABOUTME: FLAC reframer package documentation
// ABOUTME: Splits chunked FLAC input into validated, timestamped frames
// Package reframe turns an unbounded, arbitrarily chunked FLAC byte stream
// into complete frames with composition timestamps, plus the stream
// configuration a downstream decoder needs.
//
// The reframer never decodes samples. Frame boundaries are found from the
// sync code and a CRC-8 protected header; the CRC-16 footer of a frame is
// only verified when the next frame changes sample rate or channel layout,
// or on every frame with Config.ForceCRC.
//
// Example:
//
//	r := reframe.New(reframe.DefaultConfig(), reframe.SourceInfo{Seekable: true, Size: size})
//	r.Play(0)
//	for chunk := range chunks {
//	    events, err := r.Feed(chunk)
//	    if err != nil {
//	        return err
//	    }
//	    for _, ev := range events {
//	        switch e := ev.(type) {
//	        case *reframe.ConfigUpdate:
//	            configureDecoder(e.Config.Format())
//	        case *reframe.Frame:
//	            decode(e.Data, e.CTS)
//	        }
//	    }
//	}
//	events, err := r.EndOfInput()
package reframe
