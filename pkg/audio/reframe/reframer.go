// ABOUTME: FLAC reframer controller turning a byte stream into timestamped frames
// ABOUTME: Owns the state machine and play, stop and seek handling
package reframe

import (
	"hash/crc32"
	"log/slog"
)

// Reframer splits a FLAC byte stream into complete frames. It is driven by
// the host through Feed and EndOfInput and never blocks. A Reframer is not
// safe for concurrent use.
type Reframer struct {
	cfg    Config
	src    SourceInfo
	logger *slog.Logger

	state State
	err   error

	res   *reservoir
	sync  synchronizer
	clock clock
	index *seekIndex

	info        StreamInfo
	initialized bool
	config      StreamConfig
	configSum   uint32
	est         streamParams
	// firstFrame is the source offset of the first audio frame, NoOffset
	// when unknown.
	firstFrame int64

	playing  bool
	playDone bool
	eof      bool
	inSync   bool

	inSeek    bool
	seekStart float64
	// pendingSeek is the offset requested from the host, NoOffset when no
	// reposition is outstanding.
	pendingSeek int64
	// baseCTS is a host timestamp to start the clock from, NoTimestamp if none.
	baseCTS int64

	stats Stats
}

// New creates a reframer for one input stream.
func New(cfg Config, src SourceInfo) *Reframer {
	cfg = cfg.withDefaults()
	r := &Reframer{
		cfg:         cfg,
		src:         src,
		logger:      cfg.Logger,
		res:         newReservoir(cfg.MaxBuffer),
		sync:        synchronizer{forceCRC: cfg.ForceCRC},
		firstFrame:  NoOffset,
		pendingSeek: NoOffset,
		baseCTS:     NoTimestamp,
		inSync:      true,
	}
	r.clock.configured = cfg.Timescale
	r.clock.timescale = cfg.Timescale
	r.state = StateAwaitingHeader
	return r
}

// State returns the current state.
func (r *Reframer) State() State { return r.state }

// Err returns the fatal error once the reframer is in StateError.
func (r *Reframer) Err() error { return r.err }

// CTS returns the composition time of the next frame.
func (r *Reframer) CTS() uint64 { return r.clock.cts }

// StreamInfo returns the parsed STREAMINFO; ok is false until metadata is complete.
func (r *Reframer) StreamInfo() (StreamInfo, bool) { return r.info, r.initialized }

// SeekIndex returns a copy of the seek index.
func (r *Reframer) SeekIndex() []IndexEntry {
	if r.index == nil {
		return nil
	}
	return r.index.snapshot()
}

// Stats returns activity counters.
func (r *Reframer) Stats() Stats {
	s := r.stats
	s.RejectedSyncs = r.sync.rejected
	s.FooterChecks = r.sync.footerChecks
	return s
}

// Feed appends a chunk of input and returns every event it completes. An
// empty chunk only processes what is already buffered.
func (r *Reframer) Feed(c Chunk) ([]Event, error) {
	if r.state == StateError {
		return nil, r.err
	}

	if len(c.Data) > 0 {
		if r.pendingSeek != NoOffset {
			if c.Offset != NoOffset && c.Offset != r.pendingSeek {
				r.stats.DroppedBytes += uint64(len(c.Data))
				return nil, nil
			}
			r.pendingSeek = NoOffset
		}
		if r.state == StateEOS {
			r.logger.Debug("dropping input after end of stream", "bytes", len(c.Data))
			return nil, nil
		}
		if c.CTS != NoTimestamp && !r.clock.established && r.baseCTS == NoTimestamp {
			r.baseCTS = c.CTS
		}
		if err := r.res.append(c.Data, c.Offset); err != nil {
			return nil, r.fail(err)
		}
	}

	return r.process(nil)
}

// EndOfInput signals that the source has no more data. Buffered bytes are
// flushed, the last residual is emitted as a forced frame and EndOfStream
// follows. Before Play the flush is deferred to the next Feed.
func (r *Reframer) EndOfInput() ([]Event, error) {
	if r.state == StateError {
		return nil, r.err
	}
	if r.state == StateEOS {
		return nil, nil
	}
	r.eof = true
	return r.process(nil)
}

// Play starts or restarts emission from start seconds. On a seekable source
// the returned events may contain a SourceSeek the host must execute before
// feeding more input.
func (r *Reframer) Play(start float64) []Event {
	if r.state == StateError {
		return nil
	}
	r.playing = true
	if start < 0 {
		start = 0
	}

	if !r.src.Seekable {
		if start > 0 || r.playDone {
			r.discard()
		}
		r.playDone = true
		r.reopen()
		return nil
	}

	r.inSeek = true
	r.seekStart = start

	if !r.playDone {
		r.playDone = true
		// Nothing has been consumed past the first frame yet; scan forward
		// to the start time instead of repositioning.
		if !r.initialized || start == 0 {
			r.clock.reset()
			r.setSeekingState()
			return nil
		}
	}

	offset := r.resolveSeek(start)

	r.discard()
	r.pendingSeek = offset
	r.eof = false
	r.reopen()
	r.setSeekingState()
	r.logger.Debug("requesting source seek", "start", start, "offset", offset, "cts", r.clock.cts)
	return []Event{&SourceSeek{Offset: offset}}
}

// Seek repositions playback at t seconds.
func (r *Reframer) Seek(t float64) []Event {
	return r.Play(t)
}

// Stop halts emission and resets the clock. Stream parameters are kept.
func (r *Reframer) Stop() {
	r.playing = false
	r.inSeek = false
	r.clock.reset()
	r.baseCTS = NoTimestamp
	if r.state == StateSeeking {
		r.state = StateStreaming
	}
}

// resolveSeek positions the clock for a seek to start seconds and returns
// the source offset to continue from.
func (r *Reframer) resolveSeek(start float64) int64 {
	r.clock.reset()
	if !r.initialized {
		return 0
	}

	if r.firstFrame == NoOffset {
		// Without byte offsets the only known position is the magic. The
		// metadata is parsed again and an unchanged configuration is not
		// announced twice.
		r.initialized = false
		r.state = StateAwaitingHeader
		return 0
	}

	offset := r.firstFrame
	if r.index != nil && start > 0 {
		if e, ok := r.index.lookup(r.clock.ticks(start)); ok {
			offset = e.Offset
			r.clock.set(e.Time)
		}
	}
	return offset
}

// discard drops buffered input ahead of a reposition.
func (r *Reframer) discard() {
	r.res.reset()
	r.sync.reset()
}

// reopen leaves the end-of-stream state so a restarted session can run.
func (r *Reframer) reopen() {
	if r.state == StateEOS {
		r.eof = false
		if r.initialized {
			r.state = StateStreaming
		} else {
			r.state = StateAwaitingHeader
		}
	}
}

func (r *Reframer) setSeekingState() {
	if r.initialized && r.inSeek && r.state == StateStreaming {
		r.state = StateSeeking
	}
}

func (r *Reframer) fail(err error) error {
	r.err = err
	r.state = StateError
	r.res.release()
	r.logger.Error("reframer failed", "error", err)
	return err
}

// process runs metadata parsing, frame extraction and the end of input flush.
func (r *Reframer) process(events []Event) ([]Event, error) {
	if !r.initialized {
		var err error
		events, err = r.parseHeader(events)
		if err != nil || !r.initialized {
			return events, err
		}
	}
	if !r.playing {
		return events, nil
	}

	for !r.res.empty() {
		region := r.res.pending()
		if len(region) < 2 {
			break
		}
		head, headValid := decodeHeader(region, r.est.sampleRate)
		n, res := r.sync.next(region, r.est, headValid)
		if res == scanWait {
			break
		}
		if !headValid {
			r.resync(n)
			continue
		}
		events = r.emit(events, region[:n], head, false)
	}

	if !r.eof {
		return events, nil
	}

	if !r.res.empty() {
		r.state = StateFlushing
		region := r.res.pending()
		if head, ok := decodeHeader(region, r.est.sampleRate); ok {
			events = r.emit(events, region, head, true)
		} else {
			r.logger.Warn("dropping undecodable residual at end of input", "bytes", len(region))
			r.stats.DroppedBytes += uint64(len(region))
			r.res.consume(len(region))
		}
	}

	r.state = StateEOS
	r.res.release()
	r.sync.reset()
	r.logger.Debug("end of stream", "frames", r.stats.FramesEmitted, "cts", r.clock.cts)
	return append(events, &EndOfStream{}), nil
}

// parseHeader consumes magic and metadata once they are fully buffered.
func (r *Reframer) parseHeader(events []Event) ([]Event, error) {
	data := r.res.pending()
	md, err := parseMetadata(data)
	switch {
	case err == errNeedMore:
		if r.eof {
			return events, r.fail(corrupt(ErrTruncatedMetadata))
		}
		return events, nil
	case err != nil:
		return events, r.fail(corrupt(err))
	}

	r.info = md.info
	r.initialized = true
	r.est = streamParams{sampleRate: md.info.SampleRate, channels: int(md.info.Channels)}
	if r.clock.timescale == 0 {
		r.clock.timescale = md.info.SampleRate
	}
	if front := r.res.frontOffset(); front != NoOffset {
		r.firstFrame = front + int64(md.frameStart)
	}
	if r.src.Seekable && r.cfg.IndexWindow > 0 && r.index == nil {
		r.index = newSeekIndex(r.clock.ticks(r.cfg.IndexWindow))
	}

	decoderConfig := make([]byte, md.configEnd)
	copy(decoderConfig, data[:md.configEnd])
	sum := crc32.ChecksumIEEE(decoderConfig)

	r.res.consume(md.frameStart)
	r.state = StateStreaming
	r.setSeekingState()

	if sum == r.configSum && r.config.DecoderConfig != nil {
		return events, nil
	}
	r.configSum = sum
	r.config = r.buildConfig(decoderConfig)
	r.logger.Info("FLAC stream configured",
		"sample_rate", r.config.SampleRate,
		"channels", r.config.Channels,
		"bits", r.config.BitsPerSample,
		"block_size", r.config.SamplesPerFrame,
		"metadata_blocks", md.blocks)
	return append(events, &ConfigUpdate{Config: r.config}), nil
}

func (r *Reframer) buildConfig(decoderConfig []byte) StreamConfig {
	info := r.info
	c := StreamConfig{
		SampleRate:      info.SampleRate,
		Channels:        int(info.Channels),
		ChannelLayout:   LayoutMask(int(info.Channels)),
		BitsPerSample:   info.BitsPerSample,
		SamplesPerFrame: info.BlockSize(),
		DecoderConfig:   decoderConfig,
		TotalSamples:    info.TotalSamples,
		Timescale:       r.clock.timescale,
		Seekable:        r.index != nil,
	}
	if r.src.Seekable && r.src.Size > 0 && info.TotalSamples > 0 {
		c.Bitrate = uint64(r.src.Size) * 8 * uint64(info.SampleRate) / info.TotalSamples
	}
	return c
}

// resync drops bytes that do not start with a valid frame header.
func (r *Reframer) resync(n int) {
	if r.inSync {
		r.logger.Warn("invalid frame, dropping bytes and resyncing", "bytes", n)
	} else {
		r.logger.Debug("invalid frame, dropping bytes and resyncing", "bytes", n)
	}
	r.inSync = false
	r.stats.Resyncs++
	r.stats.DroppedBytes += uint64(n)
	r.res.consume(n)
	r.sync.reset()
}

// emit processes one complete frame and consumes it from the reservoir.
func (r *Reframer) emit(events []Event, data []byte, h FrameHeader, forced bool) []Event {
	r.inSync = true
	offset := r.res.frontOffset()

	if h.SampleRate != r.est.sampleRate || h.Channels != r.est.channels {
		r.est = streamParams{sampleRate: h.SampleRate, channels: h.Channels}
		r.config.SampleRate = h.SampleRate
		r.config.Channels = h.Channels
		r.config.ChannelLayout = h.ChannelLayout
		r.logger.Info("FLAC stream parameters changed",
			"sample_rate", h.SampleRate, "channels", h.Channels)
		events = append(events, &ConfigUpdate{Config: r.config, Partial: true})
	}

	if !r.clock.established && r.baseCTS != NoTimestamp && r.clock.rescaled(h.SampleRate) {
		r.clock.set(uint64(r.baseCTS))
	}
	r.baseCTS = NoTimestamp

	dur := r.clock.duration(h.BlockSize, h.SampleRate)
	if r.index != nil {
		r.index.observe(offset, r.clock.cts)
	}

	if r.inSeek && r.clock.cts+uint64(dur) >= r.clock.ticks(r.seekStart) {
		r.inSeek = false
		if r.state == StateSeeking {
			r.state = StateStreaming
		}
	}

	if r.inSeek {
		r.stats.FramesSuppressed++
	} else {
		out := make([]byte, len(data))
		copy(out, data)
		events = append(events, &Frame{
			Data:      out,
			CTS:       r.clock.cts,
			Duration:  dur,
			SyncPoint: true,
			Offset:    offset,
			Header:    h,
			Forced:    forced,
		})
		r.stats.FramesEmitted++
	}

	r.clock.advance(dur)
	r.res.consume(len(data))
	r.sync.reset()
	return events
}
