// ABOUTME: Pipeline driving a reframer from a Source into a Sink
// ABOUTME: Executes source seeks and accepts play, stop and seek from other goroutines
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/flacframe/pkg/audio/reframe"
	"github.com/google/uuid"
)

// DefaultChunkSize is the read size used when Options.ChunkSize is zero.
const DefaultChunkSize = 4096

// Sink receives reframer output.
type Sink interface {
	// Configure announces the stream configuration. partial is true for a
	// mid-stream sample rate or channel change.
	Configure(cfg reframe.StreamConfig, partial bool) error
	// WriteFrame delivers one frame. It may block to pace delivery.
	WriteFrame(ctx context.Context, f *reframe.Frame) error
	// Clear discards anything queued ahead of a reposition or stop.
	Clear() error
	// End marks the end of the stream.
	End() error
}

// Options configures a Pipeline
type Options struct {
	Reframe   reframe.Config
	ChunkSize int
	// Start is the initial play position in seconds.
	Start float64
	// Paused leaves the pipeline stopped until Play is called.
	Paused bool
	// Linger keeps Run alive after end of stream so later commands can
	// restart playback. Without it Run returns at end of stream.
	Linger bool
}

// Status is a snapshot of pipeline progress.
type Status struct {
	SessionID string
	Source    string
	State     reframe.State
	CTS       uint64
	Playing   bool
	Info      reframe.StreamInfo
	Stats     reframe.Stats
}

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdStop
	cmdSeek
)

func (k commandKind) String() string {
	switch k {
	case cmdPlay:
		return "play"
	case cmdStop:
		return "stop"
	case cmdSeek:
		return "seek"
	}
	return "unknown"
}

type command struct {
	kind  commandKind
	start float64
}

// Pipeline reads a Source, feeds a reframer and dispatches its events.
type Pipeline struct {
	id   string
	src  Source
	sink Sink
	opts Options
	cmds chan command

	r         *reframe.Reframer
	offset    int64
	inputDone bool
	started   bool
	playing   bool

	mu     sync.Mutex
	status Status
}

// NewPipeline creates a pipeline. Unless opts.Paused is set, playback
// starts at opts.Start when Run begins.
func NewPipeline(src Source, opts Options, sink Sink) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	p := &Pipeline{
		id:   uuid.New().String(),
		src:  src,
		sink: sink,
		opts: opts,
		cmds: make(chan command, 16),
	}
	p.status = Status{SessionID: p.id, Source: src.Name()}
	if !opts.Paused {
		p.cmds <- command{kind: cmdPlay, start: opts.Start}
	}
	return p
}

// ID returns the session identifier.
func (p *Pipeline) ID() string { return p.id }

// Play starts playback at start seconds.
func (p *Pipeline) Play(start float64) { p.send(command{kind: cmdPlay, start: start}) }

// Stop halts playback.
func (p *Pipeline) Stop() { p.send(command{kind: cmdStop}) }

// Seek repositions playback at t seconds.
func (p *Pipeline) Seek(t float64) { p.send(command{kind: cmdSeek, start: t}) }

func (p *Pipeline) send(c command) {
	select {
	case p.cmds <- c:
	default:
		log.Printf("Pipeline %s: command queue full, dropping %s", p.id, c.kind)
	}
}

// Status returns a snapshot of the pipeline state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// SeekIndex returns the seek index built so far. Call it after Run returns.
func (p *Pipeline) SeekIndex() []reframe.IndexEntry {
	if p.r == nil {
		return nil
	}
	return p.r.SeekIndex()
}

// Run drives the pipeline until the context is cancelled, a fatal error
// occurs or, without Linger, the stream ends.
func (p *Pipeline) Run(ctx context.Context) error {
	p.r = reframe.New(p.opts.Reframe, p.src.Info())
	buf := make([]byte, p.opts.ChunkSize)
	defer p.updateStatus()

	for {
		p.updateStatus()

		if p.inputDone && p.r.State() == reframe.StateEOS && !p.opts.Linger {
			return nil
		}
		// A stopped pipeline stops pulling input once the stream is
		// configured, so the reservoir does not grow while paused.
		_, configured := p.r.StreamInfo()
		if p.inputDone || (!p.playing && configured) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case c := <-p.cmds:
				if err := p.handle(ctx, c); err != nil {
					return err
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-p.cmds:
			if err := p.handle(ctx, c); err != nil {
				return err
			}
			continue
		default:
		}

		n, readErr := p.src.Read(buf)
		if n > 0 {
			events, err := p.r.Feed(reframe.Chunk{Data: buf[:n], Offset: p.offset, CTS: reframe.NoTimestamp})
			p.offset += int64(n)
			if err != nil {
				return fmt.Errorf("session %s: %w", p.id, err)
			}
			if err := p.dispatch(ctx, events); err != nil {
				return err
			}
		}

		switch {
		case errors.Is(readErr, io.EOF):
			p.inputDone = true
			events, err := p.r.EndOfInput()
			if err != nil {
				return fmt.Errorf("session %s: %w", p.id, err)
			}
			if err := p.dispatch(ctx, events); err != nil {
				return err
			}
		case readErr != nil:
			return fmt.Errorf("failed to read %s: %w", p.src.Name(), readErr)
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, c command) error {
	log.Printf("Pipeline %s: %s %.3fs", p.id, c.kind, c.start)

	var events []reframe.Event
	switch c.kind {
	case cmdStop:
		p.r.Stop()
		p.playing = false
		if err := p.sink.Clear(); err != nil {
			return err
		}
	case cmdPlay, cmdSeek:
		if p.started {
			if err := p.sink.Clear(); err != nil {
				return err
			}
		}
		p.started = true
		p.playing = true
		events = p.r.Play(c.start)
	}

	if err := p.dispatch(ctx, events); err != nil {
		return err
	}

	// Run whatever is already buffered, including a deferred end of input.
	events, err := p.r.Feed(reframe.Chunk{Offset: reframe.NoOffset, CTS: reframe.NoTimestamp})
	if err != nil {
		return fmt.Errorf("session %s: %w", p.id, err)
	}
	return p.dispatch(ctx, events)
}

func (p *Pipeline) dispatch(ctx context.Context, events []reframe.Event) error {
	for _, ev := range events {
		switch e := ev.(type) {
		case *reframe.ConfigUpdate:
			if err := p.sink.Configure(e.Config, e.Partial); err != nil {
				return fmt.Errorf("sink configure: %w", err)
			}
		case *reframe.Frame:
			if err := p.sink.WriteFrame(ctx, e); err != nil {
				return fmt.Errorf("sink write: %w", err)
			}
		case *reframe.SourceSeek:
			if err := p.src.Seek(e.Offset); err != nil {
				return err
			}
			p.offset = e.Offset
			p.inputDone = false
		case *reframe.EndOfStream:
			if err := p.sink.End(); err != nil {
				return fmt.Errorf("sink end: %w", err)
			}
		}
	}
	return nil
}

func (p *Pipeline) updateStatus() {
	info, _ := p.r.StreamInfo()
	state := p.r.State()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = state
	p.status.CTS = p.r.CTS()
	p.status.Info = info
	p.status.Stats = p.r.Stats()
	p.status.Playing = p.playing && state != reframe.StateEOS && state != reframe.StateError
}
