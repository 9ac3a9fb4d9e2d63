// ABOUTME: Tests for the reframing pipeline
// ABOUTME: Drives file sources through play, pause, seek and end of stream
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/flacframe/internal/flactest"
	"github.com/Resonate-Protocol/flacframe/pkg/audio/reframe"
	"github.com/google/go-cmp/cmp"
)

// recordingSink logs every call as a short string.
type recordingSink struct {
	mu       sync.Mutex
	log      []string
	frames   [][]byte
	configs  chan reframe.StreamConfig
	ends     chan struct{}
	writeErr error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		configs: make(chan reframe.StreamConfig, 4),
		ends:    make(chan struct{}, 4),
	}
}

func (s *recordingSink) add(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, entry)
}

func (s *recordingSink) Configure(cfg reframe.StreamConfig, partial bool) error {
	s.add(fmt.Sprintf("config %d/%d partial=%v", cfg.SampleRate, cfg.Channels, partial))
	s.configs <- cfg
	return nil
}

func (s *recordingSink) WriteFrame(ctx context.Context, f *reframe.Frame) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.add(fmt.Sprintf("frame %d", f.Header.Number))
	s.mu.Lock()
	s.frames = append(s.frames, f.Data)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) Clear() error {
	s.add("clear")
	return nil
}

func (s *recordingSink) End() error {
	s.add("end")
	s.ends <- struct{}{}
	return nil
}

func (s *recordingSink) entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

func frameEntries(from, to int) []string {
	var out []string
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("frame %d", i))
	}
	return out
}

func wait(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestPipelineFile(t *testing.T) {
	path, _ := writeStream(t, tagged)
	_, frames := flactest.Build(tagged)

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer src.Close()

	sink := newRecordingSink()
	p := NewPipeline(src, Options{Reframe: reframe.DefaultConfig(), ChunkSize: 1000}, sink)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := append([]string{"config 44100/2 partial=false"}, frameEntries(0, 10)...)
	want = append(want, "end")
	if diff := cmp.Diff(want, sink.entries()); diff != "" {
		t.Errorf("sink calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(frames, sink.frames); diff != "" {
		t.Errorf("frame bytes mismatch (-want +got):\n%s", diff)
	}

	st := p.Status()
	if st.SessionID == "" || st.SessionID != p.ID() {
		t.Errorf("SessionID = %q, want %q", st.SessionID, p.ID())
	}
	if st.State != reframe.StateEOS || st.Playing {
		t.Errorf("State = %v playing=%v, want eos and not playing", st.State, st.Playing)
	}
	if st.Stats.FramesEmitted != 10 {
		t.Errorf("FramesEmitted = %d, want 10", st.Stats.FramesEmitted)
	}
	if st.Info.SampleRate != 44100 {
		t.Errorf("Info.SampleRate = %d, want 44100", st.Info.SampleRate)
	}

	// one entry at the first frame, then one per second of audio
	index := p.SeekIndex()
	if len(index) != 1 || index[0].Time != 0 {
		t.Errorf("SeekIndex = %+v, want a single entry at 0", index)
	}
}

func TestPipelineStartOffset(t *testing.T) {
	s := tagged
	s.Frames = 30
	path, _ := writeStream(t, s)

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer src.Close()

	sink := newRecordingSink()
	p := NewPipeline(src, Options{Reframe: reframe.DefaultConfig(), Start: 1.0}, sink)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := append([]string{"config 44100/2 partial=false"}, frameEntries(10, 30)...)
	want = append(want, "end")
	if diff := cmp.Diff(want, sink.entries()); diff != "" {
		t.Errorf("sink calls mismatch (-want +got):\n%s", diff)
	}
	if got := p.Status().Stats.FramesSuppressed; got != 10 {
		t.Errorf("FramesSuppressed = %d, want 10", got)
	}
}

func TestPipelinePausedThenSeek(t *testing.T) {
	s := tagged
	s.Frames = 30
	path, _ := writeStream(t, s)

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer src.Close()

	sink := newRecordingSink()
	p := NewPipeline(src, Options{Reframe: reframe.DefaultConfig(), Paused: true, Linger: true}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-sink.configs:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for configuration")
	}
	if got := sink.entries(); len(got) != 1 {
		t.Fatalf("frames delivered while paused: %v", got)
	}

	p.Play(0)
	wait(t, sink.ends, "first end of stream")

	p.Seek(1.5)
	wait(t, sink.ends, "second end of stream")

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}

	want := []string{"config 44100/2 partial=false"}
	want = append(want, frameEntries(0, 30)...)
	want = append(want, "end", "clear")
	want = append(want, frameEntries(16, 30)...)
	want = append(want, "end")
	if diff := cmp.Diff(want, sink.entries()); diff != "" {
		t.Errorf("sink calls mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineSinkError(t *testing.T) {
	path, _ := writeStream(t, tagged)
	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer src.Close()

	sink := newRecordingSink()
	sink.writeErr = errors.New("client gone")
	p := NewPipeline(src, Options{Reframe: reframe.DefaultConfig()}, sink)
	if err := p.Run(context.Background()); !errors.Is(err, sink.writeErr) {
		t.Errorf("Run error = %v, want the sink error", err)
	}
}

func TestPipelineCorruptInput(t *testing.T) {
	path, data := writeStream(t, tagged)
	// zero the STREAMINFO sample rate
	data[18], data[19] = 0, 0
	data[20] &= 0x0F
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer src.Close()

	p := NewPipeline(src, Options{Reframe: reframe.DefaultConfig()}, newRecordingSink())
	if err := p.Run(context.Background()); !errors.Is(err, reframe.ErrNonCompliantBitstream) {
		t.Errorf("Run error = %v, want ErrNonCompliantBitstream", err)
	}
	if st := p.Status(); st.State != reframe.StateError {
		t.Errorf("State = %v, want error", st.State)
	}
}
