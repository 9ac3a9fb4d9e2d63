// ABOUTME: Tests for file and HTTP sources
// ABOUTME: Checks probing, tags, seekability and range repositioning
package source

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Resonate-Protocol/flacframe/internal/flactest"
)

var tagged = flactest.Stream{
	SampleRate: 44100, Channels: 2, BitsPerSample: 16, BlockSize: 4096, Frames: 10,
	Tags: []string{"TITLE=Sync Test", "ARTIST=The Reframers", "ALBUM=Frames"},
}

func writeStream(t *testing.T, s flactest.Stream) (string, []byte) {
	t.Helper()
	data, _ := flactest.Build(s)
	path := filepath.Join(t.TempDir(), "test.flac")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write test stream: %v", err)
	}
	return path, data
}

func TestOpenFile(t *testing.T) {
	path, data := writeStream(t, tagged)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	info := src.Info()
	if !info.Seekable || info.Size != int64(len(data)) {
		t.Errorf("Info = %+v, want seekable with size %d", info, len(data))
	}

	title, artist, album := src.Metadata()
	if title != "Sync Test" || artist != "The Reframers" || album != "Frames" {
		t.Errorf("Metadata = %q, %q, %q", title, artist, album)
	}

	got, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("file source did not return the file from the start")
	}

	if err := src.Seek(100); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	got, _ = io.ReadAll(src)
	if !bytes.Equal(got, data[100:]) {
		t.Error("read after seek does not match the file tail")
	}
}

func TestOpenFileDefaultsWithoutTags(t *testing.T) {
	path, _ := writeStream(t, flactest.Stream{SampleRate: 44100, Channels: 1, BitsPerSample: 16, BlockSize: 4096, Frames: 1})

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer src.Close()

	title, artist, album := src.Metadata()
	if title != "test" || artist != "Unknown Artist" || album != "Unknown Album" {
		t.Errorf("Metadata = %q, %q, %q", title, artist, album)
	}
}

func TestOpenRejects(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "tone.wav")
	if err := os.WriteFile(wav, []byte("RIFF\x24\x00\x00\x00WAVE"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(wav); !errors.Is(err, ErrNotFLAC) {
		t.Errorf("Open(wav) error = %v, want ErrNotFLAC", err)
	}
	if _, err := Open(filepath.Join(dir, "missing.flac")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestOpenHTTPLive(t *testing.T) {
	data, _ := flactest.Build(tagged)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/flac")
		w.Write(data)
	}))
	defer srv.Close()

	src, err := Open(srv.URL + "/radio/live.flac")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if src.Info().Seekable {
		t.Error("a source without byte ranges should be live")
	}
	if err := src.Seek(10); !errors.Is(err, ErrNotSeekable) {
		t.Errorf("Seek error = %v, want ErrNotSeekable", err)
	}
	if title, _, _ := src.Metadata(); title != "live" {
		t.Errorf("title = %q, want live", title)
	}

	got, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("HTTP body mismatch")
	}
}

func TestOpenHTTPRanges(t *testing.T) {
	data, _ := flactest.Build(tagged)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "album.flac", time.Time{}, bytes.NewReader(data))
	}))
	defer srv.Close()

	src, err := OpenHTTP(srv.Client(), srv.URL+"/album.flac")
	if err != nil {
		t.Fatalf("OpenHTTP failed: %v", err)
	}
	defer src.Close()

	info := src.Info()
	if !info.Seekable || info.Size != int64(len(data)) {
		t.Errorf("Info = %+v, want seekable with size %d", info, len(data))
	}

	if err := src.Seek(1000); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	got, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, data[1000:]) {
		t.Errorf("read %d bytes after seek, want the %d byte tail", len(got), len(data)-1000)
	}
}

func TestOpenHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.flac" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ID3\x04\x00not flac at all"))
	}))
	defer srv.Close()

	if _, err := OpenHTTP(srv.Client(), srv.URL+"/missing.flac"); err == nil {
		t.Error("expected error for HTTP 404")
	}
	if _, err := OpenHTTP(srv.Client(), srv.URL+"/song.mp3"); !errors.Is(err, ErrNotFLAC) {
		t.Errorf("error = %v, want ErrNotFLAC", err)
	}
}
