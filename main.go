// ABOUTME: Entry point for the flacframe CLI
// ABOUTME: Reframes a FLAC file or URL and prints every configuration and frame event
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/flacframe/internal/config"
	"github.com/Resonate-Protocol/flacframe/internal/source"
	"github.com/Resonate-Protocol/flacframe/internal/version"
	"github.com/Resonate-Protocol/flacframe/pkg/audio/reframe"
)

var (
	seek        = flag.Float64("seek", 0, "Start position in seconds")
	indexWindow = flag.Float64("index", reframe.DefaultIndexWindow, "Seek index granularity in seconds (<= 0 disables)")
	forceCRC    = flag.Bool("force-crc", false, "Verify the CRC-16 footer of every frame")
	timescale   = flag.Uint("timescale", 0, "Output timescale (0 = stream sample rate)")
	chunkSize   = flag.Int("chunk", source.DefaultChunkSize, "Read size in bytes")
	maxBuffer   = flag.Int("max-buffer", reframe.DefaultMaxBuffer, "Largest reframer buffer in bytes")
	showIndex   = flag.Bool("show-index", false, "Print the seek index after the last frame")
	quiet       = flag.Bool("quiet", false, "Only print configuration and the summary")
	logFile     = flag.String("log-file", "", "Also write logs to this file")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <file.flac | http://...>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Logs go to stderr so stdout carries only frame lines
	var logOut io.Writer = os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		logOut = io.MultiWriter(os.Stderr, f)
	}
	log.SetOutput(logOut)

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("failed to load .env file: %v", err)
	}
	envCfg, err := config.NewReframeConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load reframer config: %v", err)
	}
	applyFlags(envCfg)

	rcfg := envCfg.Reframer()
	rcfg.Logger = logger

	src, err := source.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer src.Close()

	sink := &printSink{w: os.Stdout, quiet: *quiet}
	pipeline := source.NewPipeline(src, source.Options{
		Reframe:   rcfg,
		ChunkSize: envCfg.ChunkSize,
		Start:     *seek,
	}, sink)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	started := time.Now()
	runErr := pipeline.Run(ctx)

	st := pipeline.Status()
	fmt.Printf("summary: %d frames, %d suppressed, %d resyncs, %d bytes dropped, %d rejected syncs, %d footer checks, state %s, %v\n",
		st.Stats.FramesEmitted, st.Stats.FramesSuppressed, st.Stats.Resyncs, st.Stats.DroppedBytes,
		st.Stats.RejectedSyncs, st.Stats.FooterChecks, st.State, time.Since(started).Round(time.Millisecond))

	if *showIndex {
		for _, e := range pipeline.SeekIndex() {
			fmt.Printf("index: time=%d offset=%d\n", e.Time, e.Offset)
		}
	}

	if runErr != nil && runErr != context.Canceled {
		log.Fatalf("Reframing failed: %v", runErr)
	}
}

// applyFlags lets explicitly set flags override environment values.
func applyFlags(cfg *config.ReframeConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "index":
			cfg.IndexWindow = *indexWindow
		case "force-crc":
			cfg.ForceCRC = *forceCRC
		case "timescale":
			cfg.Timescale = uint32(*timescale)
		case "chunk":
			cfg.ChunkSize = *chunkSize
		case "max-buffer":
			cfg.MaxBuffer = *maxBuffer
		}
	})
}

// printSink writes one line per event.
type printSink struct {
	w      io.Writer
	quiet  bool
	frames int
}

func (s *printSink) Configure(cfg reframe.StreamConfig, partial bool) error {
	ev := reframe.ConfigUpdate{Config: cfg, Partial: partial}
	_, err := fmt.Fprintln(s.w, ev.String())
	if err != nil || partial {
		return err
	}
	_, err = fmt.Fprintf(s.w, "  timescale %d, %d total samples, bitrate %d bps, seekable %v, decoder config %d bytes\n",
		cfg.Timescale, cfg.TotalSamples, cfg.Bitrate, cfg.Seekable, len(cfg.DecoderConfig))
	return err
}

func (s *printSink) WriteFrame(ctx context.Context, f *reframe.Frame) error {
	s.frames++
	if s.quiet {
		return nil
	}
	line := fmt.Sprintf("%s num=%d block=%d", f.String(), f.Header.Number, f.Header.BlockSize)
	if f.Forced {
		line += " forced"
	}
	_, err := fmt.Fprintln(s.w, line)
	return err
}

func (s *printSink) Clear() error {
	_, err := fmt.Fprintln(s.w, "clear")
	return err
}

func (s *printSink) End() error {
	_, err := fmt.Fprintln(s.w, "end of stream")
	return err
}
