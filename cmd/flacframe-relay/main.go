// ABOUTME: Entry point for the flacframe relay
// ABOUTME: Reframes a FLAC file or URL and streams the frames to Resonate players
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
	"github.com/Resonate-Protocol/flacframe/internal/relay"
	"github.com/Resonate-Protocol/flacframe/internal/source"
	"github.com/Resonate-Protocol/flacframe/internal/version"
)

var (
	port     = flag.Int("port", 0, "WebSocket server port (default from FLACFRAME_RELAY_PORT or 8927)")
	name     = flag.String("name", "", "Relay friendly name (default: hostname-flacframe-relay)")
	logFile  = flag.String("log-file", "flacframe-relay.log", "Log file path")
	debug    = flag.Bool("debug", false, "Enable debug logging")
	noMDNS   = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noTUI    = flag.Bool("no-tui", false, "Disable TUI, log to stdout instead")
	bufferMs = flag.Int("buffer-ms", 0, "How far ahead of playback frames are sent (default from FLACFRAME_RELAY_BUFFER_MS)")
	seek     = flag.Float64("seek", 0, "Start position in seconds")
	paused   = flag.Bool("paused", false, "Wait for a controller play command before streaming")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file.flac | http://...>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	var logOut io.Writer = f
	if !useTUI {
		logOut = io.MultiWriter(os.Stdout, f)
	}
	log.SetOutput(logOut)

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			log.Printf("No .env file found, continuing without it")
		} else {
			log.Fatalf("failed to load .env file: %v", err)
		}
	}
	reframeCfg, err := config.NewReframeConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load reframer config: %v", err)
	}
	relayCfg, err := config.NewRelayConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load relay config: %v", err)
	}
	if *port != 0 {
		relayCfg.Port = *port
	}
	if *bufferMs != 0 {
		relayCfg.BufferMs = *bufferMs
	}
	if *noMDNS {
		relayCfg.MDNS = false
	}

	relayName := *name
	if relayName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		relayName = fmt.Sprintf("%s-flacframe-relay", hostname)
	}

	log.Printf("Starting %s %s relay: %s on port %d", version.Product, version.Version, relayName, relayCfg.Port)
	log.Printf("Logging to: %s", *logFile)

	src, err := source.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer src.Close()

	srv := relay.NewServer(relay.Config{
		Port:          relayCfg.Port,
		Name:          relayName,
		EnableMDNS:    relayCfg.MDNS,
		BufferAheadMs: relayCfg.BufferMs,
		Debug:         *debug,
	})
	title, artist, album := src.Metadata()
	srv.SetMetadata(title, artist, album)

	rcfg := reframeCfg.Reframer()
	rcfg.Logger = logger
	pipeline := source.NewPipeline(src, source.Options{
		Reframe:   rcfg,
		ChunkSize: reframeCfg.ChunkSize,
		Start:     *seek,
		Paused:    *paused,
		Linger:    true,
	}, srv)
	srv.SetController(pipeline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := pipeline.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Pipeline %s stopped: %v", pipeline.ID(), err)
		}
	}()

	var tui *relay.TUI
	if useTUI {
		tui = relay.NewTUI(pipeline)
		go func() {
			if err := tui.Start(relayName, relayCfg.Port); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go func() {
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					tui.Update(statusFor(relayName, relayCfg.Port, title, artist, srv, pipeline))
				}
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var quit <-chan struct{}
	if tui != nil {
		quit = tui.QuitChan()
	}
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received %v signal, shutting down gracefully...", sig)
		case <-quit:
			log.Printf("Quit requested from TUI")
		}
		cancel()
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Relay error: %v", err)
	}
	if tui != nil {
		tui.Stop()
	}

	log.Printf("Relay stopped")
}

func statusFor(name string, port int, title, artist string, srv *relay.Server, p *source.Pipeline) relay.Status {
	ps := p.Status()
	track := title
	if artist != "" {
		track = artist + " - " + title
	}
	return relay.Status{
		Name:     name,
		Port:     port,
		Track:    track,
		Session:  ps.SessionID,
		State:    ps.State.String(),
		Stream:   srv.Stats(),
		Resyncs:  ps.Stats.Resyncs,
		Dropped:  ps.Stats.DroppedBytes,
		Clients:  srv.Clients(),
		Duration: ps.Info.Length(),
	}
}
