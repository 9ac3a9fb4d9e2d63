// ABOUTME: WebSocket relay broadcasting reframed FLAC frames to Resonate players
// ABOUTME: Implements the pipeline sink and paces frames on the stream clock
package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Resonate-Protocol/flacframe/internal/discovery"
	"github.com/Resonate-Protocol/flacframe/pkg/audio/reframe"
	"github.com/Resonate-Protocol/flacframe/pkg/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// ProtocolVersion is the version of the Resonate protocol we implement
	ProtocolVersion = 1

	// DefaultPort is used when Config.Port is zero
	DefaultPort = 8927

	// BufferAheadMs is how far ahead of playback frames are sent by default
	BufferAheadMs = 500

	// Path is the WebSocket endpoint
	Path = "/resonate"
)

// ErrStopped is returned by WriteFrame once the server is stopping.
var ErrStopped = errors.New("relay stopped")

// Controller receives playback commands from controller clients.
// *source.Pipeline satisfies it.
type Controller interface {
	Play(start float64)
	Stop()
	Seek(t float64)
}

// Config configures a relay server
type Config struct {
	// Port to listen on (default: 8927)
	Port int

	// Name of the server for identification
	Name string

	// EnableMDNS enables mDNS service advertisement
	EnableMDNS bool

	// BufferAheadMs is how far ahead of its play time a frame is sent.
	// 0 uses BufferAheadMs.
	BufferAheadMs int

	// Debug enables debug logging
	Debug bool
}

// Server is a FLAC passthrough relay
type Server struct {
	config   Config
	serverID string

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*client
	clientsMu sync.RWMutex

	// Server clock (monotonic microseconds)
	clockStart time.Time

	control    Controller
	advertiser *discovery.Advertiser

	// Stream state, guarded by streamMu
	streamMu  sync.Mutex
	format    *protocol.StreamStartPlayer
	timescale uint32
	duration  time.Duration
	streaming bool
	// epoch is the server clock time at which cts 0 plays
	epoch    int64
	epochSet bool
	title    string
	artist   string
	album    string
	stats    StreamStats

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// client represents a connected client (internal)
type client struct {
	ID           string
	Name         string
	Conn         *websocket.Conn
	Roles        []string
	Capabilities *protocol.PlayerV1Support

	State     string
	Volume    int
	Muted     bool
	Streaming bool

	sendChan chan interface{}

	mu sync.RWMutex
}

// ClientInfo represents information about a connected client
type ClientInfo struct {
	ID        string
	Name      string
	State     string
	Volume    int
	Muted     bool
	Streaming bool
}

// StreamStats summarizes what the relay has sent.
type StreamStats struct {
	FramesSent    uint64
	BytesSent     uint64
	Position      time.Duration
	Duration      time.Duration
	Streaming     bool
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// NewServer creates a relay server.
func NewServer(config Config) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Name == "" {
		config.Name = "flacframe relay"
	}
	if config.BufferAheadMs <= 0 {
		config.BufferAheadMs = BufferAheadMs
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// local network deployments accept all origins
				return true
			},
		},
		clients:    make(map[string]*client),
		clockStart: time.Now(),
		stopChan:   make(chan struct{}),
		artist:     "Unknown Artist",
		album:      "Unknown Album",
	}
	s.mux.HandleFunc(Path, s.handleWebSocket)
	return s
}

// SetController routes controller commands to c.
func (s *Server) SetController(c Controller) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	s.control = c
}

// SetMetadata sets the track metadata sent to players.
func (s *Server) SetMetadata(title, artist, album string) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	s.title, s.artist, s.album = title, artist, album
}

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves until Stop is called.
func (s *Server) Start() error {
	log.Printf("Relay starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.advertiser = discovery.NewAdvertiser(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        Path,
			TXT:         map[string]string{"codec": "flac"},
		})
		if err := s.advertiser.Start(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket relay listening on %s%s", addr, Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-s.stopChan:
		log.Printf("Relay shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		return err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.advertiser != nil {
		s.advertiser.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Relay stopped cleanly")
	return nil
}

// Stop stops the server and releases a blocked WriteFrame.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Clients returns information about all connected clients
func (s *Server) Clients() []ClientInfo {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	clients := make([]ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		c.mu.RLock()
		clients = append(clients, ClientInfo{
			ID:        c.ID,
			Name:      c.Name,
			State:     c.State,
			Volume:    c.Volume,
			Muted:     c.Muted,
			Streaming: c.Streaming,
		})
		c.mu.RUnlock()
	}
	return clients
}

// Stats returns relay stream counters.
func (s *Server) Stats() StreamStats {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	st := s.stats
	st.Streaming = s.streaming
	st.Duration = s.duration
	if s.format != nil {
		st.SampleRate = s.format.SampleRate
		st.Channels = s.format.Channels
		st.BitsPerSample = s.format.BitDepth
	}
	return st
}

// Configure announces a new stream format to every player.
func (s *Server) Configure(cfg reframe.StreamConfig, partial bool) error {
	s.streamMu.Lock()
	format := &protocol.StreamStartPlayer{
		Codec:       "flac",
		SampleRate:  int(cfg.SampleRate),
		Channels:    cfg.Channels,
		BitDepth:    int(cfg.BitsPerSample),
		CodecHeader: base64.StdEncoding.EncodeToString(cfg.DecoderConfig),
	}
	if partial && s.format != nil {
		// only rate and channels change mid-stream
		format.BitDepth = s.format.BitDepth
		format.CodecHeader = s.format.CodecHeader
	} else {
		s.timescale = cfg.Timescale
		if cfg.SampleRate > 0 {
			s.duration = time.Duration(cfg.TotalSamples) * time.Second / time.Duration(cfg.SampleRate)
		}
	}
	s.format = format
	s.streaming = true
	s.streamMu.Unlock()

	log.Printf("Stream format: flac %dHz/%dbit/%dch (partial: %v)",
		format.SampleRate, format.BitDepth, format.Channels, partial)

	s.broadcastStart(format)
	return nil
}

// WriteFrame sends one frame, blocking until it is within the buffer-ahead
// window of its play time.
func (s *Server) WriteFrame(ctx context.Context, f *reframe.Frame) error {
	s.streamMu.Lock()
	restart := !s.streaming && s.format != nil
	s.streaming = true
	format := s.format
	offset := s.ctsMicros(f.CTS)
	ahead := int64(s.config.BufferAheadMs) * 1000
	if !s.epochSet {
		s.epoch = s.getClockMicros() + ahead - offset
		s.epochSet = true
	}
	playAt := s.epoch + offset
	s.streamMu.Unlock()

	if restart {
		s.broadcastStart(format)
	}

	if wait := time.Duration(playAt-ahead-s.getClockMicros()) * time.Microsecond; wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan:
			return ErrStopped
		}
	}

	s.broadcastBinary(protocol.EncodeAudioChunk(playAt, f.Data))

	s.streamMu.Lock()
	s.stats.FramesSent++
	s.stats.BytesSent += uint64(len(f.Data))
	s.stats.Position = time.Duration(offset) * time.Microsecond
	s.streamMu.Unlock()
	return nil
}

// Clear tells players to drop buffered audio; the next frame starts a new
// timeline.
func (s *Server) Clear() error {
	s.streamMu.Lock()
	s.epochSet = false
	s.streamMu.Unlock()

	s.broadcast(protocol.TypeStreamClear, protocol.StreamClear{Roles: []string{"player"}})
	return nil
}

// End tells players the stream is over.
func (s *Server) End() error {
	s.streamMu.Lock()
	s.streaming = false
	s.epochSet = false
	s.streamMu.Unlock()

	log.Printf("Stream ended")
	s.broadcast(protocol.TypeStreamEnd, protocol.StreamEnd{Roles: []string{"player"}})
	return nil
}

// ctsMicros converts stream ticks to microseconds. Caller holds streamMu.
func (s *Server) ctsMicros(cts uint64) int64 {
	if s.timescale == 0 {
		return 0
	}
	return int64(cts * 1_000_000 / uint64(s.timescale))
}

func (s *Server) broadcastStart(format *protocol.StreamStartPlayer) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		if !s.hasRole(c, "player") || !s.supportsFLAC(c) {
			continue
		}
		c.mu.Lock()
		c.Streaming = true
		c.mu.Unlock()
		s.sendMessage(c, protocol.TypeStreamStart, protocol.StreamStart{Player: format})
	}
}

func (s *Server) broadcast(msgType string, payload interface{}) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		c.mu.RLock()
		streaming := c.Streaming
		c.mu.RUnlock()
		if !streaming {
			continue
		}
		if err := s.sendMessage(c, msgType, payload); err != nil && s.config.Debug {
			log.Printf("Error sending %s to %s: %v", msgType, c.Name, err)
		}
	}
}

func (s *Server) broadcastBinary(data []byte) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		c.mu.RLock()
		streaming := c.Streaming
		c.mu.RUnlock()
		if !streaming {
			continue
		}
		if err := s.sendBinary(c, data); err != nil && s.config.Debug {
			log.Printf("Error sending audio to %s: %v", c.Name, err)
		}
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}
	if msg.Type != protocol.TypeClientHello {
		log.Printf("Expected %s, got %s", protocol.TypeClientHello, msg.Type)
		return
	}

	var hello protocol.ClientHello
	if err := protocol.DecodePayload(msg, &hello); err != nil {
		log.Printf("Error decoding client hello: %v", err)
		return
	}
	if hello.ClientID == "" || hello.Name == "" {
		log.Printf("Client hello missing required fields")
		return
	}

	log.Printf("Client hello: %s (ID: %s, Roles: %v)", hello.Name, hello.ClientID, hello.SupportedRoles)

	c := &client{
		ID:           hello.ClientID,
		Name:         hello.Name,
		Conn:         conn,
		Roles:        hello.SupportedRoles,
		Capabilities: hello.PlayerV1Support,
		State:        "synchronized",
		Volume:       100,
		sendChan:     make(chan interface{}, 100),
	}

	s.clientsMu.Lock()
	if _, exists := s.clients[hello.ClientID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected, rejecting duplicate", hello.ClientID)
		return
	}
	s.clients[c.ID] = c
	s.clientsMu.Unlock()

	defer func() {
		s.removeClient(c)
		log.Printf("Client disconnected: %s", c.Name)
	}()

	serverHello := protocol.ServerHello{
		ServerID:         s.serverID,
		Name:             s.config.Name,
		Version:          ProtocolVersion,
		ActiveRoles:      activateRoles(hello.SupportedRoles),
		ConnectionReason: "playback",
	}
	if err := s.sendMessage(c, protocol.TypeServerHello, serverHello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	if s.hasRole(c, "player") {
		s.addClientToStream(c)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		s.handleClientMessage(c, data)
	}
}

// clientWriter sends queued messages to the client
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}

			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			var err error
			switch v := msg.(type) {
			case []byte:
				err = c.Conn.WriteMessage(websocket.BinaryMessage, v)
			default:
				err = c.Conn.WriteJSON(v)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage processes messages from clients
func (s *Server) handleClientMessage(c *client, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeClientTime:
		s.handleTimeSync(c, msg)
	case protocol.TypeClientState:
		s.handleClientState(c, msg)
	case protocol.TypeClientCommand:
		s.handleClientCommand(c, msg)
	case protocol.TypeClientGoodbye:
		var goodbye protocol.ClientGoodbye
		if err := protocol.DecodePayload(msg, &goodbye); err == nil {
			log.Printf("Client %s goodbye: %s", c.Name, goodbye.Reason)
		}
	default:
		if s.config.Debug {
			log.Printf("Unknown message type: %s", msg.Type)
		}
	}
}

// handleTimeSync answers a clock synchronization request
func (s *Server) handleTimeSync(c *client, msg protocol.Message) {
	serverRecv := s.getClockMicros()

	var clientTime protocol.ClientTime
	if err := protocol.DecodePayload(msg, &clientTime); err != nil {
		return
	}

	s.sendMessage(c, protocol.TypeServerTime, protocol.ServerTime{
		ClientTransmitted: clientTime.ClientTransmitted,
		ServerReceived:    serverRecv,
		ServerTransmitted: s.getClockMicros(),
	})
}

func (s *Server) handleClientState(c *client, msg protocol.Message) {
	var state protocol.ClientStateMessage
	if err := protocol.DecodePayload(msg, &state); err != nil || state.Player == nil {
		return
	}

	c.mu.Lock()
	c.State = state.Player.State
	c.Volume = state.Player.Volume
	c.Muted = state.Player.Muted
	c.mu.Unlock()

	if s.config.Debug {
		log.Printf("Client %s state: %s (vol: %d, muted: %v)", c.Name, state.Player.State, state.Player.Volume, state.Player.Muted)
	}
}

// handleClientCommand forwards a controller command to the pipeline
func (s *Server) handleClientCommand(c *client, msg protocol.Message) {
	if !s.hasRole(c, "controller") {
		log.Printf("Ignoring command from %s: not a controller", c.Name)
		return
	}

	var cmd protocol.ClientCommandMessage
	if err := protocol.DecodePayload(msg, &cmd); err != nil || cmd.Controller == nil {
		return
	}

	s.streamMu.Lock()
	control := s.control
	s.streamMu.Unlock()
	if control == nil {
		log.Printf("Ignoring %s from %s: no controller attached", cmd.Controller.Command, c.Name)
		return
	}

	log.Printf("Client %s command: %s %.3fs", c.Name, cmd.Controller.Command, cmd.Controller.Position)
	switch cmd.Controller.Command {
	case protocol.CommandPlay:
		control.Play(cmd.Controller.Position)
	case protocol.CommandStop:
		control.Stop()
	case protocol.CommandSeek:
		control.Seek(cmd.Controller.Position)
	default:
		log.Printf("Unknown command from %s: %s", c.Name, cmd.Controller.Command)
	}
}

// addClientToStream sends the current stream state to a new player
func (s *Server) addClientToStream(c *client) {
	if !s.supportsFLAC(c) {
		log.Printf("Client %s does not support FLAC, not streaming", c.Name)
		return
	}

	s.streamMu.Lock()
	format := s.format
	streaming := s.streaming
	title, artist, album := s.title, s.artist, s.album
	duration := s.duration
	position := s.stats.Position
	s.streamMu.Unlock()

	if format != nil && streaming {
		c.mu.Lock()
		c.Streaming = true
		c.mu.Unlock()
		s.sendMessage(c, protocol.TypeStreamStart, protocol.StreamStart{Player: format})
	}

	speed := 0
	playbackState := "stopped"
	if streaming {
		speed = 1000
		playbackState = "playing"
	}

	s.sendMessage(c, protocol.TypeServerState, protocol.ServerStateMessage{
		Metadata: &protocol.MetadataState{
			Timestamp: s.getClockMicros(),
			Title:     strPtr(title),
			Artist:    strPtr(artist),
			Album:     strPtr(album),
			Progress: &protocol.ProgressState{
				TrackProgress: int(position.Milliseconds()),
				TrackDuration: int(duration.Milliseconds()),
				PlaybackSpeed: speed,
			},
		},
	})

	groupID := s.serverID
	s.sendMessage(c, protocol.TypeGroupUpdate, protocol.GroupUpdate{
		GroupID:       &groupID,
		PlaybackState: &playbackState,
	})

	log.Printf("Added client %s to FLAC stream", c.Name)
}

// removeClient removes a client
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	delete(s.clients, c.ID)
	close(c.sendChan)
}

func strPtr(s string) *string {
	return &s
}

// supportsFLAC reports whether a player accepts FLAC. Players that do not
// list formats are assumed to.
func (s *Server) supportsFLAC(c *client) bool {
	return c.Capabilities == nil || len(c.Capabilities.SupportedFormats) == 0 ||
		c.Capabilities.Supports("flac")
}

// sendMessage queues a JSON message without blocking
func (s *Server) sendMessage(c *client, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case c.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// sendBinary queues binary data without blocking
func (s *Server) sendBinary(c *client, data []byte) error {
	select {
	case c.sendChan <- data:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// getClockMicros returns the server clock in microseconds
func (s *Server) getClockMicros() int64 {
	return time.Since(s.clockStart).Microseconds()
}

// hasRole checks for a role, versioned or not ("player" matches "player@v1")
func (s *Server) hasRole(c *client, role string) bool {
	for _, r := range c.Roles {
		if r == role || strings.HasPrefix(r, role+"@") {
			return true
		}
	}
	return false
}

// activateRoles keeps the first version of each role family the relay serves,
// in the order the client listed them
func activateRoles(supportedRoles []string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, role := range supportedRoles {
		family := role
		if idx := strings.Index(role, "@"); idx > 0 {
			family = role[:idx]
		}
		if seen[family] {
			continue
		}
		switch family {
		case "player", "metadata", "controller":
			seen[family] = true
			result = append(result, role)
		}
	}
	return result
}
