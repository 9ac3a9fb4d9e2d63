// ABOUTME: Resonate wire protocol message types used by the FLAC relay
// ABOUTME: JSON control messages plus helpers to decode typed payloads
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message types exchanged over the control channel
const (
	TypeClientHello   = "client/hello"
	TypeServerHello   = "server/hello"
	TypeClientTime    = "client/time"
	TypeServerTime    = "server/time"
	TypeClientState   = "client/state"
	TypeClientCommand = "client/command"
	TypeClientGoodbye = "client/goodbye"
	TypeServerState   = "server/state"
	TypeGroupUpdate   = "group/update"
	TypeStreamStart   = "stream/start"
	TypeStreamClear   = "stream/clear"
	TypeStreamEnd     = "stream/end"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DecodePayload converts a message payload decoded as generic JSON into v.
func DecodePayload(msg Message, v interface{}) error {
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("%s payload: %w", msg.Type, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s payload: %w", msg.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake.
// Roles are versioned, like "player@v1".
type ClientHello struct {
	ClientID        string           `json:"client_id"`
	Name            string           `json:"name"`
	Version         int              `json:"version"`
	SupportedRoles  []string         `json:"supported_roles"`
	DeviceInfo      *DeviceInfo      `json:"device_info,omitempty"`
	PlayerV1Support *PlayerV1Support `json:"player@v1_support,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// PlayerV1Support describes player@v1 capabilities
type PlayerV1Support struct {
	SupportedFormats  []AudioFormat `json:"supported_formats"`
	BufferCapacity    int           `json:"buffer_capacity"`
	SupportedCommands []string      `json:"supported_commands"`
}

// Supports reports whether any advertised format uses codec.
func (p *PlayerV1Support) Supports(codec string) bool {
	for _, f := range p.SupportedFormats {
		if f.Codec == codec {
			return true
		}
	}
	return false
}

// AudioFormat describes a supported audio format
type AudioFormat struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID         string   `json:"server_id"`
	Name             string   `json:"name"`
	Version          int      `json:"version"`
	ActiveRoles      []string `json:"active_roles"`
	ConnectionReason string   `json:"connection_reason"` // "discovery" or "playback"
}

// ClientStateMessage is sent as client/state
type ClientStateMessage struct {
	Player *PlayerState `json:"player,omitempty"`
}

// PlayerState reports the player's current state
type PlayerState struct {
	State  string `json:"state"` // "synchronized" or "error"
	Volume int    `json:"volume,omitempty"`
	Muted  bool   `json:"muted,omitempty"`
}

// ClientCommandMessage is sent as client/command by controllers
type ClientCommandMessage struct {
	Controller *ControllerCommand `json:"controller,omitempty"`
}

// Controller commands understood by the relay
const (
	CommandPlay = "play"
	CommandStop = "stop"
	CommandSeek = "seek"
)

// ControllerCommand asks the server to change playback.
// Position is in seconds and used by play and seek.
type ControllerCommand struct {
	Command  string  `json:"command"`
	Position float64 `json:"position,omitempty"`
}

// StreamStartPlayer contains the audio format details
type StreamStartPlayer struct {
	Codec       string `json:"codec"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	BitDepth    int    `json:"bit_depth"`
	CodecHeader string `json:"codec_header,omitempty"` // base64
}

// StreamStart notifies the client of the stream format
type StreamStart struct {
	Player *StreamStartPlayer `json:"player,omitempty"`
}

// ServerStateMessage is sent as server/state
type ServerStateMessage struct {
	Metadata *MetadataState `json:"metadata,omitempty"`
}

// MetadataState contains track metadata
type MetadataState struct {
	Timestamp int64          `json:"timestamp"` // server clock µs when valid
	Title     *string        `json:"title,omitempty"`
	Artist    *string        `json:"artist,omitempty"`
	Album     *string        `json:"album,omitempty"`
	Progress  *ProgressState `json:"progress,omitempty"`
}

// ProgressState contains playback progress
type ProgressState struct {
	TrackProgress int `json:"track_progress"` // ms
	TrackDuration int `json:"track_duration"` // ms, 0 = unknown
	PlaybackSpeed int `json:"playback_speed"` // speed * 1000, 0 = paused
}

// GroupUpdate is sent as group/update
type GroupUpdate struct {
	PlaybackState *string `json:"playback_state,omitempty"` // "playing", "paused", "stopped"
	GroupID       *string `json:"group_id,omitempty"`
	GroupName     *string `json:"group_name,omitempty"`
}

// StreamClear instructs clients to drop buffered audio
type StreamClear struct {
	Roles []string `json:"roles,omitempty"`
}

// StreamEnd ends streams for the listed roles, all when empty
type StreamEnd struct {
	Roles []string `json:"roles,omitempty"`
}

// ClientGoodbye is sent before graceful disconnect
type ClientGoodbye struct {
	Reason string `json:"reason"`
}

// ClientTime is sent for clock synchronization
type ClientTime struct {
	ClientTransmitted int64 `json:"client_transmitted"` // µs
}

// ServerTime is the response to client/time
type ServerTime struct {
	ClientTransmitted int64 `json:"client_transmitted"`
	ServerReceived    int64 `json:"server_received"`
	ServerTransmitted int64 `json:"server_transmitted"`
}
