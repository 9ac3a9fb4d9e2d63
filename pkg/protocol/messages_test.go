// ABOUTME: Tests for Resonate protocol message types
// ABOUTME: Payload decoding, capability checks and binary chunk framing
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodePayload(t *testing.T) {
	raw := `{"type":"client/hello","payload":{"client_id":"kitchen-1","name":"Kitchen","version":1,` +
		`"supported_roles":["player@v1","controller@v1"],` +
		`"player@v1_support":{"supported_formats":[{"codec":"flac","channels":2,"sample_rate":44100,"bit_depth":16}],` +
		`"buffer_capacity":1048576,"supported_commands":["volume"]}}}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if msg.Type != TypeClientHello {
		t.Fatalf("type = %s, want %s", msg.Type, TypeClientHello)
	}

	var hello ClientHello
	if err := DecodePayload(msg, &hello); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if hello.ClientID != "kitchen-1" || len(hello.SupportedRoles) != 2 {
		t.Errorf("unexpected hello: %+v", hello)
	}
	if hello.PlayerV1Support == nil || !hello.PlayerV1Support.Supports("flac") {
		t.Error("expected FLAC support")
	}
	if hello.PlayerV1Support.Supports("opus") {
		t.Error("opus was not advertised")
	}
}

func TestControllerCommand(t *testing.T) {
	tests := []struct {
		raw  string
		want ControllerCommand
	}{
		{`{"controller":{"command":"play"}}`, ControllerCommand{Command: CommandPlay}},
		{`{"controller":{"command":"seek","position":12.5}}`, ControllerCommand{Command: CommandSeek, Position: 12.5}},
		{`{"controller":{"command":"stop"}}`, ControllerCommand{Command: CommandStop}},
	}
	for _, tt := range tests {
		var payload interface{}
		if err := json.Unmarshal([]byte(tt.raw), &payload); err != nil {
			t.Fatal(err)
		}
		var cmd ClientCommandMessage
		if err := DecodePayload(Message{Type: TypeClientCommand, Payload: payload}, &cmd); err != nil {
			t.Fatalf("DecodePayload(%s) failed: %v", tt.raw, err)
		}
		if cmd.Controller == nil || *cmd.Controller != tt.want {
			t.Errorf("DecodePayload(%s) = %+v, want %+v", tt.raw, cmd.Controller, tt.want)
		}
	}
}

func TestStreamStartOmitsEmptyHeader(t *testing.T) {
	data, err := json.Marshal(StreamStart{Player: &StreamStartPlayer{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if bytes.Contains(data, []byte("codec_header")) {
		t.Errorf("empty codec header should be omitted: %s", data)
	}
}

func TestAudioChunk(t *testing.T) {
	frame := []byte{0xFF, 0xF8, 0x69, 0x08}
	msg := EncodeAudioChunk(1_500_000, frame)

	if len(msg) != BinaryMessageHeaderSize+len(frame) {
		t.Fatalf("length = %d", len(msg))
	}
	typ, chunk, err := DecodeBinary(msg)
	if err != nil {
		t.Fatalf("DecodeBinary failed: %v", err)
	}
	if typ != AudioChunkMessageType {
		t.Errorf("type = %d, want %d", typ, AudioChunkMessageType)
	}
	if chunk.Timestamp != 1_500_000 {
		t.Errorf("timestamp = %d", chunk.Timestamp)
	}
	if !bytes.Equal(chunk.Data, frame) {
		t.Errorf("data = % X, want % X", chunk.Data, frame)
	}

	if _, _, err := DecodeBinary(msg[:5]); !errors.Is(err, ErrShortChunk) {
		t.Errorf("short message error = %v, want ErrShortChunk", err)
	}
}
