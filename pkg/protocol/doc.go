// ABOUTME: Resonate wire protocol package
// ABOUTME: Message types and binary chunk framing for the FLAC relay
// Package protocol defines the Resonate wire protocol as spoken by the
// flacframe relay: JSON control messages and binary audio chunks.
//
// Example:
//
//	msg := protocol.Message{Type: protocol.TypeStreamStart, Payload: protocol.StreamStart{
//	    Player: &protocol.StreamStartPlayer{Codec: "flac", SampleRate: 44100, Channels: 2, BitDepth: 16},
//	}}
//	chunk := protocol.EncodeAudioChunk(playAt, frame)
package protocol
