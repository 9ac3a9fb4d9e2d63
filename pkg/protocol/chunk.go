// ABOUTME: Binary audio chunk framing
// ABOUTME: One type byte, a big endian microsecond timestamp, then the payload
package protocol

import (
	"encoding/binary"
	"errors"
)

const (
	// AudioChunkMessageType is the player role binary message, slot 0
	AudioChunkMessageType = 4

	// BinaryMessageHeaderSize is the type byte plus the timestamp
	BinaryMessageHeaderSize = 1 + 8
)

// ErrShortChunk is returned for a binary message without a full header.
var ErrShortChunk = errors.New("binary message shorter than header")

// AudioChunk is a timestamped piece of encoded audio
type AudioChunk struct {
	Timestamp int64 // server clock µs at which playback starts
	Data      []byte
}

// EncodeAudioChunk builds the binary message for one chunk.
func EncodeAudioChunk(timestamp int64, data []byte) []byte {
	out := make([]byte, BinaryMessageHeaderSize+len(data))
	out[0] = AudioChunkMessageType
	binary.BigEndian.PutUint64(out[1:9], uint64(timestamp))
	copy(out[BinaryMessageHeaderSize:], data)
	return out
}

// DecodeBinary splits a binary message into its type and chunk. The chunk
// data aliases msg.
func DecodeBinary(msg []byte) (byte, AudioChunk, error) {
	if len(msg) < BinaryMessageHeaderSize {
		return 0, AudioChunk{}, ErrShortChunk
	}
	return msg[0], AudioChunk{
		Timestamp: int64(binary.BigEndian.Uint64(msg[1:9])),
		Data:      msg[BinaryMessageHeaderSize:],
	}, nil
}
