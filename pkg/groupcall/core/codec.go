package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

const (
	// Frame holding the JSON message as is.
	plainFrame byte = 0x0

	// Frame holding the JSON message compressed with snappy.
	snappyFrame byte = 0x1

	// Messages at least this size are compressed.
	DefaultCompressThreshold = 1024
)

var errEmptyFrame = errors.New("empty frame")

// Codec transforms messages into the bytes sent over the wire.
type Codec interface {
	Encode(message types.Message) ([]byte, error)
	Decode(data []byte) (types.Message, error)
}

// Encodes the message as JSON, compressing with snappy
// when the encoded message is large.
type snappyCodec struct {
	threshold int
}

// Creates the codec using the default compression threshold.
func NewCodec() Codec {
	return NewCodecWithThreshold(DefaultCompressThreshold)
}

// Creates the codec compressing frames of at least
// threshold bytes. A threshold of zero or less always
// compresses.
func NewCodecWithThreshold(threshold int) Codec {
	return &snappyCodec{threshold: threshold}
}

func (s *snappyCodec) Encode(message types.Message) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed marshalling message %d: %w", message.RequestID, err)
	}

	if len(data) < s.threshold {
		return append([]byte{plainFrame}, data...), nil
	}
	return append([]byte{snappyFrame}, snappy.Encode(nil, data)...), nil
}

func (s *snappyCodec) Decode(frame []byte) (types.Message, error) {
	var message types.Message
	if len(frame) == 0 {
		return message, errEmptyFrame
	}

	data := frame[1:]
	switch frame[0] {
	case plainFrame:
	case snappyFrame:
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return message, fmt.Errorf("failed decompressing frame: %w", err)
		}
		data = decoded
	default:
		return message, fmt.Errorf("unknown frame type %#x", frame[0])
	}

	if err := json.Unmarshal(data, &message); err != nil {
		return message, fmt.Errorf("failed unmarshalling message: %w", err)
	}
	return message, nil
}
