package core

import (
	"bytes"
	"testing"

	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

func codecMessage(payload []byte) types.Message {
	return types.Message{
		Header: types.ProtocolHeader{
			ProtocolVersion: types.LatestProtocolVersion,
			Type:            types.RequestMessage,
		},
		RequestID:   42,
		From:        types.NewSiteAddress("a", "nyc"),
		Destination: []types.Address{types.NewAddress("b"), types.NewAddress("c")},
		ExpectReply: true,
		Payload:     payload,
	}
}

func verifyDecoded(t *testing.T, expected, found types.Message) {
	if found.RequestID != expected.RequestID || found.From != expected.From {
		t.Errorf("wrong identification, found %d from %s", found.RequestID, found.From)
	}

	if found.Header != expected.Header || found.ExpectReply != expected.ExpectReply {
		t.Errorf("wrong header %#v", found.Header)
	}

	if len(found.Destination) != len(expected.Destination) {
		t.Fatalf("wrong destination %v", found.Destination)
	}

	if !bytes.Equal(found.Payload, expected.Payload) {
		t.Errorf("payload differs")
	}
}

func TestCodec_PlainFrame(t *testing.T) {
	codec := NewCodec()
	message := codecMessage([]byte("small"))
	data, err := codec.Encode(message)
	if err != nil {
		t.Fatalf("failed encoding. %v", err)
	}

	if data[0] != plainFrame {
		t.Fatalf("small message should not be compressed")
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("failed decoding. %v", err)
	}
	verifyDecoded(t, message, decoded)
}

func TestCodec_CompressedFrame(t *testing.T) {
	codec := NewCodec()
	message := codecMessage(bytes.Repeat([]byte("groupcall"), 1024))
	data, err := codec.Encode(message)
	if err != nil {
		t.Fatalf("failed encoding. %v", err)
	}

	if data[0] != snappyFrame {
		t.Fatalf("large message should be compressed")
	}

	if len(data) >= len(message.Payload) {
		t.Errorf("compressed frame with %d bytes is not smaller", len(data))
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("failed decoding. %v", err)
	}
	verifyDecoded(t, message, decoded)
}

func TestCodec_AlwaysCompress(t *testing.T) {
	codec := NewCodecWithThreshold(0)
	message := codecMessage(nil)
	data, err := codec.Encode(message)
	if err != nil {
		t.Fatalf("failed encoding. %v", err)
	}

	if data[0] != snappyFrame {
		t.Fatalf("should always compress")
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("failed decoding. %v", err)
	}
	verifyDecoded(t, message, decoded)
}

func TestCodec_InvalidFrames(t *testing.T) {
	codec := NewCodec()
	frames := map[string][]byte{
		"empty":      nil,
		"unknown":    {0x7, '{', '}'},
		"bad-snappy": {snappyFrame, 0xff, 0xff, 0xff},
		"bad-json":   {plainFrame, '{'},
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			if _, err := codec.Decode(frame); err == nil {
				t.Fatalf("frame should be rejected")
			}
		})
	}
}
