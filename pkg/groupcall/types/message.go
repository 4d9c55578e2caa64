package types

// Defines the latest protocol version.
const LatestProtocolVersion = 0

// Simple uint8 for defining the kind of message is transported.
type MessageType uint8

const (
	// A request issued by a member, waiting for replies.
	RequestMessage MessageType = iota

	// A successful reply for a request.
	ReplyMessage

	// A reply carrying the failure the member had while
	// handling the request.
	ExceptionMessage
)

func (t MessageType) String() string {
	switch t {
	case RequestMessage:
		return "REQUEST"
	case ReplyMessage:
		return "REPLY"
	case ExceptionMessage:
		return "EXCEPTION"
	default:
		return "UNKNOWN"
	}
}

// Header transported on every message.
type ProtocolHeader struct {
	// Transport the configured version at which the protocol
	// will work, any increments in version must be described
	// and what have changed.
	ProtocolVersion uint

	// Information about the kind of message.
	Type MessageType
}

// Message exchanged between the members.
// Requests and replies use the same structure, a reply carries
// the same RequestID as the request that originated it.
type Message struct {
	// Protocol version and message type.
	Header ProtocolHeader

	// Identifier used to correlate replies with the request.
	RequestID uint64

	// Who sent the message.
	From Address

	// Members that will receive the message. An empty
	// destination means the whole group.
	Destination []Address

	// If the receiver must reply to this message.
	ExpectReply bool

	// Opaque content for the application.
	Payload []byte
}

// Extract the message header.
func (m *Message) Extract() ProtocolHeader {
	return m.Header
}

// Verify if the message is addressed to the given member.
func (m Message) IsFor(member Address) bool {
	if len(m.Destination) == 0 {
		return true
	}
	for _, d := range m.Destination {
		if d == member {
			return true
		}
	}
	return false
}

// Creates the reply for this message, sent by the given member.
// If failure is not nil the reply carries the failure instead.
func (m Message) Reply(from Address, payload []byte, failure error) Message {
	reply := Message{
		Header: ProtocolHeader{
			ProtocolVersion: m.Header.ProtocolVersion,
			Type:            ReplyMessage,
		},
		RequestID:   m.RequestID,
		From:        from,
		Destination: []Address{m.From},
		Payload:     payload,
	}
	if failure != nil {
		reply.Header.Type = ExceptionMessage
		reply.Payload = []byte(failure.Error())
	}
	return reply
}
