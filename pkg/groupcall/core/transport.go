package core

import (
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

// The transport interface providing the communication
// primitives used by the correlator.
type Transport interface {
	// Send the message to every member in the message destination,
	// an empty destination means the whole group. The transport
	// does not need to be reliable, a request that never gets a
	// reply is resolved by timeout or by suspicion.
	Send(message types.Message) error

	// Listen for messages that arrives on the transport.
	Listen() <-chan types.Message

	// Close the transport for sending and receiving messages.
	Close() error
}
