package types

import (
	"fmt"
	"time"
)

// ResponseMode defines how many replies a request must
// receive before it is considered complete.
type ResponseMode uint8

const (
	// Do not wait for any reply, fire and forget.
	GetNone ResponseMode = iota

	// Wait for the first acceptable reply.
	GetOne

	// Wait for a reply from every destination.
	GetAll

	// Wait for the majority of destinations to reply.
	GetMajority
)

func (m ResponseMode) String() string {
	switch m {
	case GetNone:
		return "GET_NONE"
	case GetOne:
		return "GET_ONE"
	case GetAll:
		return "GET_ALL"
	case GetMajority:
		return "GET_MAJORITY"
	default:
		return fmt.Sprintf("MODE(%d)", uint8(m))
	}
}

// ResponseFilter can be provided by the client to decide which
// replies are accepted and when to stop waiting.
//
// Both methods are called while holding the request lock,
// they must not block and must not call back into the request.
type ResponseFilter interface {
	// Verify if the reply received from the sender counts
	// as a valid response.
	IsAcceptable(response interface{}, sender Address) bool

	// Returns false once enough replies were received. After
	// returning false once it must keep returning false.
	NeedMoreResponses() bool
}

// Configuration used when issuing a single request.
type RequestOptions struct {
	// How many replies the request waits for.
	Mode ResponseMode

	// How long to wait for the replies. A value of zero or
	// less means the request waits forever.
	Timeout time.Duration

	// Optional filter for the received replies.
	Filter ResponseFilter
}

// Creates options for the given mode and timeout.
func NewRequestOptions(mode ResponseMode, timeout time.Duration) RequestOptions {
	return RequestOptions{Mode: mode, Timeout: timeout}
}

// Options for a synchronous request waiting for all replies.
func SyncOptions(timeout time.Duration) RequestOptions {
	return NewRequestOptions(GetAll, timeout)
}

// Options for an asynchronous request that does not wait for replies.
func AsyncOptions() RequestOptions {
	return NewRequestOptions(GetNone, 0)
}

// Returns a copy of the options using the given filter.
func (o RequestOptions) WithFilter(filter ResponseFilter) RequestOptions {
	o.Filter = filter
	return o
}

func (o RequestOptions) String() string {
	return fmt.Sprintf("mode=%s, timeout=%s", o.Mode, o.Timeout)
}
