package types

import (
	"errors"
	"fmt"
)

var (
	// Execute was called on a request without a correlator bound.
	ErrNoCorrelator = errors.New("request has no correlator, cannot send")

	// The correlator was already closed and cannot send requests.
	ErrCorrelatorClosed = errors.New("correlator is closed")

	// The transport was already closed.
	ErrTransportClosed = errors.New("transport is closed")

	// Tried to schedule a job on a stopped scheduler.
	ErrSchedulerStopped = errors.New("scheduler is already stopped")

	// No reply was received during the configured timeout.
	ErrTimeout = errors.New("timed out waiting for response")

	// The target member was suspected before replying.
	ErrSuspected = errors.New("member suspected before replying")

	// The site of the target member became unreachable before replying.
	ErrUnreachable = errors.New("member site unreachable before replying")

	// The request finished without the required replies.
	ErrNotComplete = errors.New("request finished without the required responses")

	// Execute was called on a request that was already executed,
	// cancelled or finished. A request is sent at most once.
	ErrRequestFinished = errors.New("request already executed or finished")

	// The request has no member to send to.
	ErrNoDestination = errors.New("no destination for request")
)

// RemoteError is the failure a member reported back
// while handling a request.
type RemoteError struct {
	// Member which failed handling the request.
	Sender Address

	// The failure description sent by the member.
	Message string
}

func NewRemoteError(sender Address, message string) *RemoteError {
	return &RemoteError{Sender: sender, Message: message}
}

func (r *RemoteError) Error() string {
	return fmt.Sprintf("remote failure at %s: %s", r.Sender, r.Message)
}
