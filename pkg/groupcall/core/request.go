package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jabolina/go-groupcall/pkg/groupcall/definition"
	"github.com/jabolina/go-groupcall/pkg/groupcall/helper"
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

// Correlator is the dispatcher a request is bound to.
// The correlator routes the replies for the request back
// into ReceiveResponse using the request identifier.
type Correlator interface {
	// Send registers the request, so replies can be routed
	// back, and transmits the request message. If the transmission
	// fails the registration must be undone.
	Send(request *PendingRequest) error

	// Done is called exactly once, when the request finishes,
	// so the correlator stops routing replies to it.
	Done(id uint64)
}

// Listener is called once the request completes.
type Listener func(future Future)

// Future is the non blocking view of a request.
type Future interface {
	// Verify if the request already finished. Lock free.
	IsDone() bool

	// Verify if the request finished, either by completion,
	// timeout or cancellation.
	IsCancelled() bool

	// Cancel the request. Returns `true` only for the call
	// that finished the request.
	Cancel() bool

	// Register the listener to be called once the request
	// completes. If the request is already done, the listener
	// is called before returning.
	SetListener(listener Listener) Future

	// Block until the replies satisfy the request, the request
	// is done or the context is done.
	Get(ctx context.Context) (types.RspList, error)
}

// Configuration for creating a new request.
type RequestConfiguration struct {
	// The message to be sent.
	Message types.Message

	// Where to dispatch the request. May be nil, in this
	// case the request can never be executed.
	Correlator Correlator

	// How the request waits for replies.
	Options types.RequestOptions

	// Sequence used to identify the request. If nil, the
	// process wide helper.RequestSequence is used.
	Sequence *helper.Sequence

	// Request logger. If nil, the default logger is used.
	Logger types.Logger
}

// PendingRequest is a request waiting for the replies of one or
// more members.
//
// All state is guarded by a single mutex, replies, view changes
// and cancellation can arrive from any goroutine. The request is
// done exactly once, and whichever goroutine finishes it is the one
// notifying the correlator and calling the listener.
type PendingRequest struct {
	// Unique request identifier, correlation key.
	id uint64

	// Guards every mutable field below.
	mutex *sync.Mutex

	// Broadcast when the replies may satisfy the request
	// or when the request is done.
	completed *helper.Condition

	// The request message to be sent.
	message types.Message

	// Where to dispatch the request.
	correlator Correlator

	// How to wait for replies. Shared with the collector.
	options *types.RequestOptions

	// Aggregation strategy for the replies.
	collector Collector

	// If Execute should wait for the replies.
	blockForResults bool

	// Raised once the request is finished.
	done helper.Flag

	// Raised by the first Execute, a request is sent once.
	executed helper.Flag

	// Finishes a request not blocking for results once the
	// timeout expires. Guarded by mutex.
	expiry *time.Timer

	// Called once the request completes.
	listener Listener

	log types.Logger
}

// Creates a request whose reply aggregation is defined by
// the given collector. The collector must share the options
// pointer with the request.
func newPendingRequest(configuration RequestConfiguration, options *types.RequestOptions, collector Collector) *PendingRequest {
	sequence := configuration.Sequence
	if sequence == nil {
		sequence = helper.RequestSequence
	}

	logger := configuration.Logger
	if logger == nil {
		logger = definition.NewDefaultLogger()
	}

	mutex := &sync.Mutex{}
	r := &PendingRequest{
		id:              sequence.Next(),
		mutex:           mutex,
		completed:       helper.NewCondition(mutex),
		message:         configuration.Message,
		correlator:      configuration.Correlator,
		options:         options,
		collector:       collector,
		blockForResults: true,
		log:             logger,
	}
	r.message.RequestID = r.id
	r.message.Destination = collector.Destinations()
	r.message.ExpectReply = options.Mode != types.GetNone
	return r
}

// Creates a request targeting a single member.
func NewUnicastRequest(configuration RequestConfiguration, target types.Address) *PendingRequest {
	options := configuration.Options
	return newPendingRequest(configuration, &options, newUnicastCollector(target, &options))
}

// Creates a request targeting a group of members.
func NewGroupRequest(configuration RequestConfiguration, members []types.Address) *PendingRequest {
	options := configuration.Options
	return newPendingRequest(configuration, &options, newGroupCollector(members, &options))
}

// The request identifier.
func (r *PendingRequest) ID() uint64 {
	return r.id
}

// The message that is sent by the request.
func (r *PendingRequest) Message() types.Message {
	return r.message
}

// Members the request is waiting for.
func (r *PendingRequest) Destinations() []types.Address {
	return r.collector.Destinations()
}

// The options used by the request.
func (r *PendingRequest) Options() types.RequestOptions {
	return *r.options
}

// Must be set before calling Execute.
func (r *PendingRequest) SetResponseFilter(filter types.ResponseFilter) {
	r.options.Filter = filter
}

func (r *PendingRequest) BlockForResults() bool {
	return r.blockForResults
}

// Must be set before calling Execute.
func (r *PendingRequest) SetBlockForResults(value bool) {
	r.blockForResults = value
}

// Execute the request without a bound on the caller side
// other than the configured timeout.
func (r *PendingRequest) Execute() (bool, error) {
	return r.ExecuteContext(context.Background())
}

// ExecuteContext sends the request and, unless configured as fire and
// forget, waits for the replies.
//
// Returns `true` if the replies satisfied the request before the timeout.
// If the context is done while waiting the request is cancelled and the
// context error is returned. A request already executed or already
// finished is not sent again and ErrRequestFinished is returned.
func (r *PendingRequest) ExecuteContext(ctx context.Context) (bool, error) {
	if r.correlator == nil {
		r.log.Errorf("request %d has no correlator, cannot send", r.id)
		return false, types.ErrNoCorrelator
	}

	if r.done.IsRaised() || !r.executed.Raise() {
		return r.ResponsesComplete(), types.ErrRequestFinished
	}

	if err := r.correlator.Send(r); err != nil {
		return false, err
	}

	if r.options.Mode == types.GetNone {
		r.mutex.Lock()
		c := r.markDone()
		r.mutex.Unlock()
		r.finish(c)
		return true, nil
	}

	if !r.blockForResults {
		// Replies may have arrived before the registration returned.
		r.mutex.Lock()
		c := r.checkCompletion()
		if c == nil && !r.done.IsRaised() && r.options.Timeout > 0 {
			r.expiry = time.AfterFunc(r.options.Timeout, r.expire)
		}
		r.mutex.Unlock()
		r.finish(c)
		return true, nil
	}

	r.mutex.Lock()
	ok, err := r.waitForCompletion(ctx, r.options.Timeout)
	c := r.markDone()
	r.mutex.Unlock()
	r.finish(c)

	if !ok && err == nil {
		r.log.Debugf("request %d finished without responses, %s", r.id, r.options)
	}
	return ok, err
}

// Waits until the replies satisfy the request, the timeout expires
// or the request is done by someone else.
// This method runs with the lock held.
func (r *PendingRequest) waitForCompletion(ctx context.Context, timeout time.Duration) (bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for !r.done.IsRaised() {
		if r.collector.Complete() {
			return true, nil
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}

		if err := ctx.Err(); err != nil {
			return r.collector.Complete(), err
		}

		// Woken by broadcast, deadline or context, always verify again.
		r.completed.WaitUntil(ctx, deadline)
	}
	return r.collector.Complete(), nil
}

// ReceiveResponse is called by the correlator when a reply
// for this request arrives.
func (r *PendingRequest) ReceiveResponse(value interface{}, sender types.Address, isException bool) {
	r.apply(func() {
		r.collector.Receive(value, sender, isException)
	})
}

// ViewChange is called when a new view is installed. Members
// that left are not waited anymore.
func (r *PendingRequest) ViewChange(view types.View) {
	r.apply(func() {
		r.collector.ViewChange(view)
	})
}

// Suspect is called when the member is suspected to have crashed.
func (r *PendingRequest) Suspect(member types.Address) {
	r.apply(func() {
		r.collector.Suspect(member)
	})
}

// SiteUnreachable is called when a whole site is not reachable.
func (r *PendingRequest) SiteUnreachable(site string) {
	r.apply(func() {
		r.collector.SiteUnreachable(site)
	})
}

// Apply the change to the aggregation state and verify
// if the request is now completed.
func (r *PendingRequest) apply(change func()) {
	r.mutex.Lock()
	if r.done.IsRaised() {
		r.mutex.Unlock()
		return
	}
	change()
	c := r.checkCompletion()
	r.mutex.Unlock()
	r.finish(c)
}

// Verify the replies under the lock.
func (r *PendingRequest) ResponsesComplete() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.collector.Complete()
}

// Results returns a snapshot of the replies.
func (r *PendingRequest) Results() types.RspList {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.collector.Results()
}

// Implements the Future interface.
func (r *PendingRequest) Cancel() bool {
	r.mutex.Lock()
	c := r.markDone()
	r.mutex.Unlock()
	if c == nil {
		return false
	}
	r.log.Debugf("request %d cancelled", r.id)
	r.finish(c)
	return true
}

// Implements the Future interface.
func (r *PendingRequest) IsCancelled() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.done.IsRaised()
}

// Implements the Future interface.
func (r *PendingRequest) IsDone() bool {
	return r.done.IsRaised()
}

// Implements the Future interface.
func (r *PendingRequest) SetListener(listener Listener) Future {
	r.mutex.Lock()
	r.listener = listener
	done := r.done.IsRaised()
	r.mutex.Unlock()

	if done && listener != nil {
		listener(r)
	}
	return r
}

// The timeout of a request not blocking for results expired.
func (r *PendingRequest) expire() {
	r.mutex.Lock()
	c := r.markDone()
	r.mutex.Unlock()
	if c != nil {
		r.log.Debugf("request %d expired, %s", r.id, r.options)
	}
	r.finish(c)
}

// Implements the Future interface. The context only bounds this
// wait, the request keeps waiting for replies until its own timeout
// or until cancelled.
func (r *PendingRequest) Get(ctx context.Context) (types.RspList, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for !r.collector.Complete() && !r.done.IsRaised() {
		if err := ctx.Err(); err != nil {
			return r.collector.Results(), err
		}
		r.completed.WaitUntil(ctx, time.Time{})
	}

	if !r.collector.Complete() {
		return r.collector.Results(), types.ErrNotComplete
	}
	return r.collector.Results(), nil
}

func (r *PendingRequest) String() string {
	return fmt.Sprintf("request id=%d, %s, dests=%v", r.id, r.options, r.collector.Destinations())
}

// What must be done after a request is finished, outside the lock.
type completion struct {
	listener Listener
}

// If the replies satisfy the request, finish it.
// Must be called with the lock held.
func (r *PendingRequest) checkCompletion() *completion {
	if !r.collector.Complete() {
		return nil
	}
	return r.markDone()
}

// Finish the request and wake every waiter. Returns nil if the
// request was already done, so only one caller ever gets to
// notify the correlator and the listener.
// Must be called with the lock held.
func (r *PendingRequest) markDone() *completion {
	if !r.done.Raise() {
		return nil
	}
	if r.expiry != nil {
		r.expiry.Stop()
	}
	r.completed.Broadcast()
	return &completion{listener: r.listener}
}

// Release the correlator registration and notify the listener.
// Called without holding the lock.
func (r *PendingRequest) finish(c *completion) {
	if c == nil {
		return
	}

	if r.correlator != nil {
		r.correlator.Done(r.id)
	}

	if c.listener != nil {
		c.listener(r)
	}
}
