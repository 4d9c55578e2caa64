package core

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ReneKroon/ttlcache"
	"github.com/jabolina/go-groupcall/pkg/groupcall/concurrent"
	"github.com/jabolina/go-groupcall/pkg/groupcall/helper"
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
	"github.com/wangjia184/sortedset"
)

// RequestHandler answers the requests received by a member. The
// returned payload is sent back to the requester, a returned error
// is sent back as an exception reply.
type RequestHandler func(message types.Message) ([]byte, error)

// RequestCorrelator keeps the requests waiting for replies and
// routes every reply to the request with the same identifier.
//
// Pending requests are kept in a sorted set scored by the request
// identifier, so they are always visited in the order they were
// created. Finished identifiers are remembered for a while, a reply
// for one of them is late and is discarded quietly.
//
// The correlator never holds its lock while calling into a request.
type RequestCorrelator struct {
	// Synchronization for the pending requests and the view.
	mutex *sync.Mutex

	configuration *Configuration

	// Transport used to send requests and replies.
	transport Transport

	// Answers requests received from other members.
	handler RequestHandler

	// Requests waiting for replies, keyed by identifier.
	pending *sortedset.SortedSet

	// Identifiers of finished requests.
	finished *ttlcache.Cache

	// Set once the finished cache is closed. Guarded by mutex.
	released bool

	// Last installed view.
	view types.View

	metrics *correlatorMetrics

	// Tracks silent members, nil when detection is disabled.
	detector *concurrent.Detector

	// Used to spawn and control all go routines.
	invoker helper.Invoker

	// Raised once the correlator is closed.
	closed helper.Flag

	// The correlator cancellable context.
	ctx context.Context

	// Stops the polling.
	cancel context.CancelFunc

	log types.Logger
}

// Creates a new correlator and start polling the transport.
func NewRequestCorrelator(configuration *Configuration, transport Transport, handler RequestHandler) (*RequestCorrelator, error) {
	if err := configuration.validate(); err != nil {
		return nil, err
	}

	metrics, err := newCorrelatorMetrics(configuration)
	if err != nil {
		return nil, fmt.Errorf("failed registering metrics: %w", err)
	}

	finished := ttlcache.NewCache()
	finished.SetTTL(configuration.FinishedTTL)

	ctx, cancel := context.WithCancel(context.Background())
	c := &RequestCorrelator{
		mutex:         &sync.Mutex{},
		configuration: configuration,
		transport:     transport,
		handler:       handler,
		pending:       sortedset.New(),
		finished:      finished,
		metrics:       metrics,
		invoker:       helper.NewInvoker(),
		ctx:           ctx,
		cancel:        cancel,
		log:           configuration.Logger,
	}
	if configuration.SuspectAfter > 0 {
		c.detector = concurrent.NewDetector(configuration.SuspectAfter)
		c.invoker.Spawn(c.monitor)
	}
	c.invoker.Spawn(c.poll)
	return c, nil
}

func key(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// RequestCorrelator implements the Correlator interface.
func (c *RequestCorrelator) Send(request *PendingRequest) error {
	message := request.Message()
	message.From = c.configuration.Address
	message.Header = types.ProtocolHeader{
		ProtocolVersion: c.configuration.Version,
		Type:            types.RequestMessage,
	}

	c.mutex.Lock()
	if c.closed.IsRaised() {
		c.mutex.Unlock()
		return types.ErrCorrelatorClosed
	}

	// Requests without replies are never registered.
	if message.ExpectReply {
		if c.pending.GetByKey(key(request.ID())) != nil {
			c.mutex.Unlock()
			return types.ErrRequestFinished
		}
		c.pending.AddOrUpdate(key(request.ID()), sortedset.SCORE(request.ID()), request)
		c.metrics.pending.Inc()

		// Finished before the registration, Done already ran and
		// found nothing to release. If it finishes after this check
		// Done runs afterwards and releases it.
		if request.IsDone() {
			c.removeLocked(request.ID())
			c.mutex.Unlock()
			c.log.Debugf("request %d finished before sending", request.ID())
			return nil
		}
	}
	c.mutex.Unlock()

	c.metrics.requests.WithLabelValues(request.Options().Mode.String()).Inc()
	if err := c.transport.Send(message); err != nil {
		if message.ExpectReply {
			c.unregister(request.ID())
		}
		c.metrics.failures.Inc()
		c.log.Errorf("failed sending request %d. %v", request.ID(), err)
		return err
	}
	c.log.Debugf("sent %s", request)
	return nil
}

// RequestCorrelator implements the Correlator interface.
func (c *RequestCorrelator) Done(id uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.removeLocked(id) {
		return
	}

	if !c.released {
		c.finished.Set(key(id), true)
	}
}

// Remove the request without remembering it as finished,
// used when the request was never sent.
func (c *RequestCorrelator) unregister(id uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.removeLocked(id)
}

func (c *RequestCorrelator) removeLocked(id uint64) bool {
	if c.pending.Remove(key(id)) == nil {
		return false
	}
	c.metrics.pending.Dec()
	return true
}

// Identifiers of the requests waiting for replies, oldest first.
func (c *RequestCorrelator) Pending() []uint64 {
	var ids []uint64
	for _, request := range c.snapshot() {
		ids = append(ids, request.ID())
	}
	return ids
}

// Verify if the request with the given identifier finished recently.
func (c *RequestCorrelator) Finished(id uint64) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.released {
		return false
	}
	_, ok := c.finished.Get(key(id))
	return ok
}

// The last installed view.
func (c *RequestCorrelator) View() types.View {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.view
}

// Install the new view, every pending request is notified.
func (c *RequestCorrelator) ViewChange(view types.View) {
	c.mutex.Lock()
	c.view = view
	c.mutex.Unlock()

	c.log.Debugf("%s installed view %s", c.configuration.Address, view)
	if c.detector != nil {
		var others []types.Address
		for _, member := range view.Members {
			if member != c.configuration.Address {
				others = append(others, member)
			}
		}
		c.detector.Track(others)
	}
	for _, request := range c.snapshot() {
		request.ViewChange(view)
	}
}

// Notify every pending request that the member is suspected.
func (c *RequestCorrelator) Suspect(member types.Address) {
	c.log.Debugf("%s suspecting %s", c.configuration.Address, member)
	for _, request := range c.snapshot() {
		request.Suspect(member)
	}
}

// Notify every pending request that the site is unreachable.
func (c *RequestCorrelator) SiteUnreachable(site string) {
	c.log.Debugf("%s site %s unreachable", c.configuration.Address, site)
	for _, request := range c.snapshot() {
		request.SiteUnreachable(site)
	}
}

// Copy of the pending requests, oldest first.
func (c *RequestCorrelator) snapshot() []*PendingRequest {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.pending.GetCount() == 0 {
		return nil
	}
	nodes := c.pending.GetByRankRange(1, -1, false)
	requests := make([]*PendingRequest, 0, len(nodes))
	for _, node := range nodes {
		requests = append(requests, node.Value.(*PendingRequest))
	}
	return requests
}

// Close the correlator. Requests still pending are cancelled,
// so no caller is left waiting forever. The transport is not
// closed, it belongs to whoever created it.
func (c *RequestCorrelator) Close() error {
	c.mutex.Lock()
	if !c.closed.Raise() {
		c.mutex.Unlock()
		return nil
	}
	c.mutex.Unlock()

	c.cancel()
	c.invoker.Stop()
	for _, request := range c.snapshot() {
		request.Cancel()
	}

	c.mutex.Lock()
	c.released = true
	c.mutex.Unlock()
	c.finished.Close()

	if c.configuration.Registerer != nil {
		c.metrics.unregister(c.configuration.Registerer)
	}
	return nil
}

// This method will keep polling as long as the correlator
// is active, processing the messages from the transport.
func (c *RequestCorrelator) poll() {
	defer c.log.Debugf("closing the correlator %s", c.configuration.Address)
	listener := c.transport.Listen()
	for {
		select {
		case <-c.ctx.Done():
			return
		case m, ok := <-listener:
			if !ok {
				return
			}
			c.process(m)
		}
	}
}

// Keep suspecting the members that are silent for too long,
// so requests created after the first suspicion also give up
// waiting for them.
func (c *RequestCorrelator) monitor() {
	interval := c.configuration.SuspectAfter / 2
	if interval < time.Millisecond {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			for _, member := range c.detector.Expired() {
				c.Suspect(member)
			}
		}
	}
}

// Start processing the received message. First verify if the current
// configured member can handle this message version.
func (c *RequestCorrelator) process(message types.Message) {
	header := message.Extract()
	if header.ProtocolVersion != c.configuration.Version {
		c.log.Warnf("%s not processing message %d on version %d", c.configuration.Address, message.RequestID, header.ProtocolVersion)
		return
	}

	if c.detector != nil {
		c.detector.Happened(message.From)
	}

	switch header.Type {
	case types.RequestMessage:
		c.invoker.Spawn(func() {
			c.handle(message)
		})
	case types.ReplyMessage, types.ExceptionMessage:
		c.route(message)
	default:
		c.log.Warnf("%s received unknown message type %d", c.configuration.Address, header.Type)
	}
}

// Answer a request received from another member.
func (c *RequestCorrelator) handle(message types.Message) {
	payload, err := c.invoke(message)
	if !message.ExpectReply {
		if err != nil {
			c.log.Warnf("failed handling request %d from %s. %v", message.RequestID, message.From, err)
		}
		return
	}

	reply := message.Reply(c.configuration.Address, payload, err)
	if err := c.transport.Send(reply); err != nil {
		c.log.Errorf("failed replying %d to %s. %v", message.RequestID, message.From, err)
	}
}

// Call the handler, a panic is transformed into a failure.
func (c *RequestCorrelator) invoke(message types.Message) (payload []byte, err error) {
	if c.handler == nil {
		return nil, fmt.Errorf("member %s has no request handler", c.configuration.Address)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler(message)
}

// Route the reply to the pending request.
func (c *RequestCorrelator) route(message types.Message) {
	id := key(message.RequestID)
	c.mutex.Lock()
	node := c.pending.GetByKey(id)
	late := false
	if node == nil && !c.released {
		_, late = c.finished.Get(id)
	}
	c.mutex.Unlock()

	if node == nil {
		if late {
			c.metrics.replies.WithLabelValues(routeLate).Inc()
			c.log.Debugf("discarding late reply %d from %s", message.RequestID, message.From)
			return
		}
		c.metrics.replies.WithLabelValues(routeUnknown).Inc()
		c.log.Warnf("reply %d from %s has no request", message.RequestID, message.From)
		return
	}

	c.metrics.replies.WithLabelValues(routeDelivered).Inc()
	request := node.Value.(*PendingRequest)
	isException := message.Header.Type == types.ExceptionMessage
	request.ReceiveResponse(message.Payload, message.From, isException)
}
