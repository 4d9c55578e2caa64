package core

import (
	"context"
	"sync"
	"time"

	"github.com/jabolina/go-groupcall/pkg/groupcall/definition"
	"github.com/jabolina/go-groupcall/pkg/groupcall/helper"
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
	"github.com/jabolina/relt/pkg/relt"
)

// Used when the configuration does not define a timeout.
const DefaultActionTimeout = 5 * time.Second

// Configuration for the reliable transport.
type ReliableConfiguration struct {
	// The group name, every member of the group
	// publishes and consumes from the same exchange.
	Group string

	// The member using the transport.
	Address types.Address

	// Timeout when applying async actions.
	Timeout time.Duration

	// AMQP broker URL. If empty the relt default is used.
	URL string

	// Parent context for the transport lifetime.
	Ctx context.Context
}

// An instance of the Transport interface that uses relt
// to broadcast every message to the group, members drop
// the messages that are not addressed to them.
type ReliableTransport struct {
	// Transport logger.
	log types.Logger

	// Reliable transport.
	relt *relt.Relt

	codec Codec

	// The member using the transport.
	address types.Address

	// The group address.
	group relt.GroupAddress

	// Channel to publish the receiving messages.
	producer chan types.Message

	// The transport context.
	context context.Context

	// The finish function to closing the transport.
	finish context.CancelFunc

	// Timeout when applying async actions.
	timeout time.Duration

	// Controls the polling routine.
	invoker helper.Invoker

	// Raised once closed, relt panics when broadcasting
	// after it is closed. Guarded by mutex on writes.
	closed helper.Flag

	// Sends hold the read lock, closing holds the write lock.
	mutex *sync.RWMutex
}

// Create a new instance of the reliable transport.
func NewReliableTransport(configuration ReliableConfiguration, log types.Logger) (Transport, error) {
	if configuration.Timeout <= 0 {
		configuration.Timeout = DefaultActionTimeout
	}

	if log == nil {
		log = definition.NewDefaultLogger()
	}

	conf := relt.DefaultReltConfiguration()
	conf.Name = configuration.Address.String()
	conf.Exchange = relt.GroupAddress(configuration.Group)
	if configuration.URL != "" {
		conf.Url = configuration.URL
	}
	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, err
	}

	parent := configuration.Ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, done := context.WithCancel(parent)
	t := &ReliableTransport{
		log:      log,
		relt:     r,
		codec:    NewCodec(),
		address:  configuration.Address,
		group:    relt.GroupAddress(configuration.Group),
		producer: make(chan types.Message),
		context:  ctx,
		finish:   done,
		timeout:  configuration.Timeout,
		invoker:  helper.NewInvoker(),
		mutex:    &sync.RWMutex{},
	}
	t.invoker.Spawn(t.poll)
	return t, nil
}

// ReliableTransport implements Transport interface.
func (r *ReliableTransport) Send(message types.Message) error {
	data, err := r.codec.Encode(message)
	if err != nil {
		r.log.Errorf("failed encoding message %d. %v", message.RequestID, err)
		return err
	}

	m := relt.Send{
		Address: r.group,
		Data:    data,
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if r.closed.IsRaised() {
		return types.ErrTransportClosed
	}

	if err := r.relt.Broadcast(m); err != nil {
		r.log.Errorf("reliable failed sending %d. %v", message.RequestID, err)
		return err
	}
	return nil
}

// ReliableTransport implements Transport interface.
func (r *ReliableTransport) Listen() <-chan types.Message {
	return r.producer
}

// ReliableTransport implements Transport interface.
func (r *ReliableTransport) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if !r.closed.Raise() {
		return nil
	}
	r.finish()
	r.invoker.Stop()
	r.relt.Close()
	return nil
}

// This method will keep polling until the transport context
// is cancelled. The messages that arrives through the underlying
// transport channel will be decoded and published to the listener.
func (r *ReliableTransport) poll() {
	listener := r.relt.Consume()
	for {
		select {
		case <-r.context.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			r.consume(recv.Data, recv.Error)
		}
	}
}

// Consume will receive a frame from the transport and will
// decode into a message to be consumed by the listener.
// Messages addressed to other members are discarded.
func (r *ReliableTransport) consume(data []byte, err error) {
	if err != nil {
		r.log.Errorf("failed consuming message at %s. %v", r.address, err)
		return
	}

	if data == nil {
		r.log.Warnf("received empty message at %s", r.address)
		return
	}

	m, err := r.codec.Decode(data)
	if err != nil {
		r.log.Errorf("failed decoding message at %s. %v", r.address, err)
		return
	}

	if !m.IsFor(r.address) {
		return
	}

	ctx, cancel := context.WithTimeout(r.context, r.timeout)
	defer cancel()
	select {
	case <-ctx.Done():
		r.log.Warnf("%s took to long consuming %d", r.address, m.RequestID)
	case r.producer <- m:
	}
}
