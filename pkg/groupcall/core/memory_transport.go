package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jabolina/go-groupcall/pkg/groupcall/concurrent"
	"github.com/jabolina/go-groupcall/pkg/groupcall/definition"
	"github.com/jabolina/go-groupcall/pkg/groupcall/helper"
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

// MemoryNetwork connects transports living in the same process.
// Messages still go through the codec, so what is delivered is
// a copy of what was sent. Members can be dropped from the network
// to simulate a crash, messages from and to them are discarded.
type MemoryNetwork struct {
	// Synchronize the membership.
	mutex *sync.Mutex

	// Transports that joined the network.
	members map[types.Address]*MemoryTransport

	// Members whose messages are discarded.
	dropped map[types.Address]bool

	codec Codec

	log types.Logger
}

func NewMemoryNetwork(log types.Logger) *MemoryNetwork {
	if log == nil {
		log = definition.NewDefaultLogger()
	}
	return &MemoryNetwork{
		mutex:   &sync.Mutex{},
		members: make(map[types.Address]*MemoryTransport),
		dropped: make(map[types.Address]bool),
		codec:   NewCodec(),
		log:     log,
	}
}

// Join creates the transport for the member.
func (n *MemoryNetwork) Join(address types.Address) (*MemoryTransport, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if _, ok := n.members[address]; ok {
		return nil, fmt.Errorf("member %s already joined", address)
	}

	t := &MemoryTransport{
		network:   n,
		address:   address,
		producer:  make(chan types.Message),
		scheduler: concurrent.NewScheduler(),
	}
	n.members[address] = t
	return t, nil
}

// Drop every message from and to the member.
func (n *MemoryNetwork) Drop(address types.Address) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.dropped[address] = true
}

// Restore the communication with the member.
func (n *MemoryNetwork) Restore(address types.Address) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	delete(n.dropped, address)
}

// Members currently on the network, sorted by name.
func (n *MemoryNetwork) Members() []types.Address {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	members := make([]types.Address, 0, len(n.members))
	for address := range n.members {
		members = append(members, address)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].String() < members[j].String()
	})
	return members
}

func (n *MemoryNetwork) leave(address types.Address) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	delete(n.members, address)
}

// Resolve who receives the message from the given member.
func (n *MemoryNetwork) route(from types.Address, destination []types.Address) []*MemoryTransport {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.dropped[from] {
		return nil
	}

	var targets []*MemoryTransport
	if len(destination) == 0 {
		for address, t := range n.members {
			if !n.dropped[address] {
				targets = append(targets, t)
			}
		}
		return targets
	}

	for _, address := range destination {
		t, ok := n.members[address]
		if !ok || n.dropped[address] {
			continue
		}
		targets = append(targets, t)
	}
	return targets
}

// MemoryTransport is a Transport delivering messages through
// a MemoryNetwork. Messages are delivered asynchronously, in
// the same order they were sent.
type MemoryTransport struct {
	network *MemoryNetwork

	// The member using this transport.
	address types.Address

	// Channel to publish the received messages.
	producer chan types.Message

	// Deliver the messages in order.
	scheduler concurrent.Scheduler

	// Raised once the transport is closed.
	closed helper.Flag
}

// MemoryTransport implements Transport interface.
func (m *MemoryTransport) Send(message types.Message) error {
	if m.closed.IsRaised() {
		return types.ErrTransportClosed
	}

	data, err := m.network.codec.Encode(message)
	if err != nil {
		return err
	}

	for _, target := range m.network.route(m.address, message.Destination) {
		target.enqueue(data)
	}
	return nil
}

// Schedule the delivery of the frame to the listener.
func (m *MemoryTransport) enqueue(data []byte) {
	err := m.scheduler.Schedule(func(ctx context.Context) {
		message, err := m.network.codec.Decode(data)
		if err != nil {
			m.network.log.Errorf("%s failed decoding frame. %v", m.address, err)
			return
		}

		select {
		case <-ctx.Done():
		case m.producer <- message:
		}
	})
	if err != nil {
		m.network.log.Debugf("%s not receiving message. %v", m.address, err)
	}
}

// MemoryTransport implements Transport interface.
func (m *MemoryTransport) Listen() <-chan types.Message {
	return m.producer
}

// MemoryTransport implements Transport interface.
func (m *MemoryTransport) Close() error {
	if !m.closed.Raise() {
		return nil
	}
	m.network.leave(m.address)
	m.scheduler.Stop()
	close(m.producer)
	return nil
}
