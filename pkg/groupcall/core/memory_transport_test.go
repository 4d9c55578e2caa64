package core

import (
	"testing"
	"time"

	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
	"go.uber.org/goleak"
)

func receive(t *testing.T, transport Transport) (types.Message, bool) {
	select {
	case m, ok := <-transport.Listen():
		return m, ok
	case <-time.After(100 * time.Millisecond):
		return types.Message{}, false
	}
}

func TestMemoryTransport_DeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	network := NewMemoryNetwork(quietLogger())
	a, err := network.Join(types.NewAddress("a"))
	if err != nil {
		t.Fatalf("failed joining. %v", err)
	}
	defer a.Close()
	b, err := network.Join(types.NewAddress("b"))
	if err != nil {
		t.Fatalf("failed joining. %v", err)
	}
	defer b.Close()

	for i := 0; i < 10; i++ {
		m := types.Message{RequestID: uint64(i), From: a.address, Destination: []types.Address{b.address}}
		if err := a.Send(m); err != nil {
			t.Fatalf("failed sending. %v", err)
		}
	}

	for i := 0; i < 10; i++ {
		m, ok := receive(t, b)
		if !ok {
			t.Fatalf("message %d not delivered", i)
		}

		if m.RequestID != uint64(i) {
			t.Fatalf("expected message %d, found %d", i, m.RequestID)
		}
	}

	if _, ok := receive(t, a); ok {
		t.Errorf("a should not receive its own message")
	}
}

func TestMemoryTransport_EmptyDestinationIsBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t)

	network := NewMemoryNetwork(quietLogger())
	var transports []*MemoryTransport
	for _, address := range members("a", "b", "c") {
		transport, err := network.Join(address)
		if err != nil {
			t.Fatalf("failed joining. %v", err)
		}
		transports = append(transports, transport)
	}
	defer func() {
		for _, transport := range transports {
			transport.Close()
		}
	}()

	if err := transports[0].Send(types.Message{RequestID: 1}); err != nil {
		t.Fatalf("failed sending. %v", err)
	}

	for _, transport := range transports {
		if _, ok := receive(t, transport); !ok {
			t.Errorf("%s did not receive the message", transport.address)
		}
	}
}

func TestMemoryTransport_DropAndRestore(t *testing.T) {
	defer goleak.VerifyNone(t)

	network := NewMemoryNetwork(quietLogger())
	a, _ := network.Join(types.NewAddress("a"))
	defer a.Close()
	b, _ := network.Join(types.NewAddress("b"))
	defer b.Close()

	to := []types.Address{b.address}
	network.Drop(b.address)
	if err := a.Send(types.Message{RequestID: 1, Destination: to}); err != nil {
		t.Fatalf("failed sending. %v", err)
	}

	if _, ok := receive(t, b); ok {
		t.Fatalf("dropped member should not receive")
	}

	network.Restore(b.address)
	if err := a.Send(types.Message{RequestID: 2, Destination: to}); err != nil {
		t.Fatalf("failed sending. %v", err)
	}

	m, ok := receive(t, b)
	if !ok || m.RequestID != 2 {
		t.Fatalf("restored member should receive, found %v", m)
	}
}

func TestMemoryTransport_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	network := NewMemoryNetwork(quietLogger())
	a, _ := network.Join(types.NewAddress("a"))
	b, _ := network.Join(types.NewAddress("b"))
	defer b.Close()

	if _, err := network.Join(types.NewAddress("a")); err == nil {
		t.Fatalf("should not join twice")
	}

	if err := a.Close(); err != nil {
		t.Fatalf("failed closing. %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("second close should be a no-op. %v", err)
	}

	if err := a.Send(types.Message{}); err != types.ErrTransportClosed {
		t.Fatalf("expected closed transport, found %v", err)
	}

	if len(network.Members()) != 1 {
		t.Fatalf("closed transport should leave the network, found %v", network.Members())
	}

	if _, ok := <-a.Listen(); ok {
		t.Errorf("listener should be closed")
	}
}
