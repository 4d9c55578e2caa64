package core

import (
	"context"
	"fmt"

	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

// Dispatcher is the entry point for a member of the group.
// Issues unicast and group requests and answers the requests
// of the other members using the given handler.
type Dispatcher struct {
	configuration *Configuration

	// Transport used by the correlator.
	transport Transport

	// Keeps the requests waiting for replies.
	correlator *RequestCorrelator

	log types.Logger
}

// Creates a new dispatcher. The dispatcher owns the transport
// from now on and closes it when closed.
func NewDispatcher(configuration *Configuration, transport Transport, handler RequestHandler) (*Dispatcher, error) {
	correlator, err := NewRequestCorrelator(configuration, transport, handler)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		configuration: configuration,
		transport:     transport,
		correlator:    correlator,
		log:           configuration.Logger,
	}, nil
}

// The address of this member.
func (d *Dispatcher) Address() types.Address {
	return d.configuration.Address
}

// The correlator used by the dispatcher.
func (d *Dispatcher) Correlator() *RequestCorrelator {
	return d.correlator
}

func (d *Dispatcher) newRequest(payload []byte, options types.RequestOptions) RequestConfiguration {
	return RequestConfiguration{
		Message:    types.Message{Payload: payload},
		Correlator: d.correlator,
		Options:    options,
		Sequence:   d.configuration.Sequence,
		Logger:     d.log,
	}
}

// Resolve who receives a group request. No destination
// means every member of the current view.
func (d *Dispatcher) destinations(destinations []types.Address) ([]types.Address, error) {
	if len(destinations) == 0 {
		destinations = d.correlator.View().Members
	}

	if len(destinations) == 0 {
		return nil, types.ErrNoDestination
	}
	return destinations, nil
}

// CastMessage sends the payload to the destinations and waits for the
// replies as defined by the options. Members that did not reply before
// the timeout are reported as not received in the list, this is not
// an error.
func (d *Dispatcher) CastMessage(ctx context.Context, destinations []types.Address, payload []byte, options types.RequestOptions) (types.RspList, error) {
	members, err := d.destinations(destinations)
	if err != nil {
		return nil, err
	}

	request := NewGroupRequest(d.newRequest(payload, options), members)
	ok, err := request.ExecuteContext(ctx)
	d.record(ok, err)
	if err != nil {
		return request.Results(), err
	}
	return request.Results(), nil
}

// CastMessageWithFuture sends the payload to the destinations without
// waiting for the replies. The listener, if any, is called once the
// replies satisfy the request, or once the options timeout expires.
func (d *Dispatcher) CastMessageWithFuture(destinations []types.Address, payload []byte, options types.RequestOptions, listener Listener) (*PendingRequest, error) {
	members, err := d.destinations(destinations)
	if err != nil {
		return nil, err
	}

	request := NewGroupRequest(d.newRequest(payload, options), members)
	request.SetBlockForResults(false)
	if listener != nil {
		request.SetListener(listener)
	}

	if _, err := request.Execute(); err != nil {
		d.record(false, err)
		return nil, err
	}
	return request, nil
}

// SendMessage sends the payload to a single member and waits for its
// reply. Using GetNone returns right after sending.
//
// If the member replied with a failure, the failure is returned.
// If the member was suspected, its site is unreachable or the timeout
// expires, the matching error is returned.
func (d *Dispatcher) SendMessage(ctx context.Context, destination types.Address, payload []byte, options types.RequestOptions) ([]byte, error) {
	request := NewUnicastRequest(d.newRequest(payload, options), destination)
	ok, err := request.ExecuteContext(ctx)
	d.record(ok, err)
	if err != nil {
		return nil, err
	}

	if options.Mode == types.GetNone {
		return nil, nil
	}

	rsp := request.Results()[0]
	switch {
	case rsp.Exception != nil:
		return nil, rsp.Exception
	case rsp.Received:
		value, _ := rsp.Value.([]byte)
		return value, nil
	case rsp.Suspected:
		return nil, fmt.Errorf("sending to %s: %w", destination, types.ErrSuspected)
	case rsp.Unreachable:
		return nil, fmt.Errorf("sending to %s: %w", destination, types.ErrUnreachable)
	default:
		return nil, fmt.Errorf("sending to %s: %w", destination, types.ErrTimeout)
	}
}

// Record how a request issued by the dispatcher finished.
func (d *Dispatcher) record(ok bool, err error) {
	outcome := outcomeComplete
	switch {
	case err == context.Canceled || err == context.DeadlineExceeded:
		outcome = outcomeCancelled
	case err != nil:
		outcome = outcomeFailed
	case !ok:
		outcome = outcomeIncomplete
	}
	d.correlator.metrics.outcomes.WithLabelValues(outcome).Inc()
}

// Install the new view.
func (d *Dispatcher) ViewChange(view types.View) {
	d.correlator.ViewChange(view)
}

// Suspect the member.
func (d *Dispatcher) Suspect(member types.Address) {
	d.correlator.Suspect(member)
}

// The site is unreachable.
func (d *Dispatcher) SiteUnreachable(site string) {
	d.correlator.SiteUnreachable(site)
}

// The last installed view.
func (d *Dispatcher) View() types.View {
	return d.correlator.View()
}

// Close the dispatcher and its transport. Pending requests
// are cancelled.
func (d *Dispatcher) Close() error {
	if err := d.correlator.Close(); err != nil {
		return err
	}
	return d.transport.Close()
}
