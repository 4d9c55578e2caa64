package groupcall

import (
	"time"

	"github.com/jabolina/go-groupcall/pkg/groupcall/core"
	"github.com/jabolina/go-groupcall/pkg/groupcall/definition"
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

// Creates a new dispatcher for the member with the given address,
// using the default configuration.
func NewDispatcher(group string, address types.Address, transport core.Transport, handler core.RequestHandler) (*core.Dispatcher, error) {
	return NewDispatcherConfigured(DefaultConfiguration(group, address), transport, handler)
}

// Create a new dispatcher using the given configuration.
func NewDispatcherConfigured(configuration *core.Configuration, transport core.Transport, handler core.RequestHandler) (*core.Dispatcher, error) {
	return core.NewDispatcher(configuration, transport, handler)
}

// Creates the default configuration for a member of the given group.
// Metrics are not exported and the process wide request sequence
// is used.
func DefaultConfiguration(group string, address types.Address) *core.Configuration {
	return &core.Configuration{
		Name:        group,
		Address:     address,
		Version:     types.LatestProtocolVersion,
		FinishedTTL: core.DefaultFinishedTTL,
		Logger:      definition.NewDefaultLogger(),
	}
}

// Creates a reliable transport for the member, every member of
// the same group must use the same group name.
func NewReliableTransport(group string, address types.Address) (core.Transport, error) {
	configuration := core.ReliableConfiguration{
		Group:   group,
		Address: address,
		Timeout: core.DefaultActionTimeout,
	}
	return core.NewReliableTransport(configuration, definition.NewDefaultLogger())
}

// Creates a new in memory network, so members in the same
// process can talk to each other.
func NewMemoryNetwork() *core.MemoryNetwork {
	return core.NewMemoryNetwork(definition.NewDefaultLogger())
}

// Options waiting for the replies of all destinations.
func WaitAll(timeout time.Duration) types.RequestOptions {
	return types.NewRequestOptions(types.GetAll, timeout)
}

// Options waiting for the first reply.
func WaitFirst(timeout time.Duration) types.RequestOptions {
	return types.NewRequestOptions(types.GetOne, timeout)
}

// Options waiting for the majority of the destinations.
func WaitMajority(timeout time.Duration) types.RequestOptions {
	return types.NewRequestOptions(types.GetMajority, timeout)
}

// Options that do not wait for replies.
func NoWait() types.RequestOptions {
	return types.AsyncOptions()
}
