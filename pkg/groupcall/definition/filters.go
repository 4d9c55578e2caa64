package definition

import (
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

// Accepts replies until the given number of members replied
// with an acceptable reply. Replies are acceptable when the given
// predicate returns true, a nil predicate accepts all.
type countingFilter struct {
	limit     int
	predicate func(interface{}, types.Address) bool

	// Members with an accepted reply.
	accepted map[types.Address]bool
}

// Creates a filter that stops the request once n distinct
// members sent a reply accepted by the predicate. Repeated
// replies from the same member count once.
func NewCountingFilter(n int, predicate func(interface{}, types.Address) bool) types.ResponseFilter {
	return &countingFilter{
		limit:     n,
		predicate: predicate,
		accepted:  make(map[types.Address]bool),
	}
}

// Creates a filter that only accepts non nil replies and
// stops the request after the first one.
func NewFirstNonNilFilter() types.ResponseFilter {
	return NewCountingFilter(1, func(value interface{}, _ types.Address) bool {
		if value == nil {
			return false
		}
		if b, ok := value.([]byte); ok {
			return len(b) > 0
		}
		return true
	})
}

func (c *countingFilter) IsAcceptable(response interface{}, sender types.Address) bool {
	if c.predicate != nil && !c.predicate(response, sender) {
		return false
	}
	c.accepted[sender] = true
	return true
}

func (c *countingFilter) NeedMoreResponses() bool {
	return len(c.accepted) < c.limit
}

// Rejects replies coming from any of the given members.
type excludeFilter struct {
	excluded map[types.Address]bool
}

// Creates a filter that never counts replies from the given
// members. The request still waits for the other members
// as defined by its mode.
func NewExcludeFilter(members ...types.Address) types.ResponseFilter {
	f := &excludeFilter{excluded: make(map[types.Address]bool)}
	for _, m := range members {
		f.excluded[m] = true
	}
	return f
}

func (e *excludeFilter) IsAcceptable(_ interface{}, sender types.Address) bool {
	return !e.excluded[sender]
}

func (e *excludeFilter) NeedMoreResponses() bool {
	return true
}
