package types

import (
	"fmt"
	"strings"
)

// Rsp holds what is known about the reply of a single member.
type Rsp struct {
	// Member that was asked.
	Sender Address

	// The reply value, only meaningful if Received is true
	// and Exception is nil.
	Value interface{}

	// Set when the member replied with a failure.
	Exception error

	// The member replied.
	Received bool

	// The member was suspected or left the view before replying.
	Suspected bool

	// The site of the member became unreachable before replying.
	Unreachable bool
}

// Verify if the member is resolved, either because it replied
// or because it is known that no reply will ever come.
func (r Rsp) Resolved() bool {
	return r.Received || r.Suspected || r.Unreachable
}

func (r Rsp) String() string {
	switch {
	case r.Exception != nil:
		return fmt.Sprintf("%s: exception=%v", r.Sender, r.Exception)
	case r.Received:
		return fmt.Sprintf("%s: %v", r.Sender, r.Value)
	case r.Suspected:
		return fmt.Sprintf("%s: suspected", r.Sender)
	case r.Unreachable:
		return fmt.Sprintf("%s: unreachable", r.Sender)
	default:
		return fmt.Sprintf("%s: not received", r.Sender)
	}
}

// RspList is the snapshot of the replies of a request,
// ordered as the destinations of the request.
type RspList []Rsp

// Get the reply of the given member.
func (l RspList) Get(member Address) (Rsp, bool) {
	for _, rsp := range l {
		if rsp.Sender == member {
			return rsp, true
		}
	}
	return Rsp{}, false
}

// Get the first received reply without exception.
func (l RspList) First() (Rsp, bool) {
	for _, rsp := range l {
		if rsp.Received && rsp.Exception == nil {
			return rsp, true
		}
	}
	return Rsp{}, false
}

// Values of all received replies without exception.
func (l RspList) Values() []interface{} {
	var values []interface{}
	for _, rsp := range l {
		if rsp.Received && rsp.Exception == nil {
			values = append(values, rsp.Value)
		}
	}
	return values
}

// Verify if the given member replied.
func (l RspList) IsReceived(member Address) bool {
	rsp, ok := l.Get(member)
	return ok && rsp.Received
}

// How many members replied.
func (l RspList) NumReceived() int {
	count := 0
	for _, rsp := range l {
		if rsp.Received {
			count++
		}
	}
	return count
}

// How many members were suspected before replying.
func (l RspList) NumSuspected() int {
	count := 0
	for _, rsp := range l {
		if rsp.Suspected {
			count++
		}
	}
	return count
}

func (l RspList) String() string {
	parts := make([]string, 0, len(l))
	for _, rsp := range l {
		parts = append(parts, rsp.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
