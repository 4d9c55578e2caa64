package core

import "github.com/jabolina/go-groupcall/pkg/groupcall/types"

// Collector aggregates the replies of a request and decides
// when the request has enough of them.
//
// Every method is called with the request lock held, so
// implementations do not need synchronization of their own.
type Collector interface {
	// Members the request is sent to.
	Destinations() []types.Address

	// Record the reply of the sender.
	Receive(value interface{}, sender types.Address, isException bool)

	// A new view was installed, members not in the view
	// will never reply.
	ViewChange(view types.View)

	// The member is suspected and will never reply.
	Suspect(member types.Address)

	// Members at the site will never reply.
	SiteUnreachable(site string)

	// Verify if the request has enough replies. Once it
	// returns true it never returns false again.
	Complete() bool

	// Snapshot of the replies.
	Results() types.RspList
}

// Returns how many members form a majority of the given size.
func majority(size int) int {
	if size < 2 {
		return size
	}
	return size/2 + 1
}

// Verify if the filter accepts the reply. No filter accepts all.
func acceptable(filter types.ResponseFilter, value interface{}, sender types.Address) bool {
	return filter == nil || filter.IsAcceptable(value, sender)
}

// Apply the reply into the response, duplicates overwrite the
// previous value. The filter is consulted only while the sender has
// no accepted reply, so a filter sees each sender as accepted at most
// once. A reply the filter rejects keeps a previously stored value.
// Returns if the response was resolved before and if the reply
// was acceptable.
func record(rsp *types.Rsp, filter types.ResponseFilter, value interface{}, isException bool, accepted bool) (bool, bool) {
	wasResolved := rsp.Resolved()
	if !accepted {
		accepted = acceptable(filter, value, rsp.Sender)
		if rsp.Received && !accepted {
			return wasResolved, false
		}
	}

	rsp.Received = true
	rsp.Value = nil
	rsp.Exception = nil
	if isException {
		rsp.Exception = asException(rsp.Sender, value)
	} else {
		rsp.Value = value
	}
	return wasResolved, accepted
}

// Transform the exception reply value into an error.
func asException(sender types.Address, value interface{}) error {
	switch v := value.(type) {
	case error:
		return v
	case []byte:
		return types.NewRemoteError(sender, string(v))
	case string:
		return types.NewRemoteError(sender, v)
	default:
		return types.NewRemoteError(sender, "unknown failure")
	}
}
