package core

import "github.com/jabolina/go-groupcall/pkg/groupcall/types"

// Collector for a request sent to a single member.
// Completes once the member replies or is known to be gone.
type unicastCollector struct {
	options *types.RequestOptions
	result  types.Rsp

	// If the filter already accepted a reply.
	accepted bool
}

func newUnicastCollector(target types.Address, options *types.RequestOptions) *unicastCollector {
	return &unicastCollector{
		options: options,
		result:  types.Rsp{Sender: target},
	}
}

func (u *unicastCollector) Destinations() []types.Address {
	return []types.Address{u.result.Sender}
}

func (u *unicastCollector) Receive(value interface{}, sender types.Address, isException bool) {
	if sender != u.result.Sender {
		return
	}
	_, accepted := record(&u.result, u.options.Filter, value, isException, u.accepted)
	u.accepted = u.accepted || accepted
}

func (u *unicastCollector) ViewChange(view types.View) {
	if !view.Contains(u.result.Sender) {
		u.Suspect(u.result.Sender)
	}
}

func (u *unicastCollector) Suspect(member types.Address) {
	if member == u.result.Sender && !u.result.Resolved() {
		u.result.Suspected = true
	}
}

func (u *unicastCollector) SiteUnreachable(site string) {
	if u.result.Sender.Site == site && !u.result.Resolved() {
		u.result.Unreachable = true
	}
}

func (u *unicastCollector) Complete() bool {
	return u.options.Mode == types.GetNone || u.result.Resolved()
}

func (u *unicastCollector) Results() types.RspList {
	return types.RspList{u.result}
}
