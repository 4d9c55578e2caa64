package core

import "github.com/jabolina/go-groupcall/pkg/groupcall/types"

// Collector for a request sent to a group of members.
//
// Keeps two counters that only grow: resolved counts members
// that replied or that will never reply, valid counts members
// whose reply was accepted by the filter. Completion depends on
// the response mode.
type groupCollector struct {
	options *types.RequestOptions

	// Destination order, used for the results.
	members []types.Address

	// Reply of each member.
	responses map[types.Address]*types.Rsp

	// Members that replied, were suspected or are unreachable.
	resolved int

	// Members whose reply was accepted.
	valid int

	// Members already counted as valid.
	counted map[types.Address]bool
}

func newGroupCollector(members []types.Address, options *types.RequestOptions) *groupCollector {
	g := &groupCollector{
		options:   options,
		responses: make(map[types.Address]*types.Rsp),
		counted:   make(map[types.Address]bool),
	}
	for _, member := range members {
		if _, ok := g.responses[member]; ok {
			continue
		}
		g.members = append(g.members, member)
		g.responses[member] = &types.Rsp{Sender: member}
	}
	return g
}

func (g *groupCollector) Destinations() []types.Address {
	destinations := make([]types.Address, len(g.members))
	copy(destinations, g.members)
	return destinations
}

func (g *groupCollector) Receive(value interface{}, sender types.Address, isException bool) {
	rsp, ok := g.responses[sender]
	if !ok {
		return
	}

	wasResolved, accepted := record(rsp, g.options.Filter, value, isException, g.counted[sender])
	if !wasResolved {
		g.resolved++
	}

	if accepted && !g.counted[sender] {
		g.counted[sender] = true
		g.valid++
	}
}

func (g *groupCollector) ViewChange(view types.View) {
	for _, member := range g.members {
		if !view.Contains(member) {
			g.Suspect(member)
		}
	}
}

func (g *groupCollector) Suspect(member types.Address) {
	rsp, ok := g.responses[member]
	if !ok || rsp.Resolved() {
		return
	}
	rsp.Suspected = true
	g.resolved++
}

func (g *groupCollector) SiteUnreachable(site string) {
	for _, member := range g.members {
		rsp := g.responses[member]
		if member.Site != site || rsp.Resolved() {
			continue
		}
		rsp.Unreachable = true
		g.resolved++
	}
}

func (g *groupCollector) Complete() bool {
	total := len(g.members)
	if filter := g.options.Filter; filter != nil && !filter.NeedMoreResponses() {
		return true
	}

	switch g.options.Mode {
	case types.GetNone:
		return true
	case types.GetOne:
		return g.valid >= 1 || g.resolved >= total
	case types.GetAll:
		return g.resolved >= total
	case types.GetMajority:
		return g.valid >= majority(total) || g.resolved >= total
	default:
		return false
	}
}

func (g *groupCollector) Results() types.RspList {
	results := make(types.RspList, 0, len(g.members))
	for _, member := range g.members {
		results = append(results, *g.responses[member])
	}
	return results
}
