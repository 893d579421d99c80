// Package ifstatus implements the interface status tracker (spec §4.3): it
// maintains up/down state for kernel interfaces and filters route nexthops
// through that state on link-monitor publications.
package ifstatus

import (
	log "github.com/golang/glog"

	"github.com/urantialife/openr/internal/rtroute"
)

// Status is the up/down state and kernel index of one interface.
type Status struct {
	IsUp    bool
	IfIndex uint32
}

// InterfaceDatabase is a link-monitor snapshot: interface name to status,
// for a single node.
type InterfaceDatabase struct {
	ThisNodeName string
	Interfaces   map[string]Status
	PerfEvents   *rtroute.PerfEventGroup
}

// Tracker maintains the last-known up/down state of every interface the
// link monitor has ever reported.
type Tracker struct {
	status map[string]bool // ifName -> wasUp
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{status: map[string]bool{}}
}

// Update folds a new InterfaceDatabase into the tracker and returns the set
// of interfaces that were up and are now down -- the set that must trigger
// nexthop re-filtering (spec §4.3: "affected = { name | was_up ∧ ¬is_up }").
func (t *Tracker) Update(db InterfaceDatabase) map[string]bool {
	affected := map[string]bool{}
	for name, st := range db.Interfaces {
		wasUp := t.status[name]
		t.status[name] = st.IsUp
		if wasUp && !st.IsUp {
			affected[name] = true
			log.Infof("interface %s went DOWN from UP state", name)
		}
	}
	return affected
}

// FilterNextHops drops nexthops whose IfName is in affected. MPLS
// POP_AND_LOOKUP nexthops carry no IfName and are always retained, per spec
// §4.3.
func FilterNextHops(nh []rtroute.NextHop, affected map[string]bool) []rtroute.NextHop {
	out := make([]rtroute.NextHop, 0, len(nh))
	for _, n := range nh {
		if n.LabelAction == rtroute.PopAndLookup {
			out = append(out, n)
			continue
		}
		if affected[n.IfName] {
			continue
		}
		out = append(out, n)
	}
	return out
}
