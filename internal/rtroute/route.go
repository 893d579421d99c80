// Package rtroute implements the logical route data model consumed by the
// FIB reconciler: Route, NextHop and RouteDatabase, plus the route delta
// engine that diffs two RouteDatabase snapshots. Interface status lives in
// internal/ifstatus.
package rtroute

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// Family identifies the address family of a route or nexthop.
type Family int

const (
	_ Family = iota
	// IPv4 identifies an AF_INET route/nexthop.
	IPv4
	// IPv6 identifies an AF_INET6 route/nexthop.
	IPv6
	// MPLS identifies an AF_MPLS label route.
	MPLS
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	case MPLS:
		return "MPLS"
	default:
		return "UNKNOWN"
	}
}

// RouteType mirrors the kernel's rtm_type values that the encoder cares
// about.
type RouteType int

const (
	_ RouteType = iota
	Unicast
	Multicast
	Broadcast
	Anycast
	Local
)

// Scope mirrors the kernel's rtm_scope values that the encoder cares about.
type Scope int

const (
	_ Scope = iota
	ScopeUniverse
	ScopeSite
	ScopeLink
	ScopeHost
)

// LabelAction is the MPLS forwarding action applied at a nexthop.
type LabelAction int

const (
	// NoLabelAction indicates a plain IP nexthop (no MPLS action).
	NoLabelAction LabelAction = iota
	// Push imposes one or more labels and forwards to gateway.
	Push
	// Swap replaces the top label and forwards to gateway.
	Swap
	// PHP (penultimate-hop-pop) removes the top label and forwards to gateway.
	PHP
	// PopAndLookup pops the label stack and performs an IP lookup via the
	// loopback interface.
	PopAndLookup
)

func (a LabelAction) String() string {
	switch a {
	case NoLabelAction:
		return "NONE"
	case Push:
		return "PUSH"
	case Swap:
		return "SWAP"
	case PHP:
		return "PHP"
	case PopAndLookup:
		return "POP_AND_LOOKUP"
	default:
		return "UNKNOWN"
	}
}

// MaxLabelValue is the largest value a 20-bit MPLS label may hold.
const MaxLabelValue = (1 << 20) - 1

// Destination identifies a unicast route by address and prefix length. It is
// the key type for RouteDatabase's unicast map.
type Destination struct {
	Address      string // canonical net.IP.String() form
	PrefixLength int
}

func (d Destination) String() string {
	return fmt.Sprintf("%s/%d", d.Address, d.PrefixLength)
}

// MarshalText renders d as "address/prefixlen", so a Destination can key a
// JSON object (RouteDatabase.UnicastRoutes over the pubsub JSON codec).
func (d Destination) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses the "address/prefixlen" form written by MarshalText.
func (d *Destination) UnmarshalText(b []byte) error {
	s := string(b)
	i := strings.LastIndexByte(s, '/')
	if i < 0 {
		return fmt.Errorf("rtroute: destination %q has no prefix length", s)
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return fmt.Errorf("rtroute: destination %q: %w", s, err)
	}
	d.Address, d.PrefixLength = s[:i], n
	return nil
}

// NextHop is one forwarding path of a Route.
type NextHop struct {
	Family      Family
	IfIndex     *uint32
	IfName      string // set by the decision/interface layer; absent for POP_AND_LOOKUP
	Gateway     net.IP
	Weight      *uint8
	LabelAction LabelAction
	PushLabels  []uint32 // 20-bit label values, ordered outermost-first
	SwapLabel   *uint32  // 20-bit label value
}

func (n NextHop) String() string {
	s := fmt.Sprintf("family=%s", n.Family)
	if n.IfName != "" {
		s += fmt.Sprintf(" dev=%s", n.IfName)
	}
	if n.IfIndex != nil {
		s += fmt.Sprintf(" ifindex=%d", *n.IfIndex)
	}
	if n.Gateway != nil {
		s += fmt.Sprintf(" via=%s", n.Gateway)
	}
	if n.Weight != nil {
		s += fmt.Sprintf(" weight=%d", *n.Weight)
	}
	if n.LabelAction != NoLabelAction {
		s += fmt.Sprintf(" action=%s", n.LabelAction)
	}
	return s
}

// Equal reports whether n and o describe the same forwarding path. It is
// used for order-insensitive nexthop-set comparison by the delta engine.
func (n NextHop) Equal(o NextHop) bool {
	if n.Family != o.Family || n.LabelAction != o.LabelAction {
		return false
	}
	if !ptrUint32Equal(n.IfIndex, o.IfIndex) {
		return false
	}
	if n.IfName != o.IfName {
		return false
	}
	if !n.Gateway.Equal(o.Gateway) {
		return false
	}
	if !ptrUint8Equal(n.Weight, o.Weight) {
		return false
	}
	if !ptrUint32Equal(n.SwapLabel, o.SwapLabel) {
		return false
	}
	if len(n.PushLabels) != len(o.PushLabels) {
		return false
	}
	for i := range n.PushLabels {
		if n.PushLabels[i] != o.PushLabels[i] {
			return false
		}
	}
	return true
}

func ptrUint32Equal(a, b *uint32) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func ptrUint8Equal(a, b *uint8) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// Route is the logical description of a forwarding entry, for either a
// unicast IP prefix or an MPLS label.
type Route struct {
	Family      Family
	Dest        Destination // significant for IPv4/IPv6
	Label       uint32      // significant for MPLS, 20-bit value
	Type        RouteType
	ProtocolID  uint8
	Scope       Scope
	Flags       *uint32
	NextHops    []NextHop
	DoNotInstall bool
}

func (r Route) key() string {
	if r.Family == MPLS {
		return fmt.Sprintf("mpls/%d", r.Label)
	}
	return r.Dest.String()
}

func (r Route) String() string {
	return fmt.Sprintf("route{family=%s dest=%s label=%d type=%d nexthops=%d}",
		r.Family, r.Dest, r.Label, r.Type, len(r.NextHops))
}

// NextHopsEqual reports whether a and b are the same set of nexthops,
// ignoring order, per the spec's order-insensitive best-path comparison.
func NextHopsEqual(a, b []NextHop) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, na := range a {
		found := false
		for i, nb := range b {
			if used[i] {
				continue
			}
			if na.Equal(nb) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// BestNextHops selects the subset of nexthops to program when only a
// "best" set is required, applying the tie-break rule from spec §4.1:
// highest weight first, then lexicographic (if_index, gateway bytes).
//
// For this control plane all viable (interface-up) nexthops of an ECMP
// group are considered equally best, so BestNextHops returns all of them,
// sorted deterministically; it is the sort order, not a narrowing
// selection, that callers rely on for stable comparison and encoding.
func BestNextHops(nh []NextHop) []NextHop {
	out := make([]NextHop, len(nh))
	copy(out, nh)
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := weightOf(out[i]), weightOf(out[j])
		if wi != wj {
			return wi > wj // highest weight first
		}
		ii, ij := ifIndexOf(out[i]), ifIndexOf(out[j])
		if ii != ij {
			return ii < ij
		}
		return gatewayBytesLess(out[i].Gateway, out[j].Gateway)
	})
	return out
}

func weightOf(n NextHop) uint8 {
	if n.Weight == nil {
		return 0
	}
	return *n.Weight
}

func ifIndexOf(n NextHop) uint32 {
	if n.IfIndex == nil {
		return 0
	}
	return *n.IfIndex
}

func gatewayBytesLess(a, b net.IP) bool {
	ab, bb := []byte(a), []byte(b)
	for i := 0; i < len(ab) && i < len(bb); i++ {
		if ab[i] != bb[i] {
			return ab[i] < bb[i]
		}
	}
	return len(ab) < len(bb)
}
