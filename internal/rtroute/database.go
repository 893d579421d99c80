package rtroute

// RouteDatabase is a full decision-engine snapshot: unicast routes keyed by
// destination, MPLS routes keyed by label, plus the identity of the node
// that produced it.
type RouteDatabase struct {
	ThisNodeName  string
	UnicastRoutes map[Destination]Route
	MplsRoutes    map[uint32]Route
	PerfEvents    *PerfEventGroup
}

// NewRouteDatabase returns an empty RouteDatabase for the given node.
func NewRouteDatabase(nodeName string) *RouteDatabase {
	return &RouteDatabase{
		ThisNodeName:  nodeName,
		UnicastRoutes: map[Destination]Route{},
		MplsRoutes:    map[uint32]Route{},
	}
}

// Clone returns a deep-enough copy of db suitable for use as the reconciler's
// retained snapshot (nexthop slices are copied so later in-place filtering
// by the interface tracker never mutates a caller's original database).
func (db *RouteDatabase) Clone() *RouteDatabase {
	out := NewRouteDatabase(db.ThisNodeName)
	for k, v := range db.UnicastRoutes {
		out.UnicastRoutes[k] = cloneRoute(v)
	}
	for k, v := range db.MplsRoutes {
		out.MplsRoutes[k] = cloneRoute(v)
	}
	out.PerfEvents = db.PerfEvents
	return out
}

func cloneRoute(r Route) Route {
	nh := make([]NextHop, len(r.NextHops))
	copy(nh, r.NextHops)
	r.NextHops = nh
	return r
}

// PartitionDoNotInstall splits db into an installable database and a
// do-not-install database, per the spec §3 invariant that the in-memory
// route DB retains only installable routes.
func PartitionDoNotInstall(db *RouteDatabase) (installable, doNotInstall *RouteDatabase) {
	installable = NewRouteDatabase(db.ThisNodeName)
	doNotInstall = NewRouteDatabase(db.ThisNodeName)
	installable.PerfEvents = db.PerfEvents

	for k, r := range db.UnicastRoutes {
		if r.DoNotInstall {
			doNotInstall.UnicastRoutes[k] = r
			continue
		}
		installable.UnicastRoutes[k] = r
	}
	for k, r := range db.MplsRoutes {
		if r.DoNotInstall {
			doNotInstall.MplsRoutes[k] = r
			continue
		}
		installable.MplsRoutes[k] = r
	}
	return installable, doNotInstall
}

// PerfEventGroup is a lightweight stand-in for the perf-event trace carried
// alongside decision/interface publications, used to measure end-to-end
// convergence latency (see internal/perfdb).
type PerfEventGroup struct {
	Events []PerfEvent
}

// PerfEvent records a single named point on the convergence timeline.
type PerfEvent struct {
	Name   string
	UnixTs int64
}
