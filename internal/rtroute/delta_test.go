package rtroute

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func uint32p(v uint32) *uint32 { return &v }

func dest(addr string, plen int) Destination {
	return Destination{Address: addr, PrefixLength: plen}
}

func route(d Destination, nh ...NextHop) Route {
	return Route{Family: IPv4, Dest: d, NextHops: nh}
}

func TestFindDelta_NewRouteIsUpdate(t *testing.T) {
	old := NewRouteDatabase("n1")
	next := NewRouteDatabase("n1")
	next.UnicastRoutes[dest("10.0.0.0", 24)] = route(dest("10.0.0.0", 24),
		NextHop{Family: IPv4, IfIndex: uint32p(1)})

	d := FindDelta(next, old)
	if len(d.UnicastRoutesToUpdate) != 1 {
		t.Fatalf("got %d updates, want 1", len(d.UnicastRoutesToUpdate))
	}
	if len(d.UnicastRoutesToDelete) != 0 {
		t.Fatalf("got %d deletes, want 0", len(d.UnicastRoutesToDelete))
	}
}

func TestFindDelta_RemovedRouteIsDelete(t *testing.T) {
	old := NewRouteDatabase("n1")
	old.UnicastRoutes[dest("10.0.0.0", 24)] = route(dest("10.0.0.0", 24))
	next := NewRouteDatabase("n1")

	d := FindDelta(next, old)
	if len(d.UnicastRoutesToDelete) != 1 || d.UnicastRoutesToDelete[0] != dest("10.0.0.0", 24) {
		t.Fatalf("UnicastRoutesToDelete = %+v", d.UnicastRoutesToDelete)
	}
}

func TestFindDelta_UnchangedNextHopSetIsNoOp(t *testing.T) {
	nh1 := NextHop{Family: IPv4, IfIndex: uint32p(1)}
	nh2 := NextHop{Family: IPv4, IfIndex: uint32p(2)}

	old := NewRouteDatabase("n1")
	old.UnicastRoutes[dest("10.0.0.0", 24)] = route(dest("10.0.0.0", 24), nh1, nh2)
	next := NewRouteDatabase("n1")
	// same set, different order
	next.UnicastRoutes[dest("10.0.0.0", 24)] = route(dest("10.0.0.0", 24), nh2, nh1)

	d := FindDelta(next, old)
	if !d.Empty() {
		t.Fatalf("expected no-op delta for reordered identical nexthop set, got %+v", d)
	}
}

func TestFindDelta_ChangedNextHopSetIsUpdate(t *testing.T) {
	old := NewRouteDatabase("n1")
	old.UnicastRoutes[dest("10.0.0.0", 24)] = route(dest("10.0.0.0", 24),
		NextHop{Family: IPv4, IfIndex: uint32p(1)})
	next := NewRouteDatabase("n1")
	next.UnicastRoutes[dest("10.0.0.0", 24)] = route(dest("10.0.0.0", 24),
		NextHop{Family: IPv4, IfIndex: uint32p(2)})

	d := FindDelta(next, old)
	if len(d.UnicastRoutesToUpdate) != 1 {
		t.Fatalf("got %d updates, want 1", len(d.UnicastRoutesToUpdate))
	}
	want := route(dest("10.0.0.0", 24), NextHop{Family: IPv4, IfIndex: uint32p(2)})
	if diff := cmp.Diff(want, d.UnicastRoutesToUpdate[0]); diff != "" {
		t.Errorf("updated route mismatch (-want +got):\n%s", diff)
	}
}

func TestFindDelta_MplsRoutes(t *testing.T) {
	old := NewRouteDatabase("n1")
	old.MplsRoutes[100] = Route{Family: MPLS, Label: 100}
	next := NewRouteDatabase("n1")
	next.MplsRoutes[200] = Route{Family: MPLS, Label: 200}

	d := FindDelta(next, old)
	if len(d.MplsRoutesToUpdate) != 1 || d.MplsRoutesToUpdate[0].Label != 200 {
		t.Fatalf("MplsRoutesToUpdate = %+v", d.MplsRoutesToUpdate)
	}
	if len(d.MplsRoutesToDelete) != 1 || d.MplsRoutesToDelete[0] != 100 {
		t.Fatalf("MplsRoutesToDelete = %+v", d.MplsRoutesToDelete)
	}
}

func TestBestNextHops_WeightOrdering(t *testing.T) {
	w1, w2 := uint8(10), uint8(20)
	nh := []NextHop{
		{Family: IPv4, IfIndex: uint32p(1), Weight: &w1},
		{Family: IPv4, IfIndex: uint32p(2), Weight: &w2},
	}
	best := BestNextHops(nh)
	if *best[0].IfIndex != 2 {
		t.Fatalf("expected higher-weight nexthop first, got %+v", best)
	}
}
