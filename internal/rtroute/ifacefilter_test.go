package rtroute

import "testing"

func TestApplyInterfaceFilter_DropsSingleNexthopDeletesRoute(t *testing.T) {
	db := NewRouteDatabase("n1")
	db.UnicastRoutes[dest("10.0.0.0", 24)] = route(dest("10.0.0.0", 24),
		NextHop{Family: IPv4, IfName: "eth0", IfIndex: uint32p(1)})

	affected := map[string]bool{"eth0": true}
	delta := ApplyInterfaceFilter(db, func(nh []NextHop) []NextHop {
		out := make([]NextHop, 0, len(nh))
		for _, n := range nh {
			if !affected[n.IfName] {
				out = append(out, n)
			}
		}
		return out
	})

	if len(delta.UnicastRoutesToDelete) != 1 {
		t.Fatalf("UnicastRoutesToDelete = %+v, want 1 entry", delta.UnicastRoutesToDelete)
	}
	if _, ok := db.UnicastRoutes[dest("10.0.0.0", 24)]; ok {
		t.Fatalf("route should have been removed from db")
	}
}

func TestApplyInterfaceFilter_NarrowingECMPIsUpdate(t *testing.T) {
	db := NewRouteDatabase("n1")
	db.UnicastRoutes[dest("10.0.0.0", 24)] = route(dest("10.0.0.0", 24),
		NextHop{Family: IPv4, IfName: "eth0", IfIndex: uint32p(1)},
		NextHop{Family: IPv4, IfName: "eth1", IfIndex: uint32p(2)},
	)

	affected := map[string]bool{"eth0": true}
	delta := ApplyInterfaceFilter(db, func(nh []NextHop) []NextHop {
		out := make([]NextHop, 0, len(nh))
		for _, n := range nh {
			if !affected[n.IfName] {
				out = append(out, n)
			}
		}
		return out
	})

	if len(delta.UnicastRoutesToUpdate) != 1 {
		t.Fatalf("UnicastRoutesToUpdate = %+v, want 1 entry", delta.UnicastRoutesToUpdate)
	}
	got := delta.UnicastRoutesToUpdate[0]
	if len(got.NextHops) != 1 || got.NextHops[0].IfName != "eth1" {
		t.Fatalf("surviving nexthops = %+v, want only eth1", got.NextHops)
	}
}

func TestApplyInterfaceFilter_PopAndLookupNeverDropped(t *testing.T) {
	db := NewRouteDatabase("n1")
	db.MplsRoutes[100] = Route{Family: MPLS, Label: 100, NextHops: []NextHop{
		{Family: MPLS, LabelAction: PopAndLookup, IfIndex: uint32p(1)},
	}}

	// a filter that retains only POP_AND_LOOKUP nexthops, as
	// ifstatus.FilterNextHops does regardless of affected interfaces.
	keepPopAndLookup := func(nh []NextHop) []NextHop {
		out := make([]NextHop, 0, len(nh))
		for _, n := range nh {
			if n.LabelAction == PopAndLookup {
				out = append(out, n)
			}
		}
		return out
	}

	delta := ApplyInterfaceFilter(db, keepPopAndLookup)
	if !delta.Empty() {
		t.Fatalf("expected no-op for a filter that retains POP_AND_LOOKUP nexthops, got %+v", delta)
	}
	if _, ok := db.MplsRoutes[100]; !ok {
		t.Fatalf("POP_AND_LOOKUP route should never be deleted by interface filtering")
	}
}
