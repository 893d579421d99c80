package ifstatus

import (
	"testing"

	"github.com/urantialife/openr/internal/rtroute"
)

func TestTracker_Update_DetectsUpToDownTransition(t *testing.T) {
	tr := New()

	tr.Update(InterfaceDatabase{Interfaces: map[string]Status{
		"eth0": {IsUp: true, IfIndex: 1},
	}})

	affected := tr.Update(InterfaceDatabase{Interfaces: map[string]Status{
		"eth0": {IsUp: false, IfIndex: 1},
	}})

	if !affected["eth0"] {
		t.Fatalf("expected eth0 to be affected, got %v", affected)
	}
}

func TestTracker_Update_IgnoresDownToDown(t *testing.T) {
	tr := New()
	tr.Update(InterfaceDatabase{Interfaces: map[string]Status{"eth0": {IsUp: false}}})
	affected := tr.Update(InterfaceDatabase{Interfaces: map[string]Status{"eth0": {IsUp: false}}})
	if len(affected) != 0 {
		t.Fatalf("expected no affected interfaces, got %v", affected)
	}
}

func TestTracker_Update_IgnoresDownToUp(t *testing.T) {
	tr := New()
	tr.Update(InterfaceDatabase{Interfaces: map[string]Status{"eth0": {IsUp: false}}})
	affected := tr.Update(InterfaceDatabase{Interfaces: map[string]Status{"eth0": {IsUp: true}}})
	if len(affected) != 0 {
		t.Fatalf("expected no affected interfaces on a down->up transition, got %v", affected)
	}
}

func TestFilterNextHops_DropsAffectedInterface(t *testing.T) {
	ifIdx := uint32(1)
	nh := []rtroute.NextHop{
		{IfName: "eth0", IfIndex: &ifIdx},
		{IfName: "eth1", IfIndex: &ifIdx},
	}
	got := FilterNextHops(nh, map[string]bool{"eth0": true})
	if len(got) != 1 || got[0].IfName != "eth1" {
		t.Fatalf("FilterNextHops = %+v, want only eth1", got)
	}
}

func TestFilterNextHops_RetainsPopAndLookup(t *testing.T) {
	nh := []rtroute.NextHop{
		{LabelAction: rtroute.PopAndLookup},
	}
	got := FilterNextHops(nh, map[string]bool{"": true})
	if len(got) != 1 {
		t.Fatalf("POP_AND_LOOKUP nexthop should survive filtering regardless of IfName, got %+v", got)
	}
}
