package reconciler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/urantialife/openr/internal/config"
	"github.com/urantialife/openr/internal/ifstatus"
	"github.com/urantialife/openr/internal/rtroute"
	"github.com/urantialife/openr/internal/store"
)

// fakeBackend is a minimal, fully in-memory AgentBackend used to drive the
// reconciler's event-loop methods without a real HTTP or netlink transport.
type fakeBackend struct {
	addUnicastCalls    int
	deleteUnicastCalls int
	addMplsCalls       int
	deleteMplsCalls    int
	syncFibCalls       int
	syncMplsCalls      int
	reconnectCalls     int

	addUnicastErr error
	aliveSince    int64
	aliveSinceErr error
}

func (f *fakeBackend) AddUnicastRoutes(context.Context, []rtroute.Route) error {
	f.addUnicastCalls++
	return f.addUnicastErr
}
func (f *fakeBackend) DeleteUnicastRoutes(context.Context, []rtroute.Destination) error {
	f.deleteUnicastCalls++
	return nil
}
func (f *fakeBackend) AddMplsRoutes(context.Context, []rtroute.Route) error {
	f.addMplsCalls++
	return nil
}
func (f *fakeBackend) DeleteMplsRoutes(context.Context, []uint32) error {
	f.deleteMplsCalls++
	return nil
}
func (f *fakeBackend) SyncFib(context.Context, []rtroute.Route) error {
	f.syncFibCalls++
	return nil
}
func (f *fakeBackend) SyncMplsFib(context.Context, []rtroute.Route) error {
	f.syncMplsCalls++
	return nil
}
func (f *fakeBackend) AliveSince(context.Context) (int64, error) {
	return f.aliveSince, f.aliveSinceErr
}
func (f *fakeBackend) Reconnect(context.Context) error {
	f.reconnectCalls++
	return nil
}

func newTestReconciler(t *testing.T, backend AgentBackend) *Reconciler {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "store.json"), time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	cfg := config.Default()
	cfg.NodeName = "n1"
	return New(cfg, backend, st)
}

func TestProcessRouteDb_NewRouteAppliesAddViaBackend(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestReconciler(t, backend)

	db := rtroute.NewRouteDatabase("n1")
	ifIdx := uint32(1)
	db.UnicastRoutes[rtroute.Destination{Address: "10.0.0.0", PrefixLength: 24}] = rtroute.Route{
		Family: rtroute.IPv4,
		Dest:   rtroute.Destination{Address: "10.0.0.0", PrefixLength: 24},
		NextHops: []rtroute.NextHop{
			{Family: rtroute.IPv4, IfIndex: &ifIdx},
		},
	}

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	r.syncScheduled = false // simulate cold start already elapsed

	r.processRouteDb(context.Background(), db, timer)

	if backend.addUnicastCalls != 1 {
		t.Fatalf("addUnicastCalls = %d, want 1", backend.addUnicastCalls)
	}
	if got := r.RouteDbSnapshot(); len(got.UnicastRoutes) != 1 {
		t.Fatalf("snapshot has %d routes, want 1", len(got.UnicastRoutes))
	}
}

func TestProcessRouteDb_DryrunSuppressesBackendCalls(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestReconciler(t, backend)
	r.cfg.Dryrun = true
	r.syncScheduled = false

	db := rtroute.NewRouteDatabase("n1")
	db.UnicastRoutes[rtroute.Destination{Address: "10.0.0.0", PrefixLength: 24}] = rtroute.Route{
		Family: rtroute.IPv4,
		Dest:   rtroute.Destination{Address: "10.0.0.0", PrefixLength: 24},
	}

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	r.processRouteDb(context.Background(), db, timer)

	if backend.addUnicastCalls != 0 {
		t.Fatalf("expected no backend calls in dryrun, got %d", backend.addUnicastCalls)
	}
}

func TestUpdateRoutes_BackendFailureMarksDirtyAndSchedulesSync(t *testing.T) {
	backend := &fakeBackend{addUnicastErr: errors.New("agent unreachable")}
	r := newTestReconciler(t, backend)
	r.syncScheduled = false

	delta := &rtroute.DatabaseDelta{
		UnicastRoutesToUpdate: []rtroute.Route{{
			Family: rtroute.IPv4,
			Dest:   rtroute.Destination{Address: "10.0.0.0", PrefixLength: 24},
		}},
	}
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	r.updateRoutes(context.Background(), delta, timer)

	if !r.dirty {
		t.Fatal("expected dirty=true after backend failure")
	}
	if !r.syncScheduled {
		t.Fatal("expected a full sync to be scheduled after backend failure")
	}
}

func TestKeepAliveCheck_RestartDetectionForcesFullSync(t *testing.T) {
	backend := &fakeBackend{aliveSince: 100}
	r := newTestReconciler(t, backend)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	// first observation just records the baseline.
	r.keepAliveCheck(context.Background(), timer)
	if r.dirty {
		t.Fatal("first aliveSince observation should not mark dirty")
	}

	// simulate the agent restarting with a new aliveSince.
	backend.aliveSince = 200
	r.syncScheduled = false
	r.keepAliveCheck(context.Background(), timer)

	if !r.dirty {
		t.Fatal("expected dirty=true after detecting an agent restart")
	}
	if !r.syncScheduled {
		t.Fatal("expected a full sync to be scheduled after detecting an agent restart")
	}
}

func TestKeepAliveCheck_ErrorTriggersReconnect(t *testing.T) {
	backend := &fakeBackend{aliveSinceErr: errors.New("connection refused")}
	r := newTestReconciler(t, backend)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	r.keepAliveCheck(context.Background(), timer)

	if backend.reconnectCalls != 1 {
		t.Fatalf("reconnectCalls = %d, want 1", backend.reconnectCalls)
	}
}

func TestProcessInterfaceDb_DownInterfaceRemovesRoute(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestReconciler(t, backend)
	r.syncScheduled = false

	ifIdx := uint32(1)
	seed := rtroute.NewRouteDatabase("n1")
	seed.UnicastRoutes[rtroute.Destination{Address: "10.0.0.0", PrefixLength: 24}] = rtroute.Route{
		Family: rtroute.IPv4,
		Dest:   rtroute.Destination{Address: "10.0.0.0", PrefixLength: 24},
		NextHops: []rtroute.NextHop{
			{Family: rtroute.IPv4, IfName: "eth0", IfIndex: &ifIdx},
		},
	}
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	r.processRouteDb(context.Background(), seed, timer)
	backend.addUnicastCalls = 0

	r.processInterfaceDb(context.Background(), ifstatus.InterfaceDatabase{
		ThisNodeName: "n1",
		Interfaces:   map[string]ifstatus.Status{"eth0": {IsUp: true, IfIndex: 1}},
	})
	r.processInterfaceDb(context.Background(), ifstatus.InterfaceDatabase{
		ThisNodeName: "n1",
		Interfaces:   map[string]ifstatus.Status{"eth0": {IsUp: false, IfIndex: 1}},
	})

	if backend.deleteUnicastCalls != 1 {
		t.Fatalf("deleteUnicastCalls = %d, want 1", backend.deleteUnicastCalls)
	}
	if got := r.RouteDbSnapshot(); len(got.UnicastRoutes) != 0 {
		t.Fatalf("expected route to be removed from snapshot after link down, got %+v", got.UnicastRoutes)
	}
}

func TestSubscribeDecision_ReceivesPublication(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestReconciler(t, backend)
	r.syncScheduled = false

	ch := make(chan *rtroute.RouteDatabase, 1)
	unsubscribe := r.SubscribeDecision(ch)
	defer unsubscribe()

	db := rtroute.NewRouteDatabase("n1")
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	r.processRouteDb(context.Background(), db, timer)

	select {
	case got := <-ch:
		if got.ThisNodeName != "n1" {
			t.Fatalf("ThisNodeName = %q, want n1", got.ThisNodeName)
		}
	default:
		t.Fatal("expected a decision publication to be delivered")
	}
}
