// Package reconciler implements the FIB Reconciler (C5, spec §4.4): the
// single-threaded event loop that folds decision-engine and link-monitor
// publications into a RouteDatabase, computes deltas, and drives them to
// the downstream forwarding agent, falling back to a full resync whenever
// the agent restarts or an incremental update fails.
//
// Grounded on Fib.cpp's constructor/processRouteDb/processInterfaceDb/
// updateRoutes/syncRouteDb/keepAliveCheck/createFibClient state machine,
// rendered as a single goroutine selecting over typed channels instead of
// an actor mailbox -- the idiomatic Go equivalent of "single-threaded
// cooperative event loop" (spec §5).
package reconciler

import (
	"context"
	"strconv"
	"sync"
	"time"

	log "github.com/golang/glog"

	"github.com/urantialife/openr/constants"
	"github.com/urantialife/openr/internal/config"
	"github.com/urantialife/openr/internal/ifstatus"
	"github.com/urantialife/openr/internal/perfdb"
	"github.com/urantialife/openr/internal/rtroute"
	"github.com/urantialife/openr/internal/store"
	xbackoff "github.com/urantialife/openr/internal/backoff"
)

// Reconciler is the FIB Reconciler. The event-loop-owned fields are touched
// only from within Run's goroutine; mu guards routeDB/doNotInstallDB, which
// only Run replaces and which gRPC query handlers read but never mutate
// (spec §5's single-writer invariant, rendered as single-writer/many-reader
// rather than a channel round-trip for every read, since Go's RWMutex
// gives the same non-interleaving guarantee for pure reads).
type Reconciler struct {
	cfg   config.Config
	agent AgentBackend
	ifTr  *ifstatus.Tracker
	bk    *xbackoff.ExpBackoff
	perf  *perfdb.RingBuffer
	st    *store.PersistentStore

	routeDbCh chan *rtroute.RouteDatabase
	ifaceDbCh chan ifstatus.InterfaceDatabase

	// event-loop-owned state
	dirty            bool
	syncScheduled    bool
	latestAliveSince int64
	haveAliveSince   bool

	mu             sync.RWMutex
	routeDB        *rtroute.RouteDatabase
	doNotInstallDB *rtroute.RouteDatabase

	subMu        sync.Mutex
	decisionSubs map[chan *rtroute.RouteDatabase]struct{}
	linkSubs     map[chan *ifstatus.InterfaceDatabase]struct{}
}

// New returns a Reconciler ready to Run. agent may be nil in dryrun mode.
func New(cfg config.Config, agent AgentBackend, st *store.PersistentStore) *Reconciler {
	return &Reconciler{
		cfg:            cfg,
		agent:          agent,
		ifTr:           ifstatus.New(),
		bk:             xbackoff.New(constants.ExpBackoffInitial, constants.ExpBackoffMax),
		perf:           perfdb.New(),
		st:             st,
		routeDbCh:      make(chan *rtroute.RouteDatabase, 1),
		ifaceDbCh:      make(chan ifstatus.InterfaceDatabase, 1),
		routeDB:        rtroute.NewRouteDatabase(cfg.NodeName),
		doNotInstallDB: rtroute.NewRouteDatabase(cfg.NodeName),
		decisionSubs:   map[chan *rtroute.RouteDatabase]struct{}{},
		linkSubs:       map[chan *ifstatus.InterfaceDatabase]struct{}{},
	}
}

// PublishRouteDb enqueues a new decision-engine snapshot for processing by
// the event loop. It blocks only as long as it takes to enqueue.
func (r *Reconciler) PublishRouteDb(db *rtroute.RouteDatabase) {
	r.routeDbCh <- db
}

// PublishInterfaceDb enqueues a new link-monitor snapshot.
func (r *Reconciler) PublishInterfaceDb(db ifstatus.InterfaceDatabase) {
	r.ifaceDbCh <- db
}

// aliveSinceStoreKey is the PersistentStore key under which the last
// observed agent aliveSince value is retained across daemon restarts, so a
// restart of this process doesn't mistake the agent's unchanged uptime for
// a fresh one on the first keepAliveCheck.
const aliveSinceStoreKey = "fib.agent_alive_since"

// Run is the reconciler's single event-loop goroutine. It returns when ctx
// is canceled.
func (r *Reconciler) Run(ctx context.Context) error {
	if v, ok := r.st.Load(aliveSinceStoreKey); ok {
		if since, err := strconv.ParseInt(v, 10, 64); err == nil {
			r.latestAliveSince = since
			r.haveAliveSince = true
		}
	}

	syncTimer := time.NewTimer(r.cfg.ColdStartDuration)
	defer syncTimer.Stop()
	r.syncScheduled = true

	healthTicker := time.NewTicker(constants.HealthCheckInterval)
	defer healthTicker.Stop()

	var periodicC <-chan time.Time
	if r.cfg.EnableFibSync && r.cfg.PlatformSyncInterval > 0 {
		periodicTicker := time.NewTicker(r.cfg.PlatformSyncInterval)
		defer periodicTicker.Stop()
		periodicC = periodicTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case db := <-r.routeDbCh:
			r.processRouteDb(ctx, db, syncTimer)

		case ifdb := <-r.ifaceDbCh:
			r.processInterfaceDb(ctx, ifdb)

		case <-syncTimer.C:
			r.syncScheduled = false
			r.syncRouteDb(ctx)
			if r.dirty {
				r.scheduleSync(syncTimer, r.bk.TimeRemainingUntilRetry())
			}

		case <-healthTicker.C:
			r.keepAliveCheck(ctx, syncTimer)

		case <-periodicC:
			r.scheduleSync(syncTimer, 0)
		}
	}
}

func (r *Reconciler) scheduleSync(t *time.Timer, delay time.Duration) {
	if r.syncScheduled {
		return
	}
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(delay)
	r.syncScheduled = true
}

// processRouteDb folds a new decision-engine snapshot into reconciler
// state: partition do-not-install routes out, compute the delta against
// the retained snapshot, replace it, and try to push the delta downstream
// (Fib.cpp's processRouteDb).
func (r *Reconciler) processRouteDb(ctx context.Context, db *rtroute.RouteDatabase, syncTimer *time.Timer) {
	if db.ThisNodeName != r.cfg.NodeName {
		log.Warningf("reconciler: dropping route database for node %q, this node is %q", db.ThisNodeName, r.cfg.NodeName)
		return
	}
	installable, doNotInstall := rtroute.PartitionDoNotInstall(db)

	r.mu.RLock()
	old := r.routeDB
	r.mu.RUnlock()

	delta := rtroute.FindDelta(installable, old)

	r.mu.Lock()
	r.routeDB = installable
	r.doNotInstallDB = doNotInstall
	r.mu.Unlock()

	if db.PerfEvents != nil {
		r.perf.Add(*db.PerfEvents)
	}

	r.publishDecision(installable)

	if !delta.Empty() {
		r.updateRoutes(ctx, delta, syncTimer)
	}
}

// processInterfaceDb folds a link-monitor snapshot in: interfaces that
// transitioned up->down get their nexthops filtered out of every affected
// route, and the resulting delta is pushed the same way a route-db delta
// is (Fib.cpp's processInterfaceDb).
func (r *Reconciler) processInterfaceDb(ctx context.Context, ifdb ifstatus.InterfaceDatabase) {
	if ifdb.ThisNodeName != r.cfg.NodeName {
		log.Warningf("reconciler: dropping interface database for node %q, this node is %q", ifdb.ThisNodeName, r.cfg.NodeName)
		return
	}
	affected := r.ifTr.Update(ifdb)

	if ifdb.PerfEvents != nil {
		r.perf.Add(*ifdb.PerfEvents)
	}

	r.publishLinkMonitor(&ifdb)

	if len(affected) == 0 {
		return
	}

	// Filter a copy, so a snapshot already handed to query handlers or
	// subscribers is never mutated in place.
	r.mu.RLock()
	filtered := r.routeDB.Clone()
	r.mu.RUnlock()

	delta := rtroute.ApplyInterfaceFilter(filtered, func(nh []rtroute.NextHop) []rtroute.NextHop {
		return ifstatus.FilterNextHops(nh, affected)
	})

	r.mu.Lock()
	r.routeDB = filtered
	r.mu.Unlock()

	if !delta.Empty() {
		r.updateRoutes(ctx, delta, nil)
	}
}

// updateRoutes tries to push delta downstream via incremental add/delete
// RPCs, all deletes (unicast, then MPLS) before all adds (unicast, then
// MPLS), matching Fib.cpp's ordering; MPLS calls are made only when
// segment routing is enabled. Any failure marks the reconciler
// dirty and (if a syncTimer is provided) arms a debounced full resync.
func (r *Reconciler) updateRoutes(ctx context.Context, delta *rtroute.DatabaseDelta, syncTimer *time.Timer) {
	if r.syncScheduled {
		// a full sync is already pending; it will supersede this delta.
		return
	}
	if r.cfg.Dryrun {
		log.Infof("reconciler: dryrun, suppressing delta of %d unicast/%d mpls updates",
			len(delta.UnicastRoutesToUpdate), len(delta.MplsRoutesToUpdate))
		return
	}
	if r.dirty {
		if syncTimer != nil {
			r.scheduleSync(syncTimer, r.bk.TimeRemainingUntilRetry())
		}
		return
	}

	tctx, cancel := context.WithTimeout(ctx, constants.PlatformProcTimeout)
	defer cancel()

	if err := r.applyDelta(tctx, delta); err != nil {
		log.Errorf("reconciler: failed to apply delta, marking dirty: %v", err)
		r.dirty = true
		r.bk.ReportError()
		if syncTimer != nil {
			r.scheduleSync(syncTimer, r.bk.TimeRemainingUntilRetry())
		}
		return
	}
	r.bk.ReportSuccess()
}

func (r *Reconciler) applyDelta(ctx context.Context, delta *rtroute.DatabaseDelta) error {
	if len(delta.UnicastRoutesToDelete) > 0 {
		if err := r.agent.DeleteUnicastRoutes(ctx, delta.UnicastRoutesToDelete); err != nil {
			return err
		}
	}
	if r.cfg.EnableSegmentRouting && len(delta.MplsRoutesToDelete) > 0 {
		if err := r.agent.DeleteMplsRoutes(ctx, delta.MplsRoutesToDelete); err != nil {
			return err
		}
	}
	if len(delta.UnicastRoutesToUpdate) > 0 {
		if err := r.agent.AddUnicastRoutes(ctx, delta.UnicastRoutesToUpdate); err != nil {
			return err
		}
	}
	if r.cfg.EnableSegmentRouting && len(delta.MplsRoutesToUpdate) > 0 {
		if err := r.agent.AddMplsRoutes(ctx, delta.MplsRoutesToUpdate); err != nil {
			return err
		}
	}
	return nil
}

// syncRouteDb performs a full resync of the unicast FIB, and of the MPLS FIB
// when segment routing is enabled, from the current retained snapshot
// (Fib.cpp's syncRouteDb). It always clears the dirty
// flag on success, since a full sync makes the agent consistent regardless
// of what incremental updates it may have missed.
func (r *Reconciler) syncRouteDb(ctx context.Context) {
	r.mu.RLock()
	db := r.routeDB
	r.mu.RUnlock()

	if r.cfg.Dryrun {
		log.Infof("reconciler: dryrun full sync of %d unicast/%d mpls routes",
			len(db.UnicastRoutes), len(db.MplsRoutes))
		r.dirty = false
		r.bk.ReportSuccess()
		return
	}

	tctx, cancel := context.WithTimeout(ctx, constants.PlatformProcTimeout)
	defer cancel()

	unicast := make([]rtroute.Route, 0, len(db.UnicastRoutes))
	for _, rt := range db.UnicastRoutes {
		unicast = append(unicast, rt)
	}
	mpls := make([]rtroute.Route, 0, len(db.MplsRoutes))
	for _, rt := range db.MplsRoutes {
		mpls = append(mpls, rt)
	}

	if err := r.agent.SyncFib(tctx, unicast); err != nil {
		log.Errorf("reconciler: full unicast sync failed: %v", err)
		r.dirty = true
		r.bk.ReportError()
		return
	}
	if r.cfg.EnableSegmentRouting {
		if err := r.agent.SyncMplsFib(tctx, mpls); err != nil {
			log.Errorf("reconciler: full mpls sync failed: %v", err)
			r.dirty = true
			r.bk.ReportError()
			return
		}
	}
	r.dirty = false
	r.bk.ReportSuccess()
}

// keepAliveCheck polls the agent's aliveSince() and, on detecting a
// restart (a value different from the last observed one), forces a full
// resync since the agent's own FIB was wiped (Fib.cpp's keepAliveCheck).
func (r *Reconciler) keepAliveCheck(ctx context.Context, syncTimer *time.Timer) {
	if r.cfg.Dryrun {
		return
	}
	tctx, cancel := context.WithTimeout(ctx, constants.PlatformProcTimeout)
	defer cancel()

	since, err := r.agent.AliveSince(tctx)
	if err != nil {
		log.Warningf("reconciler: aliveSince check failed, reconnecting: %v", err)
		if err := r.agent.Reconnect(tctx); err != nil {
			log.Errorf("reconciler: reconnect failed: %v", err)
		}
		return
	}

	if !r.haveAliveSince {
		r.latestAliveSince = since
		r.haveAliveSince = true
		r.st.Store(aliveSinceStoreKey, strconv.FormatInt(since, 10))
		return
	}
	if since != r.latestAliveSince {
		log.Infof("reconciler: forwarding agent restarted (aliveSince %d -> %d), forcing full sync",
			r.latestAliveSince, since)
		r.latestAliveSince = since
		r.st.Store(aliveSinceStoreKey, strconv.FormatInt(since, 10))
		r.dirty = true
		r.scheduleSync(syncTimer, 0)
	}
}

// RouteDbSnapshot returns the current installable RouteDatabase. Safe for
// concurrent use by gRPC query handlers.
func (r *Reconciler) RouteDbSnapshot() *rtroute.RouteDatabase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.routeDB
}

// UninstallableSnapshot returns the current do-not-install partition.
func (r *Reconciler) UninstallableSnapshot() *rtroute.RouteDatabase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doNotInstallDB
}

// PerfSnapshot returns the retained convergence perf-event trace.
func (r *Reconciler) PerfSnapshot() []rtroute.PerfEventGroup {
	return r.perf.Snapshot()
}

func (r *Reconciler) publishDecision(db *rtroute.RouteDatabase) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for ch := range r.decisionSubs {
		select {
		case ch <- db:
		default:
			log.Warningf("reconciler: dropping decision publication for a slow subscriber")
		}
	}
}

func (r *Reconciler) publishLinkMonitor(db *ifstatus.InterfaceDatabase) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for ch := range r.linkSubs {
		select {
		case ch <- db:
		default:
			log.Warningf("reconciler: dropping link-monitor publication for a slow subscriber")
		}
	}
}

// SubscribeDecision registers ch to receive every future decision
// publication until unsubscribe is called.
func (r *Reconciler) SubscribeDecision(ch chan *rtroute.RouteDatabase) (unsubscribe func()) {
	r.subMu.Lock()
	r.decisionSubs[ch] = struct{}{}
	r.subMu.Unlock()
	return func() {
		r.subMu.Lock()
		delete(r.decisionSubs, ch)
		r.subMu.Unlock()
	}
}

// SubscribeLinkMonitor registers ch to receive every future link-monitor
// publication until unsubscribe is called.
func (r *Reconciler) SubscribeLinkMonitor(ch chan *ifstatus.InterfaceDatabase) (unsubscribe func()) {
	r.subMu.Lock()
	r.linkSubs[ch] = struct{}{}
	r.subMu.Unlock()
	return func() {
		r.subMu.Lock()
		delete(r.linkSubs, ch)
		r.subMu.Unlock()
	}
}
