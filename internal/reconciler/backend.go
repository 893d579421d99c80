package reconciler

import (
	"context"

	"github.com/urantialife/openr/internal/rtroute"
)

// AgentBackend is the set of calls the reconciler needs against whatever is
// actually programming the FIB: either the downstream forwarding agent over
// HTTP (internal/agentclient.Client) or a direct NETLINK_ROUTE socket to the
// local kernel (internal/nlagent.Client). Both satisfy this interface
// structurally, so Run's event loop never branches on which one it holds.
type AgentBackend interface {
	AddUnicastRoutes(ctx context.Context, routes []rtroute.Route) error
	DeleteUnicastRoutes(ctx context.Context, dests []rtroute.Destination) error
	AddMplsRoutes(ctx context.Context, routes []rtroute.Route) error
	DeleteMplsRoutes(ctx context.Context, labels []uint32) error
	SyncFib(ctx context.Context, routes []rtroute.Route) error
	SyncMplsFib(ctx context.Context, routes []rtroute.Route) error
	AliveSince(ctx context.Context) (int64, error)
	Reconnect(ctx context.Context) error
}
