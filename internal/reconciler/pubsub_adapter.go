package reconciler

import (
	"context"

	"github.com/urantialife/openr/internal/ifstatus"
	"github.com/urantialife/openr/internal/pubsub"
	"github.com/urantialife/openr/internal/rtroute"
)

// PubSubServer adapts a Reconciler to pubsub.Server, so it can be
// registered directly on a grpc.Server.
type PubSubServer struct {
	r *Reconciler
}

// NewPubSubServer returns a pubsub.Server backed by r.
func NewPubSubServer(r *Reconciler) *PubSubServer {
	return &PubSubServer{r: r}
}

func (s *PubSubServer) RouteDbGet(context.Context, *pubsub.Empty) (*rtroute.RouteDatabase, error) {
	return s.r.RouteDbSnapshot(), nil
}

func (s *PubSubServer) RouteDbUninstallableGet(context.Context, *pubsub.Empty) (*rtroute.RouteDatabase, error) {
	return s.r.UninstallableSnapshot(), nil
}

func (s *PubSubServer) PerfDbGet(context.Context, *pubsub.Empty) (*pubsub.PerfDbGetResponse, error) {
	return &pubsub.PerfDbGetResponse{Groups: s.r.PerfSnapshot()}, nil
}

func (s *PubSubServer) DecisionStream(_ *pubsub.Empty, stream pubsub.DecisionStream_Server) error {
	ch := make(chan *rtroute.RouteDatabase, 8)
	defer s.r.SubscribeDecision(ch)()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case db := <-ch:
			if err := stream.Send(db); err != nil {
				return err
			}
		}
	}
}

func (s *PubSubServer) LinkMonitorStream(_ *pubsub.Empty, stream pubsub.LinkMonitorStream_Server) error {
	ch := make(chan *ifstatus.InterfaceDatabase, 8)
	defer s.r.SubscribeLinkMonitor(ch)()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case db := <-ch:
			if err := stream.Send(db); err != nil {
				return err
			}
		}
	}
}
