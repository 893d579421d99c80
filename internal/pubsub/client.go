package pubsub

import (
	"context"

	"google.golang.org/grpc"

	"github.com/urantialife/openr/internal/ifstatus"
	"github.com/urantialife/openr/internal/rtroute"
)

// Client is a thin wrapper over a grpc.ClientConn bound to this service,
// always using the JSON codec instead of grpc's default proto codec.
type Client struct {
	cc *grpc.ClientConn
}

// NewClient wraps an established connection. Dial callers should pass
// grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)) so every
// call on cc negotiates the JSON codec.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

// RouteDbGet fetches the reconciler's current installable RouteDatabase.
func (c *Client) RouteDbGet(ctx context.Context) (*rtroute.RouteDatabase, error) {
	out := new(rtroute.RouteDatabase)
	if err := c.cc.Invoke(ctx, ServiceName+"/RouteDbGet", &Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PerfDbGet fetches the retained convergence perf-event trace.
func (c *Client) PerfDbGet(ctx context.Context) (*PerfDbGetResponse, error) {
	out := new(PerfDbGetResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/PerfDbGet", &Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RouteDbUninstallableGet fetches the do-not-install partition of the
// current RouteDatabase.
func (c *Client) RouteDbUninstallableGet(ctx context.Context) (*rtroute.RouteDatabase, error) {
	out := new(rtroute.RouteDatabase)
	if err := c.cc.Invoke(ctx, ServiceName+"/RouteDbUninstallableGet", &Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecisionStreamClient receives a stream of RouteDatabase snapshots.
type DecisionStreamClient interface {
	Recv() (*rtroute.RouteDatabase, error)
	grpc.ClientStream
}

type decisionStreamClient struct{ grpc.ClientStream }

func (x *decisionStreamClient) Recv() (*rtroute.RouteDatabase, error) {
	m := new(rtroute.RouteDatabase)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecisionStream opens a subscription to decision-engine RouteDatabase
// publications.
func (c *Client) DecisionStream(ctx context.Context) (DecisionStreamClient, error) {
	desc := &ServiceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, ServiceName+"/DecisionStream")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &decisionStreamClient{stream}, nil
}

// LinkMonitorStreamClient receives a stream of InterfaceDatabase snapshots.
type LinkMonitorStreamClient interface {
	Recv() (*ifstatus.InterfaceDatabase, error)
	grpc.ClientStream
}

type linkMonitorStreamClient struct{ grpc.ClientStream }

func (x *linkMonitorStreamClient) Recv() (*ifstatus.InterfaceDatabase, error) {
	m := new(ifstatus.InterfaceDatabase)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// LinkMonitorStream opens a subscription to link-monitor InterfaceDatabase
// publications.
func (c *Client) LinkMonitorStream(ctx context.Context) (LinkMonitorStreamClient, error) {
	desc := &ServiceDesc.Streams[1]
	stream, err := c.cc.NewStream(ctx, desc, ServiceName+"/LinkMonitorStream")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &linkMonitorStreamClient{stream}, nil
}
