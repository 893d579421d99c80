package pubsub

import (
	"context"

	"google.golang.org/grpc"

	"github.com/urantialife/openr/internal/ifstatus"
	"github.com/urantialife/openr/internal/rtroute"
)

// Empty is the request message for every no-argument RPC this service
// exposes.
type Empty struct{}

// PerfDbGetResponse is the response to PerfDbGet: the retained convergence
// perf-event trace, oldest first.
type PerfDbGetResponse struct {
	Groups []rtroute.PerfEventGroup `json:"groups"`
}

// Server is the interface the FIB reconciler implements to answer
// publications and queries over this service.
type Server interface {
	DecisionStream(*Empty, DecisionStream_Server) error
	LinkMonitorStream(*Empty, LinkMonitorStream_Server) error
	RouteDbGet(context.Context, *Empty) (*rtroute.RouteDatabase, error)
	PerfDbGet(context.Context, *Empty) (*PerfDbGetResponse, error)
	RouteDbUninstallableGet(context.Context, *Empty) (*rtroute.RouteDatabase, error)
}

// DecisionStream_Server is the server-side handle for streaming
// RouteDatabase snapshots to a subscriber.
type DecisionStream_Server interface {
	Send(*rtroute.RouteDatabase) error
	grpc.ServerStream
}

type decisionStreamServer struct{ grpc.ServerStream }

func (x *decisionStreamServer) Send(m *rtroute.RouteDatabase) error {
	return x.ServerStream.SendMsg(m)
}

// LinkMonitorStream_Server is the server-side handle for streaming
// InterfaceDatabase snapshots to a subscriber.
type LinkMonitorStream_Server interface {
	Send(*ifstatus.InterfaceDatabase) error
	grpc.ServerStream
}

type linkMonitorStreamServer struct{ grpc.ServerStream }

func (x *linkMonitorStreamServer) Send(m *ifstatus.InterfaceDatabase) error {
	return x.ServerStream.SendMsg(m)
}

func decisionStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(Server).DecisionStream(m, &decisionStreamServer{stream})
}

func linkMonitorStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(Server).LinkMonitorStream(m, &linkMonitorStreamServer{stream})
}

func routeDbGetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).RouteDbGet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/RouteDbGet"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).RouteDbGet(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func perfDbGetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).PerfDbGet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/PerfDbGet"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).PerfDbGet(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func routeDbUninstallableGetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).RouteDbUninstallableGet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/RouteDbUninstallableGet"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).RouteDbUninstallableGet(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceName is the gRPC service's fully-qualified name.
const ServiceName = "openr.fibpubsub.PubSub"

// ServiceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would emit for this service, built directly against grpc.ServiceDesc
// since no .proto compilation step is available.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RouteDbGet", Handler: routeDbGetHandler},
		{MethodName: "PerfDbGet", Handler: perfDbGetHandler},
		{MethodName: "RouteDbUninstallableGet", Handler: routeDbUninstallableGetHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "DecisionStream", Handler: decisionStreamHandler, ServerStreams: true},
		{StreamName: "LinkMonitorStream", Handler: linkMonitorStreamHandler, ServerStreams: true},
	},
	Metadata: "internal/pubsub/service.go",
}

// RegisterServer registers srv's implementation of Server on s.
func RegisterServer(s *grpc.Server, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}
