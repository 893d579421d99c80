package pubsub

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/urantialife/openr/internal/ifstatus"
	"github.com/urantialife/openr/internal/rtroute"
)

type fakeServer struct {
	db *rtroute.RouteDatabase
}

func (f *fakeServer) DecisionStream(_ *Empty, stream DecisionStream_Server) error {
	return stream.Send(f.db)
}

func (f *fakeServer) LinkMonitorStream(_ *Empty, stream LinkMonitorStream_Server) error {
	return stream.Send(&ifstatus.InterfaceDatabase{ThisNodeName: f.db.ThisNodeName})
}

func (f *fakeServer) RouteDbGet(context.Context, *Empty) (*rtroute.RouteDatabase, error) {
	return f.db, nil
}

func (f *fakeServer) PerfDbGet(context.Context, *Empty) (*PerfDbGetResponse, error) {
	return &PerfDbGetResponse{Groups: []rtroute.PerfEventGroup{{
		Events: []rtroute.PerfEvent{{Name: "test", UnixTs: 1}},
	}}}, nil
}

func (f *fakeServer) RouteDbUninstallableGet(context.Context, *Empty) (*rtroute.RouteDatabase, error) {
	return rtroute.NewRouteDatabase(f.db.ThisNodeName), nil
}

func startTestServer(t *testing.T, srv Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer()
	RegisterServer(s, srv)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { cc.Close() })
	return NewClient(cc)
}

func TestRouteDbGet(t *testing.T) {
	db := rtroute.NewRouteDatabase("node1")
	db.UnicastRoutes[rtroute.Destination{Address: "10.0.0.0", PrefixLength: 24}] = rtroute.Route{
		Family: rtroute.IPv4,
		Dest:   rtroute.Destination{Address: "10.0.0.0", PrefixLength: 24},
	}
	c := startTestServer(t, &fakeServer{db: db})

	got, err := c.RouteDbGet(context.Background())
	if err != nil {
		t.Fatalf("RouteDbGet: %v", err)
	}
	if got.ThisNodeName != "node1" {
		t.Errorf("ThisNodeName = %q, want node1", got.ThisNodeName)
	}
	if len(got.UnicastRoutes) != 1 {
		t.Errorf("got %d unicast routes, want 1", len(got.UnicastRoutes))
	}
}

func TestPerfDbGet(t *testing.T) {
	c := startTestServer(t, &fakeServer{db: rtroute.NewRouteDatabase("node1")})
	got, err := c.PerfDbGet(context.Background())
	if err != nil {
		t.Fatalf("PerfDbGet: %v", err)
	}
	if len(got.Groups) != 1 || len(got.Groups[0].Events) != 1 {
		t.Errorf("unexpected perf groups: %+v", got.Groups)
	}
}

func TestDecisionStream(t *testing.T) {
	db := rtroute.NewRouteDatabase("node1")
	c := startTestServer(t, &fakeServer{db: db})

	stream, err := c.DecisionStream(context.Background())
	if err != nil {
		t.Fatalf("DecisionStream: %v", err)
	}
	got, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got.ThisNodeName != "node1" {
		t.Errorf("ThisNodeName = %q, want node1", got.ThisNodeName)
	}
}
