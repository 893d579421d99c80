// Package agentclient is the Agent Client (C6, spec §4.5): it carries
// route add/delete and full-sync calls to the downstream forwarding agent,
// and polls its liveness via aliveSince().
//
// The upstream agent speaks Thrift over a framed TCP socket. With no protoc
// or thrift codegen step available, this implementation instead models the
// RPC the way moby-libnetwork's remote network-driver plugin talks to an
// external driver (drivers/remote/driver.go): one JSON-bodied HTTP POST per
// call, over a docker/go-connections-dialed transport.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/docker/go-connections/sockets"

	log "github.com/golang/glog"

	"github.com/urantialife/openr/constants"
	"github.com/urantialife/openr/internal/rtroute"
)

// Client talks to one downstream forwarding agent over HTTP+JSON. It is
// driven exclusively from the reconciler's single event-loop goroutine, so
// it carries no internal locking.
type Client struct {
	host    string
	port    int
	baseURL string
	http    *http.Client
}

// New dials host:port using a pooled, keep-alive transport built the same
// way docker/go-connections configures a plugin client's transport.
func New(host string, port int) *Client {
	c := &Client{
		host:    host,
		port:    port,
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
	}
	c.dial()
	return c
}

// dial (re)builds the HTTP transport/client for the current host:port.
func (c *Client) dial() {
	transport := &http.Transport{}
	if err := sockets.ConfigureTransport(transport, "tcp", fmt.Sprintf("%s:%d", c.host, c.port)); err != nil {
		log.Warningf("agentclient: failed to configure transport for %s:%d: %v", c.host, c.port, err)
	}
	c.http = &http.Client{
		Transport: transport,
		Timeout:   constants.PlatformProcTimeout,
	}
}

// addUnicastRoutesRequest/addMplsRoutesRequest etc. mirror the upstream
// Thrift struct shapes closely enough that a real forwarding agent speaking
// this JSON dialect needs no further translation layer.
type unicastRoutesRequest struct {
	ClientID int32           `json:"client_id"`
	Routes   []rtroute.Route `json:"routes"`
}

type unicastRoutesDeleteRequest struct {
	ClientID int32                 `json:"client_id"`
	Dests    []rtroute.Destination `json:"dests"`
}

type mplsRoutesRequest struct {
	ClientID int32           `json:"client_id"`
	Routes   []rtroute.Route `json:"routes"`
}

type mplsRoutesDeleteRequest struct {
	ClientID int32    `json:"client_id"`
	Labels   []uint32 `json:"labels"`
}

type aliveSinceResponse struct {
	AliveSince int64 `json:"alive_since"`
}

// clientID identifies this agent as the owner of the routes it installs,
// matching the upstream's fixed FIB_AGENT client ID.
const clientID = 786 // FIB_AGENT_CLIENT_ID in the upstream Thrift IDL

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("agentclient: marshal request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("agentclient: build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.http.Transport.(*http.Transport).CloseIdleConnections()
		return fmt.Errorf("agentclient: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agentclient: %s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// AddUnicastRoutes installs/replaces the given unicast routes.
func (c *Client) AddUnicastRoutes(ctx context.Context, routes []rtroute.Route) error {
	return c.post(ctx, "/addUnicastRoutes", unicastRoutesRequest{ClientID: clientID, Routes: routes}, nil)
}

// DeleteUnicastRoutes removes the given unicast destinations.
func (c *Client) DeleteUnicastRoutes(ctx context.Context, dests []rtroute.Destination) error {
	return c.post(ctx, "/deleteUnicastRoutes", unicastRoutesDeleteRequest{ClientID: clientID, Dests: dests}, nil)
}

// AddMplsRoutes installs/replaces the given MPLS label routes.
func (c *Client) AddMplsRoutes(ctx context.Context, routes []rtroute.Route) error {
	return c.post(ctx, "/addMplsRoutes", mplsRoutesRequest{ClientID: clientID, Routes: routes}, nil)
}

// DeleteMplsRoutes removes the given MPLS labels.
func (c *Client) DeleteMplsRoutes(ctx context.Context, labels []uint32) error {
	return c.post(ctx, "/deleteMplsRoutes", mplsRoutesDeleteRequest{ClientID: clientID, Labels: labels}, nil)
}

// SyncFib replaces the agent's entire unicast FIB with routes, used for the
// reconciler's full-sync path.
func (c *Client) SyncFib(ctx context.Context, routes []rtroute.Route) error {
	return c.post(ctx, "/syncFib", unicastRoutesRequest{ClientID: clientID, Routes: routes}, nil)
}

// SyncMplsFib replaces the agent's entire MPLS FIB with routes.
func (c *Client) SyncMplsFib(ctx context.Context, routes []rtroute.Route) error {
	return c.post(ctx, "/syncMplsFib", mplsRoutesRequest{ClientID: clientID, Routes: routes}, nil)
}

// AliveSince returns the forwarding agent's boot/restart timestamp. The FIB
// reconciler polls this to detect agent restarts (spec §4.4): a value
// different from the last observed one means the downstream FIB was wiped
// and a full sync is required.
func (c *Client) AliveSince(ctx context.Context) (int64, error) {
	var out aliveSinceResponse
	if err := c.post(ctx, "/aliveSince", struct{}{}, &out); err != nil {
		return 0, err
	}
	return out.AliveSince, nil
}

// Close tears down idle connections. fibagentd calls it on shutdown;
// Reconnect calls it before rebuilding the transport.
func (c *Client) Close() {
	if t, ok := c.http.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

// Reconnect tears down and rebuilds the HTTP transport in place, mirroring
// createFibClient's "tear down and redial" behavior when the existing
// connection is found to be hung up or otherwise not good. ctx is unused
// (there is no handshake to bound) but kept to satisfy reconciler.AgentBackend.
func (c *Client) Reconnect(_ context.Context) error {
	c.Close()
	log.Infof("agentclient: reconnecting to %s:%d", c.host, c.port)
	c.dial()
	return nil
}
