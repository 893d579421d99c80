// Command fibagentd runs the FIB Reconciler: it subscribes to
// decision-engine and link-monitor publications, reconciles them into a
// RouteDatabase, and drives the result to either a downstream forwarding
// agent or the local kernel, exposing the result over gRPC for
// ROUTE_DB_GET/PERF_DB_GET/ROUTE_DB_UNINSTALLABLE_GET and the
// DecisionStream/LinkMonitorStream subscriptions.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"github.com/urantialife/openr/constants"
	"github.com/urantialife/openr/internal/agentclient"
	"github.com/urantialife/openr/internal/config"
	"github.com/urantialife/openr/internal/nlagent"
	"github.com/urantialife/openr/internal/pubsub"
	"github.com/urantialife/openr/internal/reconciler"
	"github.com/urantialife/openr/internal/store"
)

func main() {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "fibagentd",
		Short: "FIB Reconciler daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config.FromViper(v))
		},
	}
	config.BindFlags(cmd, v)

	if err := cmd.Execute(); err != nil {
		log.Exitf("fibagentd: %v", err)
	}
}

func run(cfg config.Config) error {
	if err := flag.Set("v", strconv.Itoa(cfg.LogVerbosity)); err != nil {
		return fmt.Errorf("set glog verbosity: %w", err)
	}

	st, err := store.Open(cfg.PersistentStorePath, constants.StoreDebounceInitial, constants.StoreDebounceMax)
	if err != nil {
		return fmt.Errorf("open persistent store: %w", err)
	}
	defer st.Close()

	backend, closeBackend, err := buildBackend(cfg)
	if err != nil {
		return fmt.Errorf("build agent backend: %w", err)
	}
	defer closeBackend()

	r := reconciler.New(cfg, backend, st)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ListenPort))
	if err != nil {
		return fmt.Errorf("listen on :%d: %w", cfg.ListenPort, err)
	}
	grpcServer := grpc.NewServer()
	pubsub.RegisterServer(grpcServer, reconciler.NewPubSubServer(r))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		log.Infof("fibagentd: reconciler running for node %q", cfg.NodeName)
		errCh <- r.Run(ctx)
	}()
	go func() {
		log.Infof("fibagentd: gRPC service listening on %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("fibagentd: received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Errorf("fibagentd: component exited: %v", err)
		}
	}

	grpcServer.GracefulStop()
	cancel()
	return nil
}

// buildBackend picks the reconciler's AgentBackend per cfg: either a direct
// NETLINK_ROUTE socket to the local kernel, or an HTTP+JSON client to a
// separate downstream forwarding agent.
func buildBackend(cfg config.Config) (reconciler.AgentBackend, func(), error) {
	if cfg.UseKernelNetlink {
		nl, err := nlagent.New()
		if err != nil {
			return nil, nil, err
		}
		return nl, nl.Close, nil
	}
	c := agentclient.New(cfg.AgentHost, cfg.AgentPort)
	return c, c.Close, nil
}
