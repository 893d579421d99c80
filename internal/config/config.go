// Package config defines the typed configuration the fibagentd command
// populates via cobra flags bound through viper (spec §6.3's configuration
// options), the same flag/viper wiring pattern the teacher pack's CLI
// surfaces use.
package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/urantialife/openr/constants"
)

// Config holds every knob the FIB reconciler and its collaborators read at
// startup. It is populated once, in main, and passed down by value.
type Config struct {
	NodeName string

	Dryrun                bool
	EnableFibSync         bool
	EnableSegmentRouting  bool
	EnableOrderedFib      bool

	ColdStartDuration time.Duration
	PlatformSyncInterval time.Duration

	AgentHost string
	AgentPort int

	UseKernelNetlink bool
	ListenPort       int

	PersistentStorePath string
	LogVerbosity        int
}

// Default returns a Config seeded with the same defaults the original
// agent ships with.
func Default() Config {
	return Config{
		NodeName:             "node1",
		EnableFibSync:         true,
		ColdStartDuration:     constants.ColdStartDuration,
		PlatformSyncInterval:  constants.PlatformSyncInterval,
		AgentHost:             constants.PlatformHost,
		AgentPort:             constants.DefaultAgentPort,
		ListenPort:            constants.DefaultPubSubPort,
		PersistentStorePath:   "/tmp/fib_agent.store",
		LogVerbosity:          1,
	}
}

// BindFlags registers every Config field as a persistent flag on cmd and
// binds it into v, so flags and environment variables (FIBAGENT_*) both
// resolve through the same viper.Viper. No config file is read.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	d := Default()
	flags := cmd.PersistentFlags()

	flags.String("node_name", d.NodeName, "name of this node, used to key published databases")
	flags.Bool("dryrun", d.Dryrun, "compute deltas but suppress all agent RPCs and netlink sends")
	flags.Bool("enable_fib_sync", d.EnableFibSync, "enable the periodic full sync every platform_sync_interval")
	flags.Bool("enable_segment_routing", d.EnableSegmentRouting, "send MPLS label routes to the agent (segment routing)")
	flags.Bool("enable_ordered_fib", d.EnableOrderedFib, "defer to ordered-FIB-update mode rather than best-effort")
	flags.Duration("cold_start_duration", d.ColdStartDuration, "delay before the first full sync after startup")
	flags.Duration("platform_sync_interval", d.PlatformSyncInterval, "period of the optional periodic full sync")
	flags.String("agent_host", d.AgentHost, "host of the downstream forwarding agent")
	flags.Int("agent_port", d.AgentPort, "port of the downstream forwarding agent")
	flags.Bool("use_kernel_netlink", d.UseKernelNetlink, "program the local kernel FIB directly over netlink instead of the forwarding agent")
	flags.Int("listen_port", d.ListenPort, "port this daemon's own gRPC pub-sub/query service listens on")
	flags.String("persistent_store_path", d.PersistentStorePath, "path of the on-disk persistent store file")
	flags.Int("log_verbosity", d.LogVerbosity, "glog verbosity level")

	v.BindPFlags(flags)
	v.SetEnvPrefix("fibagent")
	v.AutomaticEnv()
}

// FromViper reads every bound key back out of v into a Config.
func FromViper(v *viper.Viper) Config {
	return Config{
		NodeName:             v.GetString("node_name"),
		Dryrun:               v.GetBool("dryrun"),
		EnableFibSync:        v.GetBool("enable_fib_sync"),
		EnableSegmentRouting: v.GetBool("enable_segment_routing"),
		EnableOrderedFib:     v.GetBool("enable_ordered_fib"),
		ColdStartDuration:    v.GetDuration("cold_start_duration"),
		PlatformSyncInterval: v.GetDuration("platform_sync_interval"),
		AgentHost:            v.GetString("agent_host"),
		AgentPort:            v.GetInt("agent_port"),
		UseKernelNetlink:     v.GetBool("use_kernel_netlink"),
		ListenPort:           v.GetInt("listen_port"),
		PersistentStorePath:  v.GetString("persistent_store_path"),
		LogVerbosity:         v.GetInt("log_verbosity"),
	}
}
