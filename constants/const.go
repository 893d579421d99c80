// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package constants defines constants that are shared amongst multiple
// packages of the FIB reconciler and netlink encoder.
package constants

import "time"

const (
	// PlatformHost is the host on which the downstream forwarding agent is
	// assumed to be listening.
	PlatformHost = "localhost"

	// PlatformConnTimeout bounds how long dialing the forwarding agent may
	// take before it is considered failed.
	PlatformConnTimeout = 1 * time.Second

	// PlatformProcTimeout bounds the duration of a single RPC to the
	// forwarding agent (add/delete/sync/aliveSince).
	PlatformProcTimeout = 5 * time.Second

	// HealthCheckInterval is the period on which aliveSince() is polled to
	// detect forwarding-agent restarts.
	HealthCheckInterval = 20 * time.Second

	// PlatformSyncInterval is the period of the optional periodic full sync.
	PlatformSyncInterval = 60 * time.Second

	// ColdStartDuration is the default delay before the first full sync,
	// used to let initial decision/interface snapshots accumulate.
	ColdStartDuration = 5 * time.Second

	// ExpBackoffInitial and ExpBackoffMax bound the reconciler's retry
	// backoff for failed full syncs.
	ExpBackoffInitial = 8 * time.Millisecond
	ExpBackoffMax     = 4096 * time.Millisecond

	// ReadTimeout bounds a single read of a decision/interface publication.
	ReadTimeout = 1 * time.Second

	// MonitorSubmitInterval is the period on which counters are flushed.
	MonitorSubmitInterval = 10 * time.Second

	// PerfBufferSize bounds the number of retained convergence traces
	// returned by PERF_DB_GET.
	PerfBufferSize = 10

	// ConvergenceMaxDuration discards perf-event traces that look bogus
	// (clock skew, negative duration) rather than polluting counters.
	ConvergenceMaxDuration = 3 * time.Minute

	// FibTimeMarkerPrefix is the persistent-store key prefix under which
	// per-node route-programming duration is recorded when ordered FIB
	// programming is enabled.
	FibTimeMarkerPrefix = "fib-time-marker-"

	// StoreDebounceInitial and StoreDebounceMax bound the PersistentStore's
	// write-debounce backoff.
	StoreDebounceInitial = 100 * time.Millisecond
	StoreDebounceMax     = 5 * time.Second

	// MaxNlPayloadSize bounds a single netlink route message, mirroring the
	// fixed-size buffer the spec's Netlink Message Buffer is built around.
	MaxNlPayloadSize = 4096

	// MaxMPLSLabels bounds the number of labels a single PUSH nexthop may
	// stack, matching the kernel's own MPLS label-stack depth limit.
	MaxMPLSLabels = 16

	// DefaultAgentPort is the default TCP port the forwarding agent's RPC
	// endpoint listens on.
	DefaultAgentPort = 60100

	// DefaultPubSubPort is the default TCP port fibagentd's own gRPC
	// service (decision/link-monitor streams, ROUTE_DB_GET and friends)
	// listens on.
	DefaultPubSubPort = 60101
)
