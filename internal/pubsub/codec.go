// Package pubsub is the inbound publication and query transport (spec
// §6.1/§6.2): a gRPC service streaming decision/interface-database
// snapshots to the reconciler and answering ROUTE_DB_GET/PERF_DB_GET/
// ROUTE_DB_UNINSTALLABLE_GET queries, in place of the upstream's raw ZMQ
// pub-sub sockets.
//
// No protobuf schema compiler is available, so messages are plain Go
// structs (rtroute.RouteDatabase, ifstatus.InterfaceDatabase) carried by a
// small JSON grpc/encoding.Codec instead of the generated proto codec --
// the same "keep gRPC, drop protobuf codegen" choice this rewrite makes for
// the agent client's transport.
package pubsub

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
