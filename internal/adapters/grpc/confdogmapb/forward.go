// Package confdogmapb is the internal leader-forwarding RPC surface
// described by forward.proto. The real Lerian/midaz components ship
// protoc-generated *_grpc.pb.go and *.pb.go pairs (see
// components/ledger/proto/account for the shape this package's
// *_grpc.go file mirrors); this exercise never invokes the Go toolchain,
// so there is no protoc run to produce the message-side *.pb.go (its
// wire format depends on a compiled FileDescriptorProto that cannot be
// authored by hand). Rather than ship a fabricated, unverifiable
// descriptor, the message types here are plain structs carried over
// grpc's pluggable codec (see codec.go) using a registered JSON codec
// instead of the default proto codec — still real
// google.golang.org/grpc transport, framing, and service dispatch, with
// forward.proto kept as the canonical interface contract.
package confdogmapb

// ForwardRequest carries a serialized command.Command to the leader.
type ForwardRequest struct {
	CommandJSON []byte `json:"command_json"`
}

// ForwardResponse carries back a serialized command.Result, or an
// apperr.Kind/message pair if the leader rejected the command.
type ForwardResponse struct {
	ResultJSON   []byte `json:"result_json,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// SchemaRequest/SchemaResponse, PluginRequest/PluginResponse, and
// NamedQueryRequest/NamedQueryResponse are the Thrift-legacy surface: type
// shapes kept for compatibility, every server implementation returns
// Unimplemented (see UnimplementedForwarderServer).
type (
	SchemaRequest struct {
		Project    string `json:"project"`
		Repository string `json:"repository"`
	}

	SchemaResponse struct {
		SchemaJSON []byte `json:"schema_json"`
	}

	PluginRequest struct {
		Name     string `json:"name"`
		ArgsJSON []byte `json:"args_json"`
	}

	PluginResponse struct {
		ResultJSON []byte `json:"result_json"`
	}

	NamedQueryRequest struct {
		Name       string `json:"name"`
		ParamsJSON []byte `json:"params_json"`
	}

	NamedQueryResponse struct {
		ResultJSON []byte `json:"result_json"`
	}
)
