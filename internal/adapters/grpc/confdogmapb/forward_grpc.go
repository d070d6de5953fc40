// Hand-authored in the shape protoc-gen-go-grpc would produce from
// forward.proto — not run through protoc, see forward.go's package doc for
// why.
package confdogmapb

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

const (
	Forwarder_Forward_FullMethodName    = "/confdogmapb.Forwarder/Forward"
	Forwarder_Schema_FullMethodName     = "/confdogmapb.Forwarder/Schema"
	Forwarder_Plugin_FullMethodName     = "/confdogmapb.Forwarder/Plugin"
	Forwarder_NamedQuery_FullMethodName = "/confdogmapb.Forwarder/NamedQuery"
)

// ForwarderClient is the client API for the Forwarder service.
type ForwarderClient interface {
	Forward(ctx context.Context, in *ForwardRequest, opts ...grpc.CallOption) (*ForwardResponse, error)
	Schema(ctx context.Context, in *SchemaRequest, opts ...grpc.CallOption) (*SchemaResponse, error)
	Plugin(ctx context.Context, in *PluginRequest, opts ...grpc.CallOption) (*PluginResponse, error)
	NamedQuery(ctx context.Context, in *NamedQueryRequest, opts ...grpc.CallOption) (*NamedQueryResponse, error)
}

type forwarderClient struct {
	cc grpc.ClientConnInterface
}

// NewForwarderClient wraps cc. Every call is made with the json codec
// subtype, since this package has no registered proto codec for its
// message types.
func NewForwarderClient(cc grpc.ClientConnInterface) ForwarderClient {
	return &forwarderClient{cc}
}

func (c *forwarderClient) Forward(ctx context.Context, in *ForwardRequest, opts ...grpc.CallOption) (*ForwardResponse, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(ForwardResponse)

	if err := c.cc.Invoke(ctx, Forwarder_Forward_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *forwarderClient) Schema(ctx context.Context, in *SchemaRequest, opts ...grpc.CallOption) (*SchemaResponse, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(SchemaResponse)

	if err := c.cc.Invoke(ctx, Forwarder_Schema_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *forwarderClient) Plugin(ctx context.Context, in *PluginRequest, opts ...grpc.CallOption) (*PluginResponse, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(PluginResponse)

	if err := c.cc.Invoke(ctx, Forwarder_Plugin_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *forwarderClient) NamedQuery(ctx context.Context, in *NamedQueryRequest, opts ...grpc.CallOption) (*NamedQueryResponse, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(NamedQueryResponse)

	if err := c.cc.Invoke(ctx, Forwarder_NamedQuery_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// ForwarderServer is the server API for the Forwarder service. All
// implementations must embed UnimplementedForwarderServer for forward
// compatibility.
type ForwarderServer interface {
	Forward(context.Context, *ForwardRequest) (*ForwardResponse, error)
	Schema(context.Context, *SchemaRequest) (*SchemaResponse, error)
	Plugin(context.Context, *PluginRequest) (*PluginResponse, error)
	NamedQuery(context.Context, *NamedQueryRequest) (*NamedQueryResponse, error)
	mustEmbedUnimplementedForwarderServer()
}

// UnimplementedForwarderServer must be embedded to have forward compatible
// implementations. Schema/Plugin/NamedQuery are the Thrift-legacy surface;
// this base implementation is what makes them Unimplemented unless a
// server type overrides one explicitly.
type UnimplementedForwarderServer struct{}

func (UnimplementedForwarderServer) Forward(context.Context, *ForwardRequest) (*ForwardResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Forward not implemented")
}

func (UnimplementedForwarderServer) Schema(context.Context, *SchemaRequest) (*SchemaResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Schema not implemented")
}

func (UnimplementedForwarderServer) Plugin(context.Context, *PluginRequest) (*PluginResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Plugin not implemented")
}

func (UnimplementedForwarderServer) NamedQuery(context.Context, *NamedQueryRequest) (*NamedQueryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method NamedQuery not implemented")
}

func (UnimplementedForwarderServer) mustEmbedUnimplementedForwarderServer() {}

// RegisterForwarderServer registers srv with s.
func RegisterForwarderServer(s grpc.ServiceRegistrar, srv ForwarderServer) {
	s.RegisterService(&Forwarder_ServiceDesc, srv)
}

func _Forwarder_Forward_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ForwardRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ForwarderServer).Forward(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Forwarder_Forward_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForwarderServer).Forward(ctx, req.(*ForwardRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func _Forwarder_Schema_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SchemaRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ForwarderServer).Schema(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Forwarder_Schema_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForwarderServer).Schema(ctx, req.(*SchemaRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func _Forwarder_Plugin_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PluginRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ForwarderServer).Plugin(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Forwarder_Plugin_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForwarderServer).Plugin(ctx, req.(*PluginRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func _Forwarder_NamedQuery_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(NamedQueryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ForwarderServer).NamedQuery(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Forwarder_NamedQuery_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForwarderServer).NamedQuery(ctx, req.(*NamedQueryRequest))
	}

	return interceptor(ctx, in, info, handler)
}

// Forwarder_ServiceDesc is the grpc.ServiceDesc for the Forwarder service.
var Forwarder_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "confdogmapb.Forwarder",
	HandlerType: (*ForwarderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Forward", Handler: _Forwarder_Forward_Handler},
		{MethodName: "Schema", Handler: _Forwarder_Schema_Handler},
		{MethodName: "Plugin", Handler: _Forwarder_Plugin_Handler},
		{MethodName: "NamedQuery", Handler: _Forwarder_NamedQuery_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "confdogmapb/forward.proto",
}
