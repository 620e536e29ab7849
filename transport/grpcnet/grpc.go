package grpcnet

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// DHTServer is the server API for the DHT lookup service.
//
// Messages are protobuf well-known types so the package needs no codegen:
// the request is a Struct with msg_id, dna_hash, from_agent_id and address,
// the reply is the raw record bytes.
type DHTServer interface {
	GetDht(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

// UnimplementedDHTServer can be embedded to have forward compatible implementations.
type UnimplementedDHTServer struct{}

func (UnimplementedDHTServer) GetDht(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDht not implemented")
}

// RegisterDHTServer registers the DHT service on a gRPC server.
func RegisterDHTServer(s grpc.ServiceRegistrar, srv DHTServer) {
	s.RegisterService(&DHT_ServiceDesc, srv)
}

// DHTClient is the client API for the DHT lookup service.
type DHTClient interface {
	GetDht(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

const getDhtMethod = "/xdao.casnet.dht.v1.DHT/GetDht"

type dhtClient struct{ cc grpc.ClientConnInterface }

func NewDHTClient(cc grpc.ClientConnInterface) DHTClient { return &dhtClient{cc: cc} }

func (c *dhtClient) GetDht(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, getDhtMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _DHT_GetDht_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DHTServer).GetDht(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getDhtMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DHTServer).GetDht(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// DHT_ServiceDesc is the grpc.ServiceDesc for the DHT service.
var DHT_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "xdao.casnet.dht.v1.DHT",
	HandlerType: (*DHTServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDht", Handler: _DHT_GetDht_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dht.proto",
}
