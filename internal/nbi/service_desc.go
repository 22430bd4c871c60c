package nbi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SimulatorServiceName is the fully qualified gRPC service name.
const SimulatorServiceName = "netviz.nbi.v1.SimulatorService"

const (
	SimulatorService_SendRandomPacket_FullMethodName = "/" + SimulatorServiceName + "/SendRandomPacket"
	SimulatorService_SendPacket_FullMethodName       = "/" + SimulatorServiceName + "/SendPacket"
	SimulatorService_GetFrame_FullMethodName         = "/" + SimulatorServiceName + "/GetFrame"
	SimulatorService_GetScene_FullMethodName         = "/" + SimulatorServiceName + "/GetScene"
	SimulatorService_GetRoutingTables_FullMethodName = "/" + SimulatorServiceName + "/GetRoutingTables"
	SimulatorService_DescribeField_FullMethodName    = "/" + SimulatorServiceName + "/DescribeField"
	SimulatorService_SelectField_FullMethodName      = "/" + SimulatorServiceName + "/SelectField"
	SimulatorService_ResetSimulation_FullMethodName  = "/" + SimulatorServiceName + "/ResetSimulation"
	SimulatorService_ListRuns_FullMethodName         = "/" + SimulatorServiceName + "/ListRuns"
)

// SimulatorServiceServer is the server API for the simulator service. All
// messages are well-known protobuf types, so no generated code is needed.
type SimulatorServiceServer interface {
	SendRandomPacket(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SendPacket(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetFrame(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetScene(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetRoutingTables(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	DescribeField(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SelectField(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ResetSimulation(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListRuns(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterSimulatorServiceServer registers srv on s.
func RegisterSimulatorServiceServer(s grpc.ServiceRegistrar, srv SimulatorServiceServer) {
	s.RegisterService(&SimulatorService_ServiceDesc, srv)
}

// SimulatorService_ServiceDesc describes the simulator service to grpc.
var SimulatorService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: SimulatorServiceName,
	HandlerType: (*SimulatorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendRandomPacket",
			Handler: unaryHandler(SimulatorService_SendRandomPacket_FullMethodName,
				SimulatorServiceServer.SendRandomPacket),
		},
		{
			MethodName: "SendPacket",
			Handler: unaryHandler(SimulatorService_SendPacket_FullMethodName,
				SimulatorServiceServer.SendPacket),
		},
		{
			MethodName: "GetFrame",
			Handler: unaryHandler(SimulatorService_GetFrame_FullMethodName,
				SimulatorServiceServer.GetFrame),
		},
		{
			MethodName: "GetScene",
			Handler: unaryHandler(SimulatorService_GetScene_FullMethodName,
				SimulatorServiceServer.GetScene),
		},
		{
			MethodName: "GetRoutingTables",
			Handler: unaryHandler(SimulatorService_GetRoutingTables_FullMethodName,
				SimulatorServiceServer.GetRoutingTables),
		},
		{
			MethodName: "DescribeField",
			Handler: unaryHandler(SimulatorService_DescribeField_FullMethodName,
				SimulatorServiceServer.DescribeField),
		},
		{
			MethodName: "SelectField",
			Handler: unaryHandler(SimulatorService_SelectField_FullMethodName,
				SimulatorServiceServer.SelectField),
		},
		{
			MethodName: "ResetSimulation",
			Handler: unaryHandler(SimulatorService_ResetSimulation_FullMethodName,
				SimulatorServiceServer.ResetSimulation),
		},
		{
			MethodName: "ListRuns",
			Handler: unaryHandler(SimulatorService_ListRuns_FullMethodName,
				SimulatorServiceServer.ListRuns),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "netviz/nbi/v1/simulator.proto",
}

// unaryHandler adapts a typed method into the shape grpc dispatches to,
// running the interceptor chain when one is installed.
func unaryHandler[Req any, PReq interface {
	*Req
	proto.Message
}](fullMethod string, call func(SimulatorServiceServer, context.Context, PReq) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SimulatorServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SimulatorServiceServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SimulatorServiceClient is the client API for the simulator service.
type SimulatorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSimulatorServiceClient wraps a client connection.
func NewSimulatorServiceClient(cc grpc.ClientConnInterface) *SimulatorServiceClient {
	return &SimulatorServiceClient{cc: cc}
}

func (c *SimulatorServiceClient) SendRandomPacket(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SimulatorService_SendRandomPacket_FullMethodName, &emptypb.Empty{}, opts...)
}

func (c *SimulatorServiceClient) SendPacket(ctx context.Context, srcIP, dstIP string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]any{"src_ip": srcIP, "dst_ip": dstIP})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, SimulatorService_SendPacket_FullMethodName, req, opts...)
}

func (c *SimulatorServiceClient) GetFrame(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SimulatorService_GetFrame_FullMethodName, &emptypb.Empty{}, opts...)
}

func (c *SimulatorServiceClient) GetScene(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SimulatorService_GetScene_FullMethodName, &emptypb.Empty{}, opts...)
}

func (c *SimulatorServiceClient) GetRoutingTables(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SimulatorService_GetRoutingTables_FullMethodName, &emptypb.Empty{}, opts...)
}

func (c *SimulatorServiceClient) DescribeField(ctx context.Context, key string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SimulatorService_DescribeField_FullMethodName, wrapperspb.String(key), opts...)
}

func (c *SimulatorServiceClient) SelectField(ctx context.Context, key string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SimulatorService_SelectField_FullMethodName, wrapperspb.String(key), opts...)
}

func (c *SimulatorServiceClient) ResetSimulation(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SimulatorService_ResetSimulation_FullMethodName, &emptypb.Empty{}, opts...)
}

func (c *SimulatorServiceClient) ListRuns(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SimulatorService_ListRuns_FullMethodName, &emptypb.Empty{}, opts...)
}

func (c *SimulatorServiceClient) invoke(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
