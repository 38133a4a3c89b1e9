package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"liyu1981.xyz/iwown-health-service/pkg/iot"
)

const DashboardServiceName = "iwown.dashboard.v1.DashboardService"

// DashboardServiceServer mirrors the HTTP dashboard reads. Every answer is the
// same envelope the HTTP API returns, carried as a google.protobuf.Struct.
type DashboardServiceServer interface {
	ListDevices(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetDeviceHealth(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetDeviceAlarms(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetDeviceSos(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

type DashboardServer struct {
	Iot *iot.IOT
}

var _ DashboardServiceServer = (*DashboardServer)(nil)

func RegisterDashboardServiceServer(s grpc.ServiceRegistrar, srv DashboardServiceServer) {
	s.RegisterService(&DashboardServiceDesc, srv)
}

func unaryHandler[Req any](method string, newReq func() *Req, call func(DashboardServiceServer, context.Context, *Req) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DashboardServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + DashboardServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DashboardServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newEmpty() *emptypb.Empty             { return &emptypb.Empty{} }
func newDeviceID() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }

var DashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardServiceName,
	HandlerType: (*DashboardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ListDevices", newEmpty, DashboardServiceServer.ListDevices),
		unaryHandler("GetStats", newEmpty, DashboardServiceServer.GetStats),
		unaryHandler("GetDeviceHealth", newDeviceID, DashboardServiceServer.GetDeviceHealth),
		unaryHandler("GetDeviceAlarms", newDeviceID, DashboardServiceServer.GetDeviceAlarms),
		unaryHandler("GetDeviceSos", newDeviceID, DashboardServiceServer.GetDeviceSos),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "iwown/dashboard/v1/dashboard.proto",
}

// DashboardClient calls DashboardService over any client connection.
type DashboardClient struct {
	cc grpc.ClientConnInterface
}

func NewDashboardClient(cc grpc.ClientConnInterface) *DashboardClient {
	return &DashboardClient{cc: cc}
}

func (c *DashboardClient) invoke(ctx context.Context, method string, in any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, "/"+DashboardServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardClient) ListDevices(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListDevices", &emptypb.Empty{}, opts...)
}

func (c *DashboardClient) GetStats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetStats", &emptypb.Empty{}, opts...)
}

func (c *DashboardClient) GetDeviceHealth(ctx context.Context, deviceID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetDeviceHealth", wrapperspb.String(deviceID), opts...)
}

func (c *DashboardClient) GetDeviceAlarms(ctx context.Context, deviceID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetDeviceAlarms", wrapperspb.String(deviceID), opts...)
}

func (c *DashboardClient) GetDeviceSos(ctx context.Context, deviceID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetDeviceSos", wrapperspb.String(deviceID), opts...)
}
