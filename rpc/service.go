// Package rpc exposes the driver over gRPC, so a checking session can be driven from another process.
//
// Requests and responses are google.protobuf.Struct messages, so no generated code is needed.
package rpc

import (
	"context"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "consensusmc.Driver"

// DriverServer is the server API of the Driver service.
type DriverServer interface {
	// Create a session with the initial snapshot described by the request.
	Initialize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// List the ids of the events enabled in the current snapshot of the session.
	Enabled(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Let the scheduler of the session apply one enabled event.
	Step(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Apply the enabled event with the requested id.
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Step until quiescence or until the requested number of steps.
	Run(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Summarize the current snapshot of the session.
	Query(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Exhaustively explore the system described by the request. Does not use a session.
	Check(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Forget the session.
	Close(context.Context, *structpb.Struct) (*empty.Empty, error)
}

// RegisterDriverServer registers the service implementation with the gRPC server.
func RegisterDriverServer(s grpc.ServiceRegistrar, srv DriverServer) {
	s.RegisterService(&driverServiceDesc, srv)
}

func unaryHandler[Resp any](method string, call func(DriverServer, context.Context, *structpb.Struct) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DriverServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(DriverServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var driverServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DriverServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Initialize", DriverServer.Initialize),
		unaryHandler("Enabled", DriverServer.Enabled),
		unaryHandler("Step", DriverServer.Step),
		unaryHandler("Apply", DriverServer.Apply),
		unaryHandler("Run", DriverServer.Run),
		unaryHandler("Query", DriverServer.Query),
		unaryHandler("Check", DriverServer.Check),
		unaryHandler("Close", DriverServer.Close),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "consensusmc/driver",
}

// Client is a client of the Driver service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Initialize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Initialize", in, opts...)
}

func (c *Client) Enabled(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Enabled", in, opts...)
}

func (c *Client) Step(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Step", in, opts...)
}

func (c *Client) Apply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Apply", in, opts...)
}

func (c *Client) Run(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Run", in, opts...)
}

func (c *Client) Query(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Query", in, opts...)
}

func (c *Client) Check(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Check", in, opts...)
}

func (c *Client) Close(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*empty.Empty, error) {
	out := new(empty.Empty)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Close", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
