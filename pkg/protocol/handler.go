package protocol

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

type unaryCall func(srv interface{}, ctx context.Context, req wireMessage) (wireMessage, error)

// unaryHandler adapts a typed server method to the handler shape
// grpc.MethodDesc expects. Interceptors see the typed messages; only the
// codec sees their protobuf form.
func unaryHandler(fullMethod string, newReq func() wireMessage, call unaryCall) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		wire := dynamicpb.NewMessage(Descriptor(in.protoName()))
		if err := dec(wire); err != nil {
			return nil, err
		}
		in.fromProto(wire)

		if interceptor == nil {
			return encode(call(srv, ctx, in))
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv, ctx, req.(wireMessage))
		}
		resp, err := interceptor(ctx, in, info, handler)
		if err != nil {
			return nil, err
		}
		out, ok := resp.(wireMessage)
		if !ok {
			return resp, nil
		}
		return encode(out, nil)
	}
}

func encode(out wireMessage, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return Marshal(out), nil
}

func invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, in, out wireMessage, opts []grpc.CallOption) error {
	reply := dynamicpb.NewMessage(Descriptor(out.protoName()))
	if err := cc.Invoke(ctx, method, Marshal(in), reply, opts...); err != nil {
		return err
	}
	out.fromProto(reply)
	return nil
}
