package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Message field names of the Minify call
const (
	FieldCode   = "code"
	FieldFile   = "file"
	FieldConfig = "config"
)

const minifyMethod = "/terser.v1.Minifier/Minify"

// MinifierServer is the server API of the terser.v1.Minifier service.
// Requests carry code, file and config; responses carry code.
type MinifierServer interface {
	Minify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// MinifierServiceDesc describes the terser.v1.Minifier service. Messages are
// well-known Struct values so no generated code is needed on either side.
var MinifierServiceDesc = grpc.ServiceDesc{
	ServiceName: "terser.v1.Minifier",
	HandlerType: (*MinifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Minify",
			Handler:    minifyHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "terser/v1/minifier.proto",
}

// RegisterMinifierServer registers srv on s
func RegisterMinifierServer(s grpc.ServiceRegistrar, srv MinifierServer) {
	s.RegisterService(&MinifierServiceDesc, srv)
}

func minifyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MinifierServer).Minify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: minifyMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MinifierServer).Minify(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
