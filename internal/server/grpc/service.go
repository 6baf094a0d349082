package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the record service. Messages
// are structpb.Struct documents; see wire.go for their shape.
const ServiceName = "gns.records.RecordStore"

const (
	methodCreate     = "Create"
	methodReadField  = "ReadField"
	methodReadRecord = "ReadRecord"
	methodUpdate     = "Update"
	methodDelete     = "Delete"
	methodKeys       = "Keys"
)

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// RecordStoreServer is implemented by GRPCServer.
type RecordStoreServer interface {
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReadField(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReadRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Keys(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(RecordStoreServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RecordStoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RecordStoreServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RecordStoreServiceDesc describes the record service to grpc.Server.
var RecordStoreServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(methodCreate, RecordStoreServer.Create),
		unaryHandler(methodReadField, RecordStoreServer.ReadField),
		unaryHandler(methodReadRecord, RecordStoreServer.ReadRecord),
		unaryHandler(methodUpdate, RecordStoreServer.Update),
		unaryHandler(methodDelete, RecordStoreServer.Delete),
		unaryHandler(methodKeys, RecordStoreServer.Keys),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gns/records.proto",
}
