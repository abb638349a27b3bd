package handlers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of the flock.v1 services
const (
	DataCreateMethod  = "/flock.v1.Data/Create"
	DataGetMethod     = "/flock.v1.Data/Get"
	DataUpdateMethod  = "/flock.v1.Data/Update"
	DataDeleteMethod  = "/flock.v1.Data/Delete"
	DataListMethod    = "/flock.v1.Data/List"
	DataRelatedMethod = "/flock.v1.Data/Related"

	SchemaReadMethod     = "/flock.v1.Schema/Read"
	SchemaValidateMethod = "/flock.v1.Schema/Validate"
	SchemaDdlMethod      = "/flock.v1.Schema/Ddl"
)

// DataServer is the server API of flock.v1.Data
type DataServer interface {
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Related(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// SchemaServer is the server API of flock.v1.Schema
type SchemaServer interface {
	Read(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ddl(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// unary adapts a Struct-in, Struct-out method to a grpc.MethodHandler
func unary(fullMethod string, call structCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// DataServiceDesc describes flock.v1.Data
var DataServiceDesc = grpc.ServiceDesc{
	ServiceName: "flock.v1.Data",
	HandlerType: (*DataServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: unary(DataCreateMethod, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return srv.(DataServer).Create(ctx, req)
		})},
		{MethodName: "Get", Handler: unary(DataGetMethod, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return srv.(DataServer).Get(ctx, req)
		})},
		{MethodName: "Update", Handler: unary(DataUpdateMethod, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return srv.(DataServer).Update(ctx, req)
		})},
		{MethodName: "Delete", Handler: unary(DataDeleteMethod, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return srv.(DataServer).Delete(ctx, req)
		})},
		{MethodName: "List", Handler: unary(DataListMethod, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return srv.(DataServer).List(ctx, req)
		})},
		{MethodName: "Related", Handler: unary(DataRelatedMethod, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return srv.(DataServer).Related(ctx, req)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flock/v1/data.proto",
}

// SchemaServiceDesc describes flock.v1.Schema
var SchemaServiceDesc = grpc.ServiceDesc{
	ServiceName: "flock.v1.Schema",
	HandlerType: (*SchemaServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Read", Handler: unary(SchemaReadMethod, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return srv.(SchemaServer).Read(ctx, req)
		})},
		{MethodName: "Validate", Handler: unary(SchemaValidateMethod, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return srv.(SchemaServer).Validate(ctx, req)
		})},
		{MethodName: "Ddl", Handler: unary(SchemaDdlMethod, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return srv.(SchemaServer).Ddl(ctx, req)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flock/v1/schema.proto",
}

// RegisterDataServer registers the Data service on s
func RegisterDataServer(s grpc.ServiceRegistrar, srv DataServer) {
	s.RegisterService(&DataServiceDesc, srv)
}

// RegisterSchemaServer registers the Schema service on s
func RegisterSchemaServer(s grpc.ServiceRegistrar, srv SchemaServer) {
	s.RegisterService(&SchemaServiceDesc, srv)
}
