package handlers

import (
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const structMessage = ".google.protobuf.Struct"

// The service descriptors are registered in the global file registry so the
// reflection service can describe flock.v1.Data and flock.v1.Schema.
func init() {
	for _, desc := range []*grpc.ServiceDesc{&DataServiceDesc, &SchemaServiceDesc} {
		if err := registerServiceFile(protoregistry.GlobalFiles, desc); err != nil {
			panic(err)
		}
	}
}

// serviceFile builds the .proto file named by desc.Metadata. Every method
// takes and returns a google.protobuf.Struct.
func serviceFile(desc *grpc.ServiceDesc) *descriptorpb.FileDescriptorProto {
	pkg, service := desc.ServiceName, desc.ServiceName
	if i := strings.LastIndex(desc.ServiceName, "."); i >= 0 {
		pkg, service = desc.ServiceName[:i], desc.ServiceName[i+1:]
	}

	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(desc.Methods))
	for _, m := range desc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structMessage),
			OutputType: proto.String(structMessage),
		})
	}

	path, _ := desc.Metadata.(string)
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(path),
		Package:    proto.String(pkg),
		Dependency: []string{"google/protobuf/struct.proto"},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String(service),
			Method: methods,
		}},
		Options: &descriptorpb.FileOptions{GoPackage: proto.String("github.com/flockhq/flock/internal/handlers")},
	}
}

func registerServiceFile(files *protoregistry.Files, desc *grpc.ServiceDesc) error {
	fd, err := protodesc.NewFile(serviceFile(desc), files)
	if err != nil {
		return fmt.Errorf("failed to build descriptor for %s: %w", desc.ServiceName, err)
	}
	if err := files.RegisterFile(fd); err != nil {
		return fmt.Errorf("failed to register descriptor for %s: %w", desc.ServiceName, err)
	}
	return nil
}
