package handlers

import (
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

func TestServiceDescriptorsRegistered(t *testing.T) {
	for _, desc := range []*grpc.ServiceDesc{&DataServiceDesc, &SchemaServiceDesc} {
		t.Run(desc.ServiceName, func(t *testing.T) {
			d, err := protoregistry.GlobalFiles.FindDescriptorByName(protoreflect.FullName(desc.ServiceName))
			if err != nil {
				t.Fatalf("FindDescriptorByName() error = %v", err)
			}
			sd, ok := d.(protoreflect.ServiceDescriptor)
			if !ok {
				t.Fatalf("expected a service descriptor, got %T", d)
			}
			if got := string(sd.ParentFile().Path()); got != desc.Metadata {
				t.Errorf("file path = %s, want %v", got, desc.Metadata)
			}

			methods := sd.Methods()
			if methods.Len() != len(desc.Methods) {
				t.Fatalf("expected %d methods, got %d", len(desc.Methods), methods.Len())
			}
			for _, m := range desc.Methods {
				md := methods.ByName(protoreflect.Name(m.MethodName))
				if md == nil {
					t.Errorf("method %s missing from descriptor", m.MethodName)
					continue
				}
				if md.Input().FullName() != "google.protobuf.Struct" || md.Output().FullName() != "google.protobuf.Struct" {
					t.Errorf("%s: expected Struct in and out, got %s / %s", m.MethodName, md.Input().FullName(), md.Output().FullName())
				}
			}
		})
	}
}
