package testing

import (
	"context"
	"fmt"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Compile compiles the named file from the given sources, which may import
// the standard well-known files, and returns its descriptor.
func Compile(ctx context.Context, name string, sources map[string]string) (protoreflect.FileDescriptor, error) {
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(sources),
		}),
	}
	fds, err := compiler.Compile(ctx, name)
	if err != nil {
		return nil, err
	}
	return fds[0], nil
}

// ReferenceMessage returns the descriptor of the named message in the
// compiled form of ReferenceProto.
func ReferenceMessage(ctx context.Context, name protoreflect.Name) (protoreflect.MessageDescriptor, error) {
	fd, err := Compile(ctx, "test.proto", map[string]string{"test.proto": ReferenceProto})
	if err != nil {
		return nil, err
	}
	md := fd.Messages().ByName(name)
	if md == nil {
		return nil, fmt.Errorf("no message named %q in test.proto", name)
	}
	return md, nil
}
