package protodescs

import (
	"fmt"

	"google.golang.org/protobuf/types/descriptorpb"
)

// SortFiles topologically sorts the given file descriptor protos, so that
// every file appears after the files it imports. It returns an error if the
// given files include duplicates (more than one entry with the same path),
// if any of the files refer to imports which are not present in the given
// files, or if the imports form a cycle.
func SortFiles(files []*descriptorpb.FileDescriptorProto) error {
	byName := make(map[string]*descriptorpb.FileDescriptorProto, len(files))
	for _, f := range files {
		if _, ok := byName[f.GetName()]; ok {
			return fmt.Errorf("duplicate file %q", f.GetName())
		}
		byName[f.GetName()] = f
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(files))
	sorted := make([]*descriptorpb.FileDescriptorProto, 0, len(files))
	var visit func(f *descriptorpb.FileDescriptorProto) error
	visit = func(f *descriptorpb.FileDescriptorProto) error {
		switch state[f.GetName()] {
		case visiting:
			return fmt.Errorf("import cycle involving %q", f.GetName())
		case done:
			return nil
		}
		state[f.GetName()] = visiting
		for _, dep := range f.GetDependency() {
			d, ok := byName[dep]
			if !ok {
				return fmt.Errorf("file %q imports %q, but %q is not present", f.GetName(), dep, dep)
			}
			if err := visit(d); err != nil {
				return err
			}
		}
		state[f.GetName()] = done
		sorted = append(sorted, f)
		return nil
	}
	for _, f := range files {
		if err := visit(f); err != nil {
			return err
		}
	}
	copy(files, sorted)
	return nil
}
