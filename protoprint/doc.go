// Package protoprint generates protobuf source code from descriptors.
//
// Combined with package protodescs, it turns the reflected schema of host
// message classes into proto IDL that other protobuf tooling can compile.
// The printer covers what exported schemas use: proto2 and proto3 files with
// messages, enums, oneofs, maps, and the packed and allow_alias options.
// Comments and custom options are not printed.
package protoprint
