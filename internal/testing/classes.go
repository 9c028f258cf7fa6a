// Package testing holds message classes shared by tests in this module,
// along with a .proto file that declares the same schema for checking
// compatibility with the protobuf runtime.
package testing

import (
	"github.com/jhump/reflectcodec/dynamic"
	"github.com/jhump/reflectcodec/host"
)

// Color is an enum with a zero value and two others.
var Color = dynamic.NewEnum("test.Color", map[string]int32{
	"COLOR_UNSPECIFIED": 0,
	"RED":               1,
	"GREEN":             2,
})

// Simple is a small message used as the value of nested fields.
var Simple = dynamic.NewClass("test.Simple",
	dynamic.FieldDef{Name: "name", Number: 1, Type: host.TypeString},
	dynamic.FieldDef{Name: "id", Number: 2, Type: host.TypeUint64},
)

// Everything has one field of each kind the codec supports, plus a field
// whose type is Everything itself.
var Everything = newEverything()

func newEverything() *dynamic.Class {
	c := dynamic.NewClass("test.Everything",
		dynamic.FieldDef{Name: "b", Number: 1, Type: host.TypeBool},
		dynamic.FieldDef{Name: "i32", Number: 2, Type: host.TypeInt32},
		dynamic.FieldDef{Name: "i64", Number: 3, Type: host.TypeInt64},
		dynamic.FieldDef{Name: "u32", Number: 4, Type: host.TypeUint32},
		dynamic.FieldDef{Name: "u64", Number: 5, Type: host.TypeUint64},
		dynamic.FieldDef{Name: "s32", Number: 6, Type: host.TypeSint32},
		dynamic.FieldDef{Name: "s64", Number: 7, Type: host.TypeSint64},
		dynamic.FieldDef{Name: "f32", Number: 8, Type: host.TypeFixed32},
		dynamic.FieldDef{Name: "f64", Number: 9, Type: host.TypeFixed64},
		dynamic.FieldDef{Name: "sf32", Number: 10, Type: host.TypeSfixed32},
		dynamic.FieldDef{Name: "sf64", Number: 11, Type: host.TypeSfixed64},
		dynamic.FieldDef{Name: "fl", Number: 12, Type: host.TypeFloat},
		dynamic.FieldDef{Name: "db", Number: 13, Type: host.TypeDouble},
		dynamic.FieldDef{Name: "str", Number: 14, Type: host.TypeString},
		dynamic.FieldDef{Name: "byt", Number: 15, Type: host.TypeBytes},
		dynamic.FieldDef{Name: "color", Number: 16, Type: host.TypeEnum, Class: Color},
		dynamic.FieldDef{Name: "simple", Number: 17, Type: host.TypeMessage, Class: Simple},
		dynamic.FieldDef{Name: "nums", Number: 18, Type: host.TypeInt32, Repeated: true},
		dynamic.FieldDef{Name: "names", Number: 19, Type: host.TypeString, Repeated: true},
		dynamic.FieldDef{Name: "simples", Number: 20, Type: host.TypeMessage, Class: Simple, Repeated: true},
		dynamic.FieldDef{Name: "counts", Number: 21, Type: host.TypeMap, MapTypes: [2]string{host.TypeString, host.TypeInt32}},
		dynamic.FieldDef{Name: "by_id", Number: 22, Type: host.TypeMap, MapTypes: [2]string{host.TypeInt64, host.TypeMessage}, ValueClass: Simple},
		dynamic.FieldDef{Name: "text", Number: 23, Type: host.TypeString, Oneof: "choice"},
		dynamic.FieldDef{Name: "number", Number: 24, Type: host.TypeInt64, Oneof: "choice"},
		dynamic.FieldDef{Name: "item", Number: 25, Type: host.TypeMessage, Class: Simple, Oneof: "choice"},
		dynamic.FieldDef{Name: "opt_bool", Number: 26, Type: host.TypeMessage, Wraps: host.TypeBool},
		dynamic.FieldDef{Name: "opt_int", Number: 27, Type: host.TypeMessage, Wraps: host.TypeInt32},
		dynamic.FieldDef{Name: "opt_str", Number: 28, Type: host.TypeMessage, Wraps: host.TypeString},
		dynamic.FieldDef{Name: "opt_bytes", Number: 29, Type: host.TypeMessage, Wraps: host.TypeBytes},
		dynamic.FieldDef{Name: "elapsed", Number: 30, Type: host.TypeMessage, Class: host.DurationType},
		dynamic.FieldDef{Name: "at", Number: 31, Type: host.TypeMessage, Class: host.TimestampType},
		dynamic.FieldDef{Name: "colors", Number: 33, Type: host.TypeEnum, Class: Color, Repeated: true},
	)
	c.AddField(dynamic.FieldDef{Name: "child", Number: 32, Type: host.TypeMessage, Class: c})
	return c
}

// ReferenceProto declares Color, Simple, and Everything in proto3 syntax.
const ReferenceProto = `syntax = "proto3";

package test;

import "google/protobuf/duration.proto";
import "google/protobuf/timestamp.proto";
import "google/protobuf/wrappers.proto";

enum Color {
  COLOR_UNSPECIFIED = 0;
  RED = 1;
  GREEN = 2;
}

message Simple {
  string name = 1;
  uint64 id = 2;
}

message Everything {
  bool b = 1;
  int32 i32 = 2;
  int64 i64 = 3;
  uint32 u32 = 4;
  uint64 u64 = 5;
  sint32 s32 = 6;
  sint64 s64 = 7;
  fixed32 f32 = 8;
  fixed64 f64 = 9;
  sfixed32 sf32 = 10;
  sfixed64 sf64 = 11;
  float fl = 12;
  double db = 13;
  string str = 14;
  bytes byt = 15;
  Color color = 16;
  Simple simple = 17;
  repeated int32 nums = 18;
  repeated string names = 19;
  repeated Simple simples = 20;
  map<string, int32> counts = 21;
  map<int64, Simple> by_id = 22;
  oneof choice {
    string text = 23;
    int64 number = 24;
    Simple item = 25;
  }
  google.protobuf.BoolValue opt_bool = 26;
  google.protobuf.Int32Value opt_int = 27;
  google.protobuf.StringValue opt_str = 28;
  google.protobuf.BytesValue opt_bytes = 29;
  google.protobuf.Duration elapsed = 30;
  google.protobuf.Timestamp at = 31;
  Everything child = 32;
  repeated Color colors = 33;
}
`
