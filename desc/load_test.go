package desc_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhump/reflectcodec/desc"
	"github.com/jhump/reflectcodec/host"
	prototesting "github.com/jhump/reflectcodec/internal/testing"
	"github.com/jhump/reflectcodec/protoerr"
)

// metaClass is a host class backed by a hand-built metadata container.
type metaClass struct {
	name    string
	meta    *host.Meta
	newErr  error
	metaErr error
}

func (c *metaClass) TypeName() string { return c.name }

func (c *metaClass) New() (host.Message, error) {
	if c.newErr != nil {
		return nil, c.newErr
	}
	return &metaMessage{cls: c}, nil
}

type metaMessage struct {
	cls *metaClass
}

func (m *metaMessage) Class() host.Class                 { return m.cls }
func (m *metaMessage) Meta() (*host.Meta, error)         { return m.cls.meta, m.cls.metaErr }
func (m *metaMessage) Get(string) (any, error)           { return nil, nil }
func (m *metaMessage) Set(string, any) error             { return nil }
func (m *metaMessage) WhichOneof(string) (string, error) { return "", nil }

type namedType string

func (n namedType) TypeName() string { return string(n) }

// newMeta returns metadata for the given fields, each with a generator
// producing nil.
func newMeta(fields map[string]host.FieldMeta) *host.Meta {
	m := &host.Meta{
		ClsByField:        map[string]host.Type{},
		MetaByFieldName:   fields,
		OneofGroupByField: map[string]string{},
		DefaultGen:        map[string]func() any{},
	}
	for name := range fields {
		m.DefaultGen[name] = func() any { return nil }
	}
	return m
}

func TestReflect_Errors(t *testing.T) {
	testCases := []struct {
		name string
		cls  func() *metaClass
		kind protoerr.Kind
	}{
		{
			name: "duplicate number",
			cls: func() *metaClass {
				return &metaClass{meta: newMeta(map[string]host.FieldMeta{
					"a": {Number: 1, ProtoType: host.TypeInt32},
					"b": {Number: 1, ProtoType: host.TypeString},
				})}
			},
			kind: protoerr.NotAValidMessageClass,
		},
		{
			name: "field number zero",
			cls: func() *metaClass {
				return &metaClass{meta: newMeta(map[string]host.FieldMeta{
					"a": {Number: 0, ProtoType: host.TypeInt32},
				})}
			},
			kind: protoerr.NotAValidMessageClass,
		},
		{
			name: "missing default generator",
			cls: func() *metaClass {
				m := newMeta(map[string]host.FieldMeta{"a": {Number: 1, ProtoType: host.TypeInt32}})
				delete(m.DefaultGen, "a")
				return &metaClass{meta: m}
			},
			kind: protoerr.IncompleteMetadata,
		},
		{
			name: "message without class",
			cls: func() *metaClass {
				return &metaClass{meta: newMeta(map[string]host.FieldMeta{
					"a": {Number: 1, ProtoType: host.TypeMessage},
				})}
			},
			kind: protoerr.IncompleteMetadata,
		},
		{
			name: "enum without class",
			cls: func() *metaClass {
				return &metaClass{meta: newMeta(map[string]host.FieldMeta{
					"a": {Number: 1, ProtoType: host.TypeEnum},
				})}
			},
			kind: protoerr.IncompleteMetadata,
		},
		{
			name: "map value without class",
			cls: func() *metaClass {
				return &metaClass{meta: newMeta(map[string]host.FieldMeta{
					"a": {Number: 1, ProtoType: host.TypeMap, MapTypes: [2]string{host.TypeString, host.TypeMessage}},
				})}
			},
			kind: protoerr.IncompleteMetadata,
		},
		{
			name: "message class is not a class",
			cls: func() *metaClass {
				m := newMeta(map[string]host.FieldMeta{"a": {Number: 1, ProtoType: host.TypeMessage}})
				m.ClsByField["a"] = namedType("test.NotAClass")
				return &metaClass{meta: m}
			},
			kind: protoerr.NotAValidMessageClass,
		},
		{
			name: "unknown wrapped type",
			cls: func() *metaClass {
				return &metaClass{meta: newMeta(map[string]host.FieldMeta{
					"a": {Number: 1, ProtoType: host.TypeMessage, Wraps: host.TypeSint32},
				})}
			},
			kind: protoerr.UnsupportedWrappedType,
		},
		{
			name: "float map key",
			cls: func() *metaClass {
				return &metaClass{meta: newMeta(map[string]host.FieldMeta{
					"a": {Number: 1, ProtoType: host.TypeMap, MapTypes: [2]string{host.TypeFloat, host.TypeInt32}},
				})}
			},
			kind: protoerr.UnsupportedKeyType,
		},
		{
			name: "unknown map value type",
			cls: func() *metaClass {
				return &metaClass{meta: newMeta(map[string]host.FieldMeta{
					"a": {Number: 1, ProtoType: host.TypeMap, MapTypes: [2]string{host.TypeString, "int128"}},
				})}
			},
			kind: protoerr.UnsupportedValueType,
		},
		{
			name: "unknown type",
			cls: func() *metaClass {
				return &metaClass{meta: newMeta(map[string]host.FieldMeta{
					"a": {Number: 1, ProtoType: "int128"},
				})}
			},
			kind: protoerr.UnsupportedValueType,
		},
		{
			name: "repeated oneof member",
			cls: func() *metaClass {
				m := newMeta(map[string]host.FieldMeta{"a": {Number: 1, ProtoType: host.TypeInt32, Group: "g"}})
				m.DefaultGen["a"] = func() any { return []any{} }
				return &metaClass{meta: m}
			},
			kind: protoerr.NotAValidMessageClass,
		},
		{
			name: "nil metadata",
			cls:  func() *metaClass { return &metaClass{} },
			kind: protoerr.NotAValidMessageClass,
		},
		{
			name: "metadata error",
			cls:  func() *metaClass { return &metaClass{metaErr: errors.New("no metadata")} },
			kind: protoerr.NotAValidMessageClass,
		},
		{
			name: "constructor error",
			cls:  func() *metaClass { return &metaClass{newErr: errors.New("cannot construct")} },
			kind: protoerr.NotAValidMessageClass,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var cache desc.Cache
			cls := tc.cls()
			cls.name = "test." + tc.name
			md, err := cache.Load(cls)
			require.Nil(t, md)
			require.Equal(t, tc.kind, protoerr.KindOf(err), "%v", err)
		})
	}
}

func TestReflect_OneofGroups(t *testing.T) {
	m := newMeta(map[string]host.FieldMeta{
		"a": {Number: 3, ProtoType: host.TypeInt32, Group: "from_field_meta"},
		"b": {Number: 1, ProtoType: host.TypeString},
		"c": {Number: 2, ProtoType: host.TypeBool, Group: "ignored"},
	})
	m.OneofGroupByField["c"] = "from_meta"
	cls := &metaClass{name: "test.Groups", meta: m}

	md, err := desc.Reflect(cls, m)
	require.NoError(t, err)
	require.Equal(t, []string{"from_meta", "from_field_meta"}, md.GetOneOfs())
	require.Equal(t, "from_field_meta", md.FindFieldByName("a").GetOneOf())
	require.Equal(t, "", md.FindFieldByName("b").GetOneOf())
	require.Equal(t, "from_meta", md.FindFieldByName("c").GetOneOf())
}

func TestReflect_WrapperNeedsNoClass(t *testing.T) {
	m := newMeta(map[string]host.FieldMeta{
		"a": {Number: 1, ProtoType: host.TypeMessage, Wraps: host.TypeString},
	})
	md, err := desc.Reflect(&metaClass{name: "test.Wrapped", meta: m}, m)
	require.NoError(t, err)
	require.Equal(t, desc.Wrapper{Type: desc.StringKind}, md.FindFieldByName("a").GetKind())
}

func TestReflect_DuplicateNumberDetail(t *testing.T) {
	m := newMeta(map[string]host.FieldMeta{
		"a": {Number: 7, ProtoType: host.TypeInt32},
		"b": {Number: 7, ProtoType: host.TypeInt32},
	})
	_, err := desc.Reflect(&metaClass{name: "test.Dup", meta: m}, m)
	var perr *protoerr.Error
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Detail, `"a" and "b" both use number 7`)
}

func TestCache_Idempotent(t *testing.T) {
	var cache desc.Cache
	md1, err := cache.Load(prototesting.Everything)
	require.NoError(t, err)
	md2, err := cache.Load(prototesting.Everything)
	require.NoError(t, err)
	require.Same(t, md1, md2)
	require.Equal(t, desc.CacheStats{Hits: 1, Computed: 1}, cache.Stats())

	cache.Reset()
	md3, err := cache.Load(prototesting.Everything)
	require.NoError(t, err)
	require.NotSame(t, md1, md3)
	require.Empty(t, cmp.Diff(summarize(md1), summarize(md3)))
	require.Equal(t, int64(2), cache.Stats().Computed)
}

func TestCache_Concurrent(t *testing.T) {
	const n = 32
	var cache desc.Cache
	results := make([]*desc.MessageDescriptor, n)
	var grp errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		grp.Go(func() error {
			md, err := cache.Load(prototesting.Everything)
			results[i] = md
			return err
		})
	}
	require.NoError(t, grp.Wait())
	for _, md := range results {
		require.Same(t, results[0], md)
	}
	require.Equal(t, desc.CacheStats{Hits: n - 1, Computed: 1}, cache.Stats())
}

func TestCache_SeparateCachesAgree(t *testing.T) {
	var grp errgroup.Group
	summaries := make([][]string, 8)
	for i := range summaries {
		i := i
		grp.Go(func() error {
			var cache desc.Cache
			md, err := cache.Load(prototesting.Everything)
			if err != nil {
				return err
			}
			summaries[i] = summarize(md)
			return nil
		})
	}
	require.NoError(t, grp.Wait())
	for _, s := range summaries[1:] {
		require.Empty(t, cmp.Diff(summaries[0], s))
	}
}

func TestCache_FailuresNotCached(t *testing.T) {
	m := newMeta(map[string]host.FieldMeta{"a": {Number: 1, ProtoType: host.TypeInt32}})
	gen := m.DefaultGen["a"]
	delete(m.DefaultGen, "a")
	cls := &metaClass{name: "test.Flaky", meta: m}

	var cache desc.Cache
	_, err := cache.Load(cls)
	require.ErrorIs(t, err, protoerr.ErrIncompleteMetadata)

	m.DefaultGen["a"] = gen
	md, err := cache.Load(cls)
	require.NoError(t, err)
	require.NotNil(t, md.FindFieldByName("a"))
	require.Equal(t, desc.CacheStats{Hits: 0, Computed: 2}, cache.Stats())
}

func TestCache_NilClass(t *testing.T) {
	var cache desc.Cache
	_, err := cache.Load(nil)
	require.ErrorIs(t, err, protoerr.ErrNotAValidMessageClass)
}

func TestCache_Logger(t *testing.T) {
	var buf bytes.Buffer
	cache := desc.Cache{Logger: level.NewFilter(log.NewLogfmtLogger(&buf), level.AllowDebug())}
	_, err := cache.Load(prototesting.Simple)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "computed message descriptor")
	require.Contains(t, buf.String(), "class=test.Simple")
	require.Contains(t, buf.String(), "fields=2")
}

func TestLoadMessageDescriptorForMessage(t *testing.T) {
	md, err := desc.LoadMessageDescriptorForMessage(prototesting.Simple.NewMessage())
	require.NoError(t, err)
	fromClass, err := desc.LoadMessageDescriptorForClass(prototesting.Simple)
	require.NoError(t, err)
	require.Same(t, fromClass, md)
	require.Same(t, desc.DefaultCache(), desc.DefaultCache())

	_, err = desc.LoadMessageDescriptorForMessage(nil)
	require.ErrorIs(t, err, protoerr.ErrNotAValidMessageClass)
}

func summarize(md *desc.MessageDescriptor) []string {
	var s []string
	for _, fd := range md.GetFields() {
		s = append(s, fmt.Sprintf("%d %s %v %q", fd.GetNumber(), fd.GetName(), fd.GetKind(), fd.GetOneOf()))
	}
	return s
}
