// Package reflectcodec serializes dynamically-typed host messages to the
// protobuf binary format and back, discovering each message's schema by
// reflecting on its class.
//
// A host message class is anything that satisfies the interfaces in package
// host; package dynamic provides a ready-made one. The schema of a class is
// computed the first time it is used and cached for the life of the process
// (or of a Codec).
//
// The functions in this package are the boundary between the codec and its
// callers: every error they return is a *protoerr.RuntimeError, which carries
// a message and nothing else. Code that needs to branch on the kind of
// failure should use packages codec and desc directly, whose errors are
// *protoerr.Error values.
package reflectcodec

import (
	"time"

	"github.com/go-kit/log"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/jhump/reflectcodec/codec"
	"github.com/jhump/reflectcodec/desc"
	"github.com/jhump/reflectcodec/host"
	"github.com/jhump/reflectcodec/protodescs"
	"github.com/jhump/reflectcodec/protoerr"
)

// Serialize returns the wire bytes of msg.
func Serialize(msg host.Message) ([]byte, error) {
	b, err := codec.Marshal(msg)
	return b, protoerr.ToHost(err)
}

// Deserialize decodes data into a new instance of cls.
func Deserialize(data []byte, cls host.Class) (host.Message, error) {
	m, err := codec.Unmarshal(data, cls)
	return m, protoerr.ToHost(err)
}

// DescriptorFor returns the cached descriptor of cls, computing it if this
// is the first request for it.
func DescriptorFor(cls host.Class) (*desc.MessageDescriptor, error) {
	md, err := desc.LoadMessageDescriptorForClass(cls)
	return md, protoerr.ToHost(err)
}

// Options configures a Codec.
type Options struct {
	// Packed writes repeated numeric and enum fields in packed form.
	Packed bool
	// Location is the time zone for offset-naive timestamps. If nil,
	// time.Local is used.
	Location *time.Location
	// Logger receives debug events. If nil, nothing is logged.
	Logger log.Logger
}

// Codec is a configured serializer with its own descriptor cache. It is
// safe for concurrent use.
type Codec struct {
	opts  Options
	cache *desc.Cache
}

// New returns a Codec with the given options.
func New(opts Options) *Codec {
	return &Codec{
		opts:  opts,
		cache: &desc.Cache{Logger: opts.Logger},
	}
}

// Serialize returns the wire bytes of msg.
func (c *Codec) Serialize(msg host.Message) ([]byte, error) {
	b, err := codec.MarshalOptions{
		Packed:   c.opts.Packed,
		Location: c.opts.Location,
		Cache:    c.cache,
	}.Marshal(msg)
	return b, protoerr.ToHost(err)
}

// Deserialize decodes data into a new instance of cls.
func (c *Codec) Deserialize(data []byte, cls host.Class) (host.Message, error) {
	m, err := codec.UnmarshalOptions{
		Cache:  c.cache,
		Logger: c.opts.Logger,
	}.Unmarshal(data, cls)
	return m, protoerr.ToHost(err)
}

// DescriptorFor returns the descriptor of cls from this codec's cache.
func (c *Codec) DescriptorFor(cls host.Class) (*desc.MessageDescriptor, error) {
	md, err := c.cache.Load(cls)
	return md, protoerr.ToHost(err)
}

// CacheStats reports how this codec's descriptor cache has been used.
func (c *Codec) CacheStats() desc.CacheStats {
	return c.cache.Stats()
}

// ExportSchema describes the given classes, and every class and enum type
// they reach, as proto3 files. Repeated numeric fields are marked packed or
// unpacked to match what Serialize writes.
func (c *Codec) ExportSchema(classes ...host.Class) (*descriptorpb.FileDescriptorSet, error) {
	set, err := protodescs.Exporter{Cache: c.cache, Packed: c.opts.Packed}.FileDescriptorSet(classes...)
	return set, protoerr.ToHost(err)
}
