package desc

import (
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/jhump/reflectcodec/host"
	"github.com/jhump/reflectcodec/protoerr"
)

var defaultCache Cache

// LoadMessageDescriptorForClass returns the descriptor of cls, reflecting on
// it the first time it is requested. Descriptors are cached for the life of
// the process, so a class is reflected at most once.
func LoadMessageDescriptorForClass(cls host.Class) (*MessageDescriptor, error) {
	return defaultCache.Load(cls)
}

// LoadMessageDescriptorForMessage returns the descriptor of the class of msg.
func LoadMessageDescriptorForMessage(msg host.Message) (*MessageDescriptor, error) {
	if msg == nil {
		return nil, protoerr.New(protoerr.NotAValidMessageClass, "nil message")
	}
	return defaultCache.Load(msg.Class())
}

// DefaultCache returns the process-wide cache used by
// LoadMessageDescriptorForClass.
func DefaultCache() *Cache {
	return &defaultCache
}

// Cache memoizes descriptors by class. The zero value is ready to use. A
// Cache must not be copied after first use.
//
// Each class gets one compute-once cell, so concurrent first requests for
// the same class reflect it only once and all observe the same descriptor.
// Failures are not cached; a later request tries again.
type Cache struct {
	// Logger receives debug events when descriptors are computed. If nil,
	// nothing is logged.
	Logger log.Logger

	cells          sync.Map // host.Class -> *cacheCell
	hits, computed atomic.Int64
}

type cacheCell struct {
	once sync.Once
	md   *MessageDescriptor
	err  error
}

// CacheStats reports how a Cache has been used.
type CacheStats struct {
	// Hits counts loads answered by an already computed descriptor.
	Hits int64
	// Computed counts reflections performed.
	Computed int64
}

// Stats returns the cache's counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Computed: c.computed.Load()}
}

// Load returns the descriptor of cls, computing it on first use. Classes are
// used as map keys, so cls must be comparable.
func (c *Cache) Load(cls host.Class) (*MessageDescriptor, error) {
	if cls == nil {
		return nil, protoerr.New(protoerr.NotAValidMessageClass, "nil class")
	}
	v, ok := c.cells.Load(cls)
	if !ok {
		v, _ = c.cells.LoadOrStore(cls, &cacheCell{})
	}
	cell := v.(*cacheCell)
	ran := false
	cell.once.Do(func() {
		ran = true
		c.computed.Add(1)
		cell.md, cell.err = c.compute(cls)
	})
	if cell.err != nil {
		if ran {
			c.cells.CompareAndDelete(cls, cell)
		}
		return nil, cell.err
	}
	if !ran {
		c.hits.Add(1)
	}
	return cell.md, nil
}

// Reset forgets all cached descriptors.
func (c *Cache) Reset() {
	c.cells.Range(func(k, _ any) bool {
		c.cells.Delete(k)
		return true
	})
}

func (c *Cache) compute(cls host.Class) (*MessageDescriptor, error) {
	msg, err := cls.New()
	if err != nil {
		return nil, protoerr.Wrap(protoerr.NotAValidMessageClass, err)
	}
	if msg == nil {
		return nil, protoerr.New(protoerr.NotAValidMessageClass, cls.TypeName())
	}
	meta, err := msg.Meta()
	if err != nil {
		return nil, protoerr.Wrap(protoerr.NotAValidMessageClass, err)
	}
	md, err := Reflect(cls, meta)
	if err != nil {
		level.Debug(c.logger()).Log("msg", "failed to reflect message class", "class", cls.TypeName(), "err", err)
		return nil, err
	}
	level.Debug(c.logger()).Log("msg", "computed message descriptor", "class", cls.TypeName(), "fields", len(md.fields))
	return md, nil
}

func (c *Cache) logger() log.Logger {
	if c.Logger == nil {
		return log.NewNopLogger()
	}
	return c.Logger
}
