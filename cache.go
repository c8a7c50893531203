package weave

import (
	"context"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes type models for one Engine. Concurrent first use of a type
// builds its model exactly once; models are never evicted.
type Cache struct {
	reg    *Registry
	cfg    *Config
	models sync.Map // reflect.Type -> *Model
	group  singleflight.Group
}

func newCache(reg *Registry, cfg *Config) *Cache {
	return &Cache{reg: reg, cfg: cfg}
}

// Model returns the model for t, building it on first use. Pointers are
// stripped: *T and T share one model.
func (c *Cache) Model(t reflect.Type) (*Model, error) {
	if t == nil {
		return nil, newConfigError(ErrNilInput, "", "", "type is required")
	}
	t = baseType(t)
	if m, ok := c.models.Load(t); ok {
		return m.(*Model), nil
	}

	v, err, _ := c.group.Do(buildKey(t), func() (any, error) {
		return c.build(t)
	})
	if err != nil {
		return nil, err
	}
	m := v.(*Model)
	if m.Type != t {
		// distinct types sharing a build key, e.g. types declared in functions
		return c.build(t)
	}
	return m, nil
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	n := 0
	c.models.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *Cache) build(t reflect.Type) (*Model, error) {
	if m, ok := c.models.Load(t); ok {
		return m.(*Model), nil
	}
	m, err := buildModel(c.reg, c.cfg, t)
	if err != nil {
		return nil, err
	}
	actual, loaded := c.models.LoadOrStore(t, m)
	if !loaded {
		c.reg.RegisterType(t)
		emitModelBuilt(context.Background(), m)
	}
	return actual.(*Model), nil
}

func buildKey(t reflect.Type) string {
	return t.PkgPath() + "|" + t.String()
}
