package weave

import (
	"reflect"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestCache_Model(t *testing.T) {
	e := newTestEngine(t, nil)

	m1, err := e.Model(reflect.TypeFor[Triple]())
	if err != nil {
		t.Fatalf("Model() error: %v", err)
	}
	m2, err := e.Model(reflect.TypeFor[*Triple]())
	if err != nil {
		t.Fatalf("Model() error: %v", err)
	}
	if m1 != m2 {
		t.Error("*T and T should share a cached model")
	}
	if m1.Type != reflect.TypeFor[Triple]() {
		t.Errorf("model type = %v", m1.Type)
	}
	if e.cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", e.cache.Len())
	}

	if _, err := e.Model(nil); err == nil {
		t.Error("Model(nil) expected error")
	}
}

func TestCache_Concurrent(t *testing.T) {
	e := newTestEngine(t, nil)
	types := []reflect.Type{
		reflect.TypeFor[Triple](),
		reflect.TypeFor[SelfRef](),
		reflect.TypeFor[Pair](),
		reflect.TypeFor[Zoo](),
	}

	results := make([]*Model, 64)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			m, err := e.Model(types[i%len(types)])
			results[i] = m
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Model() error: %v", err)
	}
	for i, m := range results {
		if m != results[i%len(types)] {
			t.Errorf("result %d is a different model instance", i)
		}
	}
	if e.cache.Len() != len(types) {
		t.Errorf("Len() = %d, want %d", e.cache.Len(), len(types))
	}
}

func TestCache_RegistersNames(t *testing.T) {
	e := newTestEngine(t, nil)
	if _, err := e.Registry().ResolveType("weave.Pair"); err == nil {
		t.Fatal("Pair should not be resolvable before use")
	}
	mustModel(t, e, Pair{})
	if _, err := e.Registry().ResolveType("weave.Pair"); err != nil {
		t.Errorf("ResolveType() after model build error: %v", err)
	}
}
