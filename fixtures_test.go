package weave

import (
	"reflect"
	"testing"
)

type Mode int

const (
	ModeSerialize Mode = iota
	ModeIgnore
)

var modeNames = map[Mode]string{
	ModeSerialize: "Serialize",
	ModeIgnore:    "Ignore",
}

type Triple struct {
	A int
	B string
	C Mode
}

type TripleNodes struct {
	A int    `graph:",node"`
	B string `graph:",node"`
	C Mode   `graph:",node"`
}

type SelfRef struct {
	Name string
	A    *SelfRef
}

type Leaf struct {
	Value int
}

type Pair struct {
	A *Leaf
	B *Leaf
}

type Animal interface {
	Sound() string
}

type Dog struct {
	Name string
}

func (d *Dog) Sound() string { return "woof" }

type Cat struct {
	Lives int
}

func (c *Cat) Sound() string { return "meow" }

type Zoo struct {
	Pets []Animal
	Star Animal
}

// newTestEngine builds an engine whose registry knows the fixture enum.
func newTestEngine(t testing.TB, setup func(r *Registry), opts ...Option) *Engine {
	t.Helper()
	r := NewRegistry()
	if err := RegisterEnum(r, modeNames); err != nil {
		t.Fatalf("RegisterEnum() error: %v", err)
	}
	if setup != nil {
		setup(r)
	}
	return New(r, opts...)
}

// roundTrip encodes v, passes it through the Document form and decodes it.
func roundTrip[T any](t testing.TB, e *Engine, v T, opts ...DecodeOption) T {
	t.Helper()
	el, err := Marshal(e, v)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	back, err := FromDocument(RootName, el.Document())
	if err != nil {
		t.Fatalf("FromDocument() error: %v", err)
	}
	out, err := Unmarshal[T](e, back, opts...)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	return out
}

func mustModel(t testing.TB, e *Engine, v any) *Model {
	t.Helper()
	m, err := e.Model(reflect.TypeOf(v))
	if err != nil {
		t.Fatalf("Model() error: %v", err)
	}
	return m
}
