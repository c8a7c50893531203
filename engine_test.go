package weave

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestTriple_Attributes(t *testing.T) {
	e := newTestEngine(t, nil)
	in := Triple{A: 123, B: "testString", C: ModeIgnore}

	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	want := Document{
		"$flags": "0",
		"@A":     "123",
		"@B":     "testString",
		"@C":     "Ignore",
	}
	if got := el.Document(); !reflect.DeepEqual(got, want) {
		t.Errorf("Document() = %#v, want %#v", got, want)
	}

	if out := roundTrip(t, e, in); out != in {
		t.Errorf("round-trip = %+v, want %+v", out, in)
	}
}

func TestTriple_SubNodes(t *testing.T) {
	e := newTestEngine(t, nil)
	in := TripleNodes{A: 123, B: "testString", C: ModeIgnore}

	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	if _, ok := el.Attribute(Regular, "A"); ok {
		t.Error("A should not be an attribute")
	}
	children := el.Children()
	if len(children) != 3 {
		t.Fatalf("got %d children, want 3", len(children))
	}
	for i, want := range []string{"123", "testString", "Ignore"} {
		if v, _ := children[i].Value(); v != want {
			t.Errorf("child %s = %q, want %q", children[i].Name(), v, want)
		}
	}

	if out := roundTrip(t, e, in); out != in {
		t.Errorf("round-trip = %+v, want %+v", out, in)
	}
}

func TestByteArray(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		packed bool
	}{
		{"per element", nil, false},
		{"packed", []Option{WithPackedPrimitives()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, nil, tt.opts...)
			in := []byte{1, 2}

			el, err := Marshal(e, in)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			v, hasValue := el.Value()
			if tt.packed {
				if !hasValue || v != "AQI=" {
					t.Errorf("packed value = %q, want %q", v, "AQI=")
				}
				if n := len(el.Elements()); n != 0 {
					t.Errorf("packed form has %d elements, want 0", n)
				}
			} else if n := len(el.Elements()); n != 2 {
				t.Errorf("got %d elements, want 2", n)
			}

			out := roundTrip(t, e, in)
			if !reflect.DeepEqual(out, in) {
				t.Errorf("round-trip = %v, want %v", out, in)
			}
		})
	}
}

func TestPackedPrimitives_Kinds(t *testing.T) {
	e := newTestEngine(t, nil, WithPackedPrimitives())

	t.Run("int32", func(t *testing.T) {
		in := []int32{-1, 0, 1 << 20}
		if out := roundTrip(t, e, in); !reflect.DeepEqual(out, in) {
			t.Errorf("round-trip = %v, want %v", out, in)
		}
	})
	t.Run("float64", func(t *testing.T) {
		in := []float64{3.5, -0.25}
		if out := roundTrip(t, e, in); !reflect.DeepEqual(out, in) {
			t.Errorf("round-trip = %v, want %v", out, in)
		}
	})
	t.Run("bool array", func(t *testing.T) {
		in := [3]bool{true, false, true}
		if out := roundTrip(t, e, in); out != in {
			t.Errorf("round-trip = %v, want %v", out, in)
		}
	})
	t.Run("strings stay per element", func(t *testing.T) {
		in := []string{"a", "b"}
		el, err := Marshal(e, in)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		if n := len(el.Elements()); n != 2 {
			t.Errorf("got %d elements, want 2", n)
		}
	})
}

func TestJaggedArray(t *testing.T) {
	e := newTestEngine(t, nil)
	in := [][]int{{1, 2}, {1, 2, 3}}

	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	rows := el.Elements()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if n := len(rows[1].Elements()); n != 3 {
		t.Errorf("second row has %d elements, want 3", n)
	}

	out := roundTrip(t, e, in)
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round-trip = %v, want %v", out, in)
	}
}

func TestMultiRankArray(t *testing.T) {
	e := newTestEngine(t, nil)
	in := [2][3]int{{1, 2, 3}, {4, 5, 6}}

	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if r, _ := el.Attribute(System, KeyRank); r != "2" {
		t.Errorf("rank = %q, want 2", r)
	}

	if out := roundTrip(t, e, in); out != in {
		t.Errorf("round-trip = %v, want %v", out, in)
	}
}

func TestArray_RankMismatch(t *testing.T) {
	e := newTestEngine(t, nil)

	t.Run("rank", func(t *testing.T) {
		el, err := Marshal(e, [2][2]int{{1, 2}, {3, 4}})
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		_, err = Unmarshal[[][]int](e, el)
		if !errors.Is(err, ErrRankMismatch) {
			t.Errorf("Unmarshal() error = %v, want ErrRankMismatch", err)
		}
	})

	t.Run("fixed length", func(t *testing.T) {
		el, err := Marshal(e, [3]int{1, 2, 3})
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		_, err = Unmarshal[[2]int](e, el)
		if !errors.Is(err, ErrRankMismatch) {
			t.Errorf("Unmarshal() error = %v, want ErrRankMismatch", err)
		}
	})

	t.Run("ragged rows", func(t *testing.T) {
		el := NewElement(RootName)
		el.SetAttribute(System, KeyRank, "2")
		r0 := el.AppendElement()
		r0.AppendElement().SetValue("1")
		r0.AppendElement().SetValue("2")
		r1 := el.AppendElement()
		r1.AppendElement().SetValue("3")
		r1.AppendElement().SetValue("4")
		r1.AppendElement().SetValue("5")

		_, err := Unmarshal[[2][2]int](e, el)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Unmarshal() error = %v, want ErrMalformed", err)
		}
	})
}

func TestSelfReference(t *testing.T) {
	e := newTestEngine(t, nil)
	x := &SelfRef{Name: "x"}
	x.A = x

	el, err := Marshal(e, x)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if id, _ := el.Attribute(System, KeyID); id != "1" {
		t.Errorf("root id = %q, want 1", id)
	}
	a, ok := el.Child("A")
	if !ok {
		t.Fatal("child A missing")
	}
	if ref, _ := a.Attribute(System, KeyRef); ref != "1" {
		t.Errorf("A ref = %q, want 1", ref)
	}

	out := roundTrip(t, e, x)
	if out.A != out {
		t.Error("result.A should be result")
	}
	if out.Name != "x" {
		t.Errorf("Name = %q, want x", out.Name)
	}
}

func TestSharedReference(t *testing.T) {
	e := newTestEngine(t, nil)
	shared := &Leaf{Value: 7}
	in := &Pair{A: shared, B: shared}

	out := roundTrip(t, e, in)
	if out.A != out.B {
		t.Error("result.A should be result.B")
	}
	if out.A == nil || out.A.Value != 7 {
		t.Errorf("A = %+v, want Value 7", out.A)
	}
}

func TestDistinctEqualObjects(t *testing.T) {
	e := newTestEngine(t, nil)
	in := &Pair{A: &Leaf{Value: 1}, B: &Leaf{Value: 1}}

	out := roundTrip(t, e, in)
	if out.A == out.B {
		t.Error("distinct objects should stay distinct")
	}
}

func TestCycle_WithoutReferences(t *testing.T) {
	e := newTestEngine(t, nil, WithoutReferences(), WithMaxDepth(64))
	x := &SelfRef{Name: "x"}
	x.A = x

	_, err := Marshal(e, x)
	if !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("Marshal() error = %v, want ErrDepthExceeded", err)
	}
}

func TestDecodeInto_RootIdentity(t *testing.T) {
	e := newTestEngine(t, nil)
	x := &SelfRef{Name: "root"}
	x.A = x

	el, err := Marshal(e, x)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var target SelfRef
	if err := e.DecodeInto(el, &target); err != nil {
		t.Fatalf("DecodeInto() error: %v", err)
	}
	if target.A != &target {
		t.Error("self-reference should resolve to the target")
	}
}

func TestTypeMarkers(t *testing.T) {
	e := newTestEngine(t, nil)
	in := &Zoo{
		Pets: []Animal{&Dog{Name: "rex"}, &Cat{Lives: 9}},
		Star: &Dog{Name: "lassie"},
	}

	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	star, _ := el.Child("Star")
	if marker, _ := star.Attribute(System, KeyType); marker != "*weave.Dog" {
		t.Errorf("Star marker = %q, want *weave.Dog", marker)
	}
	flags, _ := el.Attribute(System, KeyFlags)
	if flags == "" || !flagsFrom(t, flags).Has(FlagTypes) {
		t.Errorf("flags = %q, want FlagTypes set", flags)
	}

	out := roundTrip(t, e, in)
	if d, ok := out.Star.(*Dog); !ok || d.Name != "lassie" {
		t.Errorf("Star = %#v, want *Dog lassie", out.Star)
	}
	if len(out.Pets) != 2 {
		t.Fatalf("got %d pets, want 2", len(out.Pets))
	}
	if c, ok := out.Pets[1].(*Cat); !ok || c.Lives != 9 {
		t.Errorf("Pets[1] = %#v, want *Cat with 9 lives", out.Pets[1])
	}
}

func TestQualifiedTypeNames(t *testing.T) {
	e := newTestEngine(t, nil, WithQualifiedTypeNames())
	in := &Zoo{Star: &Cat{Lives: 3}}

	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	star, _ := el.Child("Star")
	marker, _ := star.Attribute(System, KeyType)
	if marker != "*github.com/zoobzio/weave.Cat" {
		t.Errorf("marker = %q", marker)
	}

	out := roundTrip(t, e, in)
	if c, ok := out.Star.(*Cat); !ok || c.Lives != 3 {
		t.Errorf("Star = %#v, want *Cat", out.Star)
	}
}

func TestTypeMarker_Errors(t *testing.T) {
	e := newTestEngine(t, nil)

	t.Run("unknown", func(t *testing.T) {
		el := NewElement(RootName)
		el.AddChild("Star").SetAttribute(System, KeyType, "weave.Unicorn")
		_, err := Unmarshal[Zoo](e, el)
		if !errors.Is(err, ErrUnknownType) {
			t.Errorf("Unmarshal() error = %v, want ErrUnknownType", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		el := NewElement(RootName)
		el.AddChild("Star").SetAttribute(Regular, "Name", "rex")
		_, err := Unmarshal[Zoo](e, el)
		if !errors.Is(err, ErrMissingTypeMarker) {
			t.Errorf("Unmarshal() error = %v, want ErrMissingTypeMarker", err)
		}
	})

	t.Run("not assignable", func(t *testing.T) {
		el := NewElement(RootName)
		el.AddChild("Star").SetAttribute(System, KeyType, "int")
		_, err := Unmarshal[Zoo](e, el)
		if !errors.Is(err, ErrTypeMismatch) {
			t.Errorf("Unmarshal() error = %v, want ErrTypeMismatch", err)
		}
	})

	t.Run("resolver", func(t *testing.T) {
		custom := newTestEngine(t, nil, WithTypeResolver(func(name string) (reflect.Type, error) {
			if name == "dog" {
				return reflect.TypeFor[*Dog](), nil
			}
			return nil, errors.New("nope")
		}))
		el := NewElement(RootName)
		star := el.AddChild("Star")
		star.SetAttribute(System, KeyType, "dog")
		star.SetAttribute(Regular, "Name", "rex")

		out, err := Unmarshal[Zoo](custom, el)
		if err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if d, ok := out.Star.(*Dog); !ok || d.Name != "rex" {
			t.Errorf("Star = %#v, want *Dog rex", out.Star)
		}
	})
}

func TestDanglingReference(t *testing.T) {
	e := newTestEngine(t, nil)
	el := NewElement(RootName)
	el.AddChild("A").SetAttribute(System, KeyRef, "9")

	_, err := Unmarshal[SelfRef](e, el)
	if !errors.Is(err, ErrDanglingReference) {
		t.Errorf("Unmarshal() error = %v, want ErrDanglingReference", err)
	}
}

func TestNulls(t *testing.T) {
	in := &Pair{A: &Leaf{Value: 1}}

	t.Run("omitted by default", func(t *testing.T) {
		e := newTestEngine(t, nil)
		el, err := Marshal(e, in)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		if _, ok := el.Child("B"); ok {
			t.Error("nil member should be omitted")
		}
		if out := roundTrip(t, e, in); out.B != nil {
			t.Error("B should decode as nil")
		}
	})

	t.Run("explicit", func(t *testing.T) {
		e := newTestEngine(t, nil, WithNulls())
		el, err := Marshal(e, in)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		b, ok := el.Child("B")
		if !ok {
			t.Fatal("nil member should be written")
		}
		if v, _ := b.Attribute(System, KeyNull); v != "true" {
			t.Errorf("null marker = %q, want true", v)
		}
		if out := roundTrip(t, e, in); out.B != nil {
			t.Error("B should decode as nil")
		}
	})

	t.Run("always", func(t *testing.T) {
		type Holder struct {
			Leaf *Leaf `graph:",always"`
		}
		e := newTestEngine(t, nil)
		el, err := Marshal(e, Holder{})
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		if _, ok := el.Child("Leaf"); !ok {
			t.Error("always member should be written when nil")
		}
	})
}

func TestNullElements(t *testing.T) {
	e := newTestEngine(t, nil)
	a := &Leaf{Value: 1}
	in := []*Leaf{a, nil, a}

	out := roundTrip(t, e, in)
	if len(out) != 3 || out[1] != nil {
		t.Fatalf("round-trip = %v", out)
	}
	if out[0] != out[2] {
		t.Error("repeated element should decode to one object")
	}
}

func TestUnexportedMembers(t *testing.T) {
	type Secret struct {
		Name string
		code int
	}
	in := Secret{Name: "vault", code: 42}

	t.Run("excluded by default", func(t *testing.T) {
		e := newTestEngine(t, nil)
		if out := roundTrip(t, e, in); out.code != 0 || out.Name != "vault" {
			t.Errorf("round-trip = %+v", out)
		}
	})

	t.Run("included", func(t *testing.T) {
		e := newTestEngine(t, nil, WithUnexported())
		el, err := Marshal(e, in)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		flags, _ := el.Attribute(System, KeyFlags)
		if !flagsFrom(t, flags).Has(FlagUnexported) {
			t.Errorf("flags = %q, want FlagUnexported", flags)
		}
		if out := roundTrip(t, e, in); out != in {
			t.Errorf("round-trip = %+v, want %+v", out, in)
		}
	})
}

func TestReadOnlyMembers(t *testing.T) {
	type Rect struct {
		W    int
		H    int
		Area int `graph:",readonly"`
	}
	in := Rect{W: 2, H: 3, Area: 6}

	e := newTestEngine(t, nil)
	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if _, ok := el.Attribute(Regular, "Area"); ok {
		t.Error("read-only member should not be written")
	}

	e = newTestEngine(t, nil, WithReadOnly())
	if out := roundTrip(t, e, in); out.Area != 6 {
		t.Errorf("Area = %d, want 6 with WithReadOnly", out.Area)
	}
}

func TestEnumOrdinals(t *testing.T) {
	e := newTestEngine(t, nil, WithEnumOrdinals())
	in := Triple{A: 1, C: ModeIgnore}

	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if v, _ := el.Attribute(Regular, "C"); v != "1" {
		t.Errorf("C = %q, want 1", v)
	}
	if out := roundTrip(t, e, in); out.C != ModeIgnore {
		t.Errorf("C = %v, want ModeIgnore", out.C)
	}
}

func TestTextPrimitives(t *testing.T) {
	type Event struct {
		At time.Time
	}
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	e := newTestEngine(t, nil)

	el, err := Marshal(e, Event{At: at})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if v, _ := el.Attribute(Regular, "At"); v != "2024-05-01T12:30:00Z" {
		t.Errorf("At = %q", v)
	}

	out, err := Unmarshal[Event](e, el)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !out.At.Equal(at) {
		t.Errorf("At = %v, want %v", out.At, at)
	}
}

func TestDictionary(t *testing.T) {
	e := newTestEngine(t, nil)
	in := map[string]int{"b": 2, "a": 1, "c": 3}

	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	entries := el.Elements()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	k, _ := entries[0].Child("Key")
	if v, _ := k.Value(); v != "a" {
		t.Errorf("first key = %q, want a", v)
	}

	out := roundTrip(t, e, in)
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round-trip = %v, want %v", out, in)
	}
}

func TestDictionary_KeyValueNames(t *testing.T) {
	e := newTestEngine(t, nil, WithKeyValueNames("k", "v"))
	in := map[Mode]*Leaf{ModeIgnore: {Value: 5}}

	el, err := Marshal(e, in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	entry := el.Elements()[0]
	if _, ok := entry.Child("k"); !ok {
		t.Error("entry should use the configured key name")
	}

	out := roundTrip(t, e, in)
	if out[ModeIgnore] == nil || out[ModeIgnore].Value != 5 {
		t.Errorf("round-trip = %v", out)
	}
}

func TestDictionary_MissingValue(t *testing.T) {
	e := newTestEngine(t, nil)
	el := NewElement(RootName)
	el.AppendElement().AddChild("Key").SetValue("a")

	_, err := Unmarshal[map[string]int](e, el)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Unmarshal() error = %v, want ErrMalformed", err)
	}
}

func TestParseError(t *testing.T) {
	e := newTestEngine(t, nil)
	el := NewElement(RootName)
	el.SetAttribute(Regular, "A", "not-a-number")

	_, err := Unmarshal[Triple](e, el)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Unmarshal() error = %v, want ErrParse", err)
	}
	var de *DataError
	if !errors.As(err, &de) || de.Path != "/A" {
		t.Errorf("error path = %v, want /A", err)
	}
}

func TestMaxDepth(t *testing.T) {
	e := newTestEngine(t, nil, WithMaxDepth(3))
	deep := [][][][]int{{{{1}}}}

	_, err := Marshal(e, deep)
	if !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("Marshal() error = %v, want ErrDepthExceeded", err)
	}
}

func TestEngine_NilInput(t *testing.T) {
	e := newTestEngine(t, nil)

	if err := e.Encode(NewElement(RootName), nil); !errors.Is(err, ErrNilInput) {
		t.Errorf("Encode(nil) error = %v, want ErrNilInput", err)
	}
	if _, err := e.Decode(nil, reflect.TypeFor[int]()); !errors.Is(err, ErrNilInput) {
		t.Errorf("Decode(nil) error = %v, want ErrNilInput", err)
	}
	var x Triple
	if err := e.DecodeInto(NewElement(RootName), x); !errors.Is(err, ErrNilInput) {
		t.Errorf("DecodeInto(non-pointer) error = %v, want ErrNilInput", err)
	}
}

func TestEngine_EncodeDecode(t *testing.T) {
	e := newTestEngine(t, nil)
	el := NewElement(RootName)

	var a Animal = &Dog{Name: "rex"}
	if err := e.EncodeAs(el, a, reflect.TypeFor[Animal]()); err != nil {
		t.Fatalf("EncodeAs() error: %v", err)
	}
	if marker, _ := el.Attribute(System, KeyType); marker != "*weave.Dog" {
		t.Errorf("marker = %q, want *weave.Dog", marker)
	}

	got, err := e.Decode(el, reflect.TypeFor[Animal]())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if d, ok := got.(*Dog); !ok || d.Name != "rex" {
		t.Errorf("Decode() = %#v, want *Dog rex", got)
	}
}

func TestMissingFlags_AssumesAll(t *testing.T) {
	e := newTestEngine(t, nil)
	el := NewElement(RootName)
	el.SetAttribute(System, KeyID, "1")
	el.AddChild("A").SetAttribute(System, KeyRef, "1")

	out, err := Unmarshal[*SelfRef](e, el)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if out.A != out {
		t.Error("result.A should be result")
	}
}

func flagsFrom(t testing.TB, s string) Flags {
	t.Helper()
	var f Flags
	for _, c := range s {
		if c < '0' || c > '9' {
			t.Fatalf("flags %q is not numeric", s)
		}
		f = f*10 + Flags(c-'0')
	}
	return f
}
