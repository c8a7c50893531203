package yaml

import (
	"reflect"
	"testing"

	"github.com/zoobzio/weave"
)

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/yaml" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/yaml")
	}
}

func TestMarshalUnmarshal_Document(t *testing.T) {
	c := New()

	doc := map[string]any{
		"$flags": "15",
		"$id":    "1",
		"@A":     "123",
		"B":      map[string]any{"#value": "testString"},
		"Items": map[string]any{
			"$rank": "1",
			"#items": []any{
				map[string]any{"#value": "1"},
				map[string]any{"$ref": "1"},
			},
		},
	}

	data, err := c.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored map[string]any
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(restored, doc) {
		t.Errorf("round-trip = %#v, want %#v", restored, doc)
	}
}

func TestMarshalNil(t *testing.T) {
	c := New()

	data, err := c.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil) error: %v", err)
	}

	if string(data) != "null\n" {
		t.Errorf("Marshal(nil) = %q, want %q", data, "null\n")
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	c := New()

	testCases := []struct {
		name  string
		input string
	}{
		{"unclosed flow", "name: [invalid"},
		{"unclosed quote", `name: "unterminated`},
		{"duplicate key", "name: first\nname: second"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var v map[string]any
			if err := c.Unmarshal([]byte(tc.input), &v); err == nil {
				t.Errorf("Unmarshal(%q) should return error", tc.input)
			}
		})
	}
}

func TestUnmarshal_HandWritten(t *testing.T) {
	c := New()

	// Unquoted scalars decode as numbers; FromDocument accepts them.
	input := `"@A": 123
"@C": Ignore
B:
  "#value": testString
`

	var doc map[string]any
	if err := c.Unmarshal([]byte(input), &doc); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	el, err := weave.FromDocument(weave.RootName, doc)
	if err != nil {
		t.Fatalf("FromDocument() error: %v", err)
	}
	if v, _ := el.Attribute(weave.Regular, "A"); v != "123" {
		t.Errorf("A = %q, want 123", v)
	}
	b, ok := el.Child("B")
	if !ok {
		t.Fatal("child B missing")
	}
	if v, _ := b.Value(); v != "testString" {
		t.Errorf("B = %q, want testString", v)
	}
}

func TestMarshal_SpecialCharacters(t *testing.T) {
	c := New()

	testCases := []struct {
		name  string
		input string
	}{
		{"newline", "line1\nline2"},
		{"colon", "key: value"},
		{"unicode", "日本語テスト"},
		{"special chars", "#@!$%^&*()"},
		{"numeric text", "007"},
		{"boolean text", "true"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := map[string]any{"Text": map[string]any{"#value": tc.input}}
			data, err := c.Marshal(doc)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}

			var restored map[string]any
			if err := c.Unmarshal(data, &restored); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if !reflect.DeepEqual(restored, doc) {
				t.Errorf("round-trip failed for %q: got %#v", tc.input, restored)
			}
		})
	}
}
