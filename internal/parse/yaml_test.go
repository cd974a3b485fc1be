package parse

import "testing"

func TestYAMLParser_FlattensMappingsAndSequences(t *testing.T) {
	raw := []byte("key: value\nsub:\n  child: nested\nlist:\n  - one\n  - two\n")
	units, err := YAMLParser{}.Parse(raw, "doc.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"key":       "value",
		"sub.child": "nested",
		"list.0":    "one",
		"list.1":    "two",
	}
	if len(units) != len(want) {
		t.Fatalf("expected %d units, got %d: %+v", len(want), len(units), units)
	}
	for _, u := range units {
		expected, ok := want[u.SectionHeader]
		if !ok {
			t.Errorf("unexpected header %q", u.SectionHeader)
			continue
		}
		if u.Text != expected {
			t.Errorf("header %q: got %q, want %q", u.SectionHeader, u.Text, expected)
		}
	}
}

func TestYAMLParser_MalformedReturnsError(t *testing.T) {
	_, err := YAMLParser{}.Parse([]byte("key: [unterminated"), "doc.yaml")
	if err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestYAMLParser_EmptyDocumentYieldsNoUnits(t *testing.T) {
	units, err := YAMLParser{}.Parse([]byte(""), "doc.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("expected 0 units, got %d", len(units))
	}
}
