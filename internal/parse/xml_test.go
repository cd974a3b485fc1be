package parse

import "testing"

func TestXMLParser_FlattensToPathLikeHeaders(t *testing.T) {
	raw := []byte(`<root><key>value</key><sub><child>nested</child></sub></root>`)
	units, err := XMLParser{}.Parse(raw, "doc.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"root.key":       "value",
		"root.sub.child": "nested",
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
			t.Errorf("header %q: got text %q, want %q", u.SectionHeader, u.Text, expected)
		}
	}
}

func TestXMLParser_MalformedReturnsError(t *testing.T) {
	_, err := XMLParser{}.Parse([]byte(`<root><unclosed>`), "doc.xml")
	if err == nil {
		t.Fatal("expected error for malformed xml")
	}
}

func TestXMLParser_EmptyElementsProduceNoUnits(t *testing.T) {
	units, err := XMLParser{}.Parse([]byte(`<root><empty></empty></root>`), "doc.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("expected 0 units, got %d: %+v", len(units), units)
	}
}
