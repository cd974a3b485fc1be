package parse

import "strings"

// PlainTextParser treats the whole file as a single untitled section, the
// fallback for extensions with no natural sectioning per §4.2.
type PlainTextParser struct{}

func (PlainTextParser) Parse(raw []byte, _ string) ([]Unit, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}
	return []Unit{{Text: text}}, nil
}
