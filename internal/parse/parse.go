// Package parse implements the format-specific extractors §4.2 describes:
// each turns raw document bytes into a normalised stream of (section
// header?, text) units that the Chunker then splits into token-bounded
// pieces.
package parse

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
)

// Unit is one (section_header?, text) pair in the normalised stream.
type Unit struct {
	SectionHeader string // empty if the format has no natural sectioning
	Text          string
}

// Parser extracts a sequence of Units from raw bytes.
type Parser interface {
	Parse(raw []byte, path string) ([]Unit, error)
}

// sniffWindow is how many leading bytes are checked for an embedded null
// byte to detect binary content, per §4.2.
const sniffWindow = 8192

// IsBinary reports whether raw looks like binary content: a null byte
// within the first 8 KiB.
func IsBinary(raw []byte) bool {
	n := len(raw)
	if n > sniffWindow {
		n = sniffWindow
	}
	return bytes.IndexByte(raw[:n], 0) != -1
}

// ForPath selects the Parser appropriate for path's extension. The
// Ingester's config-driven extension allow-list decides which paths reach
// Parse at all; anything that arrives here and isn't markdown/xml/yaml/json
// falls through to the plain-text parser, covering both listed plain-text
// extensions and genuinely unknown ones per §4.2.
func ForPath(path string) Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return MarkdownParser{}
	case ".xml":
		return XMLParser{}
	case ".yaml", ".yml":
		return YAMLParser{}
	case ".json":
		return JSONParser{}
	default:
		return PlainTextParser{}
	}
}

// Parse dispatches to the right Parser for path and validates the result
// isn't binary first. Binary files are skipped silently by the caller
// (Ingester), signalled here by a nil, nil return.
func Parse(raw []byte, path string) ([]Unit, error) {
	if IsBinary(raw) {
		return nil, nil
	}

	units, err := ForPath(path).Parse(raw, path)
	if err != nil {
		return nil, rerr.Wrap(rerr.ParseError, err)
	}
	return units, nil
}
