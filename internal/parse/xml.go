package parse

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// XMLParser deterministically flattens XML into a text stream using
// path-like section headers (e.g. "root.key.subkey") per §4.2.
type XMLParser struct{}

func (XMLParser) Parse(raw []byte, _ string) ([]Unit, error) {
	dec := xml.NewDecoder(strings.NewReader(string(raw)))

	var units []Unit
	var path []string
	var text strings.Builder

	flush := func() {
		t := strings.TrimSpace(text.String())
		if t != "" {
			units = append(units, Unit{SectionHeader: strings.Join(path, "."), Text: t})
		}
		text.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml parse: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			flush()
			path = append(path, t.Name.Local)
		case xml.EndElement:
			flush()
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		case xml.CharData:
			text.Write(t)
		}
	}
	flush()

	return units, nil
}
