package parse

import (
	"regexp"
	"strings"
)

// atxHeadingPattern matches ATX headings (`#` … `######`), grounded in the
// teacher Markdown chunker's headerPattern.
var atxHeadingPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// MarkdownParser sections Markdown at ATX headings per §4.2: heading text
// becomes the section header for every line until the next heading.
type MarkdownParser struct{}

func (MarkdownParser) Parse(raw []byte, _ string) ([]Unit, error) {
	content := string(raw)
	lines := strings.Split(content, "\n")

	var units []Unit
	var currentHeader string
	var body strings.Builder

	flush := func() {
		text := strings.TrimRight(body.String(), "\n")
		if strings.TrimSpace(text) != "" {
			units = append(units, Unit{SectionHeader: currentHeader, Text: text})
		}
		body.Reset()
	}

	for _, line := range lines {
		if m := atxHeadingPattern.FindStringSubmatch(line); m != nil {
			flush()
			currentHeader = strings.TrimSpace(m[2])
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return units, nil
}
