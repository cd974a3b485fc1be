package parse

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLParser deterministically flattens a YAML document into path-like
// section headers (e.g. "root.key.subkey") per §4.2, using the same library
// the teacher uses for its own configuration files.
type YAMLParser struct{}

func (YAMLParser) Parse(raw []byte, _ string) ([]Unit, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var units []Unit
	flattenYAMLNode(node.Content[0], nil, &units)
	return units, nil
}

func flattenYAMLNode(n *yaml.Node, path []string, units *[]Unit) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) > 0 {
			flattenYAMLNode(n.Content[0], path, units)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			flattenYAMLNode(n.Content[i+1], append(append([]string{}, path...), key), units)
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			flattenYAMLNode(item, append(append([]string{}, path...), strconv.Itoa(i)), units)
		}
	case yaml.ScalarNode:
		text := strings.TrimSpace(n.Value)
		if text == "" {
			return
		}
		*units = append(*units, Unit{SectionHeader: strings.Join(path, "."), Text: text})
	case yaml.AliasNode:
		if n.Alias != nil {
			flattenYAMLNode(n.Alias, path, units)
		}
	}
}
