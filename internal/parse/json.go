package parse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// JSONParser deterministically flattens a JSON document into path-like
// section headers (e.g. "root.key.subkey") per §4.2.
type JSONParser struct{}

func (JSONParser) Parse(raw []byte, _ string) ([]Unit, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}

	var units []Unit
	flattenJSONValue(v, nil, &units)
	return units, nil
}

func flattenJSONValue(v interface{}, path []string, units *[]Unit) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			flattenJSONValue(val[key], append(append([]string{}, path...), key), units)
		}
	case []interface{}:
		for i, item := range val {
			flattenJSONValue(item, append(append([]string{}, path...), strconv.Itoa(i)), units)
		}
	case nil:
		return
	default:
		text := strings.TrimSpace(fmt.Sprintf("%v", val))
		if text == "" {
			return
		}
		*units = append(*units, Unit{SectionHeader: strings.Join(path, "."), Text: text})
	}
}
