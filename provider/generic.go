package provider

import (
	"sort"

	"github.com/mbolis/survey-intake/fieldpath"
	"github.com/mbolis/survey-intake/model"
)

// Generic handles payloads of unknown shape by looking for objects
// that look like form fields.
type Generic struct{}

var labelKeys = []string{"label", "title", "name"}

func (Generic) DiscoverFields(example any) []model.ParsedField {
	fields := []model.ParsedField{}
	walk(example, "", &fields)
	return fields
}

func walk(node any, path string, fields *[]model.ParsedField) {
	switch node := node.(type) {
	case map[string]any:
		if path != "" && isField(node) {
			field := model.ParsedField{
				Path:    path,
				Label:   path,
				Type:    str(node, "type"),
				Options: options(node["options"]),
			}
			for _, k := range labelKeys {
				if s := str(node, k); s != "" {
					field.Label = s
					break
				}
			}
			*fields = append(*fields, field)
			return
		}

		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(node[k], fieldpath.Join(path, k), fields)
		}

	case []any:
		for i, elem := range node {
			walk(elem, fieldpath.Indexed(path, i), fields)
		}
	}
}

func isField(obj map[string]any) bool {
	for _, k := range labelKeys {
		if str(obj, k) != "" {
			return true
		}
	}
	if _, ok := obj["type"]; ok {
		_, hasValue := obj["value"]
		_, hasAnswer := obj["answer"]
		return hasValue || hasAnswer
	}
	return false
}

func (Generic) ExtractValue(root any, p fieldpath.Path) (any, bool) {
	node, ok := fieldpath.Resolve(root, p)
	if !ok {
		return nil, false
	}
	if obj, ok := object(node); ok {
		if v := obj["value"]; v != nil {
			return v, true
		}
		if v := obj["answer"]; v != nil {
			return v, true
		}
	}
	return node, true
}
