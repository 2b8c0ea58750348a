package provider

import (
	"strings"

	"github.com/mbolis/survey-intake/fieldpath"
	"github.com/mbolis/survey-intake/model"
)

// Tally payloads list every question in data.fields with its label,
// type and value. Choice values are option ids.
type Tally struct{}

const tallyFields = "data.fields"

func (Tally) DiscoverFields(example any) []model.ParsedField {
	v, _ := fieldpath.ResolveString(example, tallyFields)
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	fields := []model.ParsedField{}
	seen := map[string]bool{}
	for i, f := range list {
		field, ok := object(f)
		if !ok {
			continue
		}
		label := str(field, "label")
		// "Topics (Pricing)" and the like are per-option entries
		// Tally adds next to an exploded checkbox question
		if label == "" || strings.Contains(label, "(") || seen[label] {
			continue
		}
		seen[label] = true

		parsed := model.ParsedField{
			Path:  fieldpath.Indexed(tallyFields, i),
			Label: label,
			Type:  str(field, "type"),
		}
		if isChoice(parsed.Type) {
			parsed.Options = options(field["options"])
		}
		fields = append(fields, parsed)
	}
	return fields
}

func (Tally) ExtractValue(root any, p fieldpath.Path) (any, bool) {
	node, ok := fieldpath.Resolve(root, p)
	if !ok {
		return nil, false
	}
	field, ok := object(node)
	if !ok {
		return node, true
	}
	kind, ok := field["type"].(string)
	if !ok {
		return node, true
	}
	value, ok := field["value"]
	if !ok {
		return nil, false
	}

	if isChoice(kind) {
		switch value := value.(type) {
		case []any:
			if opts, ok := field["options"].([]any); ok {
				return optionTexts(value, options(opts)), true
			}
		case bool:
			if value {
				return "Yes", true
			}
			return "No", true
		}
	}
	return value, true
}

func isChoice(kind string) bool {
	return kind == "MULTIPLE_CHOICE" || kind == "CHECKBOXES"
}

func optionTexts(ids []any, opts []model.Option) string {
	texts := make([]string, 0, len(ids))
	for _, id := range ids {
		s, _ := fieldpath.Scalar(id)
		text := s
		for _, o := range opts {
			if o.ID == s {
				text = o.Text
				break
			}
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, ", ")
}
