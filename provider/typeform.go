package provider

import (
	"github.com/mbolis/survey-intake/fieldpath"
	"github.com/mbolis/survey-intake/model"
)

// Typeform payloads carry answers in form_response.answers, each typed,
// with question titles kept apart in form_response.definition.fields.
type Typeform struct{}

const typeformAnswers = "form_response.answers"

func (Typeform) DiscoverFields(example any) []model.ParsedField {
	answers, _ := fieldpath.ResolveString(example, typeformAnswers)
	list, ok := answers.([]any)
	if !ok {
		return nil
	}

	definitions := map[string]map[string]any{}
	if defs, ok := fieldpath.ResolveString(example, "form_response.definition.fields"); ok {
		if defs, ok := defs.([]any); ok {
			for _, d := range defs {
				if d, ok := object(d); ok {
					if id := str(d, "id"); id != "" {
						definitions[id] = d
					}
				}
			}
		}
	}

	fields := []model.ParsedField{}
	for i, a := range list {
		answer, ok := object(a)
		if !ok {
			continue
		}
		path := fieldpath.Indexed(typeformAnswers, i)
		field := model.ParsedField{
			Path: path,
			Type: str(answer, "type"),
		}

		ref, _ := object(answer["field"])
		def := definitions[str(ref, "id")]
		switch {
		case str(def, "title") != "":
			field.Label = str(def, "title")
		case str(ref, "ref") != "":
			field.Label = str(ref, "ref")
		default:
			field.Label = path
		}
		field.Options = options(def["choices"])

		fields = append(fields, field)
	}
	return fields
}

func (Typeform) ExtractValue(root any, p fieldpath.Path) (any, bool) {
	node, ok := fieldpath.Resolve(root, p)
	if !ok {
		return nil, false
	}
	answer, ok := object(node)
	if !ok {
		return node, true
	}
	kind, ok := answer["type"].(string)
	if !ok {
		return node, true
	}

	switch kind {
	case "choice":
		return fieldpath.ResolveString(answer, "choice.label")
	case "choices":
		return fieldpath.ResolveString(answer, "choices.labels")
	case "long_text":
		if v, ok := answer["long_text"]; ok {
			return v, true
		}
		v, ok := answer["text"]
		return v, ok
	default:
		// email, text, number, boolean, date, url, ... are stored
		// under a key named like the type
		v, ok := answer[kind]
		return v, ok
	}
}
