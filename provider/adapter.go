package provider

import (
	"github.com/mbolis/survey-intake/fieldpath"
	"github.com/mbolis/survey-intake/model"
)

// Adapter knows how a survey provider lays out its webhook payloads.
type Adapter interface {
	// DiscoverFields lists the mappable fields of an example payload.
	DiscoverFields(example any) []model.ParsedField
	// ExtractValue resolves p against root and turns the provider's
	// answer envelope into a display value.
	ExtractValue(root any, p fieldpath.Path) (any, bool)
}

var adapters = map[model.Provider]Adapter{
	model.ProviderTypeform: Typeform{},
	model.ProviderTally:    Tally{},
	model.ProviderOther:    Generic{},
}

// For returns the adapter of p. Unknown providers get the generic adapter.
func For(p model.Provider) Adapter {
	return adapters[p.Normalize()]
}

func object(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok
}

func str(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func options(v any) []model.Option {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var opts []model.Option
	for _, elem := range arr {
		obj, ok := object(elem)
		if !ok {
			continue
		}
		id, _ := fieldpath.Scalar(obj["id"])
		text := str(obj, "text")
		if text == "" {
			text = str(obj, "label")
		}
		opts = append(opts, model.Option{ID: id, Text: text})
	}
	return opts
}
