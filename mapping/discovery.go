package mapping

import (
	"github.com/mbolis/survey-intake/fieldpath"
	"github.com/mbolis/survey-intake/model"
	"github.com/mbolis/survey-intake/provider"
)

const InvalidJSONFormat = "Invalid JSON format"

type Discovery struct {
	Fields     []model.ParsedField `json:"fields"`
	ParseError string              `json:"parse_error,omitempty"`
}

// Discover lists the fields of an example payload that a mapping can point at.
func Discover(p model.Provider, exampleJSON string) Discovery {
	example, err := fieldpath.Decode([]byte(exampleJSON))
	if err != nil {
		return Discovery{
			Fields:     []model.ParsedField{},
			ParseError: InvalidJSONFormat,
		}
	}

	fields := provider.For(p).DiscoverFields(example)
	if fields == nil {
		fields = []model.ParsedField{}
	}
	return Discovery{Fields: fields}
}
