package mapping

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-intake/fieldpath"
	"github.com/mbolis/survey-intake/model"
	"github.com/mbolis/survey-intake/provider"
)

var (
	// ErrNoMapping means the account has not mapped its payload yet.
	ErrNoMapping    = errors.New("no field mapping configured")
	ErrMissingEmail = errors.New("email field mapping is required")
	ErrNoTestEvent  = errors.New("no test event stored")
)

// Evaluate applies the mapping of cfg to payload. Fields the payload
// does not contain are left out of SurveyData; only an unresolvable
// email makes the evaluation fail.
func Evaluate(cfg model.WebhookConfig, payload any) (rec model.NormalizedRecord, err error) {
	if len(cfg.FieldMappings) == 0 {
		return rec, ErrNoMapping
	}
	adapter := provider.For(cfg.Provider)

	emailPath := cfg.FieldMappings[model.EmailKey]
	if emailPath == "" {
		return rec, ErrMissingEmail
	}
	v, ok := adapter.ExtractValue(payload, fieldpath.Parse(emailPath))
	if !ok {
		return rec, ErrMissingEmail
	}
	email, _ := v.(string)
	if email == "" {
		return rec, ErrMissingEmail
	}

	rec.Email = email
	rec.SurveyData = map[string]any{}
	for name, path := range cfg.FieldMappings {
		if name == model.EmailKey || path == "" {
			continue
		}
		if v, ok := adapter.ExtractValue(payload, fieldpath.Parse(path)); ok {
			rec.SurveyData[name] = v
		}
	}
	return rec, nil
}

// Preview evaluates a proposed mapping against the example payload
// stored in cfg, the same way a live event would be evaluated.
func Preview(cfg model.WebhookConfig, mapping model.FieldMapping) (model.NormalizedRecord, error) {
	if len(cfg.TestEvent) == 0 {
		return model.NormalizedRecord{}, ErrNoTestEvent
	}
	example, err := fieldpath.Decode(cfg.TestEvent)
	if err != nil {
		return model.NormalizedRecord{}, fmt.Errorf("decode test event: %w", err)
	}
	cfg.FieldMappings = mapping
	return Evaluate(cfg, example)
}

// ValidateMapping reports every reason m cannot be saved.
func ValidateMapping(m model.FieldMapping) error {
	var result *multierror.Error
	if m[model.EmailKey] == "" {
		result = multierror.Append(result, ErrMissingEmail)
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := m[name]
		if name == "" {
			result = multierror.Append(result, errors.New("field name cannot be empty"))
			continue
		}
		if path == "" && name != model.EmailKey {
			result = multierror.Append(result, fmt.Errorf("field %q has no path", name))
		}
	}
	return result.ErrorOrNil()
}
