package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-intake/fieldpath"
	"github.com/mbolis/survey-intake/model"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := fieldpath.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

const tallyExample = `{"data":{"fields":[
	{"label":"Email","type":"EMAIL","value":"jane@example.com"},
	{"label":"Colours","type":"CHECKBOXES","value":["o1","o2"],
		"options":[{"id":"o1","text":"Red"},{"id":"o2","text":"Blue"}]},
	{"label":"Colours (Red)","type":"CHECKBOXES","value":true},
	{"label":"Colours (Blue)","type":"CHECKBOXES","value":true},
	{"label":"Colours","type":"CHECKBOXES","value":["o1"]}
]}}`

func TestDiscover(t *testing.T) {
	d := Discover(model.ProviderTally, tallyExample)

	assert.Empty(t, d.ParseError)
	require.Len(t, d.Fields, 2)
	assert.Equal(t, "data.fields[0]", d.Fields[0].Path)
	assert.Equal(t, "Colours", d.Fields[1].Label)
}

func TestDiscoverIsIdempotent(t *testing.T) {
	for _, p := range []model.Provider{model.ProviderTally, model.ProviderTypeform, model.ProviderOther} {
		first := Discover(p, tallyExample)
		second := Discover(p, tallyExample)
		assert.Equal(t, first, second, p)
	}
}

func TestDiscoverInvalidJSON(t *testing.T) {
	d := Discover(model.ProviderTally, `{"data": [`)

	assert.Equal(t, "Invalid JSON format", d.ParseError)
	assert.NotNil(t, d.Fields)
	assert.Empty(t, d.Fields)
}

func TestDiscoverWrongShape(t *testing.T) {
	d := Discover(model.ProviderTypeform, tallyExample)

	assert.Empty(t, d.ParseError)
	assert.NotNil(t, d.Fields)
	assert.Empty(t, d.Fields)
}

func TestEvaluateNoMapping(t *testing.T) {
	_, err := Evaluate(model.WebhookConfig{Provider: model.ProviderTally}, decode(t, `{"foo":"bar"}`))
	assert.ErrorIs(t, err, ErrNoMapping)
}

func TestEvaluateOmitsAbsentFields(t *testing.T) {
	cfg := model.WebhookConfig{
		Provider: model.ProviderOther,
		FieldMappings: model.FieldMapping{
			"email":   "a.email",
			"company": "a.company",
		},
	}

	rec, err := Evaluate(cfg, decode(t, `{"a":{"email":"x@y.z"}}`))
	require.NoError(t, err)
	assert.Equal(t, "x@y.z", rec.Email)
	assert.Equal(t, map[string]any{}, rec.SurveyData)
}

func TestEvaluateMissingEmail(t *testing.T) {
	payload := decode(t, `{"a":{"email":"","n":5,"company":"Acme"}}`)

	for name, path := range map[string]string{
		"unresolvable": "a.mail",
		"empty string": "a.email",
		"not a string": "a.n",
		"empty path":   "",
	} {
		t.Run(name, func(t *testing.T) {
			cfg := model.WebhookConfig{FieldMappings: model.FieldMapping{
				"email":   path,
				"company": "a.company",
			}}
			_, err := Evaluate(cfg, payload)
			assert.ErrorIs(t, err, ErrMissingEmail)
		})
	}

	_, err := Evaluate(model.WebhookConfig{FieldMappings: model.FieldMapping{"company": "a.company"}}, payload)
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestEvaluateTypeform(t *testing.T) {
	cfg := model.WebhookConfig{
		Provider: model.ProviderTypeform,
		FieldMappings: model.FieldMapping{
			"company": "form_response.answers[0]",
			"email":   "form_response.answers[1]",
		},
	}
	payload := decode(t, `{"form_response":{"answers":[
		{"type":"text","text":"Acme Inc","field":{"id":"a"}},
		{"type":"email","email":"a@b.com","field":{"id":"b"}}
	]}}`)

	rec, err := Evaluate(cfg, payload)
	require.NoError(t, err)
	assert.Equal(t, model.NormalizedRecord{
		Email:      "a@b.com",
		SurveyData: map[string]any{"company": "Acme Inc"},
	}, rec)
}

func TestEvaluateTally(t *testing.T) {
	cfg := model.WebhookConfig{
		Provider: model.ProviderTally,
		FieldMappings: model.FieldMapping{
			"email":   "data.fields[type=EMAIL&label=Email].value",
			"colours": "data.fields[1]",
			"later":   "data.fields[12]",
			"skipped": "",
		},
	}

	rec, err := Evaluate(cfg, decode(t, tallyExample))
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", rec.Email)
	assert.Equal(t, map[string]any{"colours": "Red, Blue"}, rec.SurveyData)
}

// discovery on an example and evaluation of the discovered paths
// against the same payload must agree
func TestDiscoverThenEvaluate(t *testing.T) {
	d := Discover(model.ProviderTally, tallyExample)
	mapping := model.FieldMapping{}
	for _, f := range d.Fields {
		mapping[f.Label] = f.Path
	}
	mapping["email"] = d.Fields[0].Path

	rec, err := Evaluate(model.WebhookConfig{Provider: model.ProviderTally, FieldMappings: mapping}, decode(t, tallyExample))
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", rec.Email)
	assert.Equal(t, map[string]any{
		"Email":   "jane@example.com",
		"Colours": "Red, Blue",
	}, rec.SurveyData)
}

func TestPreview(t *testing.T) {
	cfg := model.WebhookConfig{
		Provider:  model.ProviderTally,
		TestEvent: json.RawMessage(tallyExample),
	}

	rec, err := Preview(cfg, model.FieldMapping{"email": "data.fields[0]", "red": "data.fields[2]"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", rec.Email)
	assert.Equal(t, map[string]any{"red": "Yes"}, rec.SurveyData)

	_, err = Preview(model.WebhookConfig{}, model.FieldMapping{"email": "x"})
	assert.ErrorIs(t, err, ErrNoTestEvent)

	_, err = Preview(cfg, model.FieldMapping{})
	assert.ErrorIs(t, err, ErrNoMapping)
}

func TestValidateMapping(t *testing.T) {
	assert.NoError(t, ValidateMapping(model.FieldMapping{"email": "a.b", "name": "a.c"}))

	err := ValidateMapping(model.FieldMapping{"name": "", "": "a.c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEmail)
	assert.Contains(t, err.Error(), "field name cannot be empty")
	assert.Contains(t, err.Error(), `field "name" has no path`)
}
