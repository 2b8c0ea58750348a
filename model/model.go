package model

import (
	"encoding/json"
	"time"
)

type Provider string

const (
	ProviderTypeform Provider = "typeform"
	ProviderTally    Provider = "tally"
	ProviderOther    Provider = "other"
)

// Normalize maps empty and unrecognised providers to ProviderOther.
func (p Provider) Normalize() Provider {
	switch p {
	case ProviderTypeform, ProviderTally:
		return p
	}
	return ProviderOther
}

// EmailKey is the reserved mapping name for the customer's email address.
const EmailKey = "email"

// FieldMapping maps a target field name to a field path.
type FieldMapping map[string]string

type WebhookConfig struct {
	Provider      Provider        `json:"provider"`
	FieldMappings FieldMapping    `json:"field_mappings"`
	TestEvent     json.RawMessage `json:"test_event,omitempty"`
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ParsedField struct {
	Path    string   `json:"path"`
	Label   string   `json:"label"`
	Type    string   `json:"type,omitempty"`
	Options []Option `json:"options,omitempty"`
}

type NormalizedRecord struct {
	Email      string         `json:"email"`
	SurveyData map[string]any `json:"survey_data"`
}

type EmailContext struct {
	Tone          string `json:"tone"`
	BrandInfo     string `json:"brandInfo"`
	WelcomeLine   string `json:"welcomeLine"`
	EndLine       string `json:"endLine"`
	SystemContext string `json:"systemContext"`
	EmailLength   string `json:"emailLength"`
}

func DefaultEmailContext() EmailContext {
	return EmailContext{
		Tone:        "professional and friendly",
		EmailLength: "medium",
	}
}

type Account struct {
	ID                  int           `json:"id"`
	Username            string        `json:"username"`
	WebhookID           string        `json:"webhook_id"`
	WebhookConfig       WebhookConfig `json:"webhook_config"`
	WebhookLastReceived *time.Time    `json:"webhook_last_received,omitempty"`
	EmailContext        *EmailContext `json:"email_context,omitempty"`
}

type SurveyResponse struct {
	ID         int64          `json:"id"`
	AccountID  int            `json:"account_id"`
	Email      string         `json:"email"`
	SurveyData map[string]any `json:"survey_data"`
	AISubject  string         `json:"ai_subject,omitempty"`
	AIEmail    string         `json:"ai_email,omitempty"`
	Time       time.Time      `json:"time"`
}

// EmailRequest is the body sent to the email generation service.
type EmailRequest struct {
	CustomerEmail string         `json:"customerEmail"`
	SurveyData    map[string]any `json:"surveyData"`
	Context       EmailContext   `json:"context"`
}

type GeneratedEmail struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
}
