package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-intake/model"
)

func TestGenerate(t *testing.T) {
	var got model.EmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"email":"Thanks for signing up","subject":"Welcome"}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL).Generate(context.Background(), model.EmailRequest{
		CustomerEmail: "a@b.com",
		SurveyData:    map[string]any{"company": "Acme"},
		Context:       model.DefaultEmailContext(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.GeneratedEmail{Email: "Thanks for signing up", Subject: "Welcome"}, out)

	assert.Equal(t, "a@b.com", got.CustomerEmail)
	assert.Equal(t, map[string]any{"company": "Acme"}, got.SurveyData)
	assert.Equal(t, "professional and friendly", got.Context.Tone)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model overloaded", http.StatusInternalServerError)
		}, "enrich: status 500: model overloaded"},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}, "enrich: decode response"},
		{"empty email", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"subject":"Hi"}`))
		}, "enrich: empty email in response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL).Generate(context.Background(), model.EmailRequest{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL).Generate(ctx, model.EmailRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
