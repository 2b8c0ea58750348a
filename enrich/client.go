package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mbolis/survey-intake/model"
)

// Client calls the email generation service over HTTP.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{URL: url, HTTPClient: http.DefaultClient}
}

// Generate asks the service for a personalised email. The deadline of
// ctx bounds the whole exchange.
func (c *Client) Generate(ctx context.Context, req model.EmailRequest) (model.GeneratedEmail, error) {
	var out model.GeneratedEmail

	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("enrich: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("enrich: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("enrich: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return out, fmt.Errorf("enrich: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("enrich: decode response: %w", err)
	}
	if out.Email == "" {
		return out, fmt.Errorf("enrich: empty email in response")
	}
	return out, nil
}
