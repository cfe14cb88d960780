package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Span is one recognized entity mention.
type Span struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// Recognizer abstracts the named-entity model. The model itself is an
// external collaborator served over HTTP; when it is unreachable the pipeline
// drops to the copular-split fallback.
type Recognizer interface {
	// Entities returns recognized spans for the text, restricted to labels.
	Entities(ctx context.Context, text string, labels []string) ([]Span, error)

	// Close cleans up any resources.
	Close() error
}

// HTTPRecognizer talks to a GLiNER-style span extraction service.
type HTTPRecognizer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRecognizer creates a recognizer against the given service endpoint.
func NewHTTPRecognizer(baseURL string, timeout time.Duration) *HTTPRecognizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRecognizer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

type extractResponse struct {
	Entities []Span `json:"entities"`
}

// Entities posts the text to the extraction service.
func (r *HTTPRecognizer) Entities(ctx context.Context, text string, labels []string) ([]Span, error) {
	body, err := json.Marshal(extractRequest{Text: text, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, payload)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}
	return parsed.Entities, nil
}

// Close cleans up any resources.
func (r *HTTPRecognizer) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}
