package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultPrompts is the generic prompt set used when a scan doesn't supply
// its own.
var DefaultPrompts = []string{"product", "item", "package", "bottle", "box", "container"}

// DetectorClient talks to the vision provider that segments shelf photos
// into labeled detections.
type DetectorClient struct {
	baseURL    string
	apiKey     string
	threshold  float64
	httpClient *http.Client
}

// NewDetectorClient creates a new detection provider client
func NewDetectorClient(baseURL, apiKey string, threshold float64) *DetectorClient {
	if threshold <= 0 {
		threshold = 0.3
	}
	return &DetectorClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		threshold: threshold,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Detection is one labeled box from the provider
type Detection struct {
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	Bbox       []float64 `json:"bbox"`
}

// DetectionOutcome is the provider's answer for one image
type DetectionOutcome struct {
	Results      []Detection `json:"results"`
	ProcessingMs int64       `json:"processing_time_ms"`
}

type detectRequest struct {
	Image     string   `json:"image"`
	Prompts   []string `json:"prompts"`
	Threshold float64  `json:"threshold"`
}

// Detect sends image bytes plus prompts to the provider. Confidence
// filtering happens provider-side via the threshold; results come back
// unfiltered otherwise.
func (c *DetectorClient) Detect(ctx context.Context, image []byte, prompts []string) (*DetectionOutcome, error) {
	if len(prompts) == 0 {
		prompts = DefaultPrompts
	}

	body, err := json.Marshal(detectRequest{
		Image:     base64.StdEncoding.EncodeToString(image),
		Prompts:   prompts,
		Threshold: c.threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/segment/base64", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call detection provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("detection provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var outcome DetectionOutcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &outcome, nil
}
