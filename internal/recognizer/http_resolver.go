package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/campus-labs/attendance-api/pkg/config"
)

// ErrNoMatch is returned when the matcher could not resolve the sample to
// any known student, or rejected the sample as unusable. The core treats
// both the same way: the claim could not be resolved and is not retried.
var ErrNoMatch = errors.New("no matching student")

// HTTPResolver posts captured samples to an external identity-matching
// service and returns the matric number of the best match.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
}

// NewHTTPResolver constructs a resolver from recognition config.
func NewHTTPResolver(cfg config.RecognitionConfig) *HTTPResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPResolver{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type resolveRequest struct {
	Sample []byte `json:"sample"`
}

type resolveResponse struct {
	MatricNo string `json:"matric_no"`
	Matched  bool   `json:"matched"`
}

// Resolve sends the sample and returns the matched matric number, or
// ErrNoMatch when the service reports no usable match.
func (r *HTTPResolver) Resolve(ctx context.Context, sample []byte) (string, error) {
	payload, err := json.Marshal(resolveRequest{Sample: sample})
	if err != nil {
		return "", fmt.Errorf("encode recognition request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build recognition request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call recognition service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", ErrNoMatch
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recognition service returned status %d", resp.StatusCode)
	}

	var result resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode recognition response: %w", err)
	}
	if !result.Matched || result.MatricNo == "" {
		return "", ErrNoMatch
	}
	return result.MatricNo, nil
}
