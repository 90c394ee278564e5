package scoring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ContentType is the media type of request and response bodies.
const ContentType = "application/msgpack"

// ScoreResponse is the body returned by the /score endpoint.
type ScoreResponse struct {
	Scores []float64 `msgpack:"scores"`
}

// BatchRequest is the body sent to the /batch endpoint.
type BatchRequest struct {
	Requests []Request `msgpack:"requests"`
}

// BatchResponse is the body returned by the /batch endpoint.
type BatchResponse struct {
	Scores [][]float64 `msgpack:"scores"`
}

// HTTPRemote talks msgpack over HTTP POST to a scoring service.
type HTTPRemote struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRemote creates a remote for the service at endpoint. A zero timeout
// leaves requests bounded by their context only.
func NewHTTPRemote(endpoint string, timeout time.Duration) *HTTPRemote {
	return &HTTPRemote{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Score implements Remote.
func (h *HTTPRemote) Score(ctx context.Context, req Request) ([]float64, error) {
	var resp ScoreResponse
	if err := h.post(ctx, "/score", &req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Scores) != len(req.Candidates) {
		return nil, fmt.Errorf("got %d scores for %d candidates", len(resp.Scores), len(req.Candidates))
	}
	return resp.Scores, nil
}

// BatchScore implements Remote.
func (h *HTTPRemote) BatchScore(ctx context.Context, reqs []Request) ([][]float64, error) {
	var resp BatchResponse
	if err := h.post(ctx, "/batch", &BatchRequest{Requests: reqs}, &resp); err != nil {
		return nil, err
	}
	return resp.Scores, nil
}

// Close implements Remote.
func (h *HTTPRemote) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func (h *HTTPRemote) post(ctx context.Context, path string, in, out any) error {
	body, err := msgpack.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Accept", ContentType)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("scoring service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("scoring service returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	if err := msgpack.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
