package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mediahub/mediahub/internal/config"
)

// Sentinel errors for backend client failures.
var (
	ErrBackendUnreachable = errors.New("analysis backend unreachable")
	ErrBackendTimeout     = errors.New("analysis backend timeout")
	ErrBackendStatus      = errors.New("analysis backend returned error status")
	ErrDecodeResponse     = errors.New("analysis backend returned undecodable response")
)

// BackendRequest is the wire format sent to the external analysis service.
type BackendRequest struct {
	AnalysisID   string         `json:"analysis_id"`
	MediaID      string         `json:"media_id"`
	MediaURL     string         `json:"media_url"`
	AnalysisType string         `json:"analysis_type"`
	Options      map[string]any `json:"options,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
}

// BackendResponse is the wire format returned by the external analysis
// service. Result carries an untyped map; its schema is not contractually
// fixed and is reconciled separately.
type BackendResponse struct {
	AnalysisID string         `json:"analysis_id"`
	MediaID    string         `json:"media_id"`
	Result     map[string]any `json:"result"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// Backend is the interface for the external analysis service.
type Backend interface {
	Analyze(ctx context.Context, req BackendRequest) (*BackendResponse, error)
	Health(ctx context.Context) error
	Stats(ctx context.Context) map[string]any
}

// HTTPBackend implements Backend against the analysis service's HTTP API,
// retrying failed analyze calls with linearly increasing delays.
type HTTPBackend struct {
	baseURL       string
	maxRetries    int
	retryInterval time.Duration
	client        *http.Client
}

// NewHTTPBackend creates a backend client from config. MaxRetries defaults
// to 3 and the retry interval to 1s when unset.
func NewHTTPBackend(cfg config.AIConfig) *HTTPBackend {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &HTTPBackend{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries:    maxRetries,
		retryInterval: interval,
		client:        &http.Client{Timeout: cfg.Timeout},
	}
}

// Analyze posts the request to the backend, retrying transport failures and
// error statuses up to maxRetries attempts. The delay before the retry
// following attempt N is N x retryInterval. A 2xx body that fails to decode
// is never retried; the final attempt's error surfaces unchanged.
func (b *HTTPBackend) Analyze(ctx context.Context, req BackendRequest) (*BackendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding analysis request: %w", err)
	}
	u := b.baseURL + "/analyze"

	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrBackendTimeout, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * b.retryInterval):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := b.client.Do(httpReq)
		if err != nil {
			classified := classifyError(err)
			slog.Warn("analysis request failed", "attempt", attempt, "error", err)
			if attempt == b.maxRetries {
				return nil, classified
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			statusErr := fmt.Errorf("%w: status %d: %s",
				ErrBackendStatus, resp.StatusCode, strings.TrimSpace(string(text)))
			slog.Warn("analysis request rejected", "attempt", attempt, "status", resp.StatusCode)
			if attempt == b.maxRetries {
				return nil, statusErr
			}
			continue
		}

		var out BackendResponse
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeResponse, err)
		}
		return &out, nil
	}

	return nil, fmt.Errorf("%w: max retries exceeded", ErrBackendUnreachable)
}

// Health checks the backend's health endpoint. No retries.
func (b *HTTPBackend) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrBackendStatus, resp.StatusCode)
	}
	return nil
}

// Stats fetches backend service statistics. Failures degrade to an empty
// map so observability never takes down a caller.
func (b *HTTPBackend) Stats(ctx context.Context) map[string]any {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/stats", nil)
	if err != nil {
		return map[string]any{}
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		slog.Warn("backend stats request failed", "error", err)
		return map[string]any{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("backend stats request rejected", "status", resp.StatusCode)
		return map[string]any{}
	}

	var stats map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		slog.Warn("decoding backend stats failed", "error", err)
		return map[string]any{}
	}
	return stats
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
}

var _ Backend = (*HTTPBackend)(nil)
