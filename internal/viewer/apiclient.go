package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rbergman/wordwall/internal/domain"
)

const requestTimeout = 10 * time.Second

// APIClient talks to the server's JSON endpoints: submit and snapshot
// fetch. It implements ingest.SubmitClient and domain.SnapshotFetcher.
type APIClient struct {
	baseURL  string
	clientID string
	http     *http.Client
}

var _ domain.SnapshotFetcher = (*APIClient)(nil)

// NewAPIClient creates a client for the server at baseURL. clientID
// identifies this submitter for the server-side cooldown; it carries no
// identity beyond anti-abuse.
func NewAPIClient(baseURL, clientID string) *APIClient {
	return &APIClient{
		baseURL:  baseURL,
		clientID: clientID,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

type submitRequest struct {
	Text        string `json:"text"`
	InputMethod string `json:"inputMethod"`
	ClientID    string `json:"clientId"`
}

type errorResponse struct {
	Error   string         `json:"error"`
	Context map[string]any `json:"context"`
}

// Submit posts a feedback submission. A 429 response is returned as a
// RateLimitedError carrying the server's wait value.
func (c *APIClient) Submit(ctx context.Context, sessionID uuid.UUID, text string, method domain.InputMethod) (*domain.SubmitResult, error) {
	body, err := json.Marshal(submitRequest{Text: text, InputMethod: string(method), ClientID: c.clientID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	target := fmt.Sprintf("%s/api/sessions/%s/feedback", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		var result domain.SubmitResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode submit response: %w", err)
		}
		return &result, nil

	case http.StatusTooManyRequests:
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return nil, &domain.RateLimitedError{Wait: time.Second}
		}
		wait := time.Second
		if v, ok := er.Context["waitSeconds"].(float64); ok && v > 0 {
			wait = time.Duration(v) * time.Second
		}
		return nil, &domain.RateLimitedError{Wait: wait}

	default:
		var er errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		if er.Error != "" {
			return nil, fmt.Errorf("submit rejected (%d): %s", resp.StatusCode, er.Error)
		}
		return nil, fmt.Errorf("submit rejected with status %d", resp.StatusCode)
	}
}

// FetchSnapshot retrieves the authoritative session state.
func (c *APIClient) FetchSnapshot(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error) {
	target := fmt.Sprintf("%s/api/sessions/%s/snapshot", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot fetch failed with status %d", resp.StatusCode)
	}

	var snap domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
