package notebook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notepipe/internal/retry"
	"notepipe/internal/services"
)

const (
	defaultBaseURL        = "http://localhost:5055"
	defaultRequestTimeout = 30 * time.Second
	healthRequestTimeout  = 5 * time.Second
	maxErrorBodyBytes     = 4 << 10
)

// Config captures the runtime settings for the API client.
type Config struct {
	BaseURL        string
	Password       string
	MaxAttempts    int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// StatusError reports a non-2xx API response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("open notebook: http %d", e.Code)
	}
	return fmt.Sprintf("open notebook: http %d: %s", e.Code, body)
}

// HTTPStatus exposes the response code for retry classification.
func (e *StatusError) HTTPStatus() int { return e.Code }

func (e *StatusError) Is(target error) bool {
	switch {
	case target == services.ErrNotFound:
		return e.Code == http.StatusNotFound
	case target == services.ErrRateLimit:
		return e.Code == http.StatusTooManyRequests
	}
	return false
}

// SourceRequest is the payload for creating a text source.
type SourceRequest struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Embed   bool   `json:"embed"`
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// Client wraps the Open Notebook REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     retry.FixedDelay
	sleeper    func(time.Duration)
}

// NewClient constructs a Client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		policy:     retry.NewFixedDelay(cfg.RetryDelay, cfg.MaxAttempts),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Health verifies the API is reachable and answering.
func (c *Client) Health(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, healthRequestTimeout)
	defer cancel()

	var ignored json.RawMessage
	if err := c.do(checkCtx, http.MethodGet, "/health", nil, &ignored); err != nil {
		return services.Wrap(services.ErrTransient, "health", "check notebook", "Open Notebook API is not available", err)
	}
	return nil
}

// CreateSource creates a text source and returns its id.
func (c *Client) CreateSource(ctx context.Context, req SourceRequest) (string, error) {
	if req.Type == "" {
		req.Type = "text"
	}
	if strings.TrimSpace(req.Title) == "" {
		return "", services.Wrap(services.ErrValidation, "uploading", "create source", "Source title must not be empty", nil)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sources/json", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", services.Wrap(services.ErrTransient, "uploading", "create source", "API response carried no source id", nil)
	}
	return resp.ID, nil
}

// UpdateSourceTopics replaces a source's topic list. Topics cannot be set at
// creation time with this API.
func (c *Client) UpdateSourceTopics(ctx context.Context, sourceID string, topics []string) error {
	payload := struct {
		Topics []string `json:"topics"`
	}{Topics: topics}
	endpoint := "/api/sources/" + url.PathEscape(ensurePrefix(sourceID, "source:"))
	return c.do(ctx, http.MethodPut, endpoint, payload, nil)
}

// LinkSource attaches a source to a notebook.
func (c *Client) LinkSource(ctx context.Context, notebookID, sourceID string) error {
	endpoint := "/api/notebooks/" + url.PathEscape(ensurePrefix(notebookID, "notebook:")) +
		"/sources/" + url.PathEscape(ensurePrefix(sourceID, "source:"))
	return c.do(ctx, http.MethodPost, endpoint, nil, nil)
}

// EnsureNotebook returns the id of the named notebook, creating it when
// absent.
func (c *Client) EnsureNotebook(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", services.Wrap(services.ErrValidation, "uploading", "ensure notebook", "Notebook name must not be empty", nil)
	}

	notebooks, err := c.listNotebooks(ctx)
	if err != nil {
		return "", err
	}
	for _, nb := range notebooks {
		if nb.Name == name {
			return nb.ID, nil
		}
	}

	payload := struct {
		Name string `json:"name"`
	}{Name: name}
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/notebooks", payload, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// TriggerEmbedding requests synchronous embedding of an uploaded source.
// Older server versions lack the endpoint; a 404 is tolerated.
func (c *Client) TriggerEmbedding(ctx context.Context, sourceID string) error {
	payload := struct {
		ItemID          string `json:"item_id"`
		ItemType        string `json:"item_type"`
		AsyncProcessing bool   `json:"async_processing"`
	}{ItemID: ensurePrefix(sourceID, "source:"), ItemType: "source"}

	err := c.do(ctx, http.MethodPost, "/api/embed", payload, nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil
		}
	}
	return err
}

type notebookEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// listNotebooks handles both response shapes the API has shipped: a bare
// array and an object with a "notebooks" key.
func (c *Client) listNotebooks(ctx context.Context) ([]notebookEntry, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/notebooks", nil, &raw); err != nil {
		return nil, err
	}

	var list []notebookEntry
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Notebooks []notebookEntry `json:"notebooks"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, services.Wrap(services.ErrTransient, "uploading", "list notebooks", "Unexpected notebook list payload", err)
	}
	return wrapped.Notebooks, nil
}

// do issues one API request under the fixed-delay policy and decodes the
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	return retry.Do(ctx, c.policy, c.sleeper, func(int) error {
		return c.once(ctx, method, endpoint, payload, out)
	})
}

func (c *Client) once(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return services.Wrap(services.ErrValidation, "uploading", "encode request", "Failed to encode API payload", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		return services.Wrap(services.ErrValidation, "uploading", "build request", "Failed to build API request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "uploading", "read response", "Failed to read API response", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrTransient, "uploading", "decode response", "Failed to decode API response", err)
	}
	return nil
}

func ensurePrefix(id, prefix string) string {
	if strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}
