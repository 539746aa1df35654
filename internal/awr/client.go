// Package awr wraps the AWR rank-tracking REST API. Every operation returns
// an Envelope; no error value crosses the package boundary.
package awr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	rverrors "github.com/seoplat/rankview/internal/errors"
	"github.com/seoplat/rankview/internal/metrics"
)

const (
	actionProjects = "projects"
	actionDetails  = "details"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the provider connection settings, has no backing globals, and
// is read-only after construction.
type Config struct {
	Token   string
	BaseURL string
	// Limit is reserved for future pagination; no current call sends it.
	Limit   int
	Timeout time.Duration
}

// Client wraps the provider REST API. A single instance may be shared by
// concurrent callers; it holds no mutable state between calls.
type Client struct {
	cfg        Config
	httpClient HTTPClient
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new provider API client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "awr").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// SetMetrics attaches a metrics collector. Optional.
func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// BaseURL returns the configured provider base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// ListProjects fetches all projects in the account. The returned envelope is
// either a success carrying the project sequence, an error, or — when the
// body parsed but matched no known layout — a success-shaped passthrough of
// the raw body with a warning set.
func (c *Client) ListProjects(ctx context.Context) Envelope {
	body, err := c.fetch(ctx, actionProjects, nil)
	if err != nil {
		c.recordError(err)
		return errorEnvelope(err.Error())
	}

	// A nonzero embedded code wins over any data that rode along with it.
	if code, msg, ok := providerCode(body); ok && code != 0 {
		provErr := rverrors.NewProviderError(code, msg)
		c.recordError(provErr)
		return errorEnvelope(provErr.Error())
	}

	projects, shape := normalizeProjectList(body)
	if shape == ShapeUnrecognized {
		c.logger.Warn().
			Int("keys", len(body)).
			Msg("response has no recognizable project list, passing through")
		if c.metrics != nil {
			c.metrics.RecordError("awr", "shape_mismatch")
		}
		return Envelope{
			OK:      true,
			Raw:     body,
			Warning: "unexpected response format: no project list found",
		}
	}

	if shape == ShapeAliased {
		c.logger.Debug().Msg("project list found under non-canonical key")
	}
	return Envelope{OK: true, Projects: projects, Raw: body}
}

// ProjectDetails fetches details for the project with the given ID. The
// details endpoint addresses projects by name, so the ID is first resolved
// against the project list; a list failure propagates unchanged and a
// resolution miss never reaches the details endpoint.
func (c *Client) ProjectDetails(ctx context.Context, projectID string) Envelope {
	list := c.ListProjects(ctx)
	if !list.OK {
		return errorEnvelope(list.Error)
	}

	summary, ok := findProject(list.Projects, projectID)
	if !ok {
		if c.metrics != nil {
			c.metrics.RecordError("awr", "lookup_miss")
		}
		return errorEnvelope(fmt.Sprintf("project with id %s not found", projectID))
	}

	body, err := c.fetch(ctx, actionDetails, url.Values{"project": {summary.Name()}})
	if err != nil {
		c.recordError(err)
		return errorEnvelope(err.Error())
	}

	if code, msg, ok := providerCode(body); ok && code != 0 {
		provErr := rverrors.NewProviderError(code, msg)
		c.recordError(provErr)
		return errorEnvelope(provErr.Error())
	}

	return Envelope{OK: true, Project: mergeDetails(summary, body), Raw: body}
}

// fetch executes one GET against the provider and parses the JSON body.
// Single attempt, no retries.
func (c *Client) fetch(ctx context.Context, action string, extra url.Values) (map[string]any, error) {
	start := time.Now()

	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("action", action)
	q.Set("token", c.cfg.Token)
	for k, vs := range extra {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(action, "network_error", duration)
		return nil, &rverrors.APIError{Service: "awr", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(action, "http_error", duration)
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, rverrors.NewAPIError("awr", resp.StatusCode, string(preview))
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.observe(action, "parse_error", duration)
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.observe(action, "ok", duration)
	c.logger.Debug().
		Str("action", action).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("provider call")
	return body, nil
}

func (c *Client) observe(action, status string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordProviderCall(action, status)
	c.metrics.ObserveProviderDuration(action, d.Seconds())
}

func (c *Client) recordError(err error) {
	c.logger.Error().Err(err).Msg("provider call failed")
	if c.metrics == nil {
		return
	}
	switch {
	case rverrors.IsAuthFailure(err):
		c.metrics.RecordError("awr", "auth_failure")
	default:
		c.metrics.RecordError("awr", "provider_error")
	}
}
