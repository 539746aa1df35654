// Package diag runs provider connectivity diagnostics for troubleshooting
// misconfigured tokens, unreachable endpoints, and blocked outbound traffic.
package diag

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	rverrors "github.com/seoplat/rankview/internal/errors"
)

const (
	previewLimit = 100
	dialTimeout  = 5 * time.Second
)

// Prober runs the three diagnostic stages against the configured provider.
type Prober struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Report is the full diagnostic result. Stages are independent; one failing
// never aborts the others.
type Report struct {
	Config       ConfigReport       `json:"config"`
	APITest      APIReport          `json:"api_test"`
	Connectivity ConnectivityReport `json:"connectivity"`
}

// ConfigReport describes the loaded provider settings without leaking the
// token value.
type ConfigReport struct {
	TokenPresent bool   `json:"token_present"`
	TokenLength  int    `json:"token_length"`
	BaseURL      string `json:"base_url"`
}

// APIReport describes one live list-projects call.
type APIReport struct {
	StatusCode     int            `json:"status_code,omitempty"`
	ContentType    string         `json:"content_type,omitempty"`
	ResponseLength int            `json:"response_length,omitempty"`
	Preview        string         `json:"response_preview,omitempty"`
	JSONData       map[string]any `json:"json_data,omitempty"`
	JSONError      string         `json:"json_error,omitempty"`
	Transient      bool           `json:"transient,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// ConnectivityReport describes a raw TCP dial of the provider host.
type ConnectivityReport struct {
	Hostname    string `json:"hostname,omitempty"`
	Port443Open bool   `json:"port_443_open"`
	Error       string `json:"error,omitempty"`
}

// NewProber creates a diagnostic prober.
func NewProber(token, baseURL string, timeout time.Duration, logger zerolog.Logger) *Prober {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "diag").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (p *Prober) SetHTTPClient(hc *http.Client) {
	p.httpClient = hc
}

// Run executes all stages and assembles the report.
func (p *Prober) Run(ctx context.Context) Report {
	report := Report{
		Config: ConfigReport{
			TokenPresent: p.token != "",
			TokenLength:  len(p.token),
			BaseURL:      p.baseURL,
		},
	}
	report.APITest = p.testAPI(ctx)
	report.Connectivity = p.testConnectivity(ctx)

	p.logger.Info().
		Int("api_status", report.APITest.StatusCode).
		Bool("port_443_open", report.Connectivity.Port443Open).
		Msg("diagnostic run complete")
	return report
}

// testAPI issues one list-projects call and records everything observable
// about the response.
func (p *Prober) testAPI(ctx context.Context) APIReport {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return APIReport{Error: "invalid base URL: " + err.Error()}
	}
	q := u.Query()
	q.Set("action", "projects")
	q.Set("token", p.token)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return APIReport{Error: "creating request: " + err.Error()}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return APIReport{Error: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return APIReport{
			StatusCode: resp.StatusCode,
			Error:      "reading body: " + err.Error(),
		}
	}

	report := APIReport{
		StatusCode:     resp.StatusCode,
		ContentType:    resp.Header.Get("Content-Type"),
		ResponseLength: len(body),
		Preview:        preview(body),
		Transient:      rverrors.IsRetryable(rverrors.NewAPIError("awr", resp.StatusCode, "")),
	}

	if strings.HasPrefix(report.ContentType, "application/json") {
		var parsed map[string]any
		if err := json.Unmarshal(body, &parsed); err != nil {
			report.JSONError = "could not parse JSON response"
		} else {
			report.JSONData = parsed
		}
	}
	return report
}

// testConnectivity dials the provider host on 443 to separate firewall
// problems from API-level ones.
func (p *Prober) testConnectivity(ctx context.Context) ConnectivityReport {
	u, err := url.Parse(p.baseURL)
	if err != nil || u.Hostname() == "" {
		return ConnectivityReport{Error: "cannot determine provider hostname"}
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return ConnectivityReport{Hostname: host, Port443Open: false, Error: err.Error()}
	}
	conn.Close()
	return ConnectivityReport{Hostname: host, Port443Open: true}
}

func preview(body []byte) string {
	if len(body) > previewLimit {
		return string(body[:previewLimit]) + "..."
	}
	return string(body)
}
