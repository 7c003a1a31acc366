package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
)

// maxProbeBodySize bounds how much of a failed probe response is kept for logs.
const maxProbeBodySize = 512

type httpProber struct {
	httpClient *http.Client
}

// NewProber creates a Prober that issues a bearer-authenticated GET to the provider probe URL.
func NewProber(timeout time.Duration) Prober {
	return &httpProber{httpClient: newHTTPClient(timeout)}
}

// probeHeaders returns the extra headers a provider API expects on the probe request.
func probeHeaders(p connectorDomain.Provider) (map[string]string, error) {
	switch p {
	case connectorDomain.ProviderGoogleCalendar, connectorDomain.ProviderHubSpot:
		return map[string]string{"Accept": "application/json"}, nil
	case connectorDomain.ProviderSalesforce:
		return map[string]string{"Accept": "application/json", "X-PrettyPrint": "0"}, nil
	case connectorDomain.ProviderPipedrive:
		return map[string]string{"Accept": "application/json"}, nil
	default:
		return nil, connectorDomain.ErrUnknownProvider
	}
}

func (p *httpProber) Probe(
	ctx context.Context,
	cfg *connectorDomain.ProviderConfig,
	accessToken string,
) error {
	headers, err := probeHeaders(cfg.Provider)
	if err != nil {
		return err
	}
	if cfg.ProbeURL == "" {
		return fmt.Errorf("%w: no probe url configured", connectorDomain.ErrProbeFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	client.Timeout = p.httpClient.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.ProbeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", connectorDomain.ErrProbeFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbeBodySize))
		return fmt.Errorf("%w: status %d: %s", connectorDomain.ErrProbeFailed, resp.StatusCode, string(body))
	}
	return nil
}
