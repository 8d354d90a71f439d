package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/app/metrics"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

// Source retrieves catalog records from a remote collaborator.
type Source interface {
	Fetch(ctx context.Context) ([]reward.Reward, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]reward.Reward, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]reward.Reward, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx)
}

// HTTPSource fetches the grouped products endpoint of a remote catalog,
// falling back to the flat items endpoint (and merging the rows) when the
// grouped endpoint fails. Only when both fail does the caller see an error.
type HTTPSource struct {
	client      *http.Client
	groupedURL  *url.URL
	fallbackURL *url.URL
	apiKey      string
	log         *logger.Logger
}

// NewHTTPSource constructs a source from the grouped and flat endpoints.
func NewHTTPSource(client *http.Client, groupedEndpoint, fallbackEndpoint, apiKey string, log *logger.Logger) (*HTTPSource, error) {
	groupedEndpoint = strings.TrimSpace(groupedEndpoint)
	fallbackEndpoint = strings.TrimSpace(fallbackEndpoint)
	if groupedEndpoint == "" || fallbackEndpoint == "" {
		return nil, fmt.Errorf("catalog endpoints required")
	}
	grouped, err := url.Parse(groupedEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse grouped endpoint: %w", err)
	}
	fallback, err := url.Parse(fallbackEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse fallback endpoint: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("catalog-source")
	}
	return &HTTPSource{
		client:      client,
		groupedURL:  grouped,
		fallbackURL: fallback,
		apiKey:      strings.TrimSpace(apiKey),
		log:         log,
	}, nil
}

// Fetch retrieves and normalizes the remote catalog.
func (s *HTTPSource) Fetch(ctx context.Context) ([]reward.Reward, error) {
	data, err := s.get(ctx, s.groupedURL)
	if err == nil {
		return RewardsFromJSON(data), nil
	}
	s.log.WithError(err).Warn("grouped catalog fetch failed, trying flat endpoint")
	metrics.RecordCatalogFallback()

	data, fallbackErr := s.get(ctx, s.fallbackURL)
	if fallbackErr != nil {
		return nil, fmt.Errorf("fetch catalog: %w", fallbackErr)
	}
	return MergeByGroup(RewardsFromJSON(data)), nil
}

func (s *HTTPSource) get(ctx context.Context, endpoint *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
