package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/services"
	"github.com/ochairo/zepup/internal/external-adapters/index"
)

// maxIndexResponse caps index JSON bodies
const maxIndexResponse = 4 << 20

// HTTPIndexGateway implements repositories.DescriptorRepository against a
// remote release index
type HTTPIndexGateway struct {
	client    *http.Client
	baseURL   string
	retry     RetryPolicy
	userAgent string
	rules     *services.ReleaseService
}

// NewHTTPIndexGateway creates a client for the index at baseURL
func NewHTTPIndexGateway(baseURL string, retry RetryPolicy, userAgent string) *HTTPIndexGateway {
	if userAgent == "" {
		userAgent = "zepup"
	}
	return &HTTPIndexGateway{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		retry:     retry,
		userAgent: userAgent,
		rules:     services.NewReleaseService(nil),
	}
}

// Location returns the index base URL
func (g *HTTPIndexGateway) Location() string {
	return g.baseURL
}

// GetDescriptor retrieves the descriptor for an exact version
func (g *HTTPIndexGateway) GetDescriptor(ctx context.Context, version string) (*entities.ReleaseDescriptor, error) {
	var doc index.ReleaseDocument
	if err := g.getJSON(ctx, "/v1/releases/"+url.PathEscape(version), &doc); err != nil {
		return nil, err
	}
	return g.toEntity(doc)
}

// ListDescriptors returns all descriptors ordered by ascending version
func (g *HTTPIndexGateway) ListDescriptors(ctx context.Context) ([]*entities.ReleaseDescriptor, error) {
	var list index.ReleaseList
	if err := g.getJSON(ctx, "/v1/releases", &list); err != nil {
		return nil, err
	}

	descriptors := make([]*entities.ReleaseDescriptor, 0, len(list.Releases))
	for _, doc := range list.Releases {
		d, err := g.toEntity(doc)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	if err := services.SortDescriptors(descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// LatestDescriptor returns the descriptor with the highest version
func (g *HTTPIndexGateway) LatestDescriptor(ctx context.Context) (*entities.ReleaseDescriptor, error) {
	var doc index.ReleaseDocument
	if err := g.getJSON(ctx, "/v1/releases/latest", &doc); err != nil {
		return nil, err
	}
	return g.toEntity(doc)
}

// toEntity converts an index document and rejects descriptors that fail
// validation, since their checksums and install targets become local paths
func (g *HTTPIndexGateway) toEntity(doc index.ReleaseDocument) (*entities.ReleaseDescriptor, error) {
	d := doc.ToEntity()
	if err := g.rules.ValidateRelease(d).Err(); err != nil {
		return nil, fmt.Errorf("index %s: %w", g.baseURL, err)
	}
	return d, nil
}

func (g *HTTPIndexGateway) getJSON(ctx context.Context, path string, out any) error {
	endpoint := g.baseURL + path

	resp, err := g.retry.do(ctx, g.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", g.userAgent)
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("index request %s failed: %w", endpoint, err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIndexResponse))
	if err != nil {
		return fmt.Errorf("failed to read index response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", entities.ErrDescriptorNotFound, indexError(body, path))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("index returned HTTP %d: %s", resp.StatusCode, indexError(body, resp.Status))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode index response: %w", err)
	}
	return nil
}

func indexError(body []byte, fallback string) string {
	var doc index.ErrorDocument
	if err := json.Unmarshal(body, &doc); err == nil && doc.Error != "" {
		return doc.Error
	}
	return fallback
}
