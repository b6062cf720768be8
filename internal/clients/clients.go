// Package clients provides HTTP clients for external APIs
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"nasa-explorer/internal/domain"
)

const (
	// maxErrorBody bounds the upstream body kept on an HttpError
	maxErrorBody = 512
	// maxBody bounds how much of any response is read
	maxBody = 16 << 20
)

// HTTPClient is a wrapper around http.Client with common configuration
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a new HTTP client with timeout
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Get performs a GET request and classifies the outcome
func (c *HTTPClient) Get(ctx context.Context, rawURL string) domain.FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.ErrResult(domain.Network(err))
	}
	req.Header.Set("User-Agent", "nasa-explorer/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = RedactKey(ue.URL)
		}
		return domain.ErrResult(domain.Network(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return domain.ErrResult(domain.Network(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ErrResult(domain.HTTPStatus(resp.StatusCode, truncate(string(body), maxErrorBody)))
	}
	if len(body) > maxBody {
		return domain.ErrResult(domain.Malformed(fmt.Sprintf("body exceeds %d bytes", maxBody), nil))
	}
	if !json.Valid(body) {
		return domain.ErrResult(domain.Malformed("body is not JSON", nil))
	}
	return domain.OkResult(json.RawMessage(body))
}

// NasaClient fetches data from NASA APIs
type NasaClient struct {
	http      *HTTPClient
	apiKey    string
	apiURL    string
	imagesURL string
}

// NewNasaClient creates a new NASA API client
func NewNasaClient(apiKey, apiURL, imagesURL string) *NasaClient {
	return &NasaClient{
		http:      NewHTTPClient(),
		apiKey:    apiKey,
		apiURL:    strings.TrimRight(apiURL, "/"),
		imagesURL: strings.TrimRight(imagesURL, "/"),
	}
}

// endpoint is the URL template for one resource
type endpoint struct {
	images bool
	path   func(q domain.QueryDescriptor) string
	keyed  bool
}

var endpoints = map[domain.Resource]endpoint{
	domain.ResourceApod: {
		path:  func(domain.QueryDescriptor) string { return "/planetary/apod" },
		keyed: true,
	},
	domain.ResourceMarsPhotos: {
		path: func(q domain.QueryDescriptor) string {
			return fmt.Sprintf("/mars-photos/api/v1/rovers/%s/photos", url.PathEscape(q.Rover()))
		},
		keyed: true,
	},
	domain.ResourceNeoFeed: {
		path:  func(domain.QueryDescriptor) string { return "/neo/rest/v1/feed" },
		keyed: true,
	},
	domain.ResourceImageSearch: {
		images: true,
		path:   func(domain.QueryDescriptor) string { return "/search" },
	},
}

// URL builds the request URL for a descriptor
func (c *NasaClient) URL(q domain.QueryDescriptor) (string, error) {
	ep, ok := endpoints[q.Resource()]
	if !ok {
		return "", fmt.Errorf("no endpoint for resource %q", q.Resource())
	}
	base := c.apiURL
	if ep.images {
		base = c.imagesURL
	}

	u, err := url.Parse(base + ep.path(q))
	if err != nil {
		return "", err
	}
	params := q.Params()
	if ep.keyed && c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// Fetch issues exactly one GET for the descriptor
func (c *NasaClient) Fetch(ctx context.Context, q domain.QueryDescriptor) domain.FetchResult {
	u, err := c.URL(q)
	if err != nil {
		return domain.ErrResult(domain.Network(err))
	}
	return c.http.Get(ctx, u)
}

// RedactKey hides the api_key value of a URL for logging
func RedactKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
