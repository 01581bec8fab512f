package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/logging"
	"github.com/agentx-labs/compkg/internal/manifest"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/agentx-labs/compkg/internal/fetch"

// Client is the HTTP Manifest Fetcher.
type Client struct {
	httpClient *http.Client
	cache      *Cache
	headers    map[string]map[string]string // base URL -> headers
	userAgent  string
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithCache shares a cache owned by the caller.
func WithCache(c *Cache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithHeaders sends headers on every request to the registry at baseURL.
func WithHeaders(baseURL string, headers map[string]string) Option {
	return func(cl *Client) {
		if len(headers) == 0 {
			return
		}
		cl.headers[normalizeBase(baseURL)] = headers
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		cl.logger = logging.OrNop(l)
	}
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		headers:    make(map[string]map[string]string),
		userAgent:  "compkg",
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewCache()
	}
	return c
}

// Cache returns the client's cache.
func (c *Client) Cache() *Cache { return c.cache }

// FetchComponent fetches name's packument from the registry at baseURL and
// returns the manifest for version (or the latest version when empty),
// together with the resolved version string. Each call returns a fresh
// Component the caller may mutate.
func (c *Client) FetchComponent(ctx context.Context, baseURL, name, version string) (*manifest.Component, string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fetch.component", trace.WithAttributes(
		attribute.String("registry", baseURL),
		attribute.String("component", name),
		attribute.String("version", version),
	))
	defer span.End()

	u := componentURL(baseURL, name)
	pack, hit, err := cached(c.cache, u, func() (*manifest.Packument, error) {
		data, err := c.get(ctx, baseURL, u)
		if err != nil {
			return nil, err
		}
		return manifest.ParsePackument(data)
	})
	if err != nil {
		recordError(span, err)
		if errs.Is(err, errs.KindNotFound) {
			return nil, "", errs.NotFoundf("component %q not found in registry %s", name, baseURL)
		}
		return nil, "", err
	}
	c.logger.Debug("packument", zap.String("url", u), zap.Bool("cached", hit))

	resolved, err := SelectVersion(pack, version)
	if err != nil {
		recordError(span, err)
		return nil, "", err
	}
	comp, err := pack.ParseVersion(resolved)
	if err != nil {
		recordError(span, err)
		return nil, "", err
	}
	if comp.Name != name {
		err := errs.Validationf("registry %s served manifest %q for component %q", baseURL, comp.Name, name)
		recordError(span, err)
		return nil, "", err
	}
	span.SetAttributes(attribute.String("resolved_version", resolved))
	return comp, resolved, nil
}

// FetchFileContent fetches one file of a component.
func (c *Client) FetchFileContent(ctx context.Context, baseURL, name, path string) ([]byte, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fetch.file", trace.WithAttributes(
		attribute.String("registry", baseURL),
		attribute.String("component", name),
		attribute.String("path", path),
	))
	defer span.End()

	u := fileURL(baseURL, name, path)
	data, hit, err := cached(c.cache, u, func() ([]byte, error) {
		return c.get(ctx, baseURL, u)
	})
	if err != nil {
		recordError(span, err)
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.NotFoundf("file %q of component %q not found in registry %s", path, name, baseURL)
		}
		return nil, err
	}
	c.logger.Debug("file", zap.String("url", u), zap.Bool("cached", hit))
	return data, nil
}

// FetchRegistryIndex fetches the registry's component index.
func (c *Client) FetchRegistryIndex(ctx context.Context, baseURL string) (*manifest.RegistryIndex, error) {
	u := normalizeBase(baseURL) + "/index.json"
	idx, _, err := cached(c.cache, u, func() (*manifest.RegistryIndex, error) {
		data, err := c.get(ctx, baseURL, u)
		if err != nil {
			return nil, err
		}
		var idx manifest.RegistryIndex
		if err := json.Unmarshal(data, &idx); err != nil {
			return nil, errs.Wrap(errs.KindValidation, err, "decoding registry index %s", u)
		}
		return &idx, nil
	})
	return idx, err
}

func (c *Client) get(ctx context.Context, baseURL, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers[normalizeBase(baseURL)] {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, err, "fetching %s", u)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errs.NotFoundf("%s not found", u)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.Networkf("fetching %s: registry returned status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, err, "reading response body from %s", u)
	}
	return body, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func normalizeBase(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

func componentURL(baseURL, name string) string {
	return normalizeBase(baseURL) + "/components/" + url.PathEscape(name) + ".json"
}

func fileURL(baseURL, name, path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return normalizeBase(baseURL) + "/components/" + url.PathEscape(name) + "/" + strings.Join(segments, "/")
}
