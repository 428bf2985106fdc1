package ti

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequestDef describes how to query a REST TI service for one
// (IoC type, subtype) combination. Path may contain the {observable}
// placeholder, which is substituted with the URL-escaped value.
type RequestDef struct {
	QueryDef
	Path   string
	Method string
	// Params are extra query parameters; values may also contain
	// {observable}
	Params map[string]string
}

// HTTPBackendConfig configures a generic REST TI backend
type HTTPBackendConfig struct {
	Name    string
	BaseURL string
	// APIKey is sent in AuthHeader, prefixed by AuthScheme when set
	APIKey     string
	AuthHeader string
	AuthScheme string
	Timeout    time.Duration
	Requests   []RequestDef
}

// ParseFunc extracts (hit, severity, details) from a decoded response
// body. It must not fail on a well-formed negative result.
type ParseFunc func(raw any) (bool, Severity, any, error)

// HTTPBackend is a Backend for REST TI services that respond with JSON.
// Each concrete service supplies its request definitions and a ParseFunc;
// the shared plumbing (URL building, auth header, response decoding) lives
// here.
type HTTPBackend struct {
	config  HTTPBackendConfig
	client  *http.Client
	parse   ParseFunc
	queries map[string]QueryDef
}

// NewHTTPBackend builds a backend from the given config. A nil parse
// function falls back to "hit when the response body is a non-empty
// object or array".
func NewHTTPBackend(config HTTPBackendConfig, parse ParseFunc) (*HTTPBackend, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("backend name is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if config.AuthHeader == "" {
		config.AuthHeader = "Authorization"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if parse == nil {
		parse = defaultParse
	}

	queries := make(map[string]QueryDef, len(config.Requests))
	for _, req := range config.Requests {
		queries[req.Key()] = req.QueryDef
	}

	return &HTTPBackend{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		parse:   parse,
		queries: queries,
	}, nil
}

// Name implements Backend
func (b *HTTPBackend) Name() string { return b.config.Name }

// Queries implements Backend
func (b *HTTPBackend) Queries() map[string]QueryDef {
	out := make(map[string]QueryDef, len(b.queries))
	for key, def := range b.queries {
		out[key] = def
	}
	return out
}

// ParseResults implements Backend
func (b *HTTPBackend) ParseResults(raw any) (bool, Severity, any, error) {
	return b.parse(raw)
}

// LookupIoC implements Backend. It returns ErrNotSupported when no
// request definition covers the (type, subtype) pair.
func (b *HTTPBackend) LookupIoC(ctx context.Context, ioc string, iocType IoCType, queryType string) (Result, error) {
	def, ok := b.requestFor(iocType, queryType)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrNotSupported, iocType, queryType)
	}

	reqURL, err := b.buildURL(def, ioc)
	if err != nil {
		return Result{}, err
	}

	method := def.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if b.config.APIKey != "" {
		value := b.config.APIKey
		if b.config.AuthScheme != "" {
			value = b.config.AuthScheme + " " + value
		}
		req.Header.Set(b.config.AuthHeader, value)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("provider returned HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var raw any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return Result{}, fmt.Errorf("decoding response: %w", err)
		}
	}

	hit, severity, details, err := b.parse(raw)
	if err != nil {
		return Result{}, fmt.Errorf("parsing response: %w", err)
	}

	return Result{
		Result:    hit,
		Severity:  severity,
		Details:   details,
		RawResult: raw,
		Reference: reqURL,
	}, nil
}

func (b *HTTPBackend) requestFor(iocType IoCType, queryType string) (RequestDef, bool) {
	key := string(iocType)
	if queryType != "" {
		key += "-" + queryType
	}
	for _, def := range b.config.Requests {
		if def.Key() == key {
			return def, true
		}
	}
	return RequestDef{}, false
}

func (b *HTTPBackend) buildURL(def RequestDef, ioc string) (string, error) {
	path := strings.ReplaceAll(def.Path, "{observable}", url.PathEscape(ioc))
	full, err := url.JoinPath(b.config.BaseURL, path)
	if err != nil {
		return "", fmt.Errorf("building URL: %w", err)
	}
	if len(def.Params) == 0 {
		return full, nil
	}
	values := url.Values{}
	for key, value := range def.Params {
		values.Set(key, strings.ReplaceAll(value, "{observable}", ioc))
	}
	return full + "?" + values.Encode(), nil
}

// defaultParse treats any non-empty object or array as a positive hit at
// warning severity. Malformed input (not a JSON object/array/null) errors.
func defaultParse(raw any) (bool, Severity, any, error) {
	switch v := raw.(type) {
	case nil:
		return false, SeverityInformation, nil, nil
	case map[string]any:
		if len(v) == 0 {
			return false, SeverityInformation, nil, nil
		}
		return true, SeverityWarning, v, nil
	case []any:
		if len(v) == 0 {
			return false, SeverityInformation, nil, nil
		}
		return true, SeverityWarning, v, nil
	default:
		return false, SeverityUnknown, nil, fmt.Errorf("unexpected response shape %T", raw)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
