package ti

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
)

var (
	// ErrNotSupported is returned by a backend that does not implement the
	// requested query type or authentication mechanism.
	ErrNotSupported = errors.New("query type not supported by this provider")
)

// QueryDef describes one supported (IoC type, query subtype) combination.
type QueryDef struct {
	IocType IoCType
	// Subtype is empty for the default record type of the IoC type
	Subtype string
	// Description is informational only, surfaced by Usage
	Description string
}

// Key returns the registry key for the definition ("ipv4" or "ipv4-passivedns")
func (q QueryDef) Key() string {
	if q.Subtype == "" {
		return string(q.IocType)
	}
	return string(q.IocType) + "-" + q.Subtype
}

// Backend is the abstract contract a concrete TI service must implement.
// Network and authentication failures are the backend's responsibility to
// report through the returned error.
type Backend interface {
	// Name identifies the provider in result rows and logs
	Name() string
	// Queries returns the supported query definitions keyed by QueryDef.Key
	Queries() map[string]QueryDef
	// LookupIoC performs a single lookup against the backing service.
	// It returns ErrNotSupported for an unsupported (type, subtype) pair.
	LookupIoC(ctx context.Context, ioc string, iocType IoCType, queryType string) (Result, error)
	// ParseResults extracts (hit, severity, details) from a raw response.
	// It must be side-effect free and must not fail on a well-formed
	// negative result, only on malformed input.
	ParseResults(raw any) (hit bool, severity Severity, details any, err error)
}

// Provider wraps a Backend with the shared pre/post-processing every
// provider gets: type inference, sanitization, result caching, rate
// limiting, and bulk orchestration.
type Provider struct {
	backend Backend
	cache   *resultCache
	limiter *rate.Limiter
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Provider
type Option func(*Provider)

// WithCache enables result memoization with the given entry capacity
func WithCache(size int) Option {
	return func(p *Provider) {
		if cache, err := newResultCache(size); err == nil {
			p.cache = cache
		}
	}
}

// WithRateLimit bounds lookup dispatch to the account's configured
// requests-per-second budget
func WithRateLimit(rps float64, burst int) Option {
	return func(p *Provider) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger logging.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithMetrics records lookup and cache metrics into the given registry
func WithMetrics(reg *metrics.Registry) Option {
	return func(p *Provider) { p.metrics = reg }
}

// NewProvider wraps a backend with the shared provider behavior
func NewProvider(backend Backend, opts ...Option) *Provider {
	p := &Provider{
		backend: backend,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the backend's provider name
func (p *Provider) Name() string { return p.backend.Name() }

// Normalize checks and cleans up a single observable. When itemType is
// empty the type is inferred; failure to resolve a type is reported in the
// record's Status, not as an error. Normalizing an already-normalized
// record yields the same type and sanitized value.
func (p *Provider) Normalize(item string, itemType IoCType, querySubtype string) NormalizedIoC {
	rec := NormalizedIoC{
		Ioc:          item,
		QuerySubtype: querySubtype,
		Severity:     SeverityInformation,
	}

	resolved := itemType
	if resolved == "" || resolved == IoCUnknown {
		resolved = ResolveIoCType(item)
		if resolved == IoCUnknown {
			// defanged values ("evil[.]com", "hxxp://...") only classify
			// after refanging
			resolved = ResolveIoCType(SanitizeIoC(item, IoCUnknown))
		}
	}

	switch {
	case resolved == IoCUnknown:
		rec.IocType = IoCUnknown
		rec.SafeIoc = SanitizeIoC(item, IoCUnknown)
		rec.Status = StatusUnresolvedType
		rec.StatusReason = "could not infer IoC type and none was supplied"
	case !resolved.IsValid():
		rec.IocType = IoCUnknown
		rec.SafeIoc = SanitizeIoC(item, IoCUnknown)
		rec.Status = StatusBadType
		rec.StatusReason = fmt.Sprintf("unrecognized IoC type %q", resolved)
	default:
		rec.IocType = resolved
		rec.SafeIoc = SanitizeIoC(item, resolved)
	}
	return rec
}

// Supports reports whether the backend registered the (type, subtype) pair.
// A subtype-specific lookup falls back to the type's default definition.
func (p *Provider) Supports(iocType IoCType, queryType string) bool {
	defs := p.backend.Queries()
	if queryType != "" {
		if _, ok := defs[string(iocType)+"-"+queryType]; ok {
			return true
		}
		return false
	}
	_, ok := defs[string(iocType)]
	return ok
}

// LookupItem looks up a single observable synchronously. Results for a
// given (type, value, subtype) are memoized when caching is enabled, to
// avoid repeated network calls for the same item.
func (p *Provider) LookupItem(ctx context.Context, item string, itemType IoCType, queryType string) Result {
	rec := p.Normalize(item, itemType, queryType)
	row := resultFromNormalized(p.Name(), rec)
	if rec.Status != StatusOK {
		p.recordLookup(rec.IocType, "normalize_failed")
		return row
	}

	if p.cache != nil {
		if cached, ok := p.cache.get(rec); ok {
			p.recordCache(true)
			return cached
		}
		p.recordCache(false)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			row.Status = StatusCancelled
			row.StatusReason = err.Error()
			p.recordLookup(rec.IocType, "cancelled")
			return row
		}
	}

	start := time.Now()
	result, err := p.backend.LookupIoC(ctx, rec.SafeIoc, rec.IocType, queryType)
	p.recordLookupDuration(time.Since(start))
	if err != nil {
		if errors.Is(err, ErrNotSupported) {
			row.Status = StatusNotSupported
		} else {
			row.Status = StatusLookupError
		}
		row.StatusReason = err.Error()
		p.logger.Warn("lookup failed",
			logging.Provider(p.Name()),
			logging.Ioc(rec.SafeIoc),
			logging.Error(err))
		p.recordLookup(rec.IocType, "error")
		return row
	}

	// carry normalized fields into the backend's row
	result.Ioc = rec.Ioc
	result.IocType = rec.IocType
	result.SafeIoc = rec.SafeIoc
	result.QuerySubtype = rec.QuerySubtype
	result.Provider = p.Name()

	if p.cache != nil {
		p.cache.put(rec, result)
	}
	p.recordLookup(rec.IocType, "ok")
	return result
}

// Usage returns the supported (type, subtype) combinations, sorted.
// It is purely informational and has no side effects.
func (p *Provider) Usage() []string {
	defs := p.backend.Queries()
	keys := make([]string, 0, len(defs))
	for key := range defs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		def := defs[key]
		line := fmt.Sprintf("ioc_type=%s", def.IocType)
		if def.Subtype != "" {
			line += fmt.Sprintf(", query_type=%s", def.Subtype)
		}
		if def.Description != "" {
			line += ": " + def.Description
		}
		lines = append(lines, line)
	}
	return lines
}

// WriteUsage writes the provider usage summary to w
func (p *Provider) WriteUsage(w io.Writer) {
	fmt.Fprintf(w, "%s supported query types:\n", p.Name())
	for _, line := range p.Usage() {
		fmt.Fprintf(w, "\t%s\n", line)
	}
}

func (p *Provider) recordLookup(iocType IoCType, status string) {
	if p.metrics != nil {
		p.metrics.RecordLookup(p.Name(), string(iocType), status)
	}
}

func (p *Provider) recordLookupDuration(d time.Duration) {
	if p.metrics != nil {
		p.metrics.RecordLookupDuration(p.Name(), d)
	}
}

func (p *Provider) recordCache(hit bool) {
	if p.metrics != nil {
		p.metrics.RecordCacheAccess(p.Name(), hit)
	}
}

// queryKey builds the cache/registry key for a lookup
func queryKey(iocType IoCType, safeIoc, queryType string) string {
	var b strings.Builder
	b.WriteString(string(iocType))
	b.WriteByte('|')
	b.WriteString(safeIoc)
	if queryType != "" {
		b.WriteByte('|')
		b.WriteString(queryType)
	}
	return b.String()
}
