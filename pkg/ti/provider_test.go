package ti

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
)

// fakeBackend is an in-memory Backend for provider tests. It records calls
// and answers from a canned hit set.
type fakeBackend struct {
	mu      sync.Mutex
	calls   int
	hits    map[string]Severity
	queries map[string]QueryDef
	err     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		hits: make(map[string]Severity),
		queries: map[string]QueryDef{
			"ipv4":            {IocType: IoCIPv4, Description: "IP reputation"},
			"ipv4-passivedns": {IocType: IoCIPv4, Subtype: "passivedns", Description: "Passive DNS"},
			"dns":             {IocType: IoCDNS, Description: "Domain reputation"},
			"url":             {IocType: IoCURL},
		},
	}
}

func (f *fakeBackend) Name() string { return "faketi" }

func (f *fakeBackend) Queries() map[string]QueryDef { return f.queries }

func (f *fakeBackend) LookupIoC(ctx context.Context, ioc string, iocType IoCType, queryType string) (Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if f.err != nil {
		return Result{}, f.err
	}
	if _, ok := f.queries[QueryDef{IocType: iocType, Subtype: queryType}.Key()]; !ok {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrNotSupported, iocType, queryType)
	}
	if severity, ok := f.hits[ioc]; ok {
		return Result{Result: true, Severity: severity, Details: "listed"}, nil
	}
	return Result{Result: false, Severity: SeverityInformation}, nil
}

func (f *fakeBackend) ParseResults(raw any) (bool, Severity, any, error) {
	return defaultParse(raw)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNormalize(t *testing.T) {
	p := NewProvider(newFakeBackend())

	t.Run("infers type", func(t *testing.T) {
		rec := p.Normalize("8.8.8.8", "", "")
		if rec.IocType != IoCIPv4 {
			t.Errorf("Expected ipv4, got %s", rec.IocType)
		}
		if rec.Status != StatusOK {
			t.Errorf("Expected OK status, got %d", rec.Status)
		}
		if rec.Severity != SeverityInformation {
			t.Errorf("Expected information default, got %v", rec.Severity)
		}
	})

	t.Run("sanitizes value", func(t *testing.T) {
		rec := p.Normalize("EVIL[.]EXAMPLE[.]COM", "", "")
		if rec.IocType != IoCDNS {
			t.Errorf("Expected dns, got %s", rec.IocType)
		}
		if rec.SafeIoc != "evil.example.com" {
			t.Errorf("Expected sanitized value, got %q", rec.SafeIoc)
		}
	})

	t.Run("unresolvable type is a status not an error", func(t *testing.T) {
		rec := p.Normalize("???", "", "")
		if rec.Status != StatusUnresolvedType {
			t.Errorf("Expected unresolved status, got %d", rec.Status)
		}
		if rec.StatusReason == "" {
			t.Error("Expected a status reason")
		}
	})

	t.Run("bad declared type", func(t *testing.T) {
		rec := p.Normalize("8.8.8.8", IoCType("bogus"), "")
		if rec.Status != StatusBadType {
			t.Errorf("Expected bad type status, got %d", rec.Status)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		first := p.Normalize("EVIL[.]example.com", "", "")
		second := p.Normalize(first.SafeIoc, first.IocType, "")
		if second.SafeIoc != first.SafeIoc || second.IocType != first.IocType {
			t.Errorf("Normalize not idempotent: %+v vs %+v", first, second)
		}
	})
}

func TestSupports(t *testing.T) {
	p := NewProvider(newFakeBackend())

	if !p.Supports(IoCIPv4, "") {
		t.Error("Expected ipv4 default query to be supported")
	}
	if !p.Supports(IoCIPv4, "passivedns") {
		t.Error("Expected ipv4 passivedns to be supported")
	}
	if p.Supports(IoCIPv4, "whois") {
		t.Error("Unregistered subtype should not be supported")
	}
	if p.Supports(IoCMD5, "") {
		t.Error("Unregistered type should not be supported")
	}
}

func TestLookupItem(t *testing.T) {
	backend := newFakeBackend()
	backend.hits["198.51.100.9"] = SeverityHigh
	p := NewProvider(backend)

	row := p.LookupItem(context.Background(), "198.51.100.9", "", "")
	if row.Status != StatusOK {
		t.Fatalf("Expected OK status, got %d (%s)", row.Status, row.StatusReason)
	}
	if !row.Result || row.Severity != SeverityHigh {
		t.Errorf("Expected high severity hit, got %+v", row)
	}
	if row.Provider != "faketi" {
		t.Errorf("Provider name not set: %q", row.Provider)
	}
	if row.Ioc != "198.51.100.9" || row.IocType != IoCIPv4 {
		t.Errorf("Normalized fields not carried: %+v", row)
	}
}

func TestLookupItemMiss(t *testing.T) {
	p := NewProvider(newFakeBackend())

	row := p.LookupItem(context.Background(), "203.0.113.1", "", "")
	if row.Status != StatusOK {
		t.Fatalf("A miss is still a successful lookup, got status %d", row.Status)
	}
	if row.Result {
		t.Error("Expected negative result")
	}
	if row.Severity != SeverityInformation {
		t.Errorf("Expected information severity for a miss, got %v", row.Severity)
	}
}

func TestLookupItemNotSupported(t *testing.T) {
	p := NewProvider(newFakeBackend())

	row := p.LookupItem(context.Background(), "d41d8cd98f00b204e9800998ecf8427e", "", "")
	if row.Status != StatusNotSupported {
		t.Errorf("Expected not-supported status, got %d", row.Status)
	}
}

func TestLookupItemBackendError(t *testing.T) {
	backend := newFakeBackend()
	backend.err = fmt.Errorf("connection refused")
	p := NewProvider(backend)

	row := p.LookupItem(context.Background(), "8.8.8.8", "", "")
	if row.Status != StatusLookupError {
		t.Errorf("Expected lookup-error status, got %d", row.Status)
	}
	if !strings.Contains(row.StatusReason, "connection refused") {
		t.Errorf("Status reason should carry the cause: %q", row.StatusReason)
	}
}

func TestLookupItemNormalizeFailureSkipsBackend(t *testing.T) {
	backend := newFakeBackend()
	p := NewProvider(backend)

	row := p.LookupItem(context.Background(), "???", "", "")
	if row.Status != StatusUnresolvedType {
		t.Errorf("Expected unresolved status, got %d", row.Status)
	}
	if backend.callCount() != 0 {
		t.Errorf("Backend should not be called for unresolvable input, got %d calls", backend.callCount())
	}
}

func TestLookupItemCaching(t *testing.T) {
	backend := newFakeBackend()
	backend.hits["8.8.8.8"] = SeverityWarning
	p := NewProvider(backend, WithCache(16))

	first := p.LookupItem(context.Background(), "8.8.8.8", "", "")
	second := p.LookupItem(context.Background(), "8.8.8.8", "", "")

	if backend.callCount() != 1 {
		t.Errorf("Expected 1 backend call with caching, got %d", backend.callCount())
	}
	if first.Result != second.Result || first.Severity != second.Severity {
		t.Errorf("Cached row differs: %+v vs %+v", first, second)
	}

	// A different subtype is a different cache entry
	p.LookupItem(context.Background(), "8.8.8.8", "", "passivedns")
	if backend.callCount() != 2 {
		t.Errorf("Expected subtype to miss the cache, got %d calls", backend.callCount())
	}
}

func TestLookupItemRecordsDuration(t *testing.T) {
	reg := metrics.NewRegistry()
	backend := newFakeBackend()
	p := NewProvider(backend, WithMetrics(reg))

	p.LookupItem(context.Background(), "8.8.8.8", "", "")
	if got := testutil.CollectAndCount(reg.LookupDuration); got != 1 {
		t.Errorf("Expected 1 latency series after a lookup, got %d", got)
	}

	// the backend-error path is timed too
	backend.err = fmt.Errorf("service down")
	p.LookupItem(context.Background(), "1.1.1.1", "", "")
	if got := testutil.CollectAndCount(reg.LookupDuration); got != 1 {
		t.Errorf("Expected the same provider series, got %d", got)
	}
	if count := testutil.CollectAndCount(reg.LookupsTotal); count < 2 {
		t.Errorf("Expected lookup counters for both outcomes, got %d", count)
	}
}

func TestLookupItemCancelled(t *testing.T) {
	p := NewProvider(newFakeBackend(), WithRateLimit(0.001, 1))

	ctx, cancel := context.WithCancel(context.Background())
	// Consume the burst token, then cancel so the next wait fails
	p.LookupItem(ctx, "8.8.8.8", "", "")
	cancel()

	row := p.LookupItem(ctx, "1.1.1.1", "", "")
	if row.Status != StatusCancelled {
		t.Errorf("Expected cancelled status, got %d", row.Status)
	}
}

func TestUsage(t *testing.T) {
	p := NewProvider(newFakeBackend())

	lines := p.Usage()
	if len(lines) != 4 {
		t.Fatalf("Expected 4 usage lines, got %d", len(lines))
	}
	// Sorted by registry key
	if !strings.Contains(lines[0], "ioc_type=dns") {
		t.Errorf("Expected dns first, got %q", lines[0])
	}
	found := false
	for _, line := range lines {
		if strings.Contains(line, "ioc_type=ipv4") && strings.Contains(line, "query_type=passivedns") {
			found = true
		}
	}
	if !found {
		t.Error("Subtype combination missing from usage")
	}

	var b strings.Builder
	p.WriteUsage(&b)
	if !strings.Contains(b.String(), "faketi supported query types:") {
		t.Errorf("WriteUsage missing header: %q", b.String())
	}
}
