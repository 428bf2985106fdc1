package ti

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestNormalizationInvariants uses property-based testing to verify the
// normalization and bulk-lookup contracts hold for arbitrary input
func TestNormalizationInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property 1: sanitization is idempotent for every type
	properties.Property("sanitize is idempotent", prop.ForAll(
		func(value string) bool {
			for _, iocType := range AllIoCTypes {
				once := SanitizeIoC(value, iocType)
				twice := SanitizeIoC(once, iocType)
				if once != twice {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	// Property 2: type resolution is deterministic
	properties.Property("resolve is deterministic", prop.ForAll(
		func(value string) bool {
			return ResolveIoCType(value) == ResolveIoCType(value)
		},
		gen.AnyString(),
	))

	// Property 3: normalizing a normalized record is a fixed point
	properties.Property("normalize is idempotent", prop.ForAll(
		func(value string) bool {
			p := NewProvider(newFakeBackend())
			first := p.Normalize(value, "", "")
			if first.Status != StatusOK {
				return true
			}
			second := p.Normalize(first.SafeIoc, first.IocType, "")
			return second.IocType == first.IocType && second.SafeIoc == first.SafeIoc
		},
		gen.AnyString(),
	))

	// Property 4: bulk lookup always yields one row per input, in order
	properties.Property("bulk lookup preserves input order", prop.ForAll(
		func(values []string) bool {
			p := NewProvider(newFakeBackend())
			results, err := p.LookupItems(context.Background(), Values(values), "")
			if err != nil {
				return false
			}
			if len(results) != len(values) {
				return false
			}
			for i, row := range results {
				if row.Ioc != values[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	// Property 5: async bulk lookup yields the same rows as sync
	properties.Property("async matches sync", prop.ForAll(
		func(values []string) bool {
			p := NewProvider(newFakeBackend())
			sync, err := p.LookupItems(context.Background(), Values(values), "")
			if err != nil {
				return false
			}
			async, err := p.LookupItemsAsync(context.Background(), Values(values), "")
			if err != nil {
				return false
			}
			if len(sync) != len(async) {
				return false
			}
			for i := range sync {
				if sync[i].Ioc != async[i].Ioc || sync[i].Status != async[i].Status {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
