package ti

import (
	"context"
	"testing"
)

func TestLookupItemsValues(t *testing.T) {
	backend := newFakeBackend()
	backend.hits["8.8.8.8"] = SeverityWarning
	p := NewProvider(backend)

	input := Values{"8.8.8.8", "evil.example.com", "???", "198.51.100.9"}
	results, err := p.LookupItems(context.Background(), input, "")
	if err != nil {
		t.Fatalf("LookupItems failed: %v", err)
	}

	// One row per input, in input order, failures included
	if len(results) != len(input) {
		t.Fatalf("Expected %d rows, got %d", len(input), len(results))
	}
	for i, row := range results {
		if row.Ioc != input[i] {
			t.Errorf("Row %d out of order: %q", i, row.Ioc)
		}
	}
	if !results[0].Result {
		t.Error("Expected hit for listed IP")
	}
	if results[2].Status != StatusUnresolvedType {
		t.Errorf("Unresolvable input should keep its row, got status %d", results[2].Status)
	}
}

func TestLookupItemsMapping(t *testing.T) {
	p := NewProvider(newFakeBackend())

	input := Mapping{
		"8.8.8.8":     IoCIPv4,
		"example.com": IoCDNS,
	}
	results, err := p.LookupItems(context.Background(), input, "")
	if err != nil {
		t.Fatalf("LookupItems failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(results))
	}
	// Sorted-key order
	if results[0].Ioc != "8.8.8.8" || results[1].Ioc != "example.com" {
		t.Errorf("Rows not in sorted-key order: %s, %s", results[0].Ioc, results[1].Ioc)
	}
	if results[0].IocType != IoCIPv4 || results[1].IocType != IoCDNS {
		t.Error("Declared types not honored")
	}
}

func TestLookupItemsRows(t *testing.T) {
	p := NewProvider(newFakeBackend())

	input := Rows{
		Rows: []map[string]any{
			{"Observable": "8.8.8.8", "ObsType": "ipv4"},
			{"Observable": "example.com", "ObsType": "dns"},
		},
		ItemColumn: "Observable",
		TypeColumn: "ObsType",
	}
	results, err := p.LookupItems(context.Background(), input, "")
	if err != nil {
		t.Fatalf("LookupItems failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(results))
	}
	if results[0].IocType != IoCIPv4 || results[1].IocType != IoCDNS {
		t.Error("Type column not honored")
	}
}

func TestLookupItemsRowsErrors(t *testing.T) {
	p := NewProvider(newFakeBackend())

	_, err := p.LookupItems(context.Background(), Rows{
		Rows: []map[string]any{{"Observable": "8.8.8.8"}},
	}, "")
	if err == nil {
		t.Error("Expected error without an item column name")
	}

	_, err = p.LookupItems(context.Background(), Rows{
		Rows:       []map[string]any{{"Other": "8.8.8.8"}},
		ItemColumn: "Observable",
	}, "")
	if err == nil {
		t.Error("Expected error when a row lacks the item column")
	}
}

func TestLookupItemsEmpty(t *testing.T) {
	p := NewProvider(newFakeBackend())

	results, err := p.LookupItems(context.Background(), Values{}, "")
	if err != nil {
		t.Fatalf("Empty input should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 rows, got %d", len(results))
	}
}

func TestLookupItemsAsync(t *testing.T) {
	backend := newFakeBackend()
	backend.hits["8.8.8.8"] = SeverityHigh
	p := NewProvider(backend)

	input := Values{"8.8.8.8", "evil.example.com", "1.1.1.1", "???", "203.0.113.7"}
	results, err := p.LookupItemsAsync(context.Background(), input, "")
	if err != nil {
		t.Fatalf("LookupItemsAsync failed: %v", err)
	}

	// Rows come back in input order regardless of completion order
	if len(results) != len(input) {
		t.Fatalf("Expected %d rows, got %d", len(input), len(results))
	}
	for i, row := range results {
		if row.Ioc != input[i] {
			t.Errorf("Row %d out of order: %q, want %q", i, row.Ioc, input[i])
		}
	}
	if !results[0].Result || results[0].Severity != SeverityHigh {
		t.Errorf("Hit row wrong: %+v", results[0])
	}
	if results[3].Status != StatusUnresolvedType {
		t.Errorf("Failure row missing: %+v", results[3])
	}
}

func TestLookupItemsAsyncEmpty(t *testing.T) {
	p := NewProvider(newFakeBackend())

	results, err := p.LookupItemsAsync(context.Background(), Values{}, "")
	if err != nil {
		t.Fatalf("Empty input should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 rows, got %d", len(results))
	}
}

func TestLookupItemsAsyncMatchesSync(t *testing.T) {
	makeProvider := func() *Provider {
		backend := newFakeBackend()
		backend.hits["8.8.8.8"] = SeverityWarning
		return NewProvider(backend)
	}
	input := Values{"8.8.8.8", "example.com", "???"}

	sync, err := makeProvider().LookupItems(context.Background(), input, "")
	if err != nil {
		t.Fatal(err)
	}
	async, err := makeProvider().LookupItemsAsync(context.Background(), input, "")
	if err != nil {
		t.Fatal(err)
	}

	if len(sync) != len(async) {
		t.Fatalf("Row counts differ: %d vs %d", len(sync), len(async))
	}
	for i := range sync {
		if sync[i].Ioc != async[i].Ioc || sync[i].Status != async[i].Status ||
			sync[i].Result != async[i].Result {
			t.Errorf("Row %d differs: %+v vs %+v", i, sync[i], async[i])
		}
	}
}
