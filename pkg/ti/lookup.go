package ti

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// lookupItem is one resolved (value, declared type) pair from a bulk input
type lookupItem struct {
	value   string
	iocType IoCType
}

// BulkInput is the tagged union of accepted bulk lookup inputs:
// Values (types inferred per item), Mapping (item -> declared type), or
// Rows (tabular input with designated item/type columns).
type BulkInput interface {
	items() ([]lookupItem, error)
}

// Values is a bare sequence of observables; types are inferred per item
type Values []string

func (v Values) items() ([]lookupItem, error) {
	out := make([]lookupItem, len(v))
	for i, value := range v {
		out[i] = lookupItem{value: value}
	}
	return out, nil
}

// Mapping associates each observable with its declared type. Map iteration
// order is not stable in Go, so rows are produced in sorted-key order;
// that order is the "input order" for the result table.
type Mapping map[string]IoCType

func (m Mapping) items() ([]lookupItem, error) {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]lookupItem, len(keys))
	for i, key := range keys {
		out[i] = lookupItem{value: key, iocType: m[key]}
	}
	return out, nil
}

// Rows is a tabular input. ItemColumn must name the observable column;
// TypeColumn is optional (types inferred when absent).
type Rows struct {
	Rows       []map[string]any
	ItemColumn string
	TypeColumn string
}

func (r Rows) items() ([]lookupItem, error) {
	if r.ItemColumn == "" {
		return nil, fmt.Errorf("tabular input requires an item column name")
	}
	out := make([]lookupItem, len(r.Rows))
	for i, row := range r.Rows {
		raw, ok := row[r.ItemColumn]
		if !ok {
			return nil, fmt.Errorf("row %d has no column %q", i, r.ItemColumn)
		}
		item := lookupItem{value: fmt.Sprintf("%v", raw)}
		if r.TypeColumn != "" {
			if t, ok := row[r.TypeColumn]; ok {
				item.iocType = IoCType(fmt.Sprintf("%v", t))
			}
		}
		out[i] = item
	}
	return out, nil
}

// LookupItems looks up a collection of observables synchronously. The
// result always has exactly one row per input item, in input order,
// regardless of per-item success or failure.
func (p *Provider) LookupItems(ctx context.Context, input BulkInput, queryType string) ([]Result, error) {
	items, err := input.items()
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(items))
	for i, item := range items {
		results[i] = p.LookupItem(ctx, item.value, item.iocType, queryType)
	}
	return results, nil
}

// LookupItemsAsync is the cooperative bulk-lookup variant. Items are
// dispatched concurrently, bounded by the provider's configured rate
// limit; rows are reassembled in input order regardless of completion
// order. Without a rate limit the fan-out is capped at a small fixed
// width. There is no cancellation primitive beyond ctx.
func (p *Provider) LookupItemsAsync(ctx context.Context, input BulkInput, queryType string) ([]Result, error) {
	items, err := input.items()
	if err != nil {
		return nil, err
	}

	width := 4
	if p.limiter != nil {
		width = p.limiter.Burst()
	}
	if width < 1 {
		width = 1
	}
	if width > len(items) {
		width = len(items)
	}

	results := make([]Result, len(items))
	sem := make(chan struct{}, width)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item lookupItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = p.LookupItem(ctx, item.value, item.iocType, queryType)
		}(i, item)
	}
	wg.Wait()

	return results, nil
}
