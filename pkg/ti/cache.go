package ti

import (
	"encoding/json"

	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache memoizes lookup results keyed by (type, sanitized value,
// query subtype). Rows are stored snappy-compressed: raw TI payloads can
// run to tens of kilobytes and most entries are never read back.
type resultCache struct {
	entries *lru.Cache[string, []byte]
}

func newResultCache(size int) (*resultCache, error) {
	if size <= 0 {
		size = 256
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{entries: entries}, nil
}

func (c *resultCache) get(rec NormalizedIoC) (Result, bool) {
	compressed, ok := c.entries.Get(queryKey(rec.IocType, rec.SafeIoc, rec.QuerySubtype))
	if !ok {
		return Result{}, false
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, false
	}
	return result, true
}

func (c *resultCache) put(rec NormalizedIoC, result Result) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.entries.Add(queryKey(rec.IocType, rec.SafeIoc, rec.QuerySubtype), snappy.Encode(nil, data))
}
