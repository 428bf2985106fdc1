package ti

// Lookup status codes carried in the Status field of a result row.
// Non-zero statuses are non-fatal: the row is still produced.
const (
	StatusOK             = 0
	StatusUnresolvedType = 1
	StatusBadType        = 2
	StatusLookupError    = 3
	StatusNotSupported   = 4
	StatusCancelled      = 5
)

// NormalizedIoC is the sanitized record produced by Provider.Normalize.
// A non-zero Status means type inference failed and no type was supplied;
// the record is still returned so bulk lookups keep one row per input.
type NormalizedIoC struct {
	Ioc          string
	IocType      IoCType
	SafeIoc      string
	QuerySubtype string
	Severity     Severity
	Status       int
	StatusReason string
}

// Result is one lookup result row. The fixed columns mirror the tabular
// output contract: Result (hit), Details, RawResult, Reference, plus the
// normalized item fields.
type Result struct {
	Ioc          string  `json:"ioc"`
	IocType      IoCType `json:"ioc_type"`
	SafeIoc      string  `json:"safe_ioc"`
	QuerySubtype string  `json:"query_subtype,omitempty"`
	Provider     string  `json:"provider"`

	Result    bool     `json:"result"`
	Severity  Severity `json:"severity"`
	Details   any      `json:"details,omitempty"`
	RawResult any      `json:"raw_result,omitempty"`
	Reference string   `json:"reference,omitempty"`

	Status       int    `json:"status"`
	StatusReason string `json:"status_reason,omitempty"`
}

// resultFromNormalized seeds a result row from a normalized record,
// carrying over any normalization failure status.
func resultFromNormalized(provider string, rec NormalizedIoC) Result {
	return Result{
		Ioc:          rec.Ioc,
		IocType:      rec.IocType,
		SafeIoc:      rec.SafeIoc,
		QuerySubtype: rec.QuerySubtype,
		Provider:     provider,
		Severity:     rec.Severity,
		Status:       rec.Status,
		StatusReason: rec.StatusReason,
	}
}
