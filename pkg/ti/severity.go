package ti

import "strings"

// Severity is an ordered classification of how significant a lookup hit is.
type Severity int

const (
	// SeverityUnknown means the provider could not classify the result
	SeverityUnknown Severity = -1
	// SeverityInformation is the default severity for a negative or neutral result
	SeverityInformation Severity = 0
	// SeverityWarning indicates a possible threat
	SeverityWarning Severity = 1
	// SeverityHigh indicates a likely threat
	SeverityHigh Severity = 2
)

// String returns the string representation of a severity
func (s Severity) String() string {
	switch s {
	case SeverityInformation:
		return "information"
	case SeverityWarning:
		return "warning"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a string or numeric value to a Severity.
// Unrecognized values map to SeverityUnknown.
func ParseSeverity(value any) Severity {
	switch v := value.(type) {
	case Severity:
		return v
	case int:
		return severityFromInt(v)
	case int64:
		return severityFromInt(int(v))
	case float64:
		return severityFromInt(int(v))
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "information", "informational", "info":
			return SeverityInformation
		case "warning", "warn", "medium":
			return SeverityWarning
		case "high", "critical":
			return SeverityHigh
		default:
			return SeverityUnknown
		}
	default:
		return SeverityUnknown
	}
}

func severityFromInt(v int) Severity {
	if v < int(SeverityUnknown) || v > int(SeverityHigh) {
		return SeverityUnknown
	}
	return Severity(v)
}

// AtLeast reports whether s is at or above the given threshold
func (s Severity) AtLeast(threshold Severity) bool {
	return s >= threshold
}
