package ti

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// IoCType is the category of an observable (indicator of compromise)
type IoCType string

const (
	IoCIPv4        IoCType = "ipv4"
	IoCIPv6        IoCType = "ipv6"
	IoCDNS         IoCType = "dns"
	IoCURL         IoCType = "url"
	IoCEmail       IoCType = "email"
	IoCMD5         IoCType = "md5_hash"
	IoCSHA1        IoCType = "sha1_hash"
	IoCSHA256      IoCType = "sha256_hash"
	IoCFilePath    IoCType = "file_path"
	IoCRegistryKey IoCType = "registry_key"
	// IoCUnknown is the sentinel for a value whose type could not be determined
	IoCUnknown IoCType = "unknown"
)

// AllIoCTypes lists every resolvable type (excluding the unknown sentinel)
var AllIoCTypes = []IoCType{
	IoCIPv4, IoCIPv6, IoCDNS, IoCURL, IoCEmail,
	IoCMD5, IoCSHA1, IoCSHA256, IoCFilePath, IoCRegistryKey,
}

// IsValid reports whether t is a known IoC type
func (t IoCType) IsValid() bool {
	for _, valid := range AllIoCTypes {
		if t == valid {
			return true
		}
	}
	return false
}

var (
	// ReDoS-safe domain pattern
	domainPattern = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)
	md5Pattern    = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)
	sha1Pattern   = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	sha256Pattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
	// Windows drive or UNC path, or absolute unix path with at least one separator
	winPathPattern  = regexp.MustCompile(`^(?:[a-zA-Z]:\\|\\\\)[^<>|?*\x00-\x1f]+$`)
	unixPathPattern = regexp.MustCompile(`^/(?:[^/\x00]+/)*[^/\x00]+$`)
	ctrlPattern     = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

var registryHives = []string{"HKEY_", "HKLM\\", "HKCU\\", "HKU\\", "HKCR\\", "HKCC\\"}

// ResolveIoCType maps an arbitrary observable string to an IoC type.
// The classification is deterministic and side-effect free; values that
// match no known format resolve to IoCUnknown.
func ResolveIoCType(observable string) IoCType {
	value := strings.TrimSpace(observable)
	if value == "" {
		return IoCUnknown
	}

	if ip := net.ParseIP(value); ip != nil {
		if ip.To4() != nil {
			return IoCIPv4
		}
		return IoCIPv6
	}

	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "ftp://") {
		if _, err := url.Parse(value); err == nil {
			return IoCURL
		}
	}

	if strings.Contains(value, "@") && !strings.ContainsAny(value, "/\\") {
		if _, err := mail.ParseAddress(value); err == nil {
			return IoCEmail
		}
	}

	switch {
	case md5Pattern.MatchString(value):
		return IoCMD5
	case sha1Pattern.MatchString(value):
		return IoCSHA1
	case sha256Pattern.MatchString(value):
		return IoCSHA256
	}

	upper := strings.ToUpper(value)
	for _, hive := range registryHives {
		if strings.HasPrefix(upper, hive) {
			return IoCRegistryKey
		}
	}

	if winPathPattern.MatchString(value) || unixPathPattern.MatchString(value) {
		return IoCFilePath
	}

	if domainPattern.MatchString(lower) {
		return IoCDNS
	}

	return IoCUnknown
}

// maximum observable length after sanitization
const maxIoCLength = 2048

// SanitizeIoC produces a safe, canonical representation of an observable.
// Defanged notation is restored ("hxxp" and "[.]"), control characters are
// stripped, surrounding whitespace removed, and case-insensitive types are
// lowercased. Sanitization is idempotent.
func SanitizeIoC(value string, iocType IoCType) string {
	clean := strings.TrimSpace(value)
	clean = ctrlPattern.ReplaceAllString(clean, "")
	// nested defanging ("[[.]]") re-exposes brackets, so replace to fixpoint
	for {
		next := strings.ReplaceAll(clean, "[.]", ".")
		next = strings.ReplaceAll(next, "(.)", ".")
		if next == clean {
			break
		}
		clean = next
	}
	if strings.HasPrefix(strings.ToLower(clean), "hxxp") {
		clean = "http" + clean[4:]
	}
	if len(clean) > maxIoCLength {
		// back the cut up to a rune boundary so truncation never leaves
		// invalid UTF-8
		cut := maxIoCLength
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		clean = strings.TrimSpace(clean[:cut])
	}

	switch iocType {
	case IoCIPv4, IoCIPv6, IoCDNS, IoCMD5, IoCSHA1, IoCSHA256:
		return strings.ToLower(clean)
	case IoCEmail:
		// local part is case-sensitive, domain is not
		if at := strings.LastIndex(clean, "@"); at > 0 {
			return clean[:at] + strings.ToLower(clean[at:])
		}
		return clean
	case IoCURL:
		if parsed, err := url.Parse(clean); err == nil {
			parsed.Scheme = strings.ToLower(parsed.Scheme)
			parsed.Host = strings.ToLower(parsed.Host)
			return parsed.String()
		}
		return clean
	default:
		return clean
	}
}
