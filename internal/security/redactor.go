package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder replaces every secret found.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys whose values are secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|api_key|credential|authorization)`)

// botPathPattern matches the token segment of a Bot API URL.
var botPathPattern = regexp.MustCompile(`/bot[^/\s"]+/`)

// Redactor strips secrets from strings and maps. It knows the Bot API
// token format, bearer headers, and every value held by its credential
// store at the time of the call. All methods are safe for concurrent use.
type Redactor struct {
	store *CredentialStore

	mu       sync.RWMutex
	patterns []*regexp.Regexp
}

// NewRedactor creates a Redactor with DefaultPatterns. store may be nil.
func NewRedactor(store *CredentialStore) *Redactor {
	return &Redactor{store: store, patterns: DefaultPatterns()}
}

// AddPattern adds a pattern whose matches are redacted.
func (r *Redactor) AddPattern(p *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, p)
}

// Redact returns s with every known secret replaced.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	if r.store != nil {
		for _, secret := range r.store.Values() {
			s = strings.ReplaceAll(s, secret, RedactPlaceholder)
		}
	}

	s = botPathPattern.ReplaceAllString(s, "/bot"+RedactPlaceholder+"/")

	r.mu.RLock()
	patterns := r.patterns
	r.mu.RUnlock()
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// RedactMap redacts m in place. String values under secret-looking keys
// are replaced outright; everything else is walked and scanned.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" && secretKeyPattern.MatchString(k) {
			m[k] = RedactPlaceholder
			continue
		}
		m[k] = r.redactValue(v)
	}
}

func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return r.Redact(val)
	case map[string]any:
		r.RedactMap(val)
	case []any:
		for i, item := range val {
			val[i] = r.redactValue(item)
		}
	}
	return v
}

// DefaultPatterns returns the built-in secret formats.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Bot API token: <bot id>:<35 char secret>
		regexp.MustCompile(`\b\d{6,}:[A-Za-z0-9_-]{30,}`),
		// Authorization header values.
		regexp.MustCompile(`(?i)\b(bearer|basic)\s+[A-Za-z0-9._~+/-]{16,}=*`),
	}
}
