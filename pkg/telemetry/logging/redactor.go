package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/arbiter/pkg/config"
)

// Redactor redacts PII (Personally Identifiable Information) from log fields.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Common PII pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAPIKey      = "api_key"
	PatternEmail       = "email"
	PatternSSN         = "ssn"
	PatternPhone       = "phone"
	PatternPassword    = "password"
)

// defaultPatterns are applied in order. Bearer tokens go before API keys so
// the token prefix survives.
var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternAPIKey, `(sk-[a-zA-Z0-9]+|gsk_[a-zA-Z0-9]+)`, "sk-***"},
	{PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "***@***"},
	{PatternSSN, `\b\d{3}-\d{2}-\d{4}\b`, "***-**-****"},
	{PatternPhone, `\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`, "***-***-****"},
	{PatternPassword, `(password|passwd|pwd)[:=]\s*[^\s]+`, "$1: ***"},
}

// sensitiveKeys mark attributes whose whole value is redacted.
var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"authorization",
	"ssn", "private_key",
}

// NewRedactor creates a Redactor with the default patterns followed by the
// custom ones. Invalid custom patterns are skipped; config validation
// reports them before a logger is built.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}
	return r
}

// RedactString redacts PII from a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

// RedactAttr redacts one attribute. Groups are redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch {
	case v.Kind() == slog.KindGroup:
		group := v.Group()
		out := make([]any, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	case isSensitiveKey(a.Key):
		return slog.String(a.Key, maskValue(v))
	case v.Kind() == slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case v.Kind() == slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// maskValue keeps a four character hint of long string values.
func maskValue(v slog.Value) string {
	if v.Kind() != slog.KindString {
		return "***"
	}
	s := v.String()
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}
