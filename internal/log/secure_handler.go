package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys that should always be sanitized.
var sensitiveKeys = map[string]bool{
	// HTTP headers
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-rapidapi-key":      true,
	"proxy-authorization": true,

	// Upstream credentials
	"api_key":      true,
	"apikey":       true,
	"api-key":      true,
	"key":          true,
	"zillow_key":   true,
	"zipcode_key":  true,
	"gmaps_key":    true,
	"access_token": true,

	// Generic secrets
	"password": true,
	"secret":   true,
	"token":    true,
}

// sensitivePatterns match values that are credentials as a whole.
var sensitivePatterns = []*regexp.Regexp{
	// Google API keys
	regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),

	// RapidAPI keys: 50 hex-ish characters with an "msh" marker
	regexp.MustCompile(`^[0-9a-f]{10}msh[0-9a-f]{15,}jsn[0-9a-f]{10,}$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Long alphanumeric strings (zipcodeapi keys are 64 characters)
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
}

// embeddedPatterns match credentials inside longer values. The first
// submatch is kept and the rest of the match is replaced with MaskValue.
var embeddedPatterns = []*regexp.Regexp{
	// zipcodeapi carries the key as the path segment after /rest/
	regexp.MustCompile(`(/rest/)[^/\s"?]+`),

	// key=... query parameters (Google geocoding)
	regexp.MustCompile(`([?&]key=)[^&\s"]+`),

	// Google API keys anywhere in the value
	regexp.MustCompile(`()AIza[0-9A-Za-z_-]{35}`),
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler to sanitize sensitive information.
// It intercepts log records and sanitizes attribute values that match
// sensitive key names or value patterns before passing them to the
// underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because it works with any underlying handler (text, JSON, etc.) and with
// every component that accepts a *slog.Logger.
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, the returned SecureHandler will use slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's message and attributes and passes it to
// the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, redactEmbedded(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are sanitized before being added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return sanitizeString(a.Key, a.Value.String(), a)
	case slog.KindAny:
		// Errors from the HTTP client carry the request URL, key included.
		if err, ok := a.Value.Any().(error); ok && err != nil {
			return sanitizeString(a.Key, err.Error(), a)
		}
	}

	return a
}

// sanitizeString masks s entirely when it is a credential, masks the
// embedded credentials otherwise, and returns orig when s is clean.
func sanitizeString(key, s string, orig slog.Attr) slog.Attr {
	if isSensitiveValue(s) {
		return slog.String(key, MaskValue)
	}
	if redacted := redactEmbedded(s); redacted != s {
		return slog.String(key, redacted)
	}
	return orig
}

// containsSensitiveKeyword checks if the key contains sensitive keywords.
// The bare "key" is matched exactly only, so "area_key" or "cache_key"
// stay readable.
func containsSensitiveKeyword(key string) bool {
	sensitiveKeywords := []string{
		"password", "secret", "token", "apikey", "api_key", "api-key", "credential",
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// redactEmbedded replaces credentials embedded in value with MaskValue.
func redactEmbedded(value string) string {
	for _, pattern := range embeddedPatterns {
		value = pattern.ReplaceAllString(value, "${1}"+MaskValue)
	}
	return value
}

// NewSecureLogger creates a new slog.Logger with secure handling.
// If verbose is true the level is Debug, otherwise Warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger creates a new slog.Logger with secure handling
// that outputs JSON format. The serve command logs this way.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
