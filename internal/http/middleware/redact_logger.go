// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger used in front of
// the registry API. Registry traffic routinely carries identifiers that must
// not land in logs verbatim: editor emails, phone numbers from channel
// descriptions pasted into queries, Finnish personal identity codes and
// business ids. The logger scrubs those from query strings and header values
// and fully masks credential-bearing headers. Request and response bodies
// are never logged.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced with
// "[REDACTED]" wholesale. Matching is case-insensitive and merged with the
// built-in set (Authorization, Cookie, Set-Cookie).
type RedactOptions struct {
	MaskHeaders []string
}

// Scrub patterns, applied in declaration order. UUIDs go first so the
// looser numeric patterns never match fragments of one; the personal
// identity code and business id go before the phone pattern for the same
// reason.
var (
	redactUUIDRE = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	// Finnish personal identity code (henkilötunnus): ddmmyy, century
	// sign, three digits, check character.
	redactHetuRE = regexp.MustCompile(`\b\d{6}[-+A]\d{3}[0-9A-Za-z]\b`)
	// Finnish business id (Y-tunnus): seven digits, hyphen, check digit.
	redactBusinessIDRE = regexp.MustCompile(`\b\d{7}-\d\b`)
	redactEmailRE      = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits-only phone shapes: "+358 40 123 4567", "(09) 310 1691",
	// "040-1234567".
	redactPhoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redactText substitutes every recognized identifier pattern in s with a
// typed placeholder.
func redactText(s string) string {
	if s == "" {
		return s
	}
	out := redactUUIDRE.ReplaceAllString(s, "[REDACTED:id]")
	out = redactHetuRE.ReplaceAllString(out, "[REDACTED:nin]")
	out = redactBusinessIDRE.ReplaceAllString(out, "[REDACTED:bid]")
	out = redactEmailRE.ReplaceAllString(out, "[REDACTED:email]")
	out = redactPhoneRE.ReplaceAllString(out, "[REDACTED:phone]")
	return out
}

// RedactingLogger returns a Gin middleware that logs each request with
// scrubbed metadata: method, route, redacted query and headers, status,
// response size and latency. Levels follow the outcome (info, warn for 4xx,
// error for 5xx), and log lines carry the trace id when the request was
// sampled.
//
// Scrubbing reduces but does not eliminate leak risk; clients should still
// avoid transmitting personal data in query strings where possible.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := routePath(c)
		safeQuery := redactText(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, masked := maskHeaders[strings.ToLower(k)]; masked {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redactText(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()

		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		// Correlate log lines with the request's trace when sampled.
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			ev = ev.Str("trace_id", sc.TraceID().String())
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
