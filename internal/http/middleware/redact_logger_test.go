package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func Test_redactText_Patterns(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"uuid", "id=123e4567-e89b-12d3-a456-426614174000", "id=[REDACTED:id]"},
		{"hetu", "hetu 010190-123A in query", "hetu [REDACTED:nin] in query"},
		{"hetu 2000s", "hetu 010203A987B", "hetu [REDACTED:nin]"},
		{"business id", "org 1234567-8 owns the channel", "org [REDACTED:bid] owns the channel"},
		{"email", "editor a.b+tag@example.fi", "editor [REDACTED:email]"},
		{"phone", "call 040-1234567 now", "call [REDACTED:phone] now"},
		{"empty", "", ""},
		{"plain", "unificRootId=s1", "unificRootId=s1"},
	}
	for _, tc := range cases {
		if got := redactText(tc.in); got != tc.want {
			t.Errorf("%s: redactText(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-resp")
		c.Next()
	})
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/connections", func(c *gin.Context) { c.String(http.StatusOK, "[]") })

	q := "id=123e4567-e89b-12d3-a456-426614174000&contact=a.b@example.fi&hetu=010190-123A"
	req := httptest.NewRequest(http.MethodGet, "/connections?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.fi business 1234567-8 phone 040-1234567")
	req.Header.Set("X-Request-ID", "rid-req")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"info"`) {
		t.Fatalf("expected info level: %s", logs)
	}
	if !strings.Contains(logs, `"path":"/connections"`) {
		t.Fatalf("expected route path: %s", logs)
	}
	// Response header wins over the request header.
	if !strings.Contains(logs, `"request_id":"rid-resp"`) {
		t.Fatalf("expected response request id: %s", logs)
	}
	for _, marker := range []string{"[REDACTED:id]", "[REDACTED:email]", "[REDACTED:nin]"} {
		if !strings.Contains(logs, marker) {
			t.Fatalf("query redaction %s missing: %s", marker, logs)
		}
	}
	for _, hdr := range []string{`"Authorization":"[REDACTED]"`, `"Cookie":"[REDACTED]"`, `"X-Api-Key":"[REDACTED]"`} {
		if !strings.Contains(logs, hdr) {
			t.Fatalf("header mask missing %s: %s", hdr, logs)
		}
	}
	if !strings.Contains(logs, `"X-Custom":"email [REDACTED:email] business [REDACTED:bid] phone [REDACTED:phone]"`) {
		t.Fatalf("pattern scrub inside header failed: %s", logs)
	}
}

func TestRedactingLogger_LevelsAndRequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	req := httptest.NewRequest(http.MethodGet, "/warn", nil)
	req.Header.Set("X-Request-ID", "rid-warn")
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/error", nil)
	req.Header.Set("X-Request-ID", "rid-err")
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"request_id":"rid-warn"`) {
		t.Fatalf("warn log or request id fallback missing: %s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"request_id":"rid-err"`) {
		t.Fatalf("error log or request id fallback missing: %s", logs)
	}
}
