package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/projectsync/internal/testutil"
)

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newServer(t)
	helper := testutil.NewHTTPTestHelper(t, s.router)

	helper.RunTestCases([]testutil.TestCase{
		{Name: "health", Method: http.MethodGet, URL: "/healthz", ExpectedStatus: http.StatusOK},
		{Name: "live", Method: http.MethodGet, URL: "/healthz/live", ExpectedStatus: http.StatusOK},
		{Name: "ready", Method: http.MethodGet, URL: "/healthz/ready", ExpectedStatus: http.StatusOK},
	})

	// the remote is not critical, so an outage only degrades the service
	s.stack.Store.FailWith(assert.AnError)
	w := helper.GET("/healthz", nil)
	helper.AssertStatus(w, http.StatusOK)
	assert.Contains(t, w.Body.String(), `"degraded"`)
	s.stack.Store.FailWith(nil)

	s.as(t, "alice").GET("/api/me", nil)
	w = helper.GET("/metrics", nil)
	helper.AssertStatus(w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "projectsync_http_requests_total")
	assert.Contains(t, w.Body.String(), `endpoint="/api/me"`)
}

func TestRouter_RequestIDOnErrors(t *testing.T) {
	s := newServer(t)
	helper := testutil.NewHTTPTestHelper(t, s.router)

	w := helper.GET("/api/projects", map[string]string{"X-Request-ID": "req-42"})
	helper.AssertStatus(w, http.StatusUnauthorized)
	helper.AssertHeader(w, "X-Request-ID", "req-42")
	assert.Contains(t, w.Body.String(), `"request_id":"req-42"`)

	helper.RunTestCases([]testutil.TestCase{
		{
			Name:           "missing token envelope",
			Method:         http.MethodGet,
			URL:            "/api/me",
			Headers:        map[string]string{"X-Request-ID": "req-43"},
			ExpectedStatus: http.StatusUnauthorized,
			ExpectedBody: map[string]interface{}{
				"success": false,
				"error": map[string]interface{}{
					"type":       "AUTHENTICATION_ERROR",
					"code":       "MISSING_TOKEN",
					"message":    "Authorization token is required",
					"request_id": "req-43",
				},
			},
		},
	})
}
