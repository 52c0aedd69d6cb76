// Package testutil provides testing utilities and helpers.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// NewTestRouter creates a new Gin router for testing.
func NewTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// TestCase represents a test case for HTTP handlers.
type TestCase struct {
	Body           interface{}
	ExpectedBody   interface{}
	Headers        map[string]string
	SetupFunc      func(t *testing.T)
	CleanupFunc    func(t *testing.T)
	Name           string
	Method         string
	URL            string
	ExpectedStatus int
}

// HTTPTestHelper provides utilities for HTTP testing. A non-empty Token is
// sent as a bearer token on every request.
type HTTPTestHelper struct {
	router *gin.Engine
	t      *testing.T
	Token  string
}

// NewHTTPTestHelper creates a new HTTP test helper.
func NewHTTPTestHelper(t *testing.T, router *gin.Engine) *HTTPTestHelper {
	return &HTTPTestHelper{
		router: router,
		t:      t,
	}
}

// Request performs an HTTP request and returns the response.
func (h *HTTPTestHelper) Request(
	method,
	url string,
	body interface{},
	headers map[string]string,
) *httptest.ResponseRecorder {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		h.t.Fatalf("Failed to create request: %v", err)
	}

	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, req)
	return recorder
}

// GET performs a GET request.
func (h *HTTPTestHelper) GET(url string, headers map[string]string) *httptest.ResponseRecorder {
	return h.Request(http.MethodGet, url, nil, headers)
}

// POST performs a POST request.
func (h *HTTPTestHelper) POST(url string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return h.Request(http.MethodPost, url, body, headers)
}

// PUT performs a PUT request.
func (h *HTTPTestHelper) PUT(url string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return h.Request(http.MethodPut, url, body, headers)
}

// DELETE performs a DELETE request.
func (h *HTTPTestHelper) DELETE(url string, headers map[string]string) *httptest.ResponseRecorder {
	return h.Request(http.MethodDelete, url, nil, headers)
}

// AssertJSON asserts that the response body matches the expected JSON.
func (h *HTTPTestHelper) AssertJSON(recorder *httptest.ResponseRecorder, expected interface{}) {
	var actualMap map[string]interface{}
	var expectedMap map[string]interface{}

	err := json.Unmarshal(recorder.Body.Bytes(), &actualMap)
	if err != nil {
		h.t.Fatalf("Failed to unmarshal actual response: %v", err)
	}

	expectedBytes, err := json.Marshal(expected)
	if err != nil {
		h.t.Fatalf("Failed to marshal expected response: %v", err)
	}

	err = json.Unmarshal(expectedBytes, &expectedMap)
	if err != nil {
		h.t.Fatalf("Failed to unmarshal expected response: %v", err)
	}

	if !jsonEqual(actualMap, expectedMap) {
		h.t.Errorf("Response body mismatch.\nExpected: %s\nActual: %s",
			string(expectedBytes), recorder.Body.String())
	}
}

// AssertStatus asserts that the response has the expected status code.
func (h *HTTPTestHelper) AssertStatus(recorder *httptest.ResponseRecorder, expectedStatus int) {
	if recorder.Code != expectedStatus {
		h.t.Errorf("Status code mismatch. Expected: %d, Actual: %d", expectedStatus, recorder.Code)
	}
}

// AssertHeader asserts that the response has the expected header value.
func (h *HTTPTestHelper) AssertHeader(recorder *httptest.ResponseRecorder, header, expectedValue string) {
	actualValue := recorder.Header().Get(header)
	if actualValue != expectedValue {
		h.t.Errorf("Header %s mismatch. Expected: %s, Actual: %s", header, expectedValue, actualValue)
	}
}

// RunTestCases runs a slice of test cases.
func (h *HTTPTestHelper) RunTestCases(testCases []TestCase) {
	for _, tc := range testCases {
		h.t.Run(tc.Name, func(t *testing.T) {
			if tc.SetupFunc != nil {
				tc.SetupFunc(t)
			}

			if tc.CleanupFunc != nil {
				defer tc.CleanupFunc(t)
			}

			recorder := h.Request(tc.Method, tc.URL, tc.Body, tc.Headers)

			h.AssertStatus(recorder, tc.ExpectedStatus)

			if tc.ExpectedBody != nil {
				h.AssertJSON(recorder, tc.ExpectedBody)
			}
		})
	}
}

// Decode unmarshals the "data" field of a success envelope into v.
func (h *HTTPTestHelper) Decode(recorder *httptest.ResponseRecorder, v interface{}) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		h.t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		h.t.Fatalf("Failed to unmarshal response data %s: %v", envelope.Data, err)
	}
}

// jsonEqual compares two JSON objects for equality.
func jsonEqual(a, b map[string]interface{}) bool {
	aBytes, _ := json.Marshal(a)
	bBytes, _ := json.Marshal(b)
	return bytes.Equal(aBytes, bBytes)
}
