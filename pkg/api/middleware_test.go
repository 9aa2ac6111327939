package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		requestHeader  string
		expectedStatus int
	}{
		{
			name:           "valid API key",
			apiKey:         "test-key",
			requestHeader:  "test-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing API key header",
			apiKey:         "test-key",
			requestHeader:  "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid API key",
			apiKey:         "test-key",
			requestHeader:  "wrong-key",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "no key configured",
			apiKey:         "",
			requestHeader:  "",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := apiKeyMiddleware(tt.apiKey)(testHandler)

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.requestHeader != "" {
				req.Header.Set("X-API-Key", tt.requestHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestSendSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	sendSuccess(w, map[string]string{"message": "test"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]any{"message": "test"}, resp.Data)
	assert.Empty(t, resp.Error)
}

func TestSendError(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		statusCode int
	}{
		{name: "bad request error", message: "Invalid request", statusCode: http.StatusBadRequest},
		{name: "unauthorized error", message: "Not authorized", statusCode: http.StatusUnauthorized},
		{name: "internal server error", message: "Server error", statusCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			sendError(w, tt.message, tt.statusCode)

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func TestSendSuccess_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()
	sendSuccess(w, map[string]any{"ch": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to encode response")
}

func TestSendSuccess_ContentLength(t *testing.T) {
	w := httptest.NewRecorder()
	sendSuccess(w, []string{"a"})

	assert.Equal(t, `{"success":true,"data":["a"]}`+"\n", w.Body.String())
	assert.Equal(t, "30", w.Header().Get("Content-Length"))
}
