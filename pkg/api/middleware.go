package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
)

// apiKeyMiddleware validates the X-API-Key header. An empty expected key
// lets every request through.
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sendSuccess writes data in a successful envelope with status 200
func sendSuccess(w http.ResponseWriter, data interface{}) {
	writeEnvelope(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// sendError writes message in a failed envelope with statusCode
func sendError(w http.ResponseWriter, message string, statusCode int) {
	writeEnvelope(w, statusCode, APIResponse{Error: message})
}

func writeEnvelope(w http.ResponseWriter, statusCode int, body APIResponse) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)+1))
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(data, '\n'))
}
