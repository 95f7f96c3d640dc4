package httpserver

import (
	"crypto/subtle"
	"net/http"
)

// requireAPIKey rejects requests whose X-API-Key header does not match the
// configured internal key. Rejection happens before any cluster call.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)

		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			s.logger.WarnContext(r.Context(), "request rejected, invalid api key",
				"path", r.URL.Path,
			)
			s.writeJSON(w, r, http.StatusUnauthorized, errorResponse{Detail: "Invalid API Key"})

			return
		}

		next.ServeHTTP(w, r)
	})
}
