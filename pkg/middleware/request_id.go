package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/wm2snap/migrator/pkg/requestid"
)

// RequestID takes the request ID from the X-Request-Id header, falls back to the one chi
// generated and finally to a new UUID. The ID is stored through the requestid package and
// echoed back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestid.Header)

		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}

		if requestID == "" {
			requestID = requestid.Generate()
		}

		w.Header().Set(requestid.Header, requestID)
		ctx := requestid.ToContext(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
