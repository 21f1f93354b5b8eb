package request

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"veriseal/pkg/requestcontext"
)

// HeaderRequestID is propagated back to the caller for correlation.
const HeaderRequestID = "X-Request-ID"

// RequestID reuses a caller-supplied request ID or mints one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
