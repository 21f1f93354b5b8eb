package operator

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"veriseal/pkg/requestcontext"
)

const (
	HeaderOperatorID    = "X-Operator-ID"
	HeaderOperatorToken = "X-Operator-Token"
)

// Require gates operator endpoints. The operator identity itself is asserted by
// the upstream identity layer and only recorded, never authenticated here; the
// shared token only proves the caller is an operator surface. An empty
// expectedToken disables the token check (development).
func Require(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if expectedToken != "" {
				token := r.Header.Get(HeaderOperatorToken)
				if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
					logger.WarnContext(ctx, "operator token mismatch",
						"request_id", requestcontext.RequestID(ctx),
					)
					writeUnauthorized(w, "operator token required")
					return
				}
			}

			operatorID := strings.TrimSpace(r.Header.Get(HeaderOperatorID))
			if operatorID == "" || len(operatorID) > 128 {
				writeUnauthorized(w, "operator identity required")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithOperatorID(ctx, operatorID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + desc + `"}`))
}
