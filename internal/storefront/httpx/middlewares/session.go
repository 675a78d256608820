package middlewares

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/foodie-storefront/internal/pkg/reqctx"
)

const maxSessionIDLen = 128

// Session binds the X-Session-Id header to the request context. A missing
// or oversized id is replaced by a fresh UUID; the id in use is always
// echoed back so clients can keep it.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(reqctx.HeaderXSessionId))
		if id == "" || len(id) > maxSessionIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(reqctx.HeaderXSessionId, id)

		ctx := reqctx.WithSessionID(r.Context(), id)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("session.id", id))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
