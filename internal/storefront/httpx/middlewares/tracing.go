package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/foodie-storefront/internal/pkg/reqctx"
)

// AttachTracingMetadata copies chi's request id into the context under the
// shared key, tags the active span with it and echoes it to the client.
func AttachTracingMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := middleware.GetReqID(r.Context())
		ctx := reqctx.WithRequestID(r.Context(), requestId)

		if requestId != "" {
			w.Header().Set(reqctx.HeaderXRequestId, requestId)
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("request.id", requestId))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
