package middleware

import (
	"net/http"

	c "eventers-ticket-ledger/context"
	"eventers-ticket-ledger/logger"

	"github.com/google/uuid"
)

const CorrelationIDHeader = "Correlation-Id"

func SetCorrelationIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationIDHeader)
		ctx := c.SetContextWithValue(r.Context(), c.ContextKeyCorrelationID, correlationID)
		if len(correlationID) == 0 {
			correlationID = uuid.New().String()
			ctx = c.SetContextWithValue(ctx, c.ContextKeyCorrelationID, correlationID)
			r.Header.Set(CorrelationIDHeader, correlationID)
			logger.Debugf(ctx, "No correlation id provided. Generated a new one")
		}
		w.Header().Set(CorrelationIDHeader, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
