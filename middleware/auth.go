package middleware

import (
	"net/http"
	"strings"

	c "eventers-ticket-ledger/context"
	"eventers-ticket-ledger/firebase"
	"eventers-ticket-ledger/logger"
	"eventers-ticket-ledger/response"
)

// Authenticate resolves the bearer token into the caller account. Requests
// without a token pass through anonymous; handlers that mutate state reject
// them. A token that does not verify is rejected here.
func Authenticate(verifier firebase.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" || token == header {
				response.Unauthorized().Send(ctx, w)
				return
			}

			account, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.Warnf(ctx, "authenticate: rejecting token: %v", err)
				response.Unauthorized().Send(ctx, w)
				return
			}

			next.ServeHTTP(w, r.WithContext(c.WithCaller(ctx, account)))
		})
	}
}
