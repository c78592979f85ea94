package middleware

import (
	"net/http"

	"eventers-ticket-ledger/logger"
)

func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debugf(r.Context(), "Request - %s %s, Headers: %+v", r.Method, r.URL, redacted(r.Header))
		next.ServeHTTP(w, r)
	})
}

func redacted(h http.Header) http.Header {
	if h.Get("Authorization") == "" {
		return h
	}
	out := h.Clone()
	out.Set("Authorization", "[redacted]")
	return out
}
