package middleware

import (
	"net/http"
	"time"

	"eventers-ticket-ledger/metrics"

	"github.com/codegangsta/negroni"
	"github.com/gorilla/mux"
)

// Metrics records request latency labelled by the matched route template.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := negroni.NewResponseWriter(w)
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		code := rw.Status()
		if code == 0 {
			code = http.StatusOK
		}
		metrics.ObserveHTTP(route, r.Method, code, time.Since(start))
	})
}
