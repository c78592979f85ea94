package healthcheck

import (
	"net/http"

	"eventers-ticket-ledger/response"
)

type status struct {
	Status string `json:"status"`
}

// Self reports that the process is up and serving.
func Self(w http.ResponseWriter, r *http.Request) {
	response.OK(status{Status: "ok"}).Send(w)
}
