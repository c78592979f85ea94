package router

import (
	"context"
	"fmt"
	"net/http"

	"eventers-ticket-ledger/firebase"
	"eventers-ticket-ledger/handler"
	"eventers-ticket-ledger/healthcheck"
	"eventers-ticket-ledger/logger"
	"eventers-ticket-ledger/metrics"
	"eventers-ticket-ledger/middleware"
	"eventers-ticket-ledger/response"

	"github.com/gorilla/mux"
)

// Router returns the router for all the API handler.
func Router(ctx context.Context, service handler.Service, verifier firebase.Verifier) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.SetCorrelationIDHeader)
	r.Use(middleware.PanicHandler)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		response.ResourceNotFound(fmt.Sprintf("The requested resource was not found: path: %s, method: %s", req.URL.Path, req.Method), "The requested resource was not found!").Send(req.Context(), w)
	})

	r.Use(middleware.Metrics)
	r.Use(middleware.ResponseTimeLogging)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.SetContentTypeHeader)

	r.HandleFunc("/healthcheck", healthcheck.Self).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	baseRouter := r.PathPrefix("/v1").Subrouter()
	baseRouter.Use(middleware.Authenticate(verifier))

	eventRouter := baseRouter.PathPrefix("/events").Subrouter()
	eventRouter.HandleFunc("", handler.CreateEvent(service)).Methods(http.MethodPost)
	eventRouter.HandleFunc("", handler.ListEvents(service)).Methods(http.MethodGet)
	eventRouter.HandleFunc("/{id:[0-9]+}", handler.GetEvent(service)).Methods(http.MethodGet)
	eventRouter.HandleFunc("/{id:[0-9]+}/purchase", handler.Purchase(service)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{id:[0-9]+}/check_in", handler.CheckIn(service)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{id:[0-9]+}/transfer", handler.Transfer(service)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{id:[0-9]+}/transfer_from", handler.TransferFrom(service)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{id:[0-9]+}/mint", handler.Mint(service)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{id:[0-9]+}/burn", handler.Burn(service)).Methods(http.MethodPost)
	eventRouter.HandleFunc("/{id:[0-9]+}/attendees", handler.ListAttendees(service)).Methods(http.MethodGet)
	eventRouter.HandleFunc("/{id:[0-9]+}/seats/{seat:[0-9]+}/owner", handler.SeatOwner(service)).Methods(http.MethodGet)

	ticketRouter := eventRouter.PathPrefix("/{id:[0-9]+}/tickets/{account}").Subrouter()
	ticketRouter.HandleFunc("", handler.GetTicket(service)).Methods(http.MethodGet)
	ticketRouter.HandleFunc("/owner", handler.TicketOwner(service)).Methods(http.MethodGet)
	ticketRouter.HandleFunc("/has_ticket", handler.HasTicket(service)).Methods(http.MethodGet)
	ticketRouter.HandleFunc("/checked_in", handler.IsCheckedIn(service)).Methods(http.MethodGet)

	escrowRouter := baseRouter.PathPrefix("/escrow").Subrouter()
	escrowRouter.HandleFunc("/grant", handler.GrantAccess(service)).Methods(http.MethodPost)
	escrowRouter.HandleFunc("/revoke", handler.RevokeAccess(service)).Methods(http.MethodPost)
	escrowRouter.HandleFunc("/{owner}/check", handler.CheckAccess(service)).Methods(http.MethodGet)
	escrowRouter.HandleFunc("/{owner}", handler.GetGrant(service)).Methods(http.MethodGet)

	logger.Debugf(ctx, "router: routes registered")
	return r
}
