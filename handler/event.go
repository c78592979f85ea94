package handler

import (
	"net/http"

	"eventers-ticket-ledger/ledger"
	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/response"
)

func CreateEvent(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}

		var req model.CreateEventRequest
		if !decode(ctx, w, r, &req) {
			return
		}

		id, err := service.CreateEvent(ctx, caller, ledger.CreateEventInput{
			Name:          req.Data.Name,
			Symbol:        req.Data.Symbol,
			SeatPrice:     req.Data.SeatPrice,
			Start:         req.Data.Start,
			End:           req.Data.End,
			InitialSupply: req.Data.InitialSupply,
		})
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.Created(model.CreateEventResponse{ID: id}).Send(w)
	}
}

// ListEvents lists every event, or only those hosted by ?host=.
func ListEvents(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var (
			events []model.Event
			err    error
		)
		if host := r.URL.Query().Get("host"); host != "" {
			events, err = service.EventsByHost(ctx, host)
		} else {
			events, err = service.ListEvents(ctx)
		}
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(events).Send(w)
	}
}

func GetEvent(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		ev, err := service.GetEvent(ctx, id)
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(ev).Send(w)
	}
}
