package handler

import (
	"context"
	"net/http"

	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/response"

	"github.com/gorilla/mux"
)

func ListAttendees(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		tickets, err := service.ListAttendees(ctx, eventID)
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(tickets).Send(w)
	}
}

func GetTicket(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		ticket, err := service.Ticket(ctx, eventID, mux.Vars(r)["account"])
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(ticket).Send(w)
	}
}

func TicketOwner(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		owner, err := service.TicketOwner(ctx, eventID, mux.Vars(r)["account"])
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(model.OwnerResponse{Owner: owner}).Send(w)
	}
}

func SeatOwner(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}
		seat, ok := uintVar(ctx, w, r, "seat")
		if !ok {
			return
		}

		owner, err := service.SeatOwner(ctx, eventID, seat)
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(model.OwnerResponse{Owner: owner}).Send(w)
	}
}

func HasTicket(service Service) http.HandlerFunc {
	return flag(service.HasTicket)
}

func IsCheckedIn(service Service) http.HandlerFunc {
	return flag(service.IsCheckedIn)
}

type flagFunc func(ctx context.Context, eventID uint64, account string) (bool, error)

func flag(query flagFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		value, err := query(ctx, eventID, mux.Vars(r)["account"])
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(model.FlagResponse{Value: value}).Send(w)
	}
}
