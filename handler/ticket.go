package handler

import (
	"context"
	"net/http"

	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/response"
)

func Purchase(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		var req model.PurchaseRequest
		if !decode(ctx, w, r, &req) {
			return
		}

		ticket, err := service.Purchase(ctx, caller, eventID, req.Data.AttachedDeposit)
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.Created(ticket).Send(w)
	}
}

func CheckIn(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		checkedIn, err := service.CheckIn(ctx, caller, eventID)
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(model.CheckInResponse{CheckedIn: checkedIn}).Send(w)
	}
}

func Transfer(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		var req model.TransferRequest
		if !decode(ctx, w, r, &req) {
			return
		}

		if err := service.Transfer(ctx, caller, req.Data.NewOwnerID, eventID); err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(model.OwnerResponse{Owner: req.Data.NewOwnerID}).Send(w)
	}
}

func TransferFrom(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		var req model.TransferFromRequest
		if !decode(ctx, w, r, &req) {
			return
		}

		if err := service.TransferFrom(ctx, caller, req.Data.OwnerID, req.Data.NewOwnerID, eventID); err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(model.OwnerResponse{Owner: req.Data.NewOwnerID}).Send(w)
	}
}

func Mint(service Service) http.HandlerFunc {
	return supply(service.Mint)
}

func Burn(service Service) http.HandlerFunc {
	return supply(service.Burn)
}

type supplyFunc func(ctx context.Context, caller string, eventID, amount uint64) (uint64, error)

func supply(op supplyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}
		eventID, ok := uintVar(ctx, w, r, "id")
		if !ok {
			return
		}

		var req model.SupplyRequest
		if !decode(ctx, w, r, &req) {
			return
		}

		newSupply, err := op(ctx, caller, eventID, req.Data.Amount)
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(model.SupplyResponse{InitialSupply: newSupply}).Send(w)
	}
}
