package handler

import (
	"net/http"

	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/response"

	"github.com/gorilla/mux"
)

func GrantAccess(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}

		var req model.EscrowRequest
		if !decode(ctx, w, r, &req) {
			return
		}

		if err := service.GrantAccess(ctx, caller, req.Data.Grantee); err != nil {
			fail(ctx, w, err)
			return
		}

		grant, err := service.Grant(ctx, caller)
		if err != nil {
			fail(ctx, w, err)
			return
		}
		response.OK(grant).Send(w)
	}
}

func RevokeAccess(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}

		var req model.EscrowRequest
		if !decode(ctx, w, r, &req) {
			return
		}

		if err := service.RevokeAccess(ctx, caller, req.Data.Grantee); err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(model.FlagResponse{Value: true}).Send(w)
	}
}

// CheckAccess reports whether the caller holds {owner}'s escrow grant.
func CheckAccess(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requireCaller(ctx, w)
		if !ok {
			return
		}

		granted, err := service.CheckAccess(ctx, caller, mux.Vars(r)["owner"])
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(model.FlagResponse{Value: granted}).Send(w)
	}
}

func GetGrant(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		grant, err := service.Grant(ctx, mux.Vars(r)["owner"])
		if err != nil {
			fail(ctx, w, err)
			return
		}

		response.OK(grant).Send(w)
	}
}
