package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	c "eventers-ticket-ledger/context"
	"eventers-ticket-ledger/ledger"
	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Service is the ledger surface the HTTP handlers drive.
type Service interface {
	CreateEvent(ctx context.Context, caller string, in ledger.CreateEventInput) (uint64, error)
	GetEvent(ctx context.Context, id uint64) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	EventsByHost(ctx context.Context, host string) ([]model.Event, error)

	Purchase(ctx context.Context, caller string, eventID, deposit uint64) (model.Ticket, error)
	CheckIn(ctx context.Context, caller string, eventID uint64) (bool, error)
	Transfer(ctx context.Context, caller, newOwner string, eventID uint64) error
	TransferFrom(ctx context.Context, caller, ownerID, newOwner string, eventID uint64) error
	Mint(ctx context.Context, caller string, eventID, amount uint64) (uint64, error)
	Burn(ctx context.Context, caller string, eventID, amount uint64) (uint64, error)

	GrantAccess(ctx context.Context, caller, grantee string) error
	RevokeAccess(ctx context.Context, caller, grantee string) error
	CheckAccess(ctx context.Context, caller, owner string) (bool, error)
	Grant(ctx context.Context, grantor string) (model.EscrowGrant, error)

	Ticket(ctx context.Context, eventID uint64, account string) (model.Ticket, error)
	TicketOwner(ctx context.Context, eventID uint64, account string) (string, error)
	SeatOwner(ctx context.Context, eventID, seat uint64) (string, error)
	HasTicket(ctx context.Context, eventID uint64, account string) (bool, error)
	IsCheckedIn(ctx context.Context, eventID uint64, account string) (bool, error)
	ListAttendees(ctx context.Context, eventID uint64) ([]model.Ticket, error)
}

var validate = validator.New()

// decode reads a {"data": ...} request body into req and validates it.
func decode(ctx context.Context, w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest("invalid request body", fmt.Sprintf("error unmarshalling request body: %v", err)).Send(ctx, w)
		return false
	}
	if err := validate.Struct(req); err != nil {
		response.InvalidData(err.Error()).Send(ctx, w)
		return false
	}
	return true
}

// requireCaller answers 401 for anonymous requests.
func requireCaller(ctx context.Context, w http.ResponseWriter) (string, bool) {
	caller := c.Caller(ctx)
	if caller == "" {
		response.Unauthorized().Send(ctx, w)
		return "", false
	}
	return caller, true
}

func uintVar(ctx context.Context, w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := mux.Vars(r)[name]
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.InvalidData(fmt.Sprintf("invalid %s: %q", name, raw)).Send(ctx, w)
		return 0, false
	}
	return v, true
}

func fail(ctx context.Context, w http.ResponseWriter, err error) {
	response.FromError(err).Send(ctx, w)
}
