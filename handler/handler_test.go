package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	c "eventers-ticket-ledger/context"
	"eventers-ticket-ledger/ledger"
	"eventers-ticket-ledger/model"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService fails every call it does not override.
type stubService struct {
	Service
	purchase func(caller string, eventID, deposit uint64) (model.Ticket, error)
	mint     func(caller string, eventID, amount uint64) (uint64, error)
}

func (s stubService) Purchase(_ context.Context, caller string, eventID, deposit uint64) (model.Ticket, error) {
	return s.purchase(caller, eventID, deposit)
}

func (s stubService) Mint(_ context.Context, caller string, eventID, amount uint64) (uint64, error) {
	return s.mint(caller, eventID, amount)
}

func serve(t *testing.T, path, pattern string, h http.HandlerFunc, caller, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc(pattern, h)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if caller != "" {
		req = req.WithContext(c.WithCaller(req.Context(), caller))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestPurchaseHandler(t *testing.T) {
	var got struct {
		caller  string
		eventID uint64
		deposit uint64
	}
	svc := stubService{purchase: func(caller string, eventID, deposit uint64) (model.Ticket, error) {
		got.caller, got.eventID, got.deposit = caller, eventID, deposit
		return model.Ticket{EventID: eventID, Seat: 1, Owner: caller, Price: deposit}, nil
	}}

	rr := serve(t, "/events/4/purchase", "/events/{id}/purchase", Purchase(svc), "alice", `{"data":{"attached_deposit":250}}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "alice", got.caller)
	assert.Equal(t, uint64(4), got.eventID)
	assert.Equal(t, uint64(250), got.deposit)
	assert.JSONEq(t, `{"data":{"event_id":4,"seat":1,"owner":"alice","price":250,"purchased_at":0,"check_in":false}}`, rr.Body.String())
}

func TestPurchaseHandlerPayoutFailure(t *testing.T) {
	ticket := model.Ticket{EventID: 1, Seat: 2, Owner: "alice", Price: 10}
	svc := stubService{purchase: func(string, uint64, uint64) (model.Ticket, error) {
		return ticket, &ledger.PayoutError{Ticket: ticket, Host: "host", Amount: 10, Err: errors.New("node down")}
	}}

	rr := serve(t, "/events/1/purchase", "/events/{id}/purchase", Purchase(svc), "alice", `{"data":{"attached_deposit":10}}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	var body struct {
		Status string       `json:"status"`
		Data   model.Ticket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "PAYOUT_FAILED", body.Status)
	assert.Equal(t, ticket, body.Data)
}

func TestHandlerInputErrors(t *testing.T) {
	svc := stubService{
		purchase: func(string, uint64, uint64) (model.Ticket, error) {
			t.Fatal("service must not be called")
			return model.Ticket{}, nil
		},
		mint: func(string, uint64, uint64) (uint64, error) {
			t.Fatal("service must not be called")
			return 0, nil
		},
	}

	tests := []struct {
		name    string
		path    string
		pattern string
		h       http.HandlerFunc
		caller  string
		body    string
		code    int
	}{
		{"anonymous purchase", "/events/1/purchase", "/events/{id}/purchase", Purchase(svc), "", `{"data":{}}`, http.StatusUnauthorized},
		{"malformed body", "/events/1/purchase", "/events/{id}/purchase", Purchase(svc), "alice", `{"data":`, http.StatusBadRequest},
		{"id overflows", "/events/99999999999999999999/purchase", "/events/{id}/purchase", Purchase(svc), "alice", `{"data":{}}`, http.StatusBadRequest},
		{"negative amount", "/events/1/mint", "/events/{id}/mint", Mint(svc), "host", `{"data":{"amount":-1}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, tt.path, tt.pattern, tt.h, tt.caller, tt.body)
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestMintHandlerMapsLedgerErrors(t *testing.T) {
	svc := stubService{mint: func(string, uint64, uint64) (uint64, error) {
		return 0, ledger.ErrOverflow
	}}

	rr := serve(t, "/events/1/mint", "/events/{id}/mint", Mint(svc), "host", `{"data":{"amount":0}}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "OVERFLOW")
}
