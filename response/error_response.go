package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"eventers-ticket-ledger/ledger"
	"eventers-ticket-ledger/logger"
)

type ErrorResponse struct {
	StatusCode  int         `json:"-"`
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	Status      string      `json:"status"`
	Description string      `json:"description,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

func (r ErrorResponse) Error() string {
	return fmt.Sprintf("StatusCode: %d, Success: %t, Message: %s, Status: %s, Description: %s", r.StatusCode, r.Success, r.Message, r.Status, r.Description)
}

func (r ErrorResponse) Send(ctx context.Context, w http.ResponseWriter) {
	logger.Errorf(ctx, "%s", r.Error())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.StatusCode)
	json.NewEncoder(w).Encode(r)
}

func BadRequest(message, description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusBadRequest,
		Success:     false,
		Message:     message,
		Status:      "BAD REQUEST",
		Description: description,
	}
}

func ResourceNotFound(message, description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusNotFound,
		Success:     false,
		Message:     message,
		Status:      "NOT FOUND",
		Description: description,
	}
}

func Unauthorized() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusUnauthorized,
		Success:    false,
		Message:    "No valid Auth Token",
		Status:     "UNAUTHORISED",
	}
}

func SomethingWrong() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Success:    false,
		Message:    "Sorry, Something went wrong",
		Status:     "SOMETHING_WRONG",
	}
}

func InvalidData(description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusBadRequest,
		Success:     false,
		Message:     "Invalid data passed",
		Status:      "INVALID_DATA",
		Description: description,
	}
}

var ledgerErrors = []struct {
	err        error
	statusCode int
	status     string
	message    string
}{
	{ledger.ErrValidation, http.StatusBadRequest, "INVALID_DATA", "Invalid data passed"},
	{ledger.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Requested Resource Not Found"},
	{ledger.ErrPermissionDenied, http.StatusForbidden, "PERMISSION_DENIED", "You are not allowed to do this"},
	{ledger.ErrSelfCheckNotAllowed, http.StatusForbidden, "SELF_CHECK", "An account cannot check access to itself"},
	{ledger.ErrPaymentMismatch, http.StatusPaymentRequired, "PAYMENT_MISMATCH", "Attached deposit does not match the seat price"},
	{ledger.ErrCapacityExceeded, http.StatusConflict, "CAPACITY_EXCEEDED", "The event is sold out"},
	{ledger.ErrDuplicateTicket, http.StatusConflict, "DUPLICATE_TICKET", "This account already holds a ticket for the event"},
	{ledger.ErrEventClosed, http.StatusConflict, "EVENT_CLOSED", "The event has ended"},
	{ledger.ErrOverflow, http.StatusConflict, "OVERFLOW", "Supply would overflow"},
	{ledger.ErrUnderflow, http.StatusConflict, "UNDERFLOW", "Supply would underflow"},
	{ledger.ErrCapacityViolation, http.StatusConflict, "CAPACITY_VIOLATION", "Supply cannot drop below sold seats"},
}

// FromError maps a ledger failure to its HTTP response. A failed payout is
// reported with the committed ticket so the buyer keeps proof of the sale.
func FromError(err error) ErrorResponse {
	var payoutErr *ledger.PayoutError
	if errors.As(err, &payoutErr) {
		return ErrorResponse{
			StatusCode:  http.StatusBadGateway,
			Success:     false,
			Message:     "Ticket purchased but the payout to the host failed",
			Status:      "PAYOUT_FAILED",
			Description: err.Error(),
			Data:        payoutErr.Ticket,
		}
	}

	for _, e := range ledgerErrors {
		if errors.Is(err, e.err) {
			return ErrorResponse{
				StatusCode:  e.statusCode,
				Success:     false,
				Message:     e.message,
				Status:      e.status,
				Description: err.Error(),
			}
		}
	}

	res := SomethingWrong()
	if errors.Is(err, ledger.ErrCorruptState) {
		res.Status = "CORRUPT_STATE"
	}
	return res
}
