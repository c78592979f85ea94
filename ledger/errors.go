package ledger

import (
	"errors"
	"fmt"

	"eventers-ticket-ledger/model"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrPaymentMismatch     = errors.New("attached deposit does not match seat price")
	ErrCapacityExceeded    = errors.New("event is sold out")
	ErrDuplicateTicket     = errors.New("account already holds a ticket for this event")
	ErrEventClosed         = errors.New("event has ended")
	ErrOverflow            = errors.New("supply overflow")
	ErrUnderflow           = errors.New("supply underflow")
	ErrCapacityViolation   = errors.New("supply would drop below occupied seats")
	ErrCorruptState        = errors.New("ledger state is inconsistent")
	ErrSelfCheckNotAllowed = errors.New("an account cannot check access to itself")
	ErrPayoutFailed        = errors.New("payout to host failed")
)

// PayoutError reports a sale that committed but whose payment to the host
// did not go through. Ticket is the committed ticket.
type PayoutError struct {
	Ticket model.Ticket
	Host   string
	Amount uint64
	Err    error
}

func (e *PayoutError) Error() string {
	return fmt.Sprintf("payout of %d to %s for event %d: %v", e.Amount, e.Host, e.Ticket.EventID, e.Err)
}

func (e *PayoutError) Unwrap() error {
	return e.Err
}

func (e *PayoutError) Is(target error) bool {
	return target == ErrPayoutFailed
}
