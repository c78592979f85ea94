// Package ledger is the ticket ledger: event registry, ticket lifecycle,
// escrow delegation and the read-only query surface, all persisted through a
// store.Store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"eventers-ticket-ledger/clock"
	"eventers-ticket-ledger/codec"
	"eventers-ticket-ledger/metrics"
	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/store"
)

// Payer moves a purchase deposit to the event host.
type Payer interface {
	Pay(ctx context.Context, to string, amount uint64) error
}

// Ledger serializes calls per event. Event creation and escrow writes have
// their own locks; payouts run after commit with no lock held.
type Ledger struct {
	store store.Store
	payer Payer
	clock clock.Clock

	registryMu sync.Mutex
	escrowMu   sync.RWMutex

	locksMu sync.Mutex
	locks   map[uint64]*sync.Mutex
}

// New returns a Ledger over s that pays hosts through payer.
func New(s store.Store, payer Payer, clk clock.Clock) *Ledger {
	return &Ledger{
		store: s,
		payer: payer,
		clock: clk,
		locks: make(map[uint64]*sync.Mutex),
	}
}

func (l *Ledger) now() uint64 {
	return clock.Timestamp(l.clock.Now())
}

func (l *Ledger) lockEvent(id uint64) func() {
	l.locksMu.Lock()
	mu, ok := l.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[id] = mu
	}
	l.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// requireEvent fails with ErrNotFound unless id names a created event.
func (l *Ledger) requireEvent(ctx context.Context, id uint64) error {
	n, err := l.store.Len(ctx, eventsList)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if id == 0 || id > n {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return nil
}

// acquire locks the event and loads it. On success the caller owns the
// returned unlock.
func (l *Ledger) acquire(ctx context.Context, id uint64) (model.Event, func(), error) {
	if err := l.requireEvent(ctx, id); err != nil {
		return model.Event{}, nil, err
	}
	unlock := l.lockEvent(id)
	ev, err := l.loadEvent(ctx, id)
	if err != nil {
		unlock()
		return model.Event{}, nil, err
	}
	return ev, unlock, nil
}

func (l *Ledger) loadEvent(ctx context.Context, id uint64) (model.Event, error) {
	if id == 0 {
		return model.Event{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	raw, err := l.store.Index(ctx, eventsList, id-1)
	if errors.Is(err, store.ErrOutOfRange) {
		return model.Event{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("load event %d: %w", id, err)
	}

	var ev model.Event
	if err := codec.Unmarshal(raw, &ev); err != nil {
		return model.Event{}, fmt.Errorf("decode event %d: %w", id, err)
	}
	return ev, nil
}

// loadTicket reports ok=false when account holds no ticket for the event.
func (l *Ledger) loadTicket(ctx context.Context, eventID uint64, account string) (model.Ticket, bool, error) {
	raw, err := l.store.Get(ctx, ticketKey(eventID, account))
	if errors.Is(err, store.ErrNotFound) {
		return model.Ticket{}, false, nil
	}
	if err != nil {
		return model.Ticket{}, false, fmt.Errorf("load ticket %d/%s: %w", eventID, account, err)
	}

	var t model.Ticket
	if err := codec.Unmarshal(raw, &t); err != nil {
		return model.Ticket{}, false, fmt.Errorf("decode ticket %d/%s: %w", eventID, account, err)
	}
	return t, true, nil
}

func putEvent(b *store.Batch, ev model.Event) error {
	raw, err := codec.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %d: %w", ev.ID, err)
	}
	b.SetIndex(eventsList, ev.ID-1, raw)
	return nil
}

func putTicket(b *store.Batch, t model.Ticket) error {
	raw, err := codec.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode ticket %d/%s: %w", t.EventID, t.Owner, err)
	}
	b.Set(ticketKey(t.EventID, t.Owner), raw)
	return nil
}

func requireCaller(caller string) error {
	if caller == "" {
		return fmt.Errorf("anonymous caller: %w", ErrPermissionDenied)
	}
	return nil
}

var resultLabels = []struct {
	err   error
	label string
}{
	{ErrPayoutFailed, "payout_failed"},
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrPermissionDenied, "permission_denied"},
	{ErrPaymentMismatch, "payment_mismatch"},
	{ErrCapacityExceeded, "capacity_exceeded"},
	{ErrDuplicateTicket, "duplicate_ticket"},
	{ErrEventClosed, "event_closed"},
	{ErrOverflow, "overflow"},
	{ErrUnderflow, "underflow"},
	{ErrCapacityViolation, "capacity_violation"},
	{ErrCorruptState, "corrupt_state"},
	{ErrSelfCheckNotAllowed, "self_check"},
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, r := range resultLabels {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "error"
}

// observe is deferred by every mutating operation with its named error.
func observe(op string, err *error) {
	metrics.LedgerOp(op, resultLabel(*err))
}
