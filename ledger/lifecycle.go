package ledger

import (
	"context"
	"errors"
	"fmt"

	"eventers-ticket-ledger/logger"
	"eventers-ticket-ledger/metrics"
	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/store"
)

// Purchase sells caller the next seat of the event for deposit, which must
// equal the seat price. The deposit is paid to the host once the sale is
// committed; if that payment fails the sale stands and a *PayoutError is
// returned with the ticket.
func (l *Ledger) Purchase(ctx context.Context, caller string, eventID, deposit uint64) (ticket model.Ticket, err error) {
	defer observe("purchase", &err)

	if err := requireCaller(caller); err != nil {
		return model.Ticket{}, fmt.Errorf("purchase: %w", err)
	}

	ev, unlock, err := l.acquire(ctx, eventID)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("purchase: %w", err)
	}
	ticket, err = l.sell(ctx, ev, caller, deposit)
	unlock()
	if err != nil {
		return model.Ticket{}, fmt.Errorf("purchase: %w", err)
	}

	logger.Infof(ctx, "seat %d of event %d sold to %s", ticket.Seat, eventID, caller)

	if deposit == 0 {
		return ticket, nil
	}
	if err := l.payer.Pay(ctx, ev.Host, deposit); err != nil {
		metrics.PayoutFailed()
		logger.Errorf(ctx, "payout of %d to host %s for event %d failed: %v", deposit, ev.Host, eventID, err)
		return ticket, &PayoutError{Ticket: ticket, Host: ev.Host, Amount: deposit, Err: err}
	}
	return ticket, nil
}

func (l *Ledger) sell(ctx context.Context, ev model.Event, buyer string, deposit uint64) (model.Ticket, error) {
	if deposit != ev.SeatPrice {
		return model.Ticket{}, fmt.Errorf("event %d: deposit %d, seat price %d: %w", ev.ID, deposit, ev.SeatPrice, ErrPaymentMismatch)
	}
	if ev.Occupied >= ev.InitialSupply {
		return model.Ticket{}, fmt.Errorf("event %d: %d of %d seats taken: %w", ev.ID, ev.Occupied, ev.InitialSupply, ErrCapacityExceeded)
	}

	holds, err := l.store.Contains(ctx, ticketKey(ev.ID, buyer))
	if err != nil {
		return model.Ticket{}, fmt.Errorf("check ticket: %w", err)
	}
	if holds {
		return model.Ticket{}, fmt.Errorf("event %d, account %s: %w", ev.ID, buyer, ErrDuplicateTicket)
	}

	now := l.now()
	if now > ev.End {
		return model.Ticket{}, fmt.Errorf("event %d ended at %d: %w", ev.ID, ev.End, ErrEventClosed)
	}

	seats, err := l.store.Len(ctx, attendeesList(ev.ID))
	if err != nil {
		return model.Ticket{}, fmt.Errorf("count attendees: %w", err)
	}
	if seats != ev.Occupied {
		return model.Ticket{}, fmt.Errorf("event %d: %d attendees but %d occupied: %w", ev.ID, seats, ev.Occupied, ErrCorruptState)
	}

	ticket := model.Ticket{
		EventID:     ev.ID,
		Seat:        seats + 1,
		Owner:       buyer,
		Price:       ev.SeatPrice,
		PurchasedAt: now,
	}
	ev.Occupied++

	b := store.NewBatch()
	b.Append(attendeesList(ev.ID), []byte(buyer))
	if err := putTicket(b, ticket); err != nil {
		return model.Ticket{}, err
	}
	if err := putEvent(b, ev); err != nil {
		return model.Ticket{}, err
	}
	if err := l.store.Commit(ctx, b); err != nil {
		return model.Ticket{}, err
	}
	return ticket, nil
}

// CheckIn marks caller's ticket as used. It returns false, changing nothing,
// when the ticket was already checked in.
func (l *Ledger) CheckIn(ctx context.Context, caller string, eventID uint64) (checkedIn bool, err error) {
	defer observe("check_in", &err)

	if err := requireCaller(caller); err != nil {
		return false, fmt.Errorf("checkIn: %w", err)
	}

	ev, unlock, err := l.acquire(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("checkIn: %w", err)
	}
	defer unlock()

	t, ok, err := l.loadTicket(ctx, ev.ID, caller)
	if err != nil {
		return false, fmt.Errorf("checkIn: %w", err)
	}
	if !ok {
		return false, fmt.Errorf("checkIn: ticket %d/%s: %w", ev.ID, caller, ErrNotFound)
	}
	if t.Owner != caller {
		return false, fmt.Errorf("checkIn: ticket %d/%s is owned by %s: %w", ev.ID, caller, t.Owner, ErrCorruptState)
	}
	if t.CheckIn {
		return false, nil
	}

	t.CheckIn = true
	t.CheckInAt = l.now()

	b := store.NewBatch()
	if err := putTicket(b, t); err != nil {
		return false, fmt.Errorf("checkIn: %w", err)
	}
	if err := l.store.Commit(ctx, b); err != nil {
		return false, fmt.Errorf("checkIn: %w", err)
	}

	logger.Infof(ctx, "%s checked in to event %d", caller, ev.ID)
	return true, nil
}

// Transfer moves caller's own ticket to newOwner.
func (l *Ledger) Transfer(ctx context.Context, caller, newOwner string, eventID uint64) (err error) {
	defer observe("transfer", &err)

	if err := l.transfer(ctx, caller, caller, newOwner, eventID); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

// TransferFrom moves ownerID's ticket to newOwner. caller must be the owner
// or the owner's current escrow grantee.
func (l *Ledger) TransferFrom(ctx context.Context, caller, ownerID, newOwner string, eventID uint64) (err error) {
	defer observe("transfer_from", &err)

	if err := l.transfer(ctx, caller, ownerID, newOwner, eventID); err != nil {
		return fmt.Errorf("transferFrom: %w", err)
	}
	return nil
}

func (l *Ledger) transfer(ctx context.Context, caller, owner, newOwner string, eventID uint64) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if newOwner == "" {
		return fmt.Errorf("new owner is required: %w", ErrValidation)
	}

	ev, unlock, err := l.acquire(ctx, eventID)
	if err != nil {
		return err
	}
	defer unlock()

	t, ok, err := l.loadTicket(ctx, ev.ID, owner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("ticket %d/%s: %w", ev.ID, owner, ErrNotFound)
	}

	verdict, release, err := l.authorize(ctx, caller, t.Owner)
	if err != nil {
		return err
	}
	if verdict == denied {
		return fmt.Errorf("%s may not move tickets of %s: %w", caller, t.Owner, ErrPermissionDenied)
	}
	defer release()

	taken, err := l.store.Contains(ctx, ticketKey(ev.ID, newOwner))
	if err != nil {
		return fmt.Errorf("check ticket: %w", err)
	}
	if taken {
		return fmt.Errorf("event %d, account %s: %w", ev.ID, newOwner, ErrDuplicateTicket)
	}

	if t.Seat == 0 {
		return fmt.Errorf("ticket %d/%s has no seat: %w", ev.ID, owner, ErrCorruptState)
	}
	holder, err := l.store.Index(ctx, attendeesList(ev.ID), t.Seat-1)
	if errors.Is(err, store.ErrOutOfRange) {
		return fmt.Errorf("seat %d of event %d is missing: %w", t.Seat, ev.ID, ErrCorruptState)
	}
	if err != nil {
		return fmt.Errorf("read seat %d: %w", t.Seat, err)
	}
	if string(holder) != owner {
		return fmt.Errorf("seat %d of event %d is held by %s, not %s: %w", t.Seat, ev.ID, holder, owner, ErrCorruptState)
	}

	moved := t
	moved.Owner = newOwner

	b := store.NewBatch()
	if err := putTicket(b, moved); err != nil {
		return err
	}
	b.Delete(ticketKey(ev.ID, owner))
	b.SetIndex(attendeesList(ev.ID), t.Seat-1, []byte(newOwner))
	if err := l.store.Commit(ctx, b); err != nil {
		return err
	}

	logger.Infof(ctx, "seat %d of event %d moved from %s to %s by %s (%s)", t.Seat, ev.ID, owner, newOwner, caller, verdict)
	return nil
}

// Mint adds amount seats to the event supply. Host only.
func (l *Ledger) Mint(ctx context.Context, caller string, eventID, amount uint64) (supply uint64, err error) {
	defer observe("mint", &err)

	ev, unlock, err := l.acquireAsHost(ctx, caller, eventID)
	if err != nil {
		return 0, fmt.Errorf("mint: %w", err)
	}
	defer unlock()

	sum := ev.InitialSupply + amount
	if sum <= ev.InitialSupply {
		return 0, fmt.Errorf("mint: %d + %d: %w", ev.InitialSupply, amount, ErrOverflow)
	}
	ev.InitialSupply = sum

	if err := l.saveEvent(ctx, ev); err != nil {
		return 0, fmt.Errorf("mint: %w", err)
	}
	return ev.InitialSupply, nil
}

// Burn removes amount seats from the event supply. Host only; seats already
// sold cannot be burned.
func (l *Ledger) Burn(ctx context.Context, caller string, eventID, amount uint64) (supply uint64, err error) {
	defer observe("burn", &err)

	ev, unlock, err := l.acquireAsHost(ctx, caller, eventID)
	if err != nil {
		return 0, fmt.Errorf("burn: %w", err)
	}
	defer unlock()

	diff := ev.InitialSupply - amount
	if diff >= ev.InitialSupply {
		return 0, fmt.Errorf("burn: %d - %d: %w", ev.InitialSupply, amount, ErrUnderflow)
	}
	if diff < ev.Occupied {
		return 0, fmt.Errorf("burn: supply %d below %d occupied: %w", diff, ev.Occupied, ErrCapacityViolation)
	}
	ev.InitialSupply = diff

	if err := l.saveEvent(ctx, ev); err != nil {
		return 0, fmt.Errorf("burn: %w", err)
	}
	return ev.InitialSupply, nil
}

func (l *Ledger) acquireAsHost(ctx context.Context, caller string, eventID uint64) (model.Event, func(), error) {
	if err := requireCaller(caller); err != nil {
		return model.Event{}, nil, err
	}
	ev, unlock, err := l.acquire(ctx, eventID)
	if err != nil {
		return model.Event{}, nil, err
	}
	if ev.Host != caller {
		unlock()
		return model.Event{}, nil, fmt.Errorf("%s is not the host of event %d: %w", caller, eventID, ErrPermissionDenied)
	}
	return ev, unlock, nil
}

func (l *Ledger) saveEvent(ctx context.Context, ev model.Event) error {
	b := store.NewBatch()
	if err := putEvent(b, ev); err != nil {
		return err
	}
	return l.store.Commit(ctx, b)
}
