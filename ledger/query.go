package ledger

import (
	"context"
	"errors"
	"fmt"

	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/store"
)

// Ticket returns the ticket held by account for the event.
func (l *Ledger) Ticket(ctx context.Context, eventID uint64, account string) (model.Ticket, error) {
	if err := l.requireEvent(ctx, eventID); err != nil {
		return model.Ticket{}, fmt.Errorf("ticket: %w", err)
	}
	t, ok, err := l.loadTicket(ctx, eventID, account)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("ticket: %w", err)
	}
	if !ok {
		return model.Ticket{}, fmt.Errorf("ticket: %d/%s: %w", eventID, account, ErrNotFound)
	}
	return t, nil
}

// TicketOwner returns the owner recorded on the ticket held under account.
func (l *Ledger) TicketOwner(ctx context.Context, eventID uint64, account string) (string, error) {
	t, err := l.Ticket(ctx, eventID, account)
	if err != nil {
		return "", err
	}
	return t.Owner, nil
}

// SeatOwner returns the account holding the 1-based seat.
func (l *Ledger) SeatOwner(ctx context.Context, eventID, seat uint64) (string, error) {
	if err := l.requireEvent(ctx, eventID); err != nil {
		return "", fmt.Errorf("seatOwner: %w", err)
	}
	if seat == 0 {
		return "", fmt.Errorf("seatOwner: seat 0 of event %d: %w", eventID, ErrNotFound)
	}
	raw, err := l.store.Index(ctx, attendeesList(eventID), seat-1)
	if errors.Is(err, store.ErrOutOfRange) {
		return "", fmt.Errorf("seatOwner: seat %d of event %d: %w", seat, eventID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("seatOwner: %w", err)
	}
	return string(raw), nil
}

// HasTicket reports whether account holds a ticket for the event.
func (l *Ledger) HasTicket(ctx context.Context, eventID uint64, account string) (bool, error) {
	if err := l.requireEvent(ctx, eventID); err != nil {
		return false, fmt.Errorf("hasTicket: %w", err)
	}
	ok, err := l.store.Contains(ctx, ticketKey(eventID, account))
	if err != nil {
		return false, fmt.Errorf("hasTicket: %w", err)
	}
	return ok, nil
}

// IsCheckedIn is false for accounts without a ticket.
func (l *Ledger) IsCheckedIn(ctx context.Context, eventID uint64, account string) (bool, error) {
	if err := l.requireEvent(ctx, eventID); err != nil {
		return false, fmt.Errorf("isCheckedIn: %w", err)
	}
	t, ok, err := l.loadTicket(ctx, eventID, account)
	if err != nil {
		return false, fmt.Errorf("isCheckedIn: %w", err)
	}
	return ok && t.CheckIn, nil
}

// ListAttendees returns the event's tickets in purchase order. An attendee
// without a ticket record fails with ErrCorruptState.
func (l *Ledger) ListAttendees(ctx context.Context, eventID uint64) ([]model.Ticket, error) {
	ev, unlock, err := l.acquire(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("listAttendees: %w", err)
	}
	defer unlock()

	accounts, err := l.attendees(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("listAttendees: %w", err)
	}

	tickets := make([]model.Ticket, 0, len(accounts))
	for _, account := range accounts {
		t, ok, err := l.loadTicket(ctx, ev.ID, account)
		if err != nil {
			return nil, fmt.Errorf("listAttendees: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("listAttendees: attendee %s of event %d has no ticket: %w", account, ev.ID, ErrCorruptState)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}
