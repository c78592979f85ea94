package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"eventers-ticket-ledger/codec"
	"eventers-ticket-ledger/logger"
	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/store"
)

type CreateEventInput struct {
	Name          string
	Symbol        string
	SeatPrice     uint64
	Start         uint64
	End           uint64
	InitialSupply uint64
}

func (in CreateEventInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if in.Symbol == "" {
		return fmt.Errorf("symbol is required: %w", ErrValidation)
	}
	if strings.IndexFunc(in.Symbol, unicode.IsSpace) >= 0 {
		return fmt.Errorf("symbol %q contains whitespace: %w", in.Symbol, ErrValidation)
	}
	if in.End < in.Start {
		return fmt.Errorf("end %d precedes start %d: %w", in.End, in.Start, ErrValidation)
	}
	return nil
}

// CreateEvent registers a new event hosted by caller and returns its 1-based id.
// A symbol already in use is rejected.
func (l *Ledger) CreateEvent(ctx context.Context, caller string, in CreateEventInput) (id uint64, err error) {
	defer observe("create_event", &err)

	if err := requireCaller(caller); err != nil {
		return 0, fmt.Errorf("createEvent: %w", err)
	}
	if err := in.validate(); err != nil {
		return 0, fmt.Errorf("createEvent: %w", err)
	}

	l.registryMu.Lock()
	defer l.registryMu.Unlock()

	taken, err := l.store.Contains(ctx, symbolKey(in.Symbol))
	if err != nil {
		return 0, fmt.Errorf("createEvent: check symbol: %w", err)
	}
	if taken {
		return 0, fmt.Errorf("createEvent: symbol %q already in use: %w", in.Symbol, ErrValidation)
	}

	n, err := l.store.Len(ctx, eventsList)
	if err != nil {
		return 0, fmt.Errorf("createEvent: count events: %w", err)
	}

	ev := model.Event{
		ID:            n + 1,
		Host:          caller,
		Name:          in.Name,
		Symbol:        in.Symbol,
		SeatPrice:     in.SeatPrice,
		Start:         in.Start,
		End:           in.End,
		InitialSupply: in.InitialSupply,
	}
	raw, err := codec.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("createEvent: encode event: %w", err)
	}

	b := store.NewBatch()
	b.Append(eventsList, raw)
	b.Set(symbolKey(ev.Symbol), []byte(strconv.FormatUint(ev.ID, 10)))
	if err := l.store.Commit(ctx, b); err != nil {
		return 0, fmt.Errorf("createEvent: %w", err)
	}

	logger.Infof(ctx, "event %d (%s) created by %s with supply %d", ev.ID, ev.Symbol, caller, ev.InitialSupply)
	return ev.ID, nil
}

// GetEvent returns the event with its attendee roster.
func (l *Ledger) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	ev, unlock, err := l.acquire(ctx, id)
	if err != nil {
		return model.Event{}, fmt.Errorf("getEvent: %w", err)
	}
	defer unlock()

	if ev.Attendees, err = l.attendees(ctx, id); err != nil {
		return model.Event{}, fmt.Errorf("getEvent: %w", err)
	}
	return ev, nil
}

// ListEvents returns every event in creation order. Each entry is consistent
// on its own; the list is not a single snapshot across events.
func (l *Ledger) ListEvents(ctx context.Context) ([]model.Event, error) {
	n, err := l.store.Len(ctx, eventsList)
	if err != nil {
		return nil, fmt.Errorf("listEvents: count events: %w", err)
	}

	events := make([]model.Event, 0, n)
	for id := uint64(1); id <= n; id++ {
		ev, err := l.GetEvent(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("listEvents: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// EventsByHost returns the events created by host, in creation order.
func (l *Ledger) EventsByHost(ctx context.Context, host string) ([]model.Event, error) {
	all, err := l.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("eventsByHost: %w", err)
	}

	hosted := make([]model.Event, 0)
	for _, ev := range all {
		if ev.Host == host {
			hosted = append(hosted, ev)
		}
	}
	return hosted, nil
}

func (l *Ledger) attendees(ctx context.Context, eventID uint64) ([]string, error) {
	n, err := l.store.Len(ctx, attendeesList(eventID))
	if err != nil {
		return nil, fmt.Errorf("count attendees of %d: %w", eventID, err)
	}
	raw, err := l.store.Range(ctx, attendeesList(eventID), 0, n)
	if err != nil {
		return nil, fmt.Errorf("read attendees of %d: %w", eventID, err)
	}

	accounts := make([]string, len(raw))
	for i, r := range raw {
		accounts[i] = string(r)
	}
	return accounts, nil
}
