package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eventers-ticket-ledger/clock"
	"eventers-ticket-ledger/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	testStart = clock.Timestamp(testNow.Add(-time.Hour))
	testEnd   = clock.Timestamp(testNow.Add(24 * time.Hour))
)

type payment struct {
	to     string
	amount uint64
}

type fakePayer struct {
	mu       sync.Mutex
	payments []payment
	err      error
}

func (p *fakePayer) Pay(_ context.Context, to string, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payments = append(p.payments, payment{to: to, amount: amount})
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *fakePayer, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	p := &fakePayer{}
	return New(s, p, clock.NewFixed(testNow)), p, s
}

func createEvent(t *testing.T, l *Ledger, host, symbol string, price, supply uint64) uint64 {
	t.Helper()
	id, err := l.CreateEvent(context.Background(), host, CreateEventInput{
		Name:          "Event " + symbol,
		Symbol:        symbol,
		SeatPrice:     price,
		Start:         testStart,
		End:           testEnd,
		InitialSupply: supply,
	})
	require.NoError(t, err)
	return id
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)

	first := createEvent(t, l, "host", "ROCK", 100, 2)
	second := createEvent(t, l, "host", "JAZZ", 50, 10)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)

	ev, err := l.GetEvent(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "host", ev.Host)
	assert.Equal(t, "ROCK", ev.Symbol)
	assert.Equal(t, uint64(0), ev.Occupied)
	assert.Equal(t, uint64(2), ev.InitialSupply)
	assert.Empty(t, ev.Attendees)

	events, err := l.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "JAZZ", events[1].Symbol)
}

func TestCreateEventValidation(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	createEvent(t, l, "host", "TAKEN", 1, 1)

	valid := CreateEventInput{Name: "n", Symbol: "SYM", Start: 1, End: 2}
	tests := []struct {
		name   string
		caller string
		mutate func(in *CreateEventInput)
		want   error
	}{
		{"empty name", "host", func(in *CreateEventInput) { in.Name = " " }, ErrValidation},
		{"empty symbol", "host", func(in *CreateEventInput) { in.Symbol = "" }, ErrValidation},
		{"whitespace in symbol", "host", func(in *CreateEventInput) { in.Symbol = "RO CK" }, ErrValidation},
		{"tab in symbol", "host", func(in *CreateEventInput) { in.Symbol = "ROCK\t" }, ErrValidation},
		{"end before start", "host", func(in *CreateEventInput) { in.Start, in.End = 5, 4 }, ErrValidation},
		{"duplicate symbol", "other", func(in *CreateEventInput) { in.Symbol = "TAKEN" }, ErrValidation},
		{"anonymous caller", "", func(in *CreateEventInput) {}, ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := l.CreateEvent(ctx, tt.caller, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	events, err := l.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestGetEventNotFound(t *testing.T) {
	l, _, _ := newTestLedger(t)

	for _, id := range []uint64{0, 1, 42} {
		_, err := l.GetEvent(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	events, err := l.ListEvents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestPurchaseScenario(t *testing.T) {
	ctx := context.Background()
	l, payer, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 100, 2)

	ticket, err := l.Purchase(ctx, "alice", id, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ticket.Seat)
	assert.Equal(t, "alice", ticket.Owner)
	assert.Equal(t, uint64(100), ticket.Price)
	assert.Equal(t, clock.Timestamp(testNow), ticket.PurchasedAt)
	assert.False(t, ticket.CheckIn)

	_, err = l.Purchase(ctx, "alice", id, 100)
	assert.ErrorIs(t, err, ErrDuplicateTicket)

	_, err = l.Purchase(ctx, "bob", id, 50)
	assert.ErrorIs(t, err, ErrPaymentMismatch)
	ev, err := l.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ev.Occupied)

	ticket, err = l.Purchase(ctx, "bob", id, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ticket.Seat)

	_, err = l.Purchase(ctx, "carol", id, 100)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	ev, err = l.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ev.Occupied)
	assert.Equal(t, []string{"alice", "bob"}, ev.Attendees)
	assert.Equal(t, []payment{{"host", 100}, {"host", 100}}, payer.payments)
}

func TestPurchaseCheckOrder(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ONE", 10, 1)
	_, err := l.Purchase(ctx, "alice", id, 10)
	require.NoError(t, err)

	// Sold out and wrong deposit: the deposit is checked first.
	_, err = l.Purchase(ctx, "alice", id, 9)
	assert.ErrorIs(t, err, ErrPaymentMismatch)

	// Sold out and already holding a ticket: capacity is checked first.
	_, err = l.Purchase(ctx, "alice", id, 10)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestPurchaseClosedEvent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	l := New(s, &fakePayer{}, clock.NewFixed(testNow))

	id, err := l.CreateEvent(ctx, "host", CreateEventInput{
		Name:          "Yesterday",
		Symbol:        "PAST",
		SeatPrice:     5,
		Start:         clock.Timestamp(testNow.Add(-48 * time.Hour)),
		End:           clock.Timestamp(testNow.Add(-24 * time.Hour)),
		InitialSupply: 3,
	})
	require.NoError(t, err)

	_, err = l.Purchase(ctx, "alice", id, 5)
	assert.ErrorIs(t, err, ErrEventClosed)

	ok, err := l.HasTicket(ctx, id, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurchaseUnknownEvent(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, err := l.Purchase(context.Background(), "alice", 7, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurchasePayoutFailureKeepsSale(t *testing.T) {
	ctx := context.Background()
	l, payer, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 100, 2)
	payer.err = errors.New("node unreachable")

	ticket, err := l.Purchase(ctx, "alice", id, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPayoutFailed)

	var payoutErr *PayoutError
	require.True(t, errors.As(err, &payoutErr))
	assert.Equal(t, "host", payoutErr.Host)
	assert.Equal(t, uint64(100), payoutErr.Amount)
	assert.Equal(t, ticket, payoutErr.Ticket)
	assert.EqualError(t, errors.Unwrap(payoutErr), "node unreachable")

	owner, err := l.TicketOwner(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
	ev, err := l.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ev.Occupied)
}

func TestFreeEventSkipsPayout(t *testing.T) {
	l, payer, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "FREE", 0, 5)

	_, err := l.Purchase(context.Background(), "alice", id, 0)
	require.NoError(t, err)
	assert.Empty(t, payer.payments)
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 1, 2)
	_, err := l.Purchase(ctx, "alice", id, 1)
	require.NoError(t, err)

	checked, err := l.IsCheckedIn(ctx, id, "alice")
	require.NoError(t, err)
	assert.False(t, checked)

	ok, err := l.CheckIn(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, ok)

	first, err := l.Ticket(ctx, id, "alice")
	require.NoError(t, err)
	assert.True(t, first.CheckIn)
	assert.Equal(t, clock.Timestamp(testNow), first.CheckInAt)

	l.clock = clock.NewFixed(testNow.Add(time.Hour))
	ok, err = l.CheckIn(ctx, "alice", id)
	require.NoError(t, err)
	assert.False(t, ok)

	second, err := l.Ticket(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.CheckInAt, second.CheckInAt)

	_, err = l.CheckIn(ctx, "bob", id)
	assert.ErrorIs(t, err, ErrNotFound)

	checked, err = l.IsCheckedIn(ctx, id, "bob")
	require.NoError(t, err)
	assert.False(t, checked)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 1, 3)
	for _, buyer := range []string{"alice", "bob"} {
		_, err := l.Purchase(ctx, buyer, id, 1)
		require.NoError(t, err)
	}
	_, err := l.CheckIn(ctx, "alice", id)
	require.NoError(t, err)
	before, err := l.Ticket(ctx, id, "alice")
	require.NoError(t, err)

	require.NoError(t, l.Transfer(ctx, "alice", "dave", id))

	has, err := l.HasTicket(ctx, id, "alice")
	require.NoError(t, err)
	assert.False(t, has)
	has, err = l.HasTicket(ctx, id, "dave")
	require.NoError(t, err)
	assert.True(t, has)

	after, err := l.Ticket(ctx, id, "dave")
	require.NoError(t, err)
	assert.Equal(t, "dave", after.Owner)
	assert.Equal(t, before.Seat, after.Seat)
	assert.Equal(t, before.Price, after.Price)
	assert.Equal(t, before.PurchasedAt, after.PurchasedAt)
	assert.Equal(t, before.CheckIn, after.CheckIn)
	assert.Equal(t, before.CheckInAt, after.CheckInAt)

	ev, err := l.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"dave", "bob"}, ev.Attendees)
	assert.Equal(t, uint64(2), ev.Occupied)

	seatOwner, err := l.SeatOwner(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, "dave", seatOwner)
}

func TestTransferErrors(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 1, 3)
	for _, buyer := range []string{"alice", "bob"} {
		_, err := l.Purchase(ctx, buyer, id, 1)
		require.NoError(t, err)
	}

	assert.ErrorIs(t, l.Transfer(ctx, "carol", "dave", id), ErrNotFound)
	assert.ErrorIs(t, l.Transfer(ctx, "alice", "dave", 9), ErrNotFound)
	assert.ErrorIs(t, l.Transfer(ctx, "alice", "", id), ErrValidation)
	assert.ErrorIs(t, l.Transfer(ctx, "alice", "bob", id), ErrDuplicateTicket)
	assert.ErrorIs(t, l.TransferFrom(ctx, "mallory", "alice", "mallory", id), ErrPermissionDenied)

	owner, err := l.TicketOwner(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
}

func TestTransferFromFollowsGrant(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 1, 3)
	_, err := l.Purchase(ctx, "alice", id, 1)
	require.NoError(t, err)
	_, err = l.Purchase(ctx, "bob", id, 1)
	require.NoError(t, err)

	require.NoError(t, l.GrantAccess(ctx, "alice", "broker"))
	require.NoError(t, l.TransferFrom(ctx, "broker", "alice", "dave", id))

	owner, err := l.TicketOwner(ctx, id, "dave")
	require.NoError(t, err)
	assert.Equal(t, "dave", owner)

	// The grant covers alice's tickets only.
	assert.ErrorIs(t, l.TransferFrom(ctx, "broker", "bob", "erin", id), ErrPermissionDenied)

	// Owner may always use transfer_from on their own ticket.
	require.NoError(t, l.TransferFrom(ctx, "bob", "bob", "erin", id))

	require.NoError(t, l.GrantAccess(ctx, "dave", "broker"))
	require.NoError(t, l.RevokeAccess(ctx, "dave", "broker"))
	assert.ErrorIs(t, l.TransferFrom(ctx, "broker", "dave", "frank", id), ErrPermissionDenied)
}

// heldStore parks the next Commit after arm until release is closed.
type heldStore struct {
	*store.Memory
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (h *heldStore) arm() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armed = true
	h.entered = make(chan struct{})
	h.release = make(chan struct{})
}

func (h *heldStore) Commit(ctx context.Context, b *store.Batch) error {
	h.mu.Lock()
	hold := h.armed
	h.armed = false
	h.mu.Unlock()

	if hold {
		close(h.entered)
		<-h.release
	}
	return h.Memory.Commit(ctx, b)
}

func TestRevokeWaitsForDelegateTransfer(t *testing.T) {
	ctx := context.Background()
	s := &heldStore{Memory: store.NewMemory()}
	l := New(s, &fakePayer{}, clock.NewFixed(testNow))
	id := createEvent(t, l, "host", "ROCK", 1, 3)
	_, err := l.Purchase(ctx, "alice", id, 1)
	require.NoError(t, err)
	require.NoError(t, l.GrantAccess(ctx, "alice", "broker"))

	s.arm()
	transferred := make(chan error, 1)
	go func() {
		transferred <- l.TransferFrom(ctx, "broker", "alice", "dave", id)
	}()
	<-s.entered

	revoked := make(chan error, 1)
	go func() {
		revoked <- l.RevokeAccess(ctx, "alice", "broker")
	}()

	select {
	case err := <-revoked:
		t.Fatalf("revoke returned while the delegate transfer was committing: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(s.release)
	require.NoError(t, <-transferred)
	require.NoError(t, <-revoked)

	owner, err := l.TicketOwner(ctx, id, "dave")
	require.NoError(t, err)
	assert.Equal(t, "dave", owner)

	ok, err := l.CheckAccess(ctx, "broker", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMintBurnScenario(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 100, 2)
	for _, buyer := range []string{"alice", "bob"} {
		_, err := l.Purchase(ctx, buyer, id, 100)
		require.NoError(t, err)
	}

	supply, err := l.Mint(ctx, "host", id, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), supply)

	_, err = l.Burn(ctx, "host", id, 2)
	assert.ErrorIs(t, err, ErrCapacityViolation)

	supply, err = l.Burn(ctx, "host", id, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), supply)

	ev, err := l.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ev.InitialSupply)
	assert.LessOrEqual(t, ev.Occupied, ev.InitialSupply)
}

func TestMintBurnErrors(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 1, 5)

	_, err := l.Mint(ctx, "alice", id, 1)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = l.Burn(ctx, "alice", id, 1)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = l.Mint(ctx, "host", id, 0)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = l.Mint(ctx, "host", id, ^uint64(0))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = l.Burn(ctx, "host", id, 0)
	assert.ErrorIs(t, err, ErrUnderflow)
	_, err = l.Burn(ctx, "host", id, 6)
	assert.ErrorIs(t, err, ErrUnderflow)

	_, err = l.Mint(ctx, "host", 3, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	supply, err := l.Burn(ctx, "host", id, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), supply)
}

func TestEscrow(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)

	assert.ErrorIs(t, l.GrantAccess(ctx, "alice", ""), ErrValidation)
	assert.ErrorIs(t, l.GrantAccess(ctx, "alice", "alice"), ErrValidation)

	ok, err := l.CheckAccess(ctx, "broker", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.GrantAccess(ctx, "alice", "broker"))
	ok, err = l.CheckAccess(ctx, "broker", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	g, err := l.Grant(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "broker", g.Grantee)
	assert.Equal(t, clock.Timestamp(testNow), g.GrantedAt)

	// A new grant replaces the old one.
	require.NoError(t, l.GrantAccess(ctx, "alice", "agent"))
	ok, err = l.CheckAccess(ctx, "broker", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	// Revoking someone who is not the grantee leaves the grant alone.
	assert.ErrorIs(t, l.RevokeAccess(ctx, "alice", "broker"), ErrNotFound)
	ok, err = l.CheckAccess(ctx, "agent", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.RevokeAccess(ctx, "alice", "agent"))
	_, err = l.Grant(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, l.RevokeAccess(ctx, "alice", "agent"), ErrNotFound)

	_, err = l.CheckAccess(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfCheckNotAllowed)
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 1, 3)
	other := createEvent(t, l, "someone", "JAZZ", 1, 3)
	for _, buyer := range []string{"alice", "bob"} {
		_, err := l.Purchase(ctx, buyer, id, 1)
		require.NoError(t, err)
	}

	tickets, err := l.ListAttendees(ctx, id)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "alice", tickets[0].Owner)
	assert.Equal(t, "bob", tickets[1].Owner)

	tickets, err = l.ListAttendees(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	_, err = l.TicketOwner(ctx, id, "carol")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.SeatOwner(ctx, id, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.SeatOwner(ctx, id, 3)
	assert.ErrorIs(t, err, ErrNotFound)
	owner, err := l.SeatOwner(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)

	for _, query := range []func() error{
		func() error { _, err := l.HasTicket(ctx, 9, "alice"); return err },
		func() error { _, err := l.IsCheckedIn(ctx, 9, "alice"); return err },
		func() error { _, err := l.ListAttendees(ctx, 9); return err },
		func() error { _, err := l.Ticket(ctx, 9, "alice"); return err },
	} {
		assert.ErrorIs(t, query(), ErrNotFound)
	}

	hosted, err := l.EventsByHost(ctx, "host")
	require.NoError(t, err)
	require.Len(t, hosted, 1)
	assert.Equal(t, id, hosted[0].ID)

	hosted, err = l.EventsByHost(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, hosted)
}

func TestListAttendeesDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	l, _, s := newTestLedger(t)
	id := createEvent(t, l, "host", "ROCK", 1, 3)
	_, err := l.Purchase(ctx, "alice", id, 1)
	require.NoError(t, err)

	b := store.NewBatch()
	b.Append(attendeesList(id), []byte("ghost"))
	require.NoError(t, s.Commit(ctx, b))

	_, err = l.ListAttendees(ctx, id)
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestConcurrentPurchasesRespectCapacity(t *testing.T) {
	ctx := context.Background()
	l, payer, _ := newTestLedger(t)
	id := createEvent(t, l, "host", "RUSH", 3, 5)

	buyers := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, buyer := range buyers {
		wg.Add(1)
		go func(i int, buyer string) {
			defer wg.Done()
			_, errs[i] = l.Purchase(ctx, buyer, id, 3)
		}(i, buyer)
	}
	wg.Wait()

	sold := 0
	for _, err := range errs {
		if err == nil {
			sold++
			continue
		}
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	}
	assert.Equal(t, 5, sold)
	assert.Len(t, payer.payments, 5)

	tickets, err := l.ListAttendees(ctx, id)
	require.NoError(t, err)
	assert.Len(t, tickets, 5)
	for i, tk := range tickets {
		assert.Equal(t, uint64(i+1), tk.Seat)
	}
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "ok", resultLabel(nil))
	assert.Equal(t, "duplicate_ticket", resultLabel(ErrDuplicateTicket))
	assert.Equal(t, "payout_failed", resultLabel(&PayoutError{Err: errors.New("x")}))
	assert.Equal(t, "error", resultLabel(errors.New("disk on fire")))
}
