package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"eventcontrol/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	events  map[uint]*models.Event
	entries map[uint][]models.EventEntry
	addrs   map[string]string

	ledger  []models.LedgerTransaction
	budgets map[string]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:  make(map[uint]*models.Event),
		entries: make(map[uint][]models.EventEntry),
		addrs:   make(map[string]string),
		budgets: make(map[string]float64),
	}
}

func (s *fakeStore) GetEvent(_ context.Context, id uint) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

func (s *fakeStore) MarkEnded(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok || ev.Status != models.EventStatusActive {
		return false, nil
	}
	ev.Status = models.EventStatusEnded
	ev.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakeStore) FinishEvent(_ context.Context, id uint, status string, winningOutcome *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok || ev.Terminal() {
		return nil
	}
	ev.Status = status
	ev.WinningOutcome = winningOutcome
	now := time.Now()
	ev.SettledAt = &now
	return nil
}

func (s *fakeStore) ListEntries(_ context.Context, eventID uint) ([]models.EventEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EventEntry, len(s.entries[eventID]))
	copy(out, s.entries[eventID])
	return out, nil
}

func (s *fakeStore) UpdateEntryPayment(_ context.Context, entryID uint, status, signature, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for eventID, entries := range s.entries {
		for i := range entries {
			if entries[i].ID == entryID {
				entries[i].PaymentStatus = status
				entries[i].TransferSignature = signature
				entries[i].FailReason = reason
				s.entries[eventID] = entries
				return nil
			}
		}
	}
	return fmt.Errorf("entry %d not found", entryID)
}

func (s *fakeStore) UserAddress(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addrs[userID], nil
}

func (s *fakeStore) AppendTransaction(_ context.Context, tx *models.LedgerTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append(s.ledger, *tx)
	return nil
}

func (s *fakeStore) AdjustBudget(_ context.Context, communityID string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[communityID] += delta
	return nil
}

func (s *fakeStore) ListExpiredActive(_ context.Context, now time.Time) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint
	for id, ev := range s.events {
		if ev.Status == models.EventStatusActive && !ev.Deadline.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeStore) ListStuckEnded(_ context.Context, olderThan time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, ev := range s.events {
		if ev.Status == models.EventStatusEnded && ev.UpdatedAt.Before(olderThan) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (s *fakeStore) entry(eventID, entryID uint) models.EventEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries[eventID] {
		if e.ID == entryID {
			return e
		}
	}
	return models.EventEntry{}
}

type stubSigner struct{ addr string }

func (s stubSigner) Address() string { return s.addr }

type fakeRail struct {
	mu       sync.Mutex
	sent     []string // recipient addresses in send order
	attempts map[string]int
	failFor  map[string]error
	balance  float64
	balErr   error
	sequence int
}

func (r *fakeRail) Send(_ context.Context, _ Signer, recipient string, amount float64) TransferResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempts == nil {
		r.attempts = make(map[string]int)
	}
	r.attempts[recipient]++
	if err, ok := r.failFor[recipient]; ok {
		return TransferResult{Err: err}
	}
	r.sequence++
	r.sent = append(r.sent, recipient)
	return TransferResult{Success: true, Signature: fmt.Sprintf("sig-%d", r.sequence)}
}

func (r *fakeRail) Balance(_ context.Context, _ string) (float64, error) {
	return r.balance, r.balErr
}

type fakeOracle struct {
	price float64
	err   error
}

func (o *fakeOracle) NativeUnitPrice(_ context.Context, currency string) (float64, error) {
	if currency == NativeCurrency {
		return 1.0, nil
	}
	return o.price, o.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *fakeNotifier) Send(_ context.Context, _ string, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return n.err
}

type fakePublisher struct {
	mu      sync.Mutex
	notices []SettlementNotice
}

func (p *fakePublisher) Publish(notice SettlementNotice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice)
	return nil
}

type fakeResolver struct {
	treasury *Treasury
	err      error
}

func (r *fakeResolver) Resolve(_ context.Context, _ string) (*Treasury, error) {
	return r.treasury, r.err
}

type fixedRand struct{ n int }

func (f fixedRand) Intn(int) int { return f.n }

type harness struct {
	store    *fakeStore
	rail     *fakeRail
	oracle   *fakeOracle
	notifier *fakeNotifier
	notices  *fakePublisher
	resolver *fakeResolver
	engine   *Engine
}

func newHarness(draw int) *harness {
	h := &harness{
		store:    newFakeStore(),
		rail:     &fakeRail{balance: 1_000_000},
		oracle:   &fakeOracle{price: 100}, // 1 SOL = 100 usd
		notifier: &fakeNotifier{},
		notices:  &fakePublisher{},
		resolver: &fakeResolver{
			treasury: &Treasury{CommunityID: "guild-1", Address: "TreasuryAddr", Signer: stubSigner{addr: "TreasuryAddr"}},
		},
	}
	h.engine = NewEngine(h.store, h.rail, h.oracle, h.notifier, h.notices, h.resolver, Options{
		Rand: fixedRand{n: draw},
	})
	return h
}

func potWagerEvent() *models.Event {
	return &models.Event{
		ID:              1,
		CommunityID:     "guild-1",
		ChannelID:       "chan-1",
		Title:           "Friday draw",
		Mode:            models.EventModePot,
		Kind:            models.EventKindWager,
		Currency:        "usd",
		EntryFee:        10,
		MinParticipants: 2,
		SlotCount:       5,
		Status:          models.EventStatusActive,
		Deadline:        time.Now().Add(-time.Minute),
	}
}

func committedEntry(id uint, user string, outcome int64, amount float64) models.EventEntry {
	return models.EventEntry{
		ID:            id,
		EventID:       1,
		UserID:        user,
		Outcome:       outcome,
		Amount:        amount,
		PaymentStatus: models.PaymentStatusCommitted,
	}
}

func TestResolvePotWager(t *testing.T) {
	// Draw lands on slot 3 (Intn returns 2, +1).
	h := newHarness(2)
	h.store.events[1] = potWagerEvent()
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 1, 10),
		committedEntry(12, "carol", 3, 10),
		committedEntry(13, "dave", 5, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"
	h.store.addrs["bob"] = "BobAddr"
	h.store.addrs["carol"] = "CarolAddr"
	h.store.addrs["dave"] = "DaveAddr"

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	ev, err := h.store.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCompleted, ev.Status)
	require.NotNil(t, ev.WinningOutcome)
	assert.Equal(t, int64(3), *ev.WinningOutcome)
	assert.NotNil(t, ev.SettledAt)

	// Pot 40, 10% house cut, 36 split two ways, at 100 usd/SOL.
	require.Len(t, h.rail.sent, 2)
	assert.Equal(t, []string{"AliceAddr", "CarolAddr"}, h.rail.sent)
	require.Len(t, h.store.ledger, 2)
	assert.InDelta(t, 0.18, h.store.ledger[0].Amount, 1e-9)

	assert.Equal(t, models.PaymentStatusPaidOut, h.store.entry(1, 10).PaymentStatus)
	assert.Equal(t, models.PaymentStatusPaidOut, h.store.entry(1, 12).PaymentStatus)
	assert.Equal(t, models.PaymentStatusLost, h.store.entry(1, 11).PaymentStatus)
	assert.Equal(t, models.PaymentStatusLost, h.store.entry(1, 13).PaymentStatus)
	assert.NotEmpty(t, h.store.entry(1, 10).TransferSignature)

	// House cut booked as negative spend, payouts as positive spend, both in
	// the event's currency.
	assert.InDelta(t, -4+18*2, h.store.budgets["guild-1"], 1e-9)

	require.Len(t, h.notices.notices, 1)
	assert.Equal(t, "settled", h.notices.notices[0].Action)
	require.Len(t, h.notifier.messages, 1)
	assert.Contains(t, h.notifier.messages[0], "slot 3")
}

func TestResolveCancelsBelowMinimum(t *testing.T) {
	h := newHarness(0)
	ev := potWagerEvent()
	ev.MinParticipants = 3
	h.store.events[1] = ev
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 1, 10),
		committedEntry(11, "bob", 2, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"
	h.store.addrs["bob"] = "BobAddr"

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	got, _ := h.store.GetEvent(context.Background(), 1)
	assert.Equal(t, models.EventStatusCancelled, got.Status)
	assert.Nil(t, got.WinningOutcome)

	// Both stakes returned, converted to SOL.
	require.Len(t, h.rail.sent, 2)
	assert.Equal(t, models.PaymentStatusRefunded, h.store.entry(1, 10).PaymentStatus)
	assert.Equal(t, models.PaymentStatusRefunded, h.store.entry(1, 11).PaymentStatus)
	require.Len(t, h.store.ledger, 2)
	assert.InDelta(t, 0.1, h.store.ledger[0].Amount, 1e-9)

	require.Len(t, h.notices.notices, 1)
	assert.Equal(t, "cancelled", h.notices.notices[0].Action)
}

func TestResolveHouseModePrizeSplit(t *testing.T) {
	h := newHarness(0) // slot 1 wins
	ev := potWagerEvent()
	ev.Mode = models.EventModeHouse
	ev.EntryFee = 0
	ev.PrizeAmount = 90
	h.store.events[1] = ev
	h.store.entries[1] = []models.EventEntry{
		{ID: 10, EventID: 1, UserID: "alice", Outcome: 1, PaymentStatus: models.PaymentStatusNone},
		{ID: 11, EventID: 1, UserID: "bob", Outcome: 1, PaymentStatus: models.PaymentStatusNone},
		{ID: 12, EventID: 1, UserID: "carol", Outcome: 2, PaymentStatus: models.PaymentStatusNone},
	}
	h.store.addrs["alice"] = "AliceAddr"
	h.store.addrs["bob"] = "BobAddr"

	h.engine.Resolve(context.Background(), 1, ReasonManual)

	got, _ := h.store.GetEvent(context.Background(), 1)
	assert.Equal(t, models.EventStatusCompleted, got.Status)

	// 90 usd split two ways at 100 usd/SOL: 0.45 SOL each. No house cut.
	require.Len(t, h.rail.sent, 2)
	assert.InDelta(t, 0.45, h.store.ledger[0].Amount, 1e-9)
	// Non-winners without stakes keep their payment status.
	assert.Equal(t, models.PaymentStatusNone, h.store.entry(1, 12).PaymentStatus)
	// Budget carries only the payouts.
	assert.InDelta(t, 90, h.store.budgets["guild-1"], 1e-9)
}

func TestResolveIsIdempotentUnderConcurrency(t *testing.T) {
	h := newHarness(2)
	h.store.events[1] = potWagerEvent()
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 1, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.engine.Resolve(context.Background(), 1, ReasonDeadline)
		}()
	}
	wg.Wait()

	// Exactly one run paid out.
	assert.Len(t, h.rail.sent, 1)
	assert.Len(t, h.store.ledger, 1)
	assert.Len(t, h.notices.notices, 1)

	// A third call on the terminal event is a no-op.
	h.engine.Resolve(context.Background(), 1, ReasonManual)
	assert.Len(t, h.rail.sent, 1)
}

func TestResolveMissingEventIsNoop(t *testing.T) {
	h := newHarness(0)
	h.engine.Resolve(context.Background(), 42, ReasonManual)
	assert.Empty(t, h.rail.sent)
	assert.Empty(t, h.notices.notices)
	assert.Empty(t, h.notifier.messages)
}

func TestResolvePriceOutageFailsPayoutsClosed(t *testing.T) {
	h := newHarness(2)
	h.oracle.err = errors.New("quote service down")
	h.store.events[1] = potWagerEvent()
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 3, 10),
		committedEntry(12, "carol", 1, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"
	h.store.addrs["bob"] = "BobAddr"

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	// Nothing is transferred when the price cannot be established.
	assert.Empty(t, h.rail.sent)
	assert.Equal(t, models.PaymentStatusPayoutFailed, h.store.entry(1, 10).PaymentStatus)
	assert.Equal(t, "price unavailable", h.store.entry(1, 10).FailReason)
	assert.Equal(t, models.PaymentStatusPayoutFailed, h.store.entry(1, 11).PaymentStatus)

	// The event still completes so it is not retried forever.
	got, _ := h.store.GetEvent(context.Background(), 1)
	assert.Equal(t, models.EventStatusCompleted, got.Status)
	require.Len(t, h.notifier.messages, 1)
	assert.Contains(t, h.notifier.messages[0], "price lookup unavailable")
}

func TestResolveInsufficientBalanceSkipsBatch(t *testing.T) {
	h := newHarness(2)
	h.rail.balance = 0.01
	h.store.events[1] = potWagerEvent()
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 1, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	assert.Empty(t, h.rail.sent)
	assert.Equal(t, models.PaymentStatusPayoutFailed, h.store.entry(1, 10).PaymentStatus)
	assert.Equal(t, "insufficient balance", h.store.entry(1, 10).FailReason)
}

func TestResolveNoTreasuryConfigured(t *testing.T) {
	h := newHarness(2)
	h.resolver.treasury = nil
	h.store.events[1] = potWagerEvent()
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 1, 10),
	}

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	assert.Empty(t, h.rail.sent)
	assert.Equal(t, models.PaymentStatusPayoutFailed, h.store.entry(1, 10).PaymentStatus)
	assert.Equal(t, "treasury not configured", h.store.entry(1, 10).FailReason)

	got, _ := h.store.GetEvent(context.Background(), 1)
	assert.Equal(t, models.EventStatusCompleted, got.Status)
	require.Len(t, h.notifier.messages, 1)
	assert.Contains(t, h.notifier.messages[0], "treasury wallet not configured")
}

func TestResolvePartialPayoutFailure(t *testing.T) {
	h := newHarness(2)
	h.rail.failFor = map[string]error{"BobAddr": errors.New("blockhash expired")}
	h.store.events[1] = potWagerEvent()
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 3, 10),
		committedEntry(12, "carol", 3, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"
	h.store.addrs["bob"] = "BobAddr"
	h.store.addrs["carol"] = "CarolAddr"

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	// One failure does not stop the remaining payouts.
	assert.Equal(t, []string{"AliceAddr", "CarolAddr"}, h.rail.sent)
	assert.Equal(t, models.PaymentStatusPaidOut, h.store.entry(1, 10).PaymentStatus)
	assert.Equal(t, models.PaymentStatusPayoutFailed, h.store.entry(1, 11).PaymentStatus)
	assert.Equal(t, "blockhash expired", h.store.entry(1, 11).FailReason)
	assert.Equal(t, models.PaymentStatusPaidOut, h.store.entry(1, 12).PaymentStatus)

	got, _ := h.store.GetEvent(context.Background(), 1)
	assert.Equal(t, models.EventStatusCompleted, got.Status)
}

func TestResolveSubmitsEachPayoutExactlyOnce(t *testing.T) {
	h := newHarness(2)
	// An RPC timeout is ambiguous: the transfer may have landed anyway.
	// The run must record the failure and move on, never resubmit.
	h.rail.failFor = map[string]error{"BobAddr": errors.New("rpc timeout")}
	h.store.events[1] = potWagerEvent()
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 3, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"
	h.store.addrs["bob"] = "BobAddr"

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	assert.Equal(t, 1, h.rail.attempts["AliceAddr"])
	assert.Equal(t, 1, h.rail.attempts["BobAddr"])
	assert.Equal(t, models.PaymentStatusPayoutFailed, h.store.entry(1, 11).PaymentStatus)
	assert.Equal(t, "rpc timeout", h.store.entry(1, 11).FailReason)
}

func TestResolveWinnerWithoutWalletIsSkipped(t *testing.T) {
	h := newHarness(2)
	h.store.events[1] = potWagerEvent()
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 3, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"
	// bob has no registered wallet and no entry-time address

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	assert.Equal(t, []string{"AliceAddr"}, h.rail.sent)
	assert.Equal(t, models.PaymentStatusPayoutFailed, h.store.entry(1, 11).PaymentStatus)
	assert.Equal(t, "no wallet connected", h.store.entry(1, 11).FailReason)
}

func TestResolveFallsBackToEntryAddress(t *testing.T) {
	h := newHarness(2)
	h.store.events[1] = potWagerEvent()
	entry := committedEntry(10, "alice", 3, 10)
	entry.PayoutAddress = "EntryTimeAddr"
	h.store.entries[1] = []models.EventEntry{entry, committedEntry(11, "bob", 1, 10)}

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	assert.Equal(t, []string{"EntryTimeAddr"}, h.rail.sent)
}

func TestResolveNotifierFailureIsNotFatal(t *testing.T) {
	h := newHarness(2)
	h.notifier.err = errors.New("webhook down")
	h.store.events[1] = potWagerEvent()
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 1, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	got, _ := h.store.GetEvent(context.Background(), 1)
	assert.Equal(t, models.EventStatusCompleted, got.Status)
	assert.Len(t, h.rail.sent, 1)
}

func TestResolveContestPreselectedOutcome(t *testing.T) {
	h := newHarness(0)
	ev := potWagerEvent()
	ev.Kind = models.EventKindContest
	favorite := int64(7)
	ev.FavoriteOutcome = &favorite
	h.store.events[1] = ev
	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 7, 10),
		committedEntry(11, "bob", 8, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	got, _ := h.store.GetEvent(context.Background(), 1)
	require.NotNil(t, got.WinningOutcome)
	assert.Equal(t, int64(7), *got.WinningOutcome)
	assert.Equal(t, []string{"AliceAddr"}, h.rail.sent)
}

func TestSweepDeadlines(t *testing.T) {
	h := newHarness(2)
	expired := potWagerEvent()
	h.store.events[1] = expired

	future := potWagerEvent()
	future.ID = 2
	future.Deadline = time.Now().Add(time.Hour)
	h.store.events[2] = future

	h.store.entries[1] = []models.EventEntry{
		committedEntry(10, "alice", 3, 10),
		committedEntry(11, "bob", 1, 10),
	}
	h.store.addrs["alice"] = "AliceAddr"

	require.NoError(t, h.engine.SweepDeadlines(context.Background()))

	got1, _ := h.store.GetEvent(context.Background(), 1)
	got2, _ := h.store.GetEvent(context.Background(), 2)
	assert.True(t, got1.Terminal())
	assert.Equal(t, models.EventStatusActive, got2.Status)
}

func TestRecoverStuck(t *testing.T) {
	h := newHarness(0)

	paid := potWagerEvent()
	paid.Status = models.EventStatusEnded
	paid.UpdatedAt = time.Now().Add(-time.Hour)
	h.store.events[1] = paid
	h.store.entries[1] = []models.EventEntry{
		{ID: 10, EventID: 1, UserID: "alice", Outcome: 3, PaymentStatus: models.PaymentStatusPaidOut},
		{ID: 11, EventID: 1, UserID: "bob", Outcome: 3, PaymentStatus: models.PaymentStatusCommitted},
	}

	unpaid := potWagerEvent()
	unpaid.ID = 2
	unpaid.Status = models.EventStatusEnded
	unpaid.UpdatedAt = time.Now().Add(-time.Hour)
	h.store.events[2] = unpaid
	h.store.entries[2] = []models.EventEntry{
		{ID: 20, EventID: 2, UserID: "carol", Outcome: 1, PaymentStatus: models.PaymentStatusCommitted},
	}

	fresh := potWagerEvent()
	fresh.ID = 3
	fresh.Status = models.EventStatusEnded
	fresh.UpdatedAt = time.Now()
	h.store.events[3] = fresh

	require.NoError(t, h.engine.RecoverStuck(context.Background()))

	// An event with payouts on record lands on completed.
	got1, _ := h.store.GetEvent(context.Background(), 1)
	assert.Equal(t, models.EventStatusCompleted, got1.Status)
	// Committed entries are flagged for manual review, never re-sent.
	assert.Equal(t, models.PaymentStatusPayoutFailed, h.store.entry(1, 11).PaymentStatus)
	assert.Equal(t, "settlement interrupted", h.store.entry(1, 11).FailReason)
	assert.Empty(t, h.rail.sent)

	// No payouts at all means the run never got anywhere: cancelled.
	got2, _ := h.store.GetEvent(context.Background(), 2)
	assert.Equal(t, models.EventStatusCancelled, got2.Status)

	// Events inside the grace period are left alone.
	got3, _ := h.store.GetEvent(context.Background(), 3)
	assert.Equal(t, models.EventStatusEnded, got3.Status)
}

func TestCancelWithoutTreasuryWarnsAndSkipsRefunds(t *testing.T) {
	h := newHarness(0)
	h.resolver.treasury = &Treasury{CommunityID: "guild-1", Address: "WatchOnly"}
	ev := potWagerEvent()
	ev.MinParticipants = 5
	h.store.events[1] = ev
	h.store.entries[1] = []models.EventEntry{committedEntry(10, "alice", 1, 10)}

	h.engine.Resolve(context.Background(), 1, ReasonDeadline)

	got, _ := h.store.GetEvent(context.Background(), 1)
	assert.Equal(t, models.EventStatusCancelled, got.Status)
	assert.Empty(t, h.rail.sent)
	// The stake stays committed; nothing pretends a refund happened.
	assert.Equal(t, models.PaymentStatusCommitted, h.store.entry(1, 10).PaymentStatus)
	require.Len(t, h.notifier.messages, 1)
	assert.Contains(t, h.notifier.messages[0], "entry fees were not refunded")
}
