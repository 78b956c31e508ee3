package settlement

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"eventcontrol/internal/models"
	"eventcontrol/pkg/metrics"

	log "github.com/sirupsen/logrus"
)

// Engine drives end-to-end resolution of one event: it ends the event exactly
// once, determines winners, computes payouts, executes transfers with
// partial-failure tolerance, and records every outcome. All collaborators are
// injected; there are no default fallbacks.
type Engine struct {
	store    Store
	rail     PaymentRail
	oracle   PriceOracle
	notifier Notifier
	notices  NoticePublisher
	wallets  WalletResolver

	rakeRate float64
	rng      Rand
	now      func() time.Time
}

// Options tunes engine behavior. Zero values fall back to the defaults noted
// per field.
type Options struct {
	RakeRate float64         // default DefaultRakeRate
	Rand     Rand            // default math/rand seeded with wall time
	Now      func() time.Time // default time.Now
}

// NewEngine wires a settlement engine from its named collaborators.
func NewEngine(store Store, rail PaymentRail, oracle PriceOracle, notifier Notifier, notices NoticePublisher, wallets WalletResolver, opts Options) *Engine {
	e := &Engine{
		store:    store,
		rail:     rail,
		oracle:   oracle,
		notifier: notifier,
		notices:  notices,
		wallets:  wallets,
		rakeRate: opts.RakeRate,
		rng:      opts.Rand,
		now:      opts.Now,
	}
	if e.rakeRate == 0 {
		e.rakeRate = DefaultRakeRate
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Resolve settles or cancels one event. Missing or already-processed events
// are a silent no-op. Any panic is caught and logged; the run ends without
// throwing, which can leave the event in 'ended' until the recovery sweep
// picks it up.
func (e *Engine) Resolve(ctx context.Context, eventID uint, reason string) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"event_id": eventID, "reason": reason}).
				Errorf("settlement run panicked: %v", r)
		}
	}()

	ev, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		log.Errorf("Failed to load event %d: %v", eventID, err)
		return
	}
	if ev == nil {
		log.Debugf("Event %d not found, nothing to resolve", eventID)
		return
	}
	if ev.Status != models.EventStatusActive {
		log.Debugf("Event %d already %s, skipping", eventID, ev.Status)
		return
	}

	// Flip to ended before any external side effect. The conditional update
	// guarantees only one caller proceeds past this point.
	won, err := e.store.MarkEnded(ctx, eventID)
	if err != nil {
		log.Errorf("Failed to end event %d: %v", eventID, err)
		return
	}
	if !won {
		log.Infof("Event %d is being settled by a concurrent run, skipping", eventID)
		return
	}

	log.WithFields(log.Fields{"event_id": eventID, "reason": reason}).Info("Settling event")

	entries, err := e.store.ListEntries(ctx, eventID)
	if err != nil {
		log.Errorf("Failed to load entries for event %d: %v", eventID, err)
		return
	}

	if len(entries) < ev.MinParticipants {
		e.cancel(ctx, ev, entries)
		return
	}
	e.settle(ctx, ev, entries)
}

func (e *Engine) settle(ctx context.Context, ev *models.Event, entries []models.EventEntry) {
	winning, winners := DetermineWinners(ev, entries, e.rng)
	payout := ComputePayout(ev, entries, len(winners), e.rakeRate)

	report := newReport(ev)
	report.payout = payout
	report.winningOutcome = winning

	if len(winners) > 0 && payout.PerWinner > 0 {
		e.payWinners(ctx, ev, winners, payout.PerWinner, report)
	}

	// Non-winning pot entries lose their stake.
	if ev.CollectsFees() {
		winnerIDs := make(map[uint]bool, len(winners))
		for _, w := range winners {
			winnerIDs[w.ID] = true
		}
		for _, entry := range entries {
			if winnerIDs[entry.ID] || entry.PaymentStatus != models.PaymentStatusCommitted {
				continue
			}
			if err := e.store.UpdateEntryPayment(ctx, entry.ID, models.PaymentStatusLost, "", ""); err != nil {
				log.Errorf("Failed to mark entry %d lost: %v", entry.ID, err)
			}
		}
	}

	// The house cut is bookkeeping only: booked as negative spend against the
	// community budget, never transferred on chain.
	if payout.HouseCut > 0 {
		if err := e.store.AdjustBudget(ctx, ev.CommunityID, -payout.HouseCut); err != nil {
			log.Errorf("Failed to credit house cut for community %s: %v", ev.CommunityID, err)
		}
	}

	e.notify(ctx, ev, report)

	if err := e.store.FinishEvent(ctx, ev.ID, models.EventStatusCompleted, &winning); err != nil {
		log.Errorf("Failed to complete event %d: %v", ev.ID, err)
		return
	}
	metrics.SettlementsTotal.WithLabelValues(models.EventStatusCompleted).Inc()
	e.publishNotice(ev, "settled", models.EventStatusCompleted)
}

// payWinners executes transfers strictly sequentially: one ledger insertion
// order, and a balance pre-check that stays meaningful across the batch.
func (e *Engine) payWinners(ctx context.Context, ev *models.Event, winners []models.EventEntry, perWinner float64, report *settleReport) {
	treasury, err := e.wallets.Resolve(ctx, ev.CommunityID)
	if err != nil {
		log.Warnf("Wallet reconciliation failed for community %s: %v", ev.CommunityID, err)
	}
	if !treasury.CanSign() {
		report.warning = "treasury wallet not configured; payouts skipped"
		e.failBatch(ctx, winners, "treasury not configured", report)
		return
	}

	amount := perWinner
	if ev.Currency != NativeCurrency {
		price, err := e.oracle.NativeUnitPrice(ctx, ev.Currency)
		if err != nil || price <= 0 {
			log.Warnf("Price lookup failed for %s: %v", ev.Currency, err)
			report.warning = "price lookup unavailable; payouts skipped"
			e.failBatch(ctx, winners, "price unavailable", report)
			return
		}
		amount = perWinner / price
	}

	// Best-effort pre-check only: a concurrent drain between check and
	// execution is an accepted residual risk.
	if balance, err := e.rail.Balance(ctx, treasury.Address); err != nil {
		log.Warnf("Treasury balance check failed for %s: %v", treasury.Address, err)
	} else if amount*float64(len(winners)) > balance {
		report.warning = "treasury balance insufficient; payouts skipped"
		e.failBatch(ctx, winners, "insufficient balance", report)
		return
	}

	for _, winner := range winners {
		addr := e.payoutAddress(ctx, winner)
		if addr == "" {
			e.recordPayout(ctx, winner, models.PaymentStatusPayoutFailed, "", "no wallet connected", report)
			continue
		}

		res := e.rail.Send(ctx, treasury.Signer, addr, amount)
		if !res.Success {
			reason := "transfer failed"
			if res.Err != nil {
				reason = res.Err.Error()
			}
			e.recordPayout(ctx, winner, models.PaymentStatusPayoutFailed, "", reason, report)
			continue
		}

		if err := e.store.AppendTransaction(ctx, &models.LedgerTransaction{
			CommunityID: ev.CommunityID,
			EventID:     ev.ID,
			FromAddress: treasury.Address,
			ToAddress:   addr,
			Amount:      amount,
			Signature:   res.Signature,
		}); err != nil {
			log.Errorf("Failed to append ledger row for entry %d: %v", winner.ID, err)
		}
		// Budget is tracked in the event's currency; the ledger row carries
		// the native amount.
		if err := e.store.AdjustBudget(ctx, ev.CommunityID, perWinner); err != nil {
			log.Errorf("Failed to adjust budget for community %s: %v", ev.CommunityID, err)
		}
		e.recordPayout(ctx, winner, models.PaymentStatusPaidOut, res.Signature, "", report)
	}
}

func (e *Engine) cancel(ctx context.Context, ev *models.Event, entries []models.EventEntry) {
	report := newReport(ev)
	report.cancelled = true
	report.entryCount = len(entries)

	if ev.CollectsFees() {
		e.refundEntries(ctx, ev, entries, report)
	}

	e.notify(ctx, ev, report)

	if err := e.store.FinishEvent(ctx, ev.ID, models.EventStatusCancelled, nil); err != nil {
		log.Errorf("Failed to cancel event %d: %v", ev.ID, err)
		return
	}
	metrics.SettlementsTotal.WithLabelValues(models.EventStatusCancelled).Inc()
	e.publishNotice(ev, "cancelled", models.EventStatusCancelled)
}

// refundEntries returns each committed stake to its owner. Without signing
// authority all refunds are skipped and surfaced as a warning, not an error.
func (e *Engine) refundEntries(ctx context.Context, ev *models.Event, entries []models.EventEntry, report *settleReport) {
	treasury, err := e.wallets.Resolve(ctx, ev.CommunityID)
	if err != nil {
		log.Warnf("Wallet reconciliation failed for community %s: %v", ev.CommunityID, err)
	}
	if !treasury.CanSign() {
		report.warning = "treasury wallet not configured; entry fees were not refunded"
		return
	}

	price := 1.0
	if ev.Currency != NativeCurrency {
		p, err := e.oracle.NativeUnitPrice(ctx, ev.Currency)
		if err != nil || p <= 0 {
			log.Warnf("Price lookup failed for %s: %v", ev.Currency, err)
			report.warning = "price lookup unavailable; refunds skipped"
			return
		}
		price = p
	}

	for _, entry := range entries {
		if entry.PaymentStatus != models.PaymentStatusCommitted || entry.Amount <= 0 {
			continue
		}

		addr := e.payoutAddress(ctx, entry)
		if addr == "" {
			e.recordRefund(ctx, entry, models.PaymentStatusRefundFailed, "", "no wallet connected", report)
			continue
		}

		amount := entry.Amount / price
		res := e.rail.Send(ctx, treasury.Signer, addr, amount)
		if !res.Success {
			reason := "transfer failed"
			if res.Err != nil {
				reason = res.Err.Error()
			}
			e.recordRefund(ctx, entry, models.PaymentStatusRefundFailed, "", reason, report)
			continue
		}

		if err := e.store.AppendTransaction(ctx, &models.LedgerTransaction{
			CommunityID: ev.CommunityID,
			EventID:     ev.ID,
			FromAddress: treasury.Address,
			ToAddress:   addr,
			Amount:      amount,
			Signature:   res.Signature,
		}); err != nil {
			log.Errorf("Failed to append ledger row for entry %d: %v", entry.ID, err)
		}
		e.recordRefund(ctx, entry, models.PaymentStatusRefunded, res.Signature, "", report)
	}
}

// failBatch marks every winner failed with a shared reason, e.g. when the
// batch as a whole cannot be paid.
func (e *Engine) failBatch(ctx context.Context, winners []models.EventEntry, reason string, report *settleReport) {
	for _, winner := range winners {
		e.recordPayout(ctx, winner, models.PaymentStatusPayoutFailed, "", reason, report)
	}
}

func (e *Engine) recordPayout(ctx context.Context, entry models.EventEntry, status, signature, reason string, report *settleReport) {
	if err := e.store.UpdateEntryPayment(ctx, entry.ID, status, signature, reason); err != nil {
		log.Errorf("Failed to record payout state for entry %d: %v", entry.ID, err)
	}
	result := "ok"
	if status != models.PaymentStatusPaidOut {
		result = "failed"
	}
	metrics.PayoutsTotal.WithLabelValues(result).Inc()
	report.addOutcome(entry.UserID, status, reason)
}

func (e *Engine) recordRefund(ctx context.Context, entry models.EventEntry, status, signature, reason string, report *settleReport) {
	if err := e.store.UpdateEntryPayment(ctx, entry.ID, status, signature, reason); err != nil {
		log.Errorf("Failed to record refund state for entry %d: %v", entry.ID, err)
	}
	result := "ok"
	if status != models.PaymentStatusRefunded {
		result = "failed"
	}
	metrics.RefundsTotal.WithLabelValues(result).Inc()
	report.addOutcome(entry.UserID, status, reason)
}

// payoutAddress prefers the user's currently registered address over the one
// captured at entry time.
func (e *Engine) payoutAddress(ctx context.Context, entry models.EventEntry) string {
	addr, err := e.store.UserAddress(ctx, entry.UserID)
	if err != nil {
		log.Warnf("Failed to look up wallet for user %s: %v", entry.UserID, err)
	}
	if addr != "" {
		return addr
	}
	return entry.PayoutAddress
}

func (e *Engine) notify(ctx context.Context, ev *models.Event, report *settleReport) {
	if err := e.notifier.Send(ctx, ev.ChannelID, report.message()); err != nil {
		log.Errorf("Failed to announce settlement of event %d: %v", ev.ID, err)
	}
}

func (e *Engine) publishNotice(ev *models.Event, action, status string) {
	notice := SettlementNotice{
		EventID:     ev.ID,
		Action:      action,
		Status:      status,
		CommunityID: ev.CommunityID,
	}
	if err := e.notices.Publish(notice); err != nil {
		log.Warnf("Failed to publish settlement notice for event %d: %v", ev.ID, err)
	}
}

// SweepDeadlines resolves every active event whose deadline has passed.
// Per-event failures never stop the sweep.
func (e *Engine) SweepDeadlines(ctx context.Context) error {
	ids, err := e.store.ListExpiredActive(ctx, e.now())
	if err != nil {
		return fmt.Errorf("failed to list expired events: %w", err)
	}
	for _, id := range ids {
		e.Resolve(ctx, id, ReasonDeadline)
	}
	return nil
}
