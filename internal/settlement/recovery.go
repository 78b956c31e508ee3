package settlement

import (
	"context"
	"fmt"
	"time"

	"eventcontrol/internal/models"
	"eventcontrol/pkg/metrics"

	log "github.com/sirupsen/logrus"
)

// StuckGracePeriod is how long an event may sit in 'ended' before the
// recovery sweep considers its settlement run dead.
const StuckGracePeriod = 10 * time.Minute

// RecoverStuck force-terminalizes events stranded in 'ended' by a crashed
// settlement run. It never re-sends money: entries still marked committed are
// flagged failed for manual review, and the event lands on completed when at
// least one payout went out, cancelled otherwise.
func (e *Engine) RecoverStuck(ctx context.Context) error {
	cutoff := e.now().Add(-StuckGracePeriod)
	stuck, err := e.store.ListStuckEnded(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stuck events: %w", err)
	}

	for _, ev := range stuck {
		log.WithField("event_id", ev.ID).Warn("Recovering event stuck in ended state")

		entries, err := e.store.ListEntries(ctx, ev.ID)
		if err != nil {
			log.Errorf("Failed to load entries for stuck event %d: %v", ev.ID, err)
			continue
		}

		anyPaid := false
		for _, entry := range entries {
			switch entry.PaymentStatus {
			case models.PaymentStatusPaidOut:
				anyPaid = true
			case models.PaymentStatusCommitted:
				if err := e.store.UpdateEntryPayment(ctx, entry.ID, models.PaymentStatusPayoutFailed, "", "settlement interrupted"); err != nil {
					log.Errorf("Failed to flag entry %d on stuck event %d: %v", entry.ID, ev.ID, err)
				}
			}
		}

		status := models.EventStatusCancelled
		var winning *int64
		if anyPaid {
			status = models.EventStatusCompleted
			winning = ev.WinningOutcome
		}
		if err := e.store.FinishEvent(ctx, ev.ID, status, winning); err != nil {
			log.Errorf("Failed to terminalize stuck event %d: %v", ev.ID, err)
			continue
		}
		metrics.RecoveriesTotal.Inc()
		e.publishNotice(&ev, "recovered", status)
	}
	return nil
}
