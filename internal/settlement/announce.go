package settlement

import (
	"fmt"
	"strings"

	"eventcontrol/internal/models"
)

// settleReport accumulates per-entry outcomes during a settlement run and
// renders the community-facing announcement at the end.
type settleReport struct {
	ev             *models.Event
	payout         Payout
	winningOutcome int64
	cancelled      bool
	entryCount     int
	warning        string
	outcomes       []entryOutcome
}

type entryOutcome struct {
	userID string
	status string
	reason string
}

func newReport(ev *models.Event) *settleReport {
	return &settleReport{ev: ev}
}

func (r *settleReport) addOutcome(userID, status, reason string) {
	r.outcomes = append(r.outcomes, entryOutcome{userID: userID, status: status, reason: reason})
}

// message renders the full announcement. Amounts stay in the event's currency
// even when the transfer itself went out in the native unit.
func (r *settleReport) message() string {
	var b strings.Builder

	if r.cancelled {
		fmt.Fprintf(&b, "%q was cancelled: only %d of %d required participants joined.\n",
			r.ev.Title, r.entryCount, r.ev.MinParticipants)
		r.writeOutcomes(&b, "Refunds:")
		r.writeWarning(&b)
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "%q has settled. Winning outcome: %s.\n", r.ev.Title, r.outcomeLabel())

	if r.payout.WinnerCount == 0 {
		b.WriteString("No entries matched the winning outcome.")
		if r.ev.CollectsFees() && r.payout.TotalPot > 0 {
			b.WriteString(" The pot stays with the treasury.")
		}
		b.WriteString("\n")
	} else {
		if r.ev.CollectsFees() {
			fmt.Fprintf(&b, "Pot: %.2f %s, house cut %.2f, %.2f to each of %d winner(s).\n",
				r.payout.TotalPot, r.currency(), r.payout.HouseCut, r.payout.PerWinner, r.payout.WinnerCount)
		} else {
			fmt.Fprintf(&b, "Prize: %.2f %s to each of %d winner(s).\n",
				r.payout.PerWinner, r.currency(), r.payout.WinnerCount)
		}
		r.writeOutcomes(&b, "Payouts:")
	}

	r.writeWarning(&b)
	return strings.TrimRight(b.String(), "\n")
}

func (r *settleReport) writeOutcomes(b *strings.Builder, heading string) {
	if len(r.outcomes) == 0 {
		return
	}
	b.WriteString(heading + "\n")
	for _, o := range r.outcomes {
		switch o.status {
		case models.PaymentStatusPaidOut:
			fmt.Fprintf(b, "  %s: paid\n", o.userID)
		case models.PaymentStatusRefunded:
			fmt.Fprintf(b, "  %s: refunded\n", o.userID)
		default:
			fmt.Fprintf(b, "  %s: failed (%s)\n", o.userID, o.reason)
		}
	}
}

func (r *settleReport) writeWarning(b *strings.Builder) {
	if r.warning != "" {
		fmt.Fprintf(b, "Warning: %s\n", r.warning)
	}
}

func (r *settleReport) outcomeLabel() string {
	if r.ev.Kind == models.EventKindWager {
		return fmt.Sprintf("slot %d", r.winningOutcome)
	}
	return fmt.Sprintf("entry #%d", r.winningOutcome)
}

func (r *settleReport) currency() string {
	return strings.ToUpper(r.ev.Currency)
}
