package settlement

import (
	"eventcontrol/internal/models"
)

// DefaultRakeRate is the house cut taken from pot-funded events.
const DefaultRakeRate = 0.10

// Payout is the computed prize breakdown for one settlement run. All amounts
// are in the event's currency.
type Payout struct {
	TotalPot    float64 `json:"total_pot"`
	HouseCut    float64 `json:"house_cut"`
	WinnerPool  float64 `json:"winner_pool"`
	PerWinner   float64 `json:"per_winner"`
	WinnerCount int     `json:"winner_count"`
}

// ComputePayout derives the prize breakdown for an event.
//
// Pot mode: total pot is the sum of committed stakes, the house keeps
// rakeRate of it, and the remainder splits evenly across winners. With no
// winners the pool stays with the treasury.
// House mode: the organizer-fixed prize splits evenly across winners, no rake.
func ComputePayout(ev *models.Event, entries []models.EventEntry, winnerCount int, rakeRate float64) Payout {
	p := Payout{WinnerCount: winnerCount}

	switch ev.Mode {
	case models.EventModePot:
		for _, entry := range entries {
			if entry.PaymentStatus == models.PaymentStatusCommitted {
				p.TotalPot += entry.Amount
			}
		}
		p.HouseCut = p.TotalPot * rakeRate
		p.WinnerPool = p.TotalPot - p.HouseCut
		if winnerCount > 0 {
			p.PerWinner = p.WinnerPool / float64(winnerCount)
		}
	case models.EventModeHouse:
		if winnerCount > 0 {
			p.PerWinner = ev.PrizeAmount / float64(winnerCount)
		}
	}

	return p
}
