package settlement

import (
	"eventcontrol/internal/models"
)

// DetermineWinners picks the winning outcome for an event and returns it with
// the winning entries in entry order (order is not payout-significant).
//
// Wager events draw one uniformly random slot in [1, SlotCount]. Contest
// events use the organizer's preselected outcome when set; otherwise the
// plurality outcome wins, with an equal top vote count broken in favor of the
// lowest outcome id.
func DetermineWinners(ev *models.Event, entries []models.EventEntry, rng Rand) (int64, []models.EventEntry) {
	var winning int64

	switch ev.Kind {
	case models.EventKindContest:
		if ev.FavoriteOutcome != nil {
			winning = *ev.FavoriteOutcome
		} else {
			winning = pluralityOutcome(entries)
		}
	default: // wager
		winning = int64(rng.Intn(ev.SlotCount) + 1)
	}

	var winners []models.EventEntry
	for _, entry := range entries {
		if entry.Outcome == winning {
			winners = append(winners, entry)
		}
	}
	return winning, winners
}

// pluralityOutcome returns the most voted outcome; ties go to the lowest id.
func pluralityOutcome(entries []models.EventEntry) int64 {
	tally := make(map[int64]int)
	for _, entry := range entries {
		tally[entry.Outcome]++
	}

	var best int64
	bestCount := -1
	for outcome, count := range tally {
		if count > bestCount || (count == bestCount && outcome < best) {
			best = outcome
			bestCount = count
		}
	}
	return best
}
