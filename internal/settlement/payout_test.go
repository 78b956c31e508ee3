package settlement

import (
	"testing"

	"eventcontrol/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputePayoutPotMode(t *testing.T) {
	ev := &models.Event{Mode: models.EventModePot}
	entries := []models.EventEntry{
		{Amount: 10, PaymentStatus: models.PaymentStatusCommitted},
		{Amount: 10, PaymentStatus: models.PaymentStatusCommitted},
		{Amount: 10, PaymentStatus: models.PaymentStatusCommitted},
		{Amount: 10, PaymentStatus: models.PaymentStatusNone}, // never paid in
	}

	p := ComputePayout(ev, entries, 2, DefaultRakeRate)

	assert.InDelta(t, 30, p.TotalPot, 1e-9)
	assert.InDelta(t, 3, p.HouseCut, 1e-9)
	assert.InDelta(t, 27, p.WinnerPool, 1e-9)
	assert.InDelta(t, 13.5, p.PerWinner, 1e-9)
	assert.Equal(t, 2, p.WinnerCount)

	// The split never exceeds the pool.
	assert.LessOrEqual(t, p.PerWinner*float64(p.WinnerCount), p.TotalPot-p.HouseCut+1e-9)
}

func TestComputePayoutPotModeNoWinners(t *testing.T) {
	ev := &models.Event{Mode: models.EventModePot}
	entries := []models.EventEntry{
		{Amount: 10, PaymentStatus: models.PaymentStatusCommitted},
		{Amount: 10, PaymentStatus: models.PaymentStatusCommitted},
	}

	p := ComputePayout(ev, entries, 0, DefaultRakeRate)

	assert.InDelta(t, 20, p.TotalPot, 1e-9)
	assert.InDelta(t, 2, p.HouseCut, 1e-9)
	assert.Zero(t, p.PerWinner)
}

func TestComputePayoutHouseMode(t *testing.T) {
	ev := &models.Event{Mode: models.EventModeHouse, PrizeAmount: 100}
	entries := []models.EventEntry{{}, {}, {}}

	p := ComputePayout(ev, entries, 4, DefaultRakeRate)

	// Fixed prize, no rake, no pot.
	assert.Zero(t, p.TotalPot)
	assert.Zero(t, p.HouseCut)
	assert.InDelta(t, 25, p.PerWinner, 1e-9)

	// Total paid out never exceeds the configured prize.
	assert.LessOrEqual(t, p.PerWinner*float64(p.WinnerCount), ev.PrizeAmount+1e-9)
}

func TestComputePayoutEmptyEvent(t *testing.T) {
	ev := &models.Event{Mode: models.EventModePot}

	p := ComputePayout(ev, nil, 0, DefaultRakeRate)

	assert.Zero(t, p.TotalPot)
	assert.Zero(t, p.HouseCut)
	assert.Zero(t, p.PerWinner)
}
