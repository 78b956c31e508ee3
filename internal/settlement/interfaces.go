package settlement

import (
	"context"
	"time"

	"eventcontrol/internal/models"
)

// Resolve trigger reasons
const (
	ReasonDeadline  = "deadline"
	ReasonManual    = "manual"
	ReasonThreshold = "threshold-met"
)

// NativeCurrency is the payment rail's base unit; the only unit actually
// transferred. Event currencies other than this are converted at payout time.
const NativeCurrency = "sol"

// Store is the engine's view of the event store. Row-level atomicity is
// assumed; multi-row consistency is the engine's responsibility.
type Store interface {
	// GetEvent returns (nil, nil) when the event does not exist.
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	// MarkEnded flips status active -> ended with a single conditional
	// update and reports whether this caller won the transition.
	MarkEnded(ctx context.Context, id uint) (bool, error)
	// FinishEvent moves an ended event to a terminal status. No-op if the
	// event is already terminal.
	FinishEvent(ctx context.Context, id uint, status string, winningOutcome *int64) error
	ListEntries(ctx context.Context, eventID uint) ([]models.EventEntry, error)
	UpdateEntryPayment(ctx context.Context, entryID uint, status, signature, reason string) error
	// UserAddress returns the user's currently registered payout address,
	// or "" when none is registered.
	UserAddress(ctx context.Context, userID string) (string, error)
	AppendTransaction(ctx context.Context, tx *models.LedgerTransaction) error
	AdjustBudget(ctx context.Context, communityID string, delta float64) error
	ListExpiredActive(ctx context.Context, now time.Time) ([]uint, error)
	ListStuckEnded(ctx context.Context, olderThan time.Time) ([]models.Event, error)
}

// Signer identifies a treasury credential able to authorize transfers.
type Signer interface {
	Address() string
}

// Treasury is a resolved treasury credential. Signer is nil for watch-only
// records (address known, no signing authority on this process).
type Treasury struct {
	CommunityID string
	Address     string
	Signer      Signer
}

// CanSign reports whether the treasury can authorize transfers.
func (t *Treasury) CanSign() bool {
	return t != nil && t.Signer != nil
}

// WalletResolver reconciles which treasury credential is authoritative for a
// community. Returns (nil, nil) when the community has no treasury.
type WalletResolver interface {
	Resolve(ctx context.Context, communityID string) (*Treasury, error)
}

// TransferResult is the outcome of one submitted transfer.
type TransferResult struct {
	Success   bool
	Signature string
	Err       error
}

// PaymentRail signs and submits a single transfer. It must be safe to call
// without engine-side retry; any retry policy lives with the caller.
type PaymentRail interface {
	Send(ctx context.Context, signer Signer, recipient string, amount float64) TransferResult
	Balance(ctx context.Context, address string) (float64, error)
}

// PriceOracle returns the price of one native unit in the given currency.
// An error means the price is unavailable, which is distinct from zero.
type PriceOracle interface {
	NativeUnitPrice(ctx context.Context, currency string) (float64, error)
}

// Notifier posts a community-facing message. Errors are logged, never fatal.
type Notifier interface {
	Send(ctx context.Context, channelID, message string) error
}

// SettlementNotice is the fire-and-forget cross-process notice emitted on
// every terminal transition.
type SettlementNotice struct {
	EventID     uint   `json:"event_id"`
	Action      string `json:"action"`
	Status      string `json:"status"`
	CommunityID string `json:"community_id"`
}

// NoticePublisher emits settlement notices. Best effort: no delivery
// guarantee, no retry.
type NoticePublisher interface {
	Publish(notice SettlementNotice) error
}

// Rand is the engine's randomness source, injected for deterministic draws
// in tests.
type Rand interface {
	Intn(n int) int
}
