package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"eventcontrol/internal/models"
	"eventcontrol/internal/settlement"
	solanapkg "eventcontrol/pkg/solana"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reconcileTimeout bounds one backend lookup. Past it the local cache is
// authoritative.
const reconcileTimeout = 5 * time.Second

// walletResponse is the community backend's wallet envelope. Wallet is null
// when the community explicitly has no treasury.
type walletResponse struct {
	Wallet *struct {
		Address string `json:"address"`
	} `json:"wallet"`
}

// treasuryCache is the local copy of the backend's treasury assignment.
type treasuryCache interface {
	// get returns "" when no wallet is cached.
	get(ctx context.Context, communityID string) (string, error)
	put(ctx context.Context, communityID, address string) error
	remove(ctx context.Context, communityID string) error
}

type gormTreasuryCache struct {
	db *gorm.DB
}

func (c gormTreasuryCache) get(ctx context.Context, communityID string) (string, error) {
	var wallet models.TreasuryWallet
	err := c.db.WithContext(ctx).Where("community_id = ?", communityID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return wallet.Address, nil
}

func (c gormTreasuryCache) put(ctx context.Context, communityID, address string) error {
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"address"}),
		}).
		Create(&models.TreasuryWallet{CommunityID: communityID, Address: address}).Error
}

func (c gormTreasuryCache) remove(ctx context.Context, communityID string) error {
	return c.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Delete(&models.TreasuryWallet{}).Error
}

// Service resolves the authoritative treasury for a community. The remote
// backend wins when reachable; on timeout or error the local cache stands in,
// possibly stale.
type Service struct {
	cache    treasuryCache
	keystore *solanapkg.Keystore
	baseURL  string
	client   *http.Client
	push     *Pusher
}

func NewService(db *gorm.DB, keystore *solanapkg.Keystore, baseURL string, push *Pusher) *Service {
	return &Service{
		cache:    gormTreasuryCache{db: db},
		keystore: keystore,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: reconcileTimeout},
		push:     push,
	}
}

// Resolve reconciles the community's treasury and returns it with signing
// authority attached when the keystore holds the matching key. Returns
// (nil, nil) when no treasury is known, whether the backend said so
// explicitly or nothing is cached while it is unreachable.
func (s *Service) Resolve(ctx context.Context, communityID string) (*settlement.Treasury, error) {
	cached, err := s.cache.get(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached treasury: %w", err)
	}

	address, authoritative := s.fetchRemote(ctx, communityID)
	switch {
	case authoritative && address == "":
		// Explicitly empty: drop the local cache too.
		if cached != "" {
			if err := s.cache.remove(ctx, communityID); err != nil {
				log.Errorf("Failed to clear cached treasury for community %s: %v", communityID, err)
			}
			s.pushChange(communityID, "")
		}
		return nil, nil
	case authoritative:
		// Only a changed address touches the cache and the push stream.
		if cached != address {
			if err := s.cache.put(ctx, communityID, address); err != nil {
				log.Errorf("Failed to cache treasury for community %s: %v", communityID, err)
			} else {
				s.pushChange(communityID, address)
			}
		}
	default:
		if cached == "" {
			log.Warnf("Treasury backend unreachable and no cached wallet for community %s", communityID)
			return nil, nil
		}
		log.Warnf("Treasury backend unreachable, using cached wallet for community %s", communityID)
		address = cached
	}

	treasury := &settlement.Treasury{CommunityID: communityID, Address: address}
	if account, err := s.keystore.Load(communityID); err == nil {
		if account.PublicKey.ToBase58() == address {
			treasury.Signer = &Keypair{account: account}
		} else {
			log.Warnf("Keystore key for community %s does not match treasury address %s, watch-only", communityID, address)
		}
	}
	return treasury, nil
}

// fetchRemote asks the backend for the community's wallet. The second return
// reports whether the answer is authoritative.
func (s *Service) fetchRemote(ctx context.Context, communityID string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/communities/%s/wallet", s.baseURL, communityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Errorf("Failed to build wallet request for community %s: %v", communityID, err)
		return "", false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warnf("Wallet lookup failed for community %s: %v", communityID, err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("Wallet lookup for community %s returned status %d", communityID, resp.StatusCode)
		return "", false
	}

	var body walletResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Warnf("Failed to decode wallet response for community %s: %v", communityID, err)
		return "", false
	}
	if body.Wallet == nil {
		return "", true
	}
	return body.Wallet.Address, true
}

func (s *Service) pushChange(communityID, address string) {
	if s.push == nil {
		return
	}
	s.push.WalletChanged(communityID, address)
}
