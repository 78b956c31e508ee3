package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	nativeCurrency = "sol"
	cacheTTL       = 60 * time.Second

	// fallbackMaxAge bounds how old an in-memory price may be and still
	// stand in for a failed fetch. Past it the lookup fails closed.
	fallbackMaxAge = 5 * time.Minute
)

// priceCacheEntry is the in-process fallback used when redis is down.
type priceCacheEntry struct {
	price     float64
	updatedAt time.Time
}

// Client quotes the native unit against fiat and token currencies. Quotes are
// cached in redis with a short TTL, with an in-memory fallback. A failed
// lookup with no usable cache is an error, never a zero price.
type Client struct {
	baseURL string
	http    *http.Client
	rdb     *redis.Client

	mu    sync.RWMutex
	cache map[string]priceCacheEntry
}

func NewClient(baseURL string, rdb *redis.Client) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		rdb:     rdb,
		cache:   make(map[string]priceCacheEntry),
	}
}

// NativeUnitPrice returns how many units of currency one native unit is
// worth.
func (c *Client) NativeUnitPrice(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToLower(currency)
	if currency == nativeCurrency {
		return 1.0, nil
	}

	if price, ok := c.fromRedis(ctx, currency); ok {
		return price, nil
	}

	price, err := c.fetch(ctx, currency)
	if err != nil {
		// Fall back to the last known price before giving up, but never to
		// one old enough to misprice a transfer.
		c.mu.RLock()
		entry, ok := c.cache[currency]
		c.mu.RUnlock()
		if ok && time.Since(entry.updatedAt) <= fallbackMaxAge {
			log.Warnf("Price fetch for %s failed, using cached price: %v", currency, err)
			return entry.price, nil
		}
		return 0, fmt.Errorf("failed to quote %s and no recent cached price: %w", currency, err)
	}

	c.store(ctx, currency, price)
	return price, nil
}

func (c *Client) fetch(ctx context.Context, currency string) (float64, error) {
	url := fmt.Sprintf("%s/simple/price?ids=solana&vs_currencies=%s", c.baseURL, currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode JSON response: %w", err)
	}

	price, ok := body["solana"][currency]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no quote for currency %s", currency)
	}
	return price, nil
}

func (c *Client) fromRedis(ctx context.Context, currency string) (float64, bool) {
	if c.rdb == nil {
		return 0, false
	}
	val, err := c.rdb.Get(ctx, cacheKey(currency)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warnf("Redis price lookup failed for %s: %v", currency, err)
		}
		return 0, false
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

func (c *Client) store(ctx context.Context, currency string, price float64) {
	c.mu.Lock()
	c.cache[currency] = priceCacheEntry{price: price, updatedAt: time.Now()}
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(currency), strconv.FormatFloat(price, 'f', -1, 64), cacheTTL).Err(); err != nil {
		log.Warnf("Failed to cache price for %s in redis: %v", currency, err)
	}
}

func cacheKey(currency string) string {
	return "price:sol:" + currency
}
