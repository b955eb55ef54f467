package billing

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/haulbound/billing/app/models"
	"github.com/haulbound/billing/internal/pkg/cache"
)

const (
	activePricesCacheKey = "billing:active_prices"
	activePricesCacheTTL = 1 * time.Hour
)

// PriceListCache caches the active price list in front of the database.
// Misses and backend errors both report ok=false; the cache is strictly an
// optimization and never a source of failure.
type PriceListCache interface {
	Get() ([]models.PriceCatalog, bool)
	Set(prices []models.PriceCatalog)
	Invalidate()
}

type redisPriceCache struct{}

// NewRedisPriceCache returns a price cache backed by the shared Redis client.
func NewRedisPriceCache() PriceListCache {
	return &redisPriceCache{}
}

func (c *redisPriceCache) Get() ([]models.PriceCatalog, bool) {
	raw, err := cache.Get(activePricesCacheKey)
	if err != nil {
		return nil, false
	}
	var prices []models.PriceCatalog
	if err := json.Unmarshal([]byte(raw), &prices); err != nil {
		log.Warnf("price cache entry unreadable, dropping it: %v", err)
		c.Invalidate()
		return nil, false
	}
	return prices, true
}

func (c *redisPriceCache) Set(prices []models.PriceCatalog) {
	raw, err := json.Marshal(prices)
	if err != nil {
		return
	}
	if err := cache.Set(activePricesCacheKey, raw, activePricesCacheTTL); err != nil {
		log.Warnf("error caching price list: %v", err)
	}
}

func (c *redisPriceCache) Invalidate() {
	if err := cache.Delete(activePricesCacheKey); err != nil {
		log.Warnf("error invalidating price cache: %v", err)
	}
}
