package crawler

import (
	"fmt"
	"time"

	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/services/cache"
)

// Cooldown parks competitors that blocked us so later runs skip them
// until the block expires.
type Cooldown struct {
	CacheSvc  cache.CacheService
	BlockTime time.Duration
}

// NewCooldown creates a cooldown guard; a nil cache disables it.
func NewCooldown(cacheSvc cache.CacheService, blockTime time.Duration) *Cooldown {
	if cacheSvc == nil || blockTime <= 0 {
		return nil
	}
	return &Cooldown{CacheSvc: cacheSvc, BlockTime: blockTime}
}

func cooldownKey(competitorID int64) string {
	return fmt.Sprintf("pricewatch:cooldown:%d", competitorID)
}

// Blocked reports whether the competitor is still cooling down
func (c *Cooldown) Blocked(competitorID int64) bool {
	if c == nil {
		return false
	}
	_, err := c.CacheSvc.Get(cooldownKey(competitorID))
	return err == nil
}

// Block parks the competitor for BlockTime
func (c *Cooldown) Block(competitorID int64) {
	if c == nil {
		return
	}
	value := []byte(fmt.Sprintf("%d", c.BlockTime/time.Second))
	if err := c.CacheSvc.Set(cooldownKey(competitorID), value, c.BlockTime); err != nil {
		logger.ForCache().Warn().Err(err).Int64("competitor_id", competitorID).Msg("Failed to store cooldown")
	}
}
