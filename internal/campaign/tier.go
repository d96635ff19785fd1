package campaign

import (
	"fmt"
	"time"
)

// MaxTiers 每个活动最多档位数
const MaxTiers = 5

// Tier 固定价格的认筹档位
type Tier struct {
	ID     uint64 `json:"tier_id"`
	Amount uint64 `json:"amount"`
}

// AddTier 添加档位，仅限发起人在草稿状态下操作
func (c *Campaign) AddTier(caller string, tierID, amount uint64, now time.Time) (Effect, error) {
	var eff Effect
	if err := c.ensureMutable(); err != nil {
		return eff, err
	}
	if !c.isOwner(caller) {
		return eff, ErrUnauthorized
	}
	if c.status != StatusDraft {
		return eff, fmt.Errorf("%w: tiers are frozen once %s", ErrInvalidState, c.status)
	}
	if len(c.tiers) >= MaxTiers {
		return eff, ErrCapacityExceeded
	}
	if amount == 0 {
		return eff, fmt.Errorf("%w: tier amount must be positive", ErrInvalidArgument)
	}
	if _, ok := c.Tier(tierID); ok {
		return eff, fmt.Errorf("%w: %d", ErrDuplicateTier, tierID)
	}

	c.tiers = append(c.tiers, Tier{ID: tierID, Amount: amount})
	eff.event(c, EventTierAdded, now, map[string]interface{}{
		"tier_id": tierID,
		"amount":  amount,
	})
	return eff, nil
}

// Tier 按ID查找档位
func (c *Campaign) Tier(tierID uint64) (Tier, bool) {
	for _, t := range c.tiers {
		if t.ID == tierID {
			return t, true
		}
	}
	return Tier{}, false
}

// Tiers 档位列表（副本）
func (c *Campaign) Tiers() []Tier {
	return append([]Tier(nil), c.tiers...)
}
