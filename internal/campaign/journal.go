package campaign

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Contribution 认筹记录，只追加，仅 Reimbursed 可变
type Contribution struct {
	ID          string    `json:"id"`
	Seq         int       `json:"seq"`
	TierID      uint64    `json:"tier_id"`
	Amount      uint64    `json:"amount"`
	Contributor string    `json:"contributor"`
	Reimbursed  bool      `json:"reimbursed"`
	CreatedAt   time.Time `json:"created_at"`
}

// Contribute 按档位认筹。前置条件按固定顺序检查，保证错误可预期。
func (c *Campaign) Contribute(contributor string, tierID, amount uint64, now time.Time) (Contribution, Effect, error) {
	var eff Effect
	if err := c.ensureMutable(); err != nil {
		return Contribution{}, eff, err
	}
	if contributor == "" {
		return Contribution{}, eff, fmt.Errorf("%w: contributor is required", ErrInvalidArgument)
	}
	if c.status == StatusSoldOut {
		return Contribution{}, eff, ErrHardCapReached
	}
	if !acceptsContributions(c.status, c.policy) {
		return Contribution{}, eff, fmt.Errorf("%w: contributions require live, got %s", ErrInvalidState, c.status)
	}
	if !now.Before(c.deadline) {
		return Contribution{}, eff, ErrDeadlinePassed
	}
	if c.currentFunding >= c.hardCap {
		return Contribution{}, eff, ErrHardCapReached
	}
	tier, ok := c.Tier(tierID)
	if !ok {
		return Contribution{}, eff, fmt.Errorf("%w: %d", ErrTierNotFound, tierID)
	}
	if amount != tier.Amount {
		return Contribution{}, eff, fmt.Errorf("%w: tier %d costs %d, got %d", ErrAmountMismatch, tierID, tier.Amount, amount)
	}
	if !c.fits(amount) {
		return Contribution{}, eff, fmt.Errorf("%w: %d remaining, pledge %d", ErrHardCapReached, c.hardCap-c.currentFunding, amount)
	}

	rec := Contribution{
		ID:          uuid.NewString(),
		Seq:         len(c.contributions),
		TierID:      tierID,
		Amount:      amount,
		Contributor: contributor,
		CreatedAt:   now,
	}
	c.currentFunding += amount
	c.contributions = append(c.contributions, rec)

	eff.transfer(Transfer{
		CampaignID: c.id,
		Kind:       TransferContribution,
		From:       contributor,
		To:         c.Custody(),
		Amount:     amount,
	})
	eff.event(c, EventContributionMade, now, map[string]interface{}{
		"contribution_id": rec.ID,
		"contributor":     contributor,
		"tier_id":         tierID,
		"amount":          amount,
		"current_funding": c.currentFunding,
	})
	c.transition(&eff, now)

	return rec, eff, nil
}

// fits 认筹后是否仍在硬顶之内
func (c *Campaign) fits(amount uint64) bool {
	room := c.hardCap - c.currentFunding
	if c.policy.HardCapInclusive {
		return amount <= room
	}
	return amount < room
}

// Contributions 全部认筹记录（副本）
func (c *Campaign) Contributions() []Contribution {
	return append([]Contribution(nil), c.contributions...)
}

// Outstanding 指定认筹者尚未退款的记录，contributor 为空时返回全部
func (c *Campaign) Outstanding(contributor string) []Contribution {
	var out []Contribution
	for _, rec := range c.contributions {
		if rec.Reimbursed {
			continue
		}
		if contributor != "" && !SameIdentity(contributor, rec.Contributor) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Contributors 去重后的认筹者数量
func (c *Campaign) Contributors() int {
	seen := make(map[string]struct{}, len(c.contributions))
	for _, rec := range c.contributions {
		seen[NormalizeIdentity(rec.Contributor)] = struct{}{}
	}
	return len(seen)
}

// Sum 未退款认筹总额
func (c *Campaign) Sum() uint64 {
	var sum uint64
	for _, rec := range c.contributions {
		if !rec.Reimbursed {
			sum += rec.Amount
		}
	}
	return sum
}
