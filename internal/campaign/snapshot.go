package campaign

import (
	"fmt"
	"time"
)

// Snapshot 活动的可持久化形态
type Snapshot struct {
	ID                uint64         `json:"id"`
	Owner             string         `json:"owner"`
	Platform          string         `json:"platform"`
	SoftCap           uint64         `json:"soft_cap"`
	HardCap           uint64         `json:"hard_cap"`
	Deadline          time.Time      `json:"deadline"`
	CurrentFunding    uint64         `json:"current_funding"`
	Status            Status         `json:"status"`
	FinalRefundIssued bool           `json:"final_refund_issued"`
	Policy            Policy         `json:"policy"`
	Tiers             []Tier         `json:"tiers"`
	Contributions     []Contribution `json:"contributions"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Snapshot 导出当前状态
func (c *Campaign) Snapshot() Snapshot {
	return Snapshot{
		ID:                c.id,
		Owner:             c.owner,
		Platform:          c.platform,
		SoftCap:           c.softCap,
		HardCap:           c.hardCap,
		Deadline:          c.deadline,
		CurrentFunding:    c.currentFunding,
		Status:            c.status,
		FinalRefundIssued: c.finalRefundIssued,
		Policy:            c.policy,
		Tiers:             c.Tiers(),
		Contributions:     c.Contributions(),
		CreatedAt:         c.createdAt,
	}
}

// Restore 从快照重建活动，并校验资金不变量
func Restore(s Snapshot) (*Campaign, error) {
	if _, err := ParseStatus(string(s.Status)); err != nil {
		return nil, err
	}
	if len(s.Tiers) > MaxTiers {
		return nil, fmt.Errorf("%w: %d tiers", ErrCapacityExceeded, len(s.Tiers))
	}
	c := &Campaign{
		id:                s.ID,
		owner:             s.Owner,
		platform:          s.Platform,
		softCap:           s.SoftCap,
		hardCap:           s.HardCap,
		deadline:          s.Deadline,
		currentFunding:    s.CurrentFunding,
		status:            s.Status,
		finalRefundIssued: s.FinalRefundIssued,
		policy:            s.Policy,
		tiers:             append([]Tier(nil), s.Tiers...),
		contributions:     append([]Contribution(nil), s.Contributions...),
		createdAt:         s.CreatedAt,
	}
	if err := c.Audit(); err != nil {
		return nil, err
	}
	return c, nil
}
