package logic

import (
	"context"
	"time"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/repository"
)

// CampaignView 活动详情
type CampaignView struct {
	ID                uint64          `json:"id"`
	Owner             string          `json:"owner"`
	Platform          string          `json:"platform"`
	Custody           string          `json:"custody"`
	SoftCap           uint64          `json:"soft_cap"`
	HardCap           uint64          `json:"hard_cap"`
	CurrentFunding    uint64          `json:"current_funding"`
	Deadline          time.Time       `json:"deadline"`
	Status            campaign.Status `json:"status"`
	FinalRefundIssued bool            `json:"final_refund_issued"`
	Policy            campaign.Policy `json:"policy"`
	Tiers             []campaign.Tier `json:"tiers"`
	CreatedAt         time.Time       `json:"created_at"`
}

func newCampaignView(c *campaign.Campaign) CampaignView {
	tiers := c.Tiers()
	if tiers == nil {
		tiers = []campaign.Tier{}
	}
	return CampaignView{
		ID:                c.ID(),
		Owner:             c.Owner(),
		Platform:          c.Platform(),
		Custody:           c.Custody(),
		SoftCap:           c.SoftCap(),
		HardCap:           c.HardCap(),
		CurrentFunding:    c.CurrentFunding(),
		Deadline:          c.Deadline(),
		Status:            c.Status(),
		FinalRefundIssued: c.FinalRefundIssued(),
		Policy:            c.Policy(),
		Tiers:             tiers,
		CreatedAt:         c.CreatedAt(),
	}
}

// CampaignStats 活动统计
type CampaignStats struct {
	CampaignID           uint64          `json:"campaign_id"`
	Status               campaign.Status `json:"status"`
	CurrentFunding       uint64          `json:"current_funding"`
	SoftCap              uint64          `json:"soft_cap"`
	HardCap              uint64          `json:"hard_cap"`
	CompletionPercentage float64         `json:"completion_percentage"` // 相对软顶
	ContributorCount     int             `json:"contributor_count"`
	ContributionCount    int             `json:"contribution_count"`
	ReimbursedCount      int             `json:"reimbursed_count"`
	RemainingSeconds     int64           `json:"remaining_seconds"`
}

// GetCampaign 获取活动详情
func (l *CampaignLogic) GetCampaign(ctx context.Context, id uint64) (CampaignView, error) {
	var view CampaignView
	err := l.read(ctx, id, func(c *campaign.Campaign) {
		view = newCampaignView(c)
	})
	return view, err
}

// ListCampaigns 活动列表
func (l *CampaignLogic) ListCampaigns(ctx context.Context, filter repository.ListFilter) ([]repository.Summary, int64, error) {
	filter.Owner = campaign.NormalizeIdentity(filter.Owner)
	var (
		items []repository.Summary
		total int64
	)
	err := l.store.Atomic(ctx, func(tx repository.Tx) error {
		var err error
		items, total, err = tx.Campaigns().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListContributions 活动认筹记录，contributor 非空时只返回该认筹者的记录
func (l *CampaignLogic) ListContributions(ctx context.Context, id uint64, contributor string, offset, limit int) ([]campaign.Contribution, int64, error) {
	var records []campaign.Contribution
	err := l.read(ctx, id, func(c *campaign.Campaign) {
		for _, rec := range c.Contributions() {
			if contributor == "" || campaign.SameIdentity(contributor, rec.Contributor) {
				records = append(records, rec)
			}
		}
	})
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(records))
	return paginate(records, offset, limit), total, nil
}

// ListEvents 活动事件，按写入顺序
func (l *CampaignLogic) ListEvents(ctx context.Context, id uint64, offset, limit int) ([]repository.EventRecord, int64, error) {
	var (
		events []repository.EventRecord
		total  int64
	)
	err := l.store.Atomic(ctx, func(tx repository.Tx) error {
		if _, err := tx.Campaigns().Get(ctx, id); err != nil {
			return err
		}
		var err error
		events, total, err = tx.Events().List(ctx, id, offset, limit)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// GetStats 获取活动统计信息
func (l *CampaignLogic) GetStats(ctx context.Context, id uint64) (CampaignStats, error) {
	var stats CampaignStats
	now := l.nowFn()
	err := l.read(ctx, id, func(c *campaign.Campaign) {
		records := c.Contributions()
		stats = CampaignStats{
			CampaignID:        c.ID(),
			Status:            c.Status(),
			CurrentFunding:    c.CurrentFunding(),
			SoftCap:           c.SoftCap(),
			HardCap:           c.HardCap(),
			ContributorCount:  c.Contributors(),
			ContributionCount: len(records),
		}
		for _, rec := range records {
			if rec.Reimbursed {
				stats.ReimbursedCount++
			}
		}

		// 计算完成百分比
		if c.SoftCap() > 0 {
			stats.CompletionPercentage = float64(c.CurrentFunding()) / float64(c.SoftCap()) * 100
		}

		// 计算剩余时间
		if now.Before(c.Deadline()) {
			stats.RemainingSeconds = int64(c.Deadline().Sub(now) / time.Second)
		}
	})
	return stats, err
}

func (l *CampaignLogic) read(ctx context.Context, id uint64, fn func(c *campaign.Campaign)) error {
	return l.store.Atomic(ctx, func(tx repository.Tx) error {
		c, err := tx.Campaigns().Get(ctx, id)
		if err != nil {
			return err
		}
		fn(c)
		return nil
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
