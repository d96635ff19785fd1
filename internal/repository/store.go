// Package repository 活动与事件的持久化，以及把活动状态、事件和账本变动绑定为一个原子单元的 Store。
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/rail"
)

// ErrConflict 并发修改同一活动
var ErrConflict = errors.New("campaign modified concurrently")

// Store 原子操作入口：fn 返回错误时活动、事件与账本变动全部回滚
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx 一次原子操作内可用的仓储
type Tx interface {
	Campaigns() CampaignRepository
	Events() EventRepository
	Ledger() rail.Ledger
}

// CampaignRepository 活动仓储
type CampaignRepository interface {
	// Create 保存新活动，ID 已存在时返回 campaign.ErrAlreadyExists
	Create(ctx context.Context, c *campaign.Campaign) error
	// Get 加载活动并在事务内锁定，不存在时返回 campaign.ErrNotFound
	Get(ctx context.Context, id uint64) (*campaign.Campaign, error)
	// Update 持久化 prev 到 next 之间的差异
	Update(ctx context.Context, prev, next *campaign.Campaign) error
	List(ctx context.Context, filter ListFilter) ([]Summary, int64, error)
}

// EventRepository 活动事件仓储
type EventRepository interface {
	Append(ctx context.Context, events []campaign.Event) error
	List(ctx context.Context, campaignID uint64, offset, limit int) ([]EventRecord, int64, error)
}

// ListFilter 活动列表过滤条件
type ListFilter struct {
	Statuses       []campaign.Status
	Owner          string
	DeadlineBefore *time.Time // 截止时间不晚于该时刻
	Offset         int
	Limit          int
}

// Summary 活动概要，不含档位与认筹记录
type Summary struct {
	ID                uint64          `json:"id"`
	Owner             string          `json:"owner"`
	Platform          string          `json:"platform"`
	SoftCap           uint64          `json:"soft_cap"`
	HardCap           uint64          `json:"hard_cap"`
	CurrentFunding    uint64          `json:"current_funding"`
	Deadline          time.Time       `json:"deadline"`
	Status            campaign.Status `json:"status"`
	FinalRefundIssued bool            `json:"final_refund_issued"`
	CreatedAt         time.Time       `json:"created_at"`
}

// EventRecord 已持久化的事件
type EventRecord struct {
	ID int64 `json:"id"`
	campaign.Event
}

func summarize(s campaign.Snapshot) Summary {
	return Summary{
		ID:                s.ID,
		Owner:             s.Owner,
		Platform:          s.Platform,
		SoftCap:           s.SoftCap,
		HardCap:           s.HardCap,
		CurrentFunding:    s.CurrentFunding,
		Deadline:          s.Deadline,
		Status:            s.Status,
		FinalRefundIssued: s.FinalRefundIssued,
		CreatedAt:         s.CreatedAt,
	}
}

func (f ListFilter) match(s Summary) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if st == s.Status {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Owner != "" && !strings.EqualFold(f.Owner, s.Owner) {
		return false
	}
	if f.DeadlineBefore != nil && s.Deadline.After(*f.DeadlineBefore) {
		return false
	}
	return true
}
