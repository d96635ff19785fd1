package handler

import (
	"time"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/logic"
	"github.com/blues/crowdfund/internal/rail"
	"github.com/blues/crowdfund/internal/repository"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// 活动相关请求模型

// InitCampaignRequest 创建活动请求
type InitCampaignRequest struct {
	ID                uint64    `json:"id" binding:"required"`
	Owner             string    `json:"owner"`
	Platform          string    `json:"platform" binding:"required"`
	SoftCap           uint64    `json:"soft_cap"`
	HardCap           uint64    `json:"hard_cap" binding:"required"`
	Deadline          time.Time `json:"deadline" binding:"required"`
	OwnerSplitPercent *uint64   `json:"owner_split_percent"`
}

// Input 转换为 logic 层参数
func (r InitCampaignRequest) Input() logic.InitCampaignInput {
	return logic.InitCampaignInput{
		ID:                r.ID,
		Owner:             r.Owner,
		Platform:          r.Platform,
		SoftCap:           r.SoftCap,
		HardCap:           r.HardCap,
		Deadline:          r.Deadline,
		OwnerSplitPercent: r.OwnerSplitPercent,
	}
}

// AddTierRequest 添加档位请求
type AddTierRequest struct {
	TierID uint64 `json:"tier_id"`
	Amount uint64 `json:"amount"`
}

// ContributeRequest 认筹请求
type ContributeRequest struct {
	TierID uint64 `json:"tier_id"`
	Amount uint64 `json:"amount"`
}

// DepositRequest 充值请求
type DepositRequest struct {
	Amount uint64 `json:"amount"`
}

// 活动相关响应模型

// CampaignResponse 活动响应
type CampaignResponse struct {
	Campaign logic.CampaignView `json:"campaign"`
}

// GetCampaignsResponse 活动列表响应
type GetCampaignsResponse struct {
	Campaigns  []repository.Summary `json:"campaigns"`
	Pagination Pagination           `json:"pagination"`
}

// GetContributionsResponse 认筹记录响应
type GetContributionsResponse struct {
	Contributions []campaign.Contribution `json:"contributions"`
	Pagination    Pagination              `json:"pagination"`
}

// GetEventsResponse 活动事件响应
type GetEventsResponse struct {
	Events     []repository.EventRecord `json:"events"`
	Pagination Pagination               `json:"pagination"`
}

// GetStatsResponse 活动统计响应
type GetStatsResponse struct {
	Stats logic.CampaignStats `json:"stats"`
}

// 账户相关响应模型

// AccountResponse 账户响应
type AccountResponse struct {
	Address    string        `json:"address"`
	Balance    uint64        `json:"balance"`
	Records    []rail.Record `json:"records"`
	Pagination Pagination    `json:"pagination"`
}

// DepositResponse 充值响应
type DepositResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	return Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}
