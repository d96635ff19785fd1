package model

import (
	"github.com/shopspring/decimal"
)

// TierModel 认筹档位
type TierModel struct {
	Id int64 `json:"id" gorm:"primaryKey"`

	CampaignId uint64          `json:"campaign_id" gorm:"not null;uniqueIndex:idx_campaign_tier"`
	TierId     uint64          `json:"tier_id" gorm:"not null;uniqueIndex:idx_campaign_tier"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(20,0);not null"`
	Position   int             `json:"position" gorm:"not null"` // 添加顺序
}

// TableName 自定义表名
func (TierModel) TableName() string {
	return "campaign_tier"
}
