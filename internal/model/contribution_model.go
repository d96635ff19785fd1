package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionModel 认筹记录
type ContributionModel struct {
	Id        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId  uint64          `json:"campaign_id" gorm:"not null;uniqueIndex:idx_campaign_seq"`
	Seq         int             `json:"seq" gorm:"not null;uniqueIndex:idx_campaign_seq"`
	TierId      uint64          `json:"tier_id" gorm:"not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(20,0);not null"`
	Contributor string          `json:"contributor" gorm:"not null;index"`
	Reimbursed  bool            `json:"reimbursed" gorm:"default:false"`
}

// TableName 自定义表名
func (ContributionModel) TableName() string {
	return "contribution"
}
