package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignModel 众筹活动
type CampaignModel struct {
	Id        uint64    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner    string `json:"owner" gorm:"not null;index"`
	Platform string `json:"platform" gorm:"not null"`

	// 资金信息
	SoftCap        decimal.Decimal `json:"soft_cap" gorm:"type:decimal(20,0);not null"`
	HardCap        decimal.Decimal `json:"hard_cap" gorm:"type:decimal(20,0);not null"`
	CurrentFunding decimal.Decimal `json:"current_funding" gorm:"type:decimal(20,0);not null"`

	Deadline time.Time `json:"deadline" gorm:"not null;index"`

	// 状态
	Status            string `json:"status" gorm:"not null;index"`
	FinalRefundIssued bool   `json:"final_refund_issued" gorm:"default:false"`

	// 规则快照
	OwnerSplitPercent uint64 `json:"owner_split_percent" gorm:"not null"`
	HardCapInclusive  bool   `json:"hard_cap_inclusive"`
	ImmediateSuccess  bool   `json:"immediate_success"`
}

// TableName 自定义表名
func (CampaignModel) TableName() string {
	return "campaign"
}
