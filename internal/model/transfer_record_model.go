package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRecordModel 资金流转记录，涵盖认筹、结算与退款
type TransferRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	CampaignId  uint64          `json:"campaign_id" gorm:"index"`
	Kind        string          `json:"kind" gorm:"not null"` // contribution, payout, platform_fee, refund, reimburse, deposit
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address" gorm:"not null;index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(20,0);not null"`
}

// TableName 自定义表名
func (TransferRecordModel) TableName() string {
	return "transfer_record"
}
