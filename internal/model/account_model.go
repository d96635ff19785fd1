package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountModel 账本账户
type AccountModel struct {
	Address   string    `json:"address" gorm:"primaryKey;size:128"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Balance decimal.Decimal `json:"balance" gorm:"type:decimal(20,0);not null"`
}

// TableName 自定义表名
func (AccountModel) TableName() string {
	return "account"
}
