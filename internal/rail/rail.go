// Package rail 资金通道：活动托管账户与参与方账户之间的价值转移。
package rail

import (
	"context"
	"errors"
	"time"

	"github.com/blues/crowdfund/internal/campaign"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// KindDeposit 外部充值，不属于任何活动
const KindDeposit = "deposit"

// Rail 活动结算所需的最小资金通道
type Rail interface {
	// Transfer 从 From 账户向 To 账户转移 Amount
	Transfer(ctx context.Context, t campaign.Transfer) error
	// Exists 账户是否可接收资金
	Exists(ctx context.Context, account string) (bool, error)
}

// Ledger 带账户管理的资金通道
type Ledger interface {
	Rail
	// Open 开户，已存在时不做任何事
	Open(ctx context.Context, account string) error
	// Deposit 充值，账户不存在时自动开户
	Deposit(ctx context.Context, account string, amount uint64) error
	Balance(ctx context.Context, account string) (uint64, error)
	History(ctx context.Context, account string, offset, limit int) ([]Record, int64, error)
}

// Record 流水记录
type Record struct {
	ID         int64     `json:"id"`
	CampaignID uint64    `json:"campaign_id,omitempty"`
	Kind       string    `json:"kind"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	Amount     uint64    `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// Execute 按顺序执行一组转账，遇错即停
func Execute(ctx context.Context, r Rail, transfers []campaign.Transfer) error {
	for _, t := range transfers {
		if err := r.Transfer(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func credit(balance, amount uint64) (uint64, error) {
	if balance > ^uint64(0)-amount {
		return 0, ErrBalanceOverflow
	}
	return balance + amount, nil
}
