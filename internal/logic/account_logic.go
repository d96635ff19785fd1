package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/logger"
	"github.com/blues/crowdfund/internal/rail"
	"github.com/blues/crowdfund/internal/repository"
)

// ErrDepositDisabled 充值接口未开放
var ErrDepositDisabled = errors.New("deposits are disabled")

// AccountLogic 资金账户业务逻辑
type AccountLogic struct {
	store        repository.Store
	allowDeposit bool
}

// NewAccountLogic 创建账户业务逻辑
func NewAccountLogic(store repository.Store, allowDeposit bool) *AccountLogic {
	return &AccountLogic{store: store, allowDeposit: allowDeposit}
}

// AccountView 账户余额与流水
type AccountView struct {
	Address string        `json:"address"`
	Balance uint64        `json:"balance"`
	Records []rail.Record `json:"records"`
	Total   int64         `json:"total"`
}

// GetAccount 获取账户余额与分页流水
func (a *AccountLogic) GetAccount(ctx context.Context, address string, offset, limit int) (AccountView, error) {
	address = campaign.NormalizeIdentity(address)
	view := AccountView{Address: address}
	err := a.store.Atomic(ctx, func(tx repository.Tx) error {
		balance, err := tx.Ledger().Balance(ctx, address)
		if err != nil {
			return err
		}
		records, total, err := tx.Ledger().History(ctx, address, offset, limit)
		if err != nil {
			return err
		}
		view.Balance = balance
		view.Records = records
		view.Total = total
		return nil
	})
	if err != nil {
		return AccountView{}, err
	}
	if view.Records == nil {
		view.Records = []rail.Record{}
	}
	return view, nil
}

// Deposit 向账户充值，托管账户只能通过认筹入账
func (a *AccountLogic) Deposit(ctx context.Context, address string, amount uint64) (uint64, error) {
	if !a.allowDeposit {
		return 0, ErrDepositDisabled
	}
	address = campaign.NormalizeIdentity(address)
	if address == "" || strings.HasPrefix(address, "custody:") {
		return 0, fmt.Errorf("%w: cannot deposit to %q", campaign.ErrInvalidArgument, address)
	}

	var balance uint64
	err := a.store.Atomic(ctx, func(tx repository.Tx) error {
		if err := tx.Ledger().Deposit(ctx, address, amount); err != nil {
			return err
		}
		var err error
		balance, err = tx.Ledger().Balance(ctx, address)
		return err
	})
	if err != nil {
		logger.Warn("deposit of %d to %s failed: %v", amount, address, err)
		return 0, err
	}
	logger.Info("deposited %d to %s, balance %d", amount, address, balance)
	return balance, nil
}
