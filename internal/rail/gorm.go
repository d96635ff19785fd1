package rail

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedger 基于数据库的账本。传入事务句柄时，余额变动与活动状态在同一事务内提交。
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger 创建数据库账本
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// Open 开户
func (l *GormLedger) Open(ctx context.Context, account string) error {
	acc := model.AccountModel{Address: account, Balance: model.Amount(0)}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&acc).Error
	if err != nil {
		return fmt.Errorf("failed to open account %s: %w", account, err)
	}
	return nil
}

// Exists 账户是否存在
func (l *GormLedger) Exists(ctx context.Context, account string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&model.AccountModel{}).
		Where("address = ?", account).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query account %s: %w", account, err)
	}
	return count > 0, nil
}

// Balance 查询余额
func (l *GormLedger) Balance(ctx context.Context, account string) (uint64, error) {
	var acc model.AccountModel
	err := l.db.WithContext(ctx).Where("address = ?", account).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query account %s: %w", account, err)
	}
	return model.Uint64(acc.Balance)
}

// Deposit 充值
func (l *GormLedger) Deposit(ctx context.Context, account string, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := l.Open(ctx, account); err != nil {
		return err
	}
	db := l.db.WithContext(ctx)
	accounts, err := lockAccounts(db, account)
	if err != nil {
		return err
	}
	balance, err := model.Uint64(accounts[account].Balance)
	if err != nil {
		return err
	}
	if balance, err = credit(balance, amount); err != nil {
		return err
	}
	if err := setBalance(db, account, balance); err != nil {
		return err
	}
	return db.Create(&model.TransferRecordModel{
		Kind:      KindDeposit,
		ToAddress: account,
		Amount:    model.Amount(amount),
	}).Error
}

// Transfer 转账，两个账户按地址顺序加行锁
func (l *GormLedger) Transfer(ctx context.Context, t campaign.Transfer) error {
	if t.Amount == 0 {
		return nil
	}
	db := l.db.WithContext(ctx)
	accounts, err := lockAccounts(db, t.From, t.To)
	if err != nil {
		return err
	}

	from, err := model.Uint64(accounts[t.From].Balance)
	if err != nil {
		return err
	}
	if from < t.Amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientBalance, t.From, from, t.Amount)
	}
	if err := setBalance(db, t.From, from-t.Amount); err != nil {
		return err
	}

	// From 与 To 相同时以扣减后的余额为准
	to, err := model.Uint64(accounts[t.To].Balance)
	if err != nil {
		return err
	}
	if t.From == t.To {
		to = from - t.Amount
	}
	if to, err = credit(to, t.Amount); err != nil {
		return err
	}
	if err := setBalance(db, t.To, to); err != nil {
		return err
	}

	return db.Create(&model.TransferRecordModel{
		CampaignId:  t.CampaignID,
		Kind:        string(t.Kind),
		FromAddress: t.From,
		ToAddress:   t.To,
		Amount:      model.Amount(t.Amount),
	}).Error
}

// History 账户流水，按时间倒序
func (l *GormLedger) History(ctx context.Context, account string, offset, limit int) ([]Record, int64, error) {
	query := func() *gorm.DB {
		return l.db.WithContext(ctx).Model(&model.TransferRecordModel{}).
			Where("from_address = ? OR to_address = ?", account, account)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transfer records: %w", err)
	}

	var rows []model.TransferRecordModel
	if err := query().Order("id DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transfer records: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		amount, err := model.Uint64(row.Amount)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, Record{
			ID:         row.Id,
			CampaignID: row.CampaignId,
			Kind:       row.Kind,
			From:       row.FromAddress,
			To:         row.ToAddress,
			Amount:     amount,
			CreatedAt:  row.CreatedAt,
		})
	}
	return records, total, nil
}

func lockAccounts(db *gorm.DB, addresses ...string) (map[string]*model.AccountModel, error) {
	keys := make([]string, 0, len(addresses))
	seen := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		if !seen[a] {
			seen[a] = true
			keys = append(keys, a)
		}
	}
	sort.Strings(keys)

	var rows []model.AccountModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address IN ?", keys).
		Order("address").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	out := make(map[string]*model.AccountModel, len(rows))
	for i := range rows {
		out[rows[i].Address] = &rows[i]
	}
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, k)
		}
	}
	return out, nil
}

func setBalance(db *gorm.DB, account string, balance uint64) error {
	err := db.Model(&model.AccountModel{}).
		Where("address = ?", account).
		Update("balance", model.Amount(balance)).Error
	if err != nil {
		return fmt.Errorf("failed to update balance of %s: %w", account, err)
	}
	return nil
}
