package rail

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blues/crowdfund/internal/campaign"
)

// MemoryLedger 内存账本，用于开发环境与测试。
// 写操作先暂存在 StagedLedger 中，Commit 时在锁内重新校验余额后一次性生效。
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]uint64
	records  []Record
	nextID   int64
	nowFn    func() time.Time
}

// NewMemoryLedger 创建内存账本
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]uint64),
		nowFn:    time.Now,
	}
}

// Begin 开启暂存视图
func (l *MemoryLedger) Begin() *StagedLedger {
	return &StagedLedger{
		parent:  l,
		opened:  make(map[string]bool),
		credits: make(map[string]uint64),
		debits:  make(map[string]uint64),
	}
}

func (l *MemoryLedger) base(account string) (uint64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.balances[account]
	return b, ok
}

// StagedLedger 一次原子操作内的账本视图
type StagedLedger struct {
	parent  *MemoryLedger
	opened  map[string]bool
	credits map[string]uint64
	debits  map[string]uint64
	records []Record
}

func (s *StagedLedger) Open(_ context.Context, account string) error {
	if _, ok := s.parent.base(account); !ok {
		s.opened[account] = true
	}
	return nil
}

func (s *StagedLedger) Exists(_ context.Context, account string) (bool, error) {
	return s.exists(account), nil
}

func (s *StagedLedger) Balance(_ context.Context, account string) (uint64, error) {
	if !s.exists(account) {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	base, _ := s.parent.base(account)
	return apply(base, s.credits[account], s.debits[account])
}

func (s *StagedLedger) Deposit(ctx context.Context, account string, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := s.Open(ctx, account); err != nil {
		return err
	}
	balance, err := s.Balance(ctx, account)
	if err != nil {
		return err
	}
	if _, err := credit(balance, amount); err != nil {
		return err
	}
	s.credits[account] += amount
	s.records = append(s.records, Record{Kind: KindDeposit, To: account, Amount: amount})
	return nil
}

func (s *StagedLedger) Transfer(ctx context.Context, t campaign.Transfer) error {
	if t.Amount == 0 {
		return nil
	}
	from, err := s.Balance(ctx, t.From)
	if err != nil {
		return err
	}
	to, err := s.Balance(ctx, t.To)
	if err != nil {
		return err
	}
	if from < t.Amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientBalance, t.From, from, t.Amount)
	}
	if t.From != t.To {
		if _, err := credit(to, t.Amount); err != nil {
			return err
		}
	}
	s.debits[t.From] += t.Amount
	s.credits[t.To] += t.Amount
	s.records = append(s.records, Record{
		CampaignID: t.CampaignID,
		Kind:       string(t.Kind),
		From:       t.From,
		To:         t.To,
		Amount:     t.Amount,
	})
	return nil
}

// History 已提交流水加上本视图暂存的流水，按时间倒序
func (s *StagedLedger) History(_ context.Context, account string, offset, limit int) ([]Record, int64, error) {
	s.parent.mu.RLock()
	all := append(append([]Record(nil), s.parent.records...), s.records...)
	s.parent.mu.RUnlock()

	var matched []Record
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].From == account || all[i].To == account {
			matched = append(matched, all[i])
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []Record{}, total, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

// Commit 在锁内重新校验全部暂存变动，任何账户不满足条件则整体放弃
func (s *StagedLedger) Commit() error {
	l := s.parent
	l.mu.Lock()
	defer l.mu.Unlock()

	touched := make(map[string]struct{})
	for a := range s.opened {
		touched[a] = struct{}{}
	}
	for a := range s.credits {
		touched[a] = struct{}{}
	}
	for a := range s.debits {
		touched[a] = struct{}{}
	}
	accounts := make([]string, 0, len(touched))
	for a := range touched {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)

	next := make(map[string]uint64, len(accounts))
	for _, a := range accounts {
		base, ok := l.balances[a]
		if !ok && !s.opened[a] {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, a)
		}
		v, err := apply(base, s.credits[a], s.debits[a])
		if err != nil {
			return fmt.Errorf("%s: %w", a, err)
		}
		next[a] = v
	}

	for a, v := range next {
		l.balances[a] = v
	}
	now := l.nowFn()
	for _, r := range s.records {
		l.nextID++
		r.ID = l.nextID
		r.CreatedAt = now
		l.records = append(l.records, r)
	}
	return nil
}

func (s *StagedLedger) exists(account string) bool {
	if s.opened[account] {
		return true
	}
	_, ok := s.parent.base(account)
	return ok
}

func apply(base, credits, debits uint64) (uint64, error) {
	if credits >= debits {
		return credit(base, credits-debits)
	}
	if base < debits-credits {
		return 0, ErrInsufficientBalance
	}
	return base - (debits - credits), nil
}
