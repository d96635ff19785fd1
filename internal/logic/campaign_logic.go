package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/lock"
	"github.com/blues/crowdfund/internal/logger"
	"github.com/blues/crowdfund/internal/rail"
	"github.com/blues/crowdfund/internal/repository"
	"go.uber.org/zap"
)

// CampaignLogic 活动业务逻辑，每个操作是一个原子单元：
// 加锁 -> 加载 -> 领域操作 -> 校验 -> 持久化 -> 事件 -> 转账 -> 解锁
type CampaignLogic struct {
	store       repository.Store
	locker      lock.Locker
	policy      campaign.Policy
	lockTimeout time.Duration
	nowFn       func() time.Time
}

// NewCampaignLogic 创建活动业务逻辑
func NewCampaignLogic(store repository.Store, locker lock.Locker, policy campaign.Policy, lockTimeout time.Duration) *CampaignLogic {
	if lockTimeout <= 0 {
		lockTimeout = 10 * time.Second
	}
	return &CampaignLogic{
		store:       store,
		locker:      locker,
		policy:      policy,
		lockTimeout: lockTimeout,
		nowFn:       time.Now,
	}
}

// SetClock 替换时钟，测试用
func (l *CampaignLogic) SetClock(now func() time.Time) {
	l.nowFn = now
}

// Now 当前时钟
func (l *CampaignLogic) Now() time.Time {
	return l.nowFn()
}

// InitCampaignInput 创建活动参数
type InitCampaignInput struct {
	ID                uint64    `json:"id" binding:"required"`
	Owner             string    `json:"owner"` // 为空时取调用方
	Platform          string    `json:"platform" binding:"required"`
	SoftCap           uint64    `json:"soft_cap"`
	HardCap           uint64    `json:"hard_cap" binding:"required"`
	Deadline          time.Time `json:"deadline" binding:"required"`
	OwnerSplitPercent *uint64   `json:"owner_split_percent"`
}

// ContributeResult 认筹结果
type ContributeResult struct {
	Contribution campaign.Contribution `json:"contribution"`
	Campaign     CampaignView          `json:"campaign"`
}

// FinalizeResult 结算结果
type FinalizeResult struct {
	Outcome       campaign.Outcome `json:"outcome"`
	OwnerShare    uint64           `json:"owner_share"`
	PlatformShare uint64           `json:"platform_share"`
	Campaign      CampaignView     `json:"campaign"`
}

// RefundResult 批量退款结果
type RefundResult struct {
	Refunded  uint64              `json:"refunded"`
	Transfers []campaign.Transfer `json:"transfers"`
	Campaign  CampaignView        `json:"campaign"`
}

// ReimburseResult 自助退款结果
type ReimburseResult struct {
	Amount   uint64       `json:"amount"`
	Campaign CampaignView `json:"campaign"`
}

// InitCampaign 创建活动，并为托管、发起人、平台开户
func (l *CampaignLogic) InitCampaign(ctx context.Context, caller string, in InitCampaignInput) (CampaignView, error) {
	if in.ID > math.MaxInt64 {
		return CampaignView{}, fmt.Errorf("%w: campaign id %d exceeds 63 bits", campaign.ErrInvalidArgument, in.ID)
	}
	caller = campaign.NormalizeIdentity(caller)
	owner := campaign.NormalizeIdentity(in.Owner)
	if owner == "" {
		owner = caller
	}
	if !campaign.SameIdentity(owner, caller) {
		return CampaignView{}, fmt.Errorf("%w: only the owner may initialize a campaign", campaign.ErrUnauthorized)
	}

	policy := l.policy
	if in.OwnerSplitPercent != nil {
		policy.OwnerSplitPercent = *in.OwnerSplitPercent
	}

	var view CampaignView
	err := l.withLock(ctx, in.ID, func() error {
		return l.store.Atomic(ctx, func(tx repository.Tx) error {
			c, eff, err := campaign.New(campaign.Params{
				ID:       in.ID,
				Owner:    owner,
				Platform: campaign.NormalizeIdentity(in.Platform),
				SoftCap:  in.SoftCap,
				HardCap:  in.HardCap,
				Deadline: in.Deadline,
				Policy:   policy,
			}, l.nowFn())
			if err != nil {
				return err
			}
			if err := tx.Campaigns().Create(ctx, c); err != nil {
				return err
			}
			for _, account := range []string{c.Custody(), c.Owner(), c.Platform()} {
				if err := tx.Ledger().Open(ctx, account); err != nil {
					return err
				}
			}
			if err := tx.Events().Append(ctx, eff.Events); err != nil {
				return err
			}
			view = newCampaignView(c)
			return nil
		})
	})
	log := opLogger("init", in.ID, caller)
	if err != nil {
		logFailure(log, err)
		return CampaignView{}, err
	}
	log.Info("initialized: soft cap %d, hard cap %d, deadline %s",
		in.SoftCap, in.HardCap, in.Deadline.Format(time.RFC3339))
	return view, nil
}

// AddTier 添加认筹档位
func (l *CampaignLogic) AddTier(ctx context.Context, caller string, id, tierID, amount uint64) (CampaignView, error) {
	caller = campaign.NormalizeIdentity(caller)
	c, _, err := l.mutate(ctx, "add tier", id, caller, func(c *campaign.Campaign, now time.Time) (campaign.Effect, error) {
		return c.AddTier(caller, tierID, amount, now)
	})
	if err != nil {
		return CampaignView{}, err
	}
	return newCampaignView(c), nil
}

// Publish 发布活动
func (l *CampaignLogic) Publish(ctx context.Context, caller string, id uint64) (CampaignView, error) {
	caller = campaign.NormalizeIdentity(caller)
	c, _, err := l.mutate(ctx, "publish", id, caller, func(c *campaign.Campaign, now time.Time) (campaign.Effect, error) {
		return c.Publish(caller, now)
	})
	if err != nil {
		return CampaignView{}, err
	}
	return newCampaignView(c), nil
}

// Contribute 按档位认筹，资金从认筹者账户转入托管账户
func (l *CampaignLogic) Contribute(ctx context.Context, caller string, id, tierID, amount uint64) (ContributeResult, error) {
	caller = campaign.NormalizeIdentity(caller)
	var rec campaign.Contribution
	c, _, err := l.mutate(ctx, "contribute", id, caller, func(c *campaign.Campaign, now time.Time) (campaign.Effect, error) {
		r, eff, err := c.Contribute(caller, tierID, amount, now)
		rec = r
		return eff, err
	})
	if err != nil {
		return ContributeResult{}, err
	}
	return ContributeResult{Contribution: rec, Campaign: newCampaignView(c)}, nil
}

// Finalize 截止后结算
func (l *CampaignLogic) Finalize(ctx context.Context, caller string, id uint64) (FinalizeResult, error) {
	caller = campaign.NormalizeIdentity(caller)
	var outcome campaign.Outcome
	c, eff, err := l.mutate(ctx, "finalize", id, caller, func(c *campaign.Campaign, now time.Time) (campaign.Effect, error) {
		o, eff, err := c.Finalize(caller, now)
		outcome = o
		return eff, err
	})
	if err != nil {
		return FinalizeResult{}, err
	}
	return FinalizeResult{
		Outcome:       outcome,
		OwnerShare:    eff.Total(campaign.TransferPayout),
		PlatformShare: eff.Total(campaign.TransferPlatformFee),
		Campaign:      newCampaignView(c),
	}, nil
}

// Refund 失败活动批量退款
func (l *CampaignLogic) Refund(ctx context.Context, caller string, id uint64) (RefundResult, error) {
	caller = campaign.NormalizeIdentity(caller)
	c, eff, err := l.mutate(ctx, "refund", id, caller, func(c *campaign.Campaign, now time.Time) (campaign.Effect, error) {
		return c.Refund(caller, now)
	})
	if err != nil {
		return RefundResult{}, err
	}
	transfers := eff.Transfers
	if transfers == nil {
		transfers = []campaign.Transfer{}
	}
	return RefundResult{
		Refunded:  eff.Total(campaign.TransferRefund),
		Transfers: transfers,
		Campaign:  newCampaignView(c),
	}, nil
}

// Reimburse 认筹者自助退款
func (l *CampaignLogic) Reimburse(ctx context.Context, caller string, id uint64) (ReimburseResult, error) {
	caller = campaign.NormalizeIdentity(caller)
	var owed uint64
	c, _, err := l.mutate(ctx, "reimburse", id, caller, func(c *campaign.Campaign, now time.Time) (campaign.Effect, error) {
		amount, eff, err := c.Reimburse(caller, now)
		owed = amount
		return eff, err
	})
	if err != nil {
		return ReimburseResult{}, err
	}
	return ReimburseResult{Amount: owed, Campaign: newCampaignView(c)}, nil
}

// Evaluate 惰性推进状态机，返回状态是否变化
func (l *CampaignLogic) Evaluate(ctx context.Context, id uint64) (bool, error) {
	var changed bool
	_, _, err := l.mutate(ctx, "evaluate", id, "", func(c *campaign.Campaign, now time.Time) (campaign.Effect, error) {
		eff, ok := c.Evaluate(now)
		changed = ok
		return eff, nil
	})
	return changed, err
}

// Settle 以平台身份结算截止的活动：成功族分配资金，失败则批量退款
func (l *CampaignLogic) Settle(ctx context.Context, id uint64) (campaign.Status, error) {
	var platform string
	err := l.store.Atomic(ctx, func(tx repository.Tx) error {
		c, err := tx.Campaigns().Get(ctx, id)
		if err != nil {
			return err
		}
		platform = c.Platform()
		return nil
	})
	if err != nil {
		return "", err
	}

	res, err := l.Finalize(ctx, platform, id)
	if err == nil && res.Outcome == campaign.OutcomePaidOut {
		return res.Campaign.Status, nil
	}
	// 惰性判定失败或已是 failed，转为批量退款
	if err != nil && !errors.Is(err, campaign.ErrInvalidState) {
		return "", err
	}
	refund, err := l.Refund(ctx, platform, id)
	if err != nil {
		return "", err
	}
	return refund.Campaign.Status, nil
}

type operation func(c *campaign.Campaign, now time.Time) (campaign.Effect, error)

// mutate 在活动锁内执行一次原子操作，返回提交后的活动与副作用
func (l *CampaignLogic) mutate(ctx context.Context, name string, id uint64, caller string, op operation) (*campaign.Campaign, campaign.Effect, error) {
	var next *campaign.Campaign
	var eff campaign.Effect
	err := l.withLock(ctx, id, func() error {
		return l.store.Atomic(ctx, func(tx repository.Tx) error {
			prev, err := tx.Campaigns().Get(ctx, id)
			if err != nil {
				return err
			}
			next = prev.Clone()
			if eff, err = op(next, l.nowFn()); err != nil {
				return err
			}
			if len(eff.Events) == 0 && len(eff.Transfers) == 0 {
				return nil
			}
			if err := next.Audit(); err != nil {
				return err
			}
			if err := resolveRecipients(ctx, tx.Ledger(), eff.Transfers); err != nil {
				return err
			}
			if err := tx.Campaigns().Update(ctx, prev, next); err != nil {
				return err
			}
			if err := tx.Events().Append(ctx, eff.Events); err != nil {
				return err
			}
			return rail.Execute(ctx, tx.Ledger(), eff.Transfers)
		})
	})
	log := opLogger(name, id, caller)
	if err != nil {
		logFailure(log, err)
		return nil, campaign.Effect{}, err
	}
	if len(eff.Events) > 0 {
		log.Info("committed: status %s, funding %d, %d events, %d transfers",
			next.Status(), next.CurrentFunding(), len(eff.Events), len(eff.Transfers))
	}
	return next, eff, nil
}

func (l *CampaignLogic) withLock(ctx context.Context, id uint64, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	unlock, err := l.locker.Lock(lockCtx, lock.CampaignKey(id))
	cancel()
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// resolveRecipients 退款类转账的收款方必须是通道已知账户
func resolveRecipients(ctx context.Context, ledger rail.Ledger, transfers []campaign.Transfer) error {
	for _, t := range transfers {
		if t.Kind != campaign.TransferRefund && t.Kind != campaign.TransferReimburse {
			continue
		}
		ok, err := ledger.Exists(ctx, t.To)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", campaign.ErrContributorNotFound, t.To)
		}
	}
	return nil
}

// opLogger 带活动与调用方字段的日志器；caller 字段名已被调用位置占用
func opLogger(name string, id uint64, caller string) *logger.Logger {
	return logger.With(zap.Uint64("campaign_id", id), zap.String("operation", name), zap.String("identity", caller))
}

func logFailure(log *logger.Logger, err error) {
	if IsDomainError(err) {
		log.Warn("rejected: %v", err)
		return
	}
	log.Error("failed: %v", err)
}

// IsDomainError 业务规则拒绝，而非基础设施故障
func IsDomainError(err error) bool {
	for _, target := range []error{
		campaign.ErrUnauthorized,
		campaign.ErrInvalidState,
		campaign.ErrCapacityExceeded,
		campaign.ErrDeadlineViolation,
		campaign.ErrTierNotFound,
		campaign.ErrAmountMismatch,
		campaign.ErrHardCapReached,
		campaign.ErrInsufficientFunds,
		campaign.ErrContributorNotFound,
		campaign.ErrNoUnreimbursedContributions,
		campaign.ErrInvalidArgument,
		campaign.ErrNotFound,
		campaign.ErrAlreadyExists,
		rail.ErrAccountNotFound,
		rail.ErrInsufficientBalance,
		rail.ErrInvalidAmount,
		ErrDepositDisabled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
