package campaign

import (
	"fmt"
	"math/bits"
	"time"
)

// Outcome 结算结果
type Outcome string

const (
	OutcomePaidOut Outcome = "paid_out" // 资金已分配给发起人与平台
	OutcomeFailed  Outcome = "failed"   // 惰性判定为失败，仅提交状态变化
)

// Finalize 截止后结算：成功族按比例分配资金，惰性判定失败时只提交状态
func (c *Campaign) Finalize(caller string, now time.Time) (Outcome, Effect, error) {
	var eff Effect
	if err := c.ensureMutable(); err != nil {
		return "", eff, err
	}
	if !c.isOperator(caller) {
		return "", eff, ErrUnauthorized
	}
	if now.Before(c.deadline) {
		return "", eff, ErrDeadlineNotReached
	}

	entry := c.status
	c.transition(&eff, now)

	if c.status == StatusFailed && entry == StatusLive {
		return OutcomeFailed, eff, nil
	}
	if !c.status.Payable() {
		return "", Effect{}, fmt.Errorf("%w: finalize requires successful or sold_out, got %s", ErrInvalidState, c.status)
	}

	funding := c.currentFunding
	owner := ownerShare(funding, c.policy.OwnerSplitPercent)
	platform := funding - owner

	eff.transfer(Transfer{CampaignID: c.id, Kind: TransferPayout, From: c.Custody(), To: c.owner, Amount: owner})
	eff.transfer(Transfer{CampaignID: c.id, Kind: TransferPlatformFee, From: c.Custody(), To: c.platform, Amount: platform})

	c.currentFunding = 0
	eff.event(c, EventFundsDistributed, now, map[string]interface{}{
		"total":          funding,
		"owner":          c.owner,
		"owner_share":    owner,
		"platform":       c.platform,
		"platform_share": platform,
	})
	c.setStatus(&eff, StatusFinal, now)

	return OutcomePaidOut, eff, nil
}

// Refund 失败活动的批量退款，由发起人或平台发起
func (c *Campaign) Refund(caller string, now time.Time) (Effect, error) {
	var eff Effect
	if err := c.ensureMutable(); err != nil {
		return eff, err
	}
	if !c.isOperator(caller) {
		return eff, ErrUnauthorized
	}
	if now.Before(c.deadline) {
		return eff, ErrDeadlineNotReached
	}

	c.transition(&eff, now)
	if c.status != StatusFailed {
		return Effect{}, fmt.Errorf("%w: refund requires failed, got %s", ErrInvalidState, c.status)
	}

	// 同一认筹者合并为一笔，按首次出现顺序
	var order []string
	owed := make(map[string]uint64)
	recipient := make(map[string]string)
	for i := range c.contributions {
		rec := &c.contributions[i]
		if rec.Reimbursed {
			continue
		}
		key := NormalizeIdentity(rec.Contributor)
		if _, ok := owed[key]; !ok {
			order = append(order, key)
			recipient[key] = rec.Contributor
		}
		owed[key] += rec.Amount
		rec.Reimbursed = true
		c.currentFunding -= rec.Amount
		eff.event(c, EventContributionRefunded, now, map[string]interface{}{
			"contribution_id": rec.ID,
			"contributor":     rec.Contributor,
			"amount":          rec.Amount,
		})
	}
	for _, key := range order {
		eff.transfer(Transfer{
			CampaignID: c.id,
			Kind:       TransferRefund,
			From:       c.Custody(),
			To:         recipient[key],
			Amount:     owed[key],
		})
	}

	c.finalRefundIssued = true
	c.setStatus(&eff, StatusFinal, now)
	return eff, nil
}

// Reimburse 认筹者自助退款，全部退完后活动转为终态
func (c *Campaign) Reimburse(caller string, now time.Time) (uint64, Effect, error) {
	var eff Effect
	if err := c.ensureMutable(); err != nil {
		return 0, eff, err
	}
	if now.Before(c.deadline) {
		return 0, eff, ErrDeadlineNotReached
	}

	c.transition(&eff, now)
	if c.status != StatusFailed {
		return 0, Effect{}, fmt.Errorf("%w: reimburse requires failed, got %s", ErrInvalidState, c.status)
	}

	var owed uint64
	var idx []int
	for i, rec := range c.contributions {
		if !rec.Reimbursed && SameIdentity(caller, rec.Contributor) {
			owed += rec.Amount
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return 0, Effect{}, ErrNoUnreimbursedContributions
	}
	if c.currentFunding < owed {
		return 0, Effect{}, fmt.Errorf("%w: owed %d, custody holds %d", ErrInsufficientFunds, owed, c.currentFunding)
	}

	for _, i := range idx {
		rec := &c.contributions[i]
		rec.Reimbursed = true
		eff.event(c, EventContributionReimbursed, now, map[string]interface{}{
			"contribution_id": rec.ID,
			"contributor":     rec.Contributor,
			"amount":          rec.Amount,
		})
	}
	c.currentFunding -= owed
	eff.transfer(Transfer{
		CampaignID: c.id,
		Kind:       TransferReimburse,
		From:       c.Custody(),
		To:         caller,
		Amount:     owed,
	})

	if c.currentFunding == 0 {
		c.finalRefundIssued = true
		c.setStatus(&eff, StatusFinal, now)
	}
	return owed, eff, nil
}

// ownerShare funding*percent/100，128位中间值避免溢出
func ownerShare(funding, percent uint64) uint64 {
	hi, lo := bits.Mul64(funding, percent)
	quo, _ := bits.Div64(hi, lo, 100)
	return quo
}
