// Package campaign 实现众筹活动的状态机与资金结算规则。
//
// Campaign 聚合只描述状态变化：每个变更方法在副本上执行，返回 Effect，
// 由调用方在同一个原子单元内持久化状态并执行资金流转。
package campaign

import (
	"fmt"
	"strings"
	"time"
)

// Params 初始化活动参数
type Params struct {
	ID       uint64
	Owner    string
	Platform string
	SoftCap  uint64
	HardCap  uint64
	Deadline time.Time
	Policy   Policy
}

// Campaign 众筹活动聚合
type Campaign struct {
	id                uint64
	owner             string
	platform          string
	softCap           uint64
	hardCap           uint64
	deadline          time.Time
	currentFunding    uint64
	status            Status
	finalRefundIssued bool
	policy            Policy
	tiers             []Tier
	contributions     []Contribution
	createdAt         time.Time
}

// New 创建草稿状态的活动
func New(p Params, now time.Time) (*Campaign, Effect, error) {
	p.Owner = strings.TrimSpace(p.Owner)
	p.Platform = strings.TrimSpace(p.Platform)

	switch {
	case p.ID == 0:
		return nil, Effect{}, fmt.Errorf("%w: campaign id must be non-zero", ErrInvalidArgument)
	case p.Owner == "":
		return nil, Effect{}, fmt.Errorf("%w: owner is required", ErrInvalidArgument)
	case p.Platform == "":
		return nil, Effect{}, fmt.Errorf("%w: platform is required", ErrInvalidArgument)
	case p.HardCap == 0:
		return nil, Effect{}, fmt.Errorf("%w: hard cap must be positive", ErrInvalidArgument)
	case p.SoftCap > p.HardCap:
		return nil, Effect{}, fmt.Errorf("%w: soft cap %d exceeds hard cap %d", ErrInvalidArgument, p.SoftCap, p.HardCap)
	case !p.Deadline.After(now):
		return nil, Effect{}, fmt.Errorf("%w: deadline must be in the future", ErrInvalidArgument)
	}
	if err := p.Policy.Validate(); err != nil {
		return nil, Effect{}, err
	}

	c := &Campaign{
		id:        p.ID,
		owner:     p.Owner,
		platform:  p.Platform,
		softCap:   p.SoftCap,
		hardCap:   p.HardCap,
		deadline:  p.Deadline,
		status:    StatusDraft,
		policy:    p.Policy,
		createdAt: now,
	}

	var eff Effect
	eff.event(c, EventCampaignInitialized, now, map[string]interface{}{
		"owner":    c.owner,
		"platform": c.platform,
		"soft_cap": c.softCap,
		"hard_cap": c.hardCap,
		"deadline": c.deadline,
	})
	return c, eff, nil
}

func (c *Campaign) ID() uint64              { return c.id }
func (c *Campaign) Owner() string           { return c.owner }
func (c *Campaign) Platform() string        { return c.platform }
func (c *Campaign) SoftCap() uint64         { return c.softCap }
func (c *Campaign) HardCap() uint64         { return c.hardCap }
func (c *Campaign) Deadline() time.Time     { return c.deadline }
func (c *Campaign) CurrentFunding() uint64  { return c.currentFunding }
func (c *Campaign) Status() Status          { return c.status }
func (c *Campaign) FinalRefundIssued() bool { return c.finalRefundIssued }
func (c *Campaign) Policy() Policy          { return c.policy }
func (c *Campaign) CreatedAt() time.Time    { return c.createdAt }

// Custody 活动托管账户
func (c *Campaign) Custody() string {
	return CustodyAccount(c.id)
}

// CustodyAccount 根据活动ID生成托管账户标识
func CustodyAccount(id uint64) string {
	return fmt.Sprintf("custody:%d", id)
}

// Publish 发布活动 Draft -> Live，冻结档位
func (c *Campaign) Publish(caller string, now time.Time) (Effect, error) {
	var eff Effect
	if err := c.ensureMutable(); err != nil {
		return eff, err
	}
	if !c.isOwner(caller) {
		return eff, ErrUnauthorized
	}
	if c.status != StatusDraft {
		return eff, fmt.Errorf("%w: publish requires draft, got %s", ErrInvalidState, c.status)
	}
	if len(c.tiers) == 0 {
		return eff, ErrNoTiers
	}
	if !now.Before(c.deadline) {
		return eff, ErrDeadlinePassed
	}

	c.setStatus(&eff, StatusLive, now)
	eff.event(c, EventCampaignPublished, now, map[string]interface{}{"tiers": len(c.tiers)})
	return eff, nil
}

// Evaluate 惰性执行状态机规则，返回状态是否变化
func (c *Campaign) Evaluate(now time.Time) (Effect, bool) {
	var eff Effect
	before := c.status
	c.transition(&eff, now)
	return eff, c.status != before
}

// Audit 校验资金不变量
func (c *Campaign) Audit() error {
	sum := c.Sum()
	if sum != c.currentFunding {
		return fmt.Errorf("campaign %d: funding %d != outstanding contributions %d", c.id, c.currentFunding, sum)
	}
	if c.currentFunding > c.hardCap {
		return fmt.Errorf("campaign %d: funding %d exceeds hard cap %d", c.id, c.currentFunding, c.hardCap)
	}
	return nil
}

// Clone 深拷贝
func (c *Campaign) Clone() *Campaign {
	cp := *c
	cp.tiers = append([]Tier(nil), c.tiers...)
	cp.contributions = append([]Contribution(nil), c.contributions...)
	return &cp
}

func (c *Campaign) ensureMutable() error {
	if c.status == StatusFinal {
		return ErrCampaignFinal
	}
	return nil
}

func (c *Campaign) isOwner(caller string) bool {
	return SameIdentity(caller, c.owner)
}

func (c *Campaign) isOperator(caller string) bool {
	return SameIdentity(caller, c.owner) || SameIdentity(caller, c.platform)
}

// SameIdentity 身份比较忽略大小写，兼容十六进制地址的不同书写
func SameIdentity(a, b string) bool {
	a = NormalizeIdentity(a)
	return a != "" && a == NormalizeIdentity(b)
}

// NormalizeIdentity 统一身份书写：去空白并转小写
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (c *Campaign) transition(eff *Effect, now time.Time) {
	next := NextStatus(FundingInput{
		Status:   c.status,
		Current:  c.currentFunding,
		SoftCap:  c.softCap,
		HardCap:  c.hardCap,
		Now:      now,
		Deadline: c.deadline,
	}, c.policy)
	c.setStatus(eff, next, now)
}

func (c *Campaign) setStatus(eff *Effect, next Status, now time.Time) {
	if next == c.status {
		return
	}
	prev := c.status
	c.status = next
	eff.event(c, EventStatusChanged, now, map[string]interface{}{
		"from":            string(prev),
		"to":              string(next),
		"current_funding": c.currentFunding,
	})
}
