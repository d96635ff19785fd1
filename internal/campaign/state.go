package campaign

import (
	"fmt"
	"time"
)

// Status 众筹活动状态
type Status string

const (
	StatusDraft      Status = "draft"      // 草稿，可添加档位
	StatusLive       Status = "live"       // 进行中，接受认筹
	StatusSuccessful Status = "successful" // 达到软顶
	StatusSoldOut    Status = "sold_out"   // 达到硬顶
	StatusFailed     Status = "failed"     // 未达软顶，等待退款
	StatusFinal      Status = "final"      // 已结算，不可再变更
)

var allStatuses = []Status{
	StatusDraft, StatusLive, StatusSuccessful, StatusSoldOut, StatusFailed, StatusFinal,
}

// ParseStatus 解析状态字符串
func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, s)
}

// Payable 成功族状态，可分配资金
func (s Status) Payable() bool {
	return s == StatusSuccessful || s == StatusSoldOut
}

// Policy 活动规则参数，初始化时从配置快照
type Policy struct {
	OwnerSplitPercent uint64 `json:"owner_split_percent"` // 发起人分成百分比，其余归平台
	HardCapInclusive  bool   `json:"hard_cap_inclusive"`  // 认筹后金额可恰好等于硬顶
	ImmediateSuccess  bool   `json:"immediate_success"`   // 截止前达到软顶即转为成功
}

// DefaultPolicy 默认规则：90/10 分成，硬顶可达，截止后才判定成功
func DefaultPolicy() Policy {
	return Policy{OwnerSplitPercent: 90, HardCapInclusive: true}
}

// Validate 校验规则参数
func (p Policy) Validate() error {
	if p.OwnerSplitPercent > 100 {
		return fmt.Errorf("%w: owner split %d%% exceeds 100%%", ErrInvalidArgument, p.OwnerSplitPercent)
	}
	return nil
}

// FundingInput 状态机输入
type FundingInput struct {
	Status   Status
	Current  uint64
	SoftCap  uint64
	HardCap  uint64
	Now      time.Time
	Deadline time.Time
}

// NextStatus 根据资金、时间与当前状态计算下一个状态。
// 草稿与终态不受影响；Publish 不经过此规则。
func NextStatus(in FundingInput, p Policy) Status {
	open := in.Status == StatusLive ||
		(p.ImmediateSuccess && in.Status == StatusSuccessful && in.Now.Before(in.Deadline))
	if !open {
		return in.Status
	}

	if in.Current >= in.HardCap {
		return StatusSoldOut
	}

	if !in.Now.Before(in.Deadline) {
		if in.Current >= in.SoftCap {
			return StatusSuccessful
		}
		return StatusFailed
	}

	if p.ImmediateSuccess && in.Current >= in.SoftCap {
		return StatusSuccessful
	}

	return in.Status
}

// acceptsContributions 当前状态是否接受认筹
func acceptsContributions(s Status, p Policy) bool {
	return s == StatusLive || (p.ImmediateSuccess && s == StatusSuccessful)
}
