package campaign

import (
	"errors"
	"fmt"
)

// 错误分类，调用方使用 errors.Is 判断
var (
	ErrUnauthorized                = errors.New("caller lacks required authority")
	ErrInvalidState                = errors.New("operation not permitted in current status")
	ErrCapacityExceeded            = errors.New("maximum number of tiers reached")
	ErrDeadlineViolation           = errors.New("deadline violation")
	ErrTierNotFound                = errors.New("tier not found")
	ErrAmountMismatch              = errors.New("amount does not match tier price")
	ErrHardCapReached              = errors.New("hard cap reached")
	ErrInsufficientFunds           = errors.New("insufficient funds in campaign custody")
	ErrContributorNotFound         = errors.New("contributor not found for refund")
	ErrNoUnreimbursedContributions = errors.New("no unreimbursed contributions for caller")
	ErrInvalidArgument             = errors.New("invalid argument")
	ErrNotFound                    = errors.New("campaign not found")
	ErrAlreadyExists               = errors.New("campaign already exists")
)

// 细分错误，保留所属分类
var (
	ErrDeadlinePassed     = fmt.Errorf("%w: deadline passed", ErrDeadlineViolation)
	ErrDeadlineNotReached = fmt.Errorf("%w: deadline not reached", ErrDeadlineViolation)
	ErrDuplicateTier      = fmt.Errorf("%w: duplicate tier id", ErrInvalidArgument)
	ErrNoTiers            = fmt.Errorf("%w: campaign has no tiers", ErrInvalidState)
	ErrCampaignFinal      = fmt.Errorf("%w: campaign is final", ErrInvalidState)
)
