// Package lock 按活动维度的互斥，保证同一活动的操作串行执行。
package lock

import (
	"context"
	"errors"
	"fmt"
)

// ErrLockTimeout 在上下文结束前未能获得锁
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker 键级互斥锁，返回的 unlock 可重复调用
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// CampaignKey 活动锁的键
func CampaignKey(id uint64) string {
	return fmt.Sprintf("campaign:%d", id)
}
