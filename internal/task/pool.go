package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/logger"
	"github.com/blues/crowdfund/internal/logic"
	"github.com/blues/crowdfund/internal/repository"
	"github.com/panjf2000/ants/v2"
)

const listPageSize = 100

// fanOut 使用协程池并发处理活动，返回成功与失败数量
func fanOut(ctx context.Context, workers int, ids []uint64, fn func(ctx context.Context, id uint64) error) (int, int, error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}
	if workers <= 0 || workers > len(ids) {
		workers = len(ids)
	}

	// 创建临时协程池，大小不超过活动数量
	pool, err := ants.NewPool(workers)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create pool for %d campaigns: %w", len(ids), err)
	}
	defer pool.Release()

	var (
		wg     sync.WaitGroup
		ok     atomic.Int64
		failed atomic.Int64
	)
	for _, id := range ids {
		id := id
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := fn(ctx, id); err != nil {
				failed.Add(1)
				return
			}
			ok.Add(1)
		})
		if err != nil {
			wg.Done()
			failed.Add(1)
			logger.Error("Failed to submit campaign %d to pool: %v", id, err)
		}
	}
	wg.Wait()

	return int(ok.Load()), int(failed.Load()), nil
}

// dueCampaigns 截止时间已过且处于给定状态的活动ID
func dueCampaigns(ctx context.Context, campaigns *logic.CampaignLogic, statuses ...campaign.Status) ([]uint64, error) {
	now := campaigns.Now()
	var ids []uint64
	for offset := 0; ; offset += listPageSize {
		items, total, err := campaigns.ListCampaigns(ctx, repository.ListFilter{
			Statuses:       statuses,
			DeadlineBefore: &now,
			Offset:         offset,
			Limit:          listPageSize,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		if len(items) == 0 || int64(offset+len(items)) >= total {
			return ids, nil
		}
	}
}
