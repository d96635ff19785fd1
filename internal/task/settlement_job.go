package task

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/config"
	"github.com/blues/crowdfund/internal/logger"
	"github.com/blues/crowdfund/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// SettlementJob 自动结算任务：截止后由平台对成功活动分配资金，对失败活动批量退款
type SettlementJob struct {
	campaigns *logic.CampaignLogic
	config    config.TaskConfig
}

// NewSettlementJob 创建自动结算任务
func NewSettlementJob(campaigns *logic.CampaignLogic, cfg config.TaskConfig) *SettlementJob {
	return &SettlementJob{campaigns: campaigns, config: cfg}
}

// GetName 获取任务名称
func (j *SettlementJob) GetName() string {
	return "campaign_settlement_updater"
}

// GetSchedule 获取调度配置
func (j *SettlementJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Interval) * time.Second)
}

// Execute 执行任务
func (j *SettlementJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(j.config.Interval)*time.Second)
	defer cancel()

	if _, err := j.Run(ctx); err != nil {
		logger.Error("Campaign settlement task failed: %v", err)
	}
}

// Run 结算一次，返回进入终态的活动数量
func (j *SettlementJob) Run(ctx context.Context) (int, error) {
	ids, err := dueCampaigns(ctx, j.campaigns,
		campaign.StatusLive, campaign.StatusSuccessful, campaign.StatusSoldOut, campaign.StatusFailed)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		logger.Debug("No campaigns waiting for settlement")
		return 0, nil
	}
	logger.Info("Starting settlement for %d campaigns", len(ids))

	var settled atomic.Int64
	_, failed, err := fanOut(ctx, j.config.Workers, ids, func(ctx context.Context, id uint64) error {
		status, err := j.campaigns.Settle(ctx, id)
		if err != nil {
			logger.Error("Failed to settle campaign %d: %v", id, err)
			return err
		}
		if status == campaign.StatusFinal {
			settled.Add(1)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Settlement task completed. Settled %d campaigns, %d failed", int(settled.Load()), failed)
	return int(settled.Load()), nil
}
