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

// DeadlineJob 截止时间扫描任务，把已过截止时间的进行中活动推进为成功或失败
type DeadlineJob struct {
	campaigns *logic.CampaignLogic
	config    config.TaskConfig
}

// NewDeadlineJob 创建截止时间扫描任务
func NewDeadlineJob(campaigns *logic.CampaignLogic, cfg config.TaskConfig) *DeadlineJob {
	return &DeadlineJob{campaigns: campaigns, config: cfg}
}

// GetName 获取任务名称
func (j *DeadlineJob) GetName() string {
	return "campaign_deadline_sweeper"
}

// GetSchedule 获取调度配置
func (j *DeadlineJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Interval) * time.Second)
}

// Execute 执行任务
func (j *DeadlineJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(j.config.Interval)*time.Second)
	defer cancel()

	if _, err := j.Run(ctx); err != nil {
		logger.Error("Campaign deadline sweep failed: %v", err)
	}
}

// Run 扫描一次，返回状态发生变化的活动数量
func (j *DeadlineJob) Run(ctx context.Context) (int, error) {
	ids, err := dueCampaigns(ctx, j.campaigns, campaign.StatusLive)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		logger.Debug("No campaigns past deadline")
		return 0, nil
	}
	logger.Info("Starting deadline sweep for %d campaigns", len(ids))

	var changed atomic.Int64
	ok, failed, err := fanOut(ctx, j.config.Workers, ids, func(ctx context.Context, id uint64) error {
		moved, err := j.campaigns.Evaluate(ctx, id)
		if err != nil {
			return err
		}
		if moved {
			changed.Add(1)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Deadline sweep completed. Evaluated %d campaigns, %d changed, %d failed", ok, int(changed.Load()), failed)
	return int(changed.Load()), nil
}
