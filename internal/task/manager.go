package task

import (
	"fmt"

	"github.com/blues/crowdfund/internal/config"
	"github.com/blues/crowdfund/internal/logger"
	"github.com/blues/crowdfund/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// Job 定时任务
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	campaigns *logic.CampaignLogic
	config    config.TaskConfig
}

// NewManager 创建新的任务管理器
func NewManager(campaigns *logic.CampaignLogic, cfg config.TaskConfig) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Manager{
		scheduler: s,
		campaigns: campaigns,
		config:    cfg,
	}, nil
}

// Start 创建任务管理器，注册任务并启动调度
func Start(campaigns *logic.CampaignLogic, cfg config.TaskConfig) (*Manager, error) {
	manager, err := NewManager(campaigns, cfg)
	if err != nil {
		return nil, err
	}

	// 注册所有任务
	if err := manager.RegisterJobs(); err != nil {
		return nil, err
	}

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager, nil
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() error {
	// 截止时间扫描任务
	if err := m.Register(NewDeadlineJob(m.campaigns, m.config)); err != nil {
		return err
	}

	// 自动结算任务
	if m.config.AutoSettle {
		if err := m.Register(NewSettlementJob(m.campaigns, m.config)); err != nil {
			return err
		}
	}
	return nil
}

// Register 注册单个任务，同一任务不会并发执行
func (m *Manager) Register(job Job) error {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.GetName(), err)
	}
	logger.Info("Registered job %s", job.GetName())
	return nil
}

// Jobs 已注册任务名称
func (m *Manager) Jobs() []string {
	var names []string
	for _, j := range m.scheduler.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
