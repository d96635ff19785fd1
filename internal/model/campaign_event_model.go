package model

import (
	"time"
)

// CampaignEventModel 活动事件记录
type CampaignEventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	CampaignId uint64    `json:"campaign_id" gorm:"not null;index"`
	EventType  string    `json:"event_type" gorm:"not null"`
	Data       string    `json:"data" gorm:"type:text"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null"`
}

// TableName 自定义表名
func (CampaignEventModel) TableName() string {
	return "campaign_event"
}
