package campaign

import "time"

// TransferKind 资金流转类型
type TransferKind string

const (
	TransferContribution TransferKind = "contribution" // 认筹者 -> 托管
	TransferPayout       TransferKind = "payout"       // 托管 -> 发起人
	TransferPlatformFee  TransferKind = "platform_fee" // 托管 -> 平台
	TransferRefund       TransferKind = "refund"       // 托管 -> 认筹者（批量退款）
	TransferReimburse    TransferKind = "reimburse"    // 托管 -> 认筹者（自助退款）
)

// Transfer 待执行的资金流转，由支付通道在同一事务末尾执行
type Transfer struct {
	CampaignID uint64       `json:"campaign_id"`
	Kind       TransferKind `json:"kind"`
	From       string       `json:"from"`
	To         string       `json:"to"`
	Amount     uint64       `json:"amount"`
}

// 事件类型
const (
	EventCampaignInitialized    = "CampaignInitialized"
	EventTierAdded              = "TierAdded"
	EventCampaignPublished      = "CampaignPublished"
	EventContributionMade       = "ContributionMade"
	EventStatusChanged          = "StatusChanged"
	EventFundsDistributed       = "FundsDistributed"
	EventContributionRefunded   = "ContributionRefunded"
	EventContributionReimbursed = "ContributionReimbursed"
)

// Event 活动事件
type Event struct {
	CampaignID uint64                 `json:"campaign_id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	At         time.Time              `json:"at"`
}

// Effect 一次操作产生的副作用：资金流转与事件
type Effect struct {
	Transfers []Transfer
	Events    []Event
}

func (e *Effect) transfer(t Transfer) {
	if t.Amount == 0 {
		return
	}
	e.Transfers = append(e.Transfers, t)
}

func (e *Effect) event(c *Campaign, typ string, at time.Time, data map[string]interface{}) {
	e.Events = append(e.Events, Event{CampaignID: c.id, Type: typ, Data: data, At: at})
}

// Total 指定类型的流转总额
func (e Effect) Total(kind TransferKind) uint64 {
	var sum uint64
	for _, t := range e.Transfers {
		if t.Kind == kind {
			sum += t.Amount
		}
	}
	return sum
}
