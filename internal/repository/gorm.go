package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/model"
	"github.com/blues/crowdfund/internal/rail"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于数据库事务的 Store，活动行使用 SELECT ... FOR UPDATE 锁定
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建数据库存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Atomic 在一个数据库事务内执行 fn
func (s *GormStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) Campaigns() CampaignRepository { return &gormCampaigns{db: t.db} }
func (t *gormTx) Events() EventRepository       { return &gormEvents{db: t.db} }
func (t *gormTx) Ledger() rail.Ledger           { return rail.NewGormLedger(t.db) }

type gormCampaigns struct {
	db *gorm.DB
}

func (r *gormCampaigns) Create(ctx context.Context, c *campaign.Campaign) error {
	snap := c.Snapshot()
	row := toCampaignModel(snap)
	db := r.db.WithContext(ctx)

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("failed to create campaign %d: %w", snap.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", campaign.ErrAlreadyExists, snap.ID)
	}
	if err := insertTiers(db, snap.ID, snap.Tiers, 0); err != nil {
		return err
	}
	return insertContributions(db, snap.ID, snap.Contributions)
}

func (r *gormCampaigns) Get(ctx context.Context, id uint64) (*campaign.Campaign, error) {
	db := r.db.WithContext(ctx)

	var row model.CampaignModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", campaign.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %d: %w", id, err)
	}

	var tiers []model.TierModel
	if err := db.Where("campaign_id = ?", id).Order("position").Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("failed to load tiers of campaign %d: %w", id, err)
	}
	var contributions []model.ContributionModel
	if err := db.Where("campaign_id = ?", id).Order("seq").Find(&contributions).Error; err != nil {
		return nil, fmt.Errorf("failed to load contributions of campaign %d: %w", id, err)
	}

	snap, err := fromModels(row, tiers, contributions)
	if err != nil {
		return nil, fmt.Errorf("campaign %d: %w", id, err)
	}
	return campaign.Restore(snap)
}

func (r *gormCampaigns) Update(ctx context.Context, prev, next *campaign.Campaign) error {
	d, err := diff(prev.Snapshot(), next.Snapshot())
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	snap := d.next

	res := db.Model(&model.CampaignModel{}).Where("id = ?", snap.ID).Updates(map[string]interface{}{
		"current_funding":     model.Amount(snap.CurrentFunding),
		"status":              string(snap.Status),
		"final_refund_issued": snap.FinalRefundIssued,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update campaign %d: %w", snap.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", campaign.ErrNotFound, snap.ID)
	}

	if err := insertTiers(db, snap.ID, d.newTiers, d.tierOffset); err != nil {
		return err
	}
	if err := insertContributions(db, snap.ID, d.newContributions); err != nil {
		return err
	}
	if len(d.reimbursed) > 0 {
		err := db.Model(&model.ContributionModel{}).
			Where("id IN ?", d.reimbursed).
			Update("reimbursed", true).Error
		if err != nil {
			return fmt.Errorf("failed to mark contributions reimbursed: %w", err)
		}
	}
	return nil
}

func (r *gormCampaigns) List(ctx context.Context, filter ListFilter) ([]Summary, int64, error) {
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.CampaignModel{})
		if len(filter.Statuses) > 0 {
			statuses := make([]string, 0, len(filter.Statuses))
			for _, st := range filter.Statuses {
				statuses = append(statuses, string(st))
			}
			q = q.Where("status IN ?", statuses)
		}
		if filter.Owner != "" {
			q = q.Where("LOWER(owner) = LOWER(?)", filter.Owner)
		}
		if filter.DeadlineBefore != nil {
			q = q.Where("deadline <= ?", *filter.DeadlineBefore)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	q := query().Order("id").Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []model.CampaignModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		snap, err := fromModels(row, nil, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("campaign %d: %w", row.Id, err)
		}
		out = append(out, summarize(snap))
	}
	return out, total, nil
}

type gormEvents struct {
	db *gorm.DB
}

func (r *gormEvents) Append(ctx context.Context, events []campaign.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]model.CampaignEventModel, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", e.Type, err)
		}
		rows = append(rows, model.CampaignEventModel{
			CampaignId: e.CampaignID,
			EventType:  e.Type,
			Data:       string(data),
			OccurredAt: e.At,
		})
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to append events: %w", err)
	}
	return nil
}

func (r *gormEvents) List(ctx context.Context, campaignID uint64, offset, limit int) ([]EventRecord, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.CampaignEventModel{}).Where("campaign_id = ?", campaignID)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}
	q := query().Order("id").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []model.CampaignEventModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}

	out := make([]EventRecord, 0, len(rows))
	for _, row := range rows {
		data, err := decodeEventData(row.Data)
		if err != nil {
			return nil, 0, fmt.Errorf("event %d: %w", row.Id, err)
		}
		out = append(out, EventRecord{
			ID: row.Id,
			Event: campaign.Event{
				CampaignID: row.CampaignId,
				Type:       row.EventType,
				Data:       data,
				At:         row.OccurredAt,
			},
		})
	}
	return out, total, nil
}

// decodeEventData 数字保留为 json.Number，避免大金额损失精度
func decodeEventData(raw string) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if raw == "" {
		return data, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func insertTiers(db *gorm.DB, campaignID uint64, tiers []campaign.Tier, offset int) error {
	if len(tiers) == 0 {
		return nil
	}
	rows := make([]model.TierModel, 0, len(tiers))
	for i, t := range tiers {
		rows = append(rows, model.TierModel{
			CampaignId: campaignID,
			TierId:     t.ID,
			Amount:     model.Amount(t.Amount),
			Position:   offset + i,
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert tiers of campaign %d: %w", campaignID, err)
	}
	return nil
}

func insertContributions(db *gorm.DB, campaignID uint64, contributions []campaign.Contribution) error {
	if len(contributions) == 0 {
		return nil
	}
	rows := make([]model.ContributionModel, 0, len(contributions))
	for _, c := range contributions {
		rows = append(rows, model.ContributionModel{
			Id:          c.ID,
			CreatedAt:   c.CreatedAt,
			CampaignId:  campaignID,
			Seq:         c.Seq,
			TierId:      c.TierID,
			Amount:      model.Amount(c.Amount),
			Contributor: c.Contributor,
			Reimbursed:  c.Reimbursed,
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert contributions of campaign %d: %w", campaignID, err)
	}
	return nil
}

func toCampaignModel(s campaign.Snapshot) model.CampaignModel {
	return model.CampaignModel{
		Id:                s.ID,
		CreatedAt:         s.CreatedAt,
		Owner:             s.Owner,
		Platform:          s.Platform,
		SoftCap:           model.Amount(s.SoftCap),
		HardCap:           model.Amount(s.HardCap),
		CurrentFunding:    model.Amount(s.CurrentFunding),
		Deadline:          s.Deadline,
		Status:            string(s.Status),
		FinalRefundIssued: s.FinalRefundIssued,
		OwnerSplitPercent: s.Policy.OwnerSplitPercent,
		HardCapInclusive:  s.Policy.HardCapInclusive,
		ImmediateSuccess:  s.Policy.ImmediateSuccess,
	}
}

func fromModels(row model.CampaignModel, tiers []model.TierModel, contributions []model.ContributionModel) (campaign.Snapshot, error) {
	soft, err := model.Uint64(row.SoftCap)
	if err != nil {
		return campaign.Snapshot{}, err
	}
	hard, err := model.Uint64(row.HardCap)
	if err != nil {
		return campaign.Snapshot{}, err
	}
	funding, err := model.Uint64(row.CurrentFunding)
	if err != nil {
		return campaign.Snapshot{}, err
	}

	snap := campaign.Snapshot{
		ID:                row.Id,
		Owner:             row.Owner,
		Platform:          row.Platform,
		SoftCap:           soft,
		HardCap:           hard,
		CurrentFunding:    funding,
		Deadline:          row.Deadline,
		Status:            campaign.Status(row.Status),
		FinalRefundIssued: row.FinalRefundIssued,
		Policy: campaign.Policy{
			OwnerSplitPercent: row.OwnerSplitPercent,
			HardCapInclusive:  row.HardCapInclusive,
			ImmediateSuccess:  row.ImmediateSuccess,
		},
		CreatedAt: row.CreatedAt,
	}
	for _, t := range tiers {
		amount, err := model.Uint64(t.Amount)
		if err != nil {
			return campaign.Snapshot{}, err
		}
		snap.Tiers = append(snap.Tiers, campaign.Tier{ID: t.TierId, Amount: amount})
	}
	for _, c := range contributions {
		amount, err := model.Uint64(c.Amount)
		if err != nil {
			return campaign.Snapshot{}, err
		}
		snap.Contributions = append(snap.Contributions, campaign.Contribution{
			ID:          c.Id,
			Seq:         c.Seq,
			TierID:      c.TierId,
			Amount:      amount,
			Contributor: c.Contributor,
			Reimbursed:  c.Reimbursed,
			CreatedAt:   c.CreatedAt,
		})
	}
	return snap, nil
}
