package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/rail"
)

// MemoryStore 内存存储。写入先暂存，fn 成功后与账本暂存一起在锁内提交；
// 提交时校验活动版本，防止绕过活动锁的并发修改。
type MemoryStore struct {
	mu        sync.RWMutex
	campaigns map[uint64]*memoryRow
	events    []EventRecord
	nextEvent int64
	ledger    *rail.MemoryLedger
}

type memoryRow struct {
	snap    campaign.Snapshot
	version int64
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[uint64]*memoryRow),
		ledger:    rail.NewMemoryLedger(),
	}
}

// Atomic 执行 fn，成功时一次性提交全部暂存写入
func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{
		store:   s,
		ledger:  s.ledger.Begin(),
		read:    make(map[uint64]int64),
		created: make(map[uint64]bool),
		writes:  make(map[uint64]campaign.Snapshot),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type memoryTx struct {
	store   *MemoryStore
	ledger  *rail.StagedLedger
	read    map[uint64]int64 // 读取时的版本
	created map[uint64]bool
	writes  map[uint64]campaign.Snapshot
	order   []uint64
	events  []campaign.Event
}

func (t *memoryTx) Campaigns() CampaignRepository { return (*memoryCampaigns)(t) }
func (t *memoryTx) Events() EventRepository       { return (*memoryEvents)(t) }
func (t *memoryTx) Ledger() rail.Ledger           { return t.ledger }

func (t *memoryTx) stage(s campaign.Snapshot) {
	if _, ok := t.writes[s.ID]; !ok {
		t.order = append(t.order, s.ID)
	}
	t.writes[s.ID] = s
}

func (t *memoryTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range t.created {
		if _, ok := s.campaigns[id]; ok {
			return fmt.Errorf("%w: %d", campaign.ErrAlreadyExists, id)
		}
	}
	for id, version := range t.read {
		if _, ok := t.writes[id]; !ok {
			continue
		}
		row, ok := s.campaigns[id]
		if !ok || row.version != version {
			return fmt.Errorf("%w: %d", ErrConflict, id)
		}
	}
	if err := t.ledger.Commit(); err != nil {
		return err
	}

	for _, id := range t.order {
		row, ok := s.campaigns[id]
		if !ok {
			row = &memoryRow{}
			s.campaigns[id] = row
		}
		row.snap = t.writes[id]
		row.version++
	}
	for _, e := range t.events {
		s.nextEvent++
		s.events = append(s.events, EventRecord{ID: s.nextEvent, Event: e})
	}
	return nil
}

type memoryCampaigns memoryTx

func (r *memoryCampaigns) tx() *memoryTx { return (*memoryTx)(r) }

func (r *memoryCampaigns) Create(_ context.Context, c *campaign.Campaign) error {
	tx := r.tx()
	id := c.ID()
	if _, ok := tx.writes[id]; ok {
		return fmt.Errorf("%w: %d", campaign.ErrAlreadyExists, id)
	}
	tx.store.mu.RLock()
	_, exists := tx.store.campaigns[id]
	tx.store.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %d", campaign.ErrAlreadyExists, id)
	}
	tx.created[id] = true
	tx.stage(c.Snapshot())
	return nil
}

func (r *memoryCampaigns) Get(_ context.Context, id uint64) (*campaign.Campaign, error) {
	tx := r.tx()
	if snap, ok := tx.writes[id]; ok {
		return campaign.Restore(snap)
	}
	tx.store.mu.RLock()
	row, ok := tx.store.campaigns[id]
	var snap campaign.Snapshot
	if ok {
		snap = row.snap
		if _, seen := tx.read[id]; !seen {
			tx.read[id] = row.version
		}
	}
	tx.store.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", campaign.ErrNotFound, id)
	}
	return campaign.Restore(snap)
}

func (r *memoryCampaigns) Update(ctx context.Context, prev, next *campaign.Campaign) error {
	tx := r.tx()
	d, err := diff(prev.Snapshot(), next.Snapshot())
	if err != nil {
		return err
	}
	id := d.next.ID
	if _, ok := tx.writes[id]; !ok {
		if _, ok := tx.read[id]; !ok {
			// 未经 Get 加载的活动，先登记版本
			if _, err := r.Get(ctx, id); err != nil {
				return err
			}
		}
	}
	tx.stage(d.next)
	return nil
}

func (r *memoryCampaigns) List(_ context.Context, filter ListFilter) ([]Summary, int64, error) {
	tx := r.tx()
	byID := make(map[uint64]Summary)
	tx.store.mu.RLock()
	for id, row := range tx.store.campaigns {
		byID[id] = summarize(row.snap)
	}
	tx.store.mu.RUnlock()
	for id, snap := range tx.writes {
		byID[id] = summarize(snap)
	}

	var matched []Summary
	for _, s := range byID {
		if filter.match(s) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return page(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

type memoryEvents memoryTx

func (r *memoryEvents) Append(_ context.Context, events []campaign.Event) error {
	tx := (*memoryTx)(r)
	tx.events = append(tx.events, events...)
	return nil
}

func (r *memoryEvents) List(_ context.Context, campaignID uint64, offset, limit int) ([]EventRecord, int64, error) {
	tx := (*memoryTx)(r)
	var matched []EventRecord
	tx.store.mu.RLock()
	for _, e := range tx.store.events {
		if e.CampaignID == campaignID {
			matched = append(matched, e)
		}
	}
	tx.store.mu.RUnlock()
	for _, e := range tx.events {
		if e.CampaignID == campaignID {
			matched = append(matched, EventRecord{Event: e})
		}
	}
	return page(matched, offset, limit), int64(len(matched)), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
