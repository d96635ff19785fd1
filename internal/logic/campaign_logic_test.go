package logic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/lock"
	"github.com/blues/crowdfund/internal/rail"
	"github.com/blues/crowdfund/internal/repository"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
)

const (
	owner    = "0xowner"
	platform = "0xplatform"
	alice    = "0xalice"
	bob      = "0xbob"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	campaigns *CampaignLogic
	accounts  *AccountLogic
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, repository.NewMemoryStore())
}

func newGormFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return newFixtureWith(t, repository.NewGormStore(db))
}

func newFixtureWith(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	f := &fixture{
		campaigns: NewCampaignLogic(store, lock.NewKeyedMutex(), campaign.DefaultPolicy(), time.Second),
		accounts:  NewAccountLogic(store, true),
		now:       t0,
	}
	f.campaigns.SetClock(func() time.Time { return f.now })
	return f
}

// setup 创建并发布活动：软顶 100，硬顶 200，档位 1=50，2=30
func (f *fixture) setup(t *testing.T, id uint64) {
	t.Helper()
	ctx := context.Background()
	_, err := f.campaigns.InitCampaign(ctx, owner, InitCampaignInput{
		ID:       id,
		Platform: platform,
		SoftCap:  100,
		HardCap:  200,
		Deadline: t0.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("InitCampaign error: %v", err)
	}
	if _, err := f.campaigns.AddTier(ctx, owner, id, 1, 50); err != nil {
		t.Fatalf("AddTier error: %v", err)
	}
	if _, err := f.campaigns.AddTier(ctx, owner, id, 2, 30); err != nil {
		t.Fatalf("AddTier error: %v", err)
	}
	if _, err := f.campaigns.Publish(ctx, owner, id); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
}

func (f *fixture) deposit(t *testing.T, address string, amount uint64) {
	t.Helper()
	if _, err := f.accounts.Deposit(context.Background(), address, amount); err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, address string) uint64 {
	t.Helper()
	view, err := f.accounts.GetAccount(context.Background(), address, 0, 10)
	if err != nil {
		t.Fatalf("GetAccount(%s) error: %v", address, err)
	}
	return view.Balance
}

func TestSuccessfulCampaignPaysOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setup(t, 1)
	f.deposit(t, alice, 100)
	f.deposit(t, bob, 100)

	for _, c := range []struct {
		who    string
		tier   uint64
		amount uint64
	}{{alice, 1, 50}, {bob, 1, 50}, {"0xBOB", 2, 30}} {
		if _, err := f.campaigns.Contribute(ctx, c.who, 1, c.tier, c.amount); err != nil {
			t.Fatalf("Contribute(%s) error: %v", c.who, err)
		}
	}
	if got := f.balance(t, campaign.CustodyAccount(1)); got != 130 {
		t.Fatalf("custody balance = %d, want 130", got)
	}

	if _, err := f.campaigns.Finalize(ctx, owner, 1); !errors.Is(err, campaign.ErrDeadlineNotReached) {
		t.Fatalf("expected ErrDeadlineNotReached, got %v", err)
	}

	f.now = t0.Add(25 * time.Hour)
	res, err := f.campaigns.Finalize(ctx, platform, 1)
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if res.Outcome != campaign.OutcomePaidOut || res.OwnerShare != 117 || res.PlatformShare != 13 {
		t.Fatalf("unexpected finalize result: %+v", res)
	}
	if res.Campaign.Status != campaign.StatusFinal || res.Campaign.CurrentFunding != 0 {
		t.Fatalf("unexpected campaign: %+v", res.Campaign)
	}
	if f.balance(t, owner) != 117 || f.balance(t, platform) != 13 || f.balance(t, campaign.CustodyAccount(1)) != 0 {
		t.Fatalf("unexpected balances after payout")
	}

	stats, err := f.campaigns.GetStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.ContributorCount != 2 || stats.ContributionCount != 3 || stats.RemainingSeconds != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	records, total, err := f.campaigns.ListContributions(ctx, 1, bob, 0, 10)
	if err != nil {
		t.Fatalf("ListContributions error: %v", err)
	}
	if total != 2 || len(records) != 2 || records[1].Amount != 30 {
		t.Fatalf("unexpected contributions for bob: total=%d %+v", total, records)
	}

	events, total, err := f.campaigns.ListEvents(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ListEvents error: %v", err)
	}
	if events[0].Type != campaign.EventCampaignInitialized || events[total-1].Type != campaign.EventStatusChanged {
		t.Fatalf("unexpected event order: first %s, last %s", events[0].Type, events[total-1].Type)
	}
}

func TestFailedCampaignReimburseThenRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setup(t, 2)
	f.deposit(t, alice, 100)
	f.deposit(t, bob, 100)

	if _, err := f.campaigns.Contribute(ctx, alice, 2, 1, 50); err != nil {
		t.Fatalf("Contribute error: %v", err)
	}
	if _, err := f.campaigns.Contribute(ctx, bob, 2, 2, 30); err != nil {
		t.Fatalf("Contribute error: %v", err)
	}

	f.now = t0.Add(25 * time.Hour)
	res, err := f.campaigns.Reimburse(ctx, alice, 2)
	if err != nil {
		t.Fatalf("Reimburse error: %v", err)
	}
	if res.Amount != 50 || res.Campaign.Status != campaign.StatusFailed {
		t.Fatalf("unexpected reimburse result: %+v", res)
	}
	if _, err := f.campaigns.Reimburse(ctx, alice, 2); !errors.Is(err, campaign.ErrNoUnreimbursedContributions) {
		t.Fatalf("expected ErrNoUnreimbursedContributions, got %v", err)
	}
	if _, err := f.campaigns.Refund(ctx, alice, 2); !errors.Is(err, campaign.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	refund, err := f.campaigns.Refund(ctx, owner, 2)
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if refund.Refunded != 30 || len(refund.Transfers) != 1 || refund.Transfers[0].To != bob {
		t.Fatalf("unexpected refund: %+v", refund)
	}
	if !refund.Campaign.FinalRefundIssued || refund.Campaign.Status != campaign.StatusFinal {
		t.Fatalf("unexpected campaign after refund: %+v", refund.Campaign)
	}
	if f.balance(t, alice) != 100 || f.balance(t, bob) != 100 {
		t.Fatalf("contributors not made whole")
	}
}

func TestFinalizeCommitsLazyFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setup(t, 3)
	f.deposit(t, alice, 50)
	if _, err := f.campaigns.Contribute(ctx, alice, 3, 1, 50); err != nil {
		t.Fatalf("Contribute error: %v", err)
	}

	f.now = t0.Add(25 * time.Hour)
	res, err := f.campaigns.Finalize(ctx, owner, 3)
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if res.Outcome != campaign.OutcomeFailed || res.Campaign.Status != campaign.StatusFailed {
		t.Fatalf("unexpected result: %+v", res)
	}

	view, err := f.campaigns.GetCampaign(ctx, 3)
	if err != nil {
		t.Fatalf("GetCampaign error: %v", err)
	}
	if view.Status != campaign.StatusFailed || view.CurrentFunding != 50 {
		t.Fatalf("failed transition not committed: %+v", view)
	}
	if _, err := f.campaigns.Finalize(ctx, owner, 3); !errors.Is(err, campaign.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestContributeRollsBackWithoutFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setup(t, 4)
	f.deposit(t, alice, 40)

	if _, err := f.campaigns.Contribute(ctx, alice, 4, 1, 50); !errors.Is(err, rail.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := f.campaigns.Contribute(ctx, bob, 4, 1, 50); !errors.Is(err, rail.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	view, err := f.campaigns.GetCampaign(ctx, 4)
	if err != nil {
		t.Fatalf("GetCampaign error: %v", err)
	}
	if view.CurrentFunding != 0 {
		t.Fatalf("funding leaked from failed contribution: %d", view.CurrentFunding)
	}
	if _, total, _ := f.campaigns.ListContributions(ctx, 4, "", 0, 10); total != 0 {
		t.Fatalf("contribution persisted after rollback: %d", total)
	}
	if f.balance(t, alice) != 40 {
		t.Fatalf("alice balance changed")
	}
}

func TestInitCampaignRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := InitCampaignInput{ID: 5, Owner: owner, Platform: platform, SoftCap: 10, HardCap: 20, Deadline: t0.Add(time.Hour)}

	if _, err := f.campaigns.InitCampaign(ctx, alice, in); !errors.Is(err, campaign.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	split := uint64(70)
	in.OwnerSplitPercent = &split
	view, err := f.campaigns.InitCampaign(ctx, "0xOWNER", in)
	if err != nil {
		t.Fatalf("InitCampaign error: %v", err)
	}
	if view.Policy.OwnerSplitPercent != 70 || view.Status != campaign.StatusDraft || len(view.Tiers) != 0 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if _, err := f.campaigns.InitCampaign(ctx, owner, in); !errors.Is(err, campaign.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	over := uint64(101)
	in.ID, in.OwnerSplitPercent = 6, &over
	if _, err := f.campaigns.InitCampaign(ctx, owner, in); !errors.Is(err, campaign.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.campaigns.GetCampaign(ctx, 6); !errors.Is(err, campaign.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentContributionsRespectHardCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setup(t, 7)

	contributors := []string{"0x01", "0x02", "0x03", "0x04", "0x05", "0x06", "0x07", "0x08"}
	for _, c := range contributors {
		f.deposit(t, c, 50)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, c := range contributors {
		wg.Add(1)
		go func(who string) {
			defer wg.Done()
			_, err := f.campaigns.Contribute(ctx, who, 7, 1, 50)
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case !errors.Is(err, campaign.ErrHardCapReached):
				t.Errorf("Contribute(%s) unexpected error: %v", who, err)
			}
		}(c)
	}
	wg.Wait()

	if accepted != 4 {
		t.Fatalf("accepted %d contributions, want 4", accepted)
	}
	view, err := f.campaigns.GetCampaign(ctx, 7)
	if err != nil {
		t.Fatalf("GetCampaign error: %v", err)
	}
	if view.Status != campaign.StatusSoldOut || view.CurrentFunding != 200 {
		t.Fatalf("unexpected campaign: %+v", view)
	}
	if got := f.balance(t, campaign.CustodyAccount(7)); got != 200 {
		t.Fatalf("custody balance = %d, want 200", got)
	}
}

func TestSettle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setup(t, 8)
	f.setup(t, 9)
	f.deposit(t, alice, 200)
	for i := 0; i < 2; i++ {
		if _, err := f.campaigns.Contribute(ctx, alice, 8, 1, 50); err != nil {
			t.Fatalf("Contribute error: %v", err)
		}
	}
	if _, err := f.campaigns.Contribute(ctx, alice, 9, 2, 30); err != nil {
		t.Fatalf("Contribute error: %v", err)
	}

	f.now = t0.Add(48 * time.Hour)
	changed, err := f.campaigns.Evaluate(ctx, 9)
	if err != nil || !changed {
		t.Fatalf("Evaluate = %v, %v", changed, err)
	}
	if changed, _ := f.campaigns.Evaluate(ctx, 9); changed {
		t.Fatalf("second Evaluate reported a change")
	}

	for _, id := range []uint64{8, 9} {
		status, err := f.campaigns.Settle(ctx, id)
		if err != nil {
			t.Fatalf("Settle(%d) error: %v", id, err)
		}
		if status != campaign.StatusFinal {
			t.Fatalf("Settle(%d) status = %s", id, status)
		}
	}
	if f.balance(t, owner) != 90 || f.balance(t, platform) != 10 || f.balance(t, alice) != 100 {
		t.Fatalf("unexpected balances after settle")
	}
	if _, err := f.campaigns.Settle(ctx, 8); !errors.Is(err, campaign.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for final campaign, got %v", err)
	}
}

func TestResolveRecipients(t *testing.T) {
	ctx := context.Background()
	ledger := rail.NewMemoryLedger().Begin()
	if err := ledger.Open(ctx, alice); err != nil {
		t.Fatalf("Open error: %v", err)
	}

	ok := []campaign.Transfer{
		{Kind: campaign.TransferRefund, To: alice, Amount: 1},
		{Kind: campaign.TransferPayout, To: "0xnobody", Amount: 1},
	}
	if err := resolveRecipients(ctx, ledger, ok); err != nil {
		t.Fatalf("resolveRecipients error: %v", err)
	}

	missing := []campaign.Transfer{{Kind: campaign.TransferReimburse, To: bob, Amount: 1}}
	if err := resolveRecipients(ctx, ledger, missing); !errors.Is(err, campaign.ErrContributorNotFound) {
		t.Fatalf("expected ErrContributorNotFound, got %v", err)
	}
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	if _, err := NewAccountLogic(store, false).Deposit(ctx, alice, 10); !errors.Is(err, ErrDepositDisabled) {
		t.Fatalf("expected ErrDepositDisabled, got %v", err)
	}

	accounts := NewAccountLogic(store, true)
	if _, err := accounts.Deposit(ctx, "custody:1", 10); !errors.Is(err, campaign.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := accounts.Deposit(ctx, alice, 0); !errors.Is(err, rail.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	balance, err := accounts.Deposit(ctx, "0xALICE", 10)
	if err != nil || balance != 10 {
		t.Fatalf("Deposit = %d, %v", balance, err)
	}
	view, err := accounts.GetAccount(ctx, alice, 0, 10)
	if err != nil {
		t.Fatalf("GetAccount error: %v", err)
	}
	if view.Balance != 10 || view.Total != 1 || view.Records[0].Kind != rail.KindDeposit {
		t.Fatalf("unexpected account view: %+v", view)
	}
	if _, err := accounts.GetAccount(ctx, bob, 0, 10); !errors.Is(err, rail.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestLifecycleOnGormStore(t *testing.T) {
	f := newGormFixture(t)
	ctx := context.Background()
	f.setup(t, 10)
	f.setup(t, 11)
	f.deposit(t, alice, 300)
	f.deposit(t, bob, 300)

	for _, id := range []uint64{10, 10, 11} {
		if _, err := f.campaigns.Contribute(ctx, alice, id, 1, 50); err != nil {
			t.Fatalf("Contribute(%d) error: %v", id, err)
		}
	}
	if _, err := f.campaigns.Contribute(ctx, bob, 11, 2, 30); err != nil {
		t.Fatalf("Contribute error: %v", err)
	}
	if _, err := f.campaigns.Contribute(ctx, bob, 10, 1, 40); !errors.Is(err, campaign.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}

	f.now = t0.Add(25 * time.Hour)
	res, err := f.campaigns.Finalize(ctx, owner, 10)
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if res.OwnerShare != 90 || res.PlatformShare != 10 {
		t.Fatalf("unexpected split: %+v", res)
	}

	if _, err := f.campaigns.Reimburse(ctx, bob, 11); err != nil {
		t.Fatalf("Reimburse error: %v", err)
	}
	refund, err := f.campaigns.Refund(ctx, platform, 11)
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if refund.Refunded != 50 || refund.Campaign.Status != campaign.StatusFinal {
		t.Fatalf("unexpected refund: %+v", refund)
	}

	if f.balance(t, alice) != 200 || f.balance(t, bob) != 300 || f.balance(t, owner) != 90 || f.balance(t, platform) != 10 {
		t.Fatalf("unexpected balances: alice %d bob %d owner %d platform %d",
			f.balance(t, alice), f.balance(t, bob), f.balance(t, owner), f.balance(t, platform))
	}

	view, err := f.accounts.GetAccount(ctx, campaign.CustodyAccount(11), 0, 10)
	if err != nil {
		t.Fatalf("GetAccount error: %v", err)
	}
	if view.Balance != 0 || view.Total != 4 {
		t.Fatalf("unexpected custody history: balance %d, %d records", view.Balance, view.Total)
	}

	items, total, err := f.campaigns.ListCampaigns(ctx, repository.ListFilter{Statuses: []campaign.Status{campaign.StatusFinal}})
	if err != nil {
		t.Fatalf("ListCampaigns error: %v", err)
	}
	if total != 2 || len(items) != 2 || !items[1].FinalRefundIssued || items[0].FinalRefundIssued {
		t.Fatalf("unexpected final campaigns: %+v", items)
	}
}
