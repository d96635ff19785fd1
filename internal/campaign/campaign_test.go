package campaign

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

const (
	owner    = "0xOwner"
	platform = "0xPlatform"
	alice    = "0xAlice"
	bob      = "0xBob"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func deadline() time.Time { return t0.Add(24 * time.Hour) }

func afterDeadline() time.Time { return deadline().Add(time.Minute) }

func newDraft(t *testing.T, soft, hard uint64, policy Policy) *Campaign {
	t.Helper()
	c, eff, err := New(Params{
		ID:       7,
		Owner:    owner,
		Platform: platform,
		SoftCap:  soft,
		HardCap:  hard,
		Deadline: deadline(),
		Policy:   policy,
	}, t0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if len(eff.Events) != 1 || eff.Events[0].Type != EventCampaignInitialized {
		t.Fatalf("unexpected init events: %+v", eff.Events)
	}
	return c
}

// newLive 创建已发布活动，tiers 依次为 id=1,2,... 的价格
func newLive(t *testing.T, soft, hard uint64, policy Policy, prices ...uint64) *Campaign {
	t.Helper()
	c := newDraft(t, soft, hard, policy)
	for i, price := range prices {
		if _, err := c.AddTier(owner, uint64(i+1), price, t0); err != nil {
			t.Fatalf("AddTier error: %v", err)
		}
	}
	if _, err := c.Publish(owner, t0); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	return c
}

func mustContribute(t *testing.T, c *Campaign, who string, tier, amount uint64) Effect {
	t.Helper()
	_, eff, err := c.Contribute(who, tier, amount, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Contribute(%s, %d, %d) error: %v", who, tier, amount, err)
	}
	if err := c.Audit(); err != nil {
		t.Fatalf("Audit error: %v", err)
	}
	return eff
}

func TestNewRejectsInvalidParams(t *testing.T) {
	base := Params{ID: 1, Owner: owner, Platform: platform, SoftCap: 10, HardCap: 20, Deadline: deadline(), Policy: DefaultPolicy()}
	cases := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero id", func(p *Params) { p.ID = 0 }},
		{"no owner", func(p *Params) { p.Owner = " " }},
		{"no platform", func(p *Params) { p.Platform = "" }},
		{"zero hard cap", func(p *Params) { p.HardCap = 0; p.SoftCap = 0 }},
		{"soft above hard", func(p *Params) { p.SoftCap = 21 }},
		{"deadline in past", func(p *Params) { p.Deadline = t0 }},
		{"split above 100", func(p *Params) { p.Policy.OwnerSplitPercent = 101 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			if _, _, err := New(p, t0); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestAddTierRules(t *testing.T) {
	c := newDraft(t, 10, 100, DefaultPolicy())

	if _, err := c.AddTier(alice, 1, 10, t0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := c.AddTier(owner, 1, 0, t0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero amount, got %v", err)
	}
	for i := uint64(1); i <= MaxTiers; i++ {
		if _, err := c.AddTier(owner, i, i*10, t0); err != nil {
			t.Fatalf("AddTier(%d) error: %v", i, err)
		}
	}
	if _, err := c.AddTier(owner, 6, 10, t0); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	d := newDraft(t, 10, 100, DefaultPolicy())
	if _, err := d.AddTier(owner, 3, 10, t0); err != nil {
		t.Fatalf("AddTier error: %v", err)
	}
	if _, err := d.AddTier(owner, 3, 20, t0); !errors.Is(err, ErrDuplicateTier) || !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrDuplicateTier, got %v", err)
	}
	if _, err := d.Publish(owner, t0); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if _, err := d.AddTier(owner, 4, 10, t0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after publish, got %v", err)
	}
	if got := d.Tiers(); len(got) != 1 || got[0] != (Tier{ID: 3, Amount: 10}) {
		t.Fatalf("unexpected tiers: %+v", got)
	}
}

func TestPublishRules(t *testing.T) {
	c := newDraft(t, 10, 100, DefaultPolicy())
	if _, err := c.Publish(owner, t0); !errors.Is(err, ErrNoTiers) {
		t.Fatalf("expected ErrNoTiers, got %v", err)
	}
	if _, err := c.AddTier(owner, 1, 10, t0); err != nil {
		t.Fatalf("AddTier error: %v", err)
	}
	if _, err := c.Publish(platform, t0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := c.Publish(owner, afterDeadline()); !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("expected ErrDeadlinePassed, got %v", err)
	}
	eff, err := c.Publish("0xowner", t0)
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if c.Status() != StatusLive {
		t.Fatalf("expected live, got %s", c.Status())
	}
	if len(eff.Events) != 2 || eff.Events[0].Type != EventStatusChanged || eff.Events[1].Type != EventCampaignPublished {
		t.Fatalf("unexpected publish events: %+v", eff.Events)
	}
	if _, err := c.Publish(owner, t0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second publish, got %v", err)
	}
}

func TestContributePreconditionOrder(t *testing.T) {
	draft := newDraft(t, 10, 100, DefaultPolicy())
	if _, err := draft.AddTier(owner, 1, 10, t0); err != nil {
		t.Fatalf("AddTier error: %v", err)
	}

	soldOut := newLive(t, 10, 20, DefaultPolicy(), 10)
	mustContribute(t, soldOut, alice, 1, 10)
	mustContribute(t, soldOut, bob, 1, 10)

	cases := []struct {
		name   string
		c      *Campaign
		tier   uint64
		amount uint64
		now    time.Time
		want   error
	}{
		{"draft", draft, 1, 10, t0, ErrInvalidState},
		{"deadline passed", newLive(t, 10, 100, DefaultPolicy(), 10), 1, 10, deadline(), ErrDeadlinePassed},
		{"sold out", soldOut, 1, 10, t0, ErrHardCapReached},
		{"unknown tier", newLive(t, 10, 100, DefaultPolicy(), 10), 9, 10, t0, ErrTierNotFound},
		{"wrong amount", newLive(t, 10, 100, DefaultPolicy(), 10), 1, 11, t0, ErrAmountMismatch},
		{"over hard cap", newLive(t, 10, 15, DefaultPolicy(), 20), 1, 20, t0, ErrHardCapReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.c.Snapshot()
			_, eff, err := tc.c.Contribute(alice, tc.tier, tc.amount, tc.now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(eff.Transfers) != 0 || len(eff.Events) != 0 {
				t.Fatalf("failed contribute produced effects: %+v", eff)
			}
			if tc.c.CurrentFunding() != before.CurrentFunding || len(tc.c.Contributions()) != len(before.Contributions) {
				t.Fatalf("failed contribute mutated campaign")
			}
		})
	}
}

func TestContributeReachesHardCapExactly(t *testing.T) {
	c := newLive(t, 50, 100, DefaultPolicy(), 50)
	eff := mustContribute(t, c, alice, 1, 50)
	if c.Status() != StatusLive {
		t.Fatalf("expected live before deadline, got %s", c.Status())
	}
	if len(eff.Transfers) != 1 || eff.Transfers[0] != (Transfer{CampaignID: 7, Kind: TransferContribution, From: alice, To: "custody:7", Amount: 50}) {
		t.Fatalf("unexpected transfers: %+v", eff.Transfers)
	}

	mustContribute(t, c, bob, 1, 50)
	if c.Status() != StatusSoldOut || c.CurrentFunding() != 100 {
		t.Fatalf("expected sold_out at 100, got %s at %d", c.Status(), c.CurrentFunding())
	}
	if _, _, err := c.Contribute(alice, 1, 50, t0); !errors.Is(err, ErrHardCapReached) {
		t.Fatalf("expected ErrHardCapReached once sold out, got %v", err)
	}
}

func TestContributeStrictHardCap(t *testing.T) {
	policy := DefaultPolicy()
	policy.HardCapInclusive = false
	c := newLive(t, 50, 100, policy, 50)
	mustContribute(t, c, alice, 1, 50)
	if _, _, err := c.Contribute(bob, 1, 50, t0); !errors.Is(err, ErrHardCapReached) {
		t.Fatalf("expected ErrHardCapReached under strict cap, got %v", err)
	}
	if c.CurrentFunding() != 50 {
		t.Fatalf("funding changed on rejected pledge: %d", c.CurrentFunding())
	}
}

func TestImmediateSuccessKeepsAcceptingPledges(t *testing.T) {
	policy := DefaultPolicy()
	policy.ImmediateSuccess = true
	c := newLive(t, 50, 200, policy, 50)
	mustContribute(t, c, alice, 1, 50)
	if c.Status() != StatusSuccessful {
		t.Fatalf("expected successful once soft cap is met, got %s", c.Status())
	}
	mustContribute(t, c, bob, 1, 50)
	if c.CurrentFunding() != 100 {
		t.Fatalf("expected funding 100, got %d", c.CurrentFunding())
	}
}

func TestFinalizeSuccessfulCampaign(t *testing.T) {
	c := newLive(t, 100, 200, DefaultPolicy(), 50)
	for _, who := range []string{alice, bob, alice} {
		mustContribute(t, c, who, 1, 50)
	}

	if _, _, err := c.Finalize(owner, t0.Add(time.Hour)); !errors.Is(err, ErrDeadlineNotReached) {
		t.Fatalf("expected ErrDeadlineNotReached, got %v", err)
	}
	if _, _, err := c.Finalize(alice, afterDeadline()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	outcome, eff, err := c.Finalize(platform, afterDeadline())
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if outcome != OutcomePaidOut {
		t.Fatalf("unexpected outcome: %s", outcome)
	}
	if got := eff.Total(TransferPayout); got != 135 {
		t.Fatalf("expected owner payout 135, got %d", got)
	}
	if got := eff.Total(TransferPlatformFee); got != 15 {
		t.Fatalf("expected platform fee 15, got %d", got)
	}
	if c.Status() != StatusFinal || c.CurrentFunding() != 0 || c.FinalRefundIssued() {
		t.Fatalf("unexpected final state: status=%s funding=%d refunded=%v", c.Status(), c.CurrentFunding(), c.FinalRefundIssued())
	}

	if _, _, err := c.Finalize(owner, afterDeadline()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after final, got %v", err)
	}
	if _, _, err := c.Contribute(alice, 1, 50, afterDeadline()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for contribute after final, got %v", err)
	}
}

func TestFinalizeSkipsZeroShares(t *testing.T) {
	policy := DefaultPolicy()
	policy.OwnerSplitPercent = 100
	c := newLive(t, 10, 100, policy, 10)
	mustContribute(t, c, alice, 1, 10)

	_, eff, err := c.Finalize(owner, afterDeadline())
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if len(eff.Transfers) != 1 || eff.Transfers[0].Kind != TransferPayout || eff.Transfers[0].Amount != 10 {
		t.Fatalf("expected single payout, got %+v", eff.Transfers)
	}
}

func TestFinalizeLazilyFailedCommitsTransitionOnly(t *testing.T) {
	c := newLive(t, 100, 200, DefaultPolicy(), 50)
	mustContribute(t, c, alice, 1, 50)

	outcome, eff, err := c.Finalize(owner, afterDeadline())
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if outcome != OutcomeFailed || c.Status() != StatusFailed {
		t.Fatalf("expected failed outcome, got %s / %s", outcome, c.Status())
	}
	if len(eff.Transfers) != 0 {
		t.Fatalf("failed finalize planned transfers: %+v", eff.Transfers)
	}
	if c.CurrentFunding() != 50 {
		t.Fatalf("funding changed: %d", c.CurrentFunding())
	}

	if _, _, err := c.Finalize(owner, afterDeadline()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for finalize on failed, got %v", err)
	}
}

func failedCampaign(t *testing.T) *Campaign {
	t.Helper()
	c := newLive(t, 200, 300, DefaultPolicy(), 50, 20)
	mustContribute(t, c, alice, 1, 50)
	mustContribute(t, c, bob, 2, 20)
	mustContribute(t, c, alice, 2, 20)
	return c
}

func TestRefundAggregatesPerContributor(t *testing.T) {
	c := failedCampaign(t)

	if _, err := c.Refund(owner, t0.Add(time.Hour)); !errors.Is(err, ErrDeadlineNotReached) {
		t.Fatalf("expected ErrDeadlineNotReached, got %v", err)
	}
	if _, err := c.Refund(bob, afterDeadline()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	eff, err := c.Refund(platform, afterDeadline())
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	want := []Transfer{
		{CampaignID: 7, Kind: TransferRefund, From: "custody:7", To: alice, Amount: 70},
		{CampaignID: 7, Kind: TransferRefund, From: "custody:7", To: bob, Amount: 20},
	}
	if len(eff.Transfers) != len(want) {
		t.Fatalf("unexpected transfers: %+v", eff.Transfers)
	}
	for i := range want {
		if eff.Transfers[i] != want[i] {
			t.Fatalf("transfer %d: got %+v want %+v", i, eff.Transfers[i], want[i])
		}
	}
	if c.Status() != StatusFinal || !c.FinalRefundIssued() || c.CurrentFunding() != 0 {
		t.Fatalf("unexpected state after refund: %s %v %d", c.Status(), c.FinalRefundIssued(), c.CurrentFunding())
	}
	if err := c.Audit(); err != nil {
		t.Fatalf("Audit error: %v", err)
	}
	if _, err := c.Refund(platform, afterDeadline()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second refund, got %v", err)
	}
}

func TestRefundRequiresFailed(t *testing.T) {
	c := newLive(t, 50, 100, DefaultPolicy(), 50)
	mustContribute(t, c, alice, 1, 50)
	if _, err := c.Refund(owner, afterDeadline()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for successful campaign, got %v", err)
	}
}

func TestReimburseThenFinal(t *testing.T) {
	c := failedCampaign(t)

	owed, eff, err := c.Reimburse("0xALICE", afterDeadline())
	if err != nil {
		t.Fatalf("Reimburse error: %v", err)
	}
	if owed != 70 || len(eff.Transfers) != 1 || eff.Transfers[0].To != "0xALICE" {
		t.Fatalf("unexpected reimburse: owed=%d transfers=%+v", owed, eff.Transfers)
	}
	if c.Status() != StatusFailed || c.CurrentFunding() != 20 {
		t.Fatalf("unexpected state: %s %d", c.Status(), c.CurrentFunding())
	}
	if _, _, err := c.Reimburse(alice, afterDeadline()); !errors.Is(err, ErrNoUnreimbursedContributions) {
		t.Fatalf("expected ErrNoUnreimbursedContributions, got %v", err)
	}
	if _, _, err := c.Reimburse("0xStranger", afterDeadline()); !errors.Is(err, ErrNoUnreimbursedContributions) {
		t.Fatalf("expected ErrNoUnreimbursedContributions for stranger, got %v", err)
	}

	if _, _, err := c.Reimburse(bob, afterDeadline()); err != nil {
		t.Fatalf("Reimburse error: %v", err)
	}
	if c.Status() != StatusFinal || !c.FinalRefundIssued() {
		t.Fatalf("expected final with refund flag, got %s %v", c.Status(), c.FinalRefundIssued())
	}
	if _, err := c.Refund(owner, afterDeadline()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestReimburseThenRefundRemaining(t *testing.T) {
	c := failedCampaign(t)
	if _, _, err := c.Reimburse(bob, afterDeadline()); err != nil {
		t.Fatalf("Reimburse error: %v", err)
	}
	eff, err := c.Refund(owner, afterDeadline())
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if len(eff.Transfers) != 1 || eff.Transfers[0].To != alice || eff.Transfers[0].Amount != 70 {
		t.Fatalf("refund must skip reimbursed contributions: %+v", eff.Transfers)
	}
}

func TestReimburseBeforeDeadline(t *testing.T) {
	c := failedCampaign(t)
	if _, _, err := c.Reimburse(alice, t0.Add(time.Hour)); !errors.Is(err, ErrDeadlineNotReached) {
		t.Fatalf("expected ErrDeadlineNotReached, got %v", err)
	}
}

func TestOwnerShareDoesNotOverflow(t *testing.T) {
	cases := []struct {
		funding, pct, want uint64
	}{
		{150, 90, 135},
		{1, 90, 0},
		{99, 50, 49},
		{math.MaxUint64, 100, math.MaxUint64},
		{math.MaxUint64, 90, 16602069666338596453},
		{math.MaxUint64, 0, 0},
	}
	for _, tc := range cases {
		if got := ownerShare(tc.funding, tc.pct); got != tc.want {
			t.Fatalf("ownerShare(%d, %d) = %d, want %d", tc.funding, tc.pct, got, tc.want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	c := newLive(t, 50, 100, DefaultPolicy(), 50)
	if _, changed := c.Evaluate(t0.Add(time.Hour)); changed {
		t.Fatalf("live campaign changed before deadline")
	}
	eff, changed := c.Evaluate(deadline())
	if !changed || c.Status() != StatusFailed {
		t.Fatalf("expected failed at deadline, got %s", c.Status())
	}
	if len(eff.Events) != 1 || eff.Events[0].Data["to"] != string(StatusFailed) {
		t.Fatalf("unexpected events: %+v", eff.Events)
	}
}

func TestSnapshotRestore(t *testing.T) {
	c := failedCampaign(t)
	snap := c.Snapshot()

	restored, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if restored.CurrentFunding() != 90 || len(restored.Contributions()) != 3 || restored.Contributors() != 2 {
		t.Fatalf("unexpected restored campaign: %+v", restored.Snapshot())
	}

	snap.CurrentFunding = 10
	if _, err := Restore(snap); err == nil {
		t.Fatalf("expected audit failure for inconsistent snapshot")
	}
	snap.CurrentFunding = 90
	snap.Status = "bogus"
	if _, err := Restore(snap); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown status, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := failedCampaign(t)
	cp := c.Clone()
	if _, err := cp.Refund(owner, afterDeadline()); err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if c.Status() != StatusLive || c.CurrentFunding() != 90 || len(c.Outstanding("")) != 3 {
		t.Fatalf("campaign mutated through clone: %s %d", c.Status(), c.CurrentFunding())
	}
}

func TestSoldOutRejectsFifthPledge(t *testing.T) {
	c := newLive(t, 100, 200, DefaultPolicy(), 50)
	for i := 0; i < 4; i++ {
		mustContribute(t, c, alice, 1, 50)
	}
	if c.Status() != StatusSoldOut {
		t.Fatalf("expected sold_out after fourth pledge, got %s", c.Status())
	}
	if _, _, err := c.Contribute(bob, 1, 50, t0.Add(time.Hour)); !errors.Is(err, ErrHardCapReached) {
		t.Fatalf("expected ErrHardCapReached, got %v", err)
	}
}

func TestFinalizeSplitsNinetyTen(t *testing.T) {
	c := newLive(t, 1000, 2000, DefaultPolicy(), 500)
	mustContribute(t, c, alice, 1, 500)
	mustContribute(t, c, bob, 1, 500)

	_, eff, err := c.Finalize(owner, afterDeadline())
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if eff.Total(TransferPayout) != 900 || eff.Total(TransferPlatformFee) != 100 {
		t.Fatalf("unexpected split: %+v", eff.Transfers)
	}
	if eff.Transfers[0].To != owner || eff.Transfers[1].To != platform {
		t.Fatalf("unexpected recipients: %+v", eff.Transfers)
	}
}

func TestFinalCampaignRejectsMutations(t *testing.T) {
	paidOut := newLive(t, 50, 100, DefaultPolicy(), 50)
	mustContribute(t, paidOut, alice, 1, 50)
	if _, _, err := paidOut.Finalize(owner, afterDeadline()); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	refunded := failedCampaign(t)
	if _, err := refunded.Refund(owner, afterDeadline()); err != nil {
		t.Fatalf("Refund error: %v", err)
	}

	ops := []struct {
		name string
		run  func(c *Campaign) (Effect, error)
	}{
		{"add tier", func(c *Campaign) (Effect, error) { return c.AddTier(owner, 9, 10, afterDeadline()) }},
		{"publish", func(c *Campaign) (Effect, error) { return c.Publish(owner, afterDeadline()) }},
		{"contribute", func(c *Campaign) (Effect, error) {
			_, eff, err := c.Contribute(alice, 1, 50, t0.Add(time.Hour))
			return eff, err
		}},
		{"finalize", func(c *Campaign) (Effect, error) {
			_, eff, err := c.Finalize(platform, afterDeadline())
			return eff, err
		}},
		{"refund", func(c *Campaign) (Effect, error) { return c.Refund(platform, afterDeadline()) }},
		{"reimburse", func(c *Campaign) (Effect, error) {
			_, eff, err := c.Reimburse(alice, afterDeadline())
			return eff, err
		}},
	}
	for _, final := range []struct {
		name string
		c    *Campaign
	}{{"paid out", paidOut}, {"refunded", refunded}} {
		for _, op := range ops {
			t.Run(final.name+"/"+op.name, func(t *testing.T) {
				before := final.c.Snapshot()
				eff, err := op.run(final.c)
				if !errors.Is(err, ErrInvalidState) {
					t.Fatalf("expected ErrInvalidState, got %v", err)
				}
				if len(eff.Transfers) != 0 || len(eff.Events) != 0 {
					t.Fatalf("rejected operation produced effects: %+v", eff)
				}
				if after := final.c.Snapshot(); !reflect.DeepEqual(before, after) {
					t.Fatalf("final campaign mutated:\nbefore %+v\nafter  %+v", before, after)
				}
			})
		}
	}
}
