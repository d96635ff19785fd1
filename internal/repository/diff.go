package repository

import (
	"fmt"

	"github.com/blues/crowdfund/internal/campaign"
)

// campaignDiff 两个快照之间允许的变化：档位与认筹只追加，认筹只能由未退款变为已退款
type campaignDiff struct {
	next             campaign.Snapshot
	newTiers         []campaign.Tier
	tierOffset       int
	newContributions []campaign.Contribution
	reimbursed       []string
}

func diff(prev, next campaign.Snapshot) (campaignDiff, error) {
	d := campaignDiff{next: next, tierOffset: len(prev.Tiers)}
	if prev.ID != next.ID {
		return d, fmt.Errorf("update of campaign %d with snapshot of %d", prev.ID, next.ID)
	}
	if len(next.Tiers) < len(prev.Tiers) {
		return d, fmt.Errorf("campaign %d: tiers removed", next.ID)
	}
	for i := range prev.Tiers {
		if prev.Tiers[i] != next.Tiers[i] {
			return d, fmt.Errorf("campaign %d: tier %d rewritten", next.ID, prev.Tiers[i].ID)
		}
	}
	if len(next.Contributions) < len(prev.Contributions) {
		return d, fmt.Errorf("campaign %d: contributions removed", next.ID)
	}
	for i, p := range prev.Contributions {
		n := next.Contributions[i]
		if p.ID != n.ID {
			return d, fmt.Errorf("campaign %d: contribution %s rewritten", next.ID, p.ID)
		}
		switch {
		case !p.Reimbursed && n.Reimbursed:
			d.reimbursed = append(d.reimbursed, n.ID)
		case p.Reimbursed && !n.Reimbursed:
			return d, fmt.Errorf("campaign %d: contribution %s un-reimbursed", next.ID, p.ID)
		}
	}
	d.newTiers = next.Tiers[len(prev.Tiers):]
	d.newContributions = next.Contributions[len(prev.Contributions):]
	return d, nil
}
