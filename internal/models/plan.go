package models

import "time"

// PlanTier orders the catalog tiers; a template may be used by any order whose
// plan tier is at or above the template's tier.
type PlanTier string

const (
	TierBasic   PlanTier = "BASIC"
	TierPremium PlanTier = "PREMIUM"
	TierLuxury  PlanTier = "LUXURY"
)

var tierRank = map[PlanTier]int{
	TierBasic:   1,
	TierPremium: 2,
	TierLuxury:  3,
}

func (t PlanTier) IsValid() bool {
	_, ok := tierRank[t]
	return ok
}

// Covers reports whether an order on tier t may use a template of tier other.
func (t PlanTier) Covers(other PlanTier) bool {
	return tierRank[t] >= tierRank[other]
}

// Plan is static reference data describing a purchasable capacity package.
type Plan struct {
	Code             string   `json:"code"`
	Name             string   `json:"name"`
	Tier             PlanTier `json:"tier"`
	BaseRegularLimit int      `json:"base_regular_limit"`
	BaseTestLimit    int      `json:"base_test_limit"`
	ValidityHours    int      `json:"validity_hours"`
}

// ValidityWindow is how long an invitation activated under this plan stays open.
func (p Plan) ValidityWindow() time.Duration {
	return time.Duration(p.ValidityHours) * time.Hour
}

// Template is a catalog entry a customer picks when finalizing an order.
type Template struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Tier PlanTier `json:"tier"`
}
