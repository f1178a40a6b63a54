package domain

import "sort"

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// TierLimits is the quota policy. Adding a tier is a data change here plus a
// mapping in TierOf.
var TierLimits = map[Tier]int{
	TierFree:    3,
	TierPremium: 100,
}

func TierOf(isPremium bool) Tier {
	if isPremium {
		return TierPremium
	}
	return TierFree
}

// LimitFor returns the quota for a tier; unknown tiers get no quota.
func LimitFor(tier Tier) int {
	return TierLimits[tier]
}

// Premium reports the isPremium flag stored for a tier.
func (t Tier) Premium() bool {
	return t == TierPremium
}

// Tiers returns the configured tiers in a stable order.
func Tiers() []Tier {
	tiers := make([]Tier, 0, len(TierLimits))
	for tier := range TierLimits {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	return tiers
}
