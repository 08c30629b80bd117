package schema

// RiskTier is the ordinal severity attached to conditions and protocol results.
type RiskTier string

const (
	RiskUnknown  RiskTier = "Unknown"
	RiskLow      RiskTier = "Low"
	RiskMedium   RiskTier = "Medium"
	RiskHigh     RiskTier = "High"
	RiskCritical RiskTier = "Critical"
)

// Rank orders tiers Low < Medium < High < Critical. Unknown and
// unrecognised values rank 0.
func (r RiskTier) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether r is one of the four ordered tiers.
func (r RiskTier) Valid() bool {
	return r.Rank() > 0
}

// HighestRisk returns the most severe tier among tiers, starting from Low.
// Unrecognised tiers never raise the level.
func HighestRisk(tiers ...RiskTier) RiskTier {
	highest := RiskLow
	for _, t := range tiers {
		if t.Rank() > highest.Rank() {
			highest = t
		}
	}
	return highest
}
