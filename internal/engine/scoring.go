package engine

import (
	"math"
	"sort"

	"github.com/jeevan-health/triage/pkg/schema"
)

// Fallback texts returned when no condition scores above zero.
const (
	FallbackRecommendation = "No concerning conditions matched. Please rest and monitor."
	FallbackExplanation    = "No specific conditions matched the provided symptoms."
)

const (
	// severeWeight is the weight a matched symptom must exceed to add its
	// weight to the score as a bonus.
	severeWeight = 2
	maxRanked    = 3
	maxScore     = 100
)

// ErrCatalogUnavailable is returned when there are no conditions to score against.
var ErrCatalogUnavailable = schema.NewError(schema.ErrCodeStore, "conditions catalog unavailable")

type scoredCondition struct {
	cond        *schema.Condition
	score       int
	explanation []string
}

// Score ranks conditions against symptoms. Duplicate symptoms are counted
// once. The result keeps at most three conditions with a positive score,
// highest first, ties in catalog order.
func Score(symptoms []string, conditions []schema.Condition) (*schema.TriageResult, error) {
	if len(conditions) == 0 {
		return nil, ErrCatalogUnavailable
	}
	symptoms = dedupe(symptoms)

	scored := make([]scoredCondition, 0, len(conditions))
	for i := range conditions {
		scored = append(scored, scoreCondition(&conditions[i], symptoms))
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	var kept []scoredCondition
	for _, sc := range scored {
		if sc.score <= 0 || len(kept) == maxRanked {
			break
		}
		kept = append(kept, sc)
	}
	if len(kept) == 0 {
		return fallbackResult(), nil
	}

	res := &schema.TriageResult{
		Mode:            schema.ModeSymptom,
		Conditions:      make([]schema.ConditionScore, 0, len(kept)),
		Recommendations: kept[0].cond.Action,
	}
	tiers := make([]schema.RiskTier, 0, len(kept))
	seen := make(map[string]bool)
	for _, sc := range kept {
		res.Conditions = append(res.Conditions, schema.ConditionScore{Name: sc.cond.Name, Score: sc.score})
		tiers = append(tiers, sc.cond.Risk)
		for _, line := range sc.explanation {
			if !seen[line] {
				seen[line] = true
				res.Explanation = append(res.Explanation, line)
			}
		}
	}
	res.RiskLevel = schema.HighestRisk(tiers...)
	return res, nil
}

func scoreCondition(c *schema.Condition, symptoms []string) scoredCondition {
	sc := scoredCondition{cond: c}
	var matched int
	var bonus float64
	for _, s := range symptoms {
		if !c.HasSymptom(s) {
			continue
		}
		matched++
		sc.explanation = append(sc.explanation, s+" matched")
		if w := c.Weights[s]; w > severeWeight {
			bonus += w
			sc.explanation = append(sc.explanation, s+" increases risk")
		}
	}

	var base float64
	if len(c.Symptoms) > 0 {
		base = float64(matched) / float64(len(c.Symptoms)) * 100
	}
	sc.score = int(math.Min(math.Round(base+bonus), maxScore))
	return sc
}

func fallbackResult() *schema.TriageResult {
	return &schema.TriageResult{
		Mode:            schema.ModeSymptom,
		Conditions:      []schema.ConditionScore{},
		RiskLevel:       schema.RiskLow,
		Recommendations: FallbackRecommendation,
		Explanation:     []string{FallbackExplanation},
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
