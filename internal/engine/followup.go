package engine

import "github.com/jeevan-health/triage/pkg/schema"

// Followups returns the questions of every condition sharing at least one
// symptom with symptoms, deduplicated in first-seen order.
func Followups(symptoms []string, conditions []schema.Condition) []string {
	questions := []string{}
	seen := make(map[string]bool)
	for i := range conditions {
		c := &conditions[i]
		if !sharesSymptom(c, symptoms) {
			continue
		}
		for _, q := range c.Questions {
			if !seen[q] {
				seen[q] = true
				questions = append(questions, q)
			}
		}
	}
	return questions
}

func sharesSymptom(c *schema.Condition, symptoms []string) bool {
	for _, s := range symptoms {
		if c.HasSymptom(s) {
			return true
		}
	}
	return false
}
