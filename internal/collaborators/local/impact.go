// Package local provides deterministic in-process collaborators for
// development and demos. They derive every answer from the proposed action
// itself, so the same request always gets the same decision.
package local

import (
	"strings"

	"tiergate/internal/pipeline/models"
)

var (
	harmfulTerms = map[string]float64{
		"clearcut":   0.5,
		"clear-cut":  0.5,
		"drain":      0.35,
		"dredge":     0.35,
		"pesticide":  0.3,
		"dump":       0.4,
		"extract":    0.25,
		"mine":       0.3,
		"dam":        0.25,
		"pave":       0.2,
		"incinerate": 0.3,
	}
	restorativeTerms = map[string]float64{
		"restore":   0.3,
		"rewild":    0.35,
		"plant":     0.2,
		"native":    0.1,
		"clean":     0.15,
		"protect":   0.2,
		"reforest":  0.3,
		"compost":   0.1,
		"remediate": 0.25,
	}
	irreversibleTerms = []string{"clearcut", "clear-cut", "drain", "extinct", "mine", "dredge"}
)

// impact is the heuristic footprint of an action.
type impact struct {
	harm         float64 // net harm in [-1, 1]; negative is restorative
	irreversible bool
	terms        int // recognised terms, drives confidence
}

func assessImpact(a *models.ProposedAction) impact {
	text := strings.ToLower(a.Kind + " " + a.Description + " " + strings.Join(a.ResourceFlow.Outputs, " "))
	var out impact
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '-' || r >= 'a' && r <= 'z')
	}) {
		for term, w := range harmfulTerms {
			if strings.HasPrefix(word, term) {
				out.harm += w
				out.terms++
			}
		}
		for term, w := range restorativeTerms {
			if strings.HasPrefix(word, term) {
				out.harm -= w
				out.terms++
			}
		}
		for _, term := range irreversibleTerms {
			if strings.HasPrefix(word, term) {
				out.irreversible = true
			}
		}
	}
	// Consuming more than it returns tips the balance toward harm.
	out.harm += 0.05 * float64(len(a.ResourceFlow.Inputs)-len(a.ResourceFlow.Outputs))
	out.harm = clamp(out.harm, -1, 1)
	return out
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// stringList reads a []string or []any of strings from an untyped map value.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
