package risk

import (
	"fmt"
	"math"

	"github.com/privsentry/pii-sentinel/internal/entity"
)

// Decision is the categorical outcome of an assessment.
type Decision string

const (
	Approved              Decision = "approved"
	ApprovedWithConds     Decision = "approved_with_conditions"
	RequiresModifications Decision = "requires_modifications"
	Rejected              Decision = "rejected"
	CriticalViolation     Decision = "critical_violation"
)

// Level is the five-bucket risk classification by score range.
type Level string

const (
	VeryLow       Level = "very_low"
	Low           Level = "low"
	Medium        Level = "medium"
	High          Level = "high"
	CriticalLevel Level = "critical"
)

// Issues carries findings from the external compliance-rule
// collaborator. The scorer consumes the counts as opaque integers.
type Issues struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
}

// Reason is one element of the decision rationale, a stable code plus
// human text, produced as data rather than formatting logic.
type Reason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Assessment is the derived, read-only risk view over a canonical
// entity set.
type Assessment struct {
	Score           int      `json:"risk_score"`
	Level           Level    `json:"risk_level"`
	Decision        Decision `json:"decision"`
	Confidence      float64  `json:"confidence"`
	Reasons         []Reason `json:"reasons"`
	RequiredActions []string `json:"required_actions"`
}

// Scoring weights: each term is capped independently so no single
// factor dominates the total.
const (
	criticalWeight    = 10
	criticalCap       = 30
	highWeight        = 5
	highCap           = 15
	volumeWeight      = 2
	volumeCap         = 10
	alwaysCriticalAdd = 25
	issueWeight       = 5
	issueCap          = 20
)

// Assess computes the deterministic risk view. It is pure: the same
// entities and issues always produce the same assessment, and the
// empty entity set scores zero and is approved.
func Assess(entities []entity.Entity, issues Issues) Assessment {
	var criticalCount, highCount int
	hasAlwaysCritical := false
	for _, e := range entities {
		switch e.Sensitivity.Rank {
		case entity.RankCritical:
			criticalCount++
		case entity.RankHigh:
			highCount++
		}
		switch e.Category {
		case entity.Identification, entity.CreditCard, entity.MedicalContext:
			hasAlwaysCritical = true
		}
	}

	score := 0
	score += capped(criticalCount*criticalWeight, criticalCap)
	score += capped(highCount*highWeight, highCap)
	score += capped(len(entities)*volumeWeight, volumeCap)
	if hasAlwaysCritical {
		score += alwaysCriticalAdd
	}
	score += capped(issues.Total*issueWeight, issueCap)
	if score > 100 {
		score = 100
	}

	decision := decide(score, issues)
	return Assessment{
		Score:           score,
		Level:           levelOf(score),
		Decision:        decision,
		Confidence:      confidence(entities),
		Reasons:         reasons(entities, issues, score, criticalCount, highCount, decision),
		RequiredActions: requiredActions(entities, decision),
	}
}

func capped(value, limit int) int {
	if value > limit {
		return limit
	}
	return value
}

func levelOf(score int) Level {
	switch {
	case score <= 20:
		return VeryLow
	case score <= 40:
		return Low
	case score <= 60:
		return Medium
	case score <= 80:
		return High
	default:
		return CriticalLevel
	}
}

// decide evaluates the decision table in priority order: critical
// score first, then external critical issues, then the score bands.
func decide(score int, issues Issues) Decision {
	switch {
	case score >= 81:
		return CriticalViolation
	case issues.Critical >= 3:
		return Rejected
	case issues.Critical >= 1:
		return RequiresModifications
	case score <= 20:
		return Approved
	case score <= 40:
		return ApprovedWithConds
	case score <= 60:
		return RequiresModifications
	default:
		return Rejected
	}
}

// confidence is the mean entity confidence with a small-sample
// penalty, rounded to two decimals.
func confidence(entities []entity.Entity) float64 {
	conf := 1.0
	if len(entities) > 0 {
		var sum float64
		for _, e := range entities {
			sum += e.Confidence
		}
		conf = sum / float64(len(entities))
	}
	if len(entities) < 3 {
		conf *= 0.9
	}
	return math.Round(conf*100) / 100
}

func reasons(entities []entity.Entity, issues Issues, score, criticalCount, highCount int, decision Decision) []Reason {
	out := []Reason{
		{Code: "risk_score", Message: fmt.Sprintf("risk score %d/100", score)},
		{Code: "entity_total", Message: fmt.Sprintf("%d sensitive items detected", len(entities))},
	}
	if criticalCount > 0 {
		out = append(out, Reason{Code: "critical_entities", Message: fmt.Sprintf("%d critical-sensitivity findings", criticalCount)})
	}
	if highCount > 0 {
		out = append(out, Reason{Code: "high_entities", Message: fmt.Sprintf("%d high-sensitivity findings", highCount)})
	}
	if issues.Total > 0 {
		out = append(out, Reason{Code: "compliance_issues", Message: fmt.Sprintf("%d compliance issues reported (%d critical)", issues.Total, issues.Critical)})
	}
	switch decision {
	case Approved:
		out = append(out, Reason{Code: "decision", Message: "no concerning sensitive information found"})
	case ApprovedWithConds:
		out = append(out, Reason{Code: "decision", Message: "sensitive information present but manageable; light review needed"})
	case RequiresModifications:
		out = append(out, Reason{Code: "decision", Message: "sensitive information requires handling before use"})
	case Rejected:
		out = append(out, Reason{Code: "decision", Message: "sensitive information volume prevents approval as-is"})
	case CriticalViolation:
		out = append(out, Reason{Code: "decision", Message: "severe privacy exposure; significant legal risk"})
	}
	return out
}

func requiredActions(entities []entity.Entity, decision Decision) []string {
	if decision == Approved {
		return []string{"no action required"}
	}

	present := make(map[entity.Category]bool, len(entities))
	for _, e := range entities {
		present[e.Category] = true
	}

	var actions []string
	if present[entity.Identification] {
		actions = append(actions, "remove or encrypt national ID numbers")
	}
	if present[entity.CreditCard] {
		actions = append(actions, "remove or encrypt credit card numbers")
	}
	if present[entity.Phone] {
		actions = append(actions, "replace or remove phone numbers")
	}
	if present[entity.Email] {
		actions = append(actions, "mask email addresses or use role accounts")
	}
	actions = append(actions, "review all findings, fix or remove, then rescan")
	if decision == CriticalViolation {
		actions = append(actions, "do not share or use this document until fixed")
	}
	return actions
}
