// Package assess provides the synchronous manual risk assessment: the same
// classifier and thresholds as the async pipeline, applied statelessly to
// caller-supplied context. It never touches the durable pipeline.
package assess

import (
	"github.com/sukoon-health/risk-pipeline/internal/risk"
	"github.com/sukoon-health/risk-pipeline/internal/triage"
)

// Assessment is the result of a manual risk assessment.
type Assessment struct {
	RiskLevel          risk.Level `json:"riskLevel"`
	Reasons            []string   `json:"reasons"`
	RequiresEscalation bool       `json:"requiresEscalation"`
	RecommendedActions []string   `json:"recommendedActions"`
}

// Assessor performs stateless risk assessments. It shares the triage policy
// so the synchronous boundary stays consistent with the subscriber's
// escalation thresholds.
type Assessor struct {
	classifier *risk.Classifier
	policy     triage.Policy
}

// NewAssessor creates an assessor with the given policy.
func NewAssessor(policy triage.Policy) *Assessor {
	return &Assessor{
		classifier: risk.NewClassifier(),
		policy:     policy,
	}
}

// Assess classifies the text and applies the context-aware threshold.
// recentRisks is the caller-supplied count of the user's recent risk events;
// at or above the policy threshold it raises the level to at least high
// (via the monotonic combine, so a critical classification is never
// lowered) and makes a high-level result escalation-worthy.
func (a *Assessor) Assess(text string, recentRisks int) Assessment {
	level, reasons := a.classifier.Assess(risk.Sanitize(text))

	if recentRisks >= a.policy.RecentRiskThreshold {
		level = risk.Combine(level, risk.LevelHigh)
		reasons = append(reasons, risk.ReasonRecentRisks)
	}

	requiresEscalation := level == risk.LevelCritical ||
		(level == risk.LevelHigh && recentRisks >= a.policy.RecentRiskThreshold)

	if reasons == nil {
		reasons = []string{}
	}

	return Assessment{
		RiskLevel:          level,
		Reasons:            reasons,
		RequiresEscalation: requiresEscalation,
		RecommendedActions: recommendedActions(level),
	}
}

// recommendedActions returns the crisis-response playbook for a level.
func recommendedActions(level risk.Level) []string {
	switch level {
	case risk.LevelCritical:
		return []string{
			"Immediate crisis intervention",
			"Contact emergency services if location known",
			"Notify on-call crisis counselor",
			"Block further AI responses",
		}
	case risk.LevelHigh:
		return []string{
			"Schedule follow-up within 24 hours",
			"Provide crisis hotline numbers",
			"Monitor for escalation",
			"Recommend professional consultation",
		}
	default:
		return []string{
			"Continue monitoring",
			"Provide supportive resources",
			"Regular check-ins",
		}
	}
}
