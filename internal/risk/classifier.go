package risk

import (
	"regexp"
	"strings"
)

// Pattern vocabularies for text classification. The critical set is evaluated
// first and short-circuits; the high-risk set is checked only if no critical
// pattern matched. All matching is case-insensitive substring matching.
var (
	criticalPatterns = []string{
		`suicide`,
		`kill myself`,
		`end it all`,
		`not worth living`,
		`self harm`,
		`cut myself`,
		`hurt myself`,
	}

	highRiskPatterns = []string{
		`depressed`,
		`hopeless`,
		`worthless`,
		`die`,
		`death`,
		`crisis`,
		`emergency`,
		`help me`,
	}
)

// Reason strings attached to classification results.
const (
	ReasonCriticalKeywords = "Critical keywords detected"
	ReasonHighRiskKeywords = "High-risk keywords detected"
	ReasonRecentRisks      = "Multiple recent risk indicators"
)

// Classifier performs pure, deterministic keyword-based risk classification.
// It holds only compiled patterns and is safe for concurrent use.
type Classifier struct {
	critical []*regexp.Regexp
	highRisk []*regexp.Regexp
}

// NewClassifier compiles the default pattern vocabularies.
func NewClassifier() *Classifier {
	return &Classifier{
		critical: compilePatterns(criticalPatterns),
		highRisk: compilePatterns(highRiskPatterns),
	}
}

// compilePatterns compiles each pattern as a case-insensitive regexp.
func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// Classify returns the risk level for the given text.
// Any critical pattern match yields LevelCritical; otherwise any high-risk
// pattern match yields LevelHigh; otherwise LevelLow. LevelMedium is never
// produced here.
func (c *Classifier) Classify(text string) Level {
	level, _ := c.Assess(text)
	return level
}

// Assess returns the risk level together with human-readable reasons.
// Reasons are empty for LevelLow.
func (c *Classifier) Assess(text string) (Level, []string) {
	for _, re := range c.critical {
		if re.MatchString(text) {
			return LevelCritical, []string{ReasonCriticalKeywords}
		}
	}
	for _, re := range c.highRisk {
		if re.MatchString(text) {
			return LevelHigh, []string{ReasonHighRiskKeywords}
		}
	}
	return LevelLow, nil
}

// MatchedPatterns returns the raw patterns that matched the text, for
// diagnostic logging. The text itself must never be logged.
func (c *Classifier) MatchedPatterns(text string) []string {
	var matched []string
	for i, re := range c.critical {
		if re.MatchString(text) {
			matched = append(matched, criticalPatterns[i])
		}
	}
	for i, re := range c.highRisk {
		if re.MatchString(text) {
			matched = append(matched, highRiskPatterns[i])
		}
	}
	return matched
}

// Sanitize strips markup from user text before classification and storage.
func Sanitize(input string) string {
	stripped := scriptTagRe.ReplaceAllString(input, "")
	stripped = htmlTagRe.ReplaceAllString(stripped, "")
	return strings.TrimSpace(stripped)
}

var (
	scriptTagRe = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
)
