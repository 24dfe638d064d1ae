package pattern

import (
	"context"
	"regexp"

	"github.com/privsentry/pii-sentinel/internal/entity"
	"github.com/privsentry/pii-sentinel/internal/logger"
	"go.uber.org/zap"
)

// Rule pairs a category with its expression, base confidence, and an
// optional checksum gate. Matches failing the gate are dropped
// silently: a numeric coincidence emitted at low confidence is worse
// than a miss.
type Rule struct {
	Category   entity.Category
	Pattern    *regexp.Regexp
	Confidence float64
	Checksum   func(string) bool
}

// Matcher applies the fixed rule table to raw text.
type Matcher struct {
	rules  []Rule
	logger *logger.Logger
}

var (
	idPattern          = regexp.MustCompile(`\b\d{9}\b`)
	phonePattern       = regexp.MustCompile(`(?:\+972|972|0)[-\s]?(?:5\d|[2-4]|[89])[-\s]?\d{3}[-\s]?\d{4}`)
	emailPattern       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	creditCardPattern  = regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)
	bankAccountPattern = regexp.MustCompile(`\b\d{2,3}[-/]\d{3,6}[-/]\d{1,2}\b`)
	dobPattern         = regexp.MustCompile(`\b(?:0[1-9]|[12][0-9]|3[01])[./-](?:0[1-9]|1[0-2])[./-](?:19|20)\d{2}\b|\b(?:19|20)\d{2}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12][0-9]|3[01])\b`)
)

// DefaultRules returns the fixed, ordered rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Category: entity.Identification, Pattern: idPattern, Confidence: 0.95, Checksum: ValidNationalID},
		{Category: entity.CreditCard, Pattern: creditCardPattern, Confidence: 0.90, Checksum: ValidCardNumber},
		{Category: entity.Phone, Pattern: phonePattern, Confidence: 0.90},
		{Category: entity.Email, Pattern: emailPattern, Confidence: 0.95},
		{Category: entity.DateOfBirth, Pattern: dobPattern, Confidence: 0.85},
		{Category: entity.BankAccount, Pattern: bankAccountPattern, Confidence: 0.80},
	}
}

// New creates a pattern matcher with the default rule table.
func New(log *logger.Logger) *Matcher {
	return &Matcher{rules: DefaultRules(), logger: log}
}

func (m *Matcher) Name() string { return "pattern" }

// Detect applies every rule to the text. Rules are isolated from each
// other: a rule that panics yields zero candidates for its category
// instead of aborting the matcher.
func (m *Matcher) Detect(ctx context.Context, text string) ([]entity.Candidate, error) {
	if text == "" {
		return nil, nil
	}

	var candidates []entity.Candidate
	for _, rule := range m.rules {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		candidates = append(candidates, m.applyRule(rule, text)...)
	}
	return candidates, nil
}

func (m *Matcher) applyRule(rule Rule, text string) (out []entity.Candidate) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("pattern rule failed",
				zap.String("category", rule.Category.String()),
				zap.Any("panic", r),
			)
			out = nil
		}
	}()

	for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		if rule.Checksum != nil && !rule.Checksum(match) {
			m.logger.Debug("checksum rejected candidate",
				zap.String("category", rule.Category.String()),
				zap.Int("start", loc[0]),
				zap.Int("end", loc[1]),
			)
			continue
		}
		out = append(out, entity.Candidate{
			Text:       match,
			Category:   rule.Category,
			Start:      loc[0],
			End:        loc[1],
			Confidence: rule.Confidence,
			Source:     entity.SourcePattern,
		})
	}
	return out
}
