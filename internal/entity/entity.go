package entity

import (
	"errors"
	"fmt"
)

// Category is the closed set of personal-information categories the
// engine can tag. Adding a category means extending every switch in
// this package; the compiler flags the ones that are missed.
type Category int

const (
	Identification Category = iota
	Phone
	Email
	BankAccount
	CreditCard
	MedicalContext
	FinancialContext
	PoliticalContext
	ReligiousContext
	CriminalContext
	PersonName
	Organization
	Location
	DateOfBirth
	Address
	GenericKeyword

	numCategories
)

// Source identifies which detector produced a candidate. Retained for
// tie-breaking and audit logs, never authoritative for consumers.
type Source string

const (
	SourcePattern Source = "pattern"
	SourceKeyword Source = "keyword"
	SourceNER     Source = "ner"
)

// Rank orders standard-tier categories for risk scoring.
type Rank int

const (
	RankLow Rank = iota
	RankMedium
	RankHigh
	RankCritical
)

// Sensitivity classifies a category under the two-tier model: every
// category carries a scoring rank, and specially-sensitive categories
// additionally fall under elevated legal protection.
type Sensitivity struct {
	Special bool
	Rank    Rank
}

// Candidate is a detected span before fusion. Offsets are byte offsets
// into the source text, half-open [Start, End).
type Candidate struct {
	Text       string
	Category   Category
	Start      int
	End        int
	Confidence float64
	Source     Source
}

// Entity is one canonical, validated detection result after fusion.
// Entities are immutable once produced.
type Entity struct {
	Text        string
	Category    Category
	Start       int
	End         int
	Confidence  float64
	Sensitivity Sensitivity
}

// ErrInvalidInput marks input the detectors cannot process, such as a
// byte sequence that is not valid UTF-8. Empty input is not invalid.
var ErrInvalidInput = errors.New("invalid input text")

// SpanError reports a candidate whose span does not agree with the
// source text. It indicates offset corruption inside a detector and
// aborts the request rather than risking a corrupted rewrite.
type SpanError struct {
	Category Category
	Start    int
	End      int
	Reason   string
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("span invariant violation: %s [%d:%d): %s", e.Category, e.Start, e.End, e.Reason)
}

// Validate checks the span invariants of c against the source text.
func (c *Candidate) Validate(source string) error {
	if c.Start < 0 || c.End > len(source) {
		return &SpanError{Category: c.Category, Start: c.Start, End: c.End, Reason: "span outside source bounds"}
	}
	if c.Start >= c.End {
		return &SpanError{Category: c.Category, Start: c.Start, End: c.End, Reason: "start >= end"}
	}
	if source[c.Start:c.End] != c.Text {
		return &SpanError{Category: c.Category, Start: c.Start, End: c.End, Reason: "text does not match source span"}
	}
	return nil
}

func (c Category) String() string {
	switch c {
	case Identification:
		return "identification"
	case Phone:
		return "phone"
	case Email:
		return "email"
	case BankAccount:
		return "bank_account"
	case CreditCard:
		return "credit_card"
	case MedicalContext:
		return "medical_context"
	case FinancialContext:
		return "financial_context"
	case PoliticalContext:
		return "political_context"
	case ReligiousContext:
		return "religious_context"
	case CriminalContext:
		return "criminal_context"
	case PersonName:
		return "person_name"
	case Organization:
		return "organization"
	case Location:
		return "location"
	case DateOfBirth:
		return "date_of_birth"
	case Address:
		return "address"
	case GenericKeyword:
		return "generic_keyword"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// SensitivityOf returns the fixed category classification under the
// privacy-law two-tier model.
func SensitivityOf(c Category) Sensitivity {
	switch c {
	case Identification:
		return Sensitivity{Special: false, Rank: RankCritical}
	case CreditCard, BankAccount:
		return Sensitivity{Special: true, Rank: RankCritical}
	case MedicalContext, CriminalContext:
		return Sensitivity{Special: true, Rank: RankCritical}
	case FinancialContext, PoliticalContext, ReligiousContext:
		return Sensitivity{Special: true, Rank: RankHigh}
	case Phone, Email, Address, DateOfBirth:
		return Sensitivity{Special: false, Rank: RankMedium}
	case PersonName, Organization, Location, GenericKeyword:
		return Sensitivity{Special: false, Rank: RankLow}
	default:
		return Sensitivity{Special: false, Rank: RankLow}
	}
}

// Placeholder returns the descriptive replacement token used by the
// anonymizer's replace mode.
func Placeholder(c Category) string {
	switch c {
	case Identification:
		return "[ID_NUMBER]"
	case Phone:
		return "[PHONE]"
	case Email:
		return "[EMAIL]"
	case BankAccount:
		return "[BANK_ACCOUNT]"
	case CreditCard:
		return "[CREDIT_CARD]"
	case MedicalContext:
		return "[MEDICAL_INFO]"
	case FinancialContext:
		return "[FINANCIAL_INFO]"
	case PoliticalContext:
		return "[POLITICAL_OPINION]"
	case ReligiousContext:
		return "[RELIGIOUS_BELIEF]"
	case CriminalContext:
		return "[CRIMINAL_RECORD]"
	case PersonName:
		return "[PERSON]"
	case Organization:
		return "[ORGANIZATION]"
	case Location:
		return "[LOCATION]"
	case DateOfBirth:
		return "[DATE_OF_BIRTH]"
	case Address:
		return "[ADDRESS]"
	case GenericKeyword:
		return "[SENSITIVE]"
	default:
		return "[SENSITIVE]"
	}
}

// Categories returns all categories in declaration order.
func Categories() []Category {
	out := make([]Category, 0, int(numCategories))
	for c := Category(0); c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

func (r Rank) String() string {
	switch r {
	case RankLow:
		return "low"
	case RankMedium:
		return "medium"
	case RankHigh:
		return "high"
	case RankCritical:
		return "critical"
	default:
		return fmt.Sprintf("rank(%d)", int(r))
	}
}
