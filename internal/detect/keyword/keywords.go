package keyword

import "github.com/privsentry/pii-sentinel/internal/entity"

// Set is one per-category keyword list. Hebrew and English terms are
// kept as a single flat list; membership is case-insensitive
// substring containment within a text unit.
type Set struct {
	Category    entity.Category
	Confidence  float64
	Granularity Granularity
	Terms       []string
}

// Granularity selects the text unit a hit expands to.
type Granularity int

const (
	// Sentence units split on sentence punctuation and newlines.
	Sentence Granularity = iota
	// Line units split on newlines only.
	Line
)

// DefaultSets returns the fixed bilingual keyword tables. A hit marks
// the whole containing unit: the sensitive fact is the statement, not
// the trigger word.
func DefaultSets() []Set {
	return []Set{
		{
			Category:    entity.MedicalContext,
			Confidence:  0.70,
			Granularity: Sentence,
			Terms: []string{
				"רופא", "בית חולים", "קופת חולים", "מרפאה", "מחלה", "אבחנה",
				"טיפול", "תרופה", "רפואי", "בריאות", "חולה", "סימפטום",
				"בדיקת דם", "צילום רנטגן", "ניתוח",
				"doctor", "hospital", "clinic", "medical", "health", "disease",
				"diagnosis", "treatment", "medication", "patient", "symptom",
				"blood test", "x-ray", "surgery", "prescription",
			},
		},
		{
			Category:    entity.FinancialContext,
			Confidence:  0.70,
			Granularity: Sentence,
			Terms: []string{
				"משכורת", "שכר", "הכנסה", "הלוואה", "משכנתא", "חוב", "אשראי",
				"כרטיס אשראי", "חשבון בנק", "העברה בנקאית", "מס הכנסה",
				"salary", "income", "loan", "mortgage", "debt", "credit",
				"credit card", "bank account", "income tax",
			},
		},
		{
			Category:    entity.PoliticalContext,
			Confidence:  0.65,
			Granularity: Sentence,
			Terms: []string{
				"מפלגה", "הצבעה", "בחירות", "קלפי", "מועמד", "פוליטי",
				"קואליציה", "אופוזיציה",
				"party", "vote", "election", "candidate", "political",
				"coalition", "opposition",
			},
		},
		{
			Category:    entity.ReligiousContext,
			Confidence:  0.65,
			Granularity: Sentence,
			Terms: []string{
				"דתי", "חילוני", "חרדי", "כשרות", "תפילה",
				"בית כנסת", "כנסייה", "מסגד",
				"religion", "religious", "secular", "kosher", "prayer",
				"synagogue", "church", "mosque", "rabbi", "imam",
			},
		},
		{
			Category:    entity.CriminalContext,
			Confidence:  0.70,
			Granularity: Sentence,
			Terms: []string{
				"עבר פלילי", "הרשעה", "עבירה", "משטרה", "מעצר", "כלא",
				"בית משפט", "פסק דין", "תיק פלילי",
				"criminal record", "conviction", "offense", "arrest",
				"prison", "sentence", "criminal case",
			},
		},
		{
			Category:    entity.Address,
			Confidence:  0.70,
			Granularity: Line,
			Terms: []string{
				"רחוב", "רח'", "שד'", "שדרות", "סמטת", "שכונת", "דירה", "קומה",
				"street", "st.", "avenue", "ave.", "road", "rd.",
				"boulevard", "blvd.", "apartment", "apt.",
			},
		},
	}
}
