package reasoning

import (
	"fmt"
	"math"
	"strings"
)

// riskKeywords are phrases that usually warrant a closer look in a contract.
var riskKeywords = []string{
	"unlimited liability",
	"sole discretion",
	"without notice",
	"as-is",
	"no warranty",
	"indemnify",
	"hold harmless",
	"liquidated damages",
	"termination",
	"breach",
}

const longClauseChars = 500

// ClauseAnalysis is the heuristic assessment of a single clause.
type ClauseAnalysis struct {
	ClauseLength         int      `json:"clause_length"`
	ComplexityIndicators []string `json:"complexity_indicators"`
	RiskSignals          []string `json:"risk_signals"`
	ClarityScore         float64  `json:"clarity_score"`
	Recommendation       string   `json:"recommendation"`
}

// AnalyzeClause scores a clause for risk signals and readability. The clarity
// score drops with longer words and longer sentences and is floored at 0.
func AnalyzeClause(clause string) ClauseAnalysis {
	a := ClauseAnalysis{
		ClauseLength:         len(clause),
		ComplexityIndicators: []string{},
		RiskSignals:          []string{},
	}

	if len(clause) > longClauseChars {
		a.ComplexityIndicators = append(a.ComplexityIndicators, "Very long clause - may be difficult to understand")
	}

	lower := strings.ToLower(clause)
	for _, kw := range riskKeywords {
		if strings.Contains(lower, kw) {
			a.RiskSignals = append(a.RiskSignals, fmt.Sprintf("Contains '%s' - potential risk indicator", kw))
		}
	}

	a.ClarityScore = clarityScore(clause)

	switch {
	case len(a.RiskSignals) > 0:
		a.Recommendation = "Requires careful review due to identified risk signals"
	case a.ClarityScore < 50:
		a.Recommendation = "Consider requesting clearer language"
	default:
		a.Recommendation = "Appears to be standard contract language"
	}

	return a
}

func clarityScore(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	letters := 0
	for _, w := range words {
		letters += len(w)
	}
	avgWord := float64(letters) / float64(len(words))

	sentences := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	avgSentence := float64(len(words)) / float64(max(sentences, 1))

	return math.Max(0, 100-avgWord*2-avgSentence*0.5)
}

// Strategy is a suggested plan for reviewing a whole document.
type Strategy struct {
	DocumentType        string   `json:"document_type"`
	PriorityAreas       []string `json:"priority_areas"`
	AnalysisOrder       []string `json:"analysis_order"`
	EstimatedComplexity string   `json:"estimated_complexity"`
	Reasoning           []string `json:"reasoning"`
}

var documentKinds = []struct {
	name     string
	matches  func(string) bool
	priority []string
}{
	{
		name:     "employment_agreement",
		matches:  func(s string) bool { return strings.Contains(s, "employment") || strings.Contains(s, "employee") },
		priority: []string{"termination", "compensation", "confidentiality", "non-compete"},
	},
	{
		name:     "service_agreement",
		matches:  func(s string) bool { return strings.Contains(s, "service") && strings.Contains(s, "agreement") },
		priority: []string{"scope of work", "payment terms", "liability", "termination"},
	},
	{
		name:     "lease_agreement",
		matches:  func(s string) bool { return strings.Contains(s, "lease") || strings.Contains(s, "rental") },
		priority: []string{"rent", "term", "security deposit", "maintenance"},
	},
	{
		name:     "purchase_agreement",
		matches:  func(s string) bool { return strings.Contains(s, "purchase") || strings.Contains(s, "sale") },
		priority: []string{"price", "delivery", "warranties", "returns"},
	},
}

const (
	highComplexityChars = 10000
	lowComplexityChars  = 2000
)

// SuggestStrategy guesses the document type and size class and proposes a
// review order. The first matching document kind wins.
func SuggestStrategy(text string) Strategy {
	s := Strategy{
		DocumentType:        "unknown",
		PriorityAreas:       []string{},
		EstimatedComplexity: "medium",
		Reasoning:           []string{},
		AnalysisOrder: []string{
			"Extract key clauses",
			"Classify clauses by type",
			"Identify high-risk provisions",
			"Generate summary",
			"Flag items for review",
		},
	}

	lower := strings.ToLower(text)
	for _, k := range documentKinds {
		if k.matches(lower) {
			s.DocumentType = k.name
			s.PriorityAreas = append(s.PriorityAreas, k.priority...)
			break
		}
	}

	switch {
	case len(text) > highComplexityChars:
		s.EstimatedComplexity = "high"
		s.Reasoning = append(s.Reasoning, "Long document suggests high complexity")
	case len(text) < lowComplexityChars:
		s.EstimatedComplexity = "low"
		s.Reasoning = append(s.Reasoning, "Short document suggests lower complexity")
	}

	return s
}
