package models

import "strings"

// FAQEntry represents a curated question with its canonical answer
type FAQEntry struct {
	ID           string `json:"faq_id"`
	Question     string `json:"question"`
	AnswerText   string `json:"answer_text"`
	PolicyAnchor string `json:"policy_anchor"` // semicolon-delimited citation list
	Tags         string `json:"tag,omitempty"`
}

// Anchors splits PolicyAnchor into its individual citations.
func (f FAQEntry) Anchors() []string {
	return SplitAnchors(f.PolicyAnchor)
}

// SplitAnchors splits a semicolon-delimited citation list, dropping blanks
func SplitAnchors(anchor string) []string {
	var anchors []string
	for _, part := range strings.Split(anchor, ";") {
		if part = strings.TrimSpace(part); part != "" {
			anchors = append(anchors, part)
		}
	}
	return anchors
}

// DirectAnswer is the result of a keyed FAQ lookup
type DirectAnswer struct {
	AnswerText   string `json:"answer_text"`
	PolicyAnchor string `json:"policy_anchor"`
	Question     string `json:"question"`
}

// FAQMatch is the best FAQ candidate for a user question
type FAQMatch struct {
	FAQID        string  `json:"faq_id"`
	Score        float64 `json:"score"`
	QuestionText string  `json:"question_text"`
}
