package service

import "policydesk-backend/models"

// faqOutcome is the result of the external FAQ lookup stage. Exactly one of
// the variant types below implements it per request.
type faqOutcome interface {
	isFAQOutcome()
}

// noMatch: the lookup failed or returned nothing.
type noMatch struct {
	cause error
}

// basicMatch: records were found but none could be identified as an FAQ.
type basicMatch struct {
	records []models.RetrievalRecord
}

// highConfidence: the score reached the threshold and a canonical answer is cached.
type highConfidence struct {
	match   models.FAQMatch
	answer  models.DirectAnswer
	records []models.RetrievalRecord
}

// standardMatch: anchors are cached but the score is low or no canonical answer exists.
type standardMatch struct {
	match   models.FAQMatch
	anchors []string
	records []models.RetrievalRecord
}

// noAnchor: the FAQ was identified but has no cached policy anchor.
type noAnchor struct {
	match   models.FAQMatch
	records []models.RetrievalRecord
}

// tableMissing: the FAQ was identified but no FAQ table is loaded, so
// neither its canonical answer nor its anchors are known.
type tableMissing struct {
	match models.FAQMatch
}

func (noMatch) isFAQOutcome() {}
func (basicMatch) isFAQOutcome() {}
func (highConfidence) isFAQOutcome() {}
func (standardMatch) isFAQOutcome() {}
func (noAnchor) isFAQOutcome() {}
func (tableMissing) isFAQOutcome() {}

// classifyExternal picks the branch for an external lookup result. It is
// pure: the same match, table and threshold always give the same variant.
func classifyExternal(m *ExternalMatch, err error, table *FAQTable, threshold float64) faqOutcome {
	if err != nil {
		return noMatch{cause: err}
	}
	if m == nil || len(m.Records) == 0 {
		return noMatch{cause: ErrNoFAQMatch}
	}
	if m.FAQID == "" {
		return basicMatch{records: m.Records}
	}

	match := models.FAQMatch{FAQID: m.FAQID, Score: m.Top.RelevanceScore}
	if table.Len() == 0 {
		return tableMissing{match: match}
	}
	entry, ok := table.Lookup(m.FAQID)
	if ok {
		match.QuestionText = entry.Question
	}
	anchors := entry.Anchors()
	if len(anchors) == 0 {
		return noAnchor{match: match, records: m.Records}
	}
	if match.Score >= threshold {
		if answer, ok := table.DirectAnswer(m.FAQID); ok {
			return highConfidence{match: match, answer: answer, records: m.Records}
		}
	}
	return standardMatch{match: match, anchors: anchors, records: m.Records}
}
