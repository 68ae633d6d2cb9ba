package service

import (
	"testing"

	"policydesk-backend/models"

	"github.com/stretchr/testify/assert"
)

func TestFAQDocument_RoundTripsID(t *testing.T) {
	for _, e := range testCorpus().faqs {
		doc := FAQDocument(e)
		name := FAQDocumentName(e)

		assert.Equal(t, e.ID, ExtractFAQID(models.RetrievalRecord{Content: doc}))
		assert.Equal(t, e.ID, ExtractFAQID(models.RetrievalRecord{Content: "본문 일부", SourceDocumentName: name}))
		assert.Contains(t, doc, "# "+e.Question)
	}
}

func TestFAQDocumentName_ReplacesSeparators(t *testing.T) {
	assert.Equal(t, "A-B-C.md", FAQDocumentName(models.FAQEntry{ID: `A/B\C`}))
}
