package service

import (
	"fmt"
	"strings"

	"policydesk-backend/models"
)

// FAQDocumentName is the knowledge-base file name of an FAQ entry. Path
// separators in the id are replaced so the name stays a single segment.
func FAQDocumentName(e models.FAQEntry) string {
	id := strings.NewReplacer("/", "-", "\\", "-").Replace(e.ID)
	return id + ".md"
}

// FAQDocument renders an FAQ entry as a knowledge-base markdown document, one
// entry per document. The front matter carries the id that ExtractFAQID reads
// back from retrieved segments.
func FAQDocument(e models.FAQEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\nfaq_id: %s\ntags: %s\npolicy_anchor: %s\n---\n\n", e.ID, e.Tags, e.PolicyAnchor)
	fmt.Fprintf(&b, "# %s\n\n", e.Question)
	fmt.Fprintf(&b, "## 답변\n\n%s\n\n", e.AnswerText)
	fmt.Fprintf(&b, "## 관련 법령\n\n%s\n\n", e.PolicyAnchor)
	fmt.Fprintf(&b, "## 태그\n\n%s\n", e.Tags)
	return b.String()
}
