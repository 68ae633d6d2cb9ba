package models

// RetrievalRecord is the source-agnostic shape of a retrieved document,
// used for both semantic-retrieval hits and local corpus excerpts.
type RetrievalRecord struct {
	Content            string  `json:"content"`
	SourceDocumentName string  `json:"source_document_name"`
	RelevanceScore     float64 `json:"relevance_score"`

	// Set only for records that come from the law corpus.
	Regulation   string `json:"regulation,omitempty"`
	ArticleKey   string `json:"article_key,omitempty"`
	ArticleTitle string `json:"article_title,omitempty"`
}

// RelatedLaw converts a corpus excerpt into a related-law panel entry.
func (r RetrievalRecord) RelatedLaw(anchor string) RelatedLaw {
	return RelatedLaw{
		Title:   r.SourceDocumentName,
		Content: r.Content,
		Anchor:  anchor,
	}
}
