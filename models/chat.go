package models

// AnswerMode identifies which orchestration branch produced an answer
type AnswerMode string

const (
	ModeFAQDirect   AnswerMode = "faq_direct"   // high-confidence FAQ match with canonical answer
	ModeFAQRAG      AnswerMode = "faq_rag"      // FAQ match below threshold, anchors resolved
	ModeFAQOnly     AnswerMode = "faq_only"     // FAQ identified, no policy anchor cached
	ModeBasicRAG    AnswerMode = "basic_rag"    // FAQ records found but unidentifiable
	ModeLocalDirect AnswerMode = "local_direct" // fallback local FAQ match above threshold
	ModeLLMOnly     AnswerMode = "llm_only"     // fallback generation without retrieval context
)

// ChatRequest represents an incoming question
type ChatRequest struct {
	Message   string
	SessionID string
}

// ChatMetadata describes how an answer was produced
type ChatMetadata struct {
	Mode              AnswerMode `json:"mode"`
	RetrievalCount    int        `json:"retrieval_count"`
	MatchedIdentifier string     `json:"matched_identifier,omitempty"`
	Keywords          []string   `json:"keyword_list"`
}

// ChatResponse is the assembled answer bundle
type ChatResponse struct {
	Answer         string       `json:"message"`
	SuggestedReply string       `json:"suggested_answer"`
	RelatedLaws    []RelatedLaw `json:"related_laws"`
	SessionID      string       `json:"session_id"`
	Metadata       ChatMetadata `json:"metadata"`
}
