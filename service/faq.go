package service

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"

	"policydesk-backend/external"
	"policydesk-backend/models"

	"go.uber.org/zap"
)

const (
	// DefaultFAQTopK is the number of records requested from semantic retrieval
	DefaultFAQTopK = 3
	// DefaultFAQScoreThreshold is the minimum retrieval score
	DefaultFAQScoreThreshold = 0.5
	// DefaultLocalMatchThreshold is the minimum Jaccard similarity for a local match
	DefaultLocalMatchThreshold = 0.5
)

var (
	// ErrNoFAQMatch is returned when semantic retrieval found nothing
	ErrNoFAQMatch = errors.New("no FAQ record matched")
	// ErrRetrievalUnavailable is returned when no retriever is configured
	ErrRetrievalUnavailable = errors.New("semantic retrieval is not configured")
)

var (
	labeledFAQID  = regexp.MustCompile(`(?i)faq[ _]?id\**\s*[:：]\s*\**\s*([A-Za-z0-9][A-Za-z0-9_\-]*)`)
	faqIDFilename = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_\-]*)\.md$`)
)

// ExtractFAQID finds the FAQ identifier of a retrieved record: first from a
// labeled "faq_id:" field in its content, then from a "<faq_id>.md" document
// name. It returns "" when neither is present.
func ExtractFAQID(rec models.RetrievalRecord) string {
	if m := labeledFAQID.FindStringSubmatch(rec.Content); m != nil {
		return m[1]
	}
	if m := faqIDFilename.FindStringSubmatch(path.Base(strings.TrimSpace(rec.SourceDocumentName))); m != nil {
		return m[1]
	}
	return ""
}

// FAQTable is the immutable in-memory FAQ table keyed by faq_id
type FAQTable struct {
	entries map[string]models.FAQEntry
	order   []string
	tokens  map[string]map[string]struct{}
}

// NewFAQTable indexes entries. Later duplicates of an id are ignored.
func NewFAQTable(entries []models.FAQEntry) *FAQTable {
	t := &FAQTable{
		entries: make(map[string]models.FAQEntry, len(entries)),
		tokens:  make(map[string]map[string]struct{}, len(entries)),
	}
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			continue
		}
		if _, dup := t.entries[id]; dup {
			continue
		}
		e.ID = id
		t.entries[id] = e
		t.order = append(t.order, id)
		t.tokens[id] = tokenSet(e.Question)
	}
	return t
}

// Len returns the number of entries; nil tables are empty.
func (t *FAQTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Lookup returns the entry for id.
func (t *FAQTable) Lookup(id string) (models.FAQEntry, bool) {
	if t == nil {
		return models.FAQEntry{}, false
	}
	e, ok := t.entries[id]
	return e, ok
}

// DirectAnswer is the keyed canonical-answer lookup. Entries without an
// answer text are reported as absent.
func (t *FAQTable) DirectAnswer(id string) (models.DirectAnswer, bool) {
	e, ok := t.Lookup(id)
	if !ok || strings.TrimSpace(e.AnswerText) == "" {
		return models.DirectAnswer{}, false
	}
	return models.DirectAnswer{
		AnswerText:   e.AnswerText,
		PolicyAnchor: e.PolicyAnchor,
		Question:     e.Question,
	}, true
}

// BestLocalMatch scores question against every cached FAQ question with
// Jaccard token overlap. Exact equality scores 1.0. The best entry is returned
// when its score reaches threshold; ties keep the earlier entry.
func (t *FAQTable) BestLocalMatch(question string, threshold float64) (models.FAQMatch, bool) {
	if t.Len() == 0 {
		return models.FAQMatch{}, false
	}
	q := strings.TrimSpace(question)
	qTokens := tokenSet(q)

	var (
		best  models.FAQMatch
		found bool
	)
	for _, id := range t.order {
		e := t.entries[id]
		score := jaccard(qTokens, t.tokens[id])
		if q != "" && q == strings.TrimSpace(e.Question) {
			score = 1.0
		}
		if !found || score > best.Score {
			best = models.FAQMatch{FAQID: id, Score: score, QuestionText: e.Question}
			found = true
		}
	}
	if !found || best.Score < threshold {
		return models.FAQMatch{}, false
	}
	return best, true
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(strings.ToLower(text)) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// ExternalMatch is the outcome of a successful semantic FAQ lookup. FAQID is
// empty when the top record could not be identified.
type ExternalMatch struct {
	Records []models.RetrievalRecord
	Top     models.RetrievalRecord
	FAQID   string
}

// FAQMatcher runs the external FAQ lookup
type FAQMatcher struct {
	retriever      external.SemanticRetriever
	topK           int
	scoreThreshold float64
	logger         *zap.Logger
}

// NewFAQMatcher creates a matcher. retriever may be nil, in which case every
// lookup fails with ErrRetrievalUnavailable.
func NewFAQMatcher(retriever external.SemanticRetriever, logger *zap.Logger) *FAQMatcher {
	return &FAQMatcher{
		retriever:      retriever,
		topK:           DefaultFAQTopK,
		scoreThreshold: DefaultFAQScoreThreshold,
		logger:         logger.With(zap.String("component", "faq_matcher")),
	}
}

// MatchExternal queries semantic retrieval, retrying once on transport or
// retryable status failures. An empty result is ErrNoFAQMatch.
func (m *FAQMatcher) MatchExternal(ctx context.Context, question string) (*ExternalMatch, error) {
	if m.retriever == nil {
		return nil, ErrRetrievalUnavailable
	}
	req := external.RetrieveRequest{Query: question, TopK: m.topK, ScoreThreshold: m.scoreThreshold}

	records, err := m.retriever.Retrieve(ctx, req)
	var ce *external.CallError
	if err != nil && errors.As(err, &ce) && ce.Retryable() {
		m.logger.Info("retrying FAQ lookup", zap.String("kind", string(ce.Kind)))
		records, err = m.retriever.Retrieve(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoFAQMatch
	}

	top := records[0]
	return &ExternalMatch{Records: records, Top: top, FAQID: ExtractFAQID(top)}, nil
}
