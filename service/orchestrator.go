package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"policydesk-backend/external"
	"policydesk-backend/metrics"
	"policydesk-backend/models"
	"policydesk-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultDirectThreshold is the minimum FAQ score for the high-confidence branch
	DefaultDirectThreshold = 0.85

	seedLimit      = 5
	anchorLimit    = 3
	contextAnchors = 2
	contextRecords = 2
)

// Failure codes of FailureError
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeSessionFailed    = "SESSION_ERROR"
	CodeRetrievalFailed  = "RETRIEVAL_FAILED"
	CodeGenerationFailed = "GENERATION_FAILED"
)

// Fallback reasons, also used as metric labels
const (
	reasonNoMatch          = "no_match"
	reasonLookupFailed     = "lookup_failed"
	reasonGenerationFailed = "generation_failed"
	reasonPanic            = "panic"
)

var (
	// ErrGeneratorMissing is returned by Ask when no generator was configured
	ErrGeneratorMissing = errors.New("generation service is not configured")
)

// FailureError is a structured failure returned to the caller instead of a
// partial answer.
type FailureError struct {
	Code    string
	Message string
	Err     error
}

func (e *FailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// stageError carries the reason the retrieval stage handed over to the
// fallback decision.
type stageError struct {
	reason string
	err    error
}

func (e *stageError) Error() string { return e.reason + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func reasonOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.reason
	}
	return reasonLookupFailed
}

// FAQSource provides the FAQ table of the current corpus snapshot. A nil
// table means FAQ data is unavailable.
type FAQSource interface {
	FAQTable() *FAQTable
}

// Orchestrator runs the hybrid retrieval pipeline for one question at a time.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	generator external.Generator
	matcher   *FAQMatcher
	resolver  *AnchorResolver
	search    *LocalSearch
	sessions  repository.SessionStore
	faqs      FAQSource
	metrics   *metrics.Collector
	logger    *zap.Logger

	directThreshold float64
	localThreshold  float64
	fallbackEnabled bool
	newID           func() string
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// OrchestratorWithGenerator sets the generation service
func OrchestratorWithGenerator(g external.Generator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.generator = g
	}
}

// OrchestratorWithFAQMatcher sets the external FAQ matcher
func OrchestratorWithFAQMatcher(m *FAQMatcher) OrchestratorOption {
	return func(o *Orchestrator) {
		o.matcher = m
	}
}

// OrchestratorWithAnchorResolver sets the policy anchor resolver
func OrchestratorWithAnchorResolver(r *AnchorResolver) OrchestratorOption {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// OrchestratorWithLocalSearch sets the keyword search used for the seed list
func OrchestratorWithLocalSearch(s *LocalSearch) OrchestratorOption {
	return func(o *Orchestrator) {
		o.search = s
	}
}

// OrchestratorWithSessionStore sets the session store
func OrchestratorWithSessionStore(s repository.SessionStore) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sessions = s
	}
}

// OrchestratorWithFAQSource sets where the FAQ table comes from
func OrchestratorWithFAQSource(s FAQSource) OrchestratorOption {
	return func(o *Orchestrator) {
		o.faqs = s
	}
}

// OrchestratorWithMetrics sets the metrics collector
func OrchestratorWithMetrics(c *metrics.Collector) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = c
	}
}

// OrchestratorWithLogger sets the logger
func OrchestratorWithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// OrchestratorWithDirectThreshold sets DIRECT_THRESHOLD
func OrchestratorWithDirectThreshold(v float64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.directThreshold = v
	}
}

// OrchestratorWithLocalMatchThreshold sets the minimum local Jaccard score
func OrchestratorWithLocalMatchThreshold(v float64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.localThreshold = v
	}
}

// OrchestratorWithFallback enables or disables the fallback chain
func OrchestratorWithFallback(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.fallbackEnabled = enabled
	}
}

type staticFAQs struct{ table *FAQTable }

func (s staticFAQs) FAQTable() *FAQTable { return s.table }

// NewOrchestrator creates an orchestrator with the given options.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		directThreshold: DefaultDirectThreshold,
		localThreshold:  DefaultLocalMatchThreshold,
		fallbackEnabled: true,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	o.logger = o.logger.With(zap.String("component", "orchestrator"))
	if o.sessions == nil {
		o.sessions = repository.NewMemorySessionStore()
	}
	if o.faqs == nil {
		o.faqs = staticFAQs{}
	}
	if o.matcher == nil {
		o.matcher = NewFAQMatcher(nil, o.logger)
	}
	return o
}

// NewSession creates an empty session under a fresh id.
func (o *Orchestrator) NewSession(ctx context.Context) (*models.ChatSession, error) {
	return o.sessions.GetOrCreate(ctx, o.newID())
}

// DirectAnswer is the keyed FAQ lookup against the current snapshot.
func (o *Orchestrator) DirectAnswer(faqID string) (models.DirectAnswer, bool) {
	return o.faqs.FAQTable().DirectAnswer(faqID)
}

// branchResult is what any branch of the primary answer stage produces.
type branchResult struct {
	answer         string
	related        []models.RelatedLaw
	mode           models.AnswerMode
	retrievalCount int
	matchedID      string
}

// Ask answers one question. It returns either a complete response or a
// *FailureError, never a partial answer.
func (o *Orchestrator) Ask(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, &FailureError{Code: CodeInvalidRequest, Message: "message is required"}
	}
	if o.generator == nil {
		return nil, &FailureError{Code: CodeGenerationFailed, Message: "답변을 생성할 수 없습니다.", Err: ErrGeneratorMissing}
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = o.newID()
	}
	session, err := o.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, &FailureError{Code: CodeSessionFailed, Message: "세션을 불러오지 못했습니다.", Err: err}
	}
	history := session.Turns
	if err := o.sessions.AppendTurn(ctx, sessionID, models.Turn{Role: models.RoleUser, Content: question}); err != nil {
		return nil, &FailureError{Code: CodeSessionFailed, Message: "세션을 저장하지 못했습니다.", Err: err}
	}

	keywords := ExtractKeywords(question)
	var seed []models.RelatedLaw
	if o.search != nil {
		seed = appendRelated(nil, o.search.Search(ctx, keywords, seedLimit), "", nil)
	}

	res, err := o.retrievalStage(ctx, question, history, seed)
	if err != nil {
		res, err = o.fallback(ctx, question, history, seed, err)
		if err != nil {
			return nil, err
		}
	}

	if err := o.sessions.AppendTurn(ctx, sessionID, models.Turn{Role: models.RoleAssistant, Content: res.answer}); err != nil {
		o.logger.Warn("failed to store assistant turn", zap.String("session_id", sessionID), zap.Error(err))
	}

	suggested := o.suggest(ctx, question, res.answer)
	o.metrics.RecordAnswer(string(res.mode))

	related := res.related
	if related == nil {
		related = []models.RelatedLaw{}
	}
	return &models.ChatResponse{
		Answer:         res.answer,
		SuggestedReply: suggested,
		RelatedLaws:    related,
		SessionID:      sessionID,
		Metadata: models.ChatMetadata{
			Mode:              res.mode,
			RetrievalCount:    res.retrievalCount,
			MatchedIdentifier: res.matchedID,
			Keywords:          keywords,
		},
	}, nil
}

// retrievalStage is the external FAQ lookup and the branch it selects. Any
// error, including a recovered panic, hands control to the fallback decision.
func (o *Orchestrator) retrievalStage(ctx context.Context, question string, history []models.Turn, seed []models.RelatedLaw) (res branchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("retrieval stage panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = &stageError{reason: reasonPanic, err: fmt.Errorf("%v", r)}
		}
	}()

	start := time.Now()
	match, lookupErr := o.matcher.MatchExternal(ctx, question)
	o.observeLookup(start, lookupErr)

	outcome := classifyExternal(match, lookupErr, o.faqs.FAQTable(), o.directThreshold)
	return o.dispatch(ctx, question, history, seed, outcome)
}

func (o *Orchestrator) observeLookup(start time.Time, err error) {
	switch {
	case errors.Is(err, ErrRetrievalUnavailable):
		return
	case err == nil:
		o.metrics.RecordCall(external.ServiceRetrieval, "ok", time.Since(start))
	case errors.Is(err, ErrNoFAQMatch):
		o.metrics.RecordCall(external.ServiceRetrieval, "empty", time.Since(start))
	default:
		o.metrics.RecordCall(external.ServiceRetrieval, string(external.KindOf(err)), time.Since(start))
	}
}

// dispatch runs the branch selected by outcome.
func (o *Orchestrator) dispatch(ctx context.Context, question string, history []models.Turn, seed []models.RelatedLaw, outcome faqOutcome) (branchResult, error) {
	switch v := outcome.(type) {
	case noMatch:
		reason := reasonLookupFailed
		if errors.Is(v.cause, ErrNoFAQMatch) {
			reason = reasonNoMatch
		}
		return branchResult{}, &stageError{reason: reason, err: v.cause}

	case basicMatch:
		gc := groundedContext{records: v.records}
		return o.groundedAnswer(ctx, question, history, gc, branchResult{
			related: seed,
			mode:    models.ModeBasicRAG,
		})

	case highConfidence:
		return o.highConfidenceAnswer(ctx, question, history, v.match, v.answer, models.ModeFAQDirect)

	case standardMatch:
		anchors := v.anchors
		if len(anchors) > contextAnchors {
			anchors = anchors[:contextAnchors]
		}
		laws, related := o.resolveAnchors(ctx, anchors, len(anchors))
		gc := groundedContext{records: firstRecords(v.records, contextRecords), laws: laws}
		return o.groundedAnswer(ctx, question, history, gc, branchResult{
			related:   related,
			mode:      models.ModeFAQRAG,
			matchedID: v.match.FAQID,
		})

	case noAnchor:
		gc := groundedContext{records: v.records}
		return o.groundedAnswer(ctx, question, history, gc, branchResult{
			related:   seed,
			mode:      models.ModeFAQOnly,
			matchedID: v.match.FAQID,
		})

	case tableMissing:
		o.logger.Warn("faq table not loaded, answering without faq context", zap.String("faq_id", v.match.FAQID))
		res, err := o.plainAnswer(ctx, question, history, seed)
		if err != nil {
			return branchResult{}, &stageError{reason: reasonGenerationFailed, err: err}
		}
		return res, nil
	}
	return branchResult{}, &stageError{reason: reasonLookupFailed, err: fmt.Errorf("unknown outcome %T", outcome)}
}

// highConfidenceAnswer grounds the answer on the canonical FAQ answer and its
// resolved anchors. The seed list is discarded: related laws are exactly the
// resolved anchors' laws, possibly none.
func (o *Orchestrator) highConfidenceAnswer(
	ctx context.Context,
	question string,
	history []models.Turn,
	match models.FAQMatch,
	answer models.DirectAnswer,
	mode models.AnswerMode,
) (branchResult, error) {
	anchors := models.SplitAnchors(answer.PolicyAnchor)
	laws, related := o.resolveAnchors(ctx, anchors, contextAnchors)
	gc := groundedContext{faq: &answer, laws: laws}
	return o.groundedAnswer(ctx, question, history, gc, branchResult{
		related:   related,
		mode:      mode,
		matchedID: match.FAQID,
	})
}

// resolveAnchors resolves every anchor. Records of the first contextN
// anchors form the generation context; all of them form the related list.
func (o *Orchestrator) resolveAnchors(ctx context.Context, anchors []string, contextN int) ([]models.RetrievalRecord, []models.RelatedLaw) {
	if o.resolver == nil {
		return nil, nil
	}
	var (
		laws    []models.RetrievalRecord
		related []models.RelatedLaw
		seen    = make(map[string]struct{})
	)
	for i, a := range anchors {
		recs := o.resolver.Resolve(ctx, a, anchorLimit)
		if i < contextN {
			laws = append(laws, recs...)
		}
		related = appendRelated(related, recs, a, seen)
	}
	return laws, related
}

func (o *Orchestrator) groundedAnswer(ctx context.Context, question string, history []models.Turn, gc groundedContext, res branchResult) (branchResult, error) {
	text, err := o.generate(ctx, external.GenerateRequest{
		SystemInstruction: systemInstruction,
		History:           history,
		Prompt:            buildGroundedPrompt(question, gc),
		Temperature:       primaryTemperature,
	})
	if err != nil {
		return branchResult{}, &stageError{reason: reasonGenerationFailed, err: err}
	}
	res.answer = text
	res.retrievalCount = gc.count()
	return res, nil
}

// fallback is the Fallback Decision. With fallback disabled the cause
// becomes a structured failure. Otherwise a strong local FAQ match repeats
// the high-confidence logic; anything else is plain generation over the
// session history.
func (o *Orchestrator) fallback(ctx context.Context, question string, history []models.Turn, seed []models.RelatedLaw, cause error) (res branchResult, err error) {
	reason := reasonOf(cause)
	o.logger.Warn("entering fallback",
		zap.String("question", question),
		zap.String("reason", reason),
		zap.String("kind", string(external.KindOf(cause))),
		zap.Error(cause))
	o.metrics.RecordFallback(reason)

	if !o.fallbackEnabled {
		code := CodeRetrievalFailed
		if reason == reasonGenerationFailed {
			code = CodeGenerationFailed
		}
		return branchResult{}, &FailureError{Code: code, Message: "답변을 생성하지 못했습니다. 잠시 후 다시 시도해주세요.", Err: cause}
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("fallback panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = &FailureError{Code: CodeGenerationFailed, Message: "답변을 생성하지 못했습니다.", Err: fmt.Errorf("%v", r)}
		}
	}()

	table := o.faqs.FAQTable()
	if match, ok := table.BestLocalMatch(question, o.localThreshold); ok && match.Score >= o.directThreshold {
		if answer, ok := table.DirectAnswer(match.FAQID); ok {
			res, err := o.highConfidenceAnswer(ctx, question, history, match, answer, models.ModeLocalDirect)
			if err != nil {
				return branchResult{}, &FailureError{Code: CodeGenerationFailed, Message: "답변을 생성하지 못했습니다.", Err: err}
			}
			return res, nil
		}
	}

	res, err = o.plainAnswer(ctx, question, history, seed)
	if err != nil {
		return branchResult{}, &FailureError{Code: CodeGenerationFailed, Message: "답변을 생성하지 못했습니다.", Err: err}
	}
	return res, nil
}

// plainAnswer generates over the session history alone.
func (o *Orchestrator) plainAnswer(ctx context.Context, question string, history []models.Turn, seed []models.RelatedLaw) (branchResult, error) {
	text, err := o.generate(ctx, external.GenerateRequest{
		SystemInstruction: systemInstruction,
		History:           history,
		Prompt:            question,
		Temperature:       primaryTemperature,
	})
	if err != nil {
		return branchResult{}, err
	}
	return branchResult{answer: text, related: seed, mode: models.ModeLLMOnly}, nil
}

// suggest produces the formatted reply. Failures are replaced by a fixed text.
func (o *Orchestrator) suggest(ctx context.Context, question, answer string) string {
	text, err := o.generate(ctx, external.GenerateRequest{
		Prompt:      buildSuggestPrompt(question, answer),
		Temperature: suggestTemperature,
	})
	if err != nil {
		o.logger.Warn("suggested reply generation failed", zap.Error(err))
		return suggestFailureText
	}
	return stripCodeFences(text)
}

func (o *Orchestrator) generate(ctx context.Context, req external.GenerateRequest) (string, error) {
	start := time.Now()
	text, err := o.generator.Generate(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = string(external.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	o.metrics.RecordCall(external.ServiceGeneration, outcome, time.Since(start))
	return text, err
}

func firstRecords(records []models.RetrievalRecord, n int) []models.RetrievalRecord {
	if len(records) > n {
		return records[:n]
	}
	return records
}

// appendRelated converts corpus records into related-law entries, skipping
// titles already present when seen is non-nil.
func appendRelated(dst []models.RelatedLaw, records []models.RetrievalRecord, anchor string, seen map[string]struct{}) []models.RelatedLaw {
	for _, r := range records {
		if seen != nil {
			if _, dup := seen[r.SourceDocumentName]; dup {
				continue
			}
			seen[r.SourceDocumentName] = struct{}{}
		}
		dst = append(dst, r.RelatedLaw(anchor))
	}
	return dst
}
