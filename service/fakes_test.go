package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"policydesk-backend/external"
	"policydesk-backend/models"
)

// memoryCorpus is an in-memory CorpusStore with the same query semantics as
// the SQL stores.
type memoryCorpus struct {
	rows []models.LawRow
	faqs []models.FAQEntry
	err  error
}

func (c *memoryCorpus) AllLawRows(context.Context) ([]models.LawRow, error) {
	return c.rows, c.err
}

func (c *memoryCorpus) SearchLaws(_ context.Context, keyword string, limit int) ([]models.LawRow, error) {
	if c.err != nil {
		return nil, c.err
	}
	var hits []models.LawRow
	seen := make(map[string]bool)
	for _, r := range c.rows {
		if !strings.Contains(r.FullText, keyword) && !strings.Contains(r.ArticleTitle, keyword) && !strings.Contains(r.Tags, keyword) {
			continue
		}
		key := r.RegulationName + "|" + r.ArticleNumber
		if seen[key] {
			continue
		}
		seen[key] = true
		hits = append(hits, r)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].IsActive && !hits[j].IsActive })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (c *memoryCorpus) LawsByArticle(_ context.Context, fragments []string, articleNumber string, limit int) ([]models.LawRow, error) {
	if c.err != nil {
		return nil, c.err
	}
	var hits []models.LawRow
	for _, r := range c.rows {
		if r.ArticleNumber != articleNumber && r.ArticleNumber != articleNumber+".0" && r.ArticleNumber != "제"+articleNumber+"조" {
			continue
		}
		if len(fragments) > 0 {
			matched := false
			for _, f := range fragments {
				if strings.Contains(r.RegulationName, f) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		hits = append(hits, r)
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (c *memoryCorpus) AllFAQs(context.Context) ([]models.FAQEntry, error) {
	return c.faqs, c.err
}

func testCorpus() *memoryCorpus {
	return &memoryCorpus{
		rows: []models.LawRow{
			{RowID: "A1", RegulationName: "협약체결 및 사업비 관리", ArticleNumber: "제5조", ArticleTitle: "협약의 변경", ParagraphNumber: "1", FullText: "협약 내용을 변경하려는 경우 전문기관의 승인을 받아야 한다.", Tags: "협약,변경", IsActive: true},
			{RowID: "A2", RegulationName: "협약체결 및 사업비 관리", ArticleNumber: "제5조", ParagraphNumber: "2", FullText: "경미한 변경은 통보로 갈음한다.", IsActive: true},
			{RowID: "A3", RegulationName: "협약체결 및 사업비 관리", ArticleNumber: "제7조", ArticleTitle: "협약의 해약", FullText: "협약을 해약할 수 있다.", IsActive: true},
			{RowID: "B1", RegulationName: "사업비 산정 및 정산", ArticleNumber: "제12조", ArticleTitle: "정산", FullText: "사업비 정산은 종료 후 2개월 이내에 한다.", Tags: "정산", IsActive: true},
			{RowID: "C1", RegulationName: "결과평가", ArticleNumber: "제3조", ArticleTitle: "평가 대상", FullText: "종료된 과제는 결과평가를 받는다.", IsActive: false},
			{RowID: "D1", RegulationName: "협약관리", ArticleNumber: "5", ArticleTitle: "협약의 변경", FullText: "협약관리 제5조 본문", IsActive: true},
		},
		faqs: []models.FAQEntry{
			{ID: "FAQ-001", Question: "협약 변경은 어떻게 하나요?", AnswerText: "전문기관의 승인을 받아야 합니다.", PolicyAnchor: "협약체결 및 사업비 관리 제5조; 사업비 산정 및 정산 제12조"},
			{ID: "FAQ-002", Question: "정산 기한은 언제인가요?", AnswerText: "", PolicyAnchor: "사업비 정산 제12조"},
			{ID: "FAQ-003", Question: "평가위원은 누가 정하나요?", AnswerText: "전문기관이 정합니다."},
		},
	}
}

// fakeGenerator records every call and answers through fn.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []external.GenerateRequest
	fn    func(n int, req external.GenerateRequest) (string, error)
}

func (g *fakeGenerator) Generate(_ context.Context, req external.GenerateRequest) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	n := len(g.calls)
	g.mu.Unlock()
	if g.fn != nil {
		return g.fn(n, req)
	}
	return "answer", nil
}

func (g *fakeGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGenerator) call(i int) external.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[i]
}

// fakeRetriever returns scripted responses in order, repeating the last one.
type fakeRetriever struct {
	mu        sync.Mutex
	responses []retrieverResponse
	calls     int
}

type retrieverResponse struct {
	records []models.RetrievalRecord
	err     error
}

func (r *fakeRetriever) Retrieve(context.Context, external.RetrieveRequest) ([]models.RetrievalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	if i >= len(r.responses) {
		i = len(r.responses) - 1
	}
	r.calls++
	resp := r.responses[i]
	return resp.records, resp.err
}

func retrieverReturning(records ...models.RetrievalRecord) *fakeRetriever {
	return &fakeRetriever{responses: []retrieverResponse{{records: records}}}
}

func retrieverFailing(err error) *fakeRetriever {
	return &fakeRetriever{responses: []retrieverResponse{{err: err}}}
}

var errTimeout = &external.CallError{Service: external.ServiceRetrieval, Kind: external.KindTimeout, Err: context.DeadlineExceeded}

var errUnavailable = &external.CallError{Service: external.ServiceRetrieval, Kind: external.KindStatus, StatusCode: 503, Err: errors.New("unavailable")}

func faqRecord(id string, score float64) models.RetrievalRecord {
	return models.RetrievalRecord{
		Content:            "**FAQ ID**: " + id + "\n질문 내용",
		SourceDocumentName: id + ".md",
		RelevanceScore:     score,
	}
}
