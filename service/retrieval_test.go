package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"policydesk-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{"strips punctuation", "협약 변경은 어떻게 하나요?", []string{"협약", "변경은"}},
		{"drops short tokens", "a 및 정산 b", []string{"정산"}},
		{"first occurrence order", "정산 협약 정산 협약", []string{"정산", "협약"}},
		{"caps at five", "하나둘 셋넷 다섯 여섯 일곱 여덟 아홉", []string{"하나둘", "셋넷", "다섯", "여섯", "일곱"}},
		{"only stop words", "어떻게 하나요", []string{}},
		{"symbols split tokens", "사업비(인건비)·정산", []string{"사업비", "인건비", "정산"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.question))
		})
	}
}

func TestExtractKeywords_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOf(rapid.SampledFrom([]string{
			"협약", "변경", "a", "가", "정산", "어떻게", "사업비", "?", "!!", "제5조", "평가", "ICT", "기금", "  ",
		})).Draw(t, "words")
		question := strings.Join(words, " ")

		got := ExtractKeywords(question)
		if len(got) > MaxKeywords {
			t.Fatalf("got %d keywords", len(got))
		}
		seen := make(map[string]bool)
		last := -1
		for _, k := range got {
			if utf8.RuneCountInString(k) < 2 {
				t.Fatalf("short keyword %q", k)
			}
			if _, stop := stopWords[k]; stop {
				t.Fatalf("stop word %q", k)
			}
			if seen[k] {
				t.Fatalf("duplicate keyword %q", k)
			}
			seen[k] = true

			idx := -1
			for i, tok := range tokenize(question) {
				if tok == k {
					idx = i
					break
				}
			}
			if idx <= last {
				t.Fatalf("keyword %q out of order", k)
			}
			last = idx
		}
	})
}

func TestLocalSearch_FindsRegulationByKeyword(t *testing.T) {
	s := NewLocalSearch(testCorpus(), zap.NewNop())

	records := s.Search(context.Background(), []string{"협약"}, 10)
	require.NotEmpty(t, records)

	var found bool
	for _, r := range records {
		if strings.Contains(r.SourceDocumentName, "협약관리") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLocalSearch_DedupsAcrossTokensAndTruncates(t *testing.T) {
	s := NewLocalSearch(testCorpus(), zap.NewNop())

	records := s.Search(context.Background(), []string{"협약", "변경", "정산"}, 10)
	keys := make(map[string]bool)
	for _, r := range records {
		k := articleIdentity(r)
		assert.False(t, keys[k], "duplicate %s", k)
		keys[k] = true
	}
	// First-keyword-first: every 협약 hit precedes the 정산 hit.
	assert.Equal(t, "사업비 산정 및 정산", records[len(records)-1].Regulation)

	limited := s.Search(context.Background(), []string{"협약", "정산"}, 2)
	assert.Len(t, limited, 2)
}

func TestLocalSearch_RecordShape(t *testing.T) {
	s := NewLocalSearch(testCorpus(), zap.NewNop())

	records := s.Search(context.Background(), []string{"평가"}, 5)
	require.Len(t, records, 1)
	assert.Equal(t, "결과평가 제3조 (평가 대상)", records[0].SourceDocumentName)
	assert.Equal(t, "제3조", records[0].ArticleKey)
	assert.Equal(t, inactiveScore, records[0].RelevanceScore)
}

func TestLocalSearch_StoreErrorIsSkipped(t *testing.T) {
	s := NewLocalSearch(&memoryCorpus{err: errors.New("db down")}, zap.NewNop())
	assert.Empty(t, s.Search(context.Background(), []string{"협약"}, 5))
}

func TestParseAnchor(t *testing.T) {
	p := ParseAnchor("방송통신발전기금 운용관리규정 제12조 제3항")
	assert.Equal(t, "12", p.ArticleNumber)
	assert.Equal(t, "3", p.ParagraphNumber)
	assert.Equal(t, []string{"방발기금"}, p.Fragments)

	p = ParseAnchor("협약체결 및 사업비 관리 제5조")
	assert.Equal(t, []string{"협약체결", "사업비"}, p.Fragments)

	p = ParseAnchor("관련 규정 참조")
	assert.Empty(t, p.ArticleNumber)
	assert.Empty(t, p.Fragments)
}

func newTestResolver(c *memoryCorpus) *AnchorResolver {
	return NewAnchorResolver(c, NewLocalSearch(c, zap.NewNop()), zap.NewNop())
}

func TestAnchorResolver_StructuredLookupMergesParagraphs(t *testing.T) {
	r := newTestResolver(testCorpus())

	records := r.Resolve(context.Background(), "협약체결 및 사업비 관리 제5조 제2항", 5)
	require.Len(t, records, 1)
	assert.Equal(t, "협약체결 및 사업비 관리", records[0].Regulation)
	assert.Contains(t, records[0].Content, "승인을 받아야 한다")
	assert.Contains(t, records[0].Content, "통보로 갈음한다")
}

func TestAnchorResolver_UnknownRegulationUsesArticleNumber(t *testing.T) {
	r := newTestResolver(testCorpus())

	records := r.Resolve(context.Background(), "어느 지침 제12조", 5)
	require.Len(t, records, 1)
	assert.Equal(t, "제12조", records[0].ArticleKey)
}

func TestAnchorResolver_FallsBackToKeywordSearch(t *testing.T) {
	r := newTestResolver(testCorpus())

	// 제99조 exists nowhere; the 정산 fragment still finds the regulation text.
	records := r.Resolve(context.Background(), "사업비 정산 제99조", 5)
	require.NotEmpty(t, records)
	assert.Equal(t, "사업비 산정 및 정산", records[0].Regulation)
}

func TestAnchorResolver_Unresolvable(t *testing.T) {
	r := newTestResolver(testCorpus())
	ctx := context.Background()

	assert.Empty(t, r.Resolve(ctx, "관련 규정 참조", 5))
	assert.Empty(t, r.Resolve(ctx, "", 5))
	assert.Empty(t, r.Resolve(ctx, ";;", 5))

	broken := newTestResolver(&memoryCorpus{err: errors.New("db down")})
	assert.Empty(t, broken.Resolve(ctx, "협약 제5조", 5))
}

func TestAnchorResolver_MultipleAnchorsCapped(t *testing.T) {
	r := newTestResolver(testCorpus())
	ctx := context.Background()

	records := r.Resolve(ctx, "협약체결 및 사업비 관리 제5조; 사업비 산정 및 정산 제12조; 결과평가 제3조", 5)
	require.Len(t, records, 3)
	assert.Equal(t, "제5조", records[0].ArticleKey)
	assert.Equal(t, "제12조", records[1].ArticleKey)
	assert.Equal(t, "제3조", records[2].ArticleKey)

	capped := r.Resolve(ctx, "협약체결 및 사업비 관리 제5조; 사업비 산정 및 정산 제12조; 결과평가 제3조", 2)
	assert.Len(t, capped, 2)
}

func TestExtractFAQID(t *testing.T) {
	tests := []struct {
		name string
		rec  models.RetrievalRecord
		want string
	}{
		{"front matter", models.RetrievalRecord{Content: "---\nfaq_id: FAQ-012\ntags: 협약\n---"}, "FAQ-012"},
		{"bold label", models.RetrievalRecord{Content: "**FAQ ID**: Q_07  \n**태그**: 정산"}, "Q_07"},
		{"full width colon", models.RetrievalRecord{Content: "FAQ ID： F100"}, "F100"},
		{"filename", models.RetrievalRecord{Content: "본문", SourceDocumentName: "FAQ-033.md"}, "FAQ-033"},
		{"content wins", models.RetrievalRecord{Content: "faq_id: A1", SourceDocumentName: "B2.md"}, "A1"},
		{"unidentifiable", models.RetrievalRecord{Content: "본문", SourceDocumentName: "ICT 기금사업 FAQ.pdf"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFAQID(tt.rec))
		})
	}
}

func TestFAQTable_DirectAnswer(t *testing.T) {
	table := NewFAQTable(testCorpus().faqs)
	assert.Equal(t, 3, table.Len())

	da, ok := table.DirectAnswer("FAQ-001")
	require.True(t, ok)
	assert.Equal(t, "전문기관의 승인을 받아야 합니다.", da.AnswerText)
	assert.Equal(t, "협약 변경은 어떻게 하나요?", da.Question)

	_, ok = table.DirectAnswer("FAQ-002")
	assert.False(t, ok, "entry without answer text")

	_, ok = table.DirectAnswer("missing")
	assert.False(t, ok)

	var empty *FAQTable
	_, ok = empty.DirectAnswer("FAQ-001")
	assert.False(t, ok)
}

func TestFAQTable_BestLocalMatch(t *testing.T) {
	table := NewFAQTable(testCorpus().faqs)

	m, ok := table.BestLocalMatch("협약 변경은 어떻게 하나요?", 0.5)
	require.True(t, ok)
	assert.Equal(t, "FAQ-001", m.FAQID)
	assert.Equal(t, 1.0, m.Score)

	m, ok = table.BestLocalMatch("협약 변경은 어떻게", 0.5)
	require.True(t, ok)
	assert.Equal(t, "FAQ-001", m.FAQID)
	assert.InDelta(t, 0.75, m.Score, 1e-9)

	_, ok = table.BestLocalMatch("전혀 다른 질문", 0.5)
	assert.False(t, ok)

	_, ok = NewFAQTable(nil).BestLocalMatch("협약", 0)
	assert.False(t, ok)
}

func TestFAQMatcher_RetriesOnceOnRetryableFailure(t *testing.T) {
	retriever := &fakeRetriever{responses: []retrieverResponse{
		{err: errUnavailable},
		{records: []models.RetrievalRecord{faqRecord("FAQ-001", 0.9)}},
	}}
	m := NewFAQMatcher(retriever, zap.NewNop())

	match, err := m.MatchExternal(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "FAQ-001", match.FAQID)
	assert.Equal(t, 2, retriever.calls)
}

func TestFAQMatcher_DoesNotRetryTimeout(t *testing.T) {
	retriever := retrieverFailing(errTimeout)
	m := NewFAQMatcher(retriever, zap.NewNop())

	_, err := m.MatchExternal(context.Background(), "q")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, retriever.calls)
}

func TestFAQMatcher_EmptyAndUnavailable(t *testing.T) {
	_, err := NewFAQMatcher(retrieverReturning(), zap.NewNop()).MatchExternal(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNoFAQMatch)

	_, err = NewFAQMatcher(nil, zap.NewNop()).MatchExternal(context.Background(), "q")
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

func TestFAQMatcher_UnidentifiedTopRecord(t *testing.T) {
	rec := models.RetrievalRecord{Content: "본문", SourceDocumentName: "faq all.pdf", RelevanceScore: 0.8}
	match, err := NewFAQMatcher(retrieverReturning(rec), zap.NewNop()).MatchExternal(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, match.FAQID)
	assert.Len(t, match.Records, 1)
}
