package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"policydesk-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCorpus(t *testing.T) *SQLiteCorpus {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	corpus := NewSQLiteCorpus(db)
	ctx := context.Background()
	require.NoError(t, corpus.InitSchema(ctx))

	laws := []models.LawRow{
		{RowID: "L1", RegulationName: "협약체결 및 사업비 관리", ArticleNumber: "제5조", ArticleTitle: "협약의 변경", ParagraphNumber: "1", ParagraphText: "협약 변경 승인", FullText: "협약 내용을 변경하려면 승인을 받아야 한다.", Tags: "협약", IsActive: true},
		{RowID: "L2", RegulationName: "협약체결 및 사업비 관리", ArticleNumber: "제5조", ParagraphNumber: "2", ParagraphText: "경미한 변경", FullText: "경미한 협약 변경은 통보로 갈음한다.", IsActive: true},
		{RowID: "L3", RegulationName: "사업비 산정 및 정산", ArticleNumber: "5", ArticleTitle: "정산", FullText: "사업비 정산 절차", IsActive: false},
		{RowID: "L4", RegulationName: "결과평가", ArticleNumber: "제12조", ArticleTitle: "평가위원회", FullText: "협약 종료 후 결과평가를 실시한다.", IsActive: true},
	}
	faqs := []models.FAQEntry{
		{ID: "FAQ-001", Question: "협약 변경은 어떻게 하나요?", AnswerText: "승인을 받아야 합니다.", PolicyAnchor: "협약체결 및 사업비 관리 제5조"},
		{ID: "FAQ-002", Question: "정산 기한은?", AnswerText: "종료 후 2개월"},
	}
	require.NoError(t, corpus.InsertLawRows(ctx, laws))
	require.NoError(t, corpus.InsertFAQs(ctx, faqs))
	return corpus
}

func TestSQLiteCorpus_AllLawRows(t *testing.T) {
	corpus := newTestCorpus(t)

	rows, err := corpus.AllLawRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "L1", rows[0].RowID)
	assert.Equal(t, "1", rows[0].ParagraphNumber)
	assert.True(t, rows[0].IsActive)
	assert.False(t, rows[2].IsActive)
	assert.Equal(t, "협약", rows[0].Tags)
}

func TestSQLiteCorpus_SearchLawsDedupsArticles(t *testing.T) {
	corpus := newTestCorpus(t)

	rows, err := corpus.SearchLaws(context.Background(), "협약", 10)
	require.NoError(t, err)

	// L1 and L2 share an article, so only the first is returned.
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.RowID)
	}
	assert.Equal(t, []string{"L1", "L4"}, ids)
}

func TestSQLiteCorpus_SearchLawsActiveFirst(t *testing.T) {
	corpus := newTestCorpus(t)

	rows, err := corpus.SearchLaws(context.Background(), "정산", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "L3", rows[0].RowID)

	rows, err = corpus.SearchLaws(context.Background(), "없는단어", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteCorpus_SearchLawsIsCaseSensitive(t *testing.T) {
	corpus := newTestCorpus(t)
	ctx := context.Background()
	require.NoError(t, corpus.InsertLawRows(ctx, []models.LawRow{
		{RowID: "L9", RegulationName: "ICT예산정책협의체 운영", ArticleNumber: "1", FullText: "ICT 예산", IsActive: true},
	}))

	rows, err := corpus.SearchLaws(ctx, "ict", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = corpus.SearchLaws(ctx, "ICT", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSQLiteCorpus_LawsByArticle(t *testing.T) {
	corpus := newTestCorpus(t)
	ctx := context.Background()

	rows, err := corpus.LawsByArticle(ctx, []string{"협약체결"}, "5", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "L1", rows[0].RowID)

	// Without fragments the article number alone decides, across regulations.
	rows, err = corpus.LawsByArticle(ctx, nil, "5", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = corpus.LawsByArticle(ctx, []string{"협약체결"}, "99", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = corpus.LawsByArticle(ctx, nil, "5", 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSQLiteCorpus_AllFAQs(t *testing.T) {
	corpus := newTestCorpus(t)

	faqs, err := corpus.AllFAQs(context.Background())
	require.NoError(t, err)
	require.Len(t, faqs, 2)
	assert.Equal(t, "FAQ-001", faqs[0].ID)
	assert.Equal(t, "협약체결 및 사업비 관리 제5조", faqs[0].PolicyAnchor)
	assert.Empty(t, faqs[1].PolicyAnchor)
}

func TestDialect_ArticleQueryPlaceholders(t *testing.T) {
	query, args := postgresDialect.articleQuery([]string{"협약", "정산"}, "7", 5)

	assert.Contains(t, query, "article_num IN ($1, $2, $3)")
	assert.Contains(t, query, "strpos(sheet_name, $4) > 0 OR strpos(sheet_name, $5) > 0")
	assert.Contains(t, query, "LIMIT $6")
	assert.Equal(t, []any{"7", "7.0", "제7조", "협약", "정산", 5}, args)
}

func TestOpenCorpus(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chatbot.db")

	corpus, err := OpenCorpus(ctx, "sqlite", path, "")
	require.NoError(t, err)
	defer corpus.Close()

	require.NoError(t, corpus.InitSchema(ctx))
	require.NoError(t, corpus.InsertFAQs(ctx, []models.FAQEntry{{ID: "FAQ-001", Question: "q", AnswerText: "a"}}))
	faqs, err := corpus.AllFAQs(ctx)
	require.NoError(t, err)
	assert.Len(t, faqs, 1)
	assert.Equal(t, path, corpus.(*SQLiteCorpus).Path())

	_, err = OpenCorpus(ctx, "oracle", "", "")
	assert.Error(t, err)
}
