package repository

import (
	"bytes"
	"testing"

	"policydesk-backend/lawtree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook writes sheets of rows (header first) into an xlsx buffer.
func workbook(t *testing.T, sheets map[string][][]any, order ...string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(name, cell, &values))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadLawWorkbook(t *testing.T) {
	header := []any{"조번호", "조제목", "항번호", "항내용", "호번호", "호내용", "시행여부"}
	buf := workbook(t, map[string][][]any{
		"협약관리": {
			header,
			{"5", "협약의 변경", "1", "협약 내용을 변경하려는 경우 다음 각 호의 서류를 제출한다.", "", "", ""},
			{"", "", "", "", "1", "변경 사유서", ""},
			{},
			{"", "", "2", "경미한 변경은 통보로 갈음한다.", "", "", ""},
		},
		"결과평가": {
			header,
			{"3", "평가 대상", "", "", "", "", "폐지"},
		},
	}, "협약관리", "결과평가")

	rows, err := ReadLawWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	first := rows[0]
	assert.Equal(t, "협약관리", first.RegulationName)
	assert.Equal(t, "협약관리-2", first.RowID)
	assert.Equal(t, "5", first.ArticleNumber)
	assert.Equal(t, "협약의 변경", first.ArticleTitle)
	assert.Equal(t, "1", first.ParagraphNumber)
	assert.True(t, first.IsActive)
	assert.Equal(t, first.ParagraphText, first.FullText)

	assert.Equal(t, "변경 사유서", rows[1].ClauseText)
	assert.Equal(t, "협약관리-5", rows[2].RowID, "blank rows are skipped but keep line numbers")

	assert.Equal(t, "결과평가", rows[3].RegulationName)
	assert.False(t, rows[3].IsActive)

	tree := lawtree.Build(rows)
	assert.Equal(t, []string{
		"제1항: 협약 내용을 변경하려는 경우 다음 각 호의 서류를 제출한다.\n1. 변경 사유서",
		"제2항: 경미한 변경은 통보로 갈음한다.",
	}, tree.Paragraphs("협약관리", "제5조"))
}

func TestReadLawWorkbook_EnglishHeadersAndIDs(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"정산": {
			{"law_id", "article_num", "full_text", "tags"},
			{"L-100", "12", "사업비 정산은 종료 후 2개월 이내에 한다.", "정산"},
		},
	}, "정산")

	rows, err := ReadLawWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "L-100", rows[0].RowID)
	assert.Equal(t, "정산", rows[0].LawTitle)
	assert.Equal(t, "정산", rows[0].Tags)
	assert.Equal(t, "사업비 정산은 종료 후 2개월 이내에 한다.", rows[0].FullText)
}

func TestReadFAQWorkbook(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"faq": {
			{"faq_id", "question", "answer_text", "policy_anchor", "tags"},
			{"FAQ-001", "협약 변경은 어떻게 하나요?", "승인을 받아야 합니다.", "협약체결 및 사업비 관리 제5조", "협약"},
			{"", "식별자 없는 질문", "무시", "", ""},
			{"FAQ-002", "정산 기한은?", "", "", ""},
		},
	}, "faq")

	faqs, err := ReadFAQWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, faqs, 2)
	assert.Equal(t, "FAQ-001", faqs[0].ID)
	assert.Equal(t, "협약", faqs[0].Tags)
	assert.Equal(t, "협약체결 및 사업비 관리 제5조", faqs[0].PolicyAnchor)
	assert.Empty(t, faqs[1].AnswerText)
}

func TestReadWorkbook_NotAWorkbook(t *testing.T) {
	_, err := ReadLawWorkbook(bytes.NewReader([]byte("not xlsx")))
	assert.Error(t, err)
	_, err = ReadFAQWorkbook(bytes.NewReader([]byte("not xlsx")))
	assert.Error(t, err)
}
