package repository

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"policydesk-backend/models"

	"github.com/xuri/excelize/v2"
)

// lawHeaderColumns maps the law workbook headers onto LawRow fields. English
// headers equal to the table column names are accepted as well.
var lawHeaderColumns = map[string]string{
	"장번호":  "chapter_num",
	"장제목":  "chapter_title",
	"조번호":  "article_num",
	"조제목":  "article_title",
	"항번호":  "paragraph_num",
	"항내용":  "paragraph_content",
	"호번호":  "clause_num",
	"호내용":  "clause_content",
	"목번호":  "item_num",
	"목내용":  "item_content",
	"법령ID": "law_id",
	"법령명":  "law_title",
	"전문":   "full_text",
	"시행여부": "is_active",
	"태그":   "tag",
	"tags": "tag",
}

var faqHeaderColumns = map[string]string{
	"tags":   "tag",
	"FAQ ID": "faq_id",
	"질문":     "question",
	"답변":     "answer_text",
	"근거규정":   "policy_anchor",
	"태그":     "tag",
}

// header resolves the column positions of one sheet.
type header map[string]int

func newHeader(cells []string, aliases map[string]string) header {
	h := make(header, len(cells))
	for i, c := range cells {
		name := strings.TrimSpace(c)
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

func (h header) get(row []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadLawWorkbook reads every sheet of a law workbook. Each sheet is one
// regulation group: its name becomes the rows' regulation name. Rows
// without a law_id column get "<sheet>-<row>" identifiers.
func ReadLawWorkbook(r io.Reader) ([]models.LawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open law workbook: %w", err)
	}
	defer f.Close()

	var out []models.LawRow
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		h := newHeader(rows[0], lawHeaderColumns)
		for i, cells := range rows[1:] {
			if blank(cells) {
				continue
			}
			out = append(out, lawRowFromCells(sheet, i+2, h, cells))
		}
	}
	return out, nil
}

func lawRowFromCells(sheet string, line int, h header, cells []string) models.LawRow {
	row := models.LawRow{
		RowID:           h.get(cells, "law_id"),
		LawTitle:        h.get(cells, "law_title"),
		RegulationName:  strings.TrimSpace(sheet),
		ChapterNumber:   h.get(cells, "chapter_num"),
		ChapterTitle:    h.get(cells, "chapter_title"),
		ArticleNumber:   h.get(cells, "article_num"),
		ArticleTitle:    h.get(cells, "article_title"),
		ParagraphNumber: h.get(cells, "paragraph_num"),
		ParagraphText:   h.get(cells, "paragraph_content"),
		ClauseNumber:    h.get(cells, "clause_num"),
		ClauseText:      h.get(cells, "clause_content"),
		ItemNumber:      h.get(cells, "item_num"),
		ItemText:        h.get(cells, "item_content"),
		FullText:        h.get(cells, "full_text"),
		Tags:            h.get(cells, "tag"),
		IsActive:        parseActive(h.get(cells, "is_active")),
	}
	if row.RowID == "" {
		row.RowID = sheet + "-" + strconv.Itoa(line)
	}
	if row.LawTitle == "" {
		row.LawTitle = row.RegulationName
	}
	if row.FullText == "" {
		var parts []string
		for _, t := range []string{row.ParagraphText, row.ClauseText, row.ItemText} {
			if t != "" {
				parts = append(parts, t)
			}
		}
		row.FullText = strings.Join(parts, " ")
	}
	return row
}

// parseActive treats an empty cell as active.
func parseActive(v string) bool {
	switch strings.ToLower(v) {
	case "0", "false", "n", "no", "폐지", "아니오":
		return false
	}
	return true
}

// ReadFAQWorkbook reads FAQ entries from the first sheet of a workbook.
// Rows without an identifier or question are skipped.
func ReadFAQWorkbook(r io.Reader) ([]models.FAQEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open faq workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	h := newHeader(rows[0], faqHeaderColumns)
	var out []models.FAQEntry
	for _, cells := range rows[1:] {
		e := models.FAQEntry{
			ID:           h.get(cells, "faq_id"),
			Question:     h.get(cells, "question"),
			AnswerText:   h.get(cells, "answer_text"),
			PolicyAnchor: h.get(cells, "policy_anchor"),
			Tags:         h.get(cells, "tag"),
		}
		if e.ID == "" || e.Question == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
