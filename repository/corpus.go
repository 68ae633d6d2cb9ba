package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"policydesk-backend/models"
)

// CorpusStore is the read contract over the law and FAQ tables.
// "Not found" is always an empty result, never an error.
type CorpusStore interface {
	// AllLawRows enumerates every law row in storage order, for tree building.
	AllLawRows(ctx context.Context) ([]models.LawRow, error)
	// SearchLaws returns at most limit rows whose full text, article title or
	// tags contain keyword, one row per (regulation, article), active rows first.
	SearchLaws(ctx context.Context, keyword string, limit int) ([]models.LawRow, error)
	// LawsByArticle returns rows of the given article number whose regulation
	// name contains any of fragments. An empty fragment list matches every regulation.
	LawsByArticle(ctx context.Context, fragments []string, articleNumber string, limit int) ([]models.LawRow, error)
	// AllFAQs loads the FAQ table.
	AllFAQs(ctx context.Context) ([]models.FAQEntry, error)
}

const lawColumns = `law_id, law_title, sheet_name, chapter_num, chapter_title, article_num, article_title,
	paragraph_num, paragraph_content, clause_num, clause_content, item_num, item_content,
	full_text, tag, is_active`

const faqColumns = `faq_id, question, answer_text, policy_anchor, tag`

// dialect captures the two places where SQLite and Postgres SQL differ.
type dialect struct {
	placeholder func(n int) string
	contains    func(column, arg string) string
}

var sqliteDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("?%d", n) },
	contains:    func(column, arg string) string { return fmt.Sprintf("instr(%s, %s) > 0", column, arg) },
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	contains:    func(column, arg string) string { return fmt.Sprintf("strpos(%s, %s) > 0", column, arg) },
}

// searchQuery picks the first row of every (sheet_name, article_num) group
// that mentions the keyword. Substring matching is case-sensitive on both engines.
func (d dialect) searchQuery() string {
	kw := d.placeholder(1)
	return fmt.Sprintf(`
		SELECT %s
		FROM laws
		WHERE id IN (
			SELECT MIN(id) FROM laws
			WHERE %s OR %s OR %s
			GROUP BY sheet_name, article_num
		)
		ORDER BY is_active DESC, id
		LIMIT %s`,
		lawColumns,
		d.contains("full_text", kw), d.contains("article_title", kw), d.contains("tag", kw),
		d.placeholder(2))
}

// articleQuery builds the structured anchor lookup. Article numbers are
// matched against the bare digits, the spreadsheet float form and "제N조".
func (d dialect) articleQuery(fragments []string, articleNumber string, limit int) (string, []any) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return d.placeholder(len(args))
	}

	where := []string{fmt.Sprintf("article_num IN (%s, %s, %s)",
		next(articleNumber), next(articleNumber+".0"), next("제"+articleNumber+"조"))}
	if len(fragments) > 0 {
		var ors []string
		for _, f := range fragments {
			ors = append(ors, d.contains("sheet_name", next(f)))
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM laws
		WHERE %s
		ORDER BY is_active DESC, id
		LIMIT %s`, lawColumns, strings.Join(where, " AND "), next(limit))
	return query, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLawRow(s scanner) (models.LawRow, error) {
	var (
		row    models.LawRow
		cols   [15]sql.NullString
		active sql.NullBool
	)
	dest := make([]any, 0, 16)
	for i := range cols {
		dest = append(dest, &cols[i])
	}
	dest = append(dest, &active)
	if err := s.Scan(dest...); err != nil {
		return row, err
	}

	row.RowID = cols[0].String
	row.LawTitle = cols[1].String
	row.RegulationName = cols[2].String
	row.ChapterNumber = cols[3].String
	row.ChapterTitle = cols[4].String
	row.ArticleNumber = cols[5].String
	row.ArticleTitle = cols[6].String
	row.ParagraphNumber = cols[7].String
	row.ParagraphText = cols[8].String
	row.ClauseNumber = cols[9].String
	row.ClauseText = cols[10].String
	row.ItemNumber = cols[11].String
	row.ItemText = cols[12].String
	row.FullText = cols[13].String
	row.Tags = cols[14].String
	row.IsActive = !active.Valid || active.Bool
	return row, nil
}

func scanFAQ(s scanner) (models.FAQEntry, error) {
	var (
		faq               models.FAQEntry
		anchor, tag, text sql.NullString
	)
	if err := s.Scan(&faq.ID, &faq.Question, &text, &anchor, &tag); err != nil {
		return faq, err
	}
	faq.AnswerText = text.String
	faq.PolicyAnchor = anchor.String
	faq.Tags = tag.String
	return faq, nil
}

// lawArgs flattens a row into insert arguments in lawColumns order.
func lawArgs(r models.LawRow) []any {
	return []any{
		r.RowID, r.LawTitle, r.RegulationName, r.ChapterNumber, r.ChapterTitle, r.ArticleNumber, r.ArticleTitle,
		r.ParagraphNumber, r.ParagraphText, r.ClauseNumber, r.ClauseText, r.ItemNumber, r.ItemText,
		r.FullText, r.Tags, r.IsActive,
	}
}

func faqArgs(f models.FAQEntry) []any {
	return []any{f.ID, f.Question, f.AnswerText, f.PolicyAnchor, f.Tags}
}

func placeholders(d dialect, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}
