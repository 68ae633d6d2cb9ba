package repository

import (
	"context"
	"fmt"

	"policydesk-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCorpus handles corpus queries against Postgres
type PostgresCorpus struct {
	db *pgxpool.Pool
}

// NewPostgresCorpus creates a new Postgres corpus store
func NewPostgresCorpus(db *pgxpool.Pool) *PostgresCorpus {
	return &PostgresCorpus{db: db}
}

// Close closes the connection pool.
func (c *PostgresCorpus) Close() error {
	c.db.Close()
	return nil
}

// InitSchema runs every PostgresSchema statement in order.
func (c *PostgresCorpus) InitSchema(ctx context.Context) error {
	for _, stmt := range PostgresSchema {
		if _, err := c.db.Exec(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.Name, err)
		}
	}
	return nil
}

// InsertLawRows upserts law rows keyed by law_id in a single batch.
func (c *PostgresCorpus) InsertLawRows(ctx context.Context, rows []models.LawRow) error {
	query := fmt.Sprintf(`
		INSERT INTO laws (%s) VALUES (%s)
		ON CONFLICT (law_id) DO NOTHING`, lawColumns, placeholders(postgresDialect, 16))

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query, lawArgs(r)...)
	}
	if err := c.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert law rows: %w", err)
	}
	return nil
}

// InsertFAQs upserts FAQ entries keyed by faq_id.
func (c *PostgresCorpus) InsertFAQs(ctx context.Context, faqs []models.FAQEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO faqs (%s) VALUES (%s)
		ON CONFLICT (faq_id) DO UPDATE SET
			question = EXCLUDED.question,
			answer_text = EXCLUDED.answer_text,
			policy_anchor = EXCLUDED.policy_anchor,
			tag = EXCLUDED.tag`, faqColumns, placeholders(postgresDialect, 5))

	batch := &pgx.Batch{}
	for _, f := range faqs {
		batch.Queue(query, faqArgs(f)...)
	}
	if err := c.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert faqs: %w", err)
	}
	return nil
}

// AllLawRows returns every law row in insertion order.
func (c *PostgresCorpus) AllLawRows(ctx context.Context) ([]models.LawRow, error) {
	return c.queryLaws(ctx, fmt.Sprintf(`SELECT %s FROM laws ORDER BY id`, lawColumns))
}

// SearchLaws performs the keyword substring search.
func (c *PostgresCorpus) SearchLaws(ctx context.Context, keyword string, limit int) ([]models.LawRow, error) {
	if keyword == "" || limit <= 0 {
		return nil, nil
	}
	return c.queryLaws(ctx, postgresDialect.searchQuery(), keyword, limit)
}

// LawsByArticle performs the structured article lookup.
func (c *PostgresCorpus) LawsByArticle(ctx context.Context, fragments []string, articleNumber string, limit int) ([]models.LawRow, error) {
	if articleNumber == "" || limit <= 0 {
		return nil, nil
	}
	query, args := postgresDialect.articleQuery(fragments, articleNumber, limit)
	return c.queryLaws(ctx, query, args...)
}

// AllFAQs returns the FAQ table in insertion order.
func (c *PostgresCorpus) AllFAQs(ctx context.Context) ([]models.FAQEntry, error) {
	rows, err := c.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM faqs ORDER BY id`, faqColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to query faqs: %w", err)
	}
	defer rows.Close()

	var faqs []models.FAQEntry
	for rows.Next() {
		faq, err := scanFAQ(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan faq: %w", err)
		}
		faqs = append(faqs, faq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating faqs: %w", err)
	}
	return faqs, nil
}

func (c *PostgresCorpus) queryLaws(ctx context.Context, query string, args ...any) ([]models.LawRow, error) {
	rows, err := c.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query laws: %w", err)
	}
	defer rows.Close()

	var laws []models.LawRow
	for rows.Next() {
		law, err := scanLawRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan law row: %w", err)
		}
		laws = append(laws, law)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating law rows: %w", err)
	}
	return laws, nil
}
