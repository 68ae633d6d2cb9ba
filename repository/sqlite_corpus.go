package repository

import (
	"context"
	"database/sql"
	"fmt"

	"policydesk-backend/models"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCorpus handles corpus queries against a chatbot.db style SQLite file
type SQLiteCorpus struct {
	db   *sql.DB
	path string
}

// OpenSQLiteCorpus opens the SQLite database at path.
func OpenSQLiteCorpus(path string) (*SQLiteCorpus, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite corpus: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite corpus: %w", err)
	}
	return &SQLiteCorpus{db: db, path: path}, nil
}

// NewSQLiteCorpus wraps an already opened database.
func NewSQLiteCorpus(db *sql.DB) *SQLiteCorpus {
	return &SQLiteCorpus{db: db}
}

// Path returns the database file path, empty for wrapped handles.
func (c *SQLiteCorpus) Path() string {
	return c.path
}

// Close closes the underlying database.
func (c *SQLiteCorpus) Close() error {
	return c.db.Close()
}

// InitSchema creates the laws and faqs tables when missing.
func (c *SQLiteCorpus) InitSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return nil
}

// InsertLawRows upserts law rows keyed by law_id.
func (c *SQLiteCorpus) InsertLawRows(ctx context.Context, rows []models.LawRow) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO laws (%s) VALUES (%s)`, lawColumns, placeholders(sqliteDialect, 16))
	return c.insert(ctx, query, len(rows), func(i int) []any { return lawArgs(rows[i]) })
}

// InsertFAQs upserts FAQ entries keyed by faq_id.
func (c *SQLiteCorpus) InsertFAQs(ctx context.Context, faqs []models.FAQEntry) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO faqs (%s) VALUES (%s)`, faqColumns, placeholders(sqliteDialect, 5))
	return c.insert(ctx, query, len(faqs), func(i int) []any { return faqArgs(faqs[i]) })
}

func (c *SQLiteCorpus) insert(ctx context.Context, query string, n int, args func(int) []any) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// AllLawRows returns every law row in insertion order.
func (c *SQLiteCorpus) AllLawRows(ctx context.Context) ([]models.LawRow, error) {
	return c.queryLaws(ctx, fmt.Sprintf(`SELECT %s FROM laws ORDER BY id`, lawColumns))
}

// SearchLaws performs the keyword substring search.
func (c *SQLiteCorpus) SearchLaws(ctx context.Context, keyword string, limit int) ([]models.LawRow, error) {
	if keyword == "" || limit <= 0 {
		return nil, nil
	}
	return c.queryLaws(ctx, sqliteDialect.searchQuery(), keyword, limit)
}

// LawsByArticle performs the structured article lookup.
func (c *SQLiteCorpus) LawsByArticle(ctx context.Context, fragments []string, articleNumber string, limit int) ([]models.LawRow, error) {
	if articleNumber == "" || limit <= 0 {
		return nil, nil
	}
	query, args := sqliteDialect.articleQuery(fragments, articleNumber, limit)
	return c.queryLaws(ctx, query, args...)
}

// AllFAQs returns the FAQ table in insertion order.
func (c *SQLiteCorpus) AllFAQs(ctx context.Context) ([]models.FAQEntry, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM faqs ORDER BY id`, faqColumns))
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

func (c *SQLiteCorpus) queryLaws(ctx context.Context, query string, args ...any) ([]models.LawRow, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
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
