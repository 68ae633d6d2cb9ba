package repository

import (
	"context"
	"fmt"

	"policydesk-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Corpus is a corpus store that can also be created and loaded
type Corpus interface {
	CorpusStore
	InitSchema(ctx context.Context) error
	InsertLawRows(ctx context.Context, rows []models.LawRow) error
	InsertFAQs(ctx context.Context, faqs []models.FAQEntry) error
	Close() error
}

var (
	_ Corpus = (*SQLiteCorpus)(nil)
	_ Corpus = (*PostgresCorpus)(nil)
)

// OpenCorpus opens the corpus store of driver: "sqlite" reads the file at
// sqlitePath, "postgres" connects to databaseURL.
func OpenCorpus(ctx context.Context, driver, sqlitePath, databaseURL string) (Corpus, error) {
	switch driver {
	case "sqlite":
		return OpenSQLiteCorpus(sqlitePath)
	case "postgres":
		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return NewPostgresCorpus(pool), nil
	default:
		return nil, fmt.Errorf("unknown corpus driver: %s", driver)
	}
}
