package service

import (
	"context"
	"strings"

	"policydesk-backend/lawtree"
	"policydesk-backend/models"
	"policydesk-backend/repository"

	"go.uber.org/zap"
)

const (
	activeScore   = 1.0
	inactiveScore = 0.5
)

// LocalSearch runs keyword substring search over the corpus store
type LocalSearch struct {
	corpus repository.CorpusStore
	logger *zap.Logger
}

// NewLocalSearch creates a local law search over corpus
func NewLocalSearch(corpus repository.CorpusStore, logger *zap.Logger) *LocalSearch {
	return &LocalSearch{
		corpus: corpus,
		logger: logger.With(zap.String("component", "local_search")),
	}
}

// Search queries every token in order, merges the hits, keeps the first
// record of each (regulation, article) and truncates to limit. A failing
// token query is logged and skipped.
func (s *LocalSearch) Search(ctx context.Context, tokens []string, limit int) []models.RetrievalRecord {
	if limit <= 0 {
		return nil
	}
	var (
		records []models.RetrievalRecord
		seen    = make(map[string]struct{})
	)
	for _, tok := range tokens {
		rows, err := s.corpus.SearchLaws(ctx, tok, limit)
		if err != nil {
			s.logger.Warn("keyword search failed", zap.String("keyword", tok), zap.Error(err))
			continue
		}
		for _, row := range rows {
			rec := recordFromRow(row)
			key := articleIdentity(rec)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			records = append(records, rec)
			if len(records) == limit {
				return records
			}
		}
	}
	return records
}

func articleIdentity(rec models.RetrievalRecord) string {
	return rec.Regulation + "\x00" + rec.ArticleKey
}

// recordFromRow normalizes a corpus row into a retrieval record.
func recordFromRow(row models.LawRow) models.RetrievalRecord {
	key := lawtree.ArticleKey(row.ArticleNumber)
	title := strings.TrimSpace(row.ArticleTitle)

	source := strings.TrimSpace(row.RegulationName)
	if key != "" {
		source += " " + key
	}
	if title != "" {
		source += " (" + title + ")"
	}

	content := strings.TrimSpace(row.FullText)
	if content == "" {
		content = strings.TrimSpace(row.ParagraphText)
	}

	score := activeScore
	if !row.IsActive {
		score = inactiveScore
	}
	return models.RetrievalRecord{
		Content:            content,
		SourceDocumentName: source,
		RelevanceScore:     score,
		Regulation:         strings.TrimSpace(row.RegulationName),
		ArticleKey:         key,
		ArticleTitle:       title,
	}
}
