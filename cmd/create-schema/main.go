package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"policydesk-backend/config"
	"policydesk-backend/models"
	"policydesk-backend/repository"

	"go.uber.org/zap"
)

func main() {
	lawsFile := flag.String("laws", "", "optional JSON file with law rows to load")
	faqsFile := flag.String("faqs", "", "optional JSON file with FAQ entries to load")
	lawsXLSX := flag.String("laws-xlsx", "", "optional law workbook; every sheet is loaded as one regulation")
	faqsXLSX := flag.String("faqs-xlsx", "", "optional FAQ workbook; the first sheet is loaded")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.Load("", ".env", "../../.env")
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	corpus, err := repository.OpenCorpus(ctx, cfg.CorpusDriver, cfg.SQLitePath, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open corpus", zap.Error(err))
	}
	defer corpus.Close()

	if err := corpus.InitSchema(ctx); err != nil {
		logger.Fatal("failed to create schema", zap.Error(err))
	}
	logger.Info("✓ laws and faqs tables ready", zap.String("driver", cfg.CorpusDriver))

	var rows []models.LawRow
	if *lawsFile != "" {
		if err := readJSON(*lawsFile, &rows); err != nil {
			logger.Fatal("failed to read law rows", zap.Error(err))
		}
	}
	if *lawsXLSX != "" {
		sheetRows, err := readWorkbook(*lawsXLSX, repository.ReadLawWorkbook)
		if err != nil {
			logger.Fatal("failed to read law workbook", zap.Error(err))
		}
		rows = append(rows, sheetRows...)
	}
	if len(rows) > 0 {
		if err := corpus.InsertLawRows(ctx, rows); err != nil {
			logger.Fatal("failed to load law rows", zap.Error(err))
		}
		logger.Info("✓ law rows loaded", zap.Int("count", len(rows)))
	}

	var faqs []models.FAQEntry
	if *faqsFile != "" {
		if err := readJSON(*faqsFile, &faqs); err != nil {
			logger.Fatal("failed to read faqs", zap.Error(err))
		}
	}
	if *faqsXLSX != "" {
		sheetFAQs, err := readWorkbook(*faqsXLSX, repository.ReadFAQWorkbook)
		if err != nil {
			logger.Fatal("failed to read faq workbook", zap.Error(err))
		}
		faqs = append(faqs, sheetFAQs...)
	}
	if len(faqs) > 0 {
		if err := corpus.InsertFAQs(ctx, faqs); err != nil {
			logger.Fatal("failed to load faqs", zap.Error(err))
		}
		logger.Info("✓ faqs loaded", zap.Int("count", len(faqs)))
	}
}

func readWorkbook[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

// readJSON decodes a JSON array file. Rows exported from the source
// spreadsheets carry is_active as a JSON boolean.
func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
