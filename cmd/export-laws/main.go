package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"path"
	"strings"
	"time"

	"policydesk-backend/config"
	"policydesk-backend/lawtree"
	"policydesk-backend/repository"
	"policydesk-backend/service"
	"policydesk-backend/storage"

	"go.uber.org/zap"
)

func main() {
	full := flag.Bool("full", false, "write the complete Master Tree instead of the browsing view")
	faqDocs := flag.Bool("faq-docs", false, "also write one knowledge-base markdown document per FAQ")
	key := flag.String("key", "", "object key of the tree export (default: dated key under exports/)")
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

	store, err := storage.NewStorage(storage.StorageConfig{
		Type:         storage.StorageType(cfg.StorageType),
		LocalPath:    cfg.StorageLocalPath,
		S3Bucket:     cfg.S3Bucket,
		S3Region:     cfg.AWSRegion,
		AWSAccessKey: cfg.AWSAccessKeyID,
		AWSSecretKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}

	rows, err := corpus.AllLawRows(ctx)
	if err != nil {
		logger.Fatal("failed to read law rows", zap.Error(err))
	}
	tree := lawtree.Build(rows)
	logger.Info("master tree built",
		zap.Int("rows", len(rows)),
		zap.Int("regulations", tree.Len()),
		zap.Int("skipped_rows", tree.Skipped()))

	var payload any = tree.Export()
	if *full {
		payload = tree
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode tree", zap.Error(err))
	}

	objectKey := *key
	if objectKey == "" {
		objectKey = storage.ExportKey(time.Now())
	}
	location, err := store.Put(ctx, objectKey, bytes.NewReader(data), "application/json")
	if err != nil {
		logger.Fatal("failed to write export", zap.Error(err))
	}
	logger.Info("✓ tree exported", zap.String("location", location), zap.Int("bytes", len(data)))

	if !*faqDocs {
		return
	}
	faqs, err := corpus.AllFAQs(ctx)
	if err != nil {
		logger.Fatal("failed to read faqs", zap.Error(err))
	}
	prefix := path.Join("faq-docs", time.Now().UTC().Format("20060102"))
	for _, e := range faqs {
		docKey := path.Join(prefix, service.FAQDocumentName(e))
		if _, err := store.Put(ctx, docKey, strings.NewReader(service.FAQDocument(e)), "text/markdown; charset=utf-8"); err != nil {
			logger.Fatal("failed to write faq document", zap.String("faq_id", e.ID), zap.Error(err))
		}
	}
	logger.Info("✓ faq documents exported", zap.Int("count", len(faqs)), zap.String("prefix", prefix))
}
