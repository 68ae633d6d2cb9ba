// Package snapshot holds the current immutable view of the corpus: the Law
// Master Tree and the FAQ table. A reload builds a complete new snapshot and
// swaps it in; readers never see a half-built one.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"policydesk-backend/lawtree"
	"policydesk-backend/metrics"
	"policydesk-backend/repository"
	"policydesk-backend/service"

	"go.uber.org/zap"
)

var (
	// ErrNotLoaded is returned when no snapshot has been built yet
	ErrNotLoaded = errors.New("corpus snapshot not loaded")
)

// Snapshot is one immutable build of the corpus.
type Snapshot struct {
	Tree     *lawtree.Tree
	FAQs     *service.FAQTable
	LoadedAt time.Time
}

// Holder owns the current snapshot.
type Holder struct {
	corpus  repository.CorpusStore
	metrics *metrics.Collector
	logger  *zap.Logger

	current atomic.Pointer[Snapshot]
	loadMu  sync.Mutex
}

// HolderOption configures a Holder
type HolderOption func(*Holder)

// HolderWithMetrics sets the metrics collector
func HolderWithMetrics(c *metrics.Collector) HolderOption {
	return func(h *Holder) {
		h.metrics = c
	}
}

// HolderWithLogger sets the logger
func HolderWithLogger(l *zap.Logger) HolderOption {
	return func(h *Holder) {
		h.logger = l
	}
}

// NewHolder creates an empty holder reading from corpus.
func NewHolder(corpus repository.CorpusStore, opts ...HolderOption) *Holder {
	h := &Holder{corpus: corpus}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	h.logger = h.logger.With(zap.String("component", "snapshot"))
	return h
}

// Load builds a new snapshot from the corpus store and makes it current. On
// failure the previous snapshot stays in place.
func (h *Holder) Load(ctx context.Context) (*Snapshot, error) {
	h.loadMu.Lock()
	defer h.loadMu.Unlock()

	start := time.Now()
	snap, err := h.build(ctx)
	if err != nil {
		h.metrics.RecordSnapshot(err, 0, 0)
		h.logger.Error("failed to build corpus snapshot", zap.Error(err))
		return nil, err
	}
	h.current.Store(snap)
	h.metrics.RecordSnapshot(nil, snap.Tree.Len(), snap.FAQs.Len())
	h.logger.Info("corpus snapshot loaded",
		zap.Int("regulations", snap.Tree.Len()),
		zap.Int("faqs", snap.FAQs.Len()),
		zap.Int("skipped_rows", snap.Tree.Skipped()),
		zap.Duration("elapsed", time.Since(start)))
	return snap, nil
}

func (h *Holder) build(ctx context.Context) (*Snapshot, error) {
	rows, err := h.corpus.AllLawRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read law rows: %w", err)
	}
	faqs, err := h.corpus.AllFAQs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read faqs: %w", err)
	}
	return &Snapshot{
		Tree:     lawtree.Build(rows),
		FAQs:     service.NewFAQTable(faqs),
		LoadedAt: time.Now(),
	}, nil
}

// Current returns the current snapshot, or nil before the first Load.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Tree returns the current Master Tree.
func (h *Holder) Tree() (*lawtree.Tree, error) {
	snap := h.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap.Tree, nil
}

// FAQTable returns the current FAQ table, or nil before the first Load.
func (h *Holder) FAQTable() *service.FAQTable {
	snap := h.current.Load()
	if snap == nil {
		return nil
	}
	return snap.FAQs
}
