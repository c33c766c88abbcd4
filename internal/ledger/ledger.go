// Package ledger is the append-only, per-account log of training entries.
//
// It validates partition keys, serializes writers per partition and reports
// appends to metrics and the event publisher. Storage is delegated to a
// storage.PartitionStore.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/rowflow/internal/events"
	"github.com/mmynk/rowflow/internal/metrics"
	"github.com/mmynk/rowflow/internal/models"
	"github.com/mmynk/rowflow/internal/storage"
)

// Ledger wraps a PartitionStore.
type Ledger struct {
	store     storage.PartitionStore
	locks     *keyedMutex
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher announces every successful append through p.
func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithMetrics counts appends in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates a Ledger over store.
func New(store storage.PartitionStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		locks:     newKeyedMutex(),
		publisher: events.Noop{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create creates an empty partition. An existing partition is left untouched.
func (l *Ledger) Create(ctx context.Context, storageID string) error {
	if err := storage.CheckStorageID(storageID); err != nil {
		return err
	}

	unlock := l.locks.Lock(storageID)
	defer unlock()

	err := l.store.CreatePartition(ctx, storageID)
	if err != nil && !errors.Is(err, storage.ErrPartitionExists) {
		return fmt.Errorf("failed to create partition: %w", err)
	}
	return nil
}

// Append durably writes entry to the end of the partition.
func (l *Ledger) Append(ctx context.Context, storageID string, entry models.Entry) error {
	if err := storage.CheckStorageID(storageID); err != nil {
		return err
	}

	unlock := l.locks.Lock(storageID)
	err := l.store.AppendEntry(ctx, storageID, entry)
	unlock()
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}

	if l.metrics != nil {
		l.metrics.EntriesAppended.WithLabelValues(string(entry.SessionType)).Inc()
	}
	if err := l.publisher.PublishEntryLogged(ctx, events.NewEntryLogged(storageID, entry)); err != nil {
		l.logger.Warn("failed to publish entry event", "storage_id", storageID, "error", err)
	}
	return nil
}

// ReadAll returns every entry of the partition in append order.
// Reads take no lock.
func (l *Ledger) ReadAll(ctx context.Context, storageID string) ([]models.Entry, error) {
	if err := storage.CheckStorageID(storageID); err != nil {
		return nil, err
	}
	entries, err := l.store.ReadEntries(ctx, storageID)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return entries, nil
}
