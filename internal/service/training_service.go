package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/rowflow/internal/auth"
	"github.com/mmynk/rowflow/internal/calculator"
	"github.com/mmynk/rowflow/internal/ledger"
	"github.com/mmynk/rowflow/internal/metrics"
	"github.com/mmynk/rowflow/internal/middleware"
	"github.com/mmynk/rowflow/internal/models"
	"github.com/mmynk/rowflow/internal/normalizer"
	"github.com/mmynk/rowflow/internal/storage"
	"github.com/mmynk/rowflow/pkg/api"
	"github.com/mmynk/rowflow/pkg/api/apiconnect"
)

// ErrArchiveDisabled is returned by ArchiveLog when no bucket is configured.
var ErrArchiveDisabled = errors.New("log archive is not configured")

// Archiver uploads a partition snapshot and returns the object key.
type Archiver interface {
	Upload(ctx context.Context, storageID string, entries []models.Entry, day time.Time) (string, error)
	Bucket() string
}

// Ensure TrainingService implements the handler interface
var _ apiconnect.TrainingServiceHandler = (*TrainingService)(nil)

// TrainingService implements the TrainingService RPC interface.
// Every method acts on the partition of the authenticated caller.
type TrainingService struct {
	ledger     *ledger.Ledger
	normalizer *normalizer.Normalizer
	archiver   Archiver
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// TrainingOption configures a TrainingService.
type TrainingOption func(*TrainingService)

// WithArchiver enables ArchiveLog.
func WithArchiver(a Archiver) TrainingOption {
	return func(s *TrainingService) { s.archiver = a }
}

// WithTrainingMetrics records skipped rows in m.
func WithTrainingMetrics(m *metrics.Metrics) TrainingOption {
	return func(s *TrainingService) { s.metrics = m }
}

// WithClock replaces the wall clock used for defaults.
func WithClock(now func() time.Time) TrainingOption {
	return func(s *TrainingService) {
		s.now = now
		s.normalizer = normalizer.New(now)
	}
}

// NewTrainingService creates a new training service.
func NewTrainingService(l *ledger.Ledger, logger *slog.Logger, opts ...TrainingOption) *TrainingService {
	s := &TrainingService{
		ledger:     l,
		normalizer: normalizer.New(time.Now),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogEntry normalizes the raw form values and appends the entry.
func (s *TrainingService) LogEntry(ctx context.Context, req *connect.Request[api.LogEntryRequest]) (*connect.Response[api.LogEntryResponse], error) {
	storageID, err := callerStorageID(ctx)
	if err != nil {
		return nil, err
	}

	entry := s.normalizer.Normalize(map[string]string{
		models.FieldDate:        req.Msg.Date,
		models.FieldDistanceKM:  req.Msg.DistanceKM,
		models.FieldDurationMin: req.Msg.DurationMin,
		models.FieldSpeedKMH:    req.Msg.SpeedKMH,
		models.FieldSessionType: req.Msg.SessionType,
		models.FieldNotes:       req.Msg.Notes,
	})

	if err := s.ledger.Append(ctx, storageID, entry); err != nil {
		s.logger.Error("Failed to append entry", "storage_id", storageID, "error", err)
		return nil, storageError(err)
	}

	s.logger.Info("Entry logged", "storage_id", storageID, "date", entry.Date, "session_type", entry.SessionType)
	return connect.NewResponse(&api.LogEntryResponse{Entry: toAPIEntry(entry)}), nil
}

// ListEntries returns the caller's entries in append order.
func (s *TrainingService) ListEntries(ctx context.Context, req *connect.Request[api.ListEntriesRequest]) (*connect.Response[api.ListEntriesResponse], error) {
	storageID, err := callerStorageID(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ReadAll(ctx, storageID)
	if err != nil {
		s.logger.Error("Failed to read entries", "storage_id", storageID, "error", err)
		return nil, storageError(err)
	}

	rows := make([]*api.Entry, len(entries))
	for i, e := range entries {
		rows[i] = toAPIEntry(e)
	}
	return connect.NewResponse(&api.ListEntriesResponse{Rows: rows}), nil
}

// GetYearlyTable returns the gap-filled daily mileage and the running total
// for the requested year.
func (s *TrainingService) GetYearlyTable(ctx context.Context, req *connect.Request[api.GetYearlyTableRequest]) (*connect.Response[api.GetYearlyTableResponse], error) {
	summary, err := s.summarize(ctx, req.Msg.Year)
	if err != nil {
		return nil, err
	}

	resp := &api.GetYearlyTableResponse{
		Year:         summary.Year,
		DailyMileage: make([]*api.DayTotal, len(summary.Daily)),
		Cumulative:   make([]*api.DayTotal, len(summary.Cumulative)),
		SkippedRows:  summary.Skipped,
	}
	for i, d := range summary.Daily {
		resp.DailyMileage[i] = &api.DayTotal{Date: d.Date, KM: models.Round2(d.KM)}
	}
	for i, p := range summary.Cumulative {
		resp.Cumulative[i] = &api.DayTotal{Date: p.Date, KM: p.KM}
	}
	return connect.NewResponse(resp), nil
}

// GetMonthlyTotals returns the month by session type distance grid for the
// requested year.
func (s *TrainingService) GetMonthlyTotals(ctx context.Context, req *connect.Request[api.GetMonthlyTotalsRequest]) (*connect.Response[api.GetMonthlyTotalsResponse], error) {
	summary, err := s.summarize(ctx, req.Msg.Year)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]map[string]float64, len(summary.Monthly))
	for month, cells := range summary.Monthly {
		row := make(map[string]float64, len(cells))
		for t, km := range cells {
			row[string(t)] = models.Round2(km)
		}
		totals[month] = row
	}

	types := make([]string, len(models.SessionTypes))
	for i, t := range models.SessionTypes {
		types[i] = string(t)
	}

	return connect.NewResponse(&api.GetMonthlyTotalsResponse{
		Year:         summary.Year,
		Totals:       totals,
		SessionTypes: types,
	}), nil
}

// ArchiveLog uploads the caller's log to the configured bucket.
func (s *TrainingService) ArchiveLog(ctx context.Context, req *connect.Request[api.ArchiveLogRequest]) (*connect.Response[api.ArchiveLogResponse], error) {
	if s.archiver == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, ErrArchiveDisabled)
	}

	storageID, err := callerStorageID(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ReadAll(ctx, storageID)
	if err != nil {
		s.logger.Error("Failed to read entries", "storage_id", storageID, "error", err)
		return nil, storageError(err)
	}

	key, err := s.archiver.Upload(ctx, storageID, entries, s.now())
	if err != nil {
		s.logger.Error("Failed to archive log", "storage_id", storageID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Log archived", "storage_id", storageID, "bucket", s.archiver.Bucket(), "key", key, "entries", len(entries))
	return connect.NewResponse(&api.ArchiveLogResponse{
		Bucket:  s.archiver.Bucket(),
		Key:     key,
		Entries: len(entries),
	}), nil
}

// summarize reads the caller's partition and aggregates year, where 0 means
// the current year.
func (s *TrainingService) summarize(ctx context.Context, year int) (calculator.Summary, error) {
	storageID, err := callerStorageID(ctx)
	if err != nil {
		return calculator.Summary{}, err
	}
	if year == 0 {
		year = s.now().Year()
	}

	entries, err := s.ledger.ReadAll(ctx, storageID)
	if err != nil {
		s.logger.Error("Failed to read entries", "storage_id", storageID, "error", err)
		return calculator.Summary{}, storageError(err)
	}

	summary := calculator.Summarize(entries, year)
	if summary.Skipped > 0 {
		s.logger.Debug("Skipped undatable rows", "storage_id", storageID, "year", year, "skipped", summary.Skipped)
		if s.metrics != nil {
			s.metrics.RowsSkipped.Add(float64(summary.Skipped))
		}
	}
	return summary, nil
}

func callerStorageID(ctx context.Context) (string, error) {
	storageID := middleware.GetStorageID(ctx)
	if storageID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return storageID, nil
}

func storageError(err error) error {
	if errors.Is(err, storage.ErrInvalidStorageID) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func toAPIEntry(e models.Entry) *api.Entry {
	return &api.Entry{
		Date:        e.Date,
		DistanceKM:  e.DistanceKM.String(),
		DurationMin: e.DurationMin.String(),
		SpeedKMH:    e.SpeedKMH.String(),
		SessionType: string(e.SessionType),
		Notes:       e.Notes,
		CreatedAt:   models.FormatTimestamp(e.CreatedAt),
	}
}
