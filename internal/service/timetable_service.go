package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

const regenerateJobType = "timetable.regenerate"

// CatalogSource loads the scheduling catalog.
type CatalogSource interface {
	Load(ctx context.Context) (*models.Catalog, error)
}

// TimetableStore persists generation runs.
type TimetableStore interface {
	Save(ctx context.Context, timetable *models.Timetable) error
	LatestPublished(ctx context.Context) (*models.Timetable, error)
	ListRuns(ctx context.Context, limit int) ([]models.TimetableRun, error)
}

// TimetableServiceConfig governs generation behaviour.
type TimetableServiceConfig struct {
	Seed            int64
	GenerateTimeout time.Duration
	SessionHours    float64
	AsyncWorkers    int
	AsyncRetries    int
}

type published struct {
	timetable *models.Timetable
	catalog   *models.Catalog
}

// TimetableService runs the scheduler against the catalog and publishes the
// result. At most one generation runs at a time and readers always observe a
// complete timetable.
type TimetableService struct {
	catalogs  CatalogSource
	store     TimetableStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig

	mu      sync.Mutex
	current atomic.Pointer[published]
	queue   *jobs.Queue
}

// NewTimetableService wires the service. store may be nil when runs are not persisted.
func NewTimetableService(
	catalogs CatalogSource,
	store TimetableStore,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	if cfg.SessionHours <= 0 {
		cfg.SessionHours = scheduler.DefaultSessionHours
	}
	svc := &TimetableService{
		catalogs:  catalogs,
		store:     store,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
	if cfg.AsyncWorkers > 0 {
		svc.queue = jobs.NewQueue("timetable", svc.handleJob, jobs.QueueConfig{
			Workers:    cfg.AsyncWorkers,
			MaxRetries: cfg.AsyncRetries,
			RetryDelay: 2 * time.Second,
			Logger:     logger,
		})
	}
	return svc
}

// Start launches the async regeneration workers, if configured.
func (s *TimetableService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop waits for async workers to exit.
func (s *TimetableService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Restore publishes the latest persisted run, if any.
func (s *TimetableService) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	timetable, err := s.store.LatestPublished(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("restore published timetable: %w", err)
	}
	catalog, err := s.catalogs.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog for restored timetable: %w", err)
	}
	timetable.Grid = catalog.Grid
	s.publish(timetable, catalog)
	s.logger.Info("restored published timetable",
		zap.String("run_id", timetable.RunID),
		zap.Int("assignments", len(timetable.Assignments)),
		zap.Int("conflicts", len(timetable.Conflicts)))
	return nil
}

// Regenerate runs a new generation synchronously or queues it when req.Async is set.
func (s *TimetableService) Regenerate(ctx context.Context, req dto.RegenerateRequest) (*dto.TimetableSummary, *dto.RegenerateJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid regenerate payload")
	}
	seed := s.cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	if req.Async {
		if s.queue == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "async regeneration is not enabled")
		}
		job := jobs.Job{ID: uuid.NewString(), Type: regenerateJobType, Payload: seed}
		if err := s.queue.Enqueue(job); err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue regeneration")
		}
		return nil, &dto.RegenerateJobResponse{JobID: job.ID, Status: string(jobs.StatusQueued)}, nil
	}

	timetable, err := s.generate(ctx, seed)
	if err != nil {
		return nil, nil, err
	}
	return summarize(timetable), nil, nil
}

// Job reports the state of a queued regeneration.
func (s *TimetableService) Job(id string) (*jobs.State, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "async regeneration is not enabled")
	}
	state, ok := s.queue.State(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "regeneration job not found")
	}
	return &state, nil
}

// Current returns the published timetable.
func (s *TimetableService) Current() (*models.Timetable, error) {
	timetable, _, err := s.Snapshot()
	return timetable, err
}

// Snapshot returns the published timetable together with the catalog it was built from.
func (s *TimetableService) Snapshot() (*models.Timetable, *models.Catalog, error) {
	p := s.current.Load()
	if p == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable has been generated yet")
	}
	return p.timetable, p.catalog, nil
}

// Summary describes the published timetable.
func (s *TimetableService) Summary() (*dto.TimetableSummary, error) {
	timetable, err := s.Current()
	if err != nil {
		return nil, err
	}
	return summarize(timetable), nil
}

// Conflicts lists the unplaced sessions of the published timetable.
func (s *TimetableService) Conflicts() ([]models.Conflict, error) {
	timetable, err := s.Current()
	if err != nil {
		return nil, err
	}
	return timetable.Conflicts, nil
}

// Runs lists persisted run headers, newest first.
func (s *TimetableService) Runs(ctx context.Context, query dto.RunsQuery) ([]models.TimetableRun, error) {
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "timetable runs are not persisted")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid runs query")
	}
	runs, err := s.store.ListRuns(ctx, query.Limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable runs")
	}
	return runs, nil
}

func (s *TimetableService) handleJob(ctx context.Context, job jobs.Job) error {
	seed, ok := job.Payload.(int64)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
	}
	_, err := s.generate(ctx, seed)
	if err == nil {
		return nil
	}
	if appErrors.IsCode(err, appErrors.ErrValidation.Code) {
		return jobs.Permanent(err)
	}
	return err
}

func (s *TimetableService) generate(ctx context.Context, seed int64) (*models.Timetable, error) {
	if !s.mu.TryLock() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "timetable regeneration already in progress")
	}
	defer s.mu.Unlock()

	catalog, err := s.catalogs.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	start := time.Now()
	result, err := scheduler.Generate(genCtx, catalog, seed,
		scheduler.WithLogger(s.logger),
		scheduler.WithSessionHours(s.cfg.SessionHours))
	duration := time.Since(start)
	if err != nil {
		outcome, mapped := mapGenerateError(err)
		s.metrics.ObserveGeneration(outcome, duration)
		s.logger.Warn("timetable generation failed", zap.Int64("seed", seed), zap.String("outcome", outcome), zap.Error(err))
		return nil, mapped
	}
	s.metrics.ObserveGeneration(OutcomeSuccess, duration)

	timetable := &models.Timetable{
		RunID:       uuid.NewString(),
		Seed:        result.Seed,
		GeneratedAt: time.Now().UTC(),
		Grid:        catalog.Grid,
		Assignments: result.Assignments,
		Conflicts:   result.Conflicts,
		Stats:       result.Stats,
	}
	if timetable.Assignments == nil {
		timetable.Assignments = []models.Assignment{}
	}
	if timetable.Conflicts == nil {
		timetable.Conflicts = []models.Conflict{}
	}

	if s.store != nil {
		if err := s.store.Save(ctx, timetable); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable")
		}
	}

	s.publish(timetable, catalog)
	s.logger.Info("timetable generated",
		zap.String("run_id", timetable.RunID),
		zap.Int64("seed", seed),
		zap.Int("assignments", len(timetable.Assignments)),
		zap.Int("conflicts", len(timetable.Conflicts)),
		zap.Duration("duration", duration))
	return timetable, nil
}

func (s *TimetableService) publish(timetable *models.Timetable, catalog *models.Catalog) {
	s.current.Store(&published{timetable: timetable, catalog: catalog})
	s.metrics.RecordTimetable(timetable)
	if err := s.cache.InvalidateViews(context.Background()); err != nil {
		s.logger.Warn("failed to invalidate timetable views", zap.Error(err))
	}
}

func mapGenerateError(err error) (string, error) {
	var verr *scheduler.ValidationError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout, appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
	case errors.Is(err, scheduler.ErrInvalidCatalog):
		return OutcomeInvalid, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid catalog")
	case errors.As(err, &verr):
		return OutcomeFailed, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generated timetable failed validation")
	default:
		return OutcomeFailed, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable generation failed")
	}
}

func summarize(timetable *models.Timetable) *dto.TimetableSummary {
	return &dto.TimetableSummary{
		RunID:       timetable.RunID,
		Seed:        timetable.Seed,
		GeneratedAt: timetable.GeneratedAt,
		Assignments: len(timetable.Assignments),
		Conflicts:   len(timetable.Conflicts),
		Grid:        timetable.Grid,
		Stats:       timetable.Stats,
	}
}
