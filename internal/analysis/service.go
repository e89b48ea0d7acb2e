package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediahub/mediahub/internal/cache"
	"github.com/mediahub/mediahub/internal/store"
	"github.com/mediahub/mediahub/pkg/models"
)

const jobStatusTTL = 30 * time.Minute

// ErrInvalidAnalysisType is returned for an analysis type outside the
// supported enumeration.
var ErrInvalidAnalysisType = errors.New("unknown analysis type")

// SubmitParams holds validated parameters for an analysis submission.
type SubmitParams struct {
	MediaID      uuid.UUID
	AnalysisType string
	Options      *models.AnalysisOptions
}

// StatsResult aggregates store-side job counts with the backend's own
// service statistics (best-effort).
type StatsResult struct {
	Counts  store.AnalysisCounts `json:"counts"`
	Service map[string]any       `json:"service,omitempty"`
}

// Task is the handle for one detached analysis run. Callers can cancel it
// or wait on Done instead of polling the store.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *Task) Done() <-chan struct{} { return t.done }
func (t *Task) Cancel()               { t.cancel() }

// Service orchestrates analysis job intake and the detached backend calls
// that complete them. Submission returns a placeholder synchronously; the
// caller learns the outcome by polling the job.
type Service struct {
	store   store.Store
	backend Backend
	cache   cache.Cache
	tasks   sync.Map // uuid.UUID -> *Task
}

// NewService creates a new analysis Service.
func NewService(st store.Store, backend Backend, ca cache.Cache) *Service {
	return &Service{store: st, backend: backend, cache: ca}
}

// Submit validates ownership, deduplicates against existing jobs for the
// same (media, analysis type), persists a pending placeholder, and schedules
// a detached task to run the backend call. The placeholder is returned
// before the backend call starts. Resubmission returns the existing job
// unchanged, even when that job failed.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, params SubmitParams) (*models.AnalysisJob, error) {
	if !models.ValidAnalysisType(params.AnalysisType) {
		return nil, ErrInvalidAnalysisType
	}

	media, err := s.store.GetMediaFile(ctx, params.MediaID)
	if err != nil {
		return nil, err
	}
	if media.UserID != userID {
		return nil, store.ErrNotFound
	}

	existing, err := s.store.FindAnalysisJob(ctx, params.MediaID, params.AnalysisType)
	if err == nil {
		slog.Info("returning existing analysis job", "job_id", existing.ID, "media_id", params.MediaID)
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.AnalysisJob{
		ID:           uuid.New(),
		MediaID:      params.MediaID,
		AnalysisType: params.AnalysisType,
		Status:       models.JobStatusPending,
		ResultData:   EncodeDetail(placeholderDetail(), ""),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateAnalysisJob(ctx, job); err != nil {
		if errors.Is(err, store.ErrDuplicateJob) {
			// Lost a concurrent submission race; the winner's job stands.
			return s.store.FindAnalysisJob(ctx, params.MediaID, params.AnalysisType)
		}
		return nil, fmt.Errorf("creating analysis job: %w", err)
	}

	_ = s.cache.SetJobStatus(ctx, job.ID, models.JobStatusPending, jobStatusTTL)

	s.dispatch(job, media, params.Options)

	return job, nil
}

// Get returns a job scoped by ownership of its media item.
func (s *Service) Get(ctx context.Context, userID, jobID uuid.UUID) (*models.AnalysisJob, error) {
	job, err := s.store.GetAnalysisJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, job.MediaID, userID); err != nil {
		return nil, err
	}
	return job, nil
}

// ListByMedia returns a media item's jobs, newest first, scoped by ownership.
func (s *Service) ListByMedia(ctx context.Context, userID, mediaID uuid.UUID) ([]*models.AnalysisJob, error) {
	if err := s.checkOwnership(ctx, mediaID, userID); err != nil {
		return nil, err
	}
	return s.store.ListAnalysisJobsByMedia(ctx, mediaID)
}

// Delete removes a job scoped by ownership and drops its cached status.
func (s *Service) Delete(ctx context.Context, userID, jobID uuid.UUID) error {
	job, err := s.store.GetAnalysisJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(ctx, job.MediaID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteAnalysisJob(ctx, jobID); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, cache.JobStatusKey(jobID))
	return nil
}

// Stats returns the user's aggregated job counts merged with the backend's
// service stats; the latter degrade to empty rather than failing the call.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*StatsResult, error) {
	counts, err := s.store.CountAnalyses(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StatsResult{Counts: counts, Service: s.backend.Stats(ctx)}, nil
}

// TaskFor returns the handle of a job's detached task. It returns false
// once the task has finished (or if the job was never dispatched here), so
// a miss after Submit means the run is already complete.
func (s *Service) TaskFor(jobID uuid.UUID) (*Task, bool) {
	v, ok := s.tasks.Load(jobID)
	if !ok {
		return nil, false
	}
	return v.(*Task), true
}

// Shutdown cancels all in-flight analysis tasks and waits for them to
// finish recording their outcome, bounded by ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	var pending []<-chan struct{}
	s.tasks.Range(func(_, v any) bool {
		t := v.(*Task)
		t.Cancel()
		pending = append(pending, t.done)
		return true
	})
	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Service) checkOwnership(ctx context.Context, mediaID, userID uuid.UUID) error {
	media, err := s.store.GetMediaFile(ctx, mediaID)
	if err != nil {
		return err
	}
	if media.UserID != userID {
		return store.ErrNotFound
	}
	return nil
}

// dispatch registers a task handle and launches the detached run. The task
// owns no mutable state shared with the request path beyond the store and
// cache, both safe for concurrent use.
func (s *Service) dispatch(job *models.AnalysisJob, media *models.MediaFile, opts *models.AnalysisOptions) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{cancel: cancel, done: make(chan struct{})}
	s.tasks.Store(job.ID, t)

	req := BackendRequest{
		AnalysisID:   job.ID.String(),
		MediaID:      job.MediaID.String(),
		MediaURL:     media.ContentURL,
		AnalysisType: backendTaskName(job.AnalysisType),
		Options:      backendOptions(opts),
		UserID:       media.UserID.String(),
	}

	go func() {
		defer close(t.done)
		defer s.tasks.Delete(job.ID)
		defer cancel()
		s.run(ctx, job.ID, req)
	}()
}

// run performs the backend call and reconciles the outcome into the store.
// Persistence errors here are logged only: the submitter already holds its
// placeholder and there is no one left to notify.
func (s *Service) run(ctx context.Context, jobID uuid.UUID, req BackendRequest) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in analysis task", "error", r, "job_id", jobID)
			s.recordFailure(jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	start := time.Now()
	resp, err := s.backend.Analyze(ctx, req)
	if err != nil {
		slog.Error("analysis backend call failed", "job_id", jobID, "error", err)
		s.recordFailure(jobID, err.Error())
		return
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = "backend reported failure"
		}
		slog.Error("analysis rejected by backend", "job_id", jobID, "reason", reason)
		s.recordFailure(jobID, reason)
		return
	}
	processingTime := time.Since(start).Milliseconds()

	detail := ParseBackendResult(resp.Result)
	confidence := ExtractConfidence(resp.Result)
	rawContent, _ := resp.Result["content"].(string)
	payload := EncodeDetail(detail, rawContent)

	// Final writes run on a fresh context so a cancelled task still records
	// its outcome.
	writeCtx := context.Background()
	if err := s.store.UpdateAnalysisResult(writeCtx, jobID, payload, confidence, processingTime); err != nil {
		slog.Error("failed to persist analysis result", "job_id", jobID, "error", err)
		return
	}
	_ = s.cache.SetJobStatus(writeCtx, jobID, models.JobStatusCompleted, jobStatusTTL)
	slog.Info("analysis completed", "job_id", jobID, "processing_time_ms", processingTime)
}

func (s *Service) recordFailure(jobID uuid.UUID, reason string) {
	ctx := context.Background()
	payload := EncodeDetail(failureDetail(reason), "")
	if err := s.store.UpdateAnalysisFailure(ctx, jobID, payload); err != nil {
		slog.Error("failed to persist analysis failure", "job_id", jobID, "error", err)
		return
	}
	_ = s.cache.SetJobStatus(ctx, jobID, models.JobStatusFailed, jobStatusTTL)
}

// backendTaskName maps the catalog's analysis types onto the task names the
// backend service understands.
func backendTaskName(analysisType string) string {
	switch analysisType {
	case models.AnalysisDocumentExtraction:
		return "text_extraction"
	case models.AnalysisContentTagging:
		return "object_detection"
	case models.AnalysisSimilaritySearch:
		return "scene_analysis"
	default:
		return analysisType
	}
}

func backendOptions(opts *models.AnalysisOptions) map[string]any {
	if opts == nil {
		return nil
	}
	m := map[string]any{}
	if opts.Language != "" {
		m["language"] = opts.Language
	}
	if opts.DetailLevel != "" {
		m["detail_level"] = opts.DetailLevel
	}
	if opts.IncludeObjects != nil {
		m["include_objects"] = *opts.IncludeObjects
	}
	if opts.IncludeText != nil {
		m["include_text"] = *opts.IncludeText
	}
	if opts.IncludeSentiment != nil {
		m["include_sentiment"] = *opts.IncludeSentiment
	}
	if opts.MaxTags > 0 {
		m["max_tags"] = opts.MaxTags
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
