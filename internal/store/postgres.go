package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mediahub/mediahub/pkg/models"
)

// Name of the unique constraint guarding one job per (media, analysis type).
const jobDedupConstraint = "analysis_jobs_media_type_key"

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

// --- Media Files ---

func (s *PostgresStore) CreateMediaFile(ctx context.Context, media *models.MediaFile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO media_files (id, user_id, title, media_type, content_url, file_size, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		media.ID, media.UserID, media.Title, media.MediaType, media.ContentURL,
		media.FileSize, media.CreatedAt, media.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create media file: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMediaFile(ctx context.Context, id uuid.UUID) (*models.MediaFile, error) {
	var m models.MediaFile
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, media_type, content_url, file_size, created_at, updated_at
		 FROM media_files WHERE id = $1`, id,
	).Scan(&m.ID, &m.UserID, &m.Title, &m.MediaType, &m.ContentURL,
		&m.FileSize, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media file: %w", err)
	}
	return &m, nil
}

// --- Analysis Jobs ---

const jobColumns = `id, media_id, analysis_type, status, result_data, confidence_score, processing_time_ms, created_at, updated_at`

func scanJob(row pgx.Row) (*models.AnalysisJob, error) {
	var j models.AnalysisJob
	err := row.Scan(&j.ID, &j.MediaID, &j.AnalysisType, &j.Status, &j.ResultData,
		&j.ConfidenceScore, &j.ProcessingTimeMs, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateAnalysisJob(ctx context.Context, job *models.AnalysisJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO analysis_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.MediaID, job.AnalysisType, job.Status, job.ResultData,
		job.ConfidenceScore, job.ProcessingTimeMs, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == jobDedupConstraint {
				return ErrDuplicateJob
			}
			return ErrDuplicateKey
		}
		return fmt.Errorf("create analysis job: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAnalysisJob(ctx context.Context, mediaID uuid.UUID, analysisType string) (*models.AnalysisJob, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE media_id = $1 AND analysis_type = $2`,
		mediaID, analysisType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) GetAnalysisJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) ListAnalysisJobsByMedia(ctx context.Context, mediaID uuid.UUID) ([]*models.AnalysisJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE media_id = $1 ORDER BY created_at DESC`,
		mediaID)
	if err != nil {
		return nil, fmt.Errorf("list analysis jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.AnalysisJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) UpdateAnalysisResult(ctx context.Context, id uuid.UUID, resultData string, confidence *float64, processingTimeMs int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analysis_jobs
		 SET status = $2, result_data = $3, confidence_score = $4, processing_time_ms = $5, updated_at = NOW()
		 WHERE id = $1`,
		id, models.JobStatusCompleted, resultData, confidence, processingTimeMs)
	if err != nil {
		return fmt.Errorf("update analysis result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateAnalysisFailure(ctx context.Context, id uuid.UUID, resultData string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analysis_jobs SET status = $2, result_data = $3, updated_at = NOW() WHERE id = $1`,
		id, models.JobStatusFailed, resultData)
	if err != nil {
		return fmt.Errorf("update analysis failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAnalysisJob(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analysis_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete analysis job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountAnalyses(ctx context.Context, userID uuid.UUID) (AnalysisCounts, error) {
	counts := AnalysisCounts{
		ByType:   map[string]int64{},
		ByStatus: map[string]int64{},
	}

	rows, err := s.pool.Query(ctx,
		`SELECT a.analysis_type, a.status, COUNT(*)
		 FROM analysis_jobs a
		 JOIN media_files m ON a.media_id = m.id
		 WHERE m.user_id = $1
		 GROUP BY a.analysis_type, a.status`, userID)
	if err != nil {
		return counts, fmt.Errorf("count analyses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var analysisType, status string
		var n int64
		if err := rows.Scan(&analysisType, &status, &n); err != nil {
			return counts, fmt.Errorf("scan analysis counts: %w", err)
		}
		counts.Total += n
		counts.ByType[analysisType] += n
		counts.ByStatus[status] += n
	}
	return counts, rows.Err()
}

// isUniqueViolation checks if a pgx error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
