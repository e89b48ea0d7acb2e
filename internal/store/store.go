package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mediahub/mediahub/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrDuplicateJob is returned when an analysis job already exists for the
// same (media, analysis type) pair. The unique constraint closes the window
// between the dedup read and the insert.
var ErrDuplicateJob = errors.New("analysis job already exists for media and type")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error

	CreateMediaFile(ctx context.Context, media *models.MediaFile) error
	GetMediaFile(ctx context.Context, id uuid.UUID) (*models.MediaFile, error)

	CreateAnalysisJob(ctx context.Context, job *models.AnalysisJob) error
	FindAnalysisJob(ctx context.Context, mediaID uuid.UUID, analysisType string) (*models.AnalysisJob, error)
	GetAnalysisJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error)
	ListAnalysisJobsByMedia(ctx context.Context, mediaID uuid.UUID) ([]*models.AnalysisJob, error)
	UpdateAnalysisResult(ctx context.Context, id uuid.UUID, resultData string, confidence *float64, processingTimeMs int64) error
	UpdateAnalysisFailure(ctx context.Context, id uuid.UUID, resultData string) error
	DeleteAnalysisJob(ctx context.Context, id uuid.UUID) error
	CountAnalyses(ctx context.Context, userID uuid.UUID) (AnalysisCounts, error)
}

// AnalysisCounts aggregates a user's analysis jobs for the stats endpoint.
type AnalysisCounts struct {
	Total    int64            `json:"total"`
	ByType   map[string]int64 `json:"by_type"`
	ByStatus map[string]int64 `json:"by_status"`
}
