package models

import (
	"time"

	"github.com/google/uuid"
)

// Analysis types accepted by the backend pipeline.
const (
	AnalysisImageDescription   = "image_description"
	AnalysisVideoSummary       = "video_summary"
	AnalysisDocumentExtraction = "document_extraction"
	AnalysisContentTagging     = "content_tagging"
	AnalysisSimilaritySearch   = "similarity_search"
)

const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// ValidAnalysisType reports whether t is a known analysis type.
func ValidAnalysisType(t string) bool {
	switch t {
	case AnalysisImageDescription, AnalysisVideoSummary, AnalysisDocumentExtraction,
		AnalysisContentTagging, AnalysisSimilaritySearch:
		return true
	}
	return false
}

// AnalysisJob tracks one analysis request/result lifecycle for a
// (media, analysis type) pair. The API returns the job on POST /api/v1/analysis;
// the client polls GET /api/v1/analysis/{job_id} until status is completed or failed.
type AnalysisJob struct {
	ID               uuid.UUID `db:"id"                 json:"id"`
	MediaID          uuid.UUID `db:"media_id"           json:"media_id"`
	AnalysisType     string    `db:"analysis_type"      json:"analysis_type"`
	Status           string    `db:"status"             json:"status"`
	ResultData       string    `db:"result_data"        json:"result_data"`
	ConfidenceScore  *float64  `db:"confidence_score"   json:"confidence_score,omitempty"`
	ProcessingTimeMs *int64    `db:"processing_time_ms" json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"         json:"updated_at"`
}

// AnalysisDetail is the structured payload stored in AnalysisJob.ResultData.
// Every field is optional; the backend's schema is not contractually fixed.
type AnalysisDetail struct {
	Description *string            `json:"description,omitempty"`
	Objects     []DetectedObject   `json:"objects,omitempty"`
	Tags        []ContentTag       `json:"tags,omitempty"`
	TextContent *string            `json:"text_content,omitempty"`
	Sentiment   *SentimentAnalysis `json:"sentiment,omitempty"`
	Summary     *string            `json:"summary,omitempty"`
	KeyPoints   []string           `json:"key_points,omitempty"`
}

// DetectedObject is one object recognized in the analyzed media.
type DetectedObject struct {
	Name        string       `json:"name"`
	Confidence  float64      `json:"confidence"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ContentTag struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
	Category   *string `json:"category,omitempty"`
}

type SentimentAnalysis struct {
	Sentiment  string             `json:"sentiment"`
	Confidence float64            `json:"confidence"`
	Emotions   map[string]float64 `json:"emotions,omitempty"`
}

// AnalysisOptions tunes a single analysis request. All fields are optional
// and forwarded to the backend as an untyped options map.
type AnalysisOptions struct {
	Language         string `json:"language,omitempty"`
	DetailLevel      string `json:"detail_level,omitempty"`
	IncludeObjects   *bool  `json:"include_objects,omitempty"`
	IncludeText      *bool  `json:"include_text,omitempty"`
	IncludeSentiment *bool  `json:"include_sentiment,omitempty"`
	MaxTags          int    `json:"max_tags,omitempty"`
}
