package analysis

import (
	"encoding/json"

	"github.com/mediahub/mediahub/pkg/models"
)

const (
	processingDescription = "AI analysis is processing..."
	completedFallback     = "AI analysis completed"
	failurePrefix         = "AI analysis failed: "
)

// ParseBackendResult reconciles the backend's untyped result map into a
// structured detail. Each extraction is independently optional: a missing
// or wrong-typed field leaves its target empty instead of failing the parse.
func ParseBackendResult(result map[string]any) models.AnalysisDetail {
	var detail models.AnalysisDetail

	if content, ok := result["content"].(string); ok {
		detail.Description = &content
	}

	structured, ok := result["structured_data"].(map[string]any)
	if !ok {
		return detail
	}

	if objectsData, ok := structured["objects"]; ok {
		// Round-trip through JSON to coerce the untyped array into the
		// detected-object shape; a mismatch leaves objects empty.
		if raw, err := json.Marshal(objectsData); err == nil {
			var objects []models.DetectedObject
			if err := json.Unmarshal(raw, &objects); err == nil {
				detail.Objects = objects
			}
		}
	}

	if textData, ok := structured["extracted_text"].([]any); ok && len(textData) > 0 {
		if first, ok := textData[0].(string); ok {
			detail.TextContent = &first
		}
	}

	return detail
}

// ExtractConfidence pulls an optional confidence score out of the raw result.
func ExtractConfidence(result map[string]any) *float64 {
	v, ok := result["confidence"].(float64)
	if !ok {
		return nil
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}

// EncodeDetail serializes a detail for storage. If serialization fails, the
// raw content string (or a fixed completion sentence) is stored instead: a
// serialization problem on the output side never fails the job.
func EncodeDetail(detail models.AnalysisDetail, rawContent string) string {
	b, err := json.Marshal(detail)
	if err == nil {
		return string(b)
	}
	if rawContent != "" {
		return rawContent
	}
	return completedFallback
}

func placeholderDetail() models.AnalysisDetail {
	desc := processingDescription
	return models.AnalysisDetail{Description: &desc}
}

func failureDetail(reason string) models.AnalysisDetail {
	desc := failurePrefix + reason
	return models.AnalysisDetail{Description: &desc}
}
