package events

import "encoding/json"

// TrackingResponse is the outcome of one platform dispatch.
type TrackingResponse struct {
	Platform  string          `json:"platform"`
	Success   bool            `json:"success"`
	EventID   string          `json:"event_id"`
	Error     string          `json:"error,omitempty"`
	Response  json.RawMessage `json:"response_data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// MultiPlatformTrackingResponse aggregates the per-platform outcomes of a
// single fan-out. It is always produced, even when every platform failed;
// callers inspect FailureCount to decide whether to alert.
type MultiPlatformTrackingResponse struct {
	EventID        string             `json:"event_id"`
	Results        []TrackingResponse `json:"results"`
	SuccessCount   int                `json:"success_count"`
	FailureCount   int                `json:"failure_count"`
	TotalPlatforms int                `json:"total_platforms"`
	Timestamp      int64              `json:"timestamp"`
}
