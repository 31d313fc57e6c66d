package queue

import "time"

// SummaryEvent is published once a summarize request reaches a final state.
// It never carries summary or transcript text.
type SummaryEvent struct {
	RequestID            string    `json:"request_id"`
	SourceURL            string    `json:"source_url"`
	Status               string    `json:"status"`
	ErrorKind            string    `json:"error_kind,omitempty"`
	AudioDurationSeconds float64   `json:"audio_duration_seconds,omitempty"`
	ElapsedMs            int64     `json:"elapsed_ms"`
	FinishedAt           time.Time `json:"finished_at"`
}
