package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// RequestStatus represents the lifecycle state of a summarize request
type RequestStatus string

const (
	RequestStatusQueued     RequestStatus = "queued"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusDone       RequestStatus = "done"
	RequestStatusFailed     RequestStatus = "failed"
)

// JSONB represents a JSONB field for PostgreSQL
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return nil
	}
}

// SummaryRequest is the journal record of one summarize call.
// It never carries the summary or transcript text.
type SummaryRequest struct {
	ID                   string        `json:"id" db:"id"`
	SourceURL            string        `json:"source_url" db:"source_url"`
	Status               RequestStatus `json:"status" db:"status"`
	ErrorKind            *string       `json:"error_kind,omitempty" db:"error_kind"`
	ErrorText            *string       `json:"error_text,omitempty" db:"error_text"`
	AudioDurationSeconds *float64      `json:"audio_duration_seconds,omitempty" db:"audio_duration_seconds"`
	Meta                 JSONB         `json:"meta" db:"meta"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

// IsCompleted returns true if the request is in a final state
func (r *SummaryRequest) IsCompleted() bool {
	return r.Status == RequestStatusDone || r.Status == RequestStatusFailed
}

// SetInProgress marks the request as running
func (r *SummaryRequest) SetInProgress() {
	r.Status = RequestStatusInProgress
	r.UpdatedAt = time.Now()
}

// SetCompleted sets the request status to done
func (r *SummaryRequest) SetCompleted(audioDuration float64) {
	r.Status = RequestStatusDone
	r.ErrorKind = nil
	r.ErrorText = nil
	if audioDuration > 0 {
		r.AudioDurationSeconds = &audioDuration
	}
	r.UpdatedAt = time.Now()
}

// SetFailed sets the request status to failed with the error kind and message
func (r *SummaryRequest) SetFailed(kind, errorText string) {
	r.Status = RequestStatusFailed
	r.ErrorKind = &kind
	r.ErrorText = &errorText
	r.UpdatedAt = time.Now()
}
