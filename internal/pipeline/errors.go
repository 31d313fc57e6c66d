package pipeline

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindUnexpected Kind = iota
	KindInvalidRequest
	KindDownloadFailed
	KindAudioNotFound
	KindDurationExceeded
	KindTranscriptionUnavailable
	KindSummarizerUnavailable
	KindEmptyTranscript
	KindContentBlocked
	KindSummarizationFailed
)

var kindNames = map[Kind]string{
	KindUnexpected:               "Unexpected",
	KindInvalidRequest:           "InvalidRequest",
	KindDownloadFailed:           "DownloadFailed",
	KindAudioNotFound:            "AudioNotFound",
	KindDurationExceeded:         "DurationExceeded",
	KindTranscriptionUnavailable: "TranscriptionUnavailable",
	KindSummarizerUnavailable:    "SummarizerUnavailable",
	KindEmptyTranscript:          "EmptyTranscript",
	KindContentBlocked:           "ContentBlocked",
	KindSummarizationFailed:      "SummarizationFailed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// StatusCode maps the kind to the HTTP status returned to callers.
func (k Kind) StatusCode() int {
	switch k {
	case KindInvalidRequest, KindDurationExceeded, KindContentBlocked:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Caller-visible messages.
const (
	MsgNotJSON                  = "Request must be JSON"
	MsgMissingURL               = "Missing 'url' parameter"
	MsgDurationExceeded         = "Audio duration exceeds 30 minutes limit."
	MsgAudioNotFound            = "Audio download failed or file not found."
	MsgTranscriptionUnavailable = "Speech-to-Text client not configured. Check GOOGLE_APPLICATION_CREDENTIALS."
	MsgSummarizerUnavailable    = "Summarization model not configured. Check the generator API key."
	MsgEmptyTranscript          = "Could not transcribe audio. The video might have no speech or the speech is unclear."
	MsgContentBlocked           = "Content generation blocked by safety settings. The transcript may contain sensitive content."
)

// Error is the only error type Summarize returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode is the HTTP status for this error.
func (e *Error) StatusCode() int {
	return e.Kind.StatusCode()
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// InvalidRequest builds a client-input error for callers that validate
// request bodies before reaching the pipeline.
func InvalidRequest(msg string) *Error {
	return newError(KindInvalidRequest, msg, nil)
}

func downloadFailed(err error) *Error {
	return newError(KindDownloadFailed, fmt.Sprintf("Failed to download or process video: %v", err), err)
}

func summarizationFailed(err error) *Error {
	return newError(KindSummarizationFailed, fmt.Sprintf("Failed to generate summary: %v", err), err)
}

func unexpected(err error) *Error {
	return newError(KindUnexpected, fmt.Sprintf("An unexpected error occurred: %v", err), err)
}

// AsError converts any error into a pipeline Error, treating unknown errors as unexpected.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr
	}
	return unexpected(err)
}

// KindOf returns the kind of err, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	return AsError(err).Kind
}
