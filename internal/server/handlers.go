package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"brevio/internal/pipeline"
	"brevio/internal/queue"
	"brevio/internal/storage"
	"brevio/pkg/logger"
	"brevio/pkg/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sideEffectTimeout = 5 * time.Second

type summarizeRequest struct {
	URL interface{} `json:"url"`
}

type summarizeResponse struct {
	Summary    string `json:"summary"`
	Transcript string `json:"transcript"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Speech    bool   `json:"speech"`
	Generator bool   `json:"generator"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:    "ok",
		Speech:    s.summarizer.RecognizerReady(),
		Generator: s.summarizer.GeneratorReady(),
	})
}

func (s *Server) handleSummarize(c *fiber.Ctx) error {
	id := requestID(c)

	url, pErr := parseSummarizeBody(c)
	if pErr != nil {
		logger.Debug("Rejected summarize request",
			zap.String("request_id", id),
			zap.String("reason", pErr.Message))
		return writeError(c, pErr)
	}

	started := time.Now()
	record := s.openRecord(id, url, c)

	ctx := pipeline.WithRequestID(c.UserContext(), id)
	res, err := s.summarizer.Summarize(ctx, url)

	var duration float64
	if res != nil {
		duration = res.AudioDurationSeconds
	}
	s.closeRecord(record, err, duration, started)

	if err != nil {
		return writeError(c, pipeline.AsError(err))
	}

	return c.JSON(summarizeResponse{
		Summary:    res.Summary,
		Transcript: res.Transcript,
	})
}

func (s *Server) handleGetRequest(c *fiber.Ctx) error {
	if s.journal == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "Request journal is not enabled"})
	}

	req, err := s.journal.GetRequestByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
		}
		logger.Error("Failed to load request", zap.String("id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load request"})
	}

	return c.JSON(req)
}

// parseSummarizeBody accepts only JSON bodies carrying a non-empty string url.
func parseSummarizeBody(c *fiber.Ctx) (string, *pipeline.Error) {
	if !c.Is("json") {
		return "", pipeline.InvalidRequest(pipeline.MsgNotJSON)
	}

	var body summarizeRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return "", pipeline.InvalidRequest(pipeline.MsgNotJSON)
	}

	url, ok := body.URL.(string)
	if !ok || strings.TrimSpace(url) == "" {
		return "", pipeline.InvalidRequest(pipeline.MsgMissingURL)
	}

	return strings.TrimSpace(url), nil
}

func writeError(c *fiber.Ctx, err *pipeline.Error) error {
	return c.Status(err.StatusCode()).JSON(fiber.Map{"error": err.Message})
}

func sideEffectContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), sideEffectTimeout)
}

// openRecord journals the accepted request. Failures are logged only.
func (s *Server) openRecord(id, url string, c *fiber.Ctx) *model.SummaryRequest {
	now := time.Now()
	record := &model.SummaryRequest{
		// The header id is client controlled and may repeat; the record key never does.
		ID:        uuid.NewString(),
		SourceURL: url,
		Status:    model.RequestStatusQueued,
		Meta: model.JSONB{
			"request_id": id,
			"remote_ip":  c.IP(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.journal == nil {
		return record
	}

	ctx, cancel := sideEffectContext()
	defer cancel()

	record.SetInProgress()
	if err := s.journal.CreateRequest(ctx, record); err != nil {
		logger.Error("Failed to journal request",
			zap.String("request_id", id),
			zap.String("record_id", record.ID),
			zap.Error(err))
		return record
	}
	c.Set(fiber.HeaderLocation, "/requests/"+record.ID)
	return record
}

// closeRecord stores the outcome and publishes the finished event. Failures are logged only.
func (s *Server) closeRecord(record *model.SummaryRequest, err error, duration float64, started time.Time) {
	var errorKind string
	if err != nil {
		pErr := pipeline.AsError(err)
		errorKind = pErr.Kind.String()
		record.SetFailed(errorKind, pErr.Message)
	} else {
		record.SetCompleted(duration)
	}

	ctx, cancel := sideEffectContext()
	defer cancel()

	if s.journal != nil {
		if jErr := s.journal.UpdateRequest(ctx, record); jErr != nil {
			logger.Error("Failed to update journal", zap.String("request_id", record.ID), zap.Error(jErr))
		}
	}

	if s.events != nil {
		event := &queue.SummaryEvent{
			RequestID:            record.ID,
			SourceURL:            record.SourceURL,
			Status:               string(record.Status),
			ErrorKind:            errorKind,
			AudioDurationSeconds: duration,
			ElapsedMs:            time.Since(started).Milliseconds(),
			FinishedAt:           record.UpdatedAt,
		}
		if pErr := s.events.PublishEvent(ctx, event); pErr != nil {
			logger.Error("Failed to publish summary event", zap.String("request_id", record.ID), zap.Error(pErr))
		}
	}
}
