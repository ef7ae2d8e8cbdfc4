package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"kbchat/models"
	"kbchat/services"
)

// FailureMessage is all a caller learns when the backend fails. Internal
// detail stays in the logs.
const FailureMessage = "Sorry, I couldn't answer that right now. Please try again."

// KBController handles POST /kb: one prompt in, one answer with citations and
// a session identifier out. It holds no per-conversation state; continuity is
// whatever the client echoes back.
type KBController struct {
	answerer services.Answerer
	store    *services.TranscriptStore
	logger   *slog.Logger
	tracer   trace.Tracer
	requests metric.Int64Counter
	failures metric.Int64Counter
}

// NewKBController wires the handler. store may be nil; meter counters may be
// nil in tests.
func NewKBController(answerer services.Answerer, store *services.TranscriptStore, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *KBController {
	kc := &KBController{
		answerer: answerer,
		store:    store,
		logger:   logger,
		tracer:   tracer,
	}
	if meter != nil {
		kc.requests, _ = meter.Int64Counter("kb.requests")
		kc.failures, _ = meter.Int64Counter("kb.failures")
	}
	return kc
}

// HandleKB processes one chat turn.
func (kc *KBController) HandleKB(c *gin.Context) {
	var req models.KBRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	ctx := c.Request.Context()
	if kc.tracer != nil {
		var span trace.Span
		ctx, span = kc.tracer.Start(ctx, "kb.answer")
		defer span.End()
	}
	if kc.requests != nil {
		kc.requests.Add(ctx, 1)
	}

	resp, err := kc.answerer.Answer(ctx, req.Prompt, req.SessionID)
	if err != nil {
		kc.logger.Error("answer failed", "error", err, "session_id", req.SessionID)
		if kc.failures != nil {
			kc.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "answer")))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": FailureMessage})
		return
	}

	kc.recordTurns(c, req.Prompt, resp)

	c.JSON(http.StatusOK, resp)
}

// recordTurns logs both halves of the exchange to the transcript store.
// Best effort: a storage failure never fails the request.
func (kc *KBController) recordTurns(c *gin.Context, prompt string, resp *models.KBResponse) {
	if kc.store == nil {
		return
	}

	ctx := c.Request.Context()
	sources := citationSources(resp.Citations)

	if _, err := kc.store.SaveTurn(ctx, resp.SessionID, models.RoleUser, prompt, nil); err != nil {
		kc.logger.Warn("failed to record user turn", "error", err)
	}
	if _, err := kc.store.SaveTurn(ctx, resp.SessionID, models.RoleBot, resp.Response, sources); err != nil {
		kc.logger.Warn("failed to record bot turn", "error", err)
	}
}

// citationSources collects distinct source identifiers in first-seen order.
// One document cited at several spans yields several citations, but the
// transcript store keeps sources as a string set, which rejects duplicate
// members.
func citationSources(citations []models.Citation) []string {
	seen := make(map[string]struct{}, len(citations))
	sources := make([]string, 0, len(citations))
	for _, cit := range citations {
		if cit.Source == "" {
			continue
		}
		if _, ok := seen[cit.Source]; ok {
			continue
		}
		seen[cit.Source] = struct{}{}
		sources = append(sources, cit.Source)
	}
	return sources
}
