// Chat HTTP handlers.
//
// This file exposes the public widget endpoints:
//   - POST   /chat            (process one conversation turn)
//   - GET    /chat/history    (session transcript, ETag support)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses
// and idempotent replays of previously processed turns).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/http/middleware"
	"github.com/tbourn/go-bizchat-backend/internal/repo"
	"github.com/tbourn/go-bizchat-backend/internal/services"
	"github.com/tbourn/go-bizchat-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ConversationService defines the per-turn pipeline operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConversationService interface {
	// ProcessTurn runs one inbound message through the pipeline.
	ProcessTurn(ctx context.Context, businessID, sessionID, message string) (*services.TurnResult, error)
	// History returns the session transcript oldest-first.
	History(ctx context.Context, businessID, sessionID string) ([]domain.ChatLog, error)
}

// SettingsService defines settings resolution and mutation operations.
type SettingsService interface {
	// Get returns the business's settings, creating defaults on first access.
	Get(ctx context.Context, businessID string) (*domain.ChatbotSettings, error)
	// Update validates and merges a partial update over existing settings.
	Update(ctx context.Context, businessID string, upd services.SettingsUpdate) (*domain.ChatbotSettings, error)
}

// FeedbackService defines operations to capture visitor feedback on turns.
type FeedbackService interface {
	// Record validates and persists one feedback submission.
	Record(ctx context.Context, in services.FeedbackInput) (*domain.Feedback, error)
	// Stats aggregates feedback for a business.
	Stats(ctx context.Context, businessID string) (repo.FeedbackStats, []domain.Feedback, error)
}

// LeadService defines the admin read side of captured leads.
type LeadService interface {
	// ListPage returns a page of leads, newest first, with total count.
	ListPage(ctx context.Context, businessID, status string, page, pageSize int) ([]domain.Lead, int64, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for chat turns, history, settings, leads,
// and feedback. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	convSvc     ConversationService
	settingsSvc SettingsService
	fbSvc       FeedbackService
	leadSvc     LeadService

	// db is used for conditional-response stats and turn receipts.
	db *gorm.DB
	// receiptTTL bounds how long a processed turn can be replayed.
	receiptTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(convSvc ConversationService, settingsSvc SettingsService, fbSvc FeedbackService, leadSvc LeadService, db *gorm.DB, receiptTTL time.Duration) *Handlers {
	if receiptTTL <= 0 {
		receiptTTL = 24 * time.Hour
	}
	return &Handlers{
		convSvc:     convSvc,
		settingsSvc: settingsSvc,
		fbSvc:       fbSvc,
		leadSvc:     leadSvc,
		db:          db,
		receiptTTL:  receiptTTL,
	}
}

//
// DTOs
//

// ChatRequest is the JSON payload for one conversation turn.
type ChatRequest struct {
	// BusinessID identifies the business whose chatbot is addressed.
	BusinessID string `json:"businessId" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// SessionID groups turns into one conversation; chosen by the client.
	SessionID string `json:"sessionId" binding:"required" example:"widget-3f9a"`
	// Message is the visitor's message text.
	Message string `json:"message" binding:"required" example:"What are your opening hours?"`
}

// LeadInfoDTO mirrors the contact fields detected in a turn.
type LeadInfoDTO struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ChatResponse is the success envelope for POST /chat.
type ChatResponse struct {
	// Response is the text to render in the widget.
	Response string `json:"response"`
	// LogID references the persisted transcript entry, when one was written.
	LogID string `json:"logId,omitempty"`
	// LeadInfo echoes contact details detected in the message.
	LeadInfo *LeadInfoDTO `json:"leadInfo,omitempty"`
	// IsLeadCollectionAttempt reports whether the bot was instructed to ask
	// for contact details this turn.
	IsLeadCollectionAttempt bool `json:"isLeadCollectionAttempt,omitempty"`
}

// HistoryResponse wraps a session transcript.
type HistoryResponse struct {
	Messages []domain.ChatLog `json:"messages"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

//
// Handlers
//

// Chat godoc
// @ID          chat
// @Summary     Process a conversation turn
// @Description Runs one visitor message through the chatbot pipeline and returns the reply. Supports idempotent retries via the Idempotency-Key header.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Stable key for safe retries"
// @Param       body             body    handlers.ChatRequest  true  "Turn payload"
//
// @Success     200  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "businessId, sessionId and message are required")
		return
	}

	ctx := c.Request.Context()

	// Serve a previously processed turn when the validator flagged a replay.
	if middleware.IsReplay(c) {
		if key, okKey := middleware.GetTurnKey(c); okKey && h.db != nil {
			if resp, found := h.replayTurn(ctx, req, key); found {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, resp)
				return
			}
		}
		// Receipt vanished between lookup and now; process normally.
	}

	res, err := h.convSvc.ProcessTurn(ctx, req.BusinessID, req.SessionID, req.Message)
	if err != nil {
		switch err {
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
		case services.ErrMessageTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeTurnFailed, "failed to process message")
		}
		return
	}

	// The lead write is best-effort; its failure is logged, never surfaced.
	if res.LeadErr != nil {
		middleware.LoggerFrom(c).Warn().
			Err(res.LeadErr).
			Str("business_id", req.BusinessID).
			Msg("lead capture failed")
	}

	// Record a receipt so duplicate sends of this turn replay instead of
	// re-invoking the provider. Only turns that produced a transcript entry
	// are replayable.
	if key, okKey := middleware.GetTurnKey(c); okKey && h.db != nil && res.LogID != "" {
		if _, rerr := repo.CreateReceipt(ctx, h.db, req.BusinessID, req.SessionID, key, res.LogID, http.StatusOK, h.receiptTTL); rerr != nil && rerr != repo.ErrDuplicate {
			middleware.LoggerFrom(c).Warn().Err(rerr).Msg("turn receipt write failed")
		}
	}

	resp := ChatResponse{
		Response:                res.Response,
		LogID:                   res.LogID,
		IsLeadCollectionAttempt: res.IsLeadCollectionAttempt,
	}
	if !res.LeadInfo.Empty() {
		resp.LeadInfo = &LeadInfoDTO{
			Name:  res.LeadInfo.Name,
			Email: res.LeadInfo.Email,
			Phone: res.LeadInfo.Phone,
		}
	}
	ok(c, http.StatusOK, resp)
}

// replayTurn fetches the receipt and its transcript entry for a replayed
// request. Returns found=false when either is gone (expired receipt, pruned
// log), in which case the turn is processed normally.
func (h *Handlers) replayTurn(ctx context.Context, req ChatRequest, key string) (ChatResponse, bool) {
	rec, err := repo.GetReceipt(ctx, h.db, req.BusinessID, req.SessionID, key, time.Now().UTC())
	if err != nil {
		return ChatResponse{}, false
	}
	log, err := repo.GetChatLog(ctx, h.db, req.BusinessID, rec.LogID)
	if err != nil {
		return ChatResponse{}, false
	}
	return ChatResponse{Response: log.BotResponse, LogID: log.ID}, true
}

// History godoc
// @ID          chatHistory
// @Summary     Get session transcript
// @Description Returns the transcript for a (businessId, sessionId) pair, oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
//
// @Param       businessId     query   string  true  "Business ID"
// @Param       sessionId      query   string  true  "Session ID"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} handlers.HistoryResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chat/history [get]
func (h *Handlers) History(c *gin.Context) {
	businessID := strings.TrimSpace(c.Query("businessId"))
	sessionID := strings.TrimSpace(c.Query("sessionId"))
	if businessID == "" || sessionID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "businessId and sessionId are required")
		return
	}

	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if h.db != nil {
		count, maxTS, err := repo.TranscriptStats(ctx, h.db, businessID, sessionID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"history:%s:%s:%d:%d"`, businessID, sessionID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	logs, err := h.convSvc.History(ctx, businessID, sessionID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to fetch history")
		return
	}
	if logs == nil {
		logs = []domain.ChatLog{}
	}
	ok(c, http.StatusOK, HistoryResponse{Messages: logs})
}
