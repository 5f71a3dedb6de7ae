// Feedback HTTP handlers.
//
// This file exposes endpoints for visitor feedback on chatbot replies:
//   - POST /chat/feedback        (record thumbs-up/down on a transcript entry)
//   - GET  /chat/feedback/stats  (owner-facing aggregates)
//
// The WasHelpful field binds as a pointer so an absent value is rejected
// while an explicit false is accepted.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bizchat-backend/internal/services"
)

// FeedbackRequest is the JSON payload for one feedback submission.
type FeedbackRequest struct {
	BusinessID string `json:"businessId" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	SessionID  string `json:"sessionId"  example:"widget-3f9a"`
	LogID      string `json:"logId"      example:"7f2e66a1-30b4-4f42-9f0c-0a7d2ac55c18"`
	// WasHelpful must be present; false is a valid value, absent is not.
	WasHelpful *bool  `json:"wasHelpful"`
	Comment    string `json:"comment,omitempty"`
}

// FeedbackStatsResponse is the owner-facing aggregate envelope.
type FeedbackStatsResponse struct {
	Total          int64    `json:"total"`
	Positive       int64    `json:"positive"`
	Negative       int64    `json:"negative"`
	RecentComments []string `json:"recent_comments"`
}

// Feedback godoc
// @ID          chatFeedback
// @Summary     Record feedback on a reply
// @Description Stores a thumbs-up/down for a transcript entry, with an optional comment.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.FeedbackRequest  true  "Feedback payload"
//
// @Success     200  {object}  map[string]bool
// @Failure     400  {object}  handlers.ErrorResponse "Missing required fields"
// @Failure     404  {object}  handlers.ErrorResponse "Transcript entry not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /chat/feedback [post]
func (h *Handlers) Feedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	_, err := h.fbSvc.Record(c.Request.Context(), services.FeedbackInput{
		BusinessID: req.BusinessID,
		SessionID:  req.SessionID,
		LogID:      req.LogID,
		WasHelpful: req.WasHelpful,
		Comment:    req.Comment,
	})
	if err != nil {
		if verr, isVal := services.AsValidation(err); isVal {
			failWith(c, http.StatusBadRequest, ErrCodeBadRequest, "Missing required fields", verr.Fields)
			return
		}
		if errors.Is(err, services.ErrLogNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat log not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to record feedback")
		return
	}

	ok(c, http.StatusOK, gin.H{"success": true})
}

// FeedbackStats godoc
// @ID          chatFeedbackStats
// @Summary     Feedback aggregates for a business
// @Description Returns thumbs-up/down totals plus the most recent written comments.
// @Tags        Feedback
// @Produce     json
//
// @Param       businessId  query  string  true  "Business ID"
//
// @Success     200  {object}  handlers.FeedbackStatsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /chat/feedback/stats [get]
func (h *Handlers) FeedbackStats(c *gin.Context) {
	businessID := c.Query("businessId")
	if businessID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "businessId is required")
		return
	}

	stats, recent, err := h.fbSvc.Stats(c.Request.Context(), businessID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to fetch feedback stats")
		return
	}

	comments := make([]string, 0, len(recent))
	for _, f := range recent {
		if f.Comment != nil {
			comments = append(comments, *f.Comment)
		}
	}
	ok(c, http.StatusOK, FeedbackStatsResponse{
		Total:          stats.Total,
		Positive:       stats.Positive,
		Negative:       stats.Negative,
		RecentComments: comments,
	})
}
