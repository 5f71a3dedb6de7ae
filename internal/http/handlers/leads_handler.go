// Lead HTTP handlers.
//
// This file exposes the owner admin surface for captured leads:
//   - GET /chat/leads  (paginated list, newest first, optional status filter)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/services"
)

// ListLeadsResponse wraps a page of leads and pagination information.
type ListLeadsResponse struct {
	Leads      []domain.Lead `json:"leads"`
	Pagination Pagination    `json:"pagination"`
}

// ListLeads godoc
// @ID          listChatLeads
// @Summary     List captured leads (paginated)
// @Description Returns a page of the business's captured leads, newest first. Supports filtering by status.
// @Tags        Leads
// @Produce     json
//
// @Param       businessId  query  string  true  "Business ID"
// @Param       status      query  string  false "Filter by lead status"  Enums(new, contacted, qualified, converted, rejected)
// @Param       page        query  int     false "Page number"            minimum(1) default(1)
// @Param       page_size   query  int     false "Items per page"         minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListLeadsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Business not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /chat/leads [get]
func (h *Handlers) ListLeads(c *gin.Context) {
	businessID := c.Query("businessId")
	if businessID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "businessId is required")
		return
	}
	status := c.Query("status")
	page, pageSize := clampPagination(c)

	items, total, err := h.leadSvc.ListPage(c.Request.Context(), businessID, status, page, pageSize)
	if err != nil {
		if verr, isVal := services.AsValidation(err); isVal {
			failWith(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid filter", verr.Fields)
			return
		}
		if errors.Is(err, services.ErrBusinessNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "business not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list leads")
		return
	}
	if items == nil {
		items = []domain.Lead{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListLeadsResponse{
		Leads: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
