package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/internal/service"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
	"github.com/dojoclub/points-api/pkg/response"
)

// StudentHandler exposes point snapshot, grant and ledger endpoints.
type StudentHandler struct {
	ledger     *service.LedgerService
	awards     *service.AwardService
	statements *service.StatementService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(ledger *service.LedgerService, awards *service.AwardService, statements *service.StatementService) *StudentHandler {
	return &StudentHandler{ledger: ledger, awards: awards, statements: statements}
}

// GrantRequest is the grant endpoint payload.
type GrantRequest struct {
	Points     int    `json:"points"`
	Category   string `json:"category"`
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Note       string `json:"note"`
}

// Snapshot godoc
// @Summary Get student point snapshot
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.ledger.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Grant godoc
// @Summary Grant or deduct points
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body GrantRequest true "Grant payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grants [post]
func (h *StudentHandler) Grant(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.awards.Grant(c.Request.Context(), service.GrantRequest{
		StudentID:  c.Param("id"),
		Points:     req.Points,
		Category:   models.PointCategory(req.Category),
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Note:       req.Note,
		Actor:      actorID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, result.Warnings)
}

func ledgerFilterFromQuery(c *gin.Context) models.LedgerFilter {
	filter := models.LedgerFilter{StudentID: c.Param("id")}
	filter.Category = models.PointCategory(c.Query("category"))
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.DateFrom = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.DateTo = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	return filter
}

// Ledger godoc
// @Summary List ledger entries
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param category query string false "Filter by category"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/ledger [get]
func (h *StudentHandler) Ledger(c *gin.Context) {
	entries, pagination, err := h.ledger.List(c.Request.Context(), ledgerFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Statement godoc
// @Summary Export ledger statement
// @Tags Students
// @Produce text/csv
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /students/{id}/statement [get]
func (h *StudentHandler) Statement(c *gin.Context) {
	format := service.StatementFormat(c.DefaultQuery("format", "csv"))
	statement, err := h.statements.Render(c.Request.Context(), ledgerFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+statement.FileName)
	c.Data(http.StatusOK, statement.ContentType, statement.Body)
}
