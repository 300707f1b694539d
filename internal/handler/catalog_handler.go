package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/internal/service"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
	"github.com/dojoclub/points-api/pkg/response"
)

// CatalogHandler exposes eligibility, purchase and loadout endpoints.
type CatalogHandler struct {
	eligibility *service.EligibilityService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(eligibility *service.EligibilityService) *CatalogHandler {
	return &CatalogHandler{eligibility: eligibility}
}

// PurchaseRequest is the purchase endpoint payload.
type PurchaseRequest struct {
	ItemType string `json:"item_type" binding:"required"`
	ItemKey  string `json:"item_key" binding:"required"`
}

// EquipRequest is the loadout endpoint payload.
type EquipRequest struct {
	ItemType string `json:"item_type" binding:"required"`
	ItemKey  string `json:"item_key" binding:"required"`
}

// Eligibility godoc
// @Summary Resolve item eligibility for a student
// @Tags Catalog
// @Produce json
// @Param id path string true "Student ID"
// @Param type query string true "Item type"
// @Param key query string true "Item key"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/eligibility [get]
func (h *CatalogHandler) Eligibility(c *gin.Context) {
	itemType := models.ItemType(c.Query("type"))
	itemKey := c.Query("key")
	if itemKey == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type and key query parameters are required"))
		return
	}
	state, err := h.eligibility.Status(c.Request.Context(), c.Param("id"), itemType, itemKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"eligibility": state}, nil)
}

// Catalog godoc
// @Summary List catalog items with eligibility annotations
// @Tags Catalog
// @Produce json
// @Param id path string true "Student ID"
// @Param type query string true "Item type"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/catalog [get]
func (h *CatalogHandler) Catalog(c *gin.Context) {
	views, err := h.eligibility.CatalogView(c.Request.Context(), c.Param("id"), models.ItemType(c.Query("type")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Purchase godoc
// @Summary Purchase a catalog item
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body PurchaseRequest true "Purchase payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/purchases [post]
func (h *CatalogHandler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.eligibility.Purchase(c.Request.Context(), c.Param("id"), models.ItemType(req.ItemType), req.ItemKey, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, result.Warnings)
}

// Equip godoc
// @Summary Equip an unlocked item
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body EquipRequest true "Equip payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/loadout [post]
func (h *CatalogHandler) Equip(c *gin.Context) {
	var req EquipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.eligibility.Equip(c.Request.Context(), c.Param("id"), models.ItemType(req.ItemType), req.ItemKey); err != nil {
		response.Error(c, err)
		return
	}
	loadout, err := h.eligibility.Loadout(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loadout, nil)
}

// Loadout godoc
// @Summary Get equipped loadout
// @Tags Catalog
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/loadout [get]
func (h *CatalogHandler) Loadout(c *gin.Context) {
	loadout, err := h.eligibility.Loadout(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loadout, nil)
}
