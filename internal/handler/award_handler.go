package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dojoclub/points-api/internal/service"
	"github.com/dojoclub/points-api/pkg/response"
)

// AwardHandler exposes challenge, prize wheel and gift endpoints.
type AwardHandler struct {
	awards *service.AwardService
}

// NewAwardHandler constructs AwardHandler.
func NewAwardHandler(awards *service.AwardService) *AwardHandler {
	return &AwardHandler{awards: awards}
}

// CompleteChallenge godoc
// @Summary Record a challenge completion
// @Tags Awards
// @Produce json
// @Param id path string true "Student ID"
// @Param key path string true "Challenge key"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/challenges/{key}/completions [post]
func (h *AwardHandler) CompleteChallenge(c *gin.Context) {
	result, err := h.awards.CompleteChallenge(c.Request.Context(), c.Param("id"), c.Param("key"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, result.Warnings)
}

// Spin godoc
// @Summary Spin the prize wheel
// @Tags Awards
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/spins [post]
func (h *AwardHandler) Spin(c *gin.Context) {
	result, err := h.awards.SpinWheel(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// OpenGift godoc
// @Summary Open a gift
// @Tags Awards
// @Produce json
// @Param id path string true "Student ID"
// @Param giftId path string true "Gift ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/gifts/{giftId}/open [post]
func (h *AwardHandler) OpenGift(c *gin.Context) {
	result, err := h.awards.OpenGift(c.Request.Context(), c.Param("id"), c.Param("giftId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
