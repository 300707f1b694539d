package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dojoclub/points-api/internal/service"
	"github.com/dojoclub/points-api/pkg/response"
)

// LeaderboardHandler exposes the lifetime-points ranking.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

// NewLeaderboardHandler constructs LeaderboardHandler.
func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// Top godoc
// @Summary Get top students by lifetime points
// @Tags Leaderboard
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Top(c *gin.Context) {
	limit := 0
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		limit = v
	}
	entries, err := h.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
