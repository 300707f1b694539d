package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoclub/points-api/internal/service"
	"github.com/dojoclub/points-api/pkg/config"
)

func TestGrantZeroPointsSurfacesInvalidAmount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	awards := service.NewAwardService(nil, nil, nil, nil, nil, config.ChallengesConfig{}, nil, nil)
	h := NewStudentHandler(nil, awards, nil)

	r := gin.New()
	r.POST("/students/:id/grants", h.Grant)

	body, err := json.Marshal(map[string]interface{}{"points": 0, "note": "noop"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/students/s1/grants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_AMOUNT", envelope.Error.Code, "zero delta is a domain error, not a binding failure")
}
