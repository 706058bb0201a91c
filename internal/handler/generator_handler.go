package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univer-hq/timetable-api/internal/dto"
	"github.com/univer-hq/timetable-api/internal/service"
	appErrors "github.com/univer-hq/timetable-api/pkg/errors"
	"github.com/univer-hq/timetable-api/pkg/response"
)

// GeneratorHandler manages schedule generation endpoints.
type GeneratorHandler struct {
	service *service.GeneratorService
}

// NewGeneratorHandler constructs handler.
func NewGeneratorHandler(svc *service.GeneratorService) *GeneratorHandler {
	return &GeneratorHandler{service: svc}
}

// Generate godoc
// @Summary Preview a generated timetable
// @Description Runs the greedy generator without persisting anything.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *GeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Commit godoc
// @Summary Generate and persist a timetable
// @Description Replaces the stored schedule for the year and season in one transaction.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/commit [post]
func (h *GeneratorHandler) Commit(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Commit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
