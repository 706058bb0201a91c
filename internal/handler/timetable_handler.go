package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/univer-hq/timetable-api/internal/models"
	"github.com/univer-hq/timetable-api/internal/service"
	appErrors "github.com/univer-hq/timetable-api/pkg/errors"
	"github.com/univer-hq/timetable-api/pkg/response"
)

// TimetableHandler serves the committed schedule and its diagnostics.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// List godoc
// @Summary List the committed timetable
// @Tags Timetable
// @Produce json
// @Param yearId query int true "Academic year"
// @Param season query string true "autumn or spring"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	yearID, err := strconv.ParseInt(c.Query("yearId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "yearId must be an integer"))
		return
	}
	season := models.Season(c.Query("season"))

	entries, err := h.service.ListForSeason(c.Request.Context(), yearID, season)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}

// ListErrors godoc
// @Summary List generation diagnostics
// @Tags Timetable
// @Produce json
// @Param yearId query int true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /timetable/errors [get]
func (h *TimetableHandler) ListErrors(c *gin.Context) {
	yearID, err := strconv.ParseInt(c.Query("yearId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "yearId must be an integer"))
		return
	}

	errs, err := h.service.ListErrors(c.Request.Context(), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, errs, map[string]interface{}{"count": len(errs)})
}
