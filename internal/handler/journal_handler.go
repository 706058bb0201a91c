package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/univer-hq/timetable-api/internal/dto"
	appErrors "github.com/univer-hq/timetable-api/pkg/errors"
	"github.com/univer-hq/timetable-api/pkg/jobs"
	"github.com/univer-hq/timetable-api/pkg/response"
)

// JournalJobType tags journal batch jobs on the queue.
const JournalJobType = "journal.generate"

// JournalHandler enqueues attendance journal batches.
type JournalHandler struct {
	queue     *jobs.Queue
	validator *validator.Validate
}

// NewJournalHandler constructs handler.
func NewJournalHandler(queue *jobs.Queue, validate *validator.Validate) *JournalHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &JournalHandler{queue: queue, validator: validate}
}

// Generate godoc
// @Summary Queue an attendance journal batch
// @Description Expands the committed schedule into dated journal entries in the background.
// @Tags Journal
// @Accept json
// @Produce json
// @Param payload body dto.GenerateJournalRequest true "Journal payload"
// @Success 202 {object} response.Envelope
// @Router /journal/generate [post]
func (h *JournalHandler) Generate(c *gin.Context) {
	var req dto.GenerateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid journal payload"))
		return
	}

	jobID := uuid.NewString()
	if err := h.queue.Enqueue(jobs.Job{ID: jobID, Type: JournalJobType, Payload: req}); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusServiceUnavailable, "journal queue unavailable"))
		return
	}

	response.Accepted(c, dto.JournalJobResponse{JobID: jobID, Status: "queued"})
}
