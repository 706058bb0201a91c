package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univer-hq/timetable-api/internal/dto"
	"github.com/univer-hq/timetable-api/pkg/jobs"
	"github.com/univer-hq/timetable-api/pkg/response"
)

func TestJournalHandlerGenerateQueuesJob(t *testing.T) {
	gin.SetMode(gin.TestMode)

	received := make(chan jobs.Job, 1)
	queue := jobs.NewQueue("journal-test", func(ctx context.Context, job jobs.Job) error {
		received <- job
		return nil
	}, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)

	h := NewJournalHandler(queue, validator.New())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.GenerateJournalRequest{
		AcademicYearID: 1,
		Season:         "autumn",
		StartDate:      "2026-01-05",
		EndDate:        "2026-01-18",
	})
	req, _ := http.NewRequest(http.MethodPost, "/journal/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Generate(c)
	require.Equal(t, http.StatusAccepted, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["jobId"])
	assert.Equal(t, "queued", data["status"])

	select {
	case job := <-received:
		assert.Equal(t, JournalJobType, job.Type)
		payload, ok := job.Payload.(dto.GenerateJournalRequest)
		require.True(t, ok)
		assert.Equal(t, int64(1), payload.AcademicYearID)
	case <-time.After(2 * time.Second):
		t.Fatal("job never reached the queue worker")
	}
}

func TestJournalHandlerGenerateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	queue := jobs.NewQueue("journal-test", func(ctx context.Context, job jobs.Job) error { return nil }, jobs.QueueConfig{})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)

	h := NewJournalHandler(queue, validator.New())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/journal/generate", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJournalHandlerGenerateRejectsBadDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	queue := jobs.NewQueue("journal-test", func(ctx context.Context, job jobs.Job) error { return nil }, jobs.QueueConfig{})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)

	h := NewJournalHandler(queue, validator.New())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.GenerateJournalRequest{
		AcademicYearID: 1,
		Season:         "autumn",
		StartDate:      "05.01.2026",
		EndDate:        "2026-01-18",
	})
	req, _ := http.NewRequest(http.MethodPost, "/journal/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
