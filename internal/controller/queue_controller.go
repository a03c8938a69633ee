package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prolinq/messaging-backend/internal/model"
	"github.com/prolinq/messaging-backend/internal/repository"
	"github.com/prolinq/messaging-backend/internal/service"
)

// QueueController exposes the delivery queue, test sends and metrics.
type QueueController struct {
	QueueService *service.QueueService
	MetricsRepo  repository.MetricsRepositoryInterface
}

// Status handles GET /email/queue/status.
func (c *QueueController) Status(w http.ResponseWriter, r *http.Request) {
	status, err := c.QueueService.Status()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ListPending handles GET /email/queue/pending?limit=.
func (c *QueueController) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := c.QueueService.ListPending(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// ListRemaining handles GET /email/queue/remaining.
func (c *QueueController) ListRemaining(w http.ResponseWriter, r *http.Request) {
	jobs, err := c.QueueService.ListRemainingToday()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_remaining": len(jobs),
		"emails":          jobs,
	})
}

// ListRecent handles GET /email/queue/recent?limit=.
func (c *QueueController) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := c.QueueService.ListRecent(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Cancel handles DELETE /email/queue/{id}. A job already dispatched returns
// 409, never a silent success.
func (c *QueueController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	job, err := c.QueueService.Cancel(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "email cancelled",
		"job_id":  job.ID,
		"status":  job.Status,
	})
}

// ClearAll handles DELETE /email/queue/clear-all.
func (c *QueueController) ClearAll(w http.ResponseWriter, r *http.Request) {
	n, err := c.QueueService.ClearAllRemaining()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled_count": n})
}

// TestConnection handles POST /email/test/connection.
func (c *QueueController) TestConnection(w http.ResponseWriter, r *http.Request) {
	sender, ok := c.QueueService.Sender.(*service.SMTPSender)
	if !ok || !sender.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"connected": false, "error": "smtp sender is disabled"})
		return
	}
	if err := sender.TestConnection(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"connected": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": true})
}

// TestSend handles POST /email/test/send, bypassing the queue.
func (c *QueueController) TestSend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.To == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Subject == "" {
		body.Subject = "ProLinq test email"
	}
	if err := c.QueueService.SendDirect(r.Context(), body.To, body.Subject, body.Body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "test email sent", "to": body.To})
}

// MetricsToday handles GET /email/metrics/today.
func (c *QueueController) MetricsToday(w http.ResponseWriter, r *http.Request) {
	m, err := c.MetricsRepo.Today(model.DayStart(c.QueueService.Now()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// MetricsHistory handles GET /email/metrics/history?days=.
func (c *QueueController) MetricsHistory(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 30
	}
	history, err := c.MetricsRepo.History(days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
