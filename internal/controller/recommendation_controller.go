package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prolinq/messaging-backend/internal/apperrors"
	"github.com/prolinq/messaging-backend/internal/repository"
	"github.com/prolinq/messaging-backend/internal/service"
)

// RecommendationController exposes the transactional email surface: a manual
// trigger for the daily batch and on-demand welcome emails.
type RecommendationController struct {
	RecService *service.RecommendationService
	Users      repository.UserRepositoryInterface
}

// RunDaily handles POST /email/recommendations/run. The cron schedule is the
// normal driver; this endpoint exists for operators re-running a missed batch.
func (c *RecommendationController) RunDaily(w http.ResponseWriter, r *http.Request) {
	queued, err := c.RecService.SendDailyRecommendations()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"queued": queued})
}

// SendWelcome handles POST /email/welcome/{user_id}.
func (c *RecommendationController) SendWelcome(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	user, err := c.Users.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeError(w, apperrors.NewNotFound("user", strconv.Itoa(id)))
		return
	}
	if err := c.RecService.SendWelcome(*user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "welcome email queued", "to": user.Email})
}
