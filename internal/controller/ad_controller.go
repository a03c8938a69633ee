package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prolinq/messaging-backend/internal/apperrors"
	"github.com/prolinq/messaging-backend/internal/model"
	"github.com/prolinq/messaging-backend/internal/repository"
	"github.com/prolinq/messaging-backend/internal/service"
)

// AdController exposes ad inventory management and the distribution preview.
type AdController struct {
	AdRepo  repository.AdRepositoryInterface
	Rotator *service.AdRotator
}

// Create handles POST /email/ads.
func (c *AdController) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreatedByID int     `json:"created_by_id"`
		Title       string  `json:"title"`
		AdText      string  `json:"ad_text"`
		AdLink      *string `json:"ad_link"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Title == "" || body.AdText == "" {
		http.Error(w, "title and ad_text are required", http.StatusBadRequest)
		return
	}

	ad := &model.Ad{
		CreatedByID: body.CreatedByID,
		Title:       body.Title,
		AdText:      body.AdText,
		AdLink:      body.AdLink,
		IsActive:    true,
	}
	if body.IsActive != nil {
		ad.IsActive = *body.IsActive
	}
	if err := c.AdRepo.Create(ad); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ad)
}

// List handles GET /email/ads?active_only=.
func (c *AdController) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	ads, err := c.AdRepo.List(activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ads)
}

// Update handles PUT /email/ads/{id}.
func (c *AdController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ad id", http.StatusBadRequest)
		return
	}

	ad, err := c.AdRepo.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if ad == nil {
		writeError(w, apperrors.NewNotFound("ad", strconv.Itoa(id)))
		return
	}

	var body struct {
		Title    *string `json:"title"`
		AdText   *string `json:"ad_text"`
		AdLink   *string `json:"ad_link"`
		IsActive *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Title != nil {
		ad.Title = *body.Title
	}
	if body.AdText != nil {
		ad.AdText = *body.AdText
	}
	if body.AdLink != nil {
		ad.AdLink = body.AdLink
	}
	if body.IsActive != nil {
		ad.IsActive = *body.IsActive
	}

	if _, err := c.AdRepo.Update(ad); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

// Toggle handles PUT /email/ads/{id}/toggle.
func (c *AdController) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ad id", http.StatusBadRequest)
		return
	}
	ad, err := c.AdRepo.ToggleActive(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if ad == nil {
		writeError(w, apperrors.NewNotFound("ad", strconv.Itoa(id)))
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

// Delete handles DELETE /email/ads/{id}.
func (c *AdController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ad id", http.StatusBadRequest)
		return
	}
	ok, err := c.AdRepo.Delete(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, apperrors.NewNotFound("ad", strconv.Itoa(id)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ad deleted"})
}

// ResetImpressions handles POST /email/ads/{id}/reset-impressions, the only
// permitted decrement of an impression counter.
func (c *AdController) ResetImpressions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ad id", http.StatusBadRequest)
		return
	}
	ok, err := c.AdRepo.ResetImpressions(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, apperrors.NewNotFound("ad", strconv.Itoa(id)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "impressions reset"})
}

// PreviewDistribution handles GET /email/preview/ad-distribution?sample_size=.
func (c *AdController) PreviewDistribution(w http.ResponseWriter, r *http.Request) {
	sampleSize, _ := strconv.Atoi(r.URL.Query().Get("sample_size"))
	dist, err := c.Rotator.PreviewDistribution(sampleSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}
