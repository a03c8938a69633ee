package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prolinq/messaging-backend/internal/service"
)

// MessageController exposes admin messaging and campaign operations.
type MessageController struct {
	MessageService *service.MessageService
}

// SendIndividual handles POST /admin/messages/send-individual.
func (c *MessageController) SendIndividual(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AdminID    int    `json:"admin_id"`
		ReceiverID int    `json:"receiver_id"`
		Content    string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	msg, err := c.MessageService.SendIndividual(body.AdminID, body.ReceiverID, body.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// SendBulk handles POST /admin/messages/send-bulk. The targeting payload is
// the loosely-typed wire shape; anything that does not match a variant is
// rejected here at the boundary.
func (c *MessageController) SendBulk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AdminID        int     `json:"admin_id"`
		CampaignName   string  `json:"campaign_name"`
		Content        string  `json:"content"`
		IncludeAll     bool    `json:"include_all"`
		FilterRole     *string `json:"filter_role"`
		FilterVerified *bool   `json:"filter_verified"`
		RecipientIDs   []int   `json:"recipient_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	target, err := service.ParseTarget(body.IncludeAll, body.FilterRole, body.FilterVerified, body.RecipientIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := c.MessageService.SendBulk(body.AdminID, body.CampaignName, body.Content, target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ListSent handles GET /admin/messages/sent?admin_id=.
func (c *MessageController) ListSent(w http.ResponseWriter, r *http.Request) {
	adminID, _ := strconv.Atoi(r.URL.Query().Get("admin_id"))
	msgs, err := c.MessageService.ListSent(adminID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// ListReceived handles GET /admin/messages/received?user_id=.
func (c *MessageController) ListReceived(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))
	msgs, err := c.MessageService.ListReceived(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// UnreadCount handles GET /admin/messages/unread-count?user_id=.
func (c *MessageController) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))
	count, err := c.MessageService.UnreadCount(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead handles PUT /admin/messages/{id}/read.
func (c *MessageController) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	msg, err := c.MessageService.MarkRead(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// MarkAllRead handles PUT /admin/messages/read-all?user_id=.
func (c *MessageController) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))
	n, err := c.MessageService.MarkAllRead(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// DeleteSent handles DELETE /admin/messages/{id}/sent?admin_id=.
func (c *MessageController) DeleteSent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	adminID, _ := strconv.Atoi(r.URL.Query().Get("admin_id"))
	if err := c.MessageService.DeleteSent(id, adminID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// DeleteReceived handles DELETE /admin/messages/{id}/received?user_id=.
func (c *MessageController) DeleteReceived(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	userID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err := c.MessageService.DeleteReceived(id, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// ListCampaigns handles GET /admin/campaigns?admin_id=.
func (c *MessageController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	adminID, _ := strconv.Atoi(r.URL.Query().Get("admin_id"))
	campaigns, err := c.MessageService.ListCampaigns(adminID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

// CampaignStats handles GET /admin/campaigns/{id}/stats.
func (c *MessageController) CampaignStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.MessageService.CampaignStats(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DeleteCampaign handles DELETE /admin/campaigns/{id}.
func (c *MessageController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	removed, err := c.MessageService.DeleteCampaign(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
