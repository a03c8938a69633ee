package repository

import (
	"database/sql"
	"time"

	"github.com/prolinq/messaging-backend/internal/model"
)

// MessageRepositoryInterface defines the persistence operations for admin
// messages and the campaign views derived from them.
type MessageRepositoryInterface interface {
	Create(msg *model.AdminMessage) error
	GetByID(id int) (*model.AdminMessage, error)
	ListSent(adminID int) ([]model.AdminMessage, error)
	ListReceived(userID int) ([]model.AdminMessage, error)
	UnreadCount(userID int) (int, error)
	MarkRead(id int) (*model.AdminMessage, error)
	MarkAllRead(userID int) (int, error)
	DeleteSent(id, adminID int) (bool, error)
	DeleteReceived(id, userID int) (bool, error)
	ListCampaigns(adminID int) ([]model.CampaignSummary, error)
	CampaignStats(campaignID string) (*model.CampaignStats, error)
	DeleteCampaign(campaignID string) (int, error)
}

// MessageRepository is the concrete Postgres implementation.
type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = `id, admin_id, receiver_id, content, is_bulk, bulk_campaign_id,
	bulk_campaign_name, is_read, is_deleted_by_user, is_deleted_by_admin, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*model.AdminMessage, error) {
	var m model.AdminMessage
	err := row.Scan(&m.ID, &m.AdminID, &m.ReceiverID, &m.Content, &m.IsBulk,
		&m.BulkCampaignID, &m.BulkCampaignName, &m.IsRead,
		&m.IsDeletedByUser, &m.IsDeletedByAdmin, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new admin message and fills in the generated ID.
func (r *MessageRepository) Create(msg *model.AdminMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO admin_messages
        (admin_id, receiver_id, content, is_bulk, bulk_campaign_id, bulk_campaign_name, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		msg.AdminID, msg.ReceiverID, msg.Content, msg.IsBulk,
		msg.BulkCampaignID, msg.BulkCampaignName, msg.CreatedAt,
	).Scan(&msg.ID)
}

// GetByID fetches a message by ID; returns nil when not found.
func (r *MessageRepository) GetByID(id int) (*model.AdminMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM admin_messages WHERE id = $1`
	m, err := scanMessage(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListSent returns messages sent by an admin, excluding sender-side deletes.
func (r *MessageRepository) ListSent(adminID int) ([]model.AdminMessage, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM admin_messages
        WHERE admin_id = $1 AND is_deleted_by_admin = FALSE
        ORDER BY created_at DESC
    `
	return r.queryMessages(query, adminID)
}

// ListReceived returns a user's inbox, excluding receiver-side deletes.
func (r *MessageRepository) ListReceived(userID int) ([]model.AdminMessage, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM admin_messages
        WHERE receiver_id = $1 AND is_deleted_by_user = FALSE
        ORDER BY created_at DESC
    `
	return r.queryMessages(query, userID)
}

// UnreadCount counts unread, undeleted inbox messages for a user.
func (r *MessageRepository) UnreadCount(userID int) (int, error) {
	query := `
        SELECT COUNT(*) FROM admin_messages
        WHERE receiver_id = $1 AND is_read = FALSE AND is_deleted_by_user = FALSE
    `
	var n int
	err := r.DB.QueryRow(query, userID).Scan(&n)
	return n, err
}

// MarkRead flips the read flag and returns the updated message, or nil when
// the message does not exist.
func (r *MessageRepository) MarkRead(id int) (*model.AdminMessage, error) {
	query := `
        UPDATE admin_messages SET is_read = TRUE
        WHERE id = $1
        RETURNING ` + messageColumns
	m, err := scanMessage(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// MarkAllRead marks a user's whole inbox as read, returning the count.
func (r *MessageRepository) MarkAllRead(userID int) (int, error) {
	res, err := r.DB.Exec(`
        UPDATE admin_messages SET is_read = TRUE
        WHERE receiver_id = $1 AND is_read = FALSE AND is_deleted_by_user = FALSE
    `, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteSent soft-deletes a message from the sender's view only.
func (r *MessageRepository) DeleteSent(id, adminID int) (bool, error) {
	res, err := r.DB.Exec(`
        UPDATE admin_messages SET is_deleted_by_admin = TRUE
        WHERE id = $1 AND admin_id = $2
    `, id, adminID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteReceived soft-deletes a message from the receiver's inbox only.
func (r *MessageRepository) DeleteReceived(id, userID int) (bool, error) {
	res, err := r.DB.Exec(`
        UPDATE admin_messages SET is_deleted_by_user = TRUE
        WHERE id = $1 AND receiver_id = $2
    `, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListCampaigns groups an admin's bulk messages by campaign id, taking the
// name and creation time from the earliest member.
func (r *MessageRepository) ListCampaigns(adminID int) ([]model.CampaignSummary, error) {
	query := `
        SELECT bulk_campaign_id, MIN(bulk_campaign_name), COUNT(*), MIN(created_at)
        FROM admin_messages
        WHERE admin_id = $1 AND is_bulk = TRUE AND bulk_campaign_id IS NOT NULL
        GROUP BY bulk_campaign_id
        ORDER BY MIN(created_at) DESC
    `
	rows, err := r.DB.Query(query, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []model.CampaignSummary{}
	for rows.Next() {
		var c model.CampaignSummary
		if err := rows.Scan(&c.CampaignID, &c.CampaignName, &c.TotalSent, &c.CreatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// CampaignStats computes the raw counts for one campaign in a single
// aggregate query. The percentage is derived by the caller.
func (r *MessageRepository) CampaignStats(campaignID string) (*model.CampaignStats, error) {
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE is_read),
               COUNT(*) FILTER (WHERE is_deleted_by_user)
        FROM admin_messages
        WHERE bulk_campaign_id = $1
    `
	stats := model.CampaignStats{CampaignID: campaignID}
	err := r.DB.QueryRow(query, campaignID).Scan(&stats.TotalSent, &stats.ReadCount, &stats.DeletedByUserCount)
	if err != nil {
		return nil, err
	}
	stats.UnreadCount = stats.TotalSent - stats.ReadCount
	return &stats, nil
}

// DeleteCampaign removes every message of one campaign in a single statement,
// returning the exact count removed. A single DELETE is atomic, so the
// operation can never leave a partially deleted campaign behind.
func (r *MessageRepository) DeleteCampaign(campaignID string) (int, error) {
	res, err := r.DB.Exec(`DELETE FROM admin_messages WHERE bulk_campaign_id = $1`, campaignID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *MessageRepository) queryMessages(query string, args ...any) ([]model.AdminMessage, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.AdminMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}
