package model

import "time"

// AdminMessage is a message sent from an admin to a user. Content is stored
// post-personalization and never mutated afterwards; only the read flag and
// the two soft-delete flags change. The sender-side and receiver-side delete
// flags are independent so that clearing the "sent" view leaves the
// recipient's inbox copy intact.
type AdminMessage struct {
	ID               int       `db:"id" json:"id"`
	AdminID          int       `db:"admin_id" json:"admin_id"`
	ReceiverID       int       `db:"receiver_id" json:"receiver_id"`
	Content          string    `db:"content" json:"content"`
	IsBulk           bool      `db:"is_bulk" json:"is_bulk"`
	BulkCampaignID   *string   `db:"bulk_campaign_id" json:"bulk_campaign_id,omitempty"`
	BulkCampaignName *string   `db:"bulk_campaign_name" json:"bulk_campaign_name,omitempty"`
	IsRead           bool      `db:"is_read" json:"is_read"`
	IsDeletedByUser  bool      `db:"is_deleted_by_user" json:"is_deleted_by_user"`
	IsDeletedByAdmin bool      `db:"is_deleted_by_admin" json:"is_deleted_by_admin"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
