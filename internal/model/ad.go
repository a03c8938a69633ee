package model

import "time"

// Ad is a sponsored block attached to outgoing recommendation emails.
// Impressions accumulate monotonically; only an explicit reset lowers them.
type Ad struct {
	ID          int        `db:"id" json:"id"`
	CreatedByID int        `db:"created_by_id" json:"created_by_id"`
	Title       string     `db:"title" json:"title"`
	AdText      string     `db:"ad_text" json:"ad_text"`
	AdLink      *string    `db:"ad_link" json:"ad_link,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	Impressions int        `db:"impressions" json:"impressions"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// AdImpression is an audit record of one ad being assigned to one recipient.
// It exists to verify distribution fairness, not for delivery correctness.
type AdImpression struct {
	ID               int       `db:"id" json:"id"`
	AdID             int       `db:"ad_id" json:"ad_id"`
	RecipientOrdinal int       `db:"recipient_ordinal" json:"recipient_ordinal"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
