package repository

import (
	"database/sql"
	"time"

	"github.com/prolinq/messaging-backend/internal/model"
)

// AdRepositoryInterface defines ad inventory persistence plus the atomic
// impression counters the rotator relies on.
type AdRepositoryInterface interface {
	Create(ad *model.Ad) error
	GetByID(id int) (*model.Ad, error)
	List(activeOnly bool) ([]model.Ad, error)
	ListActive() ([]model.Ad, error)
	Update(ad *model.Ad) (bool, error)
	ToggleActive(id int) (*model.Ad, error)
	Delete(id int) (bool, error)
	ResetImpressions(id int) (bool, error)
	AddImpressions(id, n int) error
	RecordImpression(adID, recipientOrdinal int) error
}

// AdRepository is the concrete Postgres implementation.
type AdRepository struct {
	DB *sql.DB
}

const adColumns = `id, created_by_id, title, ad_text, ad_link, is_active, impressions, created_at, updated_at`

func scanAd(row interface{ Scan(...any) error }) (*model.Ad, error) {
	var a model.Ad
	err := row.Scan(&a.ID, &a.CreatedByID, &a.Title, &a.AdText, &a.AdLink,
		&a.IsActive, &a.Impressions, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new ad and fills in the generated ID.
func (r *AdRepository) Create(ad *model.Ad) error {
	if ad.CreatedAt.IsZero() {
		ad.CreatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO email_ads (created_by_id, title, ad_text, ad_link, is_active, impressions, created_at)
        VALUES ($1, $2, $3, $4, $5, 0, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		ad.CreatedByID, ad.Title, ad.AdText, ad.AdLink, ad.IsActive, ad.CreatedAt,
	).Scan(&ad.ID)
}

// GetByID fetches an ad by ID; returns nil when not found.
func (r *AdRepository) GetByID(id int) (*model.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM email_ads WHERE id = $1`
	a, err := scanAd(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// List fetches all ads, optionally only active ones.
func (r *AdRepository) List(activeOnly bool) ([]model.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM email_ads`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`
	return r.queryAds(query)
}

// ListActive fetches the active ad set the rotator draws from.
func (r *AdRepository) ListActive() ([]model.Ad, error) {
	return r.List(true)
}

// Update rewrites an ad's editable fields.
func (r *AdRepository) Update(ad *model.Ad) (bool, error) {
	res, err := r.DB.Exec(`
        UPDATE email_ads
        SET title = $1, ad_text = $2, ad_link = $3, is_active = $4, updated_at = NOW()
        WHERE id = $5
    `, ad.Title, ad.AdText, ad.AdLink, ad.IsActive, ad.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ToggleActive flips the active flag and returns the updated ad, or nil when
// the ad does not exist.
func (r *AdRepository) ToggleActive(id int) (*model.Ad, error) {
	query := `
        UPDATE email_ads
        SET is_active = NOT is_active, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + adColumns
	a, err := scanAd(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// Delete removes an ad; impression audit rows cascade.
func (r *AdRepository) Delete(id int) (bool, error) {
	res, err := r.DB.Exec(`DELETE FROM email_ads WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResetImpressions zeroes the counter, the only permitted decrement.
func (r *AdRepository) ResetImpressions(id int) (bool, error) {
	res, err := r.DB.Exec(`
        UPDATE email_ads SET impressions = 0, updated_at = NOW() WHERE id = $1
    `, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AddImpressions adds n to the counter in a single atomic update, safe under
// concurrent batches.
func (r *AdRepository) AddImpressions(id, n int) error {
	_, err := r.DB.Exec(`
        UPDATE email_ads SET impressions = impressions + $2 WHERE id = $1
    `, id, n)
	return err
}

// RecordImpression writes one audit row for a single assignment.
func (r *AdRepository) RecordImpression(adID, recipientOrdinal int) error {
	_, err := r.DB.Exec(`
        INSERT INTO ad_impressions (ad_id, recipient_ordinal, created_at)
        VALUES ($1, $2, NOW())
    `, adID, recipientOrdinal)
	return err
}

func (r *AdRepository) queryAds(query string, args ...any) ([]model.Ad, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ads := []model.Ad{}
	for rows.Next() {
		a, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, *a)
	}
	return ads, rows.Err()
}
