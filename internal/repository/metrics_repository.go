package repository

import (
	"database/sql"
	"time"

	"github.com/prolinq/messaging-backend/internal/model"
)

// MetricsRepositoryInterface accumulates per-day email outcome counters.
type MetricsRepositoryInterface interface {
	RecordSent(day time.Time, emailType model.EmailType) error
	RecordFailed(day time.Time) error
	AddAdsShown(day time.Time, n int) error
	Today(day time.Time) (*model.DailyMetrics, error)
	History(days int) ([]model.DailyMetrics, error)
}

// MetricsRepository is the concrete Postgres implementation. Each counter
// bump is an upsert so the first event of a day creates its row.
type MetricsRepository struct {
	DB *sql.DB
}

// RecordSent bumps total_sent and the per-type counter for the day.
func (r *MetricsRepository) RecordSent(day time.Time, emailType model.EmailType) error {
	welcome := 0
	recs := 0
	switch emailType {
	case model.EmailWelcome:
		welcome = 1
	case model.EmailDailyRecommendation:
		recs = 1
	}
	_, err := r.DB.Exec(`
        INSERT INTO email_metrics (date, total_sent, total_welcome, total_job_recommendations)
        VALUES ($1, 1, $2, $3)
        ON CONFLICT (date) DO UPDATE SET
            total_sent = email_metrics.total_sent + 1,
            total_welcome = email_metrics.total_welcome + $2,
            total_job_recommendations = email_metrics.total_job_recommendations + $3
    `, day, welcome, recs)
	return err
}

// RecordFailed bumps the day's failure counter.
func (r *MetricsRepository) RecordFailed(day time.Time) error {
	_, err := r.DB.Exec(`
        INSERT INTO email_metrics (date, total_failed)
        VALUES ($1, 1)
        ON CONFLICT (date) DO UPDATE SET
            total_failed = email_metrics.total_failed + 1
    `, day)
	return err
}

// AddAdsShown bumps the day's ad counter by a whole batch at once.
func (r *MetricsRepository) AddAdsShown(day time.Time, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := r.DB.Exec(`
        INSERT INTO email_metrics (date, total_ads_shown)
        VALUES ($1, $2)
        ON CONFLICT (date) DO UPDATE SET
            total_ads_shown = email_metrics.total_ads_shown + $2
    `, day, n)
	return err
}

// Today returns the metrics row for the given day, zeroed when absent.
func (r *MetricsRepository) Today(day time.Time) (*model.DailyMetrics, error) {
	m := model.DailyMetrics{Date: day}
	err := r.DB.QueryRow(`
        SELECT id, total_sent, total_welcome, total_job_recommendations, total_ads_shown, total_failed
        FROM email_metrics WHERE date = $1
    `, day).Scan(&m.ID, &m.TotalSent, &m.TotalWelcome, &m.TotalJobRecommendations, &m.TotalAdsShown, &m.TotalFailed)
	if err == sql.ErrNoRows {
		return &m, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// History returns up to the last N days of metrics, newest first.
func (r *MetricsRepository) History(days int) ([]model.DailyMetrics, error) {
	rows, err := r.DB.Query(`
        SELECT id, date, total_sent, total_welcome, total_job_recommendations, total_ads_shown, total_failed
        FROM email_metrics
        ORDER BY date DESC
        LIMIT $1
    `, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []model.DailyMetrics{}
	for rows.Next() {
		var m model.DailyMetrics
		if err := rows.Scan(&m.ID, &m.Date, &m.TotalSent, &m.TotalWelcome,
			&m.TotalJobRecommendations, &m.TotalAdsShown, &m.TotalFailed); err != nil {
			return nil, err
		}
		history = append(history, m)
	}
	return history, rows.Err()
}
