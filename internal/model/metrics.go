package model

import "time"

// DailyMetrics aggregates email outcomes per UTC calendar day.
type DailyMetrics struct {
	ID                      int       `db:"id" json:"id"`
	Date                    time.Time `db:"date" json:"date"`
	TotalSent               int       `db:"total_sent" json:"total_sent"`
	TotalWelcome            int       `db:"total_welcome" json:"total_welcome"`
	TotalJobRecommendations int       `db:"total_job_recommendations" json:"total_job_recommendations"`
	TotalAdsShown           int       `db:"total_ads_shown" json:"total_ads_shown"`
	TotalFailed             int       `db:"total_failed" json:"total_failed"`
}

// DayStart truncates t to the start of its UTC calendar day. The daily send
// quota and the metrics table are both keyed by this value.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
