package model

import "time"

// JobStatus is the delivery state of a queued email.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRetry     JobStatus = "retry"
	JobSent      JobStatus = "sent"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transition may leave this status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobSent, JobFailed, JobCancelled:
		return true
	}
	return false
}

// EmailType classifies queued emails for metrics and ad attachment.
type EmailType string

const (
	EmailWelcome             EmailType = "welcome"
	EmailDailyRecommendation EmailType = "daily_recommendations"
	EmailTest                EmailType = "test"
	EmailAdminBulk           EmailType = "admin_bulk"
	EmailAdminIndividual     EmailType = "admin_individual"
)

// EmailJob is one entry in the delivery queue.
type EmailJob struct {
	ID          int        `db:"id" json:"id"`
	To          string     `db:"recipient" json:"to"`
	Subject     string     `db:"subject" json:"subject"`
	TextContent string     `db:"text_content" json:"text_content"`
	HTMLContent *string    `db:"html_content" json:"html_content,omitempty"`
	EmailType   EmailType  `db:"email_type" json:"email_type"`
	UserID      *int       `db:"user_id" json:"user_id,omitempty"`
	Status      JobStatus  `db:"status" json:"status"`
	RetryCount  int        `db:"retry_count" json:"retry_count"`
	LastError   *string    `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}
