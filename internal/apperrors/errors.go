package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for composition-time validation and sender configuration.
var (
	ErrEmptyContent      = errors.New("message content cannot be empty")
	ErrEmptyCampaignName = errors.New("campaign name cannot be empty")
	ErrSenderDisabled    = errors.New("smtp sender is disabled")
)

// ErrInvalidTarget rejects a targeting spec that matches no known variant.
type ErrInvalidTarget struct {
	Reason string
}

func (e *ErrInvalidTarget) Error() string {
	return fmt.Sprintf("invalid target: %s", e.Reason)
}

// NewInvalidTarget is a helper constructor.
func NewInvalidTarget(reason string) error {
	return &ErrInvalidTarget{Reason: reason}
}

// ErrNotFound reports a missing entity by kind and id.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NewNotFound(entity, id string) error {
	return &ErrNotFound{Entity: entity, ID: id}
}

// ErrCancelConflict means the job was already dispatched (or otherwise
// terminal) when cancellation was requested. The recipient may already have
// received the email, so this is never silently ignored.
type ErrCancelConflict struct {
	JobID  int
	Status string
}

func (e *ErrCancelConflict) Error() string {
	return fmt.Sprintf("cannot cancel job %d in status %q", e.JobID, e.Status)
}

func NewCancelConflict(jobID int, status string) error {
	return &ErrCancelConflict{JobID: jobID, Status: status}
}

// ErrCampaignDeleteConflict wraps a failure during the cascading campaign
// delete. The operation is all-or-nothing, so any failure surfaces whole.
type ErrCampaignDeleteConflict struct {
	CampaignID string
	Err        error
}

func (e *ErrCampaignDeleteConflict) Error() string {
	return fmt.Sprintf("campaign %s delete failed: %v", e.CampaignID, e.Err)
}

func (e *ErrCampaignDeleteConflict) Unwrap() error { return e.Err }
