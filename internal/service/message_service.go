package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prolinq/messaging-backend/internal/apperrors"
	"github.com/prolinq/messaging-backend/internal/events"
	"github.com/prolinq/messaging-backend/internal/model"
	"github.com/prolinq/messaging-backend/internal/repository"
)

// MessageService implements the admin messaging operations: individual and
// bulk sends, the sent/received views, and the campaign aggregations derived
// from them.
type MessageService struct {
	Messages repository.MessageRepositoryInterface
	Users    repository.UserRepositoryInterface
	Resolver *TargetResolver
	Queue    *QueueService
	Events   events.Publisher
	Log      zerolog.Logger

	Now func() time.Time
}

// BulkSendResult is returned to the caller of a bulk send. The resolved
// recipient count is always reported, even when zero matched.
type BulkSendResult struct {
	CampaignID      string `json:"campaign_id"`
	CampaignName    string `json:"campaign_name"`
	TotalRecipients int    `json:"total_recipients"`
	SentCount       int    `json:"sent_count"`
	FailedCount     int    `json:"failed_count"`
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// SendIndividual personalizes content for one receiver, persists the message
// and enqueues its email delivery.
func (s *MessageService) SendIndividual(adminID, receiverID int, content string) (*model.AdminMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.ErrEmptyContent
	}

	receiver, err := s.Users.GetByID(receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, apperrors.NewNotFound("user", strconv.Itoa(receiverID))
	}

	msg := &model.AdminMessage{
		AdminID:    adminID,
		ReceiverID: receiverID,
		Content:    Personalize(content, *receiver),
		IsBulk:     false,
		CreatedAt:  s.now(),
	}
	if err := s.Messages.Create(msg); err != nil {
		return nil, err
	}

	s.enqueueDelivery(msg, *receiver, model.EmailAdminIndividual, "Message from ProLinq Admin")
	s.Log.Info().Int("message_id", msg.ID).Int("receiver_id", receiverID).Msg("individual message sent")
	return msg, nil
}

// SendBulk resolves the target, mints one campaign id and persists one
// personalized message per recipient, all sharing the campaign id and name.
// Per-recipient failures never roll back siblings; they are counted and
// logged. Zero resolved recipients is a valid, if useless, campaign.
func (s *MessageService) SendBulk(adminID int, campaignName, content string, target Target) (*BulkSendResult, error) {
	if strings.TrimSpace(campaignName) == "" {
		return nil, apperrors.ErrEmptyCampaignName
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.ErrEmptyContent
	}

	recipients, err := s.Resolver.Resolve(adminID, target)
	if err != nil {
		return nil, err
	}

	campaignID := uuid.NewString()
	result := &BulkSendResult{
		CampaignID:      campaignID,
		CampaignName:    campaignName,
		TotalRecipients: len(recipients),
	}

	createdAt := s.now()
	for _, recipient := range recipients {
		msg := &model.AdminMessage{
			AdminID:          adminID,
			ReceiverID:       recipient.ID,
			Content:          Personalize(content, recipient),
			IsBulk:           true,
			BulkCampaignID:   &campaignID,
			BulkCampaignName: &campaignName,
			CreatedAt:        createdAt,
		}
		if err := s.Messages.Create(msg); err != nil {
			result.FailedCount++
			s.Log.Warn().Err(err).Int("receiver_id", recipient.ID).Str("campaign_id", campaignID).
				Msg("failed to create bulk message")
			continue
		}
		result.SentCount++
		s.enqueueDelivery(msg, recipient, model.EmailAdminBulk, campaignName)
	}

	s.Log.Info().
		Str("campaign_id", campaignID).
		Str("campaign_name", campaignName).
		Int("recipients", result.TotalRecipients).
		Int("sent", result.SentCount).
		Int("failed", result.FailedCount).
		Msg("bulk campaign sent")
	return result, nil
}

// enqueueDelivery queues the email copy of an admin message. Queue failures
// do not fail the send: the in-app message exists, and the delivery error is
// visible through queue reads.
func (s *MessageService) enqueueDelivery(msg *model.AdminMessage, recipient model.User, emailType model.EmailType, subject string) {
	if recipient.Email == "" {
		return
	}
	userID := recipient.ID
	job := &model.EmailJob{
		To:          recipient.Email,
		Subject:     subject,
		TextContent: msg.Content,
		EmailType:   emailType,
		UserID:      &userID,
		CreatedAt:   msg.CreatedAt,
	}
	if err := s.Queue.Enqueue(job); err != nil {
		s.Log.Warn().Err(err).Int("message_id", msg.ID).Msg("failed to enqueue delivery")
	}
}

// ListSent returns the admin's sent view, bulk and individual.
func (s *MessageService) ListSent(adminID int) ([]model.AdminMessage, error) {
	return s.Messages.ListSent(adminID)
}

// ListReceived returns a user's inbox.
func (s *MessageService) ListReceived(userID int) ([]model.AdminMessage, error) {
	return s.Messages.ListReceived(userID)
}

// UnreadCount counts a user's unread inbox messages.
func (s *MessageService) UnreadCount(userID int) (int, error) {
	return s.Messages.UnreadCount(userID)
}

// MarkRead flips the read flag and publishes a read receipt.
func (s *MessageService) MarkRead(messageID int) (*model.AdminMessage, error) {
	msg, err := s.Messages.MarkRead(messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, apperrors.NewNotFound("message", strconv.Itoa(messageID))
	}
	if err := s.Events.MessageRead(msg); err != nil {
		s.Log.Warn().Err(err).Int("message_id", messageID).Msg("failed to publish read receipt")
	}
	return msg, nil
}

// MarkAllRead marks a user's whole inbox as read and returns the count.
func (s *MessageService) MarkAllRead(userID int) (int, error) {
	return s.Messages.MarkAllRead(userID)
}

// DeleteSent removes a message from the sender's view only.
func (s *MessageService) DeleteSent(messageID, adminID int) error {
	ok, err := s.Messages.DeleteSent(messageID, adminID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewNotFound("message", strconv.Itoa(messageID))
	}
	return nil
}

// DeleteReceived removes a message from the receiver's inbox only.
func (s *MessageService) DeleteReceived(messageID, userID int) error {
	ok, err := s.Messages.DeleteReceived(messageID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewNotFound("message", strconv.Itoa(messageID))
	}
	return nil
}

// ListCampaigns returns the grouped campaign listing for an admin.
func (s *MessageService) ListCampaigns(adminID int) ([]model.CampaignSummary, error) {
	return s.Messages.ListCampaigns(adminID)
}

// CampaignStats computes read/unread/deleted counts and the read percentage.
// A campaign with zero members reports zeroes, never a division error.
func (s *MessageService) CampaignStats(campaignID string) (*model.CampaignStats, error) {
	stats, err := s.Messages.CampaignStats(campaignID)
	if err != nil {
		return nil, err
	}
	stats.ReadPercentage = model.ReadPercentage(stats.ReadCount, stats.TotalSent)
	return stats, nil
}

// DeleteCampaign removes every message of the campaign in one atomic
// operation and reports the exact count removed.
func (s *MessageService) DeleteCampaign(campaignID string) (int, error) {
	n, err := s.Messages.DeleteCampaign(campaignID)
	if err != nil {
		return 0, &apperrors.ErrCampaignDeleteConflict{CampaignID: campaignID, Err: err}
	}
	s.Log.Info().Str("campaign_id", campaignID).Int("removed", n).Msg("campaign deleted")
	return n, nil
}
