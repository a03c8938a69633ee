package service

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prolinq/messaging-backend/internal/model"
	"github.com/prolinq/messaging-backend/internal/repository"
)

// RecommendationService builds the transactional emails that ride the same
// delivery queue as admin campaigns: the daily recommendation batch (with a
// fairly rotated ad attached) and on-demand welcome emails.
type RecommendationService struct {
	Users   repository.UserRepositoryInterface
	Rotator *AdRotator
	Queue   *QueueService
	Log     zerolog.Logger
}

// SendDailyRecommendations enqueues one recommendation email per active
// talent, each carrying at most one ad assigned by the rotator. Returns the
// number of emails queued.
func (s *RecommendationService) SendDailyRecommendations() (int, error) {
	talents, err := s.Users.ListActiveTalents()
	if err != nil {
		return 0, err
	}
	if len(talents) == 0 {
		s.Log.Info().Msg("no active talents for daily recommendations")
		return 0, nil
	}

	ads, err := s.Rotator.Assign(len(talents))
	if err != nil {
		return 0, err
	}

	queued := 0
	for i, talent := range talents {
		if talent.Email == "" {
			continue
		}
		userID := talent.ID
		job := &model.EmailJob{
			To:          talent.Email,
			Subject:     "Your daily job recommendations",
			TextContent: buildRecommendationBody(talent, ads[i]),
			EmailType:   model.EmailDailyRecommendation,
			UserID:      &userID,
		}
		if err := s.Queue.Enqueue(job); err != nil {
			s.Log.Warn().Err(err).Int("user_id", talent.ID).Msg("failed to queue recommendation email")
			continue
		}
		queued++
	}

	s.Log.Info().Int("queued", queued).Int("talents", len(talents)).Msg("daily recommendations queued")
	return queued, nil
}

// SendWelcome enqueues a welcome email for a new user.
func (s *RecommendationService) SendWelcome(user model.User) error {
	if user.Email == "" {
		return nil
	}
	userID := user.ID
	greeting := user.FullName
	if greeting == "" {
		greeting = user.Username
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to ProLinq! Your account %s is ready.\n\nComplete your profile to start receiving job recommendations.\n",
		greeting, user.Username)
	return s.Queue.Enqueue(&model.EmailJob{
		To:          user.Email,
		Subject:     "Welcome to ProLinq",
		TextContent: body,
		EmailType:   model.EmailWelcome,
		UserID:      &userID,
	})
}

func buildRecommendationBody(user model.User, ad *model.Ad) string {
	var b strings.Builder
	name := user.FullName
	if name == "" {
		name = user.Username
	}
	fmt.Fprintf(&b, "Hi %s,\n\nHere are today's job picks for you on ProLinq.\n", name)
	b.WriteString("Log in to see the full list of matches for your profile.\n")

	if ad != nil {
		fmt.Fprintf(&b, "\n---\nSponsored: %s\n%s\n", ad.Title, ad.AdText)
		if ad.AdLink != nil && *ad.AdLink != "" {
			fmt.Fprintf(&b, "More info: %s\n", *ad.AdLink)
		}
	}
	return b.String()
}
