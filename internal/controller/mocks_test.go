package controller_test

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prolinq/messaging-backend/internal/controller"
	"github.com/prolinq/messaging-backend/internal/events"
	"github.com/prolinq/messaging-backend/internal/model"
	"github.com/prolinq/messaging-backend/internal/service"
)

// In-memory repository stubs mirroring the SQL layer's behaviour, shared by
// the controller tests in this package.

type stubUserRepo struct {
	users []model.User
}

func (s *stubUserRepo) GetByID(id int) (*model.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *stubUserRepo) ListRecipients(role *model.Role, verified *bool) ([]model.User, error) {
	out := []model.User{}
	for _, u := range s.users {
		if u.IsAdmin || !u.IsActive {
			continue
		}
		if role != nil && u.Role != *role {
			continue
		}
		if verified != nil && u.IsVerified != *verified {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *stubUserRepo) ListByIDs(ids []int) ([]model.User, error) {
	out := []model.User{}
	for _, id := range ids {
		for _, u := range s.users {
			if u.ID == id && u.IsActive {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (s *stubUserRepo) ListActiveTalents() ([]model.User, error) {
	role := model.RoleTalent
	return s.ListRecipients(&role, nil)
}

type stubMessageRepo struct {
	mu     sync.Mutex
	nextID int
	msgs   map[int]*model.AdminMessage
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{msgs: map[int]*model.AdminMessage{}}
}

func (s *stubMessageRepo) Create(msg *model.AdminMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg.ID = s.nextID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	cp := *msg
	s.msgs[msg.ID] = &cp
	return nil
}

func (s *stubMessageRepo) GetByID(id int) (*model.AdminMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *stubMessageRepo) ListSent(adminID int) ([]model.AdminMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.AdminMessage{}
	for _, m := range s.msgs {
		if m.AdminID == adminID && !m.IsDeletedByAdmin {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *stubMessageRepo) ListReceived(userID int) ([]model.AdminMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.AdminMessage{}
	for _, m := range s.msgs {
		if m.ReceiverID == userID && !m.IsDeletedByUser {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *stubMessageRepo) UnreadCount(userID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.ReceiverID == userID && !m.IsRead && !m.IsDeletedByUser {
			n++
		}
	}
	return n, nil
}

func (s *stubMessageRepo) MarkRead(id int) (*model.AdminMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, nil
	}
	m.IsRead = true
	cp := *m
	return &cp, nil
}

func (s *stubMessageRepo) MarkAllRead(userID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.ReceiverID == userID && !m.IsRead && !m.IsDeletedByUser {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *stubMessageRepo) DeleteSent(id, adminID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok || m.AdminID != adminID {
		return false, nil
	}
	m.IsDeletedByAdmin = true
	return true, nil
}

func (s *stubMessageRepo) DeleteReceived(id, userID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok || m.ReceiverID != userID {
		return false, nil
	}
	m.IsDeletedByUser = true
	return true, nil
}

func (s *stubMessageRepo) ListCampaigns(adminID int) ([]model.CampaignSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := map[string]*model.CampaignSummary{}
	for _, m := range s.msgs {
		if m.AdminID != adminID || !m.IsBulk || m.BulkCampaignID == nil {
			continue
		}
		c, ok := byID[*m.BulkCampaignID]
		if !ok {
			c = &model.CampaignSummary{
				CampaignID:   *m.BulkCampaignID,
				CampaignName: *m.BulkCampaignName,
				CreatedAt:    m.CreatedAt,
			}
			byID[*m.BulkCampaignID] = c
		}
		c.TotalSent++
	}
	out := []model.CampaignSummary{}
	for _, c := range byID {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubMessageRepo) CampaignStats(campaignID string) (*model.CampaignStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &model.CampaignStats{CampaignID: campaignID}
	for _, m := range s.msgs {
		if m.BulkCampaignID == nil || *m.BulkCampaignID != campaignID {
			continue
		}
		stats.TotalSent++
		if m.IsRead {
			stats.ReadCount++
		}
		if m.IsDeletedByUser {
			stats.DeletedByUserCount++
		}
	}
	stats.UnreadCount = stats.TotalSent - stats.ReadCount
	return stats, nil
}

func (s *stubMessageRepo) DeleteCampaign(campaignID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, m := range s.msgs {
		if m.BulkCampaignID != nil && *m.BulkCampaignID == campaignID {
			delete(s.msgs, id)
			n++
		}
	}
	return n, nil
}

type stubQueueRepo struct {
	mu     sync.Mutex
	nextID int
	jobs   map[int]*model.EmailJob
}

func newStubQueueRepo() *stubQueueRepo {
	return &stubQueueRepo{jobs: map[int]*model.EmailJob{}}
}

func (s *stubQueueRepo) Enqueue(job *model.EmailJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	job.ID = s.nextID
	job.Status = model.JobPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *stubQueueRepo) GetByID(id int) (*model.EmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (s *stubQueueRepo) NextReady() (*model.EmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *model.EmailJob
	for _, j := range s.jobs {
		if j.Status != model.JobPending && j.Status != model.JobRetry {
			continue
		}
		if next == nil || j.ID < next.ID {
			next = j
		}
	}
	if next == nil {
		return nil, nil
	}
	cp := *next
	return &cp, nil
}

func (s *stubQueueRepo) cas(id int, mutate func(*model.EmailJob)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || (j.Status != model.JobPending && j.Status != model.JobRetry) {
		return false, nil
	}
	mutate(j)
	return true, nil
}

func (s *stubQueueRepo) MarkSent(id int, at time.Time) (bool, error) {
	return s.cas(id, func(j *model.EmailJob) {
		j.Status = model.JobSent
		j.SentAt = &at
	})
}

func (s *stubQueueRepo) MarkRetry(id int, errMsg string) (bool, error) {
	return s.cas(id, func(j *model.EmailJob) {
		j.Status = model.JobRetry
		j.RetryCount++
		j.LastError = &errMsg
	})
}

func (s *stubQueueRepo) MarkFailed(id int, errMsg string) (bool, error) {
	return s.cas(id, func(j *model.EmailJob) {
		j.Status = model.JobFailed
		j.LastError = &errMsg
	})
}

func (s *stubQueueRepo) Cancel(id int) (bool, error) {
	return s.cas(id, func(j *model.EmailJob) { j.Status = model.JobCancelled })
}

func (s *stubQueueRepo) CancelAllRemaining() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.Status == model.JobPending || j.Status == model.JobRetry {
			j.Status = model.JobCancelled
			n++
		}
	}
	return n, nil
}

func (s *stubQueueRepo) CountByStatus(status model.JobStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *stubQueueRepo) CountSentSince(t time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.Status == model.JobSent && j.SentAt != nil && !j.SentAt.Before(t) {
			n++
		}
	}
	return n, nil
}

func (s *stubQueueRepo) CountFailedSince(t time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.Status == model.JobFailed && !j.CreatedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

func (s *stubQueueRepo) LastSentAt() (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *time.Time
	for _, j := range s.jobs {
		if j.Status == model.JobSent && j.SentAt != nil {
			if last == nil || j.SentAt.After(*last) {
				t := *j.SentAt
				last = &t
			}
		}
	}
	return last, nil
}

func (s *stubQueueRepo) ListByStatus(statuses []model.JobStatus, limit int) ([]model.EmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.EmailJob{}
	for _, j := range s.jobs {
		for _, st := range statuses {
			if j.Status == st {
				out = append(out, *j)
				break
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubQueueRepo) ListCreatedSince(t time.Time, statuses []model.JobStatus) ([]model.EmailJob, error) {
	jobs, err := s.ListByStatus(statuses, 1<<30)
	if err != nil {
		return nil, err
	}
	out := []model.EmailJob{}
	for _, j := range jobs {
		if !j.CreatedAt.Before(t) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *stubQueueRepo) ListRecentTerminal(limit int) ([]model.EmailJob, error) {
	return s.ListByStatus([]model.JobStatus{model.JobSent, model.JobFailed, model.JobCancelled}, limit)
}

type stubMetricsRepo struct {
	mu       sync.Mutex
	sent     int
	failed   int
	adsShown int
}

func (s *stubMetricsRepo) RecordSent(day time.Time, emailType model.EmailType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	return nil
}

func (s *stubMetricsRepo) RecordFailed(day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	return nil
}

func (s *stubMetricsRepo) AddAdsShown(day time.Time, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adsShown += n
	return nil
}

func (s *stubMetricsRepo) Today(day time.Time) (*model.DailyMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &model.DailyMetrics{
		Date:          day,
		TotalSent:     s.sent,
		TotalFailed:   s.failed,
		TotalAdsShown: s.adsShown,
	}, nil
}

func (s *stubMetricsRepo) History(days int) ([]model.DailyMetrics, error) {
	m, _ := s.Today(model.DayStart(time.Now()))
	return []model.DailyMetrics{*m}, nil
}

type stubAdRepo struct {
	mu          sync.Mutex
	ads         []model.Ad
	impressions map[int]int
}

func (s *stubAdRepo) Create(ad *model.Ad) error { s.ads = append(s.ads, *ad); return nil }
func (s *stubAdRepo) GetByID(id int) (*model.Ad, error) {
	for _, a := range s.ads {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}
func (s *stubAdRepo) List(activeOnly bool) ([]model.Ad, error) {
	out := []model.Ad{}
	for _, a := range s.ads {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
func (s *stubAdRepo) ListActive() ([]model.Ad, error)        { return s.List(true) }
func (s *stubAdRepo) Update(ad *model.Ad) (bool, error)      { return true, nil }
func (s *stubAdRepo) ToggleActive(id int) (*model.Ad, error) { return nil, nil }
func (s *stubAdRepo) Delete(id int) (bool, error)            { return true, nil }
func (s *stubAdRepo) ResetImpressions(id int) (bool, error)  { return true, nil }
func (s *stubAdRepo) AddImpressions(id, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.impressions == nil {
		s.impressions = map[int]int{}
	}
	s.impressions[id] += n
	return nil
}
func (s *stubAdRepo) RecordImpression(adID, recipientOrdinal int) error { return nil }

type stubSender struct {
	enabled bool
	err     error
}

func (s *stubSender) Enabled() bool { return s.enabled }

func (s *stubSender) Send(ctx context.Context, job *model.EmailJob) error { return s.err }

// testServer bundles the wired router with the stubs behind it so tests can
// arrange state and assert side effects.
type testServer struct {
	router    chi.Router
	users     *stubUserRepo
	messages  *stubMessageRepo
	queueRepo *stubQueueRepo
	adRepo    *stubAdRepo
	metrics   *stubMetricsRepo
	sender    *stubSender
	queue     *service.QueueService
}

func newTestServer() *testServer {
	ts := &testServer{
		users: &stubUserRepo{users: []model.User{
			{ID: 1, Email: "ops@prolinq.io", Username: "ops", FullName: "Site Ops", Role: model.RoleAdmin, IsAdmin: true, IsActive: true},
			{ID: 2, Email: "alice@example.com", Username: "alice", FullName: "Alice Achieng", Role: model.RoleTalent, IsVerified: true, IsActive: true},
			{ID: 3, Email: "bob@example.com", Username: "bob", FullName: "Bob Otieno", Role: model.RoleTalent, IsActive: true},
			{ID: 4, Email: "dan@example.com", Username: "dan", FullName: "Dan Employer", Role: model.RoleEmployer, IsVerified: true, IsActive: true},
		}},
		messages:  newStubMessageRepo(),
		queueRepo: newStubQueueRepo(),
		adRepo: &stubAdRepo{ads: []model.Ad{
			{ID: 1, Title: "Upgrade to Pro", AdText: "Unlock more.", IsActive: true},
		}},
		metrics: &stubMetricsRepo{},
		sender:  &stubSender{enabled: true},
	}

	log := zerolog.Nop()
	ts.queue = service.NewQueueService(ts.queueRepo, ts.metrics, ts.sender, events.NopPublisher{}, service.QueuePolicy{
		RateInterval: 540 * time.Second,
		DailyLimit:   140,
		MaxRetries:   1,
		SendTimeout:  time.Second,
		PollInterval: time.Second,
	}, log)

	messageService := &service.MessageService{
		Messages: ts.messages,
		Users:    ts.users,
		Resolver: &service.TargetResolver{UserRepo: ts.users},
		Queue:    ts.queue,
		Events:   events.NopPublisher{},
		Log:      log,
	}

	recService := &service.RecommendationService{
		Users:   ts.users,
		Rotator: service.NewAdRotator(ts.adRepo, ts.metrics, log),
		Queue:   ts.queue,
		Log:     log,
	}

	messageController := &controller.MessageController{MessageService: messageService}
	queueController := &controller.QueueController{QueueService: ts.queue, MetricsRepo: ts.metrics}
	recController := &controller.RecommendationController{RecService: recService, Users: ts.users}

	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Post("/messages/send-individual", messageController.SendIndividual)
		r.Post("/messages/send-bulk", messageController.SendBulk)
		r.Get("/messages/sent", messageController.ListSent)
		r.Get("/messages/received", messageController.ListReceived)
		r.Get("/messages/unread-count", messageController.UnreadCount)
		r.Put("/messages/{id}/read", messageController.MarkRead)
		r.Delete("/messages/{id}/sent", messageController.DeleteSent)
		r.Delete("/messages/{id}/received", messageController.DeleteReceived)
		r.Get("/campaigns", messageController.ListCampaigns)
		r.Get("/campaigns/{id}/stats", messageController.CampaignStats)
		r.Delete("/campaigns/{id}", messageController.DeleteCampaign)
	})
	r.Route("/email", func(r chi.Router) {
		r.Get("/queue/status", queueController.Status)
		r.Get("/queue/pending", queueController.ListPending)
		r.Get("/queue/remaining", queueController.ListRemaining)
		r.Get("/queue/recent", queueController.ListRecent)
		r.Delete("/queue/clear-all", queueController.ClearAll)
		r.Delete("/queue/{id}", queueController.Cancel)
		r.Post("/test/send", queueController.TestSend)
		r.Get("/metrics/today", queueController.MetricsToday)
		r.Get("/metrics/history", queueController.MetricsHistory)
		r.Post("/recommendations/run", recController.RunDaily)
		r.Post("/welcome/{user_id}", recController.SendWelcome)
	})
	ts.router = r
	return ts
}

func (ts *testServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ts.router.ServeHTTP(w, r)
}
