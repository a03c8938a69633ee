package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/prolinq/messaging-backend/internal/config"
	"github.com/prolinq/messaging-backend/internal/controller"
	"github.com/prolinq/messaging-backend/internal/db"
	"github.com/prolinq/messaging-backend/internal/events"
	"github.com/prolinq/messaging-backend/internal/repository"
	"github.com/prolinq/messaging-backend/internal/service"
)

func main() {
	cfg := config.MustLoad()

	log := newLogger(cfg.Env)

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()
	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("connected to database")

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to event broker")
		}
		defer p.Close()
		publisher = p
		log.Info().Msg("connected to event broker")
	}

	userRepo := &repository.UserRepository{DB: conn}
	messageRepo := &repository.MessageRepository{DB: conn}
	queueRepo := &repository.QueueRepository{DB: conn}
	adRepo := &repository.AdRepository{DB: conn}
	metricsRepo := &repository.MetricsRepository{DB: conn}

	sender := &service.SMTPSender{Cfg: cfg.SMTP, Log: log}
	queueService := service.NewQueueService(queueRepo, metricsRepo, sender, publisher, service.QueuePolicy{
		RateInterval: cfg.RateLimitInterval,
		DailyLimit:   cfg.DailyLimit,
		MaxRetries:   cfg.MaxRetries,
		SendTimeout:  cfg.SendTimeout,
		PollInterval: cfg.PollInterval,
	}, log)
	rotator := service.NewAdRotator(adRepo, metricsRepo, log)
	resolver := &service.TargetResolver{UserRepo: userRepo}
	messageService := &service.MessageService{
		Messages: messageRepo,
		Users:    userRepo,
		Resolver: resolver,
		Queue:    queueService,
		Events:   publisher,
		Log:      log,
	}
	recService := &service.RecommendationService{
		Users:   userRepo,
		Rotator: rotator,
		Queue:   queueService,
		Log:     log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queueService.Start(ctx)

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.DailyRecsCron, func() {
		if _, err := recService.SendDailyRecommendations(); err != nil {
			log.Error().Err(err).Msg("daily recommendations run failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.DailyRecsCron).Msg("invalid cron spec")
	}
	sched.Start()
	defer sched.Stop()

	messageController := &controller.MessageController{MessageService: messageService}
	queueController := &controller.QueueController{QueueService: queueService, MetricsRepo: metricsRepo}
	adController := &controller.AdController{AdRepo: adRepo, Rotator: rotator}
	recController := &controller.RecommendationController{RecService: recService, Users: userRepo}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/messages/send-individual", messageController.SendIndividual)
		r.Post("/messages/send-bulk", messageController.SendBulk)
		r.Get("/messages/sent", messageController.ListSent)
		r.Get("/messages/received", messageController.ListReceived)
		r.Get("/messages/unread-count", messageController.UnreadCount)
		r.Put("/messages/{id}/read", messageController.MarkRead)
		r.Put("/messages/read-all", messageController.MarkAllRead)
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
		r.Post("/test/connection", queueController.TestConnection)
		r.Post("/test/send", queueController.TestSend)
		r.Get("/metrics/today", queueController.MetricsToday)
		r.Get("/metrics/history", queueController.MetricsHistory)
		r.Post("/ads", adController.Create)
		r.Get("/ads", adController.List)
		r.Put("/ads/{id}", adController.Update)
		r.Put("/ads/{id}/toggle", adController.Toggle)
		r.Delete("/ads/{id}", adController.Delete)
		r.Post("/ads/{id}/reset-impressions", adController.ResetImpressions)
		r.Get("/preview/ad-distribution", adController.PreviewDistribution)
		r.Post("/recommendations/run", recController.RunDaily)
		r.Post("/welcome/{user_id}", recController.SendWelcome)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func newLogger(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
