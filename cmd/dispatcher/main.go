// The dispatcher can run as its own process when the API server and the
// queue drain should scale or restart independently. Only one dispatcher
// instance should run at a time; the rate limit is per provider account,
// not per process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/prolinq/messaging-backend/internal/config"
	"github.com/prolinq/messaging-backend/internal/db"
	"github.com/prolinq/messaging-backend/internal/events"
	"github.com/prolinq/messaging-backend/internal/repository"
	"github.com/prolinq/messaging-backend/internal/service"
)

func main() {
	cfg := config.MustLoad()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "dispatcher").Logger()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to event broker")
		}
		defer p.Close()
		publisher = p
	}

	queueRepo := &repository.QueueRepository{DB: conn}
	metricsRepo := &repository.MetricsRepository{DB: conn}
	sender := &service.SMTPSender{Cfg: cfg.SMTP, Log: log}

	queueService := service.NewQueueService(queueRepo, metricsRepo, sender, publisher, service.QueuePolicy{
		RateInterval: cfg.RateLimitInterval,
		DailyLimit:   cfg.DailyLimit,
		MaxRetries:   cfg.MaxRetries,
		SendTimeout:  cfg.SendTimeout,
		PollInterval: cfg.PollInterval,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queueService.Start(ctx)
	log.Info().Msg("dispatcher running, waiting for jobs")
	<-ctx.Done()
}
