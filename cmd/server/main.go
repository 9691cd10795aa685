package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"campusvote/internal/audit"
	"campusvote/internal/auth"
	"campusvote/internal/ballot"
	"campusvote/internal/candidate"
	"campusvote/internal/election"
	"campusvote/internal/notify"
	"campusvote/internal/otp"
	"campusvote/internal/platform/config"
	"campusvote/internal/platform/httpserver"
	"campusvote/internal/platform/logger"
	"campusvote/internal/platform/metrics"
	"campusvote/internal/platform/postgres"
	platformredis "campusvote/internal/platform/redis"
	"campusvote/internal/results"
	"campusvote/internal/token"
	httptransport "campusvote/internal/transport/http"
	"campusvote/internal/user"
)

// main wires dependencies and runs the server lifecycle. Stores fall back
// to in-memory implementations when Postgres or Redis are not configured,
// so a bare `go run ./cmd/server` brings up a working instance.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Storage. Postgres when configured, memory otherwise.
	var (
		db             *sql.DB
		userStore      user.Store
		electionStore  election.Store
		candidateStore candidate.Store
		ballotStore    ballot.Store
		auditStore     audit.Store
		registration   auth.RegistrationStore
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		users := user.NewPostgresStore(db)
		profiles := candidate.NewPostgresStore(db)
		userStore = users
		electionStore = election.NewPostgresStore(db)
		candidateStore = profiles
		ballotStore = ballot.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		registration = auth.NewPostgresRegistration(db, users, profiles)
		log.Info("postgres storage ready")
	} else {
		users := user.NewMemoryStore()
		profiles := candidate.NewMemoryStore()
		userStore = users
		electionStore = election.NewMemoryStore()
		candidateStore = profiles
		ballotStore = ballot.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
		registration = auth.NewMemoryRegistration(users, profiles)
		log.Warn("POSTGRES_URL not set, using in-memory storage")
	}

	// OTP state. Redis when configured, memory otherwise.
	var otpStore otp.Store
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		otpStore = otp.NewRedisStore(redisClient)
		log.Info("redis otp storage ready")
	} else {
		otpStore = otp.NewMemoryStore()
		log.Warn("REDIS_URL not set, using in-memory otp storage")
	}

	// Audit trail, with optional Kafka fan-out.
	recorder := audit.NewRecorder(cfg.AuditBufferSize, log)
	publisher, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
	if err != nil {
		return err
	}
	var auditPublisher audit.Publisher
	if publisher != nil {
		defer publisher.Close()
		auditPublisher = publisher
	}
	auditWorker := audit.NewWorker(auditStore, auditPublisher, recorder.Inbox(), log)

	// Services.
	notifier := notify.NewConsoleNotifier(log)
	tokens := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)
	otps := otp.NewService(otpStore, otp.Config{
		Length:   cfg.OTPLength,
		TTL:      cfg.OTPTTL,
		Cooldown: cfg.OTPCooldown,
		MaxTries: cfg.OTPMaxTries,
	}, log, m)
	electionSvc := election.NewService(electionStore, log)
	userSvc := user.NewService(userStore, log)
	candidateSvc := candidate.NewService(candidateStore, userStore, electionStore, log)
	authSvc := auth.NewService(userStore, registration, electionStore, otps, notifier, tokens, log, m).
		WithLockout(auth.NewLockout(cfg.LoginMaxFailures, cfg.LoginLockoutWindow, cfg.LoginLockoutWindow))
	ballotSvc := ballot.NewService(ballotStore, electionStore, userStore, candidateStore, log, m)
	resultsSvc := results.NewService(electionStore, ballotStore, userStore, candidateStore, log)
	sweeper := election.NewSweeper(electionSvc, log, m, cfg.SweepInterval)

	// A fresh install has no admins, so the whole admin surface would be
	// unreachable without a seeded SUPER account.
	if cfg.BootstrapAdminEmail != "" {
		if _, err := authSvc.BootstrapAdmin(ctx, auth.AdminInput{
			FullName: cfg.BootstrapAdminName,
			Email:    cfg.BootstrapAdminEmail,
			Password: cfg.BootstrapAdminPassword,
			AdminID:  cfg.BootstrapAdminID,
		}); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Auth:      httptransport.NewAuthHandler(authSvc),
		Elections: httptransport.NewElectionHandler(electionSvc, candidateSvc),
		Votes:     httptransport.NewVoteHandler(ballotSvc, userSvc, recorder),
		Results:   httptransport.NewResultsHandler(resultsSvc),
		Admin:     httptransport.NewAdminHandler(electionSvc, userSvc, authSvc, recorder, auditStore),
		Validator: tokens,
		Logger:    log,
		Metrics:   m,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting campusvote", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		return auditWorker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
