package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-copy/internal/config"
	"course-copy/internal/domain/ports/adapter"
	tele "course-copy/internal/infra/adapters/telegram"
	"course-copy/internal/infra/archive"
	pg "course-copy/internal/infra/db/postgres"
	"course-copy/internal/infra/i18n"
	"course-copy/internal/infra/logging"
	"course-copy/internal/infra/metrics"
	red "course-copy/internal/infra/redis"
	"course-copy/internal/infra/sched"
	"course-copy/internal/infra/storage"
	"course-copy/internal/infra/web"
	"course-copy/internal/infra/worker"
	"course-copy/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, log-only notifications)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s := pool.Stat()
				metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
			}
		}
	}()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	queue := red.NewTaskQueue(redisClient, cfg.Redis.QueueKey)
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Object storage ----
	store, err := storage.NewS3Storage(ctx, &cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Fatal().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("storage bucket")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	jobRepo := pg.NewCopyJobRepo(pool)
	courseRepo := pg.NewCourseRepo(pool)
	categoryRepo := pg.NewCategoryRepo(pool)
	requestRepo := pg.NewCopyRequestRepo(pool)
	userRepo := pg.NewUserRepoCacheDecorator(pg.NewPostgresUserRepo(pool), redisClient, 10*time.Minute)

	// ---- Notifications ----
	var channel adapter.NotificationChannel
	if cfg.Notify.Enabled && !cfg.Runtime.Dev {
		channel, err = tele.NewNotifier(cfg.Notify.TelegramToken, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
	} else {
		channel = tele.NewLogNotifier(logger)
	}
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Copy.Language)
	if err != nil {
		logger.Fatal().Err(err).Str("language", cfg.Copy.Language).Msg("i18n")
	}
	templates := usecase.NotificationTemplates{
		Subject:       orDefault(cfg.Copy.NotifySubject, tr.T("notify.subject")),
		Body:          orDefault(cfg.Copy.NotifyBody, tr.T("notify.body")),
		FailedSubject: orDefault(cfg.Copy.NotifyFailedSubject, tr.T("notify.failed_subject")),
		FailedBody:    orDefault(cfg.Copy.NotifyFailedBody, tr.T("notify.failed_body")),
		LinkBaseURL:   cfg.Copy.LinkBaseURL,
	}
	notifier := usecase.NewCompletionNotifier(userRepo, channel, templates, logger)

	// ---- Use cases ----
	submitUC := usecase.NewCopyRequestUseCase(jobRepo, courseRepo, categoryRepo, requestRepo, tm, queue, logger)
	statusUC := usecase.NewCopyStatusUseCase(jobRepo, usecase.OwnerAuthorizer{}, logger)
	listingUC := usecase.NewCopyListingUseCase(jobRepo, logger)

	// ---- Copy worker ----
	exporter := archive.NewCourseExporter(courseRepo, store, logger)
	importer := archive.NewCourseImporter(courseRepo, store, logger)
	processor := worker.NewCopyJobProcessor(jobRepo, requestRepo, courseRepo, exporter, importer, notifier, locker,
		worker.ProcessorConfig{
			ProgressInterval: cfg.Copy.ProgressInterval,
			PhaseTimeout:     cfg.Copy.PhaseTimeout,
			LockTTL:          cfg.Redis.LockTTL,
		}, logger)

	// Running copies are not cancelled on shutdown; Stop waits for them.
	workers := worker.NewPool(cfg.Copy.Workers, logger)
	workers.Start(context.WithoutCancel(ctx))
	dispatcher := worker.NewDispatcher(queue, processor, workers, logger)
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(ctx)
	}()

	// ---- Stale job reaper ----
	reaper := sched.NewStaleJobReaper(cfg.Copy.ReaperInterval, cfg.Copy.StaleAfter, jobRepo, notifier, logger)
	go func() { _ = reaper.Run(ctx) }()

	// ---- HTTP API ----
	if cfg.HTTP.AuthSecret == "" {
		logger.Fatal().Msg("http.auth_secret is required")
	}
	auth := web.NewAuthManager(cfg.HTTP.AuthSecret, cfg.HTTP.TokenTTL)
	server := web.NewServer(submitUC, statusUC, listingUC, auth, rateLimiter, cfg.HTTP.PollLimit, logger)
	go func() {
		if err := server.Start(cfg.HTTP.Port); err != nil {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	<-dispatchDone
	workers.Stop()
	logger.Info().Msg("stopped")
}

func orDefault(v, dflt string) string {
	if v != "" {
		return v
	}
	return dflt
}
