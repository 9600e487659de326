// Package app is the composition root. It picks storage backends from
// configuration, builds every module and returns the HTTP handler together
// with the background jobs that main starts and stops.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"yeirin/internal/admin"
	authhandler "yeirin/internal/auth/handler"
	authmetrics "yeirin/internal/auth/metrics"
	authservice "yeirin/internal/auth/service"
	"yeirin/internal/auth/store/revocation"
	userstore "yeirin/internal/auth/store/user"
	childhandler "yeirin/internal/child/handler"
	childservice "yeirin/internal/child/service"
	childstore "yeirin/internal/child/store"
	consenthandler "yeirin/internal/consent/handler"
	consentmetrics "yeirin/internal/consent/metrics"
	consentservice "yeirin/internal/consent/service"
	consentstore "yeirin/internal/consent/store"
	crhandler "yeirin/internal/counselrequest/handler"
	crmetrics "yeirin/internal/counselrequest/metrics"
	crservice "yeirin/internal/counselrequest/service"
	crstore "yeirin/internal/counselrequest/store"
	httpapi "yeirin/internal/http"
	insthandler "yeirin/internal/institution/handler"
	instmetrics "yeirin/internal/institution/metrics"
	instservice "yeirin/internal/institution/service"
	inststore "yeirin/internal/institution/store"
	jwttoken "yeirin/internal/jwt_token"
	"yeirin/internal/matching/adapters/aiclient"
	matchinghandler "yeirin/internal/matching/handler"
	matchingmetrics "yeirin/internal/matching/metrics"
	matchingservice "yeirin/internal/matching/service"
	notificationhandler "yeirin/internal/notification/handler"
	notificationmetrics "yeirin/internal/notification/metrics"
	"yeirin/internal/notification/sender"
	notificationservice "yeirin/internal/notification/service"
	notificationstore "yeirin/internal/notification/store"
	"yeirin/internal/platform/config"
	"yeirin/internal/platform/metrics"
	"yeirin/internal/platform/objectstore"
	"yeirin/internal/platform/postgres"
	platformredis "yeirin/internal/platform/redis"
	"yeirin/internal/platform/validation"
	rlmetrics "yeirin/internal/ratelimit/metrics"
	rlmiddleware "yeirin/internal/ratelimit/middleware"
	rlmodels "yeirin/internal/ratelimit/models"
	rlservice "yeirin/internal/ratelimit/service"
	rlstore "yeirin/internal/ratelimit/store"
	reporthandler "yeirin/internal/report/handler"
	reportmetrics "yeirin/internal/report/metrics"
	reportservice "yeirin/internal/report/service"
	reportstore "yeirin/internal/report/store"
	reviewhandler "yeirin/internal/review/handler"
	reviewservice "yeirin/internal/review/service"
	reviewstore "yeirin/internal/review/store"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/audit/publisher"
	"yeirin/pkg/platform/audit/sink/kafka"
	auditmemory "yeirin/pkg/platform/audit/store/memory"
	auditpostgres "yeirin/pkg/platform/audit/store/postgres"
	txcontext "yeirin/pkg/platform/tx"
)

const sweepSchedule = "@every 1m"

// App holds the router and every resource that outlives a request.
type App struct {
	Handler http.Handler
	// Audit is exposed so tests can flush before reading the trail.
	Audit *publisher.Publisher

	logger  *slog.Logger
	cron    *cron.Cron
	closers []func() error
}

type stores struct {
	users          authservice.UserStore
	trl            authservice.TokenRevocationList
	institutions   instservice.Store
	children       childservice.Store
	consents       consentservice.Store
	requests       crservice.Store
	reports        reportservice.Store
	reviews        reviewservice.Store
	messages       notificationservice.Store
	rateLimit      rlservice.Store
	auditReader    admin.AuditReader
	auditSinks     []audit.Sink
	tx             txcontext.Runner
	health         map[string]httpapi.HealthCheck
	sweepRateLimit func()
}

// New wires every module. PostgreSQL and Redis are used when configured;
// otherwise the process runs entirely on in-memory stores.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, reg *prometheus.Registry) (*App, error) {
	a := &App{logger: logger, cron: cron.New()}

	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	st, err := a.openStores(ctx, cfg, reg)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	auditSinks := st.auditSinks
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			_ = a.closeResources()
			return nil, fmt.Errorf("kafka audit sink: %w", err)
		}
		a.closers = append(a.closers, func() error { sink.Close(); return nil })
		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := sink.EnsureTopic(topicCtx, 3, 1); err != nil {
			logger.Warn("audit topic not ensured", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		cancel()
		auditSinks = append(auditSinks, sink)
		logger.Info("kafka audit sink enabled", "topic", cfg.Kafka.AuditTopic)
	}
	a.Audit = publisher.NewPublisher(auditSinks,
		publisher.WithLogger(logger),
		publisher.WithFlushSize(cfg.Audit.FlushSize),
		publisher.WithCapacity(cfg.Audit.BufferSize),
		publisher.WithSchedule("@every "+cfg.Audit.FlushInterval.String()),
	)

	validator := validation.New()
	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.TTL)

	institutionService := instservice.New(st.institutions,
		instservice.WithLogger(logger),
		instservice.WithMetrics(instmetrics.New(reg)),
		instservice.WithAuditPublisher(a.Audit),
	)

	authService, err := authservice.New(st.users, st.trl, jwtService, institutionService,
		authservice.WithLogger(logger),
		authservice.WithMetrics(authmetrics.New(reg)),
		authservice.WithAuditPublisher(a.Audit),
	)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}
	if err := authService.BootstrapAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		_ = a.closeResources()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	childService := childservice.New(st.children,
		childservice.WithLogger(logger),
		childservice.WithAuditPublisher(a.Audit),
	)

	consentService, err := consentservice.New(st.consents, childService,
		consentservice.WithLogger(logger),
		consentservice.WithMetrics(consentmetrics.New(reg)),
		consentservice.WithAuditPublisher(a.Audit),
		consentservice.WithTx(st.tx),
		consentservice.WithTTL(cfg.ConsentTTL),
	)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	matchingService := matchingservice.New(
		aiclient.New(cfg.AI.BaseURL, cfg.AI.Timeout, aiclient.WithLogger(logger)),
		matchingservice.WithLogger(logger),
		matchingservice.WithMetrics(matchingmetrics.New(reg)),
		matchingservice.WithAuditPublisher(a.Audit),
	)

	notificationService, err := notificationservice.New(st.messages, newSender(cfg.SMS, logger), st.users,
		notificationservice.WithLogger(logger),
		notificationservice.WithMetrics(notificationmetrics.New(reg)),
		notificationservice.WithAuditPublisher(a.Audit),
	)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	requestService, err := crservice.New(st.requests, matchingService, childService, consentService, institutionService,
		crservice.WithLogger(logger),
		crservice.WithMetrics(crmetrics.New(reg)),
		crservice.WithAuditPublisher(a.Audit),
		crservice.WithNotifier(notificationService),
		crservice.WithTx(st.tx),
	)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	objects, err := newObjectStore(cfg.S3, logger)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}
	reportService, err := reportservice.New(st.reports, requestService, consentService, objects,
		reportservice.WithLogger(logger),
		reportservice.WithMetrics(reportmetrics.New(reg)),
		reportservice.WithAuditPublisher(a.Audit),
	)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	reviewService, err := reviewservice.New(st.reviews, requestService, institutionService,
		reviewservice.WithLogger(logger),
		reviewservice.WithAuditPublisher(a.Audit),
		reviewservice.WithTx(st.tx),
	)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	limiter, err := rlservice.New(st.rateLimit,
		rlservice.WithLogger(logger),
		rlservice.WithMetrics(rlmetrics.New(reg)),
		rlservice.WithAuditPublisher(a.Audit),
		rlservice.WithPerMinute(rlmodels.ClassMatching, cfg.RateLimit.MatchingPerMinute),
		rlservice.WithPerMinute(rlmodels.ClassAuth, cfg.RateLimit.AuthPerMinute),
	)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}
	if st.sweepRateLimit != nil {
		if _, err := a.cron.AddFunc(sweepSchedule, st.sweepRateLimit); err != nil {
			_ = a.closeResources()
			return nil, fmt.Errorf("schedule rate limit sweep: %w", err)
		}
	}

	a.Handler = httpapi.NewRouter(httpapi.Deps{
		Logger:      logger,
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
		Tokens:      jwttoken.NewJWTServiceAdapter(jwtService),
		Revocations: authService,
		RateLimit:   rlmiddleware.New(limiter, logger, rlmiddleware.WithDisabled(cfg.RateLimit.Disabled)),
		Health:      st.health,
		Timeout:     cfg.AI.Timeout + 15*time.Second,
	}, httpapi.Handlers{
		Auth:           authhandler.New(authService, validator, logger),
		Institution:    insthandler.New(institutionService, validator, logger),
		Child:          childhandler.New(childService, validator, logger),
		Consent:        consenthandler.New(consentService, validator, logger),
		Matching:       matchinghandler.New(matchingService, validator, logger),
		CounselRequest: crhandler.New(requestService, validator, logger),
		Report:         reporthandler.New(reportService, validator, logger),
		Review:         reviewhandler.New(reviewService, validator, logger),
		Notification:   notificationhandler.New(notificationService, cfg.SMS.WebhookSecret, validator, logger),
		Admin:          admin.New(st.auditReader, logger),
	})
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*stores, error) {
	st := &stores{health: map[string]httpapi.HealthCheck{}}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		a.closers = append(a.closers, db.Close)
		if err := postgres.Migrate(ctx, db, a.logger); err != nil {
			return nil, err
		}
		a.usePostgres(st, db)
	} else {
		a.logger.Warn("DATABASE_URL not set, using in-memory stores")
		useMemory(st)
	}

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
		st.trl = revocation.NewRedisTRL(rc.Client, revocation.WithRedisMetrics(reg))
		st.rateLimit = rlstore.NewRedis(rc.Client)
		st.health["redis"] = rc.Health
		a.logger.Info("redis enabled for token revocation and rate limiting")
	} else {
		mem := rlstore.NewInMemory()
		st.rateLimit = mem
		st.sweepRateLimit = func() {
			if n := mem.Sweep(time.Minute); n > 0 {
				a.logger.Debug("swept idle rate limit buckets", "count", n)
			}
		}
	}
	return st, nil
}

func (a *App) usePostgres(st *stores, db *sql.DB) {
	st.users = userstore.NewPostgres(db)
	st.trl = revocation.NewPostgresTRL(db)
	st.institutions = inststore.NewPostgres(db)
	st.children = childstore.NewPostgres(db)
	st.consents = consentstore.NewPostgres(db)
	st.requests = crstore.NewPostgres(db)
	st.reports = reportstore.NewPostgres(db)
	st.reviews = reviewstore.NewPostgres(db)
	st.messages = notificationstore.NewPostgres(db)
	auditStore := auditpostgres.New(db)
	st.auditReader = auditStore
	st.auditSinks = []audit.Sink{auditStore}
	st.tx = txcontext.NewSQLRunner(db)
	st.health["postgres"] = db.PingContext
}

func useMemory(st *stores) {
	st.users = userstore.New()
	st.trl = revocation.NewInMemoryTRL(nil)
	st.institutions = inststore.NewInMemory()
	st.children = childstore.NewInMemory()
	st.consents = consentstore.NewInMemory()
	st.requests = crstore.NewInMemory()
	st.reports = reportstore.NewInMemory()
	st.reviews = reviewstore.NewInMemory()
	st.messages = notificationstore.NewInMemory()
	auditStore := auditmemory.NewInMemoryStore()
	st.auditReader = auditStore
	st.auditSinks = []audit.Sink{auditStore}
	st.tx = txcontext.NoopRunner{}
}

func newSender(cfg config.SMSConfig, logger *slog.Logger) notificationservice.Sender {
	if cfg.APIURL == "" {
		logger.Warn("SMS_API_URL not set, text messages are only logged")
		return sender.NewLogSender(logger)
	}
	return sender.NewHTTPSender(cfg.APIURL, cfg.APIKey, cfg.Sender, 10*time.Second, sender.WithLogger(logger))
}

func newObjectStore(cfg config.S3Config, logger *slog.Logger) (reportservice.ObjectStore, error) {
	if !cfg.Enabled() {
		logger.Warn("S3 not configured, report attachments are kept in memory")
		return objectstore.NewMemoryStore(), nil
	}
	s3Store, err := objectstore.NewS3Store(cfg)
	if err != nil {
		return nil, err
	}
	return s3Store, nil
}

// Start launches the audit flush loop and periodic maintenance jobs.
func (a *App) Start() error {
	if err := a.Audit.Start(); err != nil {
		return err
	}
	a.cron.Start()
	return nil
}

// Close stops background jobs, flushes buffered audit events and releases
// connections. The HTTP server must already be shut down.
func (a *App) Close(ctx context.Context) error {
	<-a.cron.Stop().Done()
	var errs []error
	if a.Audit != nil {
		if err := a.Audit.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("final audit flush: %w", err))
		}
	}
	errs = append(errs, a.closeResources())
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
