package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"custodia/internal/attribute"
	"custodia/internal/audit"
	"custodia/internal/catalog"
	cataloghandler "custodia/internal/catalog/handler"
	"custodia/internal/customfield"
	customfieldhandler "custodia/internal/customfield/handler"
	"custodia/internal/eav"
	"custodia/internal/evidence"
	evidencehandler "custodia/internal/evidence/handler"
	"custodia/internal/evidencetype"
	schemacache "custodia/internal/evidencetype/cache"
	evidencetypehandler "custodia/internal/evidencetype/handler"
	apihttp "custodia/internal/http"
	"custodia/internal/jwttoken"
	"custodia/internal/notification"
	notificationhandler "custodia/internal/notification/handler"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/postgres"
	"custodia/internal/platform/redis"
	"custodia/internal/user"
	userhandler "custodia/internal/user/handler"
	"custodia/internal/workflow"
	workflowhandler "custodia/internal/workflow/handler"
	"custodia/pkg/platform/tx"
)

// main wires the stores, services and transport. Business logic lives in
// the internal service packages; this stays assembly only.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db       *sql.DB
		txRunner tx.Runner = tx.NoopRunner{}

		attrStore  attribute.Store
		eavStore   eav.Store
		cfStore    customfield.Store
		etStore    evidencetype.Store
		wfStore    workflow.Store
		evStore    evidence.Store
		notifStore notification.Store
		catStore   catalog.Store
		userStore  user.Store
		outbox     audit.OutboxStore
	)
	if cfg.Postgres.URL != "" {
		var err error
		db, err = postgres.Open(cfg.Postgres)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		txRunner = &tx.SQLRunner{DB: db}
		attrStore = attribute.NewPostgresStore(db)
		eavStore = eav.NewPostgresStore(db)
		cfStore = customfield.NewPostgresStore(db)
		etStore = evidencetype.NewPostgresStore(db)
		wfStore = workflow.NewPostgresStore(db)
		evStore = evidence.NewPostgresStore(db)
		notifStore = notification.NewPostgresStore(db)
		catStore = catalog.NewPostgresStore(db)
		userStore = user.NewPostgresStore(db)
		outbox = audit.NewPostgresOutbox(db)
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		attrStore = attribute.NewInMemoryStore()
		eavStore = eav.NewInMemoryStore()
		cfStore = customfield.NewInMemoryStore()
		etStore = evidencetype.NewInMemoryStore()
		wfStore = workflow.NewInMemoryStore()
		evStore = evidence.NewInMemoryStore()
		notifStore = notification.NewInMemoryStore()
		catStore = catalog.NewInMemoryStore()
		userStore = user.NewInMemoryStore()
		outbox = audit.NewInMemoryOutbox()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	attrService := attribute.NewService(attrStore, log)
	engine := eav.NewEngine(eavStore, attrStore, m, log)
	wfService := workflow.NewService(wfStore, log)

	var (
		cache       evidencetype.SchemaCache
		invalidator customfield.SchemaInvalidator
	)
	if redisClient != nil {
		sc := schemacache.New(redisClient.Client, cfg.SchemaCacheTTL, m, log)
		cache = sc
		invalidator = sc
	}
	cfService := customfield.NewService(cfStore, attrService, attrStore, engine, etStore, invalidator, txRunner, log)
	etService := evidencetype.NewService(etStore, wfService, cfService, cache, log)

	catService := catalog.NewService(catStore, catalog.Definitions, log)
	userService := user.NewService(userStore, log)
	recorder := audit.NewRecorder(outbox, log)
	notifService := notification.NewService(notifStore, m, log)
	evService := evidence.NewService(evStore, etService, wfService, userService, engine,
		recorder, notifService, txRunner, m, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "custodia", "custodia-api")

	healthChecks := map[string]func(ctx context.Context) error{}
	if db != nil {
		healthChecks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		healthChecks["redis"] = redisClient.Health
	}

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Logger:    log,
		Metrics:   m,
		Validator: jwtService,
		Handlers: []apihttp.Registrar{
			customfieldhandler.New(cfService, log),
			evidencetypehandler.New(etService, log),
			evidencehandler.New(evService, log),
			workflowhandler.New(wfService, log),
			notificationhandler.New(notifService, log),
			cataloghandler.New(catService, log),
			userhandler.New(userService, log),
		},
		HealthChecks: healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		relay, err := audit.NewRelay(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, outbox, m, log)
		if err != nil {
			log.Error("audit relay setup failed", "error", err)
			os.Exit(1)
		}
		defer relay.Close()
		if err := relay.EnsureTopic(ctx); err != nil {
			log.Error("audit topic setup failed", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("no KAFKA_BROKERS configured, audit events stay in the outbox")
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
