// Command server runs the compliance engine HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	alertservice "ledgergate/internal/alert/service"
	alertstore "ledgergate/internal/alert/store"
	"ledgergate/internal/audit"
	authservice "ledgergate/internal/authority/service"
	authstore "ledgergate/internal/authority/store"
	blservice "ledgergate/internal/blacklist/service"
	blstore "ledgergate/internal/blacklist/store"
	enforcementservice "ledgergate/internal/enforcement/service"
	idservice "ledgergate/internal/identity/service"
	idstore "ledgergate/internal/identity/store"
	"ledgergate/internal/ledger"
	"ledgergate/internal/platform/config"
	"ledgergate/internal/platform/database"
	"ledgergate/internal/platform/httpserver"
	"ledgergate/internal/platform/kafka/producer"
	"ledgergate/internal/platform/logger"
	platformredis "ledgergate/internal/platform/redis"
	policyservice "ledgergate/internal/policy/service"
	"ledgergate/internal/reserve/feed"
	reserveservice "ledgergate/internal/reserve/service"
	"ledgergate/internal/token"
	transporthttp "ledgergate/internal/transport/http"
	"ledgergate/migrations"
	"ledgergate/pkg/domain"
)

func main() {
	log := logger.New()
	cfg := config.FromEnv()

	if cfg.SuperAuthority == "" {
		log.Error("LEDGERGATE_SUPER_AUTHORITY must be set")
		os.Exit(1)
	}
	super := domain.PrincipalID(cfg.SuperAuthority)

	// Persistence: postgres when configured, in-memory otherwise.
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
		if err := migrations.Apply(context.Background(), pool.DB()); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	// Audit trail: persisted store, mirrored to Kafka when brokers are set.
	var auditStore audit.Store
	if pool != nil {
		auditStore = audit.NewPostgresStore(pool)
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	auditOpts := []audit.PublisherOption{audit.WithPublisherLogger(log)}
	if cfg.KafkaBrokers != "" {
		kafkaCfg := producer.DefaultConfig()
		kafkaCfg.Brokers = cfg.KafkaBrokers
		kafkaProducer, err := producer.New(kafkaCfg, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		auditOpts = append(auditOpts, audit.WithKafkaSink(kafkaProducer, cfg.AuditTopic))
	}
	auditor := audit.NewPublisher(auditStore, auditOpts...)
	defer auditor.Close()

	var (
		identityStore  idservice.Store
		authorityStore authservice.Store
		blacklistStore blservice.Store
		alertStore     alertservice.Store
	)
	if pool != nil {
		identityStore = idstore.NewPostgresStore(pool)
		authorityStore = authstore.NewPostgresStore(pool)
		blacklistStore = blstore.NewPostgresStore(pool)
		alertStore = alertstore.NewPostgresStore(pool)
	} else {
		log.Warn("no DATABASE_URL set, using in-memory stores")
		identityStore = idstore.NewInMemoryStore()
		authorityStore = authstore.NewInMemoryStore()
		blacklistStore = blstore.NewInMemoryStore()
		alertStore = alertstore.NewInMemoryStore()
	}

	var reserveFeed feed.Feed
	if redisClient != nil {
		reserveFeed = feed.NewRedisFeed(redisClient)
	} else {
		reserveFeed = feed.NewInMemoryFeed()
	}

	authority := authservice.New(authorityStore, auditor, super, authservice.WithLogger(log))
	identity := idservice.New(identityStore, authority, auditor,
		cfg.Jurisdictions, cfg.VerificationValidity, idservice.WithLogger(log))
	blacklist := blservice.New(blacklistStore, authority, identity, auditor, blservice.WithLogger(log))
	alerts := alertservice.New(alertStore, authority, blacklist, auditor, alertservice.WithLogger(log))
	reserve := reserveservice.New(reserveFeed, auditor, super, cfg.ReserveMaxAge,
		reserveservice.WithLogger(log))
	policy := policyservice.New(identity, blacklist, reserve,
		policyservice.Limits{Level1Max: cfg.Level1Limit, Level2Max: cfg.Level2Limit},
		policyservice.WithLogger(log))

	// The host ledger adapter. The in-memory ledger stands in until the
	// real ledger exposes its lock/move API to this engine.
	hostLedger := ledger.NewInMemory()
	enforcement := enforcementservice.New(authority, identity, blacklist, hostLedger, auditor,
		enforcementservice.WithLogger(log))

	validator := token.NewValidator(cfg.JWTSigningKey)
	health := func(r *http.Request) error {
		if pool != nil {
			if err := pool.Health(r.Context()); err != nil {
				return err
			}
		}
		if redisClient != nil {
			return redisClient.Health(r.Context())
		}
		return nil
	}

	router := transporthttp.NewRouter(transporthttp.Services{
		Identity:    identity,
		Authority:   authority,
		Blacklist:   blacklist,
		Alert:       alerts,
		Policy:      policy,
		Enforcement: enforcement,
		Reserve:     reserve,
		Auditor:     auditor,
	}, validator, health, log)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
