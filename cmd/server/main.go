// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in the internal feature
// packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	assessmenthandler "veripass/internal/assessment/handler"
	assessmentmetrics "veripass/internal/assessment/metrics"
	assessmentservice "veripass/internal/assessment/service"
	assessmentstore "veripass/internal/assessment/store"
	"veripass/internal/certificate"
	manifesthandler "veripass/internal/manifest/handler"
	manifestmetrics "veripass/internal/manifest/metrics"
	manifestservice "veripass/internal/manifest/service"
	manifeststore "veripass/internal/manifest/store"
	"veripass/internal/platform/config"
	"veripass/internal/platform/httpserver"
	"veripass/internal/platform/logger"
	platformredis "veripass/internal/platform/redis"
	httptransport "veripass/internal/transport/http"
	"veripass/internal/verifier"
	verifierhandler "veripass/internal/verifier/handler"
	audit "veripass/pkg/platform/audit"
	auditpublisher "veripass/pkg/platform/audit/publisher"
	compliancesink "veripass/pkg/platform/audit/publishers/compliance"
	auditmemory "veripass/pkg/platform/audit/store/memory"
	auditpostgres "veripass/pkg/platform/audit/store/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage backends. An empty postgres URL runs everything in memory,
	// which is how local development and the test suite operate.
	var (
		manifestStore   manifestservice.Store
		assessmentStore assessmentservice.Store
		auditStore      audit.Store
		pool            *pgxpool.Pool
	)
	if cfg.PostgresURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()

		manifestStore = manifeststore.NewPostgres(db)
		assessmentStore = assessmentstore.NewPostgres(pool)
		auditStore = auditpostgres.New(pool)
	} else {
		log.Info("no postgres configured, using in-memory stores")
		manifestStore = manifeststore.NewInMemory()
		assessmentStore = assessmentstore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
	}

	// Audit pipeline: async buffer over the store, optionally fanned out to
	// the kafka compliance stream.
	publisherOpts := []auditpublisher.Option{
		auditpublisher.WithAsyncBuffer(cfg.AuditBuffer),
		auditpublisher.WithLogger(log),
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := compliancesink.New(ctx, cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(context.Background()); err != nil {
				log.Warn("kafka sink close failed", "error", err)
			}
		}()
		publisherOpts = append(publisherOpts, auditpublisher.WithSink(sink))
	}
	auditor := auditpublisher.NewPublisher(auditStore, publisherOpts...)
	defer auditor.Close()

	manifests, err := manifestservice.New(manifestStore,
		manifestservice.WithAudit(auditor),
		manifestservice.WithMetrics(manifestmetrics.New()),
		manifestservice.WithLogger(log),
	)
	if err != nil {
		return err
	}

	var signer *certificate.Signer
	if cfg.JWTSigningKey != "" {
		signer = certificate.NewSigner(cfg.JWTSigningKey, "veripass")
	} else {
		log.Warn("no JWT signing key configured, certificates carry no signed token")
	}
	minter := certificate.NewMinter(signer)

	assessments, err := assessmentservice.New(assessmentStore, manifests, minter,
		assessmentservice.WithAudit(auditor),
		assessmentservice.WithMetrics(assessmentmetrics.New()),
		assessmentservice.WithLogger(log),
	)
	if err != nil {
		return err
	}

	verifierOpts := []verifier.Option{
		verifier.WithAudit(auditor),
		verifier.WithMetrics(verifier.NewMetrics()),
		verifier.WithLogger(log),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		verifierOpts = append(verifierOpts, verifier.WithCache(verifier.NewRedisCache(redisClient.Client)))
	}
	verification, err := verifier.New(assessmentStore, verifierOpts...)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Manifests:    manifesthandler.New(manifests, log),
		Assessments:  assessmenthandler.New(assessments, log),
		Verifier:     verifierhandler.New(verification, log),
		AdminKeyHash: cfg.AdminKeyHash,
		Auditor:      auditor,
		Logger:       log,
		Health:       healthCheck(pool, redisClient),
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting veripass server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// healthCheck verifies configured backends; in-memory mode is always ready.
func healthCheck(pool *pgxpool.Pool, redisClient *platformredis.Client) func(r *http.Request) error {
	return func(r *http.Request) error {
		ctx := r.Context()
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
