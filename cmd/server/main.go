// Command server runs the equation board: intake, scoring, promotion,
// certificate issuance, and the reconciliation sweep, behind one HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eqboard/internal/audit"
	"eqboard/internal/certificate"
	"eqboard/internal/ledger"
	"eqboard/internal/operator"
	"eqboard/internal/platform/config"
	"eqboard/internal/platform/httpserver"
	"eqboard/internal/platform/logger"
	"eqboard/internal/platform/metrics"
	platformredis "eqboard/internal/platform/redis"
	"eqboard/internal/reconcile"
	"eqboard/internal/registry"
	"eqboard/internal/scoring"
	"eqboard/internal/submission"
	httptransport "eqboard/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	auditPub, auditCleanup, err := buildAudit(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer auditCleanup()

	submissionSvc := submission.NewService(stores.submissions, auditPub, m, log)

	scoringOpts := []scoring.Option{scoring.WithMetrics(m)}
	if judge, err := buildJudge(ctx, cfg, log); err != nil {
		return err
	} else if judge != nil {
		scoringOpts = append(scoringOpts, scoring.WithJudge(judge))
	} else {
		log.Warn("no advisory judge configured, all scoring runs degraded")
	}
	scoringSvc := scoring.NewService(
		stores.submissions,
		scoring.Weights{Heuristic: cfg.Scoring.HeuristicWeight, Advisory: cfg.Scoring.AdvisoryWeight},
		cfg.Promotion.Threshold,
		auditPub, log, scoringOpts...,
	)

	registrySvc := registry.NewService(stores.submissions, stores.equations, registry.Policy{
		Threshold:     cfg.Promotion.Threshold,
		AllowDegraded: cfg.Promotion.AllowDegraded,
		Retries:       cfg.Promotion.Retries,
	}, auditPub, log, registry.WithMetrics(m))

	signer, err := buildSigner(cfg, log)
	if err != nil {
		return err
	}
	certOpts := []certificate.Option{certificate.WithMetrics(m)}
	if cfg.Ledger.URL != "" {
		certOpts = append(certOpts, certificate.WithLedger(
			ledger.NewClient(cfg.Ledger.URL, cfg.Ledger.Timeout, log)))
	} else {
		log.Warn("no ledger configured, certificates stay pending")
	}
	certSvc := certificate.NewService(stores.certificates, stores.submissions, stores.equations,
		signer, cfg.Ledger.RetryBudget, auditPub, log, certOpts...)

	reconcileSvc := reconcile.NewService(stores.submissions, stores.equations, stores.certificates,
		cfg.Promotion.Threshold, cfg.Reconcile.GracePeriod, log, reconcile.WithMetrics(m))

	tokens := operator.NewTokenService(cfg.Operator.JWTSigningKey, cfg.Operator.TokenTTL)
	operatorSvc := operator.NewService(tokens, cfg.Operator.SecretHash, auditPub, log)

	go reconcile.NewWorker(reconcileSvc, cfg.Reconcile.Interval, log).Run(ctx)
	go certificate.NewWorker(certSvc, reconcileSvc, cfg.Ledger.SweepInterval, log).Run(ctx)

	handler := httptransport.NewHandler(submissionSvc, scoringSvc, registrySvc, certSvc,
		reconcileSvc, operatorSvc, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, tokens, log))

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pipelineStores bundles the three stores behind one open/close lifecycle.
type pipelineStores struct {
	submissions  submission.Store
	equations    registry.Store
	certificates certificate.Store
	db           *sql.DB
}

func (s *pipelineStores) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*pipelineStores, error) {
	if cfg.PostgresDSN == "" {
		log.Warn("no postgres DSN configured, using in-memory stores")
		return &pipelineStores{
			submissions:  submission.NewInMemoryStore(),
			equations:    registry.NewInMemoryStore(),
			certificates: certificate.NewInMemoryStore(),
		}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	for _, schema := range []string{submission.Schema, registry.Schema, certificate.Schema} {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return nil, err
		}
	}
	return &pipelineStores{
		submissions:  submission.NewPostgres(db),
		equations:    registry.NewPostgres(db),
		certificates: certificate.NewPostgres(db),
		db:           db,
	}, nil
}

// buildAudit picks the audit sink: Kafka through a non-blocking channel worker
// when brokers are configured, an in-process sink otherwise. Either way every
// event also lands in the structured log via the publisher.
func buildAudit(ctx context.Context, cfg config.Config, log *slog.Logger) (*audit.Publisher, func(), error) {
	if cfg.KafkaBrokers == "" {
		return audit.NewPublisher(audit.NewMemorySink(), log), func() {}, nil
	}

	kafka, err := audit.NewKafkaSink(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaAuditTopic)
	if err != nil {
		return nil, nil, err
	}
	inbox := make(chan audit.Event, 1024)
	go func() {
		_ = audit.NewWorker(kafka, inbox, log).Run(ctx)
	}()
	return audit.NewPublisher(audit.NewChannelSink(inbox, log), log), kafka.Close, nil
}

func buildJudge(ctx context.Context, cfg config.Config, log *slog.Logger) (scoring.Judge, error) {
	if cfg.Judge.APIKey == "" {
		return nil, nil
	}
	judge, err := scoring.NewGenAIJudge(ctx, cfg.Judge.APIKey, cfg.Judge.Model, cfg.Judge.Timeout)
	if err != nil {
		return nil, err
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if redisClient == nil {
		return judge, nil
	}
	log.Info("advisory results cached in redis")
	return scoring.NewCachedJudge(judge, redisClient, log), nil
}

func buildSigner(cfg config.Config, log *slog.Logger) (*certificate.Signer, error) {
	if cfg.Signing.KeyPath != "" {
		return certificate.LoadSigner(cfg.Signing.KeyPath)
	}
	log.Warn("no signing key configured, using an ephemeral key")
	return certificate.GenerateSigner()
}
