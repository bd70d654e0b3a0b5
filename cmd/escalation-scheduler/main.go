// cmd/escalation-scheduler/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hrms-escalation/internal/audit"
	"hrms-escalation/internal/channels"
	"hrms-escalation/internal/common/aws"
	"hrms-escalation/internal/common/config"
	"hrms-escalation/internal/common/database"
	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/common/observability"
	"hrms-escalation/internal/digest"
	"hrms-escalation/internal/escalation"
	"hrms-escalation/internal/repository"
	"hrms-escalation/internal/rules"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting escalation scheduler...",
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown(context.Background())

	// Repository: Postgres when configured, in-memory otherwise so the
	// engine stays runnable in credential-less environments.
	var repo repository.Repository
	if cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "postgres connect")
		if err != nil {
			zapLog.Fatal("postgres unavailable", zap.Error(err))
		}
		defer pg.Close()
		repo = repository.NewPostgresRepository(pg.GetDB(), log)
	} else {
		zapLog.Warn("no postgres configured, using in-memory repository")
		repo = repository.NewMemoryRepository()
	}

	ruleStore := buildRuleStore(ctx, cfg, repo, log, zapLog)
	recorder := buildAuditRecorder(cfg, log, zapLog)
	dispatcher := buildDispatcher(ctx, cfg, log, zapLog)

	engine := escalation.NewEngine(repo, ruleStore, dispatcher, recorder, log)
	digests := digest.NewBuilder(log)

	// Admin/metrics HTTP surface
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("POST /admin/escalations/run", func(w http.ResponseWriter, r *http.Request) {
		count, err := engine.TriggerSweep(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"escalated": count})
	})
	mux.HandleFunc("GET /admin/digest", func(w http.ResponseWriter, r *http.Request) {
		recipient := r.URL.Query().Get("recipient")
		if recipient == "" {
			recipient = "hr-team"
		}
		d, err := digests.Build(r.Context(), repo, recipient)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d)
	})

	server := &http.Server{
		Addr:    cfg.Scheduler.ListenAddress,
		Handler: mux,
	}
	go func() {
		zapLog.Info("admin server listening", zap.String("address", cfg.Scheduler.ListenAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("admin server failed", zap.Error(err))
		}
	}()

	// Periodic sweep loop. The single-flight guard makes overlapping
	// ticker and admin triggers safe.
	interval := time.Duration(cfg.Scheduler.SweepInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	zapLog.Info("sweep loop started", zap.Duration("interval", interval))
	for {
		select {
		case <-ticker.C:
			start := time.Now()
			count, err := engine.TriggerSweep(ctx)
			status := "ok"
			if err != nil {
				status = "error"
				zapLog.Error("sweep failed", zap.Error(err))
			} else if count > 0 {
				zapLog.Info("sweep escalated notifications", zap.Int("count", count))
			}
			obs.RecordSweep(ctx, status)
			obs.RecordSweepDuration(ctx, time.Since(start), status)

		case <-ctx.Done():
			zapLog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				zapLog.Error("admin server shutdown failed", zap.Error(err))
			}
			return
		}
	}
}

func buildRuleStore(ctx context.Context, cfg *config.Config, repo repository.Repository, log logger.Logger, zapLog *zap.Logger) rules.Store {
	var store rules.Store
	if cfg.Scheduler.RuleRegistryPath != "" {
		fileStore, err := rules.LoadRegistry(cfg.Scheduler.RuleRegistryPath)
		if err != nil {
			zapLog.Fatal("rule registry invalid", zap.Error(err))
		}
		store = fileStore
	} else {
		store = rules.NewRepositoryStore(repo)
	}

	if cfg.Database.Redis.Address != "" {
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil || rc.Ping(ctx) != nil {
			zapLog.Warn("redis unavailable, rule caching disabled", zap.Error(err))
			return store
		}
		ttl := time.Duration(cfg.Database.Redis.RuleCacheTTL) * time.Second
		return rules.NewCachedStore(store, rc.GetClient(), ttl, log)
	}
	return store
}

func buildAuditRecorder(cfg *config.Config, log logger.Logger, zapLog *zap.Logger) audit.Recorder {
	if len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return audit.NoopRecorder{}
	}
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Warn("elasticsearch unavailable, audit recording disabled", zap.Error(err))
		return audit.NoopRecorder{}
	}
	return audit.NewElasticsearchRecorder(es.Client, cfg.Database.Elasticsearch.AuditIndex, log)
}

func buildDispatcher(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) *channels.Dispatcher {
	var opts []channels.Option

	if cfg.Notifications.Email.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Notifications.Email.AWSRegion)
		if err != nil {
			zapLog.Warn("SES unavailable, email falls back to mock sink", zap.Error(err))
		} else {
			opts = append(opts, channels.WithSES(ses, cfg.Notifications.Email.FromEmail))
		}
	}

	if cfg.Notifications.SMS.Enabled || cfg.Notifications.Push.Enabled {
		region := cfg.Notifications.SMS.AWSRegion
		if region == "" {
			region = cfg.Notifications.Push.AWSRegion
		}
		sns, err := aws.NewSNSClient(ctx, region)
		if err != nil {
			zapLog.Warn("SNS unavailable, sms/push fall back to mock sink", zap.Error(err))
		} else {
			opts = append(opts, channels.WithSNS(sns))
		}
	}

	if cfg.Notifications.Chat.Enabled {
		chat := channels.NewSlackClient(cfg.Notifications.Chat.SlackToken)
		opts = append(opts, channels.WithChat(chat, cfg.Notifications.Chat.DefaultChannel))
	}

	return channels.NewDispatcher(log, opts...)
}
