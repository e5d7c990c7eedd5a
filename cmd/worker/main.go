package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askledger/backend/internal/config"
	"github.com/askledger/backend/internal/db"
	"github.com/askledger/backend/internal/events"
	"github.com/askledger/backend/internal/ledger"
	"github.com/askledger/backend/internal/metrics"
	"github.com/askledger/backend/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// notifiedTTL bounds the dedupe keys; an expired request is announced once.
const notifiedTTL = 30 * 24 * time.Hour

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	ledgerStore := store.NewPostgresStore(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics listener stopped", zap.Error(err))
		}
	}()

	log.Info("worker started", zap.Duration("sweep_interval", cfg.ExpirySweepInterval))

	sweepTicker := time.NewTicker(cfg.ExpirySweepInterval)
	defer sweepTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			runExpirySweep(ctx, ledgerStore, publisher, rdb, cfg.ExpirySweepBatch, log)
			refreshEscrowGauge(ctx, ledgerStore)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// runExpirySweep announces open requests whose deadline has passed so
// requesters know reclamation is available. It never mutates ledger state:
// expiry is a predicate the ledger evaluates at reclaim time, not a job.
func runExpirySweep(ctx context.Context, ledgerStore ledger.Store, publisher events.Publisher, rdb *redis.Client, batch int, log *zap.Logger) {
	expired, err := ledgerStore.ListExpiredOpen(ctx, time.Now(), batch)
	if err != nil {
		log.Error("failed to list expired requests", zap.Error(err))
		return
	}

	for _, req := range expired {
		key := fmt.Sprintf("expiry:notified:%s", req.ID.String())
		ok, err := rdb.SetNX(ctx, key, "1", notifiedTTL).Result()
		if err != nil || !ok {
			continue
		}

		if err := publisher.Publish(ctx, events.StreamRequests, events.Event{
			Type: events.EventRequestExpired,
			Payload: map[string]any{
				"id":            req.ID.String(),
				"requester_id":  req.RequesterID.String(),
				"deposit_nano":  req.DepositNano,
				"deadline_unix": req.Deadline.Unix(),
			},
		}); err != nil {
			log.Error("failed to publish expiry event", zap.String("request_id", req.ID.String()), zap.Error(err))
			rdb.Del(ctx, key)
			continue
		}

		log.Info("request expired", zap.String("request_id", req.ID.String()))
	}
}

func refreshEscrowGauge(ctx context.Context, ledgerStore ledger.Store) {
	total, err := ledgerStore.TotalEscrowed(ctx)
	if err != nil {
		return
	}
	metrics.EscrowedNano.Set(float64(total))
}
