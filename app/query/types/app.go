package types

import (
	"context"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/gravityx/pkg/db/ledger"
	"github.com/canopy-network/gravityx/pkg/redis"
	"github.com/canopy-network/gravityx/pkg/reveal"
	"github.com/canopy-network/gravityx/pkg/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type App struct {
	// Ledger is the vote ledger backend (ClickHouse or Postgres)
	Ledger ledger.Store
	// RedisClient is set when REDIS_ENABLED=true
	RedisClient *redis.Client

	Snapshots       *snapshot.Service
	Reveals         reveal.Source
	RevealPageLimit int

	// Pool runs the per-request parallel loads of the snapshot service
	Pool     pond.Pool
	Registry *prometheus.Registry

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)
	a.Pool.StopAndWait()

	if err := a.Ledger.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
