package query

import (
	"context"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/gravityx/app/query/types"
	"github.com/canopy-network/gravityx/pkg/db/clickhouse"
	"github.com/canopy-network/gravityx/pkg/db/ledger"
	"github.com/canopy-network/gravityx/pkg/db/postgres"
	pgledger "github.com/canopy-network/gravityx/pkg/db/postgres/ledger"
	"github.com/canopy-network/gravityx/pkg/identity"
	"github.com/canopy-network/gravityx/pkg/logging"
	"github.com/canopy-network/gravityx/pkg/redis"
	"github.com/canopy-network/gravityx/pkg/reveal"
	"github.com/canopy-network/gravityx/pkg/snapshot"
	"github.com/canopy-network/gravityx/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New("query")
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	store, err := newLedger(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to initialize ledger database", zap.Error(err))
	}

	// Redis carries the reveal stream (optional)
	var redisClient *redis.Client
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - reveals will be served from the ledger",
				zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Redis client initialized for the reveal stream")
		}
	} else {
		logger.Info("Redis disabled - reveals will be served from the ledger")
	}

	var source reveal.Source = reveal.NewLedgerSource(store)
	if utils.Env("REVEAL_SOURCE", "ledger") == "redis" {
		if redisClient == nil {
			logger.Fatal("REVEAL_SOURCE=redis requires a working Redis client")
		}
		source = reveal.NewStreamSource(redisClient, logger)
	}

	directory, err := identity.NewCached(
		store,
		utils.EnvInt("IDENTITY_CACHE_SIZE", identity.DefaultCacheSize),
		utils.EnvDuration("IDENTITY_HIT_TTL", identity.DefaultHitTTL),
		utils.EnvDuration("IDENTITY_MISS_TTL", identity.DefaultMissTTL),
		logger,
	)
	if err != nil {
		logger.Fatal("Unable to initialize identity cache", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pool := pond.NewPool(utils.EnvInt("SNAPSHOT_WORKERS", 64))

	snapshots := snapshot.New(snapshot.Deps{
		Votes:    store,
		Polls:    store,
		Identity: directory,
		Reveals:  source,
		Pool:     pool,
		Metrics:  snapshot.NewMetrics(registry),
		Logger:   logger,
	})

	app := &types.App{
		Ledger:          store,
		RedisClient:     redisClient,
		Snapshots:       snapshots,
		Reveals:         source,
		RevealPageLimit: utils.EnvInt("REVEAL_PAGE_LIMIT", reveal.DefaultPageLimit),
		Pool:            pool,
		Registry:        registry,
		Logger:          logger,
	}

	return app
}

// newLedger opens the ledger backend named by LEDGER_BACKEND (clickhouse|postgres).
func newLedger(ctx context.Context, logger *zap.Logger) (ledger.Store, error) {
	dbName := utils.Env("LEDGER_DB", "gravity")
	initSchema := utils.EnvBool("LEDGER_INIT_SCHEMA", false)

	switch backend := utils.Env("LEDGER_BACKEND", "clickhouse"); backend {
	case "postgres":
		logger.Info("Using postgres ledger", zap.String("database", dbName))
		db, err := pgledger.New(ctx, logger, dbName, initSchema, postgres.GetPoolConfigForComponent("query"))
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		if backend != "clickhouse" {
			logger.Warn("Unknown LEDGER_BACKEND, falling back to clickhouse", zap.String("backend", backend))
		}
		logger.Info("Using clickhouse ledger", zap.String("database", dbName))
		db, err := ledger.New(ctx, logger, dbName, initSchema, clickhouse.GetPoolConfigForComponent("query"))
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}
