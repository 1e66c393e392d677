package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/luckykangaroo/backend/internal/config"
	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/geo"
	"github.com/luckykangaroo/backend/internal/graph"
	"github.com/luckykangaroo/backend/internal/logging"
	"github.com/luckykangaroo/backend/internal/match"
	"github.com/luckykangaroo/backend/internal/repository"
	"github.com/luckykangaroo/backend/internal/server"
	"github.com/luckykangaroo/backend/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	affinity, err := domain.LoadAffinityTable(cfg.Match.CategoryAffinities)
	if err != nil {
		logger.Error("failed to load category affinity table", "error", err, "path", cfg.Match.CategoryAffinities)
		os.Exit(1)
	}

	var graphClient graph.Client
	var store service.ListingStore
	var source match.ListingSource

	if cfg.Graph.URI == "" {
		logger.Info("GRAPH_URI not set, using in-memory listing store")
		mem := repository.NewMemoryRepository()
		store = mem
		source = mem
	} else {
		graphClient, err = graph.NewNeo4jClient(ctx, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			logger.Error("failed to create graph client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()

		repo := repository.NewGraphRepository(graphClient)
		store = repo
		source = repo
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cached := repository.NewCachedRepository(source, redisClient, cfg.Redis.CacheTTL, logger)
		source = cached
		store = writeThroughStore{ListingStore: store, cache: cached}
		logger.Info("listing cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL.String())
	}

	scorer := match.NewScorer(weightsFrom(cfg.Match), zonesFrom(cfg.Match), affinity)
	engine := match.NewEngine(source, scorer, engineConfigFrom(cfg.Match), logger)
	exchange := service.NewExchangeService(store)
	apiHandlers := server.NewAPIHandlers(logger, engine, exchange)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:         server.GraphHealthService{Client: graphClient},
		API:            apiHandlers,
		AllowedOrigins: parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
	})

	srv := server.New(logger, cfg.HTTP, router)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
}

// writeThroughStore pairs the persistent store with the read cache so writes
// drop stale cached listings.
type writeThroughStore struct {
	service.ListingStore
	cache *repository.CachedRepository
}

func (s writeThroughStore) Invalidate(ctx context.Context, id string) {
	s.cache.Invalidate(ctx, id)
}

func weightsFrom(m config.MatchConfig) match.Weights {
	return match.Weights{
		ValueBalance:     m.WeightValueBalance,
		CategoryAffinity: m.WeightCategoryAffinity,
		ConditionMatch:   m.WeightConditionMatch,
		DistanceScore:    m.WeightDistanceScore,
		TrustScore:       m.WeightTrustScore,
		DesireMatch:      m.WeightDesireMatch,
	}
}

func zonesFrom(m config.MatchConfig) geo.ZoneThresholds {
	return geo.ZoneThresholds{
		VeryCloseKm: m.ZoneThresholdsKm[0],
		CloseKm:     m.ZoneThresholdsKm[1],
		ModerateKm:  m.ZoneThresholdsKm[2],
		FarKm:       m.ZoneThresholdsKm[3],
		VeryFarKm:   m.ZoneThresholdsKm[4],
	}
}

func engineConfigFrom(m config.MatchConfig) match.Config {
	return match.Config{
		MaxK:               m.MaxK,
		MinScore:           m.MinScore,
		LMax:               m.ChainLMax,
		BeamN:              m.ChainBeamN,
		MaxChains:          m.ChainMaxResults,
		MinEdgeScore:       m.ChainMinEdgeScore,
		MinChainScore:      m.ChainMinScore,
		MaxTotalDistanceKm: m.ChainMaxTotalKm,
		ExpandWorkers:      m.ExpandWorkers,
		RetryBudget:        m.RetryBudget,
		RepoCallTimeout:    m.RepoCallTimeout,
		PairDeadline:       m.PairDeadline,
		ChainDeadline:      m.ChainDeadline,
	}
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	var origins []string
	for _, part := range strings.Split(csv, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
