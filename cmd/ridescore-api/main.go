// README: Entry point; loads config, wires services, loads datasets and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"ridescore/internal/ai"
	"ridescore/internal/config"
	httptransport "ridescore/internal/http"
	"ridescore/internal/infra"
	"ridescore/internal/logging"
	"ridescore/internal/maps"
	"ridescore/internal/modules/dataset"
	"ridescore/internal/modules/explanation"
	"ridescore/internal/modules/feature"
	"ridescore/internal/modules/geo"
	"ridescore/internal/modules/ranking"
	"ridescore/internal/modules/scoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ridescore-api stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	model, closeModel, err := newModel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeModel()

	resolver, err := newResolver(cfg, logger)
	if err != nil {
		return err
	}

	source := newSource(cfg)
	data := dataset.NewStore(logger)
	if _, err := data.Reload(ctx, source); err != nil {
		return fmt.Errorf("initial dataset load: %w", err)
	}

	var narrator explanation.Narrator
	if cfg.AI.GeminiKey != "" {
		gemini, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			return err
		}
		defer gemini.Close()
		narrator = ai.NewNarrator(gemini)
	}

	extractor := feature.NewExtractor(resolver)
	rankingSvc := ranking.NewService(data, extractor, model, cfg.Ranking.Concurrency, logger)
	explanationSvc := explanation.NewService(data, extractor, model, narrator, logger)

	var fallbacks func() int64
	if fr, ok := resolver.(*geo.FallbackResolver); ok {
		fallbacks = fr.Fallbacks
	}

	gin.SetMode(gin.ReleaseMode)
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Ranking:     rankingSvc,
		Explanation: explanationSvc,
		Model:       model,
		Data:        data,
		Source:      source,
		DefaultTop:  cfg.Ranking.DefaultTop,
		Logger:      logger,
		Fallbacks:   fallbacks,
	})
	return httptransport.NewServer(cfg.HTTP.Addr, router, logger).Run(ctx)
}

// newModel loads the initial coefficients and, when a DSN is configured,
// restores the latest persisted version.
func newModel(ctx context.Context, cfg config.Config, logger *slog.Logger) (*scoring.Service, func(), error) {
	initial := scoring.Baseline()
	if cfg.Model.CoefficientsFile != "" {
		c, err := scoring.LoadCoefficients(cfg.Model.CoefficientsFile)
		if err != nil {
			return nil, nil, err
		}
		initial = c
	}

	closeFn := func() {}
	var versions scoring.VersionStore
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := scoring.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("coefficient schema: %w", err)
		}
		versions = store
		closeFn = pool.Close
	}

	model, err := scoring.NewService(initial, versions, logger)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	if _, err := model.Restore(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return model, closeFn, nil
}

// newResolver uses the Google provider, optionally behind the Redis cache,
// when a Maps key is configured, and the haversine formula otherwise.
func newResolver(cfg config.Config, logger *slog.Logger) (geo.Resolver, error) {
	if cfg.Distance.MapsAPIKey == "" {
		logger.Info("distance provider disabled; using haversine only")
		return geo.Analytic{}, nil
	}
	distanceSvc, err := maps.NewDistanceService(cfg.Distance.MapsAPIKey)
	if err != nil {
		return nil, err
	}
	var provider geo.Provider = distanceSvc
	if cfg.Redis.Addr != "" {
		provider = geo.NewCachedProvider(distanceSvc, infra.NewRedis(cfg.Redis.Addr), cfg.Distance.CacheTTL, logger)
	}
	return geo.NewFallbackResolver(provider, cfg.Distance.Timeout, logger), nil
}

func newSource(cfg config.Config) dataset.Source {
	if cfg.Data.URL != "" {
		return dataset.HTTPSource{BaseURL: cfg.Data.URL}
	}
	return dataset.FileSource{Dir: cfg.Data.Dir}
}
