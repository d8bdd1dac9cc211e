// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridescore/internal/http/handlers"
	"ridescore/internal/http/middleware"
	"ridescore/internal/modules/dataset"
	"ridescore/internal/modules/explanation"
	"ridescore/internal/modules/ranking"
	"ridescore/internal/modules/scoring"
)

type RouterDeps struct {
	Ranking     *ranking.Service
	Explanation *explanation.Service
	Model       *scoring.Service
	Data        *dataset.Store
	Source      dataset.Source
	DefaultTop  int
	Logger      *slog.Logger
	// Fallbacks reports how many distance lookups fell back to haversine.
	// Nil when no remote provider is configured.
	Fallbacks func() int64
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(deps.Logger), middleware.Recovery(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")

	api.GET("/diagnostics", func(c *gin.Context) {
		var fallbacks int64
		if deps.Fallbacks != nil {
			fallbacks = deps.Fallbacks()
		}
		c.JSON(http.StatusOK, gin.H{
			"distanceFallbacks":  fallbacks,
			"remoteDistance":     deps.Fallbacks != nil,
			"coefficientVersion": deps.Model.Snapshot().Version,
			"datasetsLoadedAt":   deps.Data.Snapshot().LoadedAt,
		})
	})

	rankingHandler := handlers.NewRankingHandler(deps.Ranking, deps.Data, deps.DefaultTop)
	api.GET("/drivers/:id/rides/ranked", rankingHandler.Ranked)
	api.POST("/drivers/:id/rides/rank", rankingHandler.Rank)

	explanationHandler := handlers.NewExplanationHandler(deps.Explanation)
	api.GET("/drivers/:id/rides/:rideId/explain", explanationHandler.Explain)

	modelHandler := handlers.NewModelHandler(deps.Model, deps.Ranking)
	api.GET("/model/coefficients", modelHandler.Get)
	api.PUT("/model/coefficients", modelHandler.Put)
	api.GET("/model/versions", modelHandler.Versions)
	api.POST("/model/train", modelHandler.Train)

	datasetHandler := handlers.NewDatasetHandler(deps.Data, deps.Source)
	api.GET("/datasets", datasetHandler.Get)
	api.POST("/datasets/reload", datasetHandler.Reload)

	return r
}
