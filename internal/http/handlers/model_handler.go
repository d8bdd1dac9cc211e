// README: Model handlers for reading, replacing and training coefficients.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridescore/internal/modules/ranking"
	"ridescore/internal/modules/scoring"
)

const (
	defaultLearningRate = 0.01
	maxEpochs           = 1000
)

type ModelHandler struct {
	model   *scoring.Service
	ranking *ranking.Service
}

func NewModelHandler(model *scoring.Service, ranking *ranking.Service) *ModelHandler {
	return &ModelHandler{model: model, ranking: ranking}
}

func (h *ModelHandler) Get(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.model.Snapshot())
}

// Put replaces the coefficient set. The body is a JSON (or YAML) object with
// the intercept and feature weights; omitted keys are zero.
func (h *ModelHandler) Put(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		writeError(c, http.StatusBadRequest, "missing body")
		return
	}
	coeffs, err := scoring.ParseCoefficients(body)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := h.model.Update(c.Request.Context(), coeffs, "api")
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, snap)
}

func (h *ModelHandler) Versions(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}
	versions, err := h.model.History(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if versions == nil {
		versions = []scoring.Version{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"versions": versions})
}

type trainReq struct {
	Rate   float64 `json:"rate"`
	Epochs int     `json:"epochs"`
}

// Train runs gradient-descent epochs over labelled historical rides.
func (h *ModelHandler) Train(c *gin.Context) {
	req := trainReq{Rate: defaultLearningRate, Epochs: 1}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if req.Epochs <= 0 || req.Epochs > maxEpochs {
		writeError(c, http.StatusBadRequest, "epochs must be between 1 and 1000")
		return
	}

	ctx := c.Request.Context()
	examples, failures, err := h.ranking.TrainingExamples(ctx)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	var snap *scoring.Snapshot
	for i := 0; i < req.Epochs; i++ {
		snap, err = h.model.Train(ctx, examples, req.Rate)
		if err != nil {
			writeServiceError(c, err)
			return
		}
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"model":    snap,
		"examples": len(examples),
		"epochs":   req.Epochs,
		"skipped":  failures,
	})
}
