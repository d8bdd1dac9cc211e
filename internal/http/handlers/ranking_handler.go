// README: Ranking handlers for top recommendations and ad-hoc candidate ranking.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridescore/internal/modules/dataset"
	"ridescore/internal/modules/ranking"
	"ridescore/internal/types"
)

type RankingHandler struct {
	ranking    *ranking.Service
	data       *dataset.Store
	defaultTop int
}

func NewRankingHandler(svc *ranking.Service, data *dataset.Store, defaultTop int) *RankingHandler {
	return &RankingHandler{ranking: svc, data: data, defaultTop: defaultTop}
}

// Ranked serves GET /api/drivers/:id/rides/ranked?n=&filter=
func (h *RankingHandler) Ranked(c *gin.Context) {
	userID := c.Param("id")
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	n := h.defaultTop
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(c, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		n = v
	}
	filter, err := ranking.CompileFilter(c.Query("filter"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.ranking.TopRecommendations(c.Request.Context(), types.ID(userID), n, ranking.Options{
		Filter:       filter,
		AllOrNothing: c.Query("all_or_nothing") == "true",
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type rankReq struct {
	// RideIDs reference rides already loaded (open rides or history).
	RideIDs []string `json:"ride_ids"`
	// Rides are caller-supplied records keyed by dataset column name.
	Rides  []map[string]any `json:"rides"`
	Filter string           `json:"filter"`
}

// Rank serves POST /api/drivers/:id/rides/rank
func (h *RankingHandler) Rank(c *gin.Context) {
	userID := c.Param("id")
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	var req rankReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.RideIDs) == 0 && len(req.Rides) == 0 {
		writeError(c, http.StatusBadRequest, "ride_ids or rides required")
		return
	}

	snap := h.data.Snapshot()
	candidates := make([]dataset.Ride, 0, len(req.RideIDs)+len(req.Rides))
	for _, id := range req.RideIDs {
		ride, err := snap.Ride(types.ID(id))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		candidates = append(candidates, ride)
	}
	for i, raw := range req.Rides {
		ride, err := dataset.NewRide(toRecord(raw))
		if err != nil {
			writeError(c, http.StatusBadRequest, fmt.Sprintf("rides[%d]: %v", i, err))
			return
		}
		candidates = append(candidates, ride)
	}

	filter, err := ranking.CompileFilter(req.Filter)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.ranking.Rank(c.Request.Context(), types.ID(userID), candidates, ranking.Options{
		Filter:       filter,
		AllOrNothing: c.Query("all_or_nothing") == "true",
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// toRecord flattens decoded JSON values into the string record shape the
// CSV loader produces.
func toRecord(raw map[string]any) dataset.Record {
	rec := make(dataset.Record, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			rec[k] = val
		case float64:
			rec[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			rec[k] = strconv.FormatBool(val)
		default:
			rec[k] = fmt.Sprint(val)
		}
	}
	return rec
}
