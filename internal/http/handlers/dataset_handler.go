// README: Dataset handler; reloads the record sets from the configured source.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridescore/internal/modules/dataset"
)

type DatasetHandler struct {
	store  *dataset.Store
	source dataset.Source
}

func NewDatasetHandler(store *dataset.Store, source dataset.Source) *DatasetHandler {
	return &DatasetHandler{store: store, source: source}
}

type datasetSummary struct {
	History  int       `json:"history"`
	Users    int       `json:"users"`
	Rides    int       `json:"rides"`
	LoadedAt time.Time `json:"loadedAt"`
}

func summarize(s *dataset.Snapshot) datasetSummary {
	return datasetSummary{History: len(s.History), Users: len(s.Users), Rides: len(s.Rides), LoadedAt: s.LoadedAt}
}

func (h *DatasetHandler) Get(c *gin.Context) {
	writeJSON(c, http.StatusOK, summarize(h.store.Snapshot()))
}

func (h *DatasetHandler) Reload(c *gin.Context) {
	if h.source == nil {
		writeError(c, http.StatusServiceUnavailable, "no dataset source configured")
		return
	}
	snap, err := h.store.Reload(c.Request.Context(), h.source)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "dataset reload failed")
		return
	}
	writeJSON(c, http.StatusOK, summarize(snap))
}
