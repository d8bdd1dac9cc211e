// README: Explanation handler; per-feature attribution for one driver and ride.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridescore/internal/modules/explanation"
	"ridescore/internal/types"
)

type ExplanationHandler struct {
	explanation *explanation.Service
}

func NewExplanationHandler(svc *explanation.Service) *ExplanationHandler {
	return &ExplanationHandler{explanation: svc}
}

// Explain serves GET /api/drivers/:id/rides/:rideId/explain[?format=text][&narrate=true]
func (h *ExplanationHandler) Explain(c *gin.Context) {
	userID, rideID := c.Param("id"), c.Param("rideId")
	if !isValidID(userID) || !isValidID(rideID) {
		writeError(c, http.StatusBadRequest, "invalid id")
		return
	}
	report, err := h.explanation.Explain(c.Request.Context(), types.ID(userID), types.ID(rideID))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if c.Query("narrate") == "true" {
		h.explanation.Narrate(c.Request.Context(), report)
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, report.String())
		return
	}
	writeJSON(c, http.StatusOK, report)
}
