package matching

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobpilot-backend/internal/shared/server/middleware"
	"jobpilot-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the match queue and the skill-gap bridge.
type Handler struct {
	Queue  *QueueManager
	Bridge *Bridge
}

// NewHandler constructs a Handler.
func NewHandler(queue *QueueManager, bridge *Bridge) *Handler {
	return &Handler{Queue: queue, Bridge: bridge}
}

// RegisterRoutes attaches match routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/matches", h.listMatches)
	rg.POST("/matches/:id/decide", h.decideMatch)
	rg.POST("/skills/complete", h.skillCompleted)
}

func (h *Handler) listMatches(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	matches, err := h.Queue.ListSurfaced(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list matches", nil)
		return
	}

	items := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchResponse(m))
	}
	respond.JSON(c, http.StatusOK, gin.H{"matches": items})
}

type decideRequest struct {
	Decision string `json:"decision" binding:"required"`
	Reason   string `json:"reason"`
	Channel  string `json:"channel"`
}

func (h *Handler) decideMatch(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	matchID := c.Param("id")
	c.Set("matchId", matchID)

	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "decision is required", nil)
		return
	}
	decision, err := ParseDecision(req.Decision)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "decision must be APPROVED or REJECTED", nil)
		return
	}

	m, err := h.Queue.Repo.GetByID(c.Request.Context(), matchID)
	if err != nil || m.UserID != userID {
		respond.Error(c, http.StatusNotFound, "not_found", "match not found", nil)
		return
	}

	outcome, err := h.Queue.Decide(c.Request.Context(), matchID, decision, req.Reason, req.Channel)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "match not found", nil)
		case errors.Is(err, ErrAlreadyDecided):
			respond.Error(c, http.StatusConflict, "already_decided", "match has already been decided", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to decide match", nil)
		}
		return
	}

	resp := gin.H{"match": matchResponse(outcome.Match)}
	if outcome.ApplicationID != "" {
		resp["applicationId"] = outcome.ApplicationID
	}
	respond.JSON(c, http.StatusOK, resp)
}

type skillCompletedRequest struct {
	Skill string `json:"skill" binding:"required"`
}

func (h *Handler) skillCompleted(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req skillCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "skill is required", nil)
		return
	}

	updated, err := h.Bridge.SkillCompleted(c.Request.Context(), userID, req.Skill)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to re-score matches", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"rescored": updated})
}

func matchResponse(m Match) gin.H {
	return gin.H{
		"id":        m.ID,
		"postingId": m.PostingID,
		"score":     m.Score,
		"reasoning": m.Reasoning,
		"skillGaps": m.SkillGaps,
		"status":    string(m.Status),
		"scrapedAt": m.ScrapedAt,
		"createdAt": m.CreatedAt,
	}
}
