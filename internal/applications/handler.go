package applications

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobpilot-backend/internal/matching"
	"jobpilot-backend/internal/shared/server/middleware"
	"jobpilot-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the applications service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches application routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/applications", h.listApplications)
	rg.POST("/applications", h.createApplication)
	rg.GET("/applications/:id", h.getApplication)
	rg.GET("/applications/:id/events", h.listEvents)
	rg.PATCH("/applications/:id", h.editApplication)
	rg.POST("/applications/:id/send", h.sendApplication)
	rg.POST("/applications/:id/withdraw", h.withdrawApplication)
}

// RegisterTrackingRoutes attaches the channel callback route. Tracking
// callbacks arrive from delivery channels, not from the user's gateway
// session, so the route skips identity middleware.
func (h *Handler) RegisterTrackingRoutes(rg *gin.RouterGroup) {
	rg.POST("/tracking/:channel", h.trackEvent)
}

func (h *Handler) listApplications(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	apps, err := h.Svc.List(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list applications", nil)
		return
	}

	items := make([]gin.H, 0, len(apps))
	for _, app := range apps {
		items = append(items, applicationResponse(app))
	}
	respond.JSON(c, http.StatusOK, gin.H{"applications": items})
}

type createRequest struct {
	MatchID     string `json:"matchId" binding:"required"`
	Channel     string `json:"channel"`
	CoverLetter string `json:"coverLetter"`
	Message     string `json:"message"`
}

func (h *Handler) createApplication(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "matchId is required", nil)
		return
	}
	if req.Channel != "" {
		if _, err := ParseChannel(req.Channel); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "channel must be email or linkedin", nil)
			return
		}
	}

	app, err := h.Svc.Create(c.Request.Context(), userID, req.MatchID, req.Channel, req.CoverLetter, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "match not found", nil)
		case errors.Is(err, ErrMatchNotApproved):
			respond.Error(c, http.StatusConflict, "match_not_approved", "match must be approved before applying", nil)
		case errors.Is(err, ErrMatchAlreadyApplied):
			respond.Error(c, http.StatusConflict, "already_applied", "match already has an application", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create application", nil)
		}
		return
	}

	c.Set("applicationId", app.ID)
	respond.JSON(c, http.StatusCreated, gin.H{"application": applicationResponse(app)})
}

func (h *Handler) getApplication(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set("applicationId", id)

	app, err := h.Svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondApplicationError(c, err, "failed to fetch application")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"application": applicationResponse(app)})
}

func (h *Handler) listEvents(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set("applicationId", id)

	events, err := h.Svc.Events(c.Request.Context(), userID, id)
	if err != nil {
		respondApplicationError(c, err, "failed to fetch events")
		return
	}

	items := make([]gin.H, 0, len(events))
	for _, e := range events {
		items = append(items, gin.H{
			"from":      string(e.FromStatus),
			"to":        string(e.ToStatus),
			"detail":    e.Detail,
			"createdAt": e.CreatedAt,
		})
	}
	respond.JSON(c, http.StatusOK, gin.H{"events": items})
}

type editRequest struct {
	CoverLetter string `json:"coverLetter"`
	Message     string `json:"message"`
}

func (h *Handler) editApplication(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set("applicationId", id)

	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	app, err := h.Svc.EditContent(c.Request.Context(), userID, id, req.CoverLetter, req.Message)
	if err != nil {
		respondApplicationError(c, err, "failed to update application")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"application": applicationResponse(app)})
}

type sendRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *Handler) sendApplication(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set("applicationId", id)

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		respond.Error(c, http.StatusBadRequest, "confirmation_required", "send requires confirm=true", nil)
		return
	}

	if err := h.Svc.EnqueueSend(c.Request.Context(), userID, id); err != nil {
		respondApplicationError(c, err, "failed to send application")
		return
	}
	respond.Accepted(c, gin.H{"applicationId": id, "status": "dispatching"})
}

func (h *Handler) withdrawApplication(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set("applicationId", id)

	app, err := h.Svc.Withdraw(c.Request.Context(), userID, id)
	if err != nil {
		respondApplicationError(c, err, "failed to withdraw application")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"application": applicationResponse(app)})
}

type trackRequest struct {
	ApplicationID string `json:"applicationId" binding:"required"`
	Event         string `json:"event" binding:"required"`
}

func (h *Handler) trackEvent(c *gin.Context) {
	channel := c.Param("channel")

	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "applicationId and event are required", nil)
		return
	}
	c.Set("applicationId", req.ApplicationID)

	app, err := h.Svc.Track(c.Request.Context(), channel, req.ApplicationID, req.Event)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			respond.Error(c, http.StatusConflict, "invalid_transition", "event not valid for application state", nil)
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid tracking event", nil)
		}
		return
	}

	c.Set("statusTransition", string(app.Status))
	respond.JSON(c, http.StatusOK, gin.H{"application": applicationResponse(app)})
}

func respondApplicationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
	case errors.Is(err, ErrNotEditable):
		respond.Error(c, http.StatusConflict, "not_editable", "application is no longer editable", nil)
	case errors.Is(err, ErrAlreadySent):
		respond.Error(c, http.StatusConflict, "already_sent", "application has already been sent", nil)
	case errors.Is(err, ErrNotWithdrawable):
		respond.Error(c, http.StatusConflict, "not_withdrawable", "application can no longer be withdrawn", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func applicationResponse(app Application) gin.H {
	resp := gin.H{
		"id":          app.ID,
		"matchId":     app.MatchID,
		"postingId":   app.PostingID,
		"channel":     string(app.Channel),
		"status":      string(app.Status),
		"coverLetter": app.CoverLetter,
		"message":     app.Message,
		"attempts":    app.Attempts,
		"createdAt":   app.CreatedAt,
		"updatedAt":   app.UpdatedAt,
	}
	if app.SentAt != nil {
		resp["sentAt"] = app.SentAt
	}
	if app.RetryAt != nil {
		resp["retryAt"] = app.RetryAt
	}
	return resp
}
