package handler

import (
	"net/http"

	"fixitfast/backend/internal/analysis"
	"fixitfast/backend/internal/complaint"
	"fixitfast/backend/internal/feed"
	"fixitfast/backend/internal/identity"

	"github.com/gin-gonic/gin"
)

// Handler wires the engine services to HTTP.
type Handler struct {
	Complaints *complaint.Service
	Dashboards *analysis.Engine
	Identity   *identity.Resolver
	Hub        *feed.ManagerService
}

func NewHandler(complaints *complaint.Service, dashboards *analysis.Engine, resolver *identity.Resolver, hub *feed.ManagerService) *Handler {
	return &Handler{
		Complaints: complaints,
		Dashboards: dashboards,
		Identity:   resolver,
		Hub:        hub,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api", h.RequireAuth)
	{
		api.POST("/complaints", h.CreateComplaint)
		api.GET("/complaints", h.ListComplaints)
		api.GET("/complaints/:id", h.GetComplaint)
		api.POST("/complaints/:id/status", h.TransitionStatus)
		api.POST("/complaints/:id/assign", h.AssignLabour)
		api.POST("/complaints/:id/evidence", h.RecordEvidence)
		api.POST("/complaints/:id/feedback", h.SubmitFeedback)
		api.GET("/dashboard", h.Dashboard)
		api.GET("/labour", h.ListLabour)
		api.GET("/admin/feedbacks", h.FeedbackReport)
	}

	r.GET("/ws/feed", h.RequireAuth, h.ServeFeed)
}

// Health reports that the process is up.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
