package handler

import (
	"net/http"
	"strconv"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/complaint"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status models.Status `json:"status"`
	Note   string        `json:"note"`
}

type assignRequest struct {
	LabourID string `json:"labourId"`
}

type evidenceRequest struct {
	Items []complaint.EvidenceItem `json:"items"`
}

// CreateComplaint files a complaint for the calling citizen.
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req complaint.NewComplaint
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError("body", err.Error()))
		return
	}

	created, err := h.Complaints.CreateComplaint(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListComplaints returns the caller's visible complaints.
func (h *Handler) ListComplaints(c *gin.Context) {
	f := storage.ComplaintFilter{
		Status:   models.Status(c.Query("status")),
		Category: c.Query("category"),
		Priority: models.Priority(c.Query("priority")),
	}

	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		writeError(c, err)
		return
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		writeError(c, err)
		return
	}

	list, err := h.Complaints.ListComplaints(c.Request.Context(), actorFrom(c), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": list, "count": len(list)})
}

// GetComplaint returns one complaint with history and evidence.
func (h *Handler) GetComplaint(c *gin.Context) {
	found, err := h.Complaints.GetComplaint(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// TransitionStatus changes the status or appends a note.
func (h *Handler) TransitionStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError("body", err.Error()))
		return
	}

	updated, err := h.Complaints.TransitionStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// AssignLabour binds a labour actor to the complaint.
func (h *Handler) AssignLabour(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError("body", err.Error()))
		return
	}

	updated, err := h.Complaints.AssignLabour(c.Request.Context(), actorFrom(c), c.Param("id"), req.LabourID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// RecordEvidence stores a batch of progress images.
func (h *Handler) RecordEvidence(c *gin.Context) {
	var req evidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError("body", err.Error()))
		return
	}

	updated, err := h.Complaints.RecordEvidenceBatch(c.Request.Context(), actorFrom(c), c.Param("id"), req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Dashboard returns the role-dependent dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	view, err := h.Dashboards.Dashboard(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListLabour returns the labour the caller may assign.
func (h *Handler) ListLabour(c *gin.Context) {
	users, err := h.Complaints.ListLabour(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labour": users, "count": len(users)})
}

// SubmitFeedback stores the citizen's feedback on a closed complaint.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req complaint.FeedbackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError("body", err.Error()))
		return
	}

	fb, err := h.Complaints.SubmitFeedback(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

// FeedbackReport returns the feedback in the admin's city, one page at a time.
func (h *Handler) FeedbackReport(c *gin.Context) {
	var (
		p   storage.FeedbackPage
		err error
	)
	if p.Page, err = intQuery(c, "page"); err != nil {
		writeError(c, err)
		return
	}
	if p.Limit, err = intQuery(c, "limit"); err != nil {
		writeError(c, err)
		return
	}

	report, err := h.Complaints.FeedbackReport(c.Request.Context(), actorFrom(c), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError(key, "must be a non-negative integer")
	}
	return n, nil
}
