package complaint

import (
	"context"
	"fmt"
	"log"
	"strings"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/storage"
)

// FeedbackInput is a citizen's answer to the post-closure questionnaire.
type FeedbackInput struct {
	Satisfaction  int    `json:"satisfaction"`
	Timeliness    int    `json:"timeliness"`
	Communication int    `json:"communication"`
	LikedMost     string `json:"likedMost"`
	Improvement   string `json:"improvement"`
	Suggestion    string `json:"suggestion"`
}

// SubmitFeedback records feedback on a closed complaint by the citizen who filed it.
func (s *Service) SubmitFeedback(ctx context.Context, actor models.Actor, complaintID string, in FeedbackInput) (*models.Feedback, error) {
	if actor.Type != models.ActorCitizen {
		return nil, apperrors.NewAuthorizationError(actor.ID, "only citizens can leave feedback")
	}

	f := &models.Feedback{
		ComplaintID:   complaintID,
		UserID:        actor.ID,
		Satisfaction:  in.Satisfaction,
		Timeliness:    in.Timeliness,
		Communication: in.Communication,
		LikedMost:     strings.TrimSpace(in.LikedMost),
		Improvement:   strings.TrimSpace(in.Improvement),
		Suggestion:    strings.TrimSpace(in.Suggestion),
	}
	for _, r := range []struct {
		field string
		value int
	}{
		{"satisfaction", f.Satisfaction},
		{"timeliness", f.Timeliness},
		{"communication", f.Communication},
	} {
		if r.value < 0 || r.value > 5 {
			return nil, apperrors.NewValidationError(r.field, "rating must be between 1 and 5")
		}
	}
	if f.Empty() {
		return nil, apperrors.NewValidationError("feedback", "answer at least one question")
	}

	c, err := s.Storage.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.SubmittedBy != actor.ID {
		return nil, apperrors.NewAuthorizationError(actor.ID, "complaint is outside your scope")
	}
	if !c.Status.Terminal() {
		return nil, apperrors.NewValidationError("complaint", fmt.Sprintf("feedback opens once the complaint is closed (status %s)", c.Status))
	}

	f.City = c.City
	f.CreatedAt = s.Now()
	if err := s.Storage.CreateFeedback(ctx, f); err != nil {
		return nil, err
	}

	log.Printf("INFO: Feedback %s left on complaint %s by %s", f.ID, c.ID, actor.ID)
	return f, nil
}

// FeedbackReport returns one page of the feedback inside an administrator's scope.
func (s *Service) FeedbackReport(ctx context.Context, actor models.Actor, p storage.FeedbackPage) (models.FeedbackReport, error) {
	sc, err := s.adminScope(actor)
	if err != nil {
		return models.FeedbackReport{}, err
	}

	p = p.Normalize()
	rows, total, err := s.Storage.ListFeedback(ctx, sc, p)
	if err != nil {
		return models.FeedbackReport{}, err
	}

	report := models.FeedbackReport{
		Feedbacks:  make([]models.FeedbackItem, 0, len(rows)),
		Pagination: models.Pagination{Page: p.Page, Limit: p.Limit, Total: total},
	}
	for i := range rows {
		fb := &rows[i]
		item := models.FeedbackItem{
			ID:          fb.ID,
			ComplaintID: fb.ComplaintID,
			Username:    "Unknown",
			Email:       "N/A",
			City:        fb.City,
			Message:     fb.Message(),
			CreatedAt:   fb.CreatedAt,
		}
		if fb.User != nil {
			if fb.User.Name != "" {
				item.Username = fb.User.Name
			}
			if fb.User.Email != "" {
				item.Email = fb.User.Email
			}
		}
		report.Feedbacks = append(report.Feedbacks, item)
	}
	return report, nil
}
