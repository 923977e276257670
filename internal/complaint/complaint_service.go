// Package complaint provides the engine operations on complaints: creation,
// status transitions, labour assignment and evidence recording, plus scoped reads.
//
// Every operation takes the acting identity explicitly. Mutations run through
// storage.MutateComplaint so the scope check, the lifecycle rules and the write
// happen under the same per-complaint lock.
package complaint

import (
	"context"
	"log"
	"strings"
	"time"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/lifecycle"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"
	"fixitfast/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage
	Events  storage.EventBus
	Now     func() time.Time
}

// NewService creates a new complaint service. events may be nil.
func NewService(s storage.Storage, events storage.EventBus) *Service {
	return &Service{
		Storage: s,
		Events:  events,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewComplaint holds the citizen-supplied fields of a complaint.
type NewComplaint struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Priority    models.Priority `json:"priority"`
	Attachments []string        `json:"attachments"`
}

// EvidenceItem is one image of an evidence batch.
type EvidenceItem struct {
	Kind     models.EvidenceKind `json:"kind"`
	AssetRef string              `json:"assetRef"`
}

// CreateComplaint files a new complaint for a citizen. Location fields are copied
// from the citizen's profile.
func (s *Service) CreateComplaint(ctx context.Context, actor models.Actor, in NewComplaint) (*models.Complaint, error) {
	if actor.Type != models.ActorCitizen {
		return nil, apperrors.NewAuthorizationError(actor.ID, "only citizens can file complaints")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "must not be empty")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("priority", "unknown priority "+string(priority))
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "Other"
	}

	citizen, err := s.Storage.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	c := &models.Complaint{
		ID:          uuid.New().String(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Priority:    priority,
		City:        citizen.City,
		District:    citizen.District,
		Pincode:     citizen.Pincode,
		SubmittedBy: actor.ID,
	}
	if len(in.Attachments) > 0 {
		c.Attachments = pq.StringArray(in.Attachments)
	}
	lifecycle.Start(c, actor, s.Now())

	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, err
	}

	log.Printf("INFO: Complaint %s filed by citizen %s", c.ID, actor.ID)
	s.publish(ctx, models.NewComplaintEvent(models.EventCreated, c, "", actor, 0))
	return c, nil
}

// GetComplaint returns a single complaint with history and evidence if it is inside
// the actor's scope.
func (s *Service) GetComplaint(ctx context.Context, actor models.Actor, id string) (*models.Complaint, error) {
	sc, err := scope.For(actor)
	if err != nil {
		return nil, err
	}

	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sc.Allows(c) {
		return nil, apperrors.NewAuthorizationError(actor.ID, "complaint is outside your scope")
	}
	return c, nil
}

// ListComplaints returns the complaints visible to the actor that match f.
func (s *Service) ListComplaints(ctx context.Context, actor models.Actor, f storage.ComplaintFilter) ([]models.Complaint, error) {
	sc, err := scope.For(actor)
	if err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.NewValidationError("status", "unknown status "+string(f.Status))
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, apperrors.NewValidationError("priority", "unknown priority "+string(f.Priority))
	}
	return s.Storage.ListComplaints(ctx, sc, f)
}

// ListLabour returns the active labour the actor may assign.
func (s *Service) ListLabour(ctx context.Context, actor models.Actor) ([]models.User, error) {
	if actor.Type == models.ActorCitizen {
		return nil, apperrors.NewAuthorizationError(actor.ID, "citizens cannot list labour")
	}
	sc, err := scope.For(actor)
	if err != nil {
		return nil, err
	}
	return s.Storage.ListLabour(ctx, sc)
}

// TransitionStatus moves a complaint to target, or appends a note-only entry when
// target equals the current status.
func (s *Service) TransitionStatus(ctx context.Context, actor models.Actor, id string, target models.Status, note string) (*models.Complaint, error) {
	sc, err := s.adminScope(actor)
	if err != nil {
		return nil, err
	}

	var previous models.Status
	var since int
	c, err := s.Storage.MutateComplaint(ctx, id, func(c *models.Complaint) error {
		if !sc.Allows(c) {
			return apperrors.NewAuthorizationError(actor.ID, "complaint is outside your scope")
		}
		previous, since = c.Status, len(c.StatusHistory)
		err := lifecycle.Apply(c, lifecycle.Change{
			Target:  target,
			Actor:   actor,
			Trigger: models.TriggerAdmin,
			Note:    note,
			At:      s.Now(),
		})
		if err != nil {
			return err
		}
		return lifecycle.Verify(c)
	})
	if err != nil {
		return nil, err
	}

	evType := models.EventStatus
	if previous == c.Status {
		evType = models.EventNoteAdded
	}
	log.Printf("INFO: Complaint %s %s -> %s by %s", c.ID, previous, c.Status, actor.ID)
	s.publish(ctx, models.NewComplaintEvent(evType, c, previous, actor, since))
	return c, nil
}

// AssignLabour attaches a labour actor to a complaint. A Pending complaint moves to
// Assigned; reassignment keeps the current status.
func (s *Service) AssignLabour(ctx context.Context, actor models.Actor, id, labourID string) (*models.Complaint, error) {
	sc, err := s.adminScope(actor)
	if err != nil {
		return nil, err
	}

	labourID = strings.TrimSpace(labourID)
	if labourID == "" {
		return nil, apperrors.NewValidationError("labourId", "must not be empty")
	}
	labour, err := s.Storage.GetUserByID(ctx, labourID)
	if err != nil {
		return nil, err
	}
	if labour.Role != models.ActorLabour {
		return nil, apperrors.NewValidationError("labourId", "user is not a labour account")
	}
	if !labour.Active {
		return nil, apperrors.NewValidationError("labourId", "labour account is inactive")
	}

	var previous models.Status
	var since int
	var changed bool
	c, err := s.Storage.MutateComplaint(ctx, id, func(c *models.Complaint) error {
		if !sc.Allows(c) {
			return apperrors.NewAuthorizationError(actor.ID, "complaint is outside your scope")
		}
		if !sc.IsUnrestricted() && !scope.SameCity(labour.City, c.City) {
			return apperrors.NewAuthorizationError(actor.ID, "labour works in a different city")
		}
		previous, since = c.Status, len(c.StatusHistory)
		var err error
		changed, err = lifecycle.Assign(c, labour.ID, actor, s.Now())
		if err != nil {
			return err
		}
		return lifecycle.Verify(c)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		log.Printf("INFO: Complaint %s assigned to labour %s by %s", c.ID, labour.ID, actor.ID)
		s.publish(ctx, models.NewComplaintEvent(models.EventAssigned, c, previous, actor, since))
	}
	return c, nil
}

// RecordEvidence attaches a single image. See RecordEvidenceBatch.
func (s *Service) RecordEvidence(ctx context.Context, actor models.Actor, id string, kind models.EvidenceKind, assetRef string) (*models.Complaint, error) {
	return s.RecordEvidenceBatch(ctx, actor, id, []EvidenceItem{{Kind: kind, AssetRef: assetRef}})
}

// RecordEvidenceBatch attaches images uploaded by the assigned labour and then lets
// the lifecycle derive automatic transitions. The evidence is stored whatever the
// complaint's status; a failed automatic transition is logged, not returned.
func (s *Service) RecordEvidenceBatch(ctx context.Context, actor models.Actor, id string, items []EvidenceItem) (*models.Complaint, error) {
	if actor.Type != models.ActorLabour {
		return nil, apperrors.NewAuthorizationError(actor.ID, "only the assigned labour can upload evidence")
	}
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("items", "at least one image is required")
	}
	for _, it := range items {
		if !it.Kind.Valid() {
			return nil, apperrors.NewValidationError("kind", "must be before or after")
		}
		if strings.TrimSpace(it.AssetRef) == "" {
			return nil, apperrors.NewValidationError("assetRef", "must not be empty")
		}
	}

	var previous models.Status
	var since int
	var entered []models.Status
	c, err := s.Storage.MutateComplaint(ctx, id, func(c *models.Complaint) error {
		if c.AssignedLabour == "" || c.AssignedLabour != actor.ID {
			return apperrors.NewAuthorizationError(actor.ID, "complaint is not assigned to you")
		}
		if !c.HasEvidence(models.EvidenceBefore) && !batchHas(items, models.EvidenceBefore) && batchHas(items, models.EvidenceAfter) {
			return apperrors.NewValidationError("kind", "an after image requires a before image")
		}

		at := s.Now()
		kinds := make([]models.EvidenceKind, 0, len(items))
		for _, it := range items {
			c.Evidence = append(c.Evidence, models.Evidence{
				ID:          uuid.New().String(),
				ComplaintID: c.ID,
				Kind:        it.Kind,
				AssetRef:    strings.TrimSpace(it.AssetRef),
				UploadedBy:  actor.ID,
				UploadedAt:  at,
			})
			kinds = append(kinds, it.Kind)
		}

		previous, since = c.Status, len(c.StatusHistory)
		var err error
		entered, err = lifecycle.OnEvidenceRecorded(c, lifecycle.EvidenceRecorded{
			ComplaintID: c.ID,
			LabourID:    actor.ID,
			Kinds:       kinds,
			At:          at,
		})
		if err != nil {
			log.Printf("WARNING: Automatic transition for complaint %s skipped: %v", c.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(entered) > 0 {
		log.Printf("INFO: Complaint %s moved %s -> %s by evidence", c.ID, previous, c.Status)
	}
	s.publish(ctx, models.NewComplaintEvent(models.EventEvidence, c, previous, actor, since))
	return c, nil
}

func batchHas(items []EvidenceItem, kind models.EvidenceKind) bool {
	for _, it := range items {
		if it.Kind == kind {
			return true
		}
	}
	return false
}

func (s *Service) adminScope(actor models.Actor) (scope.Scope, error) {
	if !actor.IsAdmin() {
		return scope.Scope{}, apperrors.NewAuthorizationError(actor.ID, "only administrators can change complaints")
	}
	return scope.For(actor)
}

func (s *Service) publish(ctx context.Context, ev models.ComplaintEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, ev); err != nil {
		log.Printf("WARNING: Event %s for complaint %s not delivered: %v", ev.Type, ev.ComplaintID, err)
	}
}
