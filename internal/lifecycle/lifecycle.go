// Package lifecycle holds the complaint state machine.
//
// All status changes, whether requested by an admin or derived from uploaded
// evidence, go through Apply so the transition table below is the only place the
// rules live. Apply appends the audit entry and moves the status in the same step;
// callers persist the resulting complaint as one write.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/config"
	"fixitfast/backend/internal/models"
)

// transitions maps each non-terminal status to the statuses it may move to.
// Staying in the same status (a note-only update) is handled separately.
var transitions = map[models.Status][]models.Status{
	models.StatusPending:    {models.StatusAssigned, models.StatusRejected},
	models.StatusAssigned:   {models.StatusInProgress, models.StatusRejected},
	models.StatusInProgress: {models.StatusResolved},
}

// autoTargets are the only statuses an evidence-driven transition may enter.
var autoTargets = map[models.Status]bool{
	models.StatusInProgress: true,
	models.StatusResolved:   true,
}

// Allowed reports whether from -> to is in the transition table.
func Allowed(from, to models.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Targets returns the statuses reachable from s, in table order.
func Targets(s models.Status) []models.Status {
	return append([]models.Status(nil), transitions[s]...)
}

// Change is a requested status change.
type Change struct {
	Target  models.Status
	Actor   models.Actor
	Trigger models.Trigger
	Note    string
	At      time.Time
}

// Start initialises a new complaint as Pending with its first audit entry.
func Start(c *models.Complaint, citizen models.Actor, at time.Time) {
	c.Status = ""
	c.StatusHistory = nil
	c.CreatedAt = at
	appendEntry(c, models.StatusPending, citizen, models.TriggerCitizen, config.NoteCreated, at)
}

// Apply validates ch against the current state of c and, if legal, appends one
// history entry and updates the status. On error c is left untouched.
func Apply(c *models.Complaint, ch Change) error {
	from := c.Status
	to := ch.Target

	if from.Terminal() {
		return apperrors.NewTerminalStateError(string(from))
	}
	if !to.Valid() {
		return apperrors.NewInvalidTransitionError(string(from), string(to), "unknown status")
	}
	if to != from && !Allowed(from, to) {
		return apperrors.NewInvalidTransitionError(string(from), string(to), "")
	}
	if ch.Trigger == models.TriggerAuto && !autoTargets[to] {
		return apperrors.NewInvalidTransitionError(string(from), string(to), "not reachable by automatic transition")
	}
	if to.RequiresLabour() && c.AssignedLabour == "" {
		return apperrors.NewInvalidTransitionError(string(from), string(to), "requires assigned labour")
	}

	note := strings.TrimSpace(ch.Note)
	if to != from && config.NoteRequired[to] && note == "" {
		return apperrors.NewMissingNoteError(string(to))
	}

	appendEntry(c, to, ch.Actor, ch.Trigger, note, ch.At)
	return nil
}

// Assign binds labourID to c. A Pending complaint moves to Assigned in the same
// step; an already assigned complaint keeps its status and gets a note-only entry.
// Returns false when labourID was already the assignee.
func Assign(c *models.Complaint, labourID string, admin models.Actor, at time.Time) (bool, error) {
	if c.Status.Terminal() {
		return false, apperrors.NewTerminalStateError(string(c.Status))
	}
	if strings.TrimSpace(labourID) == "" {
		return false, apperrors.NewValidationError("labourId", "must not be empty")
	}
	if c.AssignedLabour == labourID {
		return false, nil
	}

	previous := c.AssignedLabour
	c.AssignedLabour = labourID

	if c.Status == models.StatusPending {
		err := Apply(c, Change{
			Target:  models.StatusAssigned,
			Actor:   admin,
			Trigger: models.TriggerAdmin,
			Note:    fmt.Sprintf("Assigned to %s", labourID),
			At:      at,
		})
		if err != nil {
			c.AssignedLabour = previous
			return false, err
		}
		return true, nil
	}

	appendEntry(c, c.Status, admin, models.TriggerAdmin,
		fmt.Sprintf("%s from %s to %s", config.NoteReassigned, previous, labourID), at)
	return true, nil
}

// EvidenceRecorded is raised after a batch of evidence has been attached to a
// complaint. The lifecycle consumes it to derive automatic transitions.
type EvidenceRecorded struct {
	ComplaintID string
	LabourID    string
	Kinds       []models.EvidenceKind
	At          time.Time
}

// OnEvidenceRecorded applies every automatic transition the evidence now present
// on c allows, in order: Assigned -> In Progress once a before image exists, then
// In Progress -> Resolved once both before and after images exist.
//
// It returns the statuses entered. A complaint whose state admits no automatic
// transition (already Resolved, Pending, ...) is left unchanged without error.
func OnEvidenceRecorded(c *models.Complaint, ev EvidenceRecorded) ([]models.Status, error) {
	var entered []models.Status
	labour := models.Actor{ID: ev.LabourID, Type: models.ActorLabour}

	for {
		target, note, ok := derive(c)
		if !ok {
			return entered, nil
		}
		err := Apply(c, Change{
			Target:  target,
			Actor:   labour,
			Trigger: models.TriggerAuto,
			Note:    note,
			At:      ev.At,
		})
		if err != nil {
			return entered, err
		}
		entered = append(entered, target)
	}
}

func derive(c *models.Complaint) (models.Status, string, bool) {
	hasBefore := c.HasEvidence(models.EvidenceBefore)
	hasAfter := c.HasEvidence(models.EvidenceAfter)

	switch c.Status {
	case models.StatusAssigned:
		if hasBefore {
			return models.StatusInProgress, config.NoteAutoInProgress, true
		}
	case models.StatusInProgress:
		if hasBefore && hasAfter {
			return models.StatusResolved, config.NoteAutoResolved, true
		}
	}
	return "", "", false
}

// Verify checks the structural invariants of a complaint.
func Verify(c *models.Complaint) error {
	last, ok := c.LastEntry()
	if !ok {
		return fmt.Errorf("complaint %s has no status history", c.ID)
	}
	if last.Status != c.Status {
		return fmt.Errorf("complaint %s status %q diverges from history %q", c.ID, c.Status, last.Status)
	}
	if c.Status.RequiresLabour() && c.AssignedLabour == "" {
		return fmt.Errorf("complaint %s is %s without assigned labour", c.ID, c.Status)
	}
	if c.HasEvidence(models.EvidenceAfter) && !c.HasEvidence(models.EvidenceBefore) {
		return fmt.Errorf("complaint %s has after evidence without before evidence", c.ID)
	}
	for i, e := range c.StatusHistory {
		if e.Seq != i+1 {
			return fmt.Errorf("complaint %s history out of order at %d", c.ID, i)
		}
	}
	return nil
}

func appendEntry(c *models.Complaint, status models.Status, actor models.Actor, trigger models.Trigger, note string, at time.Time) {
	c.StatusHistory = append(c.StatusHistory, models.StatusEntry{
		ComplaintID: c.ID,
		Seq:         len(c.StatusHistory) + 1,
		Status:      status,
		ActorID:     actor.ID,
		ActorType:   actor.Type,
		Trigger:     trigger,
		Note:        note,
		At:          at,
	})
	c.Status = status
	c.UpdatedAt = at
}
