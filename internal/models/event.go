package models

import "time"

// EventType names a complaint change broadcast to the live feed.
type EventType string

const (
	EventCreated   EventType = "complaint_created"
	EventStatus    EventType = "status_changed"
	EventAssigned  EventType = "labour_assigned"
	EventEvidence  EventType = "evidence_recorded"
	EventNoteAdded EventType = "note_added"
)

// ComplaintEvent is published after a complaint mutation commits.
// It carries the scoping attributes so subscribers can filter without a lookup.
type ComplaintEvent struct {
	Type           EventType `json:"type"`
	ComplaintID    string    `json:"complaint_id"`
	Title          string    `json:"title"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previous_status,omitempty"`
	City           string    `json:"city"`
	SubmittedBy    string    `json:"submitted_by"`
	AssignedLabour string    `json:"assigned_labour,omitempty"`
	ActorID        string    `json:"actor_id"`
	Note           string    `json:"note,omitempty"`
	At             time.Time `json:"at"`
}

// NewComplaintEvent builds an event from the committed complaint state. since is
// the history length before the mutation; the note is carried only when the
// mutation appended an entry.
func NewComplaintEvent(t EventType, c *Complaint, previous Status, actor Actor, since int) ComplaintEvent {
	ev := ComplaintEvent{
		Type:           t,
		ComplaintID:    c.ID,
		Title:          c.Title,
		Status:         c.Status,
		City:           c.City,
		SubmittedBy:    c.SubmittedBy,
		AssignedLabour: c.AssignedLabour,
		ActorID:        actor.ID,
		At:             c.UpdatedAt,
	}
	if previous != c.Status {
		ev.PreviousStatus = previous
	}
	if last, ok := c.LastEntry(); ok && len(c.StatusHistory) > since {
		ev.Note = last.Note
	}
	return ev
}
