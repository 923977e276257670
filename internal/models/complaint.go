package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusRejected   Status = "Rejected"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusAssigned, StatusInProgress, StatusResolved, StatusRejected}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// RequiresLabour reports whether a complaint in status s must have labour assigned.
func (s Status) RequiresLabour() bool {
	return s == StatusAssigned || s == StatusInProgress || s == StatusResolved
}

// Priority of a complaint as chosen by the citizen.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Complaint is a citizen-submitted civic complaint.
// City, District and Pincode are copied from the citizen profile at creation time
// and never change afterwards.
type Complaint struct {
	ID          string   `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string   `gorm:"type:text;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Category    string   `gorm:"type:varchar(64);index" json:"category"`
	Priority    Priority `gorm:"type:varchar(16);index" json:"priority"`
	Status      Status   `gorm:"type:varchar(32);index;not null" json:"status"`

	City     string `gorm:"type:varchar(128);index" json:"city"`
	District string `gorm:"type:varchar(128)" json:"district"`
	Pincode  string `gorm:"type:varchar(16)" json:"pincode"`

	SubmittedBy    string         `gorm:"type:uuid;index;not null" json:"submittedBy"`
	AssignedLabour string         `gorm:"type:text;index" json:"assignedLabour,omitempty"`
	Attachments    pq.StringArray `gorm:"type:text[]" json:"attachments,omitempty"`

	StatusHistory []StatusEntry `gorm:"foreignKey:ComplaintID" json:"statusHistory"`
	Evidence      []Evidence    `gorm:"foreignKey:ComplaintID" json:"evidence"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the complaint has none yet.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// Clone returns a deep copy of the complaint, including history and evidence.
func (c *Complaint) Clone() *Complaint {
	out := *c
	if c.Attachments != nil {
		out.Attachments = append(pq.StringArray(nil), c.Attachments...)
	}
	if c.StatusHistory != nil {
		out.StatusHistory = append([]StatusEntry(nil), c.StatusHistory...)
	}
	if c.Evidence != nil {
		out.Evidence = append([]Evidence(nil), c.Evidence...)
	}
	return &out
}

// LastEntry returns the most recent status history entry.
func (c *Complaint) LastEntry() (StatusEntry, bool) {
	if len(c.StatusHistory) == 0 {
		return StatusEntry{}, false
	}
	return c.StatusHistory[len(c.StatusHistory)-1], true
}

// HasEvidence reports whether at least one image of the given kind is attached.
func (c *Complaint) HasEvidence(kind EvidenceKind) bool {
	for _, e := range c.Evidence {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Trigger records what caused a status history entry.
type Trigger string

const (
	TriggerCitizen Trigger = "citizen"
	TriggerAdmin   Trigger = "admin"
	TriggerAuto    Trigger = "auto"
)

// StatusEntry is one append-only row of a complaint's audit trail.
type StatusEntry struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	ComplaintID string    `gorm:"type:uuid;not null;index:idx_complaint_seq,unique" json:"-"`
	Seq         int       `gorm:"not null;index:idx_complaint_seq,unique" json:"seq"`
	Status      Status    `gorm:"type:varchar(32);not null" json:"status"`
	ActorID     string    `gorm:"type:text;not null" json:"actor"`
	ActorType   ActorType `gorm:"type:varchar(16)" json:"actorType"`
	Trigger     Trigger   `gorm:"type:varchar(16)" json:"trigger"`
	Note        string    `gorm:"type:text" json:"note,omitempty"`
	At          time.Time `gorm:"not null" json:"at"`
}

// EvidenceKind tags a progress image as taken before or after the work.
type EvidenceKind string

const (
	EvidenceBefore EvidenceKind = "before"
	EvidenceAfter  EvidenceKind = "after"
)

// Valid reports whether k is before or after.
func (k EvidenceKind) Valid() bool {
	return k == EvidenceBefore || k == EvidenceAfter
}

// Evidence is a progress image uploaded by a labour actor.
type Evidence struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	ComplaintID string       `gorm:"type:uuid;not null;index:idx_evidence_kind" json:"-"`
	Kind        EvidenceKind `gorm:"type:varchar(8);not null;index:idx_evidence_kind" json:"kind"`
	AssetRef    string       `gorm:"type:text;not null" json:"assetRef"`
	UploadedBy  string       `gorm:"type:text;not null;index" json:"uploadedBy"`
	UploadedAt  time.Time    `gorm:"not null" json:"uploadedAt"`
}

// BeforeCreate assigns a UUID when the evidence row has none yet.
func (e *Evidence) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return
}
