package config

import "fixitfast/backend/internal/models"

const (
	// Dashboards
	CitizenRecentComplaints = 5
	AdminRecentComplaints   = 10
	AdminTopCategories      = 10

	// Listing
	DefaultListLimit = 50
	MaxListLimit     = 200

	// Audit notes written by the system
	NoteCreated        = "Complaint submitted"
	NoteAutoInProgress = "Work started: before evidence uploaded"
	NoteAutoResolved   = "Work completed: after evidence uploaded"
	NoteReassigned     = "Labour reassigned"
)

// NoteRequired lists the target statuses that cannot be entered without a note.
var NoteRequired = map[models.Status]bool{
	models.StatusRejected: true,
}
