// Package scope computes which complaints, labour and events an actor may see.
//
// A Scope is derived once per request from the actor and then applied at the data
// access layer: as a gorm scope for SQL queries, or as a record predicate for the
// in-memory store. Both forms are built from the same normalised city so the two
// can never disagree.
package scope

import (
	"strings"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"

	"gorm.io/gorm"
)

type kind int

const (
	// The zero Scope matches nothing.
	kindNone kind = iota
	kindOwner
	kindAssignee
	kindCity
	kindAll
)

// Scope is the visibility predicate of a single actor.
type Scope struct {
	kind    kind
	actorID string
	city    string
}

// cityCutset is trimmed from both ends of a city before comparison. cityColumn
// applies the same normalisation in SQL.
const (
	cityCutset = " \t\r\n\f\v"
	cityColumn = `LOWER(BTRIM(city, E' \t\r\n\f\013'))`
)

// NormalizeCity is the single place city strings are canonicalised for comparison.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.Trim(city, cityCutset))
}

// SameCity reports whether two free-text city values denote the same city.
// Empty values never match anything.
func SameCity(a, b string) bool {
	na := NormalizeCity(a)
	return na != "" && na == NormalizeCity(b)
}

// For derives the scope of an actor. Admins without a city fail with a ScopeError
// instead of falling back to an unrestricted view.
func For(actor models.Actor) (Scope, error) {
	switch actor.Type {
	case models.ActorCitizen:
		return Scope{kind: kindOwner, actorID: actor.ID}, nil
	case models.ActorLabour:
		return Scope{kind: kindAssignee, actorID: actor.ID}, nil
	case models.ActorAdmin:
		city := NormalizeCity(actor.City)
		if city == "" {
			return Scope{}, apperrors.NewScopeError(apperrors.CityNotAssigned, actor.ID)
		}
		return Scope{kind: kindCity, actorID: actor.ID, city: city}, nil
	case models.ActorSuperAdmin:
		return Scope{kind: kindAll, actorID: actor.ID}, nil
	default:
		return Scope{}, apperrors.NewScopeError(apperrors.UnknownActorType, actor.ID)
	}
}

// Unrestricted returns the superadmin scope. Used by maintenance tooling only.
func Unrestricted() Scope {
	return Scope{kind: kindAll}
}

// City returns the normalised city of a city scope, or "" otherwise.
func (s Scope) City() string {
	return s.city
}

// IsUnrestricted reports whether the scope sees every complaint.
func (s Scope) IsUnrestricted() bool {
	return s.kind == kindAll
}

func (s Scope) String() string {
	switch s.kind {
	case kindOwner:
		return "citizen:" + s.actorID
	case kindAssignee:
		return "labour:" + s.actorID
	case kindCity:
		return "city:" + s.city
	case kindAll:
		return "all"
	default:
		return "none"
	}
}

// Allows reports whether complaint c is inside the scope.
func (s Scope) Allows(c *models.Complaint) bool {
	if c == nil {
		return false
	}
	return s.match(c.City, c.SubmittedBy, c.AssignedLabour)
}

// AllowsEvent reports whether a published complaint event is inside the scope.
func (s Scope) AllowsEvent(ev models.ComplaintEvent) bool {
	return s.match(ev.City, ev.SubmittedBy, ev.AssignedLabour)
}

func (s Scope) match(city, submittedBy, assignedLabour string) bool {
	switch s.kind {
	case kindOwner:
		return submittedBy == s.actorID
	case kindAssignee:
		return assignedLabour != "" && assignedLabour == s.actorID
	case kindCity:
		return NormalizeCity(city) == s.city
	case kindAll:
		return true
	default:
		return false
	}
}

// Complaints is a gorm scope restricting a query on the complaints table.
//
//	db.Scopes(sc.Complaints).Find(&list)
func (s Scope) Complaints(db *gorm.DB) *gorm.DB {
	switch s.kind {
	case kindOwner:
		return db.Where("submitted_by = ?", s.actorID)
	case kindAssignee:
		return db.Where("assigned_labour = ?", s.actorID)
	case kindCity:
		return db.Where(cityColumn+" = ?", s.city)
	case kindAll:
		return db
	default:
		return db.Where("1 = 0")
	}
}

// AllowsUser reports whether a directory entry is visible: admins see labour of
// their own city, superadmins see all labour, labour see themselves.
func (s Scope) AllowsUser(u *models.User) bool {
	if u == nil || u.Role != models.ActorLabour {
		return false
	}
	switch s.kind {
	case kindAssignee:
		return u.ID == s.actorID
	case kindCity:
		return NormalizeCity(u.City) == s.city
	case kindAll:
		return true
	default:
		return false
	}
}

// Labour is a gorm scope restricting a query on the users table to visible labour.
func (s Scope) Labour(db *gorm.DB) *gorm.DB {
	db = db.Where("role = ?", models.ActorLabour)
	switch s.kind {
	case kindAssignee:
		return db.Where("id = ?", s.actorID)
	case kindCity:
		return db.Where(cityColumn+" = ?", s.city)
	case kindAll:
		return db
	default:
		return db.Where("1 = 0")
	}
}

// AllowsFeedback reports whether a feedback record is visible: citizens see their
// own, admins their city, superadmins everything. Labour see none.
func (s Scope) AllowsFeedback(f *models.Feedback) bool {
	if f == nil {
		return false
	}
	switch s.kind {
	case kindOwner:
		return f.UserID == s.actorID
	case kindCity:
		return NormalizeCity(f.City) == s.city
	case kindAll:
		return true
	default:
		return false
	}
}

// Feedback is a gorm scope restricting a query on the feedbacks table.
func (s Scope) Feedback(db *gorm.DB) *gorm.DB {
	switch s.kind {
	case kindOwner:
		return db.Where("user_id = ?", s.actorID)
	case kindCity:
		return db.Where(cityColumn+" = ?", s.city)
	case kindAll:
		return db
	default:
		return db.Where("1 = 0")
	}
}
