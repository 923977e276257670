package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback is a citizen's assessment of how one of their complaints was handled.
// City is copied from the complaint so admin scoping needs no join.
type Feedback struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	ComplaintID string `gorm:"type:uuid;not null;index" json:"complaintId"`
	UserID      string `gorm:"type:uuid;not null;index" json:"userId"`
	User        *User  `gorm:"foreignKey:UserID" json:"-"`
	City        string `gorm:"type:varchar(128);index" json:"city"`

	// Ratings are 1-5; 0 means not answered.
	Satisfaction  int `json:"satisfaction,omitempty"`
	Timeliness    int `json:"timeliness,omitempty"`
	Communication int `json:"communication,omitempty"`

	LikedMost   string `gorm:"type:text" json:"likedMost,omitempty"`
	Improvement string `gorm:"type:text" json:"improvement,omitempty"`
	Suggestion  string `gorm:"type:text" json:"suggestion,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// BeforeCreate assigns a UUID when the feedback has none yet.
func (f *Feedback) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return
}

// Empty reports whether no question was answered.
func (f *Feedback) Empty() bool {
	return f.Satisfaction == 0 && f.Timeliness == 0 && f.Communication == 0 &&
		strings.TrimSpace(f.LikedMost) == "" &&
		strings.TrimSpace(f.Improvement) == "" &&
		strings.TrimSpace(f.Suggestion) == ""
}

// Message summarises the feedback in one line. Free-text answers win; ratings are
// listed only when no text was given.
func (f *Feedback) Message() string {
	var parts []string
	for _, p := range []struct{ label, text string }{
		{"Liked", f.LikedMost},
		{"Improve", f.Improvement},
		{"Suggestion", f.Suggestion},
	} {
		if t := strings.TrimSpace(p.text); t != "" {
			parts = append(parts, p.label+": "+t)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " | ")
	}

	for _, r := range []struct {
		label string
		value int
	}{
		{"Satisfaction", f.Satisfaction},
		{"Timeliness", f.Timeliness},
		{"Communication", f.Communication},
	} {
		if r.value > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", r.label, r.value))
		}
	}
	return strings.Join(parts, " | ")
}

// FeedbackItem is one row of the admin feedback report.
type FeedbackItem struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaintId"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	City        string    `json:"city"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Pagination describes the page a list response was cut from.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// FeedbackReport is a page of feedback visible to an admin.
type FeedbackReport struct {
	Feedbacks  []FeedbackItem `json:"feedbacks"`
	Pagination Pagination     `json:"pagination"`
}
