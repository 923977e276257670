package storage

import (
	"strings"

	"fixitfast/backend/internal/config"
	"fixitfast/backend/internal/models"

	"gorm.io/gorm"
)

// ComplaintFilter holds the optional, client-supplied list filters. They are always
// combined with the caller's scope; none of them can widen it.
type ComplaintFilter struct {
	Status   models.Status
	Category string
	Priority models.Priority
	Limit    int
	Offset   int
}

// Normalize clamps paging values to the configured bounds.
func (f ComplaintFilter) Normalize() ComplaintFilter {
	if f.Limit <= 0 {
		f.Limit = config.DefaultListLimit
	}
	if f.Limit > config.MaxListLimit {
		f.Limit = config.MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Category = strings.TrimSpace(f.Category)
	return f
}

func (f ComplaintFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		db = db.Where("LOWER(category) = LOWER(?)", f.Category)
	}
	if f.Priority != "" {
		db = db.Where("priority = ?", f.Priority)
	}
	return db
}

func (f ComplaintFilter) matches(c *models.Complaint) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Category != "" && !strings.EqualFold(c.Category, f.Category) {
		return false
	}
	if f.Priority != "" && c.Priority != f.Priority {
		return false
	}
	return true
}

// GroupField is a complaint column dashboards may be grouped by.
type GroupField string

const (
	GroupCategory GroupField = "category"
	GroupPriority GroupField = "priority"
)

func (g GroupField) valid() bool {
	return g == GroupCategory || g == GroupPriority
}

func (g GroupField) value(c *models.Complaint) string {
	if g == GroupPriority {
		return string(c.Priority)
	}
	return c.Category
}

// FeedbackPage selects one page of the feedback report. Page is 1-based.
type FeedbackPage struct {
	Page  int
	Limit int
}

// Normalize applies the default page and clamps the page size.
func (p FeedbackPage) Normalize() FeedbackPage {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = config.DefaultListLimit
	}
	if p.Limit > config.MaxListLimit {
		p.Limit = config.MaxListLimit
	}
	return p
}

// Offset is the number of rows before the page.
func (p FeedbackPage) Offset() int {
	return (p.Page - 1) * p.Limit
}
