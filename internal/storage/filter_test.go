package storage

import (
	"testing"

	"fixitfast/backend/internal/config"
	"fixitfast/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestComplaintFilter_Normalize(t *testing.T) {
	f := ComplaintFilter{Limit: 0, Offset: -3, Category: "  Roads "}.Normalize()
	assert.Equal(t, config.DefaultListLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, "Roads", f.Category)

	f = ComplaintFilter{Limit: 10000}.Normalize()
	assert.Equal(t, config.MaxListLimit, f.Limit)
}

func TestComplaintFilter_Matches(t *testing.T) {
	c := &models.Complaint{Status: models.StatusPending, Category: "Roads", Priority: models.PriorityHigh}

	assert.True(t, ComplaintFilter{}.matches(c))
	assert.True(t, ComplaintFilter{Category: "roads"}.matches(c))
	assert.False(t, ComplaintFilter{Status: models.StatusResolved}.matches(c))
	assert.False(t, ComplaintFilter{Priority: models.PriorityLow}.matches(c))
}

func TestComplaintFilter_ApplyBuildsPredicates(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)

	f := ComplaintFilter{Status: models.StatusInProgress, Priority: models.PriorityHigh}
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []models.Complaint
		return tx.Model(&models.Complaint{}).Scopes(f.apply).Find(&out)
	})

	assert.Contains(t, sql, "status")
	assert.Contains(t, sql, "In Progress")
	assert.Contains(t, sql, "priority")
	assert.NotContains(t, sql, "category")
}
