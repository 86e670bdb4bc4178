package sync

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmirror/todoist-notion-sync/internal/models"
	"github.com/tmirror/todoist-notion-sync/internal/notion"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTranslatePriority(t *testing.T) {
	tests := []struct {
		in   int
		want notion.Priority
	}{
		{1, notion.PriorityNormal},
		{2, notion.PriorityLow},
		{3, notion.PriorityMedium},
		{4, notion.PriorityHigh},
		// Out-of-range values clamp to the nearest bound.
		{0, notion.PriorityNormal},
		{-3, notion.PriorityNormal},
		{5, notion.PriorityHigh},
		{99, notion.PriorityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TranslatePriority(tt.in, discardLogger()), "priority %d", tt.in)
	}
}

func TestTranslateItem_Status(t *testing.T) {
	tests := []struct {
		name    string
		checked bool
		kind    models.EventKind
		want    notion.Status
	}{
		{"unchecked add", false, models.ItemAdded, notion.StatusNotStarted},
		{"checked update", true, models.ItemUpdated, notion.StatusCompleted},
		{"completed event", false, models.ItemCompleted, notion.StatusCompleted},
		// item:uncompleted wins over a stale checked flag.
		{"uncompleted with checked set", true, models.ItemUncompleted, notion.StatusNotStarted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := &models.Item{ID: "1", Content: "x", Checked: tt.checked, Priority: 1}
			f := TranslateItem(it, tt.kind, discardLogger())
			require.NotNil(t, f.Status)
			assert.Equal(t, tt.want, *f.Status)
		})
	}
}

func TestTranslateItem_LabelsCollapseToSet(t *testing.T) {
	it := &models.Item{
		ID: "1", Content: "x", Priority: 1,
		Labels: []string{"home", "errand", "home", "", "errand", "a"},
	}
	f := TranslateItem(it, models.ItemAdded, discardLogger())
	assert.Equal(t, []string{"a", "errand", "home"}, f.Labels)
}

func TestTranslateItem_DueIsStructured(t *testing.T) {
	it := &models.Item{
		ID: "1", Content: "x", Priority: 1,
		Due: &models.Due{Date: "2026-09-02T10:00:00", IsRecurring: true, Timezone: "Asia/Tokyo"},
	}
	f := TranslateItem(it, models.ItemAdded, discardLogger())
	require.NotNil(t, f.Due)
	assert.Equal(t, "2026-09-02T10:00:00", f.Due.Date)
	assert.True(t, f.Due.IsRecurring)
	assert.Equal(t, "Asia/Tokyo", f.Due.Timezone)
	assert.False(t, f.ClearDue)
}

func TestTranslateItem_NoDueClearsSinkDate(t *testing.T) {
	it := &models.Item{ID: "1", Content: "x", Priority: 1}
	f := TranslateItem(it, models.ItemUpdated, discardLogger())
	assert.Nil(t, f.Due)
	assert.True(t, f.ClearDue)
}

func TestTranslateItem_CarriesIdentityAndParent(t *testing.T) {
	it := &models.Item{ID: "111", Content: "Buy milk", Priority: 1, ProjectID: "P1"}
	f := TranslateItem(it, models.ItemAdded, discardLogger())
	assert.Equal(t, "111", f.Identity)
	assert.Equal(t, "P1", f.ParentIdentity)
	assert.Equal(t, "Buy milk", f.Title)
	// Relation resolution is the orchestrator's job.
	assert.Empty(t, f.RelationPageID)
}

func TestTranslateProject(t *testing.T) {
	pr := &models.Project{ID: "P1", Name: "Chores", Description: "house stuff", IsArchived: true}
	f := TranslateProject(pr)
	assert.Equal(t, "P1", f.Identity)
	assert.Equal(t, "Chores", f.Title)
	require.NotNil(t, f.IsArchived)
	assert.True(t, *f.IsArchived)
	require.NotNil(t, f.Description)
	assert.Equal(t, "house stuff", *f.Description)
	// Deletion is a policy decision, never a translated field.
	assert.Nil(t, f.Deleted)
}
