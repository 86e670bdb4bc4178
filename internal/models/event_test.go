package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ItemEvent(t *testing.T) {
	body := []byte(`{
		"event_name": "item:added",
		"user_id": 42,
		"version": "10",
		"event_data": {
			"id": "111",
			"content": "Buy milk",
			"checked": false,
			"priority": 1,
			"project_id": "P1",
			"labels": ["errand", "home", "errand"],
			"due": {"date": "2026-09-02", "is_recurring": true, "timezone": "Europe/Berlin"}
		}
	}`)

	ev, err := Parse(body)
	require.NoError(t, err)
	require.NotNil(t, ev.Item)
	assert.Nil(t, ev.Project)

	assert.Equal(t, ItemAdded, ev.EventName)
	assert.Equal(t, int64(42), ev.UserID)
	assert.Equal(t, "111", ev.Identity())
	assert.Equal(t, "Buy milk", ev.Item.Content)
	assert.Equal(t, "P1", ev.Item.ProjectID)
	require.NotNil(t, ev.Item.Due)
	assert.Equal(t, "2026-09-02", ev.Item.Due.Date)
	assert.True(t, ev.Item.Due.IsRecurring)
	assert.Equal(t, "Europe/Berlin", ev.Item.Due.Timezone)
}

func TestParse_ProjectEvent(t *testing.T) {
	body := []byte(`{
		"event_name": "project:archived",
		"event_data": {"id": "P1", "name": "Chores", "is_archived": true, "is_deleted": false}
	}`)

	ev, err := Parse(body)
	require.NoError(t, err)
	require.NotNil(t, ev.Project)
	assert.Nil(t, ev.Item)
	assert.Equal(t, "P1", ev.Identity())
	assert.True(t, ev.Project.IsArchived)
	assert.False(t, ev.Project.IsDeleted)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"event_name": "item:added"`},
		{"missing event_name", `{"event_data": {"id": "1"}}`},
		{"missing event_data", `{"event_name": "item:added"}`},
		{"item missing id", `{"event_name": "item:updated", "event_data": {"content": "x"}}`},
		{"project missing id", `{"event_name": "project:added", "event_data": {"name": "x"}}`},
		{"event_data wrong shape", `{"event_name": "item:added", "event_data": [1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParse_UnknownKindIsAccepted(t *testing.T) {
	ev, err := Parse([]byte(`{"event_name": "note:added", "event_data": {"id": "n1"}}`))
	require.NoError(t, err)
	assert.False(t, ev.EventName.Known())
	assert.Nil(t, ev.Item)
	assert.Nil(t, ev.Project)
	assert.Empty(t, ev.Identity())
}

func TestEventKind_Classification(t *testing.T) {
	assert.True(t, ItemDeleted.IsItem())
	assert.True(t, ItemDeleted.IsDeletion())
	assert.True(t, ProjectDeleted.IsProject())
	assert.True(t, ProjectDeleted.IsDeletion())
	assert.False(t, ProjectArchived.IsDeletion())
	assert.False(t, ItemCompleted.IsDeletion())
	assert.True(t, ProjectUnarchived.Known())
	assert.False(t, EventKind("reminder:fired").Known())
}
