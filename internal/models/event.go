package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventKind identifies a Todoist webhook event type.
type EventKind string

const (
	ItemAdded         EventKind = "item:added"
	ItemUpdated       EventKind = "item:updated"
	ItemCompleted     EventKind = "item:completed"
	ItemUncompleted   EventKind = "item:uncompleted"
	ItemDeleted       EventKind = "item:deleted"
	ProjectAdded      EventKind = "project:added"
	ProjectUpdated    EventKind = "project:updated"
	ProjectDeleted    EventKind = "project:deleted"
	ProjectArchived   EventKind = "project:archived"
	ProjectUnarchived EventKind = "project:unarchived"
)

// knownKinds is the set of event types the engine processes. Anything else
// is acknowledged and ignored.
var knownKinds = map[EventKind]bool{
	ItemAdded: true, ItemUpdated: true, ItemCompleted: true,
	ItemUncompleted: true, ItemDeleted: true,
	ProjectAdded: true, ProjectUpdated: true, ProjectDeleted: true,
	ProjectArchived: true, ProjectUnarchived: true,
}

// Known reports whether k is an event type this service handles.
func (k EventKind) Known() bool { return knownKinds[k] }

// IsItem reports whether k concerns a task.
func (k EventKind) IsItem() bool { return strings.HasPrefix(string(k), "item:") }

// IsProject reports whether k concerns a project.
func (k EventKind) IsProject() bool { return strings.HasPrefix(string(k), "project:") }

// IsDeletion reports whether k removes the entity at the source.
func (k EventKind) IsDeletion() bool { return k == ItemDeleted || k == ProjectDeleted }

// Event is the envelope Todoist posts to the webhook endpoint. EventData is
// kept raw until the kind is known, then decoded into the matching variant.
type Event struct {
	EventName EventKind       `json:"event_name"`
	UserID    int64           `json:"user_id"`
	EventData json.RawMessage `json:"event_data"`
	Version   string          `json:"version"`

	// Exactly one of Item/Project is set after Parse, per EventName.
	Item    *Item    `json:"-"`
	Project *Project `json:"-"`
}

// Due is a Todoist due date. Kept structured; display formatting is the
// sink client's concern.
type Due struct {
	Date        string `json:"date"`
	IsRecurring bool   `json:"is_recurring"`
	Timezone    string `json:"timezone,omitempty"`
}

// Item is the event_data payload for item:* events.
type Item struct {
	ID          string   `json:"id"`
	Content     string   `json:"content"`
	Description string   `json:"description,omitempty"`
	Checked     bool     `json:"checked"`
	Priority    int      `json:"priority"`
	ProjectID   string   `json:"project_id,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Due         *Due     `json:"due,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
	AddedAt     string   `json:"added_at,omitempty"`
}

// Project is the event_data payload for project:* events.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsArchived  bool   `json:"is_archived"`
	IsDeleted   bool   `json:"is_deleted"`
}

// Identity returns the source id of the entity the event concerns.
func (e *Event) Identity() string {
	switch {
	case e.Item != nil:
		return e.Item.ID
	case e.Project != nil:
		return e.Project.ID
	}
	return ""
}

// ErrMalformed marks payloads that fail structural validation. The webhook
// handler maps it to a bad-request response.
var ErrMalformed = errors.New("malformed webhook payload")

// Parse decodes a verified webhook body into an Event. The event_data
// variant is selected by event_name, so downstream code matches on a typed
// Item or Project instead of probing a loose map. Unknown event kinds parse
// successfully with both variants nil.
func Parse(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.EventName == "" {
		return nil, fmt.Errorf("%w: missing event_name", ErrMalformed)
	}
	if !ev.EventName.Known() {
		return &ev, nil
	}
	if len(ev.EventData) == 0 {
		return nil, fmt.Errorf("%w: missing event_data", ErrMalformed)
	}

	switch {
	case ev.EventName.IsItem():
		var it Item
		if err := json.Unmarshal(ev.EventData, &it); err != nil {
			return nil, fmt.Errorf("%w: event_data: %v", ErrMalformed, err)
		}
		if it.ID == "" {
			return nil, fmt.Errorf("%w: event_data missing id", ErrMalformed)
		}
		ev.Item = &it
	case ev.EventName.IsProject():
		var pr Project
		if err := json.Unmarshal(ev.EventData, &pr); err != nil {
			return nil, fmt.Errorf("%w: event_data: %v", ErrMalformed, err)
		}
		if pr.ID == "" {
			return nil, fmt.Errorf("%w: event_data missing id", ErrMalformed)
		}
		ev.Project = &pr
	}
	return &ev, nil
}
