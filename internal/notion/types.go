// Package notion is the sink-side client: it reads and writes pages in the
// two Notion databases that mirror Todoist tasks and projects. The source
// identity is stored verbatim on each page, so these databases are the only
// index the sync engine consults.
package notion

import "time"

// Table selects one of the two mirrored databases.
type Table string

const (
	TableTasks Table = "tasks"
	TableAreas Table = "areas"
)

// Property names in the Tasks database.
const (
	PropName             = "Name"
	PropTodoistID        = "Todoist ID"
	PropStatus           = "Status"
	PropPriority         = "Priority"
	PropDueDate          = "Due Date"
	PropDescription      = "Description"
	PropLabels           = "Labels"
	PropArea             = "Area"
	PropTodoistProjectID = "Todoist Project ID"
	PropDeleted          = "Deleted"
	PropDeletedAt        = "Deleted At"
	PropDeletedBy        = "Deleted By"
	PropLastSyncedAt     = "Last Synced At"
	PropIsArchived       = "Is Archived"
)

// Status is the two-state task status.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusCompleted  Status = "Completed"
)

// Priority mirrors Todoist's 1-4 priority scale as named options.
type Priority string

const (
	PriorityNormal Priority = "Normal"
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// DeletedBy records which side initiated a soft deletion.
type DeletedBy string

const (
	DeletedByTodoist DeletedBy = "Todoist"
	DeletedByNotion  DeletedBy = "Notion"
)

// Due is a structured due date written to the sink. Date is the source's
// date string (date or datetime form); it is not flattened into display
// text until it becomes a Notion date property.
type Due struct {
	Date        string
	IsRecurring bool
	Timezone    string
}

// Record is a page in one of the mirrored databases, reduced to the fields
// the sync engine decides on.
type Record struct {
	PageID         string
	Identity       string
	ParentIdentity string
	Title          string
	Status         Status
	Deleted        bool
	DeletedAt      *time.Time
	DeletedBy      DeletedBy
	LastSyncedAt   *time.Time
}

// Fields is the translated property set for one create or update call.
// Pointer fields are tri-state: nil leaves the sink property untouched on
// update, which keeps replays idempotent and lets deletion transitions
// avoid clobbering content fields.
type Fields struct {
	Title          string
	Identity       string
	Status         *Status
	Priority       *Priority
	Due            *Due
	ClearDue       bool
	Description    *string
	Labels         []string
	RelationPageID string
	ParentIdentity string
	IsArchived     *bool
	Deleted        *bool
	DeletedAt      *time.Time
	ClearDeletedAt bool
	DeletedBy      *DeletedBy
	ClearDeletedBy bool
	LastSyncedAt   time.Time
}
