package sync

import (
	"time"

	"github.com/tmirror/todoist-notion-sync/internal/notion"
)

// Action is the mutation the policy selects for one event.
type Action string

const (
	ActionNoop       Action = "noop"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionSoftDelete Action = "soft_delete"
	ActionRestore    Action = "restore"
)

// DefaultGraceWindow is how long after a soft deletion a content update can
// still restore the record. After it elapses, deletion wins.
const DefaultGraceWindow = 24 * time.Hour

// Policy decides what to do with an incoming event given the current sink
// state. It is a pure function of its explicit inputs; the clock is
// injectable so boundary timestamps can be pinned in tests.
//
// The grace window is anchored on event receipt time, not on timestamps
// embedded in the payload: delayed delivery and source clock skew make
// embedded times unusable for arbitration.
type Policy struct {
	GraceWindow time.Duration
	Now         func() time.Time
}

// NewPolicy returns a Policy with the given grace window (DefaultGraceWindow
// when zero) and a real clock.
func NewPolicy(grace time.Duration) *Policy {
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	return &Policy{GraceWindow: grace, Now: time.Now}
}

// Decide selects the action for an event. existing is nil when identity
// resolution found nothing; deletion is whether the incoming event removes
// the entity at the source (a *:deleted kind, or a project payload with
// is_deleted set).
//
// Rules in priority order:
//  1. absent + non-deletion       → Create
//  2. absent + deletion           → Noop (nothing to delete)
//  3. tombstoned + update in the grace window  → Restore
//  4. tombstoned + update past the window      → Noop (deletion wins)
//     tombstoned + deletion                    → SoftDelete (reaffirmed)
//  5. live + deletion             → SoftDelete
//  6. otherwise                   → Update
func (p *Policy) Decide(existing *notion.Record, deletion bool) Action {
	if existing == nil {
		if deletion {
			return ActionNoop
		}
		return ActionCreate
	}

	if existing.Deleted {
		if deletion {
			return ActionSoftDelete
		}
		if p.withinGrace(existing.DeletedAt) {
			return ActionRestore
		}
		return ActionNoop
	}

	if deletion {
		return ActionSoftDelete
	}
	return ActionUpdate
}

// withinGrace reports whether now is still inside the restore window after
// deletedAt. A tombstone with no deletion timestamp is treated as expired:
// restoring it would guess at the invariant the timestamp exists to hold.
func (p *Policy) withinGrace(deletedAt *time.Time) bool {
	if deletedAt == nil {
		return false
	}
	return p.Now().Sub(*deletedAt) <= p.GraceWindow
}
