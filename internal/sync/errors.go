package sync

import (
	"errors"
	"fmt"

	"github.com/tmirror/todoist-notion-sync/internal/notion"
)

// ConsistencyError reports that identity resolution matched more than one
// live record. The engine never picks one arbitrarily: the event aborts
// with no mutation, because two records claiming the same source id means
// the mirror is already damaged.
type ConsistencyError struct {
	Identity string
	Table    notion.Table
	Count    int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation: %d records in %s share identity %q", e.Count, e.Table, e.Identity)
}

// IsConsistencyViolation reports whether err is a ConsistencyError.
func IsConsistencyViolation(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
