package sync

import (
	"log/slog"
	"sort"

	"github.com/tmirror/todoist-notion-sync/internal/models"
	"github.com/tmirror/todoist-notion-sync/internal/notion"
)

// priorityNames indexes Todoist's 1-4 priority scale. Todoist counts up:
// 1 is the default ("Normal"), 4 is the most urgent.
var priorityNames = [...]notion.Priority{
	1: notion.PriorityNormal,
	2: notion.PriorityLow,
	3: notion.PriorityMedium,
	4: notion.PriorityHigh,
}

// TranslatePriority maps a source priority to its named option. Values
// outside 1-4 clamp to the nearest bound and log; a bad priority is never a
// reason to drop an event.
func TranslatePriority(p int, logger *slog.Logger) notion.Priority {
	clamped := p
	if clamped < 1 {
		clamped = 1
	} else if clamped > 4 {
		clamped = 4
	}
	if clamped != p {
		logger.Warn("priority out of range, clamping", "priority", p, "clamped", clamped)
	}
	return priorityNames[clamped]
}

// translateLabels collapses the source's ordered label sequence into a
// deduplicated, sorted tag set. Sorting makes replayed events byte-stable.
func translateLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// TranslateItem maps a task payload to sink fields. Pure: relation
// resolution against the areas table happens in the orchestrator, which
// owns sink reads. An item:uncompleted event always lands as NotStarted
// regardless of the checked flag, and carries no completion timestamp.
func TranslateItem(it *models.Item, kind models.EventKind, logger *slog.Logger) notion.Fields {
	status := notion.StatusNotStarted
	if it.Checked && kind != models.ItemUncompleted {
		status = notion.StatusCompleted
	}
	if kind == models.ItemCompleted {
		status = notion.StatusCompleted
	}

	priority := TranslatePriority(it.Priority, logger)
	desc := it.Description

	f := notion.Fields{
		Title:          it.Content,
		Identity:       it.ID,
		Status:         &status,
		Priority:       &priority,
		Description:    &desc,
		Labels:         translateLabels(it.Labels),
		ParentIdentity: it.ProjectID,
	}
	if it.Due != nil {
		f.Due = &notion.Due{
			Date:        it.Due.Date,
			IsRecurring: it.Due.IsRecurring,
			Timezone:    it.Due.Timezone,
		}
	} else {
		f.ClearDue = true
	}
	return f
}

// TranslateProject maps a project payload to area fields. Archived projects
// stay visible in the sink: only is_deleted drives soft deletion, and that
// decision belongs to the policy, not the translator.
func TranslateProject(pr *models.Project) notion.Fields {
	desc := pr.Description
	archived := pr.IsArchived
	return notion.Fields{
		Title:       pr.Name,
		Identity:    pr.ID,
		Description: &desc,
		IsArchived:  &archived,
	}
}
