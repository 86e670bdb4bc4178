package notion

import (
	"time"
)

// Wire shapes for the subset of the Notion page object this service touches.

type page struct {
	ID         string              `json:"id"`
	Properties map[string]property `json:"properties"`
}

type property struct {
	Type        string         `json:"type"`
	Title       []richText     `json:"title,omitempty"`
	RichText    []richText     `json:"rich_text,omitempty"`
	Status      *selectOption  `json:"status,omitempty"`
	Select      *selectOption  `json:"select,omitempty"`
	MultiSelect []selectOption `json:"multi_select,omitempty"`
	Date        *dateValue     `json:"date,omitempty"`
	Checkbox    bool           `json:"checkbox,omitempty"`
	Relation    []relationRef  `json:"relation,omitempty"`
}

type richText struct {
	PlainText string `json:"plain_text,omitempty"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

type selectOption struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start    string `json:"start"`
	TimeZone string `json:"time_zone,omitempty"`
}

type relationRef struct {
	ID string `json:"id"`
}

// identityProperty returns the property that stores the source id in the
// given table.
func identityProperty(table Table) string {
	if table == TableAreas {
		return PropTodoistProjectID
	}
	return PropTodoistID
}

// Write-side property builders. Notion wants each property wrapped in a
// one-key object naming its type.

func titleProp(s string) map[string]any {
	return map[string]any{"title": []map[string]any{{"text": map[string]any{"content": s}}}}
}

func richTextProp(s string) map[string]any {
	if s == "" {
		return map[string]any{"rich_text": []map[string]any{}}
	}
	return map[string]any{"rich_text": []map[string]any{{"text": map[string]any{"content": s}}}}
}

func statusProp(name Status) map[string]any {
	return map[string]any{"status": map[string]any{"name": string(name)}}
}

func selectProp(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func multiSelectProp(names []string) map[string]any {
	opts := make([]map[string]any, 0, len(names))
	for _, n := range names {
		opts = append(opts, map[string]any{"name": n})
	}
	return map[string]any{"multi_select": opts}
}

func dateProp(d *dateValue) map[string]any {
	if d == nil {
		return map[string]any{"date": nil}
	}
	return map[string]any{"date": d}
}

func checkboxProp(b bool) map[string]any {
	return map[string]any{"checkbox": b}
}

func relationProp(pageIDs ...string) map[string]any {
	refs := make([]map[string]any, 0, len(pageIDs))
	for _, id := range pageIDs {
		refs = append(refs, map[string]any{"id": id})
	}
	return map[string]any{"relation": refs}
}

// properties renders f as a Notion properties object for table. Nil pointer
// fields are omitted so partial updates leave the rest of the page alone.
func (f Fields) properties(table Table) map[string]any {
	props := map[string]any{}

	if f.Title != "" {
		props[PropName] = titleProp(f.Title)
	}
	if f.Identity != "" {
		props[identityProperty(table)] = richTextProp(f.Identity)
	}
	if f.Status != nil {
		props[PropStatus] = statusProp(*f.Status)
	}
	if f.Priority != nil {
		props[PropPriority] = selectProp(string(*f.Priority))
	}
	if f.Due != nil {
		props[PropDueDate] = dateProp(&dateValue{Start: f.Due.Date, TimeZone: f.Due.Timezone})
	} else if f.ClearDue {
		props[PropDueDate] = dateProp(nil)
	}
	if f.Description != nil {
		props[PropDescription] = richTextProp(*f.Description)
	}
	if f.Labels != nil {
		props[PropLabels] = multiSelectProp(f.Labels)
	}
	if f.RelationPageID != "" {
		props[PropArea] = relationProp(f.RelationPageID)
	}
	if table == TableTasks && f.ParentIdentity != "" {
		props[PropTodoistProjectID] = richTextProp(f.ParentIdentity)
	}
	if f.IsArchived != nil {
		props[PropIsArchived] = checkboxProp(*f.IsArchived)
	}
	if f.Deleted != nil {
		props[PropDeleted] = checkboxProp(*f.Deleted)
	}
	if f.DeletedAt != nil {
		props[PropDeletedAt] = dateProp(&dateValue{Start: f.DeletedAt.UTC().Format(time.RFC3339)})
	} else if f.ClearDeletedAt {
		props[PropDeletedAt] = dateProp(nil)
	}
	if f.DeletedBy != nil {
		props[PropDeletedBy] = selectProp(string(*f.DeletedBy))
	} else if f.ClearDeletedBy {
		props[PropDeletedBy] = map[string]any{"select": nil}
	}
	if !f.LastSyncedAt.IsZero() {
		props[PropLastSyncedAt] = dateProp(&dateValue{Start: f.LastSyncedAt.UTC().Format(time.RFC3339)})
	}
	return props
}

// Read-side extraction helpers.

func (p property) plainText() string {
	for _, rt := range append(p.Title, p.RichText...) {
		if rt.PlainText != "" {
			return rt.PlainText
		}
		if rt.Text != nil {
			return rt.Text.Content
		}
	}
	return ""
}

func (p property) optionName() string {
	if p.Status != nil {
		return p.Status.Name
	}
	if p.Select != nil {
		return p.Select.Name
	}
	return ""
}

// parseNotionTime accepts both of Notion's date forms: a bare date and a
// full RFC3339 datetime.
func parseNotionTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}

// recordFromPage reduces a page object to the Record the engine decides on.
func recordFromPage(pg page, table Table) Record {
	rec := Record{PageID: pg.ID}

	if p, ok := pg.Properties[PropName]; ok {
		rec.Title = p.plainText()
	}
	if p, ok := pg.Properties[identityProperty(table)]; ok {
		rec.Identity = p.plainText()
	}
	if table == TableTasks {
		if p, ok := pg.Properties[PropTodoistProjectID]; ok {
			rec.ParentIdentity = p.plainText()
		}
	}
	if p, ok := pg.Properties[PropStatus]; ok {
		rec.Status = Status(p.optionName())
	}
	if p, ok := pg.Properties[PropDeleted]; ok {
		rec.Deleted = p.Checkbox
	}
	if p, ok := pg.Properties[PropDeletedAt]; ok && p.Date != nil {
		rec.DeletedAt = parseNotionTime(p.Date.Start)
	}
	if p, ok := pg.Properties[PropDeletedBy]; ok {
		rec.DeletedBy = DeletedBy(p.optionName())
	}
	if p, ok := pg.Properties[PropLastSyncedAt]; ok && p.Date != nil {
		rec.LastSyncedAt = parseNotionTime(p.Date.Start)
	}
	return rec
}
