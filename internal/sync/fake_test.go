package sync

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmirror/todoist-notion-sync/internal/notion"
)

// fakeSink is an in-memory stand-in for the Notion client. It keeps real
// record state so multi-event lifecycle tests (create → delete → restore)
// exercise the engine against evolving sink contents.
type fakeSink struct {
	records map[notion.Table][]notion.Record
	nextID  int

	// emptyQueries makes the first N queries return nothing, simulating a
	// concurrent create racing ahead of this event's resolution.
	emptyQueries int
	// failQueries makes the first N queries fail transiently.
	failQueries int
	queryErr    error
	createErrs  []error
	updateErr   error

	createCalls []sinkCall
	updateCalls []sinkCall
	queryCalls  int
}

type sinkCall struct {
	table  notion.Table
	pageID string
	fields notion.Fields
}

func newFakeSink() *fakeSink {
	return &fakeSink{records: map[notion.Table][]notion.Record{}}
}

func transientErr() error {
	return &notion.APIError{Status: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "try later"}
}

func (f *fakeSink) seed(table notion.Table, rec notion.Record) {
	f.records[table] = append(f.records[table], rec)
}

func (f *fakeSink) find(table notion.Table, pageID string) *notion.Record {
	recs := f.records[table]
	for i := range recs {
		if recs[i].PageID == pageID {
			return &recs[i]
		}
	}
	return nil
}

func (f *fakeSink) QueryByIdentity(_ context.Context, table notion.Table, identity string) ([]notion.Record, error) {
	f.queryCalls++
	if f.failQueries > 0 {
		f.failQueries--
		return nil, transientErr()
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.emptyQueries > 0 {
		f.emptyQueries--
		return nil, nil
	}
	var out []notion.Record
	for _, rec := range f.records[table] {
		if rec.Identity == identity {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeSink) CreateRecord(_ context.Context, table notion.Table, fields notion.Fields) (*notion.Record, error) {
	f.createCalls = append(f.createCalls, sinkCall{table: table, fields: fields})
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.nextID++
	rec := notion.Record{PageID: fmt.Sprintf("pg-%d", f.nextID)}
	applyFields(&rec, fields)
	f.records[table] = append(f.records[table], rec)
	out := rec
	return &out, nil
}

func (f *fakeSink) UpdateRecord(_ context.Context, table notion.Table, pageID string, fields notion.Fields) (*notion.Record, error) {
	f.updateCalls = append(f.updateCalls, sinkCall{table: table, pageID: pageID, fields: fields})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	rec := f.find(table, pageID)
	if rec == nil {
		return nil, &notion.APIError{Status: http.StatusNotFound, Code: "object_not_found", Message: "no such page"}
	}
	applyFields(rec, fields)
	out := *rec
	return &out, nil
}

// applyFields mirrors how a Notion patch behaves: only properties present
// in the request change.
func applyFields(rec *notion.Record, f notion.Fields) {
	if f.Title != "" {
		rec.Title = f.Title
	}
	if f.Identity != "" {
		rec.Identity = f.Identity
	}
	if f.ParentIdentity != "" {
		rec.ParentIdentity = f.ParentIdentity
	}
	if f.Status != nil {
		rec.Status = *f.Status
	}
	if f.Deleted != nil {
		rec.Deleted = *f.Deleted
	}
	if f.DeletedAt != nil {
		t := *f.DeletedAt
		rec.DeletedAt = &t
	} else if f.ClearDeletedAt {
		rec.DeletedAt = nil
	}
	if f.DeletedBy != nil {
		rec.DeletedBy = *f.DeletedBy
	} else if f.ClearDeletedBy {
		rec.DeletedBy = ""
	}
	if !f.LastSyncedAt.IsZero() {
		t := f.LastSyncedAt
		rec.LastSyncedAt = &t
	}
}

// fakeAudit captures audit entries in memory.
type fakeAudit struct {
	entries []AuditEntry
}

func (a *fakeAudit) RecordOutcome(_ context.Context, e AuditEntry) error {
	a.entries = append(a.entries, e)
	return nil
}
