package sync

import (
	"context"
	"log/slog"

	"github.com/tmirror/todoist-notion-sync/internal/notion"
)

// Resolver locates the sink record for a source identity. There is no
// in-memory map: the identity lives on the sink record itself, so the sink
// is the single authoritative index and every lookup goes to it directly.
// Callers must resolve immediately before deciding on a mutation; a cached
// answer can race a concurrent create for the same identity.
type Resolver struct {
	client notion.Client
	logger *slog.Logger
}

// NewResolver returns a Resolver over client. Logger defaults to
// slog.Default().
func NewResolver(client notion.Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, logger: logger.With("component", "resolver")}
}

// Find returns the record in table carrying identity, or (nil, nil) when
// absent: absence is the expected signal to create, not an error. More than
// one match is a ConsistencyError; the resolver refuses to pick one.
func (r *Resolver) Find(ctx context.Context, table notion.Table, identity string) (*notion.Record, error) {
	records, err := r.client.QueryByIdentity(ctx, table, identity)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return &records[0], nil
	}
	err = &ConsistencyError{Identity: identity, Table: table, Count: len(records)}
	r.logger.Error("identity maps to multiple sink records", "identity", identity, "table", string(table), "count", len(records))
	return nil, err
}
