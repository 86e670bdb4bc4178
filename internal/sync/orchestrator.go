package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/tmirror/todoist-notion-sync/internal/models"
	"github.com/tmirror/todoist-notion-sync/internal/notion"
	"github.com/tmirror/todoist-notion-sync/internal/signature"
)

// OutcomeStatus is the definite result of processing one event. Every event
// ends in exactly one of these; the engine never leaves an event ambiguous.
type OutcomeStatus string

const (
	// StatusApplied: the decided action reached the sink (Noop included).
	StatusApplied OutcomeStatus = "applied"
	// StatusIgnored: a well-formed event of a kind this service does not
	// handle. Acknowledged so the source stops redelivering it.
	StatusIgnored OutcomeStatus = "ignored"
	// StatusRejected: authentication or payload validation failed before
	// any sink access.
	StatusRejected OutcomeStatus = "rejected"
	// StatusFailed: the sink could not be read or written after the retry
	// budget, or the mirror's integrity is in question.
	StatusFailed OutcomeStatus = "failed"
)

// Outcome is what Process returns to the HTTP layer, which owns turning it
// into a response code.
type Outcome struct {
	ProcessingID string
	Status       OutcomeStatus
	Action       Action
	EventName    models.EventKind
	Identity     string
	PageID       string
	// Err is set for Rejected and Failed outcomes. Rejection causes are
	// distinguished with errors.Is (models.ErrMalformed vs ErrBadSignature).
	Err error
}

// ErrBadSignature marks deliveries whose HMAC did not verify.
var ErrBadSignature = errors.New("invalid webhook signature")

// Processing states, in order. Rejected is terminal from received/verified;
// failed is terminal from any sink-touching state.
type state string

const (
	stateReceived state = "received"
	stateVerified state = "verified"
	stateResolved state = "resolved"
	stateDecided  state = "decided"
	stateApplied  state = "applied"
	stateAcked    state = "acknowledged"
)

// RetryConfig bounds the orchestrator's exponential backoff against the
// sink. MaxElapsed is the mandatory ceiling on total wall-clock retry time;
// the per-event context deadline still applies on top.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	MaxRetries      uint64
}

// DefaultRetryConfig suits Notion's rate limiting: short first delay,
// doubling, bounded well under a webhook delivery timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     4 * time.Second,
		MaxElapsed:      20 * time.Second,
		MaxRetries:      4,
	}
}

// AuditEntry is one row of the processing audit trail.
type AuditEntry struct {
	ProcessingID string
	EventName    string
	Identity     string
	Table        string
	Action       string
	Status       string
	Detail       string
	OccurredAt   time.Time
}

// AuditLog records event outcomes durably. Writes are best-effort from the
// orchestrator's perspective: an audit failure never fails the event.
type AuditLog interface {
	RecordOutcome(ctx context.Context, entry AuditEntry) error
}

// Orchestrator runs the per-event pipeline: verify, parse, resolve, decide,
// apply. It holds no state between events; everything it needs to know
// about prior history lives in the sink.
type Orchestrator struct {
	verifier *signature.Verifier
	client   notion.Client
	resolver *Resolver
	policy   *Policy
	audit    AuditLog
	retry    RetryConfig
	logger   *slog.Logger
}

// Options configures NewOrchestrator. Verifier and Client are required;
// the rest default sensibly.
type Options struct {
	Verifier *signature.Verifier
	Client   notion.Client
	Policy   *Policy
	Audit    AuditLog
	Retry    RetryConfig
	Logger   *slog.Logger
}

// NewOrchestrator wires the engine together.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Policy
	if policy == nil {
		policy = NewPolicy(0)
	}
	retry := opts.Retry
	if retry.InitialInterval == 0 {
		retry = DefaultRetryConfig()
	}
	return &Orchestrator{
		verifier: opts.Verifier,
		client:   opts.Client,
		resolver: NewResolver(opts.Client, logger),
		policy:   policy,
		audit:    opts.Audit,
		retry:    retry,
		logger:   logger.With("component", "orchestrator"),
	}
}

// Process runs one webhook delivery to completion. body is the exact byte
// sequence received; sig is the value of the signature header. The caller's
// context carries the per-event deadline; on expiry the event fails rather
// than hangs.
func (o *Orchestrator) Process(ctx context.Context, body []byte, sig string) Outcome {
	out := Outcome{ProcessingID: uuid.New().String()}
	logger := o.logger.With("processing_id", out.ProcessingID)
	logger.Debug("event state", "state", stateReceived)

	if !o.verifier.Verify(body, sig) {
		out.Status = StatusRejected
		out.Err = ErrBadSignature
		logger.Warn("rejected delivery with bad signature")
		return out
	}
	logger.Debug("event state", "state", stateVerified)

	ev, err := models.Parse(body)
	if err != nil {
		out.Status = StatusRejected
		out.Err = err
		logger.Warn("rejected malformed payload", "error", err)
		// The delivery authenticated, so the rejection is part of the
		// record. Bad-signature deliveries are not: nothing in an
		// unauthenticated body is trustworthy enough to audit.
		o.writeAudit(ctx, out, err.Error())
		return out
	}
	out.EventName = ev.EventName
	out.Identity = ev.Identity()
	logger = logger.With("event", string(ev.EventName), "identity", out.Identity)

	if !ev.EventName.Known() {
		out.Status = StatusIgnored
		out.Action = ActionNoop
		logger.Info("ignoring unhandled event kind")
		o.writeAudit(ctx, out, "")
		return out
	}

	table := notion.TableTasks
	if ev.EventName.IsProject() {
		table = notion.TableAreas
	}

	// Resolve against the sink now, not against anything cached: a
	// concurrent delivery for the same identity may have just created the
	// record.
	var existing *notion.Record
	err = o.withRetry(ctx, func() error {
		var ferr error
		existing, ferr = o.resolver.Find(ctx, table, out.Identity)
		return ferr
	})
	if err != nil {
		return o.fail(ctx, out, logger, fmt.Errorf("resolve identity: %w", err))
	}
	logger.Debug("event state", "state", stateResolved, "found", existing != nil)

	action := o.policy.Decide(existing, isDeletionEvent(ev))
	out.Action = action
	logger.Debug("event state", "state", stateDecided, "action", string(action))

	pageID, err := o.apply(ctx, ev, table, existing, action, logger)
	if err != nil {
		return o.fail(ctx, out, logger, err)
	}
	out.PageID = pageID
	logger.Debug("event state", "state", stateApplied)

	out.Status = StatusApplied
	o.writeAudit(ctx, out, "")
	logger.Info("event synced", "action", string(action), "page_id", pageID)
	logger.Debug("event state", "state", stateAcked)
	return out
}

// isDeletionEvent reports whether ev removes the entity at the source.
// Projects can arrive deleted inside a project:updated payload, so the
// is_deleted flag counts as much as the event kind.
func isDeletionEvent(ev *models.Event) bool {
	if ev.EventName.IsDeletion() {
		return true
	}
	return ev.Project != nil && ev.Project.IsDeleted
}

// apply executes the decided action against the sink and returns the page
// id it touched, if any.
func (o *Orchestrator) apply(ctx context.Context, ev *models.Event, table notion.Table, existing *notion.Record, action Action, logger *slog.Logger) (string, error) {
	now := o.policy.Now()

	switch action {
	case ActionNoop:
		return pageIDOf(existing), nil

	case ActionCreate:
		fields, err := o.translate(ctx, ev, logger)
		if err != nil {
			return "", err
		}
		fields.LastSyncedAt = now
		rec, err := o.createRecord(ctx, table, fields, logger)
		if err != nil {
			return "", err
		}
		return rec.PageID, nil

	case ActionUpdate, ActionRestore:
		fields, err := o.translate(ctx, ev, logger)
		if err != nil {
			return "", err
		}
		fields.LastSyncedAt = now
		if action == ActionRestore {
			deleted := false
			fields.Deleted = &deleted
			fields.ClearDeletedAt = true
			fields.ClearDeletedBy = true
		}
		rec, err := o.updateRecord(ctx, table, existing.PageID, fields)
		if err != nil {
			return "", err
		}
		return rec.PageID, nil

	case ActionSoftDelete:
		// deleted_at/deleted_by are written once per deletion transition;
		// a reaffirming deletion of an existing tombstone touches nothing.
		if existing.Deleted {
			return existing.PageID, nil
		}
		deleted := true
		by := notion.DeletedByTodoist
		fields := notion.Fields{
			Deleted:      &deleted,
			DeletedAt:    &now,
			DeletedBy:    &by,
			LastSyncedAt: now,
		}
		rec, err := o.updateRecord(ctx, table, existing.PageID, fields)
		if err != nil {
			return "", err
		}
		return rec.PageID, nil
	}
	return "", fmt.Errorf("unknown action %q", action)
}

// translate produces the sink fields for ev, resolving the parent-area
// relation for tasks. A missing or unreachable parent leaves the relation
// unset and logs; it never blocks the task itself. Duplicate area records
// are a different matter: that is an integrity fault, and it escalates
// like any other consistency violation.
func (o *Orchestrator) translate(ctx context.Context, ev *models.Event, logger *slog.Logger) (notion.Fields, error) {
	if ev.Project != nil {
		return TranslateProject(ev.Project), nil
	}

	fields := TranslateItem(ev.Item, ev.EventName, logger)
	if ev.Item.ProjectID != "" {
		area, err := o.resolver.Find(ctx, notion.TableAreas, ev.Item.ProjectID)
		switch {
		case IsConsistencyViolation(err):
			return notion.Fields{}, fmt.Errorf("resolve parent area: %w", err)
		case err != nil:
			logger.Warn("could not resolve parent area, leaving relation unset", "project_id", ev.Item.ProjectID, "error", err)
		case area == nil:
			logger.Warn("parent area not found in sink, leaving relation unset", "project_id", ev.Item.ProjectID)
		default:
			fields.RelationPageID = area.PageID
		}
	}
	return fields, nil
}

// createRecord creates with retry. Notion has no create-if-absent, so a
// conflict-classified result means a concurrent delivery won the race: we
// re-resolve once and convert to an update of the winner.
func (o *Orchestrator) createRecord(ctx context.Context, table notion.Table, fields notion.Fields, logger *slog.Logger) (*notion.Record, error) {
	var rec *notion.Record
	err := o.withRetry(ctx, func() error {
		var cerr error
		rec, cerr = o.client.CreateRecord(ctx, table, fields)
		return cerr
	})
	if err == nil {
		return rec, nil
	}
	if !notion.IsConflict(err) {
		return nil, fmt.Errorf("create record: %w", err)
	}

	logger.Info("create raced a concurrent delivery, converting to update", "identity", fields.Identity)
	existing, rerr := o.resolver.Find(ctx, table, fields.Identity)
	if rerr != nil {
		return nil, fmt.Errorf("re-resolve after create conflict: %w", rerr)
	}
	if existing == nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return o.updateRecord(ctx, table, existing.PageID, fields)
}

func (o *Orchestrator) updateRecord(ctx context.Context, table notion.Table, pageID string, fields notion.Fields) (*notion.Record, error) {
	var rec *notion.Record
	err := o.withRetry(ctx, func() error {
		var uerr error
		rec, uerr = o.client.UpdateRecord(ctx, table, pageID, fields)
		return uerr
	})
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	return rec, nil
}

// withRetry runs fn under bounded exponential backoff. Only transient sink
// errors retry; validation rejections, conflicts, and consistency faults
// surface immediately. The context deadline wins over the retry budget.
func (o *Orchestrator) withRetry(ctx context.Context, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.retry.InitialInterval
	bo.MaxInterval = o.retry.MaxInterval
	bo.MaxElapsedTime = o.retry.MaxElapsed

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		// A consistency fault is not a sink hiccup: re-querying the same
		// damaged identity cannot change the answer.
		if IsConsistencyViolation(err) {
			return backoff.Permanent(err)
		}
		if notion.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, o.retry.MaxRetries), ctx))
}

// fail finalizes an event as Failed and audits it. ConsistencyError and
// permanent sink rejections land here too: both always escalate.
func (o *Orchestrator) fail(ctx context.Context, out Outcome, logger *slog.Logger, err error) Outcome {
	out.Status = StatusFailed
	out.Err = err
	if IsConsistencyViolation(err) {
		logger.Error("aborting event on consistency violation", "error", err)
	} else {
		logger.Error("event failed", "error", err)
	}
	o.writeAudit(ctx, out, err.Error())
	return out
}

// writeAudit appends the outcome to the audit log, if one is configured.
// Audit writes use a detached short deadline so a stalled audit store
// cannot hold the event past its own deadline.
func (o *Orchestrator) writeAudit(ctx context.Context, out Outcome, detail string) {
	if o.audit == nil {
		return
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	table := ""
	switch {
	case out.EventName.IsItem():
		table = string(notion.TableTasks)
	case out.EventName.IsProject():
		table = string(notion.TableAreas)
	}
	entry := AuditEntry{
		ProcessingID: out.ProcessingID,
		EventName:    string(out.EventName),
		Identity:     out.Identity,
		Table:        table,
		Action:       string(out.Action),
		Status:       string(out.Status),
		Detail:       detail,
		OccurredAt:   o.policy.Now(),
	}
	if err := o.audit.RecordOutcome(auditCtx, entry); err != nil {
		o.logger.Warn("audit write failed", "processing_id", out.ProcessingID, "error", err)
	}
}

func pageIDOf(rec *notion.Record) string {
	if rec == nil {
		return ""
	}
	return rec.PageID
}
