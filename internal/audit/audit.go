// Package audit appends immutable records of state-changing actions to a
// database table and, optionally, a JSON-lines mirror file. Writes are
// best-effort: a failed audit write is logged and swallowed, never surfaced
// to the operation being audited. The two sinks are independent.
package audit

import (
	"context"
	"log/slog"

	"github.com/haulerhq/freightdesk/model"
)

const (
	ActionLogin        = "login"
	ActionLoginFailed  = "login_failed"
	ActionLoginBlocked = "login_blocked"
	ActionLogout       = "logout"

	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeleted     = "deleted"
	ActionActivated   = "activated"
	ActionDeactivated = "deactivated"
)

const (
	EntityUser     = "user"
	EntityClient   = "client"
	EntityShipment = "shipment"
	EntityInvoice  = "invoice"
	EntityPayment  = "payment"
	EntityPolicy   = "policy"
)

type Entry struct {
	ActorID    *uint
	Action     string
	EntityType string
	EntityID   *uint
	Detail     string
	IP         string
}

type Recorder struct {
	repo EntryRepository
	sink *FileSink
}

// NewRecorder wires the database repository and an optional file sink.
// Pass a nil sink to disable the file mirror.
func NewRecorder(repo EntryRepository, sink *FileSink) *Recorder {
	return &Recorder{
		repo: repo,
		sink: sink,
	}
}

// Record writes the entry to every configured sink. Errors from one sink do
// not block the other and are never returned to the caller.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	event := &model.AuditLogEntry{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Detail:     entry.Detail,
		IP:         entry.IP,
	}
	if err := r.repo.RecordEntry(ctx, event); err != nil {
		slog.Error("Audit database write failed", "action", entry.Action, "error", err)
	}
	if r.sink != nil {
		if err := r.sink.Write(event); err != nil {
			slog.Error("Audit file write failed", "action", entry.Action, "error", err)
		}
	}
}

// List reads entries back for display, newest first.
func (r *Recorder) List(ctx context.Context, filters Filters) ([]*model.AuditLogEntry, error) {
	return r.repo.Find(ctx, filters)
}
