package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"restobook/internal/amqp"
	"restobook/internal/core"
	"restobook/internal/sheets"
)

// RecordGetter loads a stored record by id.
type RecordGetter interface {
	GetRecord(ctx context.Context, table core.Table, id int64) (core.Row, error)
}

// MirrorWorker copies newly created records into the spreadsheet mirror.
type MirrorWorker struct {
	records RecordGetter
	mirror  sheets.RecordMirror
}

func NewMirrorWorker(records RecordGetter, mirror sheets.RecordMirror) *MirrorWorker {
	return &MirrorWorker{records: records, mirror: mirror}
}

// HandleRecordEvent processes one event from the queue. A returned error
// requeues the message.
func (w *MirrorWorker) HandleRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	logger := slog.With("component", "worker", "op", ev.Op, "table", ev.Table, "id", ev.ID)

	// The mirror is an append-only log of created records.
	if ev.Op != amqp.OpCreated {
		logger.DebugContext(ctx, "Skipping non-create event")
		return nil
	}

	row, err := w.records.GetRecord(ctx, ev.Table, ev.ID)
	if errors.Is(err, core.ErrNotFound) {
		logger.WarnContext(ctx, "Record no longer exists, nothing to mirror")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}

	ref, err := w.mirror.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}

	logger.InfoContext(ctx, "Record mirrored", "sheets_ref", ref)
	return nil
}
