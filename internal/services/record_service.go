package services

import (
	"context"
	"log/slog"

	"restobook/internal/amqp"
	"restobook/internal/core"
	applog "restobook/internal/log"
	"restobook/internal/storage"
)

// EventPublisher announces record changes to other processes.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

// RecordService orchestrates purchase and expense operations across the
// store and the event bus.
type RecordService struct {
	store     storage.RecordStore
	publisher EventPublisher
}

// NewRecordService wires a store and an optional publisher (nil disables events).
func NewRecordService(store storage.RecordStore, publisher EventPublisher) *RecordService {
	return &RecordService{store: store, publisher: publisher}
}

// Submit classifies, validates and stores one record.
func (s *RecordService) Submit(ctx context.Context, d core.Draft) (core.Row, error) {
	class, err := core.Classify(d.Category)
	if err != nil {
		return core.Row{}, err
	}
	rec, err := core.Validate(d, class)
	if err != nil {
		return core.Row{}, err
	}

	row, err := s.store.InsertRecord(ctx, rec)
	if err != nil {
		return core.Row{}, err
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogRecordCreated(ctx, string(class.Table), row.ID, string(class.Category), row.Product, row.Amount.String())

	s.publish(ctx, amqp.OpCreated, class.Table, row.ID)
	return row, nil
}

// Update replaces the record with id in table. The new category must route
// to the same table.
func (s *RecordService) Update(ctx context.Context, table core.Table, id int64, d core.Draft) (core.Row, error) {
	class, err := core.Classify(d.Category)
	if err != nil {
		return core.Row{}, err
	}
	if class.Table != table {
		return core.Row{}, &core.ValidationError{Messages: []string{
			"- Category cannot move a record between purchases and expenses",
		}}
	}
	rec, err := core.Validate(d, class)
	if err != nil {
		return core.Row{}, err
	}

	row, err := s.store.UpdateRecord(ctx, id, rec)
	if err != nil {
		return core.Row{}, err
	}

	slog.InfoContext(ctx, "Record updated",
		"component", "records",
		"operation", "update",
		"table", table,
		"id", id)

	s.publish(ctx, amqp.OpUpdated, table, id)
	return row, nil
}

// Delete hard-deletes a record.
func (s *RecordService) Delete(ctx context.Context, table core.Table, id int64) error {
	if err := s.store.DeleteRecord(ctx, table, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Record deleted",
		"component", "records",
		"operation", "delete",
		"table", table,
		"id", id)

	s.publish(ctx, amqp.OpDeleted, table, id)
	return nil
}

func (s *RecordService) Get(ctx context.Context, table core.Table, id int64) (core.Row, error) {
	return s.store.GetRecord(ctx, table, id)
}

// Query validates the filters, reads each table in turn and summarizes the
// rows. Invalid filters never reach the store.
func (s *RecordService) Query(ctx context.Context, view core.View, f core.Filters) (core.Result, error) {
	specs, err := core.BuildQuery(view, f)
	if err != nil {
		return core.Result{}, err
	}

	parts := make([][]core.Row, len(specs))
	for i, spec := range specs {
		rows, err := s.store.QueryRecords(ctx, spec)
		if err != nil {
			return core.Result{}, err
		}
		parts[i] = rows
	}

	var rows []core.Row
	if view == core.ViewCombined {
		rows = core.MergeCombined(parts[0], parts[1])
	} else {
		rows = parts[0]
	}
	if rows == nil {
		rows = []core.Row{}
	}

	return core.Result{View: view, Rows: rows, Metrics: core.Aggregate(rows)}, nil
}

// publish never fails the caller: the record is already stored.
func (s *RecordService) publish(ctx context.Context, op amqp.EventOp, table core.Table, id int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping record event", "component", "records")
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, amqp.NewRecordEvent(op, table, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event",
			"component", "records",
			"op", op,
			"table", table,
			"id", id,
			"error", err)
	}
}
