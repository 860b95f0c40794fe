package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"restobook/internal/core"
	"restobook/internal/ingest"
	applog "restobook/internal/log"
	"restobook/internal/storage"
)

// SalesStore is what the sales workflow needs from a backend.
type SalesStore interface {
	storage.SaleRegistrar
	storage.SaleReader
}

// SalesUpload is one bulk sales report.
type SalesUpload struct {
	Date     core.Date
	Entity   string
	Filename string
	Body     io.Reader
}

type SalesService struct {
	store SalesStore
	newID func() string
}

func NewSalesService(store SalesStore) *SalesService {
	return &SalesService{store: store, newID: uuid.NewString}
}

// Register imports a sales report for a date and entity. A second report
// for the same pair is rejected before the file is parsed.
func (s *SalesService) Register(ctx context.Context, up SalesUpload) (core.SaleRegistration, error) {
	var msgs []string
	if up.Date.IsEmpty() {
		msgs = append(msgs, "- Date is required")
	}
	entity, err := core.ParseEntity(up.Entity)
	if err != nil {
		msgs = append(msgs, "- Entity must be restaurant or delivery")
	}
	format, err := ingest.DetectFormat(up.Filename)
	if err != nil {
		msgs = append(msgs, "- File must be a .csv or .xlsx report")
	}
	if len(msgs) > 0 {
		return core.SaleRegistration{}, &core.ValidationError{Messages: msgs}
	}

	exists, err := s.store.SalesRegistered(ctx, up.Date, entity)
	if err != nil {
		return core.SaleRegistration{}, err
	}
	if exists {
		return core.SaleRegistration{}, &core.DuplicateRegistrationError{Date: up.Date, Entity: entity}
	}

	lines, err := ingest.Parse(format, up.Body)
	if err != nil {
		return core.SaleRegistration{}, &core.ValidationError{Messages: []string{"- " + err.Error()}}
	}
	for i := range lines {
		lines[i].Date = up.Date
		lines[i].Entity = entity
	}

	reg := core.SaleRegistration{
		ID:     s.newID(),
		Date:   up.Date,
		Entity: entity,
		Source: up.Filename,
		Rows:   len(lines),
		Total:  core.SalesTotal(lines),
	}
	saved, err := s.store.RegisterSales(ctx, reg, lines)
	if err != nil {
		return core.SaleRegistration{}, err
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogSalesRegistered(ctx, saved.ID, saved.Date.String(), string(saved.Entity), saved.Rows)
	return saved, nil
}

// Lines returns the imported lines of a registration. Every registration
// has at least one line, so an empty result means the id is unknown.
func (s *SalesService) Lines(ctx context.Context, registrationID string) ([]core.SaleRecord, error) {
	if _, err := uuid.Parse(registrationID); err != nil {
		return nil, fmt.Errorf("invalid registration id: %w", core.ErrNotFound)
	}
	lines, err := s.store.ListSales(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("registration %s: %w", registrationID, core.ErrNotFound)
	}
	return lines, nil
}
