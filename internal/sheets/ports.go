package sheets

import (
	"context"

	"restobook/internal/core"
)

// RecordMirror appends stored records to an external spreadsheet.
type RecordMirror interface {
	AppendRow(ctx context.Context, row core.Row) (rowRef string, err error)
}
