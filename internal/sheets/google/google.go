package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"restobook/internal/core"
	ports "restobook/internal/sheets"
)

// Options configures the spreadsheet mirror.
type Options struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	PurchasesTab       string
	ExpensesTab        string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          map[core.Table]string
}

var _ ports.RecordMirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		tabs: map[core.Table]string{
			core.TablePurchases: defaultString(opts.PurchasesTab, "Purchases"),
			core.TableExpenses:  defaultString(opts.ExpensesTab, "Expenses"),
		},
	}, nil
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// newSheetsService prefers inline JSON, then a credentials file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	inline := strings.TrimSpace(opts.ServiceAccountJSON)
	file := strings.TrimSpace(opts.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		credentialsJSON = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "component", "sheets")
	return service, nil
}

// AppendRow appends row to the tab of its table and returns the updated range.
func (c *Client) AppendRow(ctx context.Context, row core.Row) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	tab, ok := c.tabs[row.Table()]
	if !ok {
		return "", fmt.Errorf("no tab configured for %s", row.Table())
	}

	vr := &gsheet.ValueRange{Values: [][]any{RowValues(row)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, tab+"!A:J", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", tab, err)
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return tab, nil
}

// RowValues is the spreadsheet layout of a row:
// id, date, category, product, quantity, unit, amount, supplier, description, created_at.
func RowValues(r core.Row) []any {
	quantity, unit := "", ""
	if r.Quantity != nil {
		quantity = r.Quantity.String()
	}
	if r.Unit != nil {
		unit = string(*r.Unit)
	}
	return []any{
		r.ID,
		r.Date.String(),
		string(r.Category),
		r.Product,
		quantity,
		unit,
		core.FormatAmount(r.Amount),
		deref(r.Supplier),
		deref(r.Description),
		r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
