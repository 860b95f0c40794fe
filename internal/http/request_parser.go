package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"restobook/internal/core"
)

// valueGetter is satisfied by url.Values and RequestBodyParser.
type valueGetter interface {
	Get(key string) string
}

// ParseFilters reads the view and filters of a record query. Dates that do
// not parse are reported as filter errors before anything else happens.
func ParseFilters(query url.Values) (core.View, core.Filters, error) {
	view, err := core.ParseView(query.Get("view"))
	if err != nil {
		return "", core.Filters{}, err
	}

	f := core.Filters{
		Category: sanitizeInput(query.Get("category")),
		Search:   sanitizeInput(query.Get("search")),
	}
	for _, p := range []struct {
		key string
		dst **core.Date
	}{{"date_from", &f.DateFrom}, {"date_to", &f.DateTo}} {
		raw := strings.TrimSpace(query.Get(p.key))
		if raw == "" {
			continue
		}
		d, err := core.ParseDate(raw)
		if err != nil {
			return "", core.Filters{}, &core.FilterError{Field: p.key, Reason: "must be a YYYY-MM-DD date"}
		}
		*p.dst = &d
	}
	return view, f, nil
}

// ParseDraft builds a record draft from submitted values. Values that are
// present but malformed are returned as validation messages; blanks are
// left for core.Validate to report.
func ParseDraft(v valueGetter) (core.Draft, []string) {
	var msgs []string
	d := core.Draft{
		Category:    sanitizeInput(v.Get("category")),
		Product:     sanitizeInput(v.Get("product")),
		Unit:        core.NormalizeUnit(v.Get("unit")),
		Supplier:    sanitizeInput(v.Get("supplier")),
		Description: sanitizeInput(v.Get("description")),
	}

	if raw := strings.TrimSpace(v.Get("date")); raw != "" {
		date, err := core.ParseDate(raw)
		if err != nil {
			msgs = append(msgs, "- Date must be a valid YYYY-MM-DD date")
		}
		d.Date = date
	}
	if raw := strings.TrimSpace(v.Get("quantity")); raw != "" {
		q, err := core.ParseDecimal(raw)
		if err != nil {
			msgs = append(msgs, "- Quantity must be a number")
		}
		d.Quantity = q
	}
	if raw := strings.TrimSpace(v.Get("amount")); raw != "" {
		a, err := core.ParseDecimal(raw)
		if err != nil {
			msgs = append(msgs, "- Amount must be a number")
		}
		d.Amount = a
	}
	return d, msgs
}

// ParseRecordRef reads the table and id identifying a stored record.
func ParseRecordRef(v valueGetter) (core.Table, int64, error) {
	table := core.Table(strings.ToLower(strings.TrimSpace(v.Get("table"))))
	if table != core.TablePurchases && table != core.TableExpenses {
		return "", 0, fmt.Errorf("table must be purchases or expenses")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(v.Get("id")), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("id must be a positive integer")
	}
	return table, id, nil
}

// maxBodyBytes bounds form and JSON bodies; uploads go through multipart.
const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		// UseNumber keeps amounts exact instead of rounding through float64.
		dec := json.NewDecoder(bytes.NewReader(p.body))
		dec.UseNumber()
		p.jsonData = make(map[string]interface{})
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}
