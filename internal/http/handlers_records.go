package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"restobook/internal/core"
	applog "restobook/internal/log"
	"restobook/internal/report"
)

// handleRecords lists records as JSON on GET and creates one on POST.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListRecords(w, r)
	case http.MethodPost:
		s.handleCreateRecord(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	draft, msgs := ParseDraft(parser)
	if len(msgs) > 0 {
		s.writeError(w, r, parser.IsJSON(), applog.OpCreate, &core.ValidationError{Messages: msgs})
		return
	}

	row, err := s.records.Submit(ctx, draft)
	if err != nil {
		s.writeError(w, r, parser.IsJSON(), applog.OpCreate, err)
		return
	}

	s.appMetrics.recordsCreated.Add(1)
	s.recordsChanged()

	if parser.IsJSON() {
		writeJSON(w, http.StatusCreated, row)
		return
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerRecordsChanged(row.Table(), row.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Record saved").
		BodyHTML(successBanner(fmt.Sprintf("Saved %s #%d: %s, %s (%s)",
			row.Kind, row.ID, row.Product, core.FormatAmount(row.Amount), row.Category))).
		Write(w)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	table, id, err := ParseRecordRef(parser)
	if err != nil {
		s.writeError(w, r, parser.IsJSON(), applog.OpUpdate, &core.ValidationError{Messages: []string{"- " + err.Error()}})
		return
	}
	draft, msgs := ParseDraft(parser)
	if len(msgs) > 0 {
		s.writeError(w, r, parser.IsJSON(), applog.OpUpdate, &core.ValidationError{Messages: msgs})
		return
	}

	row, err := s.records.Update(r.Context(), table, id, draft)
	if err != nil {
		s.writeError(w, r, parser.IsJSON(), applog.OpUpdate, err)
		return
	}
	s.recordsChanged()

	if parser.IsJSON() {
		writeJSON(w, http.StatusOK, row)
		return
	}
	NewHTMXResponse().
		TriggerRecordsChanged(table, id).
		TriggerSuccessNotification("Record updated").
		BodyHTML(successBanner(fmt.Sprintf("Updated %s #%d", row.Kind, row.ID))).
		Write(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	var values valueGetter = r.URL.Query()
	if r.Method == http.MethodPost {
		parser := NewRequestBodyParser(r)
		if err := parser.Parse(); err != nil {
			BadRequestError("Invalid request format").Write(w)
			return
		}
		values = parser
	}

	table, id, err := ParseRecordRef(values)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.records.Delete(r.Context(), table, id); err != nil {
		errorResponse(r.Context(), applog.OpDelete, err).Write(w)
		return
	}
	s.recordsChanged()

	// htmx swaps the deleted row with the empty 200 body.
	NewHTMXResponse().
		TriggerRecordsChanged(table, id).
		TriggerSuccessNotification("Record deleted").
		Write(w)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	view, f, err := ParseFilters(r.URL.Query())
	if err != nil {
		s.writeError(w, r, true, applog.OpQuery, err)
		return
	}
	res, err := s.query(r.Context(), view, f)
	if err != nil {
		s.writeError(w, r, true, applog.OpQuery, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type categoryBar struct {
	Name   core.Category
	Amount string
	Width  int
}

type recordsData struct {
	View    core.View
	Rows    []core.Row
	Metrics core.Metrics
	Bars    []categoryBar
	Query   string
}

// handleRecordsPartial renders the filtered table and summary for htmx.
func (s *Server) handleRecordsPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	view, f, err := ParseFilters(r.URL.Query())
	if err != nil {
		errorResponse(r.Context(), applog.OpQuery, err).Write(w)
		return
	}
	res, err := s.query(r.Context(), view, f)
	if err != nil {
		errorResponse(r.Context(), applog.OpQuery, err).Write(w)
		return
	}

	data := recordsData{View: res.View, Rows: res.Rows, Metrics: res.Metrics, Query: r.URL.RawQuery}
	if len(res.Metrics.ByCategory) > 0 {
		top := res.Metrics.ByCategory[0].Amount
		for _, c := range res.Metrics.ByCategory[1:] {
			if c.Amount.GreaterThan(top) {
				top = c.Amount
			}
		}
		for _, c := range res.Metrics.ByCategory {
			data.Bars = append(data.Bars, categoryBar{Name: c.Name, Amount: core.FormatAmount(c.Amount), Width: barWidth(c.Amount, top)})
		}
	}
	s.render(w, r, http.StatusOK, "records.html", data)
}

func (s *Server) handleRecordsReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	view, f, err := ParseFilters(r.URL.Query())
	if err != nil {
		errorResponse(r.Context(), applog.OpQuery, err).Write(w)
		return
	}
	res, err := s.query(r.Context(), view, f)
	if err != nil {
		errorResponse(r.Context(), applog.OpQuery, err).Write(w)
		return
	}

	pdf, err := report.BuildRecordsPDF(res, f, s.now())
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Report rendering failed",
			err, applog.ComponentReport, applog.OpRender, nil)
		InternalServerError("Could not build the report").Write(w)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="records-%s-%s.pdf"`, view, s.now().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// writeError answers in JSON for API clients and HTML fragments for htmx.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, asJSON bool, op string, err error) {
	if !asJSON {
		errorResponse(r.Context(), op, err).Write(w)
		return
	}
	status, msgs := errorMessages(r.Context(), op, err)
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = strings.TrimPrefix(m, "- ")
	}
	writeJSON(w, status, map[string]interface{}{"errors": out})
}

func successBanner(msg string) string {
	return `<div class="success">` + template.HTMLEscapeString(msg) + `</div>`
}
