package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"restobook/internal/core"
	applog "restobook/internal/log"
	"restobook/internal/services"
)

// handleSales imports a report on POST and lists a registration's lines on GET.
func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSales(w, r)
	case http.MethodPost:
		s.handleUploadSales(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleUploadSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("The report is larger than %d MB", s.maxUploadBytes>>20)).Write(w)
			return
		}
		BadRequestError("Invalid upload").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var msgs []string
	var date core.Date
	if raw := strings.TrimSpace(r.FormValue("date")); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			msgs = append(msgs, "- Date must be a valid YYYY-MM-DD date")
		}
		date = d
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		msgs = append(msgs, "- A sales report file is required")
	} else {
		defer file.Close()
	}
	if len(msgs) > 0 {
		MessagesResponse(http.StatusUnprocessableEntity, msgs).Write(w)
		return
	}

	reg, err := s.sales.Register(ctx, services.SalesUpload{
		Date:     date,
		Entity:   sanitizeInput(r.FormValue("entity")),
		Filename: header.Filename,
		Body:     file,
	})
	if err != nil {
		errorResponse(ctx, applog.OpRegister, err).Write(w)
		return
	}

	s.appMetrics.salesRegistrations.Add(1)
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerSalesRegistered(reg.ID, reg.Date, reg.Entity).
		TriggerFormReset().
		TriggerSuccessNotification("Sales registered").
		BodyHTML(successBanner(fmt.Sprintf("Registered %d sales lines for %s on %s, total %s",
			reg.Rows, reg.Entity, reg.Date, core.FormatAmount(reg.Total)))).
		Write(w)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	lines, err := s.sales.Lines(r.Context(), id)
	if err != nil {
		s.writeError(w, r, true, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    id,
		"lines": lines,
		"total": core.FormatAmount(core.SalesTotal(lines)),
	})
}
