package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restobook/internal/cache"
	"restobook/internal/core"
	"restobook/internal/services"
	"restobook/internal/storage/memory"
)

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

func newTestServer(t *testing.T, health HealthChecker) *Server {
	t.Helper()
	store := memory.New()
	srv, err := NewServer(":0",
		services.NewRecordService(store, nil),
		services.NewSalesService(store),
		health,
		Options{Results: cache.NewResults(32, time.Minute)})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *Server, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, r)
	return w
}

func postForm(srv *Server, path string, v url.Values) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(v.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(srv, r)
}

func expenseForm(product, amount string) url.Values {
	return url.Values{
		"date":     {"2026-03-10"},
		"category": {"Services"},
		"product":  {product},
		"amount":   {amount},
	}
}

func listRecords(t *testing.T, srv *Server, query string) core.Result {
	t.Helper()
	w := serve(srv, httptest.NewRequest(http.MethodGet, "/records?"+query, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /records?%s status = %d, body %s", query, w.Code, w.Body.String())
	}
	var res core.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return res
}

func TestServer_IndexAndHealth(t *testing.T) {
	srv := newTestServer(t, fakeHealth{})

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("index status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<h1>Restobook</h1>") {
		t.Error("index page missing heading")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected security headers")
	}

	if w := serve(srv, httptest.NewRequest(http.MethodGet, "/nope", nil)); w.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", w.Code)
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", w.Code, w.Body.String())
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", w.Code)
	}
}

func TestServer_ReadyzFailing(t *testing.T) {
	srv := newTestServer(t, fakeHealth{err: errors.New("connection refused")})

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("readyz body = %s", w.Body.String())
	}

	noStore := newTestServer(t, nil)
	if w := serve(noStore, httptest.NewRequest(http.MethodGet, "/readyz", nil)); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz without checker = %d, want 503", w.Code)
	}
}

func TestServer_CreateRecordForm(t *testing.T) {
	srv := newTestServer(t, fakeHealth{})

	w := postForm(srv, "/records", expenseForm("Electricity", "120.50"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "records:changed") {
		t.Errorf("HX-Trigger = %q, want records:changed", trigger)
	}
	if !strings.Contains(w.Body.String(), "Electricity") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestServer_CreateRecordValidation(t *testing.T) {
	srv := newTestServer(t, fakeHealth{})

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad amount",
			form:       expenseForm("Gas", "abc"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "Amount must be a number",
		},
		{
			name: "merchandise without quantity",
			form: url.Values{
				"date": {"2026-03-10"}, "category": {"Merchandise"},
				"product": {"Tomatoes"}, "amount": {"10"},
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "<ul>",
		},
		{
			name: "unknown category",
			form: url.Values{
				"date": {"2026-03-10"}, "category": {"Taxes"},
				"product": {"VAT"}, "amount": {"10"},
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "Taxes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postForm(srv, "/records", tt.form)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServer_CreateRecordJSON(t *testing.T) {
	srv := newTestServer(t, fakeHealth{})

	body := `{"date":"2026-03-11","category":"Merchandise","product":"Flour","quantity":25,"unit":"kg","amount":"31.20"}`
	r := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := serve(srv, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var row core.Row
	if err := json.Unmarshal(w.Body.Bytes(), &row); err != nil {
		t.Fatalf("decode row: %v", err)
	}
	if row.Kind != core.KindPurchase || row.Product != "Flour" {
		t.Errorf("row = %+v", row)
	}
	if row.Quantity == nil || !row.Quantity.Equal(decimal.NewFromInt(25)) {
		t.Errorf("quantity = %v, want 25", row.Quantity)
	}

	r = httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(`{"category":"Services","product":"Rent"}`))
	r.Header.Set("Content-Type", "application/json")
	w = serve(srv, r)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid JSON record status = %d", w.Code)
	}
	var errs struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &errs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	for _, e := range errs.Errors {
		if strings.HasPrefix(e, "- ") {
			t.Errorf("error %q keeps its list prefix", e)
		}
	}
	if len(errs.Errors) == 0 {
		t.Error("expected error messages")
	}
}

func TestServer_QueryRecords(t *testing.T) {
	srv := newTestServer(t, fakeHealth{})

	if w := postForm(srv, "/records", expenseForm("Water", "40")); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	res := listRecords(t, srv, "view=combined")
	if res.View != core.ViewCombined || len(res.Rows) != 1 {
		t.Fatalf("result = %+v", res)
	}

	// A write invalidates the cached result of the same query.
	if w := postForm(srv, "/records", expenseForm("Internet", "35")); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	res = listRecords(t, srv, "view=combined")
	if res.Metrics.Count != 2 || !res.Metrics.Total.Equal(decimal.NewFromInt(75)) {
		t.Errorf("metrics = %+v", res.Metrics)
	}

	res = listRecords(t, srv, "view=purchases")
	if len(res.Rows) != 0 {
		t.Errorf("purchases rows = %d, want 0", len(res.Rows))
	}

	tests := []struct {
		name  string
		query string
	}{
		{"one date only", "date_from=2026-03-01"},
		{"bad date", "date_from=03/01/2026&date_to=2026-03-31"},
		{"unknown view", "view=sales"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(srv, httptest.NewRequest(http.MethodGet, "/records?"+tt.query, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestServer_RecordsPartialAndReport(t *testing.T) {
	srv := newTestServer(t, fakeHealth{})
	postForm(srv, "/records", expenseForm("Cleaning", "60"))

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/ui/records?view=expenses", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("partial status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Cleaning") {
		t.Errorf("partial body missing row: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "<th>Day</th>") {
		t.Errorf("partial body missing daily breakdown: %s", w.Body.String())
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/reports/records.pdf?view=expenses", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("report is not a PDF")
	}
}

func TestServer_UpdateAndDelete(t *testing.T) {
	srv := newTestServer(t, fakeHealth{})
	postForm(srv, "/records", expenseForm("Phone", "25"))
	id := listRecords(t, srv, "view=expenses").Rows[0].ID

	form := expenseForm("Phone line", "27")
	form.Set("table", "expenses")
	form.Set("id", strconv.FormatInt(id, 10))
	if w := postForm(srv, "/records/update", form); w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	if got := listRecords(t, srv, "view=expenses").Rows[0].Product; got != "Phone line" {
		t.Errorf("product after update = %q", got)
	}

	form.Set("category", "Merchandise")
	if w := postForm(srv, "/records/update", form); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("cross-table update status = %d, want 422", w.Code)
	}

	missing := url.Values{"table": {"expenses"}, "id": {"99"}}
	if w := postForm(srv, "/records/delete", missing); w.Code != http.StatusNotFound {
		t.Errorf("delete missing status = %d, want 404", w.Code)
	}

	r := httptest.NewRequest(http.MethodDelete, "/records/delete?table=expenses&id="+strconv.FormatInt(id, 10), nil)
	if w := serve(srv, r); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", w.Code, w.Body.String())
	}
	if rows := listRecords(t, srv, "view=expenses").Rows; len(rows) != 0 {
		t.Errorf("rows after delete = %d, want 0", len(rows))
	}

	if w := serve(srv, httptest.NewRequest(http.MethodGet, "/records/delete", nil)); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET delete status = %d, want 405", w.Code)
	}
}

func salesUpload(t *testing.T, date, entity, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("date", date)
	_ = mw.WriteField("entity", entity)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, "/sales", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestServer_Sales(t *testing.T) {
	srv := newTestServer(t, fakeHealth{})
	report := "producto,cantidad,precio_unitario,metodo_pago\nPizza,2,9.50,cash\nSoda,3,2.00,card\n"

	w := serve(srv, salesUpload(t, "2026-03-10", "restaurant", "pos.csv", report))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Registered 2 sales lines") {
		t.Errorf("body = %s", w.Body.String())
	}
	var trigger map[string]map[string]interface{}
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &trigger); err != nil {
		t.Fatalf("decode HX-Trigger: %v", err)
	}
	id, _ := trigger["sales:registered"]["id"].(string)
	if id == "" {
		t.Fatalf("HX-Trigger = %v, want a registration id", trigger)
	}

	w = serve(srv, salesUpload(t, "2026-03-10", "restaurant", "again.csv", report))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", w.Code)
	}
	if !strings.Contains(w.Body.String(), "already registered for this date") {
		t.Errorf("duplicate body = %s", w.Body.String())
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/sales?id="+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list sales status = %d", w.Code)
	}
	var listed struct {
		Lines []core.SaleRecord `json:"lines"`
		Total string            `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode sales: %v", err)
	}
	if len(listed.Lines) != 2 {
		t.Errorf("lines = %d, want 2", len(listed.Lines))
	}

	if w := serve(srv, httptest.NewRequest(http.MethodGet, "/sales?id=not-a-uuid", nil)); w.Code != http.StatusNotFound {
		t.Errorf("unknown registration status = %d, want 404", w.Code)
	}

	if w := serve(srv, salesUpload(t, "2026-03-11", "restaurant", "", "")); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing file status = %d, want 422", w.Code)
	}
	if w := serve(srv, salesUpload(t, "2026-03-11", "restaurant", "pos.pdf", report)); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("wrong extension status = %d, want 422", w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, fakeHealth{})
	postForm(srv, "/records", expenseForm("Gas", "80"))
	listRecords(t, srv, "")
	listRecords(t, srv, "")

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"records_created_total 1",
		"query_cache_hits_total 1",
		"query_cache_misses_total 1",
		"# TYPE http_requests_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.ValidationError{Messages: []string{"- x"}}, http.StatusUnprocessableEntity},
		{&core.UnknownCategoryError{Label: "x"}, http.StatusUnprocessableEntity},
		{&core.FilterError{Field: "view", Reason: "bad"}, http.StatusBadRequest},
		{&core.DuplicateRegistrationError{}, http.StatusConflict},
		{core.ErrNotFound, http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorResponseBuildersAndNotification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		wantNotice string
	}{
		{"validation list", &core.ValidationError{Messages: []string{"- Date is required"}}, http.StatusUnprocessableEntity, "<li>Date is required</li>", `"message":"Date is required"`},
		{"unknown category", &core.UnknownCategoryError{Label: "Taxes"}, http.StatusUnprocessableEntity, `<div class="error">`, "Taxes"},
		{"bad filter", &core.FilterError{Field: "view", Reason: "bad"}, http.StatusBadRequest, `<div class="error">`, `"type":"error"`},
		{"duplicate", &core.DuplicateRegistrationError{}, http.StatusConflict, `<div class="error">`, `"type":"error"`},
		{"missing", core.ErrNotFound, http.StatusNotFound, `<div class="error">Not found</div>`, `"message":"Not found"`},
		{"store failure", errors.New("disk full"), http.StatusInternalServerError, "Please try again", `"type":"error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			errorResponse(context.Background(), "test", tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %q", w.Body.String(), tt.wantBody)
			}
			trigger := w.Header().Get("HX-Trigger")
			if !strings.Contains(trigger, `"show-notification"`) || !strings.Contains(trigger, tt.wantNotice) {
				t.Errorf("HX-Trigger = %s, want error notification with %q", trigger, tt.wantNotice)
			}
			if strings.Contains(trigger, "disk full") {
				t.Errorf("HX-Trigger leaks store error: %s", trigger)
			}
		})
	}
}

func TestBarWidth(t *testing.T) {
	top := decimal.NewFromInt(200)
	tests := []struct {
		part string
		want int
	}{
		{"200", 100},
		{"100", 50},
		{"1", 2},
		{"0", 0},
		{"500", 100},
	}
	for _, tt := range tests {
		if got := barWidth(decimal.RequireFromString(tt.part), top); got != tt.want {
			t.Errorf("barWidth(%s) = %d, want %d", tt.part, got, tt.want)
		}
	}
	if got := barWidth(decimal.NewFromInt(5), decimal.Zero); got != 0 {
		t.Errorf("barWidth with zero top = %d", got)
	}
}
