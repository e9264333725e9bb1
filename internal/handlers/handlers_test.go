package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/facturation/i18n"
	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: gormlogger.Discard})
	require.NoError(t, err, "open db")
	require.NoError(t, db.AutoMigrate(&models.Client{}, &models.Invoice{}), "migrate")
	return db
}

func newTestMux(t *testing.T) (*http.ServeMux, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	log := zap.NewNop()
	totals := services.NewTotals(db, log)
	ch := NewClientHandler(services.NewClientService(db, log))
	ih := NewInvoiceHandler(services.NewInvoiceService(db, totals, log))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /clients", ch.List)
	mux.HandleFunc("POST /clients", ch.Create)
	mux.HandleFunc("GET /clients/{id}", ch.Get)
	mux.HandleFunc("PUT /clients/{id}", ch.Update)
	mux.HandleFunc("DELETE /clients/{id}", ch.Delete)
	mux.HandleFunc("GET /clients/{id}/invoices", ih.ListByClient)
	mux.HandleFunc("GET /invoices", ih.List)
	mux.HandleFunc("POST /invoices", ih.Create)
	mux.HandleFunc("GET /invoices/{id}", ih.Get)
	mux.HandleFunc("PUT /invoices/{id}", ih.Update)
	mux.HandleFunc("DELETE /invoices/{id}", ih.Delete)
	return mux, db
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

type errorBody struct {
	Error   string                `json:"error"`
	Message string                `json:"message"`
	Details map[string]fieldError `json:"details"`
}

func TestClientAndInvoiceFlow(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/clients", `{"name":"Acme","email":"a@x.com","entreprise":"Acme Inc"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"montant_total":0.00`)
	client := decode[clientResponse](t, rec)
	assert.Equal(t, 0, client.TotalFactures)

	rec = do(t, mux, http.MethodPost, "/invoices",
		fmt.Sprintf(`{"client_id":%d,"date_envoi":"2024-01-01","status":"Envoyée","montant":100.00}`, client.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decode[invoiceResponse](t, rec)
	assert.Equal(t, "2024-01-01", inv.DateEnvoi)
	assert.Equal(t, json.Number("100.00"), inv.Montant)

	rec = do(t, mux, http.MethodGet, fmt.Sprintf("/clients/%d", client.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	client = decode[clientResponse](t, rec)
	assert.Equal(t, 1, client.TotalFactures)
	assert.Equal(t, json.Number("100.00"), client.MontantTotal)

	rec = do(t, mux, http.MethodPut, fmt.Sprintf("/invoices/%d", inv.ID),
		fmt.Sprintf(`{"client_id":%d,"date_envoi":"2024-01-01","status":"Envoyée","montant":"150.00"}`, client.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, mux, http.MethodGet, fmt.Sprintf("/clients/%d", client.ID), "")
	client = decode[clientResponse](t, rec)
	assert.Equal(t, json.Number("150.00"), client.MontantTotal)

	rec = do(t, mux, http.MethodGet, fmt.Sprintf("/clients/%d/invoices", client.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]invoiceResponse](t, rec), 1)

	rec = do(t, mux, http.MethodDelete, fmt.Sprintf("/invoices/%d", inv.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, i18n.T("fr", "invoice_deleted"), decode[map[string]string](t, rec)["message"])

	rec = do(t, mux, http.MethodGet, fmt.Sprintf("/clients/%d", client.ID), "")
	client = decode[clientResponse](t, rec)
	assert.Equal(t, 0, client.TotalFactures)
	assert.Equal(t, json.Number("0.00"), client.MontantTotal)

	rec = do(t, mux, http.MethodGet, "/invoices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestInvoiceCreateErrors(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := do(t, mux, http.MethodPost, "/clients", `{"name":"Acme","email":"a@x.com","entreprise":"Acme Inc"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	client := decode[clientResponse](t, rec)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
		field  string
	}{
		{"malformed json", `{"client_id":`, http.StatusBadRequest, "invalid_json", ""},
		{"empty body", ``, http.StatusBadRequest, "invalid_json", ""},
		{"bad status", fmt.Sprintf(`{"client_id":%d,"date_envoi":"2024-01-01","status":"Brouillon","montant":5}`, client.ID),
			http.StatusBadRequest, "validation_failed", "status"},
		{"missing montant", fmt.Sprintf(`{"client_id":%d,"date_envoi":"2024-01-01","status":"Payée"}`, client.ID),
			http.StatusBadRequest, "validation_failed", "montant"},
		{"unknown client", `{"client_id":999,"date_envoi":"2024-01-01","status":"Payée","montant":5}`,
			http.StatusNotFound, "client_not_found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPost, "/invoices", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.code, body.Error)
			assert.NotEmpty(t, body.Message)
			if tt.field != "" {
				assert.Contains(t, body.Details, tt.field)
			}
		})
	}
}

func TestClientErrors(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := do(t, mux, http.MethodPost, "/clients", `{"name":"Acme","email":"a@x.com","entreprise":"Acme Inc"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, mux, http.MethodPost, "/clients", `{"name":"Copy","email":"a@x.com","entreprise":"Copy"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_taken", decode[errorBody](t, rec).Error)

	rec = do(t, mux, http.MethodPost, "/clients", `{"name":"","email":"nope","entreprise":"X"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "required", body.Details["name"].Code)
	assert.Equal(t, "invalid_email", body.Details["email"].Code)

	rec = do(t, mux, http.MethodGet, "/clients/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decode[errorBody](t, rec).Error)

	rec = do(t, mux, http.MethodGet, "/clients/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodDelete, "/clients/77", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, i18n.T("fr", "client_not_found"), decode[errorBody](t, rec).Message)
}

func TestErrorMessagesFollowLanguage(t *testing.T) {
	mux, _ := newTestMux(t)
	req := httptest.NewRequest(http.MethodGet, "/invoices/5", nil)
	req = req.WithContext(i18n.WithLang(req.Context(), "en"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, i18n.T("en", "invoice_not_found"), decode[errorBody](t, rec).Message)
}

func TestDeleteClientCascadeOverHTTP(t *testing.T) {
	mux, db := newTestMux(t)
	var ids [2]uint
	for i, email := range []string{"a@x.com", "b@x.com"} {
		rec := do(t, mux, http.MethodPost, "/clients", fmt.Sprintf(`{"name":"C%d","email":%q,"entreprise":"E"}`, i, email))
		require.Equal(t, http.StatusCreated, rec.Code)
		ids[i] = decode[clientResponse](t, rec).ID
		rec = do(t, mux, http.MethodPost, "/invoices",
			fmt.Sprintf(`{"client_id":%d,"date_envoi":"2024-05-01","status":"Payée","montant":12.5}`, ids[i]))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, mux, http.MethodDelete, fmt.Sprintf("/clients/%d", ids[0]), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodGet, fmt.Sprintf("/clients/%d/invoices", ids[0]), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var n int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	rec = do(t, mux, http.MethodGet, fmt.Sprintf("/clients/%d", ids[1]), "")
	b := decode[clientResponse](t, rec)
	assert.Equal(t, 1, b.TotalFactures)
	assert.Equal(t, json.Number("12.50"), b.MontantTotal)
}

type stubTotals struct {
	drifts []services.Drift
	err    error
}

func (s stubTotals) Check(context.Context) ([]services.Drift, error) { return s.drifts, s.err }

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(func() error { return nil }, stubTotals{})

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Consistency(rec, httptest.NewRequest(http.MethodGet, "/healthz/consistency", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewHealthHandler(func() error { return errors.New("down") }, stubTotals{drifts: []services.Drift{{ClientID: 3, StoredCount: 1}}})
	rec = httptest.NewRecorder()
	down.Ready(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	down.Consistency(rec, httptest.NewRequest(http.MethodGet, "/healthz/consistency", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"client_id":3`)

	failing := NewHealthHandler(nil, stubTotals{err: &services.Error{Kind: services.ErrStorage, Code: "storage_error"}})
	rec = httptest.NewRecorder()
	failing.Consistency(rec, httptest.NewRequest(http.MethodGet, "/healthz/consistency", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnclassifiedErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decode[errorBody](t, rec).Error)
}
