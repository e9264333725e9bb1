package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/facturation/httpx"
	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/services"
)

// InvoiceStore is the invoice side of the services layer.
type InvoiceStore interface {
	List(ctx context.Context) ([]models.Invoice, error)
	Get(ctx context.Context, id uint) (*models.Invoice, error)
	ListByClient(ctx context.Context, clientID uint) ([]models.Invoice, error)
	Create(ctx context.Context, in services.InvoiceInput) (*models.Invoice, error)
	Update(ctx context.Context, id uint, in services.InvoiceInput) (*models.Invoice, error)
	Delete(ctx context.Context, id uint) error
}

// InvoiceHandler serves the /invoices resource as JSON.
type InvoiceHandler struct {
	Store InvoiceStore
}

func NewInvoiceHandler(store InvoiceStore) *InvoiceHandler {
	return &InvoiceHandler{Store: store}
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	invs, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceResponses(invs))
}

// ListByClient: GET /clients/{id}/invoices
func (h *InvoiceHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "invalid_id")
		return
	}
	invs, err := h.Store.ListByClient(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceResponses(invs))
}

// Get: GET /invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "invalid_id")
		return
	}
	inv, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceResponse(inv))
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.InvoiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	inv, err := h.Store.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newInvoiceResponse(inv))
}

// Update: PUT /invoices/{id}
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "invalid_id")
		return
	}
	var in services.InvoiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	inv, err := h.Store.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceResponse(inv))
}

// Delete: DELETE /invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "invalid_id")
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, r, "invoice_deleted")
}
