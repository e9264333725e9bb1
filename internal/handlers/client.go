package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/facturation/httpx"
	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/services"
)

// ClientStore is the client side of the services layer.
type ClientStore interface {
	List(ctx context.Context) ([]models.Client, error)
	Get(ctx context.Context, id uint) (*models.Client, error)
	Create(ctx context.Context, in services.ClientInput) (*models.Client, error)
	Update(ctx context.Context, id uint, in services.ClientInput) (*models.Client, error)
	Delete(ctx context.Context, id uint) error
}

// ClientHandler serves the /clients resource as JSON.
type ClientHandler struct {
	Store ClientStore
}

func NewClientHandler(store ClientStore) *ClientHandler {
	return &ClientHandler{Store: store}
}

// List: GET /clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]clientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, newClientResponse(&clients[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Get: GET /clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "invalid_id")
		return
	}
	c, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newClientResponse(c))
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ClientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	c, err := h.Store.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newClientResponse(c))
}

// Update: PUT /clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "invalid_id")
		return
	}
	var in services.ClientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	c, err := h.Store.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newClientResponse(c))
}

// Delete: DELETE /clients/{id}. The client's invoices go with it.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "invalid_id")
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, r, "client_deleted")
}
