package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/facturation/httpx"
	"github.com/diewo77/facturation/i18n"
	"github.com/diewo77/facturation/internal/logger"
	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/internal/services"
	"github.com/diewo77/facturation/validation"
	"go.uber.org/zap"
)

type fieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders err as the JSON error body with the status of its kind.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	lang := i18n.LangFromContext(r.Context())

	svcErr, ok := services.AsError(err)
	if !ok {
		logger.FromContext(r.Context()).Error("unclassified error", zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", i18n.T(lang, "internal_error"), nil)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	default:
		logger.FromContext(r.Context()).Error("storage failure", zap.Error(err))
	}

	var details any
	if !svcErr.Violations.Empty() {
		details = localizeViolations(lang, svcErr.Violations)
	}
	httpx.JSONError(w, status, svcErr.Code, i18n.T(lang, svcErr.Code), details)
}

func localizeViolations(lang string, v validation.Violations) map[string]fieldError {
	out := make(map[string]fieldError, len(v))
	for field, code := range v {
		out[field] = fieldError{Code: code, Message: i18n.T(lang, code)}
	}
	return out
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, code string) {
	lang := i18n.LangFromContext(r.Context())
	httpx.JSONError(w, http.StatusBadRequest, code, i18n.T(lang, code), nil)
}

func writeMessage(w http.ResponseWriter, r *http.Request, code string) {
	lang := i18n.LangFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]string{"message": i18n.T(lang, code)})
}

// pathID parses the {id} wildcard as a positive identifier.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Amounts leave the API as JSON numbers with two decimals.

type clientResponse struct {
	ID            uint        `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Entreprise    string      `json:"entreprise"`
	TotalFactures int         `json:"total_factures"`
	MontantTotal  json.Number `json:"montant_total"`
}

func newClientResponse(c *models.Client) clientResponse {
	return clientResponse{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		Entreprise:    c.Entreprise,
		TotalFactures: c.TotalFactures,
		MontantTotal:  json.Number(c.MontantTotal.StringFixed(2)),
	}
}

type invoiceResponse struct {
	ID        uint        `json:"id"`
	ClientID  uint        `json:"client_id"`
	DateEnvoi string      `json:"date_envoi"`
	Status    string      `json:"status"`
	Montant   json.Number `json:"montant"`
}

func newInvoiceResponse(inv *models.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:        inv.ID,
		ClientID:  inv.ClientID,
		DateEnvoi: inv.SentOn(),
		Status:    string(inv.Status),
		Montant:   json.Number(inv.Montant.StringFixed(2)),
	}
}

func newInvoiceResponses(invs []models.Invoice) []invoiceResponse {
	out := make([]invoiceResponse, 0, len(invs))
	for i := range invs {
		out = append(out, newInvoiceResponse(&invs[i]))
	}
	return out
}
