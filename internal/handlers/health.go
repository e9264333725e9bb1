package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/facturation/httpx"
	"github.com/diewo77/facturation/i18n"
	"github.com/diewo77/facturation/internal/logger"
	"github.com/diewo77/facturation/internal/services"
	"go.uber.org/zap"
)

// TotalsChecker reports clients whose counters drifted.
type TotalsChecker interface {
	Check(ctx context.Context) ([]services.Drift, error)
}

type HealthHandler struct {
	Ping   func() error
	Totals TotalsChecker
}

func NewHealthHandler(ping func() error, totals TotalsChecker) *HealthHandler {
	return &HealthHandler{Ping: ping, Totals: totals}
}

// Live: GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready: GET /healthz. 503 when the database does not answer.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.Ping(); err != nil {
		logger.FromContext(r.Context()).Warn("database ping failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": "down"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "up"})
}

type driftResponse struct {
	ClientID     uint   `json:"client_id"`
	StoredCount  int    `json:"stored_total_factures"`
	ActualCount  int    `json:"actual_total_factures"`
	StoredAmount string `json:"stored_montant_total"`
	ActualAmount string `json:"actual_montant_total"`
}

// Consistency: GET /healthz/consistency. 503 when any client drifted.
func (h *HealthHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.Totals.Check(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(drifts) == 0 {
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok", "drifts": []driftResponse{}})
		return
	}

	out := make([]driftResponse, 0, len(drifts))
	for _, d := range drifts {
		out = append(out, driftResponse{
			ClientID:     d.ClientID,
			StoredCount:  d.StoredCount,
			ActualCount:  d.ActualCount,
			StoredAmount: d.StoredAmount.StringFixed(2),
			ActualAmount: d.ActualAmount.StringFixed(2),
		})
	}
	lang := i18n.LangFromContext(r.Context())
	httpx.JSON(w, http.StatusServiceUnavailable, map[string]any{
		"status":  "drift",
		"message": i18n.T(lang, "totals_drift"),
		"drifts":  out,
	})
}
