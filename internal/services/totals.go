package services

import (
	"context"
	"slices"

	"github.com/diewo77/facturation/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Totals keeps client.total_factures and client.montant_total equal to the
// count and sum of the client's invoices.
type Totals struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTotals(db *gorm.DB, log *zap.Logger) *Totals {
	return &Totals{db: db, log: log}
}

// Drift describes a client whose stored counters disagree with its invoices.
type Drift struct {
	ClientID     uint            `json:"client_id"`
	StoredCount  int             `json:"stored_total_factures"`
	ActualCount  int             `json:"actual_total_factures"`
	StoredAmount decimal.Decimal `json:"stored_montant_total"`
	ActualAmount decimal.Decimal `json:"actual_montant_total"`
}

// Recompute rewrites the counters of clientID from its current invoice set.
// It must run on the transaction that mutated the invoices.
func (t *Totals) Recompute(tx *gorm.DB, clientID uint) error {
	var agg struct {
		InvoiceCount int
		AmountSum    decimal.Decimal
	}
	err := tx.Model(&models.Invoice{}).
		Select("COUNT(*) AS invoice_count, COALESCE(SUM(montant), 0) AS amount_sum").
		Where("client_id = ?", clientID).
		Scan(&agg).Error
	if err != nil {
		return storage("aggregate invoices", err)
	}

	res := tx.Model(&models.Client{}).Where("id = ?", clientID).Updates(map[string]any{
		"total_factures": agg.InvoiceCount,
		"montant_total":  agg.AmountSum.Round(2),
	})
	if res.Error != nil {
		return storage("update client totals", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("client_not_found")
	}
	t.log.Debug("client totals recomputed",
		zap.Uint("client_id", clientID),
		zap.Int("total_factures", agg.InvoiceCount),
		zap.String("montant_total", agg.AmountSum.StringFixed(2)))
	return nil
}

const resyncAllSQL = `UPDATE client
SET total_factures = (SELECT COUNT(*) FROM invoice WHERE invoice.client_id = client.id),
    montant_total = (SELECT ROUND(COALESCE(SUM(montant), 0), 2) FROM invoice WHERE invoice.client_id = client.id)`

// ResyncAll recomputes the counters of every client in one transaction and
// returns the number of client rows written.
func (t *Totals) ResyncAll(ctx context.Context) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(resyncAllSQL)
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, storage("resync client totals", err)
	}
	t.log.Info("client totals resynchronised", zap.Int64("clients", n))
	return n, nil
}

// Check lists the clients whose stored counters drifted from their invoices.
func (t *Totals) Check(ctx context.Context) ([]Drift, error) {
	var rows []struct {
		ID            uint
		TotalFactures int
		MontantTotal  decimal.Decimal
		InvoiceCount  int
		AmountSum     decimal.Decimal
	}
	err := t.db.WithContext(ctx).
		Table("client").
		Select("client.id, client.total_factures, client.montant_total, " +
			"COUNT(invoice.id) AS invoice_count, COALESCE(SUM(invoice.montant), 0) AS amount_sum").
		Joins("LEFT JOIN invoice ON invoice.client_id = client.id").
		Group("client.id, client.total_factures, client.montant_total").
		Order("client.id").
		Scan(&rows).Error
	if err != nil {
		return nil, storage("check client totals", err)
	}

	drifts := []Drift{}
	for _, r := range rows {
		stored, actual := r.MontantTotal.Round(2), r.AmountSum.Round(2)
		if r.TotalFactures == r.InvoiceCount && stored.Equal(actual) {
			continue
		}
		drifts = append(drifts, Drift{
			ClientID:     r.ID,
			StoredCount:  r.TotalFactures,
			ActualCount:  r.InvoiceCount,
			StoredAmount: stored,
			ActualAmount: actual,
		})
	}
	return drifts, nil
}

// lockClients takes row locks on the given clients, in ascending id order,
// and fails with NotFound when one of them does not exist. sqlite has no
// row locks and the clause is dropped there.
func lockClients(tx *gorm.DB, ids ...uint) error {
	uniq := slices.Clone(ids)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	var locked []models.Client
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id IN ?", uniq).
		Order("id").
		Find(&locked).Error
	if err != nil {
		return storage("lock clients", err)
	}
	if len(locked) != len(uniq) {
		return notFound("client_not_found")
	}
	return nil
}
