package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxMontant is the largest amount a NUMERIC(10,2) column holds.
var MaxMontant = decimal.RequireFromString("99999999.99")

func init() {
	validation.RegisterString("invoice_status", "invalid_choice", func(s string) bool {
		return models.InvoiceStatus(s).Valid()
	})
}

// InvoiceInput holds the four fields of an invoice. Montant is a pointer so
// that a missing amount is told apart from zero.
type InvoiceInput struct {
	ClientID  uint             `json:"client_id" validate:"required"`
	DateEnvoi string           `json:"date_envoi" validate:"required,datetime=2006-01-02"`
	Status    string           `json:"status" validate:"required,invoice_status"`
	Montant   *decimal.Decimal `json:"montant" validate:"required"`
}

// Validate checks the input and converts it into an unsaved invoice.
// Montant is rounded to cents before the positivity check.
func (in *InvoiceInput) Validate() (*models.Invoice, validation.Violations) {
	in.DateEnvoi = strings.TrimSpace(in.DateEnvoi)
	in.Status = strings.TrimSpace(in.Status)

	v := validation.Struct(in)
	var montant decimal.Decimal
	if in.Montant != nil {
		montant = in.Montant.Round(2)
		validation.PositiveDecimal("montant", montant, v)
		validation.MaxDecimal("montant", montant, MaxMontant, v)
	}
	if !v.Empty() {
		return nil, v
	}

	sent, err := time.Parse(models.DateLayout, in.DateEnvoi)
	if err != nil {
		v.Add("date_envoi", "invalid_date")
		return nil, v
	}
	return &models.Invoice{
		ClientID:  in.ClientID,
		DateEnvoi: datatypes.Date(sent),
		Status:    models.InvoiceStatus(in.Status),
		Montant:   montant,
	}, v
}

type InvoiceService struct {
	db     *gorm.DB
	totals *Totals
	log    *zap.Logger
}

func NewInvoiceService(db *gorm.DB, totals *Totals, log *zap.Logger) *InvoiceService {
	return &InvoiceService{db: db, totals: totals, log: log}
}

// List returns every invoice ordered by id.
func (s *InvoiceService) List(ctx context.Context) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	if err := s.db.WithContext(ctx).Order("id").Find(&invoices).Error; err != nil {
		return nil, storage("list invoices", err)
	}
	return invoices, nil
}

func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("invoice_not_found")
	}
	if err != nil {
		return nil, storage("get invoice", err)
	}
	return &inv, nil
}

// ListByClient returns the invoices of one client, NotFound if the client
// does not exist.
func (s *InvoiceService) ListByClient(ctx context.Context, clientID uint) ([]models.Invoice, error) {
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Client{}).Where("id = ?", clientID).Count(&n).Error; err != nil {
		return nil, storage("find client", err)
	}
	if n == 0 {
		return nil, notFound("client_not_found")
	}
	invoices := []models.Invoice{}
	if err := db.Where("client_id = ?", clientID).Order("id").Find(&invoices).Error; err != nil {
		return nil, storage("list client invoices", err)
	}
	return invoices, nil
}

// Create inserts an invoice and refreshes its client's counters in the same
// transaction.
func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	inv, v := in.Validate()
	if !v.Empty() {
		return nil, invalid(v)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockClients(tx, inv.ClientID); err != nil {
			return err
		}
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		return s.totals.Recompute(tx, inv.ClientID)
	})
	if err != nil {
		return nil, wrapDB("create invoice", err)
	}
	s.log.Debug("invoice created", zap.Uint("invoice_id", inv.ID), zap.Uint("client_id", inv.ClientID))
	return inv, nil
}

// Update replaces every field of an invoice. When the invoice moves to
// another client both clients' counters are refreshed.
func (s *InvoiceService) Update(ctx context.Context, id uint, in InvoiceInput) (*models.Invoice, error) {
	next, v := in.Validate()
	if !v.Empty() {
		return nil, invalid(v)
	}
	var cur models.Invoice
	var previous uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := invoiceOwner(tx, id)
		if err != nil {
			return err
		}
		if err := lockClients(tx, next.ClientID, owner); err != nil {
			return err
		}
		if err := lockInvoice(tx, id, owner, &cur); err != nil {
			return err
		}

		previous = cur.ClientID
		cur.ClientID = next.ClientID
		cur.DateEnvoi = next.DateEnvoi
		cur.Status = next.Status
		cur.Montant = next.Montant
		if err := tx.Save(&cur).Error; err != nil {
			return err
		}

		if err := s.totals.Recompute(tx, cur.ClientID); err != nil {
			return err
		}
		if previous != cur.ClientID {
			return s.totals.Recompute(tx, previous)
		}
		return nil
	})
	if err != nil {
		return nil, wrapDB("update invoice", err)
	}
	s.log.Debug("invoice updated",
		zap.Uint("invoice_id", id), zap.Uint("client_id", cur.ClientID), zap.Uint("previous_client_id", previous))
	return &cur, nil
}

// Delete removes an invoice and refreshes its former client's counters in
// the same transaction.
func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	var cur models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := invoiceOwner(tx, id)
		if err != nil {
			return err
		}
		if err := lockClients(tx, owner); err != nil {
			return err
		}
		if err := lockInvoice(tx, id, owner, &cur); err != nil {
			return err
		}
		if err := tx.Delete(&cur).Error; err != nil {
			return err
		}
		return s.totals.Recompute(tx, cur.ClientID)
	})
	if err != nil {
		return wrapDB("delete invoice", err)
	}
	s.log.Debug("invoice deleted", zap.Uint("invoice_id", id), zap.Uint("client_id", cur.ClientID))
	return nil
}

// invoiceOwner reads the current client of an invoice without locking it,
// so that client rows can be locked before the invoice row.
func invoiceOwner(tx *gorm.DB, id uint) (uint, error) {
	var inv models.Invoice
	err := tx.Select("id", "client_id").First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, notFound("invoice_not_found")
	}
	if err != nil {
		return 0, storage("find invoice", err)
	}
	return inv.ClientID, nil
}

// lockInvoice locks the invoice row into dst. If another transaction moved
// it away from owner in the meantime, the new owner is locked as well.
func lockInvoice(tx *gorm.DB, id, owner uint, dst *models.Invoice) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("invoice_not_found")
	}
	if err != nil {
		return storage("lock invoice", err)
	}
	if dst.ClientID != owner {
		return lockClients(tx, dst.ClientID)
	}
	return nil
}
