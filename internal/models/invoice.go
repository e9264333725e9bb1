package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusSent      InvoiceStatus = "Envoyée"
	InvoiceStatusPaid      InvoiceStatus = "Payée"
	InvoiceStatusCancelled InvoiceStatus = "Annulée"
)

// InvoiceStatuses lists every accepted status.
var InvoiceStatuses = []InvoiceStatus{InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled}

// Valid reports whether s is one of the three accepted statuses.
// Any status may follow any other: there is no transition graph.
func (s InvoiceStatus) Valid() bool {
	for _, known := range InvoiceStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DateLayout is the wire and storage layout of DateEnvoi.
const DateLayout = "2006-01-02"

// Invoice is a billing record owned by exactly one client.
type Invoice struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ClientID  uint            `gorm:"index;not null" json:"client_id"`
	DateEnvoi datatypes.Date  `gorm:"not null" json:"date_envoi"`
	Status    InvoiceStatus   `gorm:"size:20;not null;check:status IN ('Payée','Annulée','Envoyée')" json:"status"`
	Montant   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"montant"`
}

// TableName keeps the singular table name of the existing schema.
func (Invoice) TableName() string { return "invoice" }

// SentOn returns DateEnvoi formatted as YYYY-MM-DD.
func (i *Invoice) SentOn() string {
	return time.Time(i.DateEnvoi).Format(DateLayout)
}
