package models

import "github.com/shopspring/decimal"

// Client represents a billable party. TotalFactures and MontantTotal are
// derived from the client's invoices and only ever written by the totals
// recomputation in the services package.
type Client struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:255;not null" json:"name"`
	Email      string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Entreprise string `gorm:"size:255;not null" json:"entreprise"`

	TotalFactures int             `gorm:"not null;default:0" json:"total_factures"`
	MontantTotal  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"montant_total"`

	Invoices []Invoice `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the singular table name of the existing schema.
func (Client) TableName() string { return "client" }
