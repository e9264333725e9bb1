package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Status string `json:"status" validate:"required,oneof=Envoyée Payée Annulée"`
	Date   string `json:"date_envoi" validate:"required,datetime=2006-01-02"`
	Hidden string `json:"-" validate:"required"`
}

func TestStruct(t *testing.T) {
	v := Struct(sample{
		Email:  "not-an-email",
		Status: "Brouillon",
		Date:   "01/02/2024",
		Hidden: "x",
	})

	assert.Equal(t, Violations{
		"name":       "required",
		"email":      "invalid_email",
		"status":     "invalid_choice",
		"date_envoi": "invalid_date",
	}, v)
}

func TestStructValid(t *testing.T) {
	v := Struct(sample{Name: "Acme", Email: "a@x.com", Status: "Payée", Date: "2024-01-01", Hidden: "x"})
	assert.True(t, v.Empty())
}

func TestStructNotAStruct(t *testing.T) {
	v := Struct(42)
	assert.Equal(t, "invalid", v["_"])
}

func TestBasicValidators(t *testing.T) {
	v := make(Violations)
	PositiveDecimal("montant", decimal.Zero, v)
	PositiveDecimal("other", decimal.NewFromInt(-3), v)
	MaxDecimal("big", decimal.NewFromInt(100), decimal.NewFromInt(10), v)
	PositiveDecimal("ok", decimal.NewFromFloat(0.01), v)

	assert.Equal(t, Violations{
		"montant": "must_be_positive",
		"other":   "must_be_positive",
		"big":     "out_of_range",
	}, v)
}

func TestAddKeepsFirstViolation(t *testing.T) {
	v := make(Violations)
	v.Add("email", "required")
	v.Add("email", "invalid_email")
	assert.Equal(t, "required", v["email"])
}

type coded struct {
	Ref string `json:"ref" validate:"required,ref_code"`
}

func TestRegisterString(t *testing.T) {
	RegisterString("ref_code", "invalid_ref", func(s string) bool {
		return len(s) == 3
	})

	assert.True(t, Struct(coded{Ref: "abc"}).Empty())
	assert.Equal(t, Violations{"ref": "invalid_ref"}, Struct(coded{Ref: "abcd"}))
	assert.Equal(t, Violations{"ref": "required"}, Struct(coded{}))
}
