// Package validation turns input checks into a field → code map that the
// HTTP layer renders as error details.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Basic validators
func PositiveDecimal(field string, val decimal.Decimal, v Violations) {
	if !val.IsPositive() {
		v.Add(field, "must_be_positive")
	}
}

func MaxDecimal(field string, val, maxVal decimal.Decimal, v Violations) {
	if val.GreaterThan(maxVal) {
		v.Add(field, "out_of_range")
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once

	customMu    sync.RWMutex
	customCodes = map[string]string{}
)

// RegisterString adds a `validate` tag for string fields accepted by ok.
// A field failing it is reported with code. Call it from init, before any
// Struct call.
func RegisterString(tag, code string, ok func(string) bool) {
	err := engine().RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return ok(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
	customMu.Lock()
	customCodes[tag] = code
	customMu.Unlock()
}

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// report json names, not Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct runs the `validate` tags of s and returns the resulting violations.
// Errors that are not field errors (e.g. s is not a struct) are reported
// under the "_" key.
func Struct(s any) Violations {
	v := make(Violations)
	err := engine().Struct(s)
	if err == nil {
		return v
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v["_"] = "invalid"
		return v
	}
	for _, fe := range fieldErrs {
		v.Add(fe.Field(), codeFor(fe.Tag()))
	}
	return v
}

func codeFor(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "invalid_email"
	case "oneof":
		return "invalid_choice"
	case "datetime":
		return "invalid_date"
	case "max":
		return "too_long"
	}
	customMu.RLock()
	defer customMu.RUnlock()
	if code, ok := customCodes[tag]; ok {
		return code
	}
	return "invalid"
}
