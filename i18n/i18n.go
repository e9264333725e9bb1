// Package i18n holds the user-facing messages of the API. French is the
// default language; English is served when the client asks for it.
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "fr"

var messages = map[string]map[string]string{
	"fr": {
		"required":          "Requis",
		"invalid_email":     "Adresse e-mail invalide",
		"invalid_choice":    "Valeur non autorisée",
		"invalid_date":      "Date invalide (AAAA-MM-JJ)",
		"must_be_positive":  "Doit être strictement positif",
		"out_of_range":      "Valeur hors limites",
		"invalid":           "Valeur invalide",
		"invalid_json":      "Corps de requête JSON invalide",
		"invalid_id":        "Identifiant invalide",
		"validation_failed": "Tous les champs sont obligatoires et doivent être valides",
		"client_not_found":  "Aucun client trouvé avec cet identifiant",
		"invoice_not_found": "Aucune facture trouvée avec cet identifiant",
		"email_taken":       "Cette adresse e-mail est déjà utilisée",
		"storage_error":     "Erreur serveur lors de l'accès aux données",
		"client_deleted":    "Client supprimé avec succès",
		"invoice_deleted":   "Facture supprimée avec succès",
		"internal_error":    "Erreur interne du serveur",
		"totals_drift":      "Les totaux de certains clients ne correspondent plus à leurs factures",
	},
	"en": {
		"required":          "Required",
		"invalid_email":     "Invalid e-mail address",
		"invalid_choice":    "Value not allowed",
		"invalid_date":      "Invalid date (YYYY-MM-DD)",
		"must_be_positive":  "Must be strictly positive",
		"out_of_range":      "Value out of range",
		"invalid":           "Invalid value",
		"invalid_json":      "Invalid JSON request body",
		"invalid_id":        "Invalid identifier",
		"validation_failed": "All fields are required and must be valid",
		"client_not_found":  "No client found with this identifier",
		"invoice_not_found": "No invoice found with this identifier",
		"email_taken":       "This e-mail address is already in use",
		"storage_error":     "Server error while accessing data",
		"client_deleted":    "Client deleted",
		"invoice_deleted":   "Invoice deleted",
		"internal_error":    "Internal server error",
		"totals_drift":      "Some client totals no longer match their invoices",
	},
}

// DetectLanguage picks a supported language from an Accept-Language header.
// Only the first listed language is considered.
func DetectLanguage(acceptLanguage string) string {
	first := strings.TrimSpace(strings.SplitN(acceptLanguage, ",", 2)[0])
	first = strings.SplitN(first, ";", 2)[0]
	base := strings.ToLower(strings.SplitN(first, "-", 2)[0])
	if _, ok := messages[base]; ok {
		return base
	}
	return DefaultLang
}

// T translates code into lang, falling back to French, then to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

type langKey struct{}

// WithLang stores the request language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the request language, DefaultLang when unset.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}
