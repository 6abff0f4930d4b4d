package dto

import (
	"reflect"
	"regexp"
	"strings"

	"merchant-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stellar/go/strkey"
)

var intAmountRe = regexp.MustCompile(`^-?[0-9]{1,40}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("stellar_address", validateStellarAddress)
		_ = v.RegisterValidation("token_id", validateTokenID)
		_ = v.RegisterValidation("int_amount", validateIntAmount)
		_ = v.RegisterValidation("ledger_role", validateRole)
	}
}

// validateStellarAddress accepts ed25519 account addresses (G...).
func validateStellarAddress(fl validator.FieldLevel) bool {
	return strkey.IsValidEd25519PublicKey(strings.TrimSpace(fl.Field().String()))
}

// validateTokenID accepts "native" or "CODE:ISSUER".
func validateTokenID(fl validator.FieldLevel) bool {
	return domain.Token(strings.TrimSpace(fl.Field().String())).Validate() == nil
}

// validateIntAmount accepts base-10 integers. Range is checked when the amount is parsed.
func validateIntAmount(fl validator.FieldLevel) bool {
	return intAmountRe.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validateRole(fl validator.FieldLevel) bool {
	_, err := domain.ParseRole(fl.Field().String())
	return err == nil
}

// SanitizeStruct trims whitespace from every exported string field
// (including *string) of a struct pointer. Text is stored as sent; JSON
// responses escape HTML-sensitive characters on output.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return strings.TrimSpace(s)
}
