package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)
	phoneCharsRe = regexp.MustCompile(`^\+?[0-9 ()\-]+$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("taxid", validateTaxID)
		_ = v.RegisterValidation("phone", validatePhone)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

func validateTaxID(fl validator.FieldLevel) bool {
	return ValidCPF(fl.Field().String())
}

func validatePhone(fl validator.FieldLevel) bool {
	return ValidPhone(fl.Field().String())
}

// ValidCPF reports whether s is a CPF with valid check digits.
// Punctuation ("529.982.247-25") is ignored.
func ValidCPF(s string) bool {
	d := digits(s)
	if len(d) != 11 || strings.Count(string(d), string(d[0])) == 11 {
		return false
	}
	for n := 9; n <= 10; n++ {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		check := sum * 10 % 11
		if check == 10 {
			check = 0
		}
		if check != int(d[n]-'0') {
			return false
		}
	}
	return true
}

// ValidPhone accepts Brazilian numbers with area code, with or without +55.
func ValidPhone(s string) bool {
	if !phoneCharsRe.MatchString(strings.TrimSpace(s)) {
		return false
	}
	d := digits(s)
	if (len(d) == 12 || len(d) == 13) && strings.HasPrefix(string(d), "55") {
		d = d[2:]
	}
	if len(d) != 10 && len(d) != 11 {
		return false
	}
	return d[0] != '0'
}

func digits(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return out
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string and nested struct pointers) of a struct pointer.
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
			switch elem.Kind() {
			case reflect.String:
				elem.SetString(sanitize(elem.String()))
			case reflect.Struct:
				sanitizeFields(elem)
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
