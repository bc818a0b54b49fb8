package utils

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

var (
	phoneRegex = regexp.MustCompile(`(?i)^(\+\d{1,2}\s)?\(?\d{3}\)?[\s.-]\d{3}[\s.-]\d{4}$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// IsEmpty informa si s es la cadena vacía.
func IsEmpty(s string) bool {
	return s == ""
}

// IsBlank informa si s está vacía o sólo contiene espacios.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsValidEmail informa si s tiene formato de dirección de correo.
func IsValidEmail(s string) bool {
	return validatorInstance().Var(s, "required,email") == nil
}

// IsValidPhoneNumber acepta números norteamericanos: "555-123-4567", "(555) 123-4567",
// "+1 555.123.4567".
func IsValidPhoneNumber(s string) bool {
	return phoneRegex.MatchString(s)
}

// ToBytes codifica s con enc. Si enc es nil usa UTF-8.
func ToBytes(s string, enc encoding.Encoding) ([]byte, error) {
	if enc == nil {
		enc = unicode.UTF8
	}
	return enc.NewEncoder().Bytes([]byte(s))
}

// FromBytes decodifica b con enc. Si enc es nil usa UTF-8.
func FromBytes(b []byte, enc encoding.Encoding) (string, error) {
	if enc == nil {
		enc = unicode.UTF8
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ToBase64 codifica texto UTF-8 en Base64 estándar.
func ToBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// FromBase64 decodifica Base64 estándar a texto UTF-8.
func FromBase64(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToHex codifica bytes en hexadecimal en mayúsculas.
func ToHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// FromHex decodifica una cadena hexadecimal (mayúsculas o minúsculas).
func FromHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
