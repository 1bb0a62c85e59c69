package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	MsgRequired        = "Este campo es obligatorio."
	MsgAllRequired     = "Todos los campos son obligatorios."
	MsgInvalidEmail    = "El formato del correo electrónico no es válido."
	MsgSecretsMismatch = "Las contraseñas no coinciden."
	MsgWeakSecret      = "La contraseña debe tener al menos 8 caracteres incluyendo una letra mayúscula, una minúscula, un número y un carácter especial."
	MsgWeakSecretPlain = "La contraseña debe tener al menos 8 caracteres incluyendo una letra mayúscula, una minúscula y un número."
	MsgSignInRequired  = "Por favor ingrese ambos campos para continuar."
	MsgProfileRequired = "Por favor complete los campos obligatorios"
	MsgProductName     = "El nombre del producto es requerido"
	MsgProductPrice    = "El precio debe ser un número válido"
	MsgProductCategory = "La categoría es requerida"
	MsgUnknownCategory = "La categoría no es válida"
	MsgProductQuantity = "La cantidad debe ser un número entero mayor o igual a cero"
)

const SpecialCharacters = `!@#$%^&*(),.?":{}|<>`

const MinSecretLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// SecretPolicy é a política de complexidade de senha. RequireSpecial varia entre as telas de cadastro.
type SecretPolicy struct {
	RequireSpecial bool
}

// SecretChecklist diz quais regras da política a senha já cumpre, usado nas dicas em tempo real.
type SecretChecklist struct {
	MinLength bool `json:"min_length"`
	Upper     bool `json:"upper"`
	Lower     bool `json:"lower"`
	Digit     bool `json:"digit"`
	Special   bool `json:"special"`
}

func (p SecretPolicy) Check(secret string) SecretChecklist {
	checklist := SecretChecklist{MinLength: len([]rune(secret)) >= MinSecretLength}

	for _, r := range secret {
		switch {
		case unicode.IsUpper(r):
			checklist.Upper = true
		case unicode.IsLower(r):
			checklist.Lower = true
		case unicode.IsDigit(r):
			checklist.Digit = true
		}
		if strings.ContainsRune(SpecialCharacters, r) {
			checklist.Special = true
		}
	}
	return checklist
}

func (p SecretPolicy) Accepts(secret string) bool {
	c := p.Check(secret)
	ok := c.MinLength && c.Upper && c.Lower && c.Digit
	if p.RequireSpecial {
		ok = ok && c.Special
	}
	return ok
}

func (p SecretPolicy) message() string {
	if p.RequireSpecial {
		return MsgWeakSecret
	}
	return MsgWeakSecretPlain
}

// ParsePrice aceita vírgula ou ponto como separador decimal.
func ParsePrice(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0, false
	}

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, false
	}
	return price, true
}

func parseQuantity(raw string) (float64, bool) {
	quantity, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || quantity < 0 {
		return 0, false
	}
	return float64(quantity), true
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
