package validation

import (
	"strings"

	"florencia/src/domain/entities"
)

type SignUpForm struct {
	Name          string `json:"name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Secret        string `json:"password"`
	ConfirmSecret string `json:"confirm_password"`
}

func (f SignUpForm) Validate(policy SecretPolicy) error {
	var errs Errors

	required := []struct{ field, value string }{
		{entities.FieldName, f.Name},
		{entities.FieldLastName, f.LastName},
		{entities.FieldEmail, f.Email},
		{"password", f.Secret},
		{"confirmPassword", f.ConfirmSecret},
	}
	for _, r := range required {
		if blank(r.value) {
			errs.add(r.field, MsgAllRequired)
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if !ValidateEmail(f.Email) {
		errs.add(entities.FieldEmail, MsgInvalidEmail)
	}
	if f.Secret != f.ConfirmSecret {
		errs.add("confirmPassword", MsgSecretsMismatch)
	}
	if !policy.Accepts(f.Secret) {
		errs.add("password", policy.message())
	}

	return errs.orNil()
}

func (f SignUpForm) DisplayName() entities.DisplayName {
	return entities.DisplayName{Name: strings.TrimSpace(f.Name), LastName: strings.TrimSpace(f.LastName)}
}

type SignInForm struct {
	Email  string `json:"email"`
	Secret string `json:"password"`
}

func (f SignInForm) Validate() error {
	var errs Errors
	if blank(f.Email) {
		errs.add(entities.FieldEmail, MsgSignInRequired)
	}
	if blank(f.Secret) {
		errs.add("password", MsgSignInRequired)
	}
	return errs.orNil()
}

// ProfileForm é a tela de edição de perfil. Nome, sobrenome e email são obrigatórios.
type ProfileForm struct {
	Name       string `json:"name"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	BirthDate  string `json:"birthDate"`
	NationalID string `json:"nationalId"`
	Gender     string `json:"gender"`
}

func (f ProfileForm) Validate() error {
	var errs Errors

	if blank(f.Name) {
		errs.add(entities.FieldName, MsgProfileRequired)
	}
	if blank(f.LastName) {
		errs.add(entities.FieldLastName, MsgProfileRequired)
	}
	if blank(f.Email) {
		errs.add(entities.FieldEmail, MsgProfileRequired)
	} else if !ValidateEmail(f.Email) {
		errs.add(entities.FieldEmail, MsgInvalidEmail)
	}

	return errs.orNil()
}

// Fields retorna os campos a gravar. Os opcionais vazios são enviados vazios,
// o que permite ao usuário limpar um valor.
func (f ProfileForm) Fields() entities.Fields {
	return entities.Fields{
		entities.FieldName:       strings.TrimSpace(f.Name),
		entities.FieldLastName:   strings.TrimSpace(f.LastName),
		entities.FieldEmail:      strings.TrimSpace(f.Email),
		entities.FieldPhone:      strings.TrimSpace(f.Phone),
		entities.FieldAddress:    strings.TrimSpace(f.Address),
		entities.FieldBirthDate:  strings.TrimSpace(f.BirthDate),
		entities.FieldNationalID: strings.TrimSpace(f.NationalID),
		entities.FieldGender:     strings.TrimSpace(f.Gender),
	}
}

type ProductForm struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Validate checks the product form. categories, when not empty, is the closed list of accepted categories.
func (f ProductForm) Validate(categories []string) error {
	var errs Errors

	if blank(f.Name) {
		errs.add(entities.FieldName, MsgProductName)
	}
	if _, ok := ParsePrice(f.Price); !ok {
		errs.add(entities.FieldPrice, MsgProductPrice)
	}
	if !blank(f.Quantity) {
		if _, ok := parseQuantity(f.Quantity); !ok {
			errs.add(entities.FieldQuantity, MsgProductQuantity)
		}
	}

	switch {
	case blank(f.Category):
		errs.add(entities.FieldCategory, MsgProductCategory)
	case len(categories) > 0 && !contains(categories, strings.TrimSpace(f.Category)):
		errs.add(entities.FieldCategory, MsgUnknownCategory)
	}

	return errs.orNil()
}

// Fields converte o formulário já validado nos campos do produto.
func (f ProductForm) Fields() entities.Fields {
	price, _ := ParsePrice(f.Price)
	fields := entities.Fields{
		entities.FieldName:        strings.TrimSpace(f.Name),
		entities.FieldPrice:       price,
		entities.FieldCategory:    strings.TrimSpace(f.Category),
		entities.FieldDescription: strings.TrimSpace(f.Description),
	}

	if quantity, ok := parseQuantity(f.Quantity); ok {
		fields[entities.FieldQuantity] = quantity
	}
	return fields
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
