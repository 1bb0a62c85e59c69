package validation

import "strings"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors é a lista ordenada de erros de um formulário. nil significa formulário válido.
type Errors []FieldError

func (e Errors) Error() string {
	messages := make([]string, len(e))
	for i, fieldErr := range e {
		messages[i] = fieldErr.Field + ": " + fieldErr.Message
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// For retorna a primeira mensagem do campo, "" quando o campo é válido.
func (e Errors) For(field string) string {
	for _, fieldErr := range e {
		if fieldErr.Field == field {
			return fieldErr.Message
		}
	}
	return ""
}

// First is the message shown in the single alert of a failed submit.
func (e Errors) First() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Message
}

func (e *Errors) add(field string, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
