package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	// MessageRequired is reported for empty values.
	MessageRequired = "Campo obrigatório"
	// MessageInvalid is reported for values that fail a format or length rule.
	MessageInvalid = "Valor inválido"
)

// FieldValidation checks a single field against the full set of form values.
// It returns an empty string when the value is acceptable.
type FieldValidation interface {
	Field() string
	Validate(values map[string]string) string
}

// Composite runs the validations registered for a field in order and reports
// the first failure.
type Composite struct {
	validations []FieldValidation
}

// NewComposite constructs a Composite from the provided field validations.
func NewComposite(validations ...FieldValidation) *Composite {
	return &Composite{validations: append([]FieldValidation(nil), validations...)}
}

// Validate returns the first error message for field, or "" when every rule passes.
func (c *Composite) Validate(field string, values map[string]string) string {
	if c == nil {
		return ""
	}
	for _, v := range c.validations {
		if v.Field() != field {
			continue
		}
		if msg := v.Validate(values); msg != "" {
			return msg
		}
	}
	return ""
}

type requiredField struct {
	field string
}

func (r requiredField) Field() string { return r.field }

func (r requiredField) Validate(values map[string]string) string {
	if strings.TrimSpace(values[r.field]) == "" {
		return MessageRequired
	}
	return ""
}

type emailField struct {
	field string
}

func (e emailField) Field() string { return e.field }

// Validate accepts empty input so that Required stays responsible for presence.
func (e emailField) Validate(values map[string]string) string {
	value := strings.TrimSpace(values[e.field])
	if value == "" {
		return ""
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || addr.Name != "" {
		return MessageInvalid
	}
	at := strings.LastIndexByte(value, '@')
	if at <= 0 || !strings.Contains(value[at+1:], ".") {
		return MessageInvalid
	}
	return ""
}

type minLengthField struct {
	field  string
	length int
}

func (m minLengthField) Field() string { return m.field }

func (m minLengthField) Validate(values map[string]string) string {
	if utf8.RuneCountInString(values[m.field]) < m.length {
		return MessageInvalid
	}
	return ""
}
