package validation

// Builder assembles the validation chain for a single field.
//
//	validation.Field("email").Required().Email().Build()
type Builder struct {
	field       string
	validations []FieldValidation
}

// Field starts a new chain for the named field.
func Field(name string) *Builder {
	return &Builder{field: name}
}

// Required rejects empty or whitespace-only values.
func (b *Builder) Required() *Builder {
	b.validations = append(b.validations, requiredField{field: b.field})
	return b
}

// Email rejects values that are not a bare e-mail address.
func (b *Builder) Email() *Builder {
	b.validations = append(b.validations, emailField{field: b.field})
	return b
}

// MinLength rejects values shorter than length runes.
func (b *Builder) MinLength(length int) *Builder {
	b.validations = append(b.validations, minLengthField{field: b.field, length: length})
	return b
}

// Build returns the accumulated validations.
func (b *Builder) Build() []FieldValidation {
	return append([]FieldValidation(nil), b.validations...)
}

// LoginValidation returns the validation used by the login form.
func LoginValidation() *Composite {
	var validations []FieldValidation
	validations = append(validations, Field("email").Required().Email().Build()...)
	validations = append(validations, Field("password").Required().MinLength(5).Build()...)
	return NewComposite(validations...)
}
