package login

// Form field names. They double as the input names and test identifiers on the page.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
)

// Phase summarises the form lifecycle.
type Phase string

const (
	PhasePristine   Phase = "pristine"
	PhaseInvalid    Phase = "invalid"
	PhaseValid      Phase = "valid"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// FormState is a snapshot of the login form.
//
// IsFormInvalid is true iff EmailError or PasswordError is non-empty.
// IsLoading is only true while an authentication call is in flight, or after
// it succeeded and the page is about to be left.
type FormState struct {
	Email           string
	Password        string
	EmailError      string
	PasswordError   string
	IsFormInvalid   bool
	IsLoading       bool
	SubmissionError string
}

// FieldError returns the error slot for field.
func (s FormState) FieldError(field string) string {
	switch field {
	case FieldEmail:
		return s.EmailError
	case FieldPassword:
		return s.PasswordError
	default:
		return ""
	}
}

// FieldValue returns the current value for field.
func (s FormState) FieldValue(field string) string {
	switch field {
	case FieldEmail:
		return s.Email
	case FieldPassword:
		return s.Password
	default:
		return ""
	}
}

// SubmitDisabled reports whether the submit control must be disabled.
func (s FormState) SubmitDisabled() bool {
	return s.IsFormInvalid || s.IsLoading
}

// Credentials is the immutable snapshot handed to authentication.
type Credentials struct {
	Email    string
	Password string
}

func (s FormState) values() map[string]string {
	return map[string]string{
		FieldEmail:    s.Email,
		FieldPassword: s.Password,
	}
}

func (s *FormState) recompute() {
	s.IsFormInvalid = s.EmailError != "" || s.PasswordError != ""
}
