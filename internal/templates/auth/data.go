package auth

import (
	"finitefield.org/enquete-web/internal/i18n"
	"finitefield.org/enquete-web/internal/login"
)

// Status indicator glyphs. The surrounding spaces are part of the contract.
const (
	StatusInvalid = " 🔴 "
	StatusValid   = " 🟢 "
)

// Routes used by the login form.
const (
	SubmitPath   = "/login"
	ValidatePath = "/login/validate"
	CSRFField    = "_csrf"
)

// FormIndicatorID is the element htmx marks with htmx-request while the form
// submission is in flight.
const FormIndicatorID = "error-warp"

// Labels holds the translated strings of the login screen.
type Labels struct {
	AppName             string
	Title               string
	EmailPlaceholder    string
	PasswordPlaceholder string
	Submit              string
	StatusOK            string
	Loading             string
}

// LabelsFor resolves the login labels for loc.
func LabelsFor(loc i18n.Localizer) Labels {
	return Labels{
		AppName:             loc.T("app.name"),
		Title:               loc.T("login.title"),
		EmailPlaceholder:    loc.T("login.email.placeholder"),
		PasswordPlaceholder: loc.T("login.password.placeholder"),
		Submit:              loc.T("login.submit"),
		StatusOK:            loc.T("login.status.ok"),
		Loading:             loc.T("login.loading"),
	}
}

// FormData is the rendering state of the login form fragment.
type FormData struct {
	State     login.FormState
	Labels    Labels
	CSRFToken string
}

// LoginPageData encapsulates rendering state for the login screen.
type LoginPageData struct {
	Lang       string
	CSRFHeader string
	Form       FormData
}
