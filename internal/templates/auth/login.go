package auth

import (
	"context"
	"encoding/json"

	"github.com/a-h/templ"

	"finitefield.org/enquete-web/internal/login"
	"finitefield.org/enquete-web/internal/templates/helpers"
	"finitefield.org/enquete-web/internal/templates/layouts"
)

// Logo renders the application logo.
func Logo() templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("img",
			helpers.A("data-testid", "logo"),
			helpers.A("class", "logo"),
			helpers.A("src", "/static/logo.svg"),
			helpers.A("alt", "4dev"),
		)
	})
}

// LoginHeader renders the logo and the application title.
func LoginHeader(title string) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("header", helpers.A("data-testid", "login-header"), helpers.A("class", "login-header"))
		h.Render(ctx, Logo())
		h.Element("h1", title)
		h.Close("header")
	})
}

// FieldStatus renders the validity indicator next to field. With oob set it is
// marked for an htmx out-of-band swap.
func FieldStatus(field, errorMessage, okTitle string, oob bool) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		title, glyph, modifier := okTitle, StatusValid, "status-valid"
		if errorMessage != "" {
			title, glyph, modifier = errorMessage, StatusInvalid, "status-invalid"
		}
		attrs := []helpers.Attr{
			helpers.A("id", field+"-status"),
			helpers.A("data-testid", field+"-status"),
			helpers.A("class", helpers.Classes("status", modifier)),
			helpers.A("title", title),
		}
		if oob {
			attrs = append(attrs, helpers.A("hx-swap-oob", "true"))
		}
		h.Element("span", glyph, attrs...)
	})
}

// SubmitButton renders the submit control, disabled while the form is invalid
// or a submission is pending.
func SubmitButton(state login.FormState, label string, oob bool) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		attrs := []helpers.Attr{
			helpers.A("type", "submit"),
			helpers.A("id", "submit"),
			helpers.A("data-testid", "submit"),
			helpers.A("class", "submit"),
			helpers.B("disabled", state.SubmitDisabled()),
		}
		if oob {
			attrs = append(attrs, helpers.A("hx-swap-oob", "true"))
		}
		h.Element("button", label, attrs...)
	})
}

// FormStatus renders the error-warp region. It has no child elements unless
// a submission is pending or failed. It doubles as the form's htmx indicator.
func FormStatus(state login.FormState, loadingLabel string) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("div",
			helpers.A("id", FormIndicatorID),
			helpers.A("data-testid", "error-warp"),
			helpers.A("class", "error-warp"),
			helpers.A("aria-live", "polite"),
		)
		if state.IsLoading {
			h.Element("span", "",
				helpers.A("data-testid", "spinner"),
				helpers.A("class", "spinner"),
				helpers.A("role", "status"),
				helpers.A("aria-label", loadingLabel),
			)
		}
		if state.SubmissionError != "" {
			h.Element("span", state.SubmissionError,
				helpers.A("data-testid", "main-error"),
				helpers.A("class", "main-error"),
			)
		}
		h.Close("div")
	})
}

// FieldFeedback is the htmx response to a keystroke: the field status plus
// the submit button swapped out of band.
func FieldFeedback(field string, data FormData) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Render(ctx, FieldStatus(field, data.State.FieldError(field), data.Labels.StatusOK, false))
		h.Render(ctx, SubmitButton(data.State, data.Labels.Submit, true))
	})
}

// LoginForm renders the whole form fragment.
func LoginForm(data FormData) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("form",
			helpers.A("id", "login-form"),
			helpers.A("data-testid", "form"),
			helpers.A("class", "login-form"),
			helpers.A("method", "post"),
			helpers.A("action", SubmitPath),
			helpers.A("hx-post", SubmitPath),
			helpers.A("hx-target", "this"),
			helpers.A("hx-swap", "outerHTML"),
			helpers.A("hx-disabled-elt", "find button[type='submit']"),
			helpers.A("hx-indicator", "#"+FormIndicatorID),
			helpers.B("novalidate", true),
		)
		h.Open("input", helpers.A("type", "hidden"), helpers.A("name", CSRFField), helpers.A("value", data.CSRFToken))
		h.Element("h2", data.Labels.Title)

		renderInput(ctx, h, data, login.FieldEmail, "email", data.Labels.EmailPlaceholder)
		renderInput(ctx, h, data, login.FieldPassword, "password", data.Labels.PasswordPlaceholder)

		h.Render(ctx, SubmitButton(data.State, data.Labels.Submit, false))
		h.Render(ctx, FormStatus(data.State, data.Labels.Loading))
		h.Close("form")
	})
}

func renderInput(ctx context.Context, h *helpers.HTML, data FormData, field, inputType, placeholder string) {
	vals, _ := json.Marshal(map[string]string{"field": field})
	value := ""
	if inputType != "password" {
		value = data.State.FieldValue(field)
	}

	h.Open("div", helpers.A("class", "input-wrap"))
	h.Open("input",
		helpers.A("type", inputType),
		helpers.A("name", field),
		helpers.A("id", field),
		helpers.A("data-testid", field),
		helpers.A("placeholder", placeholder),
		helpers.A("value", value),
		helpers.A("hx-post", ValidatePath),
		helpers.A("hx-trigger", "input changed delay:150ms"),
		helpers.A("hx-target", "#"+field+"-status"),
		helpers.A("hx-swap", "outerHTML"),
		helpers.A("hx-include", "closest form"),
		helpers.A("hx-vals", string(vals)),
		helpers.A("hx-indicator", "#"+field+"-status"),
	)
	h.Render(ctx, FieldStatus(field, data.State.FieldError(field), data.Labels.StatusOK, false))
	h.Close("div")
}

// LoginPage renders the full login document.
func LoginPage(data LoginPageData) templ.Component {
	body := helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("div", helpers.A("class", "login"))
		h.Render(ctx, LoginHeader(data.Form.Labels.AppName))
		h.Render(ctx, LoginForm(data.Form))
		h.Close("div")
	})
	return layouts.Base(layouts.BaseData{
		Lang:       data.Lang,
		Title:      data.Form.Labels.Title + " | " + data.Form.Labels.AppName,
		CSRFToken:  data.Form.CSRFToken,
		CSRFHeader: data.CSRFHeader,
	}, body)
}
