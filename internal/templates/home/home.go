package home

import (
	"context"

	"github.com/a-h/templ"

	"finitefield.org/enquete-web/internal/templates/helpers"
	"finitefield.org/enquete-web/internal/templates/layouts"
)

// PageData is the rendering state of the signed-in landing page.
type PageData struct {
	Lang        string
	AppName     string
	Title       string
	Greeting    string
	LogoutLabel string
	LogoutPath  string
	CSRFToken   string
	CSRFHeader  string
}

// Page renders the landing page shown after login.
func Page(data PageData) templ.Component {
	body := helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("main", helpers.A("data-testid", "home"), helpers.A("class", "home"))
		h.Element("h1", data.Title)
		h.Element("p", data.Greeting, helpers.A("data-testid", "greeting"))
		h.Open("form",
			helpers.A("method", "post"),
			helpers.A("action", data.LogoutPath),
			helpers.A("data-testid", "logout"),
		)
		h.Open("input", helpers.A("type", "hidden"), helpers.A("name", "_csrf"), helpers.A("value", data.CSRFToken))
		h.Element("button", data.LogoutLabel, helpers.A("type", "submit"))
		h.Close("form")
		h.Close("main")
	})
	return layouts.Base(layouts.BaseData{
		Lang:       data.Lang,
		Title:      data.Title + " | " + data.AppName,
		CSRFToken:  data.CSRFToken,
		CSRFHeader: data.CSRFHeader,
	}, body)
}
