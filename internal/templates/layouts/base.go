package layouts

import (
	"context"
	"encoding/json"

	"github.com/a-h/templ"

	"finitefield.org/enquete-web/internal/templates/helpers"
)

const htmxScript = "https://unpkg.com/htmx.org@2.0.3"

// BaseData carries the document level settings shared by every page.
type BaseData struct {
	Lang       string
	Title      string
	CSRFToken  string
	CSRFHeader string
}

// Base renders the HTML document shell around body. The CSRF token is exposed
// both as a meta tag and as htmx request headers.
func Base(data BaseData, body templ.Component) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Raw("<!DOCTYPE html>")
		h.Open("html", helpers.A("lang", data.Lang))
		h.Open("head")
		h.Open("meta", helpers.A("charset", "utf-8"))
		h.Open("meta", helpers.A("name", "viewport"), helpers.A("content", "width=device-width, initial-scale=1"))
		if data.CSRFToken != "" {
			h.Open("meta", helpers.A("name", "csrf-token"), helpers.A("content", data.CSRFToken))
		}
		h.Element("title", data.Title)
		h.Open("link", helpers.A("rel", "stylesheet"), helpers.A("href", "/static/login.css"))
		h.Open("script", helpers.A("src", htmxScript), helpers.B("defer", true))
		h.Close("script")
		h.Close("head")

		bodyAttrs := []helpers.Attr{}
		if headers := csrfHeaders(data); headers != "" {
			bodyAttrs = append(bodyAttrs, helpers.A("hx-headers", headers))
		}
		h.Open("body", bodyAttrs...)
		h.Render(ctx, body)
		h.Close("body")
		h.Close("html")
	})
}

func csrfHeaders(data BaseData) string {
	if data.CSRFToken == "" || data.CSRFHeader == "" {
		return ""
	}
	raw, err := json.Marshal(map[string]string{data.CSRFHeader: data.CSRFToken})
	if err != nil {
		return ""
	}
	return string(raw)
}
