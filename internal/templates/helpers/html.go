package helpers

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Attr is a single HTML attribute. Boolean attributes are rendered without a value.
type Attr struct {
	Name    string
	Value   string
	Boolean bool
}

// A returns a valued attribute.
func A(name, value string) Attr {
	return Attr{Name: name, Value: value}
}

// B returns a boolean attribute rendered only when on is true.
func B(name string, on bool) Attr {
	if !on {
		return Attr{}
	}
	return Attr{Name: name, Boolean: true}
}

// HTML accumulates markup and remembers the first write error.
type HTML struct {
	w   io.Writer
	err error
}

// NewHTML wraps w.
func NewHTML(w io.Writer) *HTML {
	return &HTML{w: w}
}

// Raw writes s verbatim.
func (h *HTML) Raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// Text writes s escaped.
func (h *HTML) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Open writes a start tag.
func (h *HTML) Open(tag string, attrs ...Attr) {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(tag)
	for _, attr := range attrs {
		if attr.Name == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(attr.Name)
		if attr.Boolean {
			continue
		}
		b.WriteString(`="`)
		b.WriteString(templ.EscapeString(attr.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	h.Raw(b.String())
}

// Close writes an end tag.
func (h *HTML) Close(tag string) {
	h.Raw("</" + tag + ">")
}

// Element writes a start tag, escaped text and the end tag.
func (h *HTML) Element(tag, text string, attrs ...Attr) {
	h.Open(tag, attrs...)
	h.Text(text)
	h.Close(tag)
}

// Render renders a nested component into the same writer.
func (h *HTML) Render(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Err returns the first write error.
func (h *HTML) Err() error {
	return h.err
}

// Component builds a templ component from a function writing through HTML.
func Component(fn func(ctx context.Context, h *HTML)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := NewHTML(w)
		fn(ctx, h)
		return h.Err()
	})
}

// Classes joins the non-empty class names.
func Classes(names ...string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}
