// Package web holds the storefront's HTML templates.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var files embed.FS

// Pages lists every page template. Each is parsed together with the layout.
var Pages = []string{
	"home",
	"product",
	"cart",
	"checkout",
	"login",
	"register",
	"orders",
	"admin",
	"error",
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return "$" + d.StringFixed(2)
	},
	"join":  strings.Join,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
}

// Renderer executes parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses all pages. It fails on the first template error, so a
// broken template stops the server at startup.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(Pages))}
	for _, name := range Pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes page with data into w. Output is buffered so a failing
// template never leaves a half-written page behind.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return errors.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return errors.Wrapf(err, "execute %s", page)
	}
	_, err := buf.WriteTo(w)
	return err
}
