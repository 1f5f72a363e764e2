// Package render turns documents and page data into HTML: markdown through
// goldmark and pages through embedded html/template views.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/goflash/flashcms/document"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names accepted by Renderer.Page and Renderer.Render.
const (
	PageIndex    = "index"
	PageDocument = "document"
	PageNew      = "new"
	PageEdit     = "edit"
	PageSignIn   = "signin"
	PageSignUp   = "signup"
	PageError    = "error"
)

var pageNames = []string{PageIndex, PageDocument, PageNew, PageEdit, PageSignIn, PageSignUp, PageError}

// Page is the data every view receives. Data carries the view specific part.
type Page struct {
	Title     string
	User      string
	Flash     string
	CSRFToken string
	Data      any
}

// IndexData lists the stored documents.
type IndexData struct {
	Documents []document.Info
}

// DocumentData is a rendered markdown document.
type DocumentData struct {
	Name string
	HTML template.HTML
}

// NewData refills the new document form.
type NewData struct {
	Name string
}

// EditData fills the edit form.
type EditData struct {
	Name    string
	Content string
}

// UserFormData refills the sign-in and sign-up forms.
type UserFormData struct {
	Username string
	Redirect string
}

// ErrorData describes a failed request.
type ErrorData struct {
	Status  int
	Message string
}

// SignedIn reports whether a user is signed in.
func (p Page) SignedIn() bool { return p.User != "" }

// Renderer holds the parsed views and the markdown engine. It is safe for
// concurrent use.
type Renderer struct {
	md    goldmark.Markdown
	pages map[string]*template.Template
}

// New parses the embedded views.
func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"docURL": DocURL,
		"sizeOf": humanSize,
		"dateOf": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
	}
	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
		),
		pages: make(map[string]*template.Template, len(pageNames)),
	}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("render: parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Markdown converts markdown source to HTML. Raw HTML in the source is not
// passed through.
//
//	r.Markdown([]byte("# An h1 header")) // "<h1>An h1 header</h1>\n"
func (r *Renderer) Markdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Render executes the named view into a buffer, so a failing template never
// leaves a half-written response.
func (r *Renderer) Render(name string, p Page) ([]byte, error) {
	t, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("render: unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return nil, fmt.Errorf("render: execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Page renders the named view to w.
func (r *Renderer) Page(w io.Writer, name string, p Page) error {
	b, err := r.Render(name, p)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Static returns the stylesheet and other assets served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// DocURL returns the path a document is served at.
func DocURL(name string) string { return "/docs/" + url.PathEscape(name) }

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
