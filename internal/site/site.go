// Package site renders the brochure pages from embedded html/template files.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/kic113/site/internal/model"
	"github.com/kic113/site/internal/theme"
)

//go:embed templates static
var assets embed.FS

// Page names; each has one template file under templates/.
const (
	PageHome         = "home"
	PageServices     = "services"
	PageBlog         = "blog"
	PageBlogDetail   = "blog_detail"
	PageTestimonials = "testimonials"
	PageContact      = "contact"
	PagePrivacy      = "privacy"
	PageNotFound     = "not_found"
)

var pageNames = []string{
	PageHome, PageServices, PageBlog, PageBlogDetail,
	PageTestimonials, PageContact, PagePrivacy, PageNotFound,
}

const baseLayout = "base.html"

// NavItem is one entry of the main navigation.
type NavItem struct {
	Label  string
	Href   string
	Active bool
}

var navLinks = []NavItem{
	{Label: "Home", Href: "/"},
	{Label: "Services", Href: "/services"},
	{Label: "Blog", Href: "/blog"},
	{Label: "Testimonials", Href: "/testimonials"},
	{Label: "Contact", Href: "/contact"},
}

// PageData is the view model every page template receives.
type PageData struct {
	SiteTitle  string
	BaseURL    string
	Page       string
	Title      string
	Path       string
	Theme      theme.Theme
	OtherTheme theme.Theme
	Nav        []NavItem
	Contact    model.ContactDetails
	Year       int
	Data       any
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	siteTitle string
	baseURL   string
	pages     map[string]*template.Template
	now       func() time.Time
}

// NewRenderer parses base.html and the partials once, then clones that set
// for each page so every page can define its own "content" block.
func NewRenderer(siteTitle, baseURL string) (*Renderer, error) {
	root, err := template.New(baseLayout).Funcs(funcs).ParseFS(assets, "templates/"+baseLayout, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base layout and partials: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := root.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone base layout for %s: %w", name, err)
		}
		t, err := clone.ParseFS(assets, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Renderer{
		siteTitle: siteTitle,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		pages:     pages,
		now:       time.Now,
	}, nil
}

// Data builds the shared part of PageData for a request to path.
func (r *Renderer) Data(page, title, path string, t theme.Theme, contact model.ContactDetails, data any) PageData {
	nav := make([]NavItem, len(navLinks))
	for i, item := range navLinks {
		item.Active = isActive(item.Href, path)
		nav[i] = item
	}
	return PageData{
		SiteTitle:  r.siteTitle,
		BaseURL:    r.baseURL,
		Page:       page,
		Title:      title,
		Path:       path,
		Theme:      t,
		OtherTheme: t.Other(),
		Nav:        nav,
		Contact:    contact,
		Year:       r.now().Year(),
		Data:       data,
	}
}

// Render executes the page into w. Nothing is written if execution fails.
func (r *Renderer) Render(w io.Writer, data PageData) error {
	t, ok := r.pages[data.Page]
	if !ok {
		return fmt.Errorf("unknown page %q", data.Page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, baseLayout, data); err != nil {
		return fmt.Errorf("failed to execute template for page %s: %w", data.Page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static returns the stylesheet and other assets rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func isActive(href, path string) bool {
	if href == "/" {
		return path == "/"
	}
	return path == href || strings.HasPrefix(path, href+"/")
}
