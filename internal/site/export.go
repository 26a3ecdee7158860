package site

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/kic113/site/internal/contact"
	"github.com/kic113/site/internal/content"
	"github.com/kic113/site/internal/logger"
	"github.com/kic113/site/internal/theme"
)

// Route is one statically renderable URL.
type Route struct {
	Path  string
	Page  string
	Title string
	Data  any
}

// Routes lists every page reachable by GET, one per blog post included.
func Routes(c *content.Catalog) []Route {
	routes := []Route{
		{Path: "/", Page: PageHome, Data: Home(c)},
		{Path: "/services", Page: PageServices, Title: "Services", Data: ServicesView{Services: c.Services()}},
		{Path: "/blog", Page: PageBlog, Title: "Blog", Data: BlogView{Posts: c.Posts()}},
		{Path: "/testimonials", Page: PageTestimonials, Title: "Testimonials", Data: TestimonialsView{Testimonials: c.Testimonials(), Featured: c.Featured()}},
		{Path: "/contact", Page: PageContact, Title: "Contact", Data: Contact(contact.NewFlow(contact.Form{}), "")},
		{Path: "/privacy", Page: PagePrivacy, Title: "Privacy Policy", Data: PrivacyView{Sections: c.Policy()}},
	}
	for _, p := range c.Posts() {
		routes = append(routes, Route{
			Path:  "/blog/" + strconv.Itoa(p.ID),
			Page:  PageBlogDetail,
			Title: p.Title,
			Data:  PostView{Post: p},
		})
	}
	return routes
}

// Export writes every route to outDir/<path>/index.html, a 404.html and the
// static assets. The output directory is emptied first.
func Export(outDir string, r *Renderer, c *content.Catalog, log *logger.Logger) error {
	log = log.WithFields(map[string]any{"component": "export", "out": outDir})

	if err := os.RemoveAll(outDir); err != nil {
		return fmt.Errorf("failed to remove output directory '%s': %w", outDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory '%s': %w", outDir, err)
	}

	if err := copyFS(Static(), filepath.Join(outDir, "static")); err != nil {
		return fmt.Errorf("failed to copy static assets: %w", err)
	}

	// A static page cannot toggle, so every page gets the default theme.
	th := theme.New(&theme.MemoryStore{}).Load()

	routes := Routes(c)
	for _, route := range routes {
		target := filepath.Join(outDir, filepath.FromSlash(path.Clean(route.Path)), "index.html")
		data := r.Data(route.Page, route.Title, route.Path, th, c.Contact(), route.Data)
		if err := writePage(target, r, data); err != nil {
			return err
		}
		log.Debug("generated " + target)
	}

	notFound := r.Data(PageNotFound, "Not Found", "", th, c.Contact(), PageMissing())
	if err := writePage(filepath.Join(outDir, "404.html"), r, notFound); err != nil {
		return err
	}

	log.WithFields(map[string]any{"pages": len(routes) + 1}).Info("export completed")
	return nil
}

func writePage(target string, r *Renderer, data PageData) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", target, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create output file '%s': %w", target, err)
	}
	defer f.Close()

	if err := r.Render(f, data); err != nil {
		return fmt.Errorf("failed to render '%s': %w", target, err)
	}
	return f.Close()
}

// copyFS copies every file in src into dst, creating directories as needed.
func copyFS(src fs.FS, dst string) error {
	return fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dst, filepath.FromSlash(p))
		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			return nil
		}
		data, err := fs.ReadFile(src, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		return nil
	})
}
