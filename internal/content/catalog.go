// Package content loads the site's hand-authored content (blog posts,
// services, testimonials and the smaller page sections) into an immutable
// Catalog.
package content

import (
	"embed"
	"io/fs"

	"github.com/kic113/site/internal/model"
)

//go:embed data
var embedded embed.FS

// Default returns the content set compiled into the binary.
func Default() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// Catalog is a read-only snapshot of all site content. Accessors return
// copies of the slices so callers cannot mutate the snapshot.
type Catalog struct {
	tagline      string
	posts        []model.BlogPost
	byID         map[int]model.BlogPost
	services     []model.Service
	testimonials []model.Testimonial
	audiences    []model.Audience
	policy       []model.PolicySection
	contact      model.ContactDetails
}

// Post looks up a blog post by id. A miss returns false.
func (c *Catalog) Post(id int) (model.BlogPost, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Posts returns every post, newest first.
func (c *Catalog) Posts() []model.BlogPost {
	return append([]model.BlogPost(nil), c.posts...)
}

func (c *Catalog) Services() []model.Service {
	return append([]model.Service(nil), c.services...)
}

func (c *Catalog) Testimonials() []model.Testimonial {
	return append([]model.Testimonial(nil), c.testimonials...)
}

// Featured returns the featured testimonials in authored order.
func (c *Catalog) Featured() []model.Testimonial {
	var out []model.Testimonial
	for _, t := range c.testimonials {
		if t.Featured {
			out = append(out, t)
		}
	}
	return out
}

func (c *Catalog) Audiences() []model.Audience {
	return append([]model.Audience(nil), c.audiences...)
}

func (c *Catalog) Policy() []model.PolicySection {
	return append([]model.PolicySection(nil), c.policy...)
}

// Tagline is the home-page headline.
func (c *Catalog) Tagline() string {
	return c.tagline
}

func (c *Catalog) Contact() model.ContactDetails {
	return c.contact
}
