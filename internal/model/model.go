package model

import "html/template"

// BlogPost is a single article on the blog. Content is sanitized HTML
// rendered from the post's markdown source.
type BlogPost struct {
	ID      int
	Slug    string
	Title   string
	Date    string
	Author  string
	Excerpt string
	Content template.HTML
}

// HasContent reports whether the post carries a body beyond its excerpt.
func (p BlogPost) HasContent() bool {
	return p.Content != ""
}

// Service is one offering on the services page. Icon names a glyph from the
// site's icon set (shield, star, sparkles).
type Service struct {
	Title       string   `yaml:"title"`
	Icon        string   `yaml:"icon"`
	Description string   `yaml:"description"`
	Features    []string `yaml:"features"`
}

// Testimonial is a client quote. Featured testimonials are the ones shown on
// the home page carousel.
type Testimonial struct {
	Quote    string `yaml:"quote"`
	Author   string `yaml:"author"`
	Featured bool   `yaml:"featured"`
}

// Audience is one entry of the "who can use" section.
type Audience struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type PolicySection struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type ContactDetails struct {
	Address string `yaml:"address"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
}
