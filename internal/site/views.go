package site

import (
	"github.com/kic113/site/internal/contact"
	"github.com/kic113/site/internal/content"
	"github.com/kic113/site/internal/model"
)

const homePostCount = 3

type HomeView struct {
	Tagline   string
	Services  []model.Service
	Audiences []model.Audience
	Featured  []model.Testimonial
	Posts     []model.BlogPost
}

func Home(c *content.Catalog) HomeView {
	posts := c.Posts()
	if len(posts) > homePostCount {
		posts = posts[:homePostCount]
	}
	return HomeView{
		Tagline:   c.Tagline(),
		Services:  c.Services(),
		Audiences: c.Audiences(),
		Featured:  c.Featured(),
		Posts:     posts,
	}
}

type ServicesView struct {
	Services []model.Service
}

type BlogView struct {
	Posts []model.BlogPost
}

type PostView struct {
	Post model.BlogPost
}

type TestimonialsView struct {
	Testimonials []model.Testimonial
	Featured     []model.Testimonial
}

type PrivacyView struct {
	Sections []model.PolicySection
}

// NotFoundView is the fallback for unknown paths and missing blog posts.
type NotFoundView struct {
	Heading   string
	Message   string
	BackHref  string
	BackLabel string
}

func PageMissing() NotFoundView {
	return NotFoundView{
		Heading:   "Page Not Found",
		Message:   "Oops! The page you're looking for doesn't exist or has been moved.",
		BackHref:  "/",
		BackLabel: "Go to Homepage",
	}
}

func PostMissing() NotFoundView {
	return NotFoundView{
		Heading:   "Post Not Found",
		Message:   "The article you're looking for doesn't exist.",
		BackHref:  "/blog",
		BackLabel: "Back to Blog",
	}
}

// ContactView is what the contact template needs from a Flow. Token is the
// submission token posted back with the form; the static export leaves it
// empty.
type ContactView struct {
	Token     string
	Form      contact.Form
	Errors    contact.Errors
	State     contact.State
	Banner    string
	Succeeded bool
}

func Contact(f *contact.Flow, token string) ContactView {
	state := f.State()
	return ContactView{
		Token:     token,
		Form:      f.Form(),
		Errors:    f.Errors(),
		State:     state,
		Banner:    f.Banner(),
		Succeeded: state == contact.StateSuccess,
	}
}
