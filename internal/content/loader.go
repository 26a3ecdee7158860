package content

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"

	"github.com/kic113/site/internal/model"
)

const (
	blogDir  = "blog"
	siteFile = "site.yaml"
)

// Date layouts accepted in post frontmatter, tried in order.
var dateLayouts = []string{"Jan 2, 2006", "January 2, 2006", "2006-01-02", time.RFC3339}

var numericPrefix = regexp.MustCompile(`^\d+[-_]`)

type postMeta struct {
	ID      int    `yaml:"id"`
	Title   string `yaml:"title"`
	Date    string `yaml:"date"`
	Author  string `yaml:"author"`
	Excerpt string `yaml:"excerpt"`
}

type siteData struct {
	Tagline      string                `yaml:"tagline"`
	Services     []model.Service       `yaml:"services"`
	Testimonials []model.Testimonial   `yaml:"testimonials"`
	Audiences    []model.Audience      `yaml:"audiences"`
	Privacy      []model.PolicySection `yaml:"privacy"`
	Contact      model.ContactDetails  `yaml:"contact"`
}

type datedPost struct {
	post model.BlogPost
	at   time.Time
}

// Load reads blog/*.md and site.yaml from fsys into a Catalog.
func Load(fsys fs.FS) (*Catalog, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	policy := bluemonday.UGCPolicy()

	entries, err := fs.ReadDir(fsys, blogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read blog directory: %w", err)
	}

	var dated []datedPost
	byID := make(map[int]model.BlogPost)
	sources := make(map[int]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			continue
		}
		p := path.Join(blogDir, entry.Name())

		post, at, err := loadPost(fsys, p, md, policy)
		if err != nil {
			return nil, err
		}
		if prev, dup := sources[post.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate post id %d (also used by %s)", p, post.ID, prev)
		}
		sources[post.ID] = p
		byID[post.ID] = post
		dated = append(dated, datedPost{post: post, at: at})
	}

	// Newest first; undated posts sink to the end.
	sort.SliceStable(dated, func(i, j int) bool {
		a, b := dated[i], dated[j]
		switch {
		case a.at.IsZero() && b.at.IsZero():
			return a.post.ID > b.post.ID
		case a.at.IsZero():
			return false
		case b.at.IsZero():
			return true
		case a.at.Equal(b.at):
			return a.post.ID > b.post.ID
		}
		return a.at.After(b.at)
	})

	posts := make([]model.BlogPost, 0, len(dated))
	for _, d := range dated {
		posts = append(posts, d.post)
	}

	raw, err := fs.ReadFile(fsys, siteFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", siteFile, err)
	}
	var site siteData
	if err := yaml.UnmarshalStrict(raw, &site); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", siteFile, err)
	}
	for i, s := range site.Services {
		if s.Title == "" {
			return nil, fmt.Errorf("%s: services[%d] has no title", siteFile, i)
		}
	}
	for i, t := range site.Testimonials {
		if t.Quote == "" || t.Author == "" {
			return nil, fmt.Errorf("%s: testimonials[%d] needs a quote and an author", siteFile, i)
		}
	}

	return &Catalog{
		tagline:      site.Tagline,
		posts:        posts,
		byID:         byID,
		services:     site.Services,
		testimonials: site.Testimonials,
		audiences:    site.Audiences,
		policy:       site.Privacy,
		contact:      site.Contact,
	}, nil
}

func loadPost(fsys fs.FS, p string, md goldmark.Markdown, policy *bluemonday.Policy) (model.BlogPost, time.Time, error) {
	raw, err := fs.ReadFile(fsys, p)
	if err != nil {
		return model.BlogPost{}, time.Time{}, fmt.Errorf("failed to read %s: %w", p, err)
	}

	var meta postMeta
	body, err := frontmatter.MustParse(bytes.NewReader(raw), &meta)
	if err != nil {
		return model.BlogPost{}, time.Time{}, fmt.Errorf("%s: invalid frontmatter: %w", p, err)
	}

	if meta.ID <= 0 {
		return model.BlogPost{}, time.Time{}, fmt.Errorf("%s: id must be a positive integer", p)
	}
	if meta.Date == "" || meta.Author == "" || meta.Excerpt == "" {
		return model.BlogPost{}, time.Time{}, fmt.Errorf("%s: date, author and excerpt are required", p)
	}

	slug := strings.TrimSuffix(path.Base(p), path.Ext(p))
	title := meta.Title
	if title == "" {
		title = titleFromSlug(slug)
	}

	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return model.BlogPost{}, time.Time{}, fmt.Errorf("failed to convert markdown for %s: %w", p, err)
	}
	html := policy.SanitizeBytes(buf.Bytes())

	return model.BlogPost{
		ID:      meta.ID,
		Slug:    slug,
		Title:   title,
		Date:    meta.Date,
		Author:  meta.Author,
		Excerpt: meta.Excerpt,
		Content: template.HTML(strings.TrimSpace(string(html))),
	}, parseDate(meta.Date), nil
}

// titleFromSlug turns "2-food-traceability" into "Food Traceability".
func titleFromSlug(slug string) string {
	s := numericPrefix.ReplaceAllString(slug, "")
	s = strings.ReplaceAll(strings.ReplaceAll(s, "-", " "), "_", " ")
	return cases.Title(language.English).String(s)
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
