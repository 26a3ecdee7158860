package content

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSite = `
services:
  - title: Regulatory
    icon: shield
    description: Compliance.
    features: [Monitoring]
testimonials:
  - quote: Great.
    author: A. Person
    featured: true
contact:
  email: info@example.com
`

func post(front, body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("---\n" + front + "\n---\n" + body)}
}

func TestLoadDefaultContent(t *testing.T) {
	t.Parallel()

	c, err := Load(Default())
	require.NoError(t, err)

	posts := c.Posts()
	require.Len(t, posts, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{posts[0].ID, posts[1].ID, posts[2].ID})

	p, ok := c.Post(3)
	require.True(t, ok)
	assert.Equal(t, "5 Ways to Improve Consumer Trust with AI", p.Title)
	assert.Equal(t, "Chris Evans", p.Author)
	assert.Contains(t, string(p.Content), "<ol>")
	assert.Contains(t, string(p.Content), "<strong>Feedback Analysis:</strong>")

	assert.Len(t, c.Services(), 3)
	assert.Len(t, c.Testimonials(), 5)
	assert.Len(t, c.Featured(), 2)
	assert.Len(t, c.Audiences(), 6)
	assert.Len(t, c.Policy(), 5)
	assert.Equal(t, "info@kic113.com", c.Contact().Email)
	assert.Equal(t, "AI for Food Brands: Revolutionizing Food Safety & Consumer Engagement", c.Tagline())
}

func TestPostLookupMiss(t *testing.T) {
	t.Parallel()

	c, err := Load(Default())
	require.NoError(t, err)

	_, ok := c.Post(42)
	assert.False(t, ok)
	_, ok = c.Post(0)
	assert.False(t, ok)
}

func TestAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	c, err := Load(Default())
	require.NoError(t, err)

	posts := c.Posts()
	posts[0].Title = "changed"
	assert.NotEqual(t, "changed", c.Posts()[0].Title)
}

func TestLoadSanitizesBody(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"site.yaml": {Data: []byte(minimalSite)},
		"blog/1-x.md": post("id: 1\ntitle: X\ndate: 2024-01-02\nauthor: A\nexcerpt: E",
			"Hello <script>alert(1)</script> [link](javascript:alert(1))\n"),
	}

	c, err := Load(fsys)
	require.NoError(t, err)

	p, ok := c.Post(1)
	require.True(t, ok)
	body := string(p.Content)
	assert.NotContains(t, body, "<script")
	assert.NotContains(t, body, "javascript:")
	assert.Contains(t, body, "Hello")
}

func TestLoadTitleFallsBackToFileName(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"site.yaml":                   {Data: []byte(minimalSite)},
		"blog/7-food-traceability.md": post("id: 7\ndate: 2024-01-02\nauthor: A\nexcerpt: E", "Body"),
	}

	c, err := Load(fsys)
	require.NoError(t, err)

	p, ok := c.Post(7)
	require.True(t, ok)
	assert.Equal(t, "Food Traceability", p.Title)
	assert.Equal(t, "7-food-traceability", p.Slug)
}

func TestLoadOrdersUndatedLast(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"site.yaml": {Data: []byte(minimalSite)},
		"blog/a.md": post("id: 1\ntitle: A\ndate: someday\nauthor: A\nexcerpt: E", "a"),
		"blog/b.md": post("id: 2\ntitle: B\ndate: Jan 5, 2024\nauthor: A\nexcerpt: E", "b"),
		"blog/c.md": post("id: 3\ntitle: C\ndate: 2024-03-01\nauthor: A\nexcerpt: E", "c"),
	}

	c, err := Load(fsys)
	require.NoError(t, err)

	var ids []int
	for _, p := range c.Posts() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{3, 2, 1}, ids)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	good := "id: 1\ntitle: A\ndate: 2024-01-01\nauthor: A\nexcerpt: E"

	tests := map[string]struct {
		fsys fstest.MapFS
		want string
	}{
		"duplicate id": {
			fsys: fstest.MapFS{
				"site.yaml": {Data: []byte(minimalSite)},
				"blog/a.md": post(good, "a"),
				"blog/b.md": post(good, "b"),
			},
			want: "duplicate post id 1",
		},
		"missing id": {
			fsys: fstest.MapFS{
				"site.yaml": {Data: []byte(minimalSite)},
				"blog/a.md": post("title: A\ndate: 2024-01-01\nauthor: A\nexcerpt: E", "a"),
			},
			want: "id must be a positive integer",
		},
		"missing author": {
			fsys: fstest.MapFS{
				"site.yaml": {Data: []byte(minimalSite)},
				"blog/a.md": post("id: 1\ndate: 2024-01-01\nexcerpt: E", "a"),
			},
			want: "required",
		},
		"no frontmatter": {
			fsys: fstest.MapFS{
				"site.yaml": {Data: []byte(minimalSite)},
				"blog/a.md": {Data: []byte("just text")},
			},
			want: "invalid frontmatter",
		},
		"unknown site key": {
			fsys: fstest.MapFS{
				"site.yaml": {Data: []byte("servicez: []\n")},
				"blog/a.md": post(good, "a"),
			},
			want: "site.yaml",
		},
		"testimonial without author": {
			fsys: fstest.MapFS{
				"site.yaml": {Data: []byte("testimonials:\n  - quote: hi\n")},
				"blog/a.md": post(good, "a"),
			},
			want: "testimonials[0]",
		},
		"no blog dir": {
			fsys: fstest.MapFS{"site.yaml": {Data: []byte(minimalSite)}},
			want: "blog directory",
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(tc.fsys)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.want), "error %q should mention %q", err, tc.want)
		})
	}
}

func TestStoreReloadKeepsPreviousOnError(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"site.yaml": {Data: []byte(minimalSite)},
		"blog/a.md": post("id: 1\ntitle: First\ndate: 2024-01-01\nauthor: A\nexcerpt: E", "a"),
	}

	store, err := NewStore(fsys)
	require.NoError(t, err)
	before := store.Catalog()

	fsys["blog/a.md"] = &fstest.MapFile{Data: []byte("broken")}
	require.Error(t, store.Reload())
	assert.Same(t, before, store.Catalog())

	fsys["blog/a.md"] = post("id: 1\ntitle: Second\ndate: 2024-01-01\nauthor: A\nexcerpt: E", "a")
	require.NoError(t, store.Reload())
	p, ok := store.Catalog().Post(1)
	require.True(t, ok)
	assert.Equal(t, "Second", p.Title)
}
