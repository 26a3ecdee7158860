// Package theme holds the visitor's dark/light display preference.
//
// A Preference is built around whatever Store persists the value for the
// current visitor (a cookie for HTTP requests) and is passed explicitly to the
// code that renders pages. There is no process-wide theme.
package theme

import (
	"fmt"
	"net/http"
	"time"
)

type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"

	Default = Dark
)

// Parse accepts exactly "dark" or "light".
func Parse(s string) (Theme, error) {
	switch Theme(s) {
	case Dark, Light:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Other returns the opposite theme.
func (t Theme) Other() Theme {
	if t == Light {
		return Dark
	}
	return Light
}

func (t Theme) String() string { return string(t) }

// Store persists a single theme value.
type Store interface {
	Get() (string, bool)
	Set(value string)
}

// Preference reads and toggles the theme held in a Store.
type Preference struct {
	store Store
}

func New(store Store) *Preference {
	return &Preference{store: store}
}

// Load returns the persisted theme, or Default when nothing valid is stored.
func (p *Preference) Load() Theme {
	raw, ok := p.store.Get()
	if !ok {
		return Default
	}
	t, err := Parse(raw)
	if err != nil {
		return Default
	}
	return t
}

// Toggle flips the theme, persists it and returns the new value.
func (p *Preference) Toggle() Theme {
	next := p.Load().Other()
	p.store.Set(next.String())
	return next
}

// Class is the CSS class applied to the document root.
func (p *Preference) Class() string {
	return p.Load().String()
}

// MemoryStore keeps the value in memory.
type MemoryStore struct {
	value string
	set   bool
}

func (m *MemoryStore) Get() (string, bool) { return m.value, m.set }

func (m *MemoryStore) Set(value string) {
	m.value = value
	m.set = true
}

// CookieName is the cookie carrying the visitor's theme.
const CookieName = "theme"

const cookieMaxAge = 365 * 24 * time.Hour

// CookieStore persists the theme in a cookie on the visitor's browser.
// Set both writes the cookie to the response and updates the value seen by
// later Gets within the same request.
type CookieStore struct {
	r *http.Request
	w http.ResponseWriter

	written string
	dirty   bool
}

func NewCookieStore(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{r: r, w: w}
}

func (c *CookieStore) Get() (string, bool) {
	if c.dirty {
		return c.written, true
	}
	cookie, err := c.r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

func (c *CookieStore) Set(value string) {
	c.written = value
	c.dirty = true
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}
