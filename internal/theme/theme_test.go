package theme

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	got, err := Parse("light")
	require.NoError(t, err)
	assert.Equal(t, Light, got)

	_, err = Parse("sepia")
	require.Error(t, err)
	_, err = Parse("")
	require.Error(t, err)
}

func TestLoadDefaultsToDark(t *testing.T) {
	t.Parallel()

	p := New(&MemoryStore{})
	assert.Equal(t, Dark, p.Load())
	assert.Equal(t, "dark", p.Class())
}

func TestLoadIgnoresInvalidValue(t *testing.T) {
	t.Parallel()

	store := &MemoryStore{}
	store.Set("purple")
	assert.Equal(t, Dark, New(store).Load())
}

func TestToggleTwiceRestoresStartingTheme(t *testing.T) {
	t.Parallel()

	for _, start := range []Theme{Dark, Light} {
		store := &MemoryStore{}
		store.Set(start.String())
		p := New(store)

		first := p.Toggle()
		assert.Equal(t, start.Other(), first)
		v, _ := store.Get()
		assert.Equal(t, first.String(), v)

		second := p.Toggle()
		assert.Equal(t, start, second)
		v, _ = store.Get()
		assert.Equal(t, start.String(), v)
		assert.Equal(t, start.String(), p.Class())
	}
}

func TestToggleFromEmptyStorePersistsLight(t *testing.T) {
	t.Parallel()

	store := &MemoryStore{}
	assert.Equal(t, Light, New(store).Toggle())
	v, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, "light", v)
}

func TestCookieStore(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "light"})
	rec := httptest.NewRecorder()

	p := New(NewCookieStore(rec, req))
	assert.Equal(t, Light, p.Load())
	assert.Equal(t, Dark, p.Toggle())
	assert.Equal(t, Dark, p.Load())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "dark", cookies[0].Value)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Positive(t, cookies[0].MaxAge)
}

func TestCookieStoreWithoutCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := NewCookieStore(httptest.NewRecorder(), req).Get()
	assert.False(t, ok)
}
