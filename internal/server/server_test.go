package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kic113/site/internal/content"
	"github.com/kic113/site/internal/relay"
	"github.com/kic113/site/internal/site"
	"github.com/kic113/site/internal/theme"
)

type fakeSender struct {
	mu    sync.Mutex
	calls []relay.Params
	err   error

	// block, when set, holds every Send until it is closed.
	block chan struct{}
}

func (s *fakeSender) Send(_ context.Context, p relay.Params) error {
	s.mu.Lock()
	s.calls = append(s.calls, p)
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	return s.err
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var fixedNow = time.Date(2024, 10, 26, 12, 0, 0, 0, time.UTC)

const formToken = "5f0c7a4e-2b8d-4e61-9c1a-7d3e8b6f2a90"

func newHandler(t *testing.T, sender *fakeSender) http.Handler {
	t.Helper()

	store, err := content.NewStore(content.Default())
	require.NoError(t, err)
	renderer, err := site.NewRenderer("KIC113", "")
	require.NoError(t, err)

	return New(Options{
		Store:    store,
		Renderer: renderer,
		Sender:   sender,
		Now:      func() time.Time { return fixedNow },
	}).Handler()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func validForm() url.Values {
	return url.Values{
		"name":    {"Jane Doe"},
		"email":   {"jane@example.com"},
		"subject": {"Pilot"},
		"message": {"We would like a demo next week."},
		"token":   {formToken},
	}
}

func TestPagesRender(t *testing.T) {
	t.Parallel()

	h := newHandler(t, &fakeSender{})
	tests := []struct {
		path string
		want string
	}{
		{"/", "Who Can Use KIC113?"},
		{"/services", "KIC113 Regulatory"},
		{"/blog", "How Blockchain Enhances Food Traceability"},
		{"/blog/1", "The Future of AI in Food Safety"},
		{"/testimonials", "Anne Lee"},
		{"/contact", "Send us a Message"},
		{"/privacy", "Privacy Policy"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(h, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Contains(t, rec.Body.String(), `class="dark"`)
		})
	}
}

func TestBlogPostNotFound(t *testing.T) {
	t.Parallel()

	h := newHandler(t, &fakeSender{})
	for _, path := range []string{"/blog/99", "/blog/abc", "/blog/0", "/blog/03", "/blog/+3", "/blog/-3"} {
		rec := do(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Post Not Found", path)
		assert.Contains(t, rec.Body.String(), `href="/blog"`, path)
	}
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	t.Parallel()

	h := newHandler(t, &fakeSender{})
	rec := do(h, httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestHealthAndStatic(t *testing.T) {
	t.Parallel()

	h := newHandler(t, &fakeSender{})

	rec := do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(h, httptest.NewRequest(http.MethodGet, "/static/site.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".light")
}

func TestThemeToggle(t *testing.T) {
	t.Parallel()

	h := newHandler(t, &fakeSender{})

	rec := do(h, postForm("/theme", url.Values{"return": {"/services"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/services", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, theme.CookieName, cookies[0].Name)
	assert.Equal(t, "light", cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	req.AddCookie(cookies[0])
	rec = do(h, req)
	assert.Contains(t, rec.Body.String(), `class="light"`)
	assert.Contains(t, rec.Body.String(), `aria-label="Switch to dark theme"`)

	req = postForm("/theme", nil)
	req.AddCookie(cookies[0])
	rec = do(h, req)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, "dark", rec.Result().Cookies()[0].Value)
}

func TestThemeToggleRedirectTargets(t *testing.T) {
	t.Parallel()

	h := newHandler(t, &fakeSender{})

	rec := do(h, postForm("/theme", url.Values{"return": {"//evil.example/x"}}))
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = do(h, postForm("/theme", url.Values{"return": {"https://evil.example/"}}))
	assert.Equal(t, "/", rec.Header().Get("Location"))

	req := postForm("/theme", nil)
	req.Header.Set("Referer", "http://localhost:8080/blog/2?x=1")
	rec = do(h, req)
	assert.Equal(t, "/blog/2", rec.Header().Get("Location"))
}

func TestContactValidationErrors(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newHandler(t, sender)

	form := validForm()
	form.Set("name", "  ")
	form.Set("message", "too short")
	rec := do(h, postForm("/contact", form))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, sender.count())
	body := rec.Body.String()
	assert.Contains(t, body, "Name is required")
	assert.Contains(t, body, "Message must be at least 10 characters")
	assert.Contains(t, body, `value="jane@example.com"`)
}

func TestContactSuccess(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newHandler(t, sender)

	rec := do(h, postForm("/contact", validForm()))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, sender.count())
	sent := sender.calls[0]
	assert.Equal(t, "Jane Doe", sent.FromName)
	assert.Equal(t, "Not provided", sent.Phone)
	assert.Equal(t, "2024-10-26T12:00:00Z", sent.Time)

	body := rec.Body.String()
	assert.Contains(t, body, "has been sent successfully")
	assert.Contains(t, body, `href="/contact?reset=1"`)
	assert.NotContains(t, body, `value="jane@example.com"`)
}

func TestContactFormCarriesToken(t *testing.T) {
	t.Parallel()

	h := newHandler(t, &fakeSender{})
	first := do(h, httptest.NewRequest(http.MethodGet, "/contact", nil)).Body.String()
	second := do(h, httptest.NewRequest(http.MethodGet, "/contact?reset=1", nil)).Body.String()

	assert.Contains(t, first, `<input type="hidden" name="token" value="`)
	assert.NotEqual(t, first, second, "every rendered form gets its own token")
}

func TestContactRejectsMissingToken(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newHandler(t, sender)

	for _, token := range []string{"", "not-a-uuid"} {
		form := validForm()
		form.Set("token", token)
		rec := do(h, postForm("/contact", form))
		assert.Equal(t, http.StatusBadRequest, rec.Code, token)
	}
	assert.Zero(t, sender.count())
}

func TestContactDuplicateWhileSending(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{block: make(chan struct{})}
	h := newHandler(t, sender)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- do(h, postForm("/contact", validForm())) }()

	require.Eventually(t, func() bool { return sender.count() == 1 }, 5*time.Second, 5*time.Millisecond)

	dup := do(h, postForm("/contact", validForm()))
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, 1, sender.count())

	close(sender.block)
	select {
	case rec := <-first:
		assert.Equal(t, http.StatusOK, rec.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("first submission did not finish")
	}

	// A late repeat of the delivered form shows success again without sending.
	again := do(h, postForm("/contact", validForm()))
	assert.Equal(t, http.StatusOK, again.Code)
	assert.Contains(t, again.Body.String(), "has been sent successfully")
	assert.Equal(t, 1, sender.count())
}

func TestContactConcurrentPostsSendOnce(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{block: make(chan struct{})}
	h := newHandler(t, sender)

	const posts = 5
	codes := make(chan int, posts)
	var wg sync.WaitGroup
	for i := 0; i < posts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- do(h, postForm("/contact", validForm())).Code
		}()
	}

	require.Eventually(t, func() bool { return sender.count() == 1 }, 5*time.Second, 5*time.Millisecond)
	close(sender.block)
	wg.Wait()
	close(codes)

	assert.Equal(t, 1, sender.count())
	for code := range codes {
		assert.Contains(t, []int{http.StatusOK, http.StatusConflict}, code)
	}
}

func TestContactRetryAfterFailure(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: &relay.Error{Kind: relay.KindServer, Status: 500}}
	h := newHandler(t, sender)

	rec := do(h, postForm("/contact", validForm()))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="`+formToken+`"`, "the token survives for a retry")

	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	rec = do(h, postForm("/contact", validForm()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, sender.count())
}

func TestContactRelayFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		banner string
	}{
		{"timeout", &relay.Error{Kind: relay.KindTimeout}, http.StatusGatewayTimeout, "Request timed out."},
		{"rate limited", &relay.Error{Kind: relay.KindRateLimited, Status: 429}, http.StatusTooManyRequests, "Too many requests."},
		{"not configured", relay.ErrNotConfigured, http.StatusServiceUnavailable, "Authentication failed."},
		{"server", &relay.Error{Kind: relay.KindServer, Status: 500}, http.StatusBadGateway, "Server error."},
		{"bad request", &relay.Error{Kind: relay.KindBadRequest, Status: 400}, http.StatusBadGateway, "Invalid request."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{err: tt.err}
			rec := do(newHandler(t, sender), postForm("/contact", validForm()))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, 1, sender.count())
			body := rec.Body.String()
			assert.Contains(t, body, tt.banner)
			assert.Contains(t, body, `value="jane@example.com"`, "fields are preserved")
		})
	}
}

func TestContactThroughRelayClient(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(upstream.Close)

	store, err := content.NewStore(content.Default())
	require.NoError(t, err)
	renderer, err := site.NewRenderer("KIC113", "")
	require.NoError(t, err)

	h := New(Options{
		Store:    store,
		Renderer: renderer,
		Sender: relay.New(relay.Options{
			Endpoint:   upstream.URL,
			ServiceID:  "svc",
			TemplateID: "tpl",
			PublicKey:  "key",
		}),
	}).Handler()

	rec := do(h, postForm("/contact", validForm()))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many requests.")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	store, err := content.NewStore(content.Default())
	require.NoError(t, err)
	renderer, err := site.NewRenderer("KIC113", "")
	require.NoError(t, err)
	srv := New(Options{Store: store, Renderer: renderer, Sender: &fakeSender{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestSafeReturn(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/blog", safeReturn("/blog"))
	assert.Equal(t, "/", safeReturn(""))
	assert.Equal(t, "/", safeReturn("blog"))
	assert.Equal(t, "/", safeReturn("//x"))
	assert.Equal(t, "/", safeReturn(`/\x`))
}
