// Package server exposes the site over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/kic113/site/internal/contact"
	"github.com/kic113/site/internal/content"
	"github.com/kic113/site/internal/logger"
	"github.com/kic113/site/internal/relay"
	"github.com/kic113/site/internal/site"
	"github.com/kic113/site/internal/theme"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second

	// How long a delivered form's token is refused.
	sentTokenTTL = 10 * time.Minute
)

type Options struct {
	Store    *content.Store
	Renderer *site.Renderer
	Sender   contact.Sender
	Logger   *logger.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	store    *content.Store
	renderer *site.Renderer
	sender   contact.Sender
	log      *logger.Logger
	now      func() time.Time
	guard    *contact.Guard
}

func New(opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		store:    opts.Store,
		renderer: opts.Renderer,
		sender:   opts.Sender,
		log:      log,
		now:      now,
		guard:    contact.NewGuard(sentTokenTTL),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(site.Static()))))

	r.Get("/", s.home)
	r.Get("/services", s.services)
	r.Get("/blog", s.blog)
	r.Get("/blog/{id}", s.blogPost)
	r.Get("/testimonials", s.testimonials)
	r.Get("/contact", s.contactForm)
	r.Post("/contact", s.contactSubmit)
	r.Get("/privacy", s.privacy)
	r.Post("/theme", s.toggleTheme)

	// Unknown paths go home.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})

	return r
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(map[string]any{"addr": addr}).Info("serving site")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down cleanly: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Request(r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

// render executes page fully before writing so a template error becomes a
// clean 500 rather than a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	pref := theme.New(theme.NewCookieStore(w, r))
	cat := s.store.Catalog()
	pd := s.renderer.Data(page, title, r.URL.Path, pref.Load(), cat.Contact(), data)

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, pd); err != nil {
		s.log.Error(err, "render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, site.PageHome, "", site.Home(s.store.Catalog()))
}

func (s *Server) services(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, site.PageServices, "Services", site.ServicesView{Services: s.store.Catalog().Services()})
}

func (s *Server) blog(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, site.PageBlog, "Blog", site.BlogView{Posts: s.store.Catalog().Posts()})
}

func (s *Server) blogPost(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	// Only the canonical spelling matches, so /blog/03 and /blog/+3 miss.
	id, err := strconv.Atoi(raw)
	if err == nil && strconv.Itoa(id) == raw {
		if post, ok := s.store.Catalog().Post(id); ok {
			s.render(w, r, http.StatusOK, site.PageBlogDetail, post.Title, site.PostView{Post: post})
			return
		}
	}
	s.render(w, r, http.StatusNotFound, site.PageNotFound, "Not Found", site.PostMissing())
}

func (s *Server) testimonials(w http.ResponseWriter, r *http.Request) {
	cat := s.store.Catalog()
	s.render(w, r, http.StatusOK, site.PageTestimonials, "Testimonials", site.TestimonialsView{
		Testimonials: cat.Testimonials(),
		Featured:     cat.Featured(),
	})
}

func (s *Server) privacy(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, site.PagePrivacy, "Privacy Policy", site.PrivacyView{Sections: s.store.Catalog().Policy()})
}

// contactForm serves an idle form with a fresh submission token. "Send
// another message" links here with ?reset=1, which needs no extra handling.
func (s *Server) contactForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, site.PageContact, "Contact", site.Contact(contact.NewFlow(contact.Form{}), uuid.NewString()))
}

func (s *Server) contactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	token := r.PostFormValue("token")
	if _, err := uuid.Parse(token); err != nil {
		http.Error(w, "missing or malformed submission token", http.StatusBadRequest)
		return
	}

	// The token is held for the whole send, so a double click or a second
	// tab posting the same form cannot deliver it twice.
	switch err := s.guard.Begin(token, s.now()); {
	case errors.Is(err, contact.ErrCompleted):
		s.render(w, r, http.StatusOK, site.PageContact, "Contact", site.ContactView{
			State:     contact.StateSuccess,
			Banner:    contact.SuccessMessage,
			Succeeded: true,
		})
		return
	case err != nil:
		s.log.WithFields(map[string]any{"request_id": middleware.GetReqID(r.Context())}).Warn("duplicate contact submission refused")
		http.Error(w, "this message is already being sent", http.StatusConflict)
		return
	}

	flow := contact.NewFlow(contact.Form{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Subject: r.PostFormValue("subject"),
		Message: r.PostFormValue("message"),
		Phone:   r.PostFormValue("phone"),
	})
	sent := false
	defer func() { s.guard.Finish(token, sent, s.now()) }()

	err := flow.Submit(r.Context(), s.sender, s.now())
	sent = flow.State() == contact.StateSuccess
	if err != nil {
		// A fresh Flow never reports a state error.
		s.log.Error(err, "contact submission rejected")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	switch flow.State() {
	case contact.StateIdle:
		status = http.StatusUnprocessableEntity
	case contact.StateError:
		kind := relay.KindOf(flow.Failure())
		status = statusForKind(kind)
		s.log.WithFields(map[string]any{
			"kind":       string(kind),
			"request_id": middleware.GetReqID(r.Context()),
		}).Error(flow.Failure(), "contact message not delivered")
	}

	s.render(w, r, status, site.PageContact, "Contact", site.Contact(flow, token))
}

func statusForKind(k relay.Kind) int {
	switch k {
	case relay.KindTimeout:
		return http.StatusGatewayTimeout
	case relay.KindRateLimited:
		return http.StatusTooManyRequests
	case relay.KindAuth:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (s *Server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	next := theme.New(theme.NewCookieStore(w, r)).Toggle()
	s.log.Debug("theme set to " + next.String())

	back := r.PostFormValue("return")
	if back == "" {
		if ref, err := url.Parse(r.Referer()); err == nil {
			back = ref.Path
		}
	}
	http.Redirect(w, r, safeReturn(back), http.StatusSeeOther)
}

// safeReturn only allows local absolute paths as redirect targets.
func safeReturn(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
