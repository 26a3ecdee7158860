// Package relay sends contact messages through a third-party email-relay
// API. One Send is one HTTPS POST; failures are classified and returned,
// never retried.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kic113/site/internal/logger"
)

const (
	DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
	DefaultTimeout  = 10 * time.Second

	maxErrorBody = 512
)

// Params are the template parameters rendered by the relay's email template.
type Params struct {
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	ToName    string `json:"to_name"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Phone     string `json:"phone"`
	Time      string `json:"time"`
}

type payload struct {
	ServiceID      string `json:"service_id"`
	TemplateID     string `json:"template_id"`
	UserID         string `json:"user_id"`
	TemplateParams Params `json:"template_params"`
}

type Options struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	Timeout    time.Duration

	// RatePerMinute caps outgoing sends; zero disables the cap.
	RatePerMinute float64
	Burst         int

	HTTPClient *http.Client
	Logger     *logger.Logger
}

type Client struct {
	endpoint   string
	serviceID  string
	templateID string
	publicKey  string

	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	// The timeout is fixed per client; copy so a shared client is not mutated.
	clientCopy := *hc
	clientCopy.Timeout = opts.Timeout

	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Limit(opts.RatePerMinute / 60)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		endpoint:   opts.Endpoint,
		serviceID:  opts.ServiceID,
		templateID: opts.TemplateID,
		publicKey:  opts.PublicKey,
		http:       &clientCopy,
		limiter:    rate.NewLimiter(limit, burst),
		log:        log.WithFields(map[string]any{"component": "relay"}),
	}
}

// Send posts p to the relay. It returns nil on any 2xx response and a *Error
// (or ErrNotConfigured) otherwise.
func (c *Client) Send(ctx context.Context, p Params) error {
	if c.serviceID == "" || c.templateID == "" || c.publicKey == "" {
		return ErrNotConfigured
	}

	id := uuid.NewString()
	log := c.log.WithFields(map[string]any{"submission_id": id})

	// Over the local cap the call is refused outright instead of queued.
	if !c.limiter.Allow() {
		log.Warn("send refused by local rate limit")
		return &Error{Kind: KindRateLimited, Err: errors.New("local send rate exceeded")}
	}

	body, err := json.Marshal(payload{
		ServiceID:      c.serviceID,
		TemplateID:     c.templateID,
		UserID:         c.publicKey,
		TemplateParams: p,
	})
	if err != nil {
		return &Error{Kind: KindGeneric, Err: fmt.Errorf("failed to encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindGeneric, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindGeneric
		if isTimeout(err) {
			kind = KindTimeout
		}
		relayErr := &Error{Kind: kind, Err: err}
		log.Error(relayErr, "send failed")
		return relayErr
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.WithFields(map[string]any{"status": resp.StatusCode, "took": time.Since(start).String()}).Info("message sent")
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	relayErr := &Error{
		Kind:   KindForStatus(resp.StatusCode),
		Status: resp.StatusCode,
		Body:   string(bytes.TrimSpace(snippet)),
	}
	log.WithFields(map[string]any{"status": resp.StatusCode, "body": relayErr.Body}).Error(relayErr, "send rejected")
	return relayErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
