package contact

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kic113/site/internal/relay"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// SuccessMessage is shown after the relay accepts the message.
const SuccessMessage = "Your message has been sent successfully! We'll get back to you soon."

var (
	// ErrInFlight is returned when Submit is called while a send is running,
	// and by Guard for a token whose send is running.
	ErrInFlight = errors.New("a submission is already in progress")
	// ErrCompleted is returned when Submit is called after a successful send
	// without a Reset in between, and by Guard for a token already sent.
	ErrCompleted = errors.New("message already sent")
)

// Sender delivers one message. relay.Client implements it.
type Sender interface {
	Send(ctx context.Context, p relay.Params) error
}

// Flow tracks one contact form through idle, submitting, success and error.
// Validation failures and relay failures are reported through State, Errors
// and Banner; Submit itself only errors when called in the wrong state.
type Flow struct {
	mu      sync.Mutex
	state   State
	form    Form
	errors  Errors
	banner  string
	failure error
}

func NewFlow(form Form) *Flow {
	return &Flow{state: StateIdle, form: form, errors: Errors{}}
}

// Submit validates the form and, if it passes, sends it once. The sender is
// never called for an invalid form.
func (f *Flow) Submit(ctx context.Context, sender Sender, now time.Time) error {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return ErrInFlight
	case StateSuccess:
		f.mu.Unlock()
		return ErrCompleted
	}

	f.errors = Validate(f.form)
	if len(f.errors) > 0 {
		f.state = StateIdle
		f.banner = ""
		f.failure = nil
		f.mu.Unlock()
		return nil
	}

	f.state = StateSubmitting
	f.banner = ""
	f.failure = nil
	params := paramsFor(f.form, now)
	f.mu.Unlock()

	err := sender.Send(ctx, params)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateError
		f.failure = err
		f.banner = relay.Message(relay.KindOf(err))
		return nil
	}
	f.state = StateSuccess
	f.form = Form{}
	f.banner = SuccessMessage
	return nil
}

// Reset returns a finished flow to idle with an empty form, as when the
// visitor chooses to send another message.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return
	}
	f.state = StateIdle
	f.form = Form{}
	f.errors = Errors{}
	f.banner = ""
	f.failure = nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Form returns the current field values: cleared after success, kept
// otherwise.
func (f *Flow) Form() Form {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

func (f *Flow) Errors() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(Errors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Banner is the success or failure message, empty while idle.
func (f *Flow) Banner() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banner
}

// Failure is the relay error behind StateError.
func (f *Flow) Failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure
}

func paramsFor(form Form, now time.Time) relay.Params {
	phone := strings.TrimSpace(form.Phone)
	if phone == "" {
		phone = "Not provided"
	}
	return relay.Params{
		FromName:  strings.TrimSpace(form.Name),
		FromEmail: strings.TrimSpace(form.Email),
		ToName:    "Admin",
		Subject:   strings.TrimSpace(form.Subject),
		Message:   strings.TrimSpace(form.Message),
		Phone:     phone,
		Time:      now.UTC().Format(time.RFC3339),
	}
}
