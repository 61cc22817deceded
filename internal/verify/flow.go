// Package verify implements the one-time-code email verification flow.
// The expected code lives only in the flow's memory for the current
// tab; a reload discards it by construction.
package verify

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/mrolimdev/qsb-teste/internal/store"
)

type State string

const (
	StateIdle     State = "idle"
	StateCodeSent State = "code_sent"
	StateVerified State = "verified"
)

var (
	// ErrInvalidCode leaves the flow in code_sent with the original
	// code intact; the user may resubmit or explicitly resend.
	ErrInvalidCode = errors.New("verify: code does not match")
	// ErrNoPendingCode means Verify was called before SubmitEmail.
	ErrNoPendingCode = errors.New("verify: no code was sent")
)

// CodeSender dispatches the code through the notification channel.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// ProfileStore creates or loads the profile once the code matches.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, email string) (*models.Profile, error)
}

type Flow struct {
	sender CodeSender
	store  ProfileStore
	rng    *rand.Rand

	mu    sync.Mutex
	state State
	email string
	code  string
}

func NewFlow(sender CodeSender, profiles ProfileStore) *Flow {
	return &Flow{
		sender: sender,
		store:  profiles,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		state:  StateIdle,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// SubmitEmail generates a fresh 6-digit code and dispatches it. On
// dispatch failure the flow stays idle and the error surfaces to the
// caller. Calling again (resend) overwrites the previous expectation.
func (f *Flow) SubmitEmail(ctx context.Context, email string) error {
	email = store.EmailKey(email)
	if email == "" {
		return errors.New("verify: email is required")
	}
	f.mu.Lock()
	code := fmt.Sprintf("%06d", 100000+f.rng.Intn(900000))
	f.mu.Unlock()

	if err := f.sender.SendCode(ctx, email, code); err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}

	f.mu.Lock()
	f.email = email
	f.code = code
	f.state = StateCodeSent
	f.mu.Unlock()
	return nil
}

// Resend re-runs email submission for the pending address.
func (f *Flow) Resend(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateCodeSent {
		f.mu.Unlock()
		return ErrNoPendingCode
	}
	email := f.email
	f.mu.Unlock()
	return f.SubmitEmail(ctx, email)
}

// Verify checks a submitted code by exact string equality. On a match
// the profile is created-or-loaded (new profiles default to the basic
// tier) and the flow is consumed. A store failure fails the whole
// attempt with no partial state: the flow stays at code_sent.
func (f *Flow) Verify(ctx context.Context, code string) (*models.Profile, error) {
	f.mu.Lock()
	if f.state != StateCodeSent {
		f.mu.Unlock()
		return nil, ErrNoPendingCode
	}
	if code != f.code {
		f.mu.Unlock()
		return nil, ErrInvalidCode
	}
	email := f.email
	f.mu.Unlock()

	profile, err := f.store.UpsertProfile(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("verify: load profile: %w", err)
	}
	if profile == nil {
		return nil, errors.New("verify: profile creation returned nothing")
	}

	f.mu.Lock()
	// a reset or resend may have landed while the store call ran; the
	// flow is only consumed when the expectation is still the one we
	// matched against
	if f.state != StateCodeSent || f.code != code {
		f.mu.Unlock()
		return nil, ErrNoPendingCode
	}
	f.state = StateVerified
	f.code = ""
	f.mu.Unlock()
	return profile, nil
}

// Reset destroys the verification session (logout or tab close).
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateIdle
	f.email = ""
	f.code = ""
}
