package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session states.
type State string

const (
	StateIdle      State = "idle"
	StateLoadingQR State = "loading_qr"
	StateDisplayQR State = "display_qr"
	StatePaid      State = "paid"
	StateExpired   State = "expired"
	StateError     State = "error"
	StateClosed    State = "closed"
)

var (
	// ErrCloseBlocked means the session cannot be dismissed from its
	// current state. A paid session needs Acknowledge instead.
	ErrCloseBlocked = errors.New("payment: close not allowed in this state")
	// ErrCheckInProgress means a manual status check is already running.
	ErrCheckInProgress = errors.New("payment: a status check is already in progress")
	// ErrWrongState rejects an operation the current state does not allow.
	ErrWrongState = errors.New("payment: operation not allowed in this state")
)

// ChargeAPI is the gateway surface the session needs.
type ChargeAPI interface {
	CreateCharge(ctx context.Context, email string, amountCents int64) (*Charge, error)
	ChargeStatus(ctx context.Context, id string) (string, error)
}

const (
	defaultCountdown = 600 * time.Second
	defaultPoll      = 3 * time.Second
)

// Config tunes the session timers. Zero values take the production
// defaults; tests shrink them.
type Config struct {
	Countdown    time.Duration
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Countdown <= 0 {
		c.Countdown = defaultCountdown
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPoll
	}
	return c
}

// Session drives one payment attempt for one verified email. The
// settlement callback runs exactly once no matter how the PAID status
// is observed (poll or manual check).
type Session struct {
	gateway   ChargeAPI
	email     string
	amount    int64
	onSettled func(ctx context.Context) error
	cfg       Config
	log       *zap.Logger

	mu           sync.Mutex
	state        State
	charge       *Charge
	deadline     time.Time
	checking     bool
	settled      bool
	settleFailed bool
	lastError    string
	stop         context.CancelFunc
}

func NewSession(gateway ChargeAPI, email string, amountCents int64, onSettled func(ctx context.Context) error, cfg Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		gateway:   gateway,
		email:     email,
		amount:    amountCents,
		onSettled: onSettled,
		cfg:       cfg.withDefaults(),
		log:       log,
		state:     StateIdle,
	}
}

// Snapshot is the UI-facing view of the session.
type Snapshot struct {
	State            State   `json:"state"`
	Charge           *Charge `json:"charge,omitempty"`
	RemainingSeconds int     `json:"remainingSeconds"`
	Checking         bool    `json:"checking"`
	SettleFailed     bool    `json:"settleFailed"`
	ErrorMessage     string  `json:"errorMessage,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:        s.state,
		Charge:       s.charge,
		Checking:     s.checking,
		SettleFailed: s.settleFailed,
		ErrorMessage: s.lastError,
	}
	if s.state == StateDisplayQR {
		if remaining := time.Until(s.deadline); remaining > 0 {
			snap.RemainingSeconds = int(remaining.Round(time.Second) / time.Second)
		}
	}
	return snap
}

// Open creates the charge and starts the countdown and poll timers.
// It is also the retry entry point from expired and error.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateIdle, StateExpired, StateError:
	default:
		s.mu.Unlock()
		return ErrWrongState
	}
	s.state = StateLoadingQR
	s.charge = nil
	s.lastError = ""
	s.mu.Unlock()

	charge, err := s.gateway.CreateCharge(ctx, s.email, s.amount)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoadingQR {
		return nil
	}
	if err != nil {
		s.state = StateError
		s.lastError = err.Error()
		s.log.Warn("pix charge creation failed", zap.String("email", s.email), zap.Error(err))
		return err
	}
	s.charge = charge
	s.state = StateDisplayQR
	s.deadline = time.Now().Add(s.cfg.Countdown)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stop = cancel
	go s.run(runCtx, charge.ID, s.deadline)
	return nil
}

// run polls the gateway until the charge settles, expires, or the
// session leaves display_qr.
func (s *Session) run(ctx context.Context, chargeID string, deadline time.Time) {
	expiry := time.NewTimer(time.Until(deadline))
	defer expiry.Stop()
	poll := time.NewTicker(s.cfg.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-expiry.C:
			s.expire()
			return
		case <-poll.C:
			if s.checkOnce(ctx, chargeID) {
				return
			}
		}
	}
}

// checkOnce asks the gateway for the charge status and applies it.
// It reports whether the session reached a terminal state.
func (s *Session) checkOnce(ctx context.Context, chargeID string) bool {
	status, err := s.gateway.ChargeStatus(ctx, chargeID)
	if err != nil {
		s.log.Debug("pix status poll failed", zap.String("charge", chargeID), zap.Error(err))
		return false
	}
	switch status {
	case StatusPaid:
		s.settle(ctx)
		return true
	case StatusExpired:
		s.expire()
		return true
	}
	return false
}

// ManualCheck runs one user-initiated status check. Only one manual
// check runs at a time; the in-progress flag is visible in snapshots.
func (s *Session) ManualCheck(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisplayQR {
		s.mu.Unlock()
		return ErrWrongState
	}
	if s.checking {
		s.mu.Unlock()
		return ErrCheckInProgress
	}
	s.checking = true
	chargeID := s.charge.ID
	s.mu.Unlock()

	status, err := s.gateway.ChargeStatus(ctx, chargeID)

	s.mu.Lock()
	s.checking = false
	s.mu.Unlock()

	if err != nil {
		return err
	}
	switch status {
	case StatusPaid:
		s.settle(ctx)
	case StatusExpired:
		s.expire()
	}
	return nil
}

// settle flips the session to paid and fires the settlement callback.
// The settled flag guarantees exactly-once under poll and manual-check
// races. A callback failure leaves the user paid but not entitled;
// that is surfaced through SettleFailed, never by retrying payment.
func (s *Session) settle(ctx context.Context) {
	s.mu.Lock()
	if s.settled {
		s.mu.Unlock()
		return
	}
	s.settled = true
	s.state = StatePaid
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.mu.Unlock()

	if err := s.onSettled(context.WithoutCancel(ctx)); err != nil {
		s.log.Error("payment settled but entitlement grant failed",
			zap.String("email", s.email), zap.Error(err))
		s.mu.Lock()
		s.settleFailed = true
		s.mu.Unlock()
	}
}

func (s *Session) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisplayQR {
		return
	}
	s.state = StateExpired
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// Close dismisses the session. Blocked while the QR is loading or
// displayed, and blocked from paid, which requires Acknowledge.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateExpired, StateError, StateIdle, StateClosed:
		s.state = StateClosed
		return nil
	default:
		return ErrCloseBlocked
	}
}

// Acknowledge is the explicit exit from paid.
func (s *Session) Acknowledge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaid {
		return ErrWrongState
	}
	s.state = StateClosed
	return nil
}
