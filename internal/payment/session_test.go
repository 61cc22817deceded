package payment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	status    string
	statusErr error
	creates   int
	checks    int
}

func (f *fakeGateway) CreateCharge(_ context.Context, email string, _ int64) (*Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &Charge{ID: "ch_1", BRCode: "000201br.gov.bcb.pix", BRCodeBase64: "data:image/png;base64,xx", ExpiresAt: "2026-01-01T00:00:00Z"}, nil
}

func (f *fakeGateway) ChargeStatus(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

func (f *fakeGateway) setStatus(s string) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func newSession(gw ChargeAPI, settle func(ctx context.Context) error, cfg Config) *Session {
	if settle == nil {
		settle = func(context.Context) error { return nil }
	}
	return NewSession(gw, "a@b.com", 4990, settle, cfg, zap.NewNop())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestOpenDisplaysQR(t *testing.T) {
	gw := &fakeGateway{status: StatusPending}
	s := newSession(gw, nil, Config{})
	require.NoError(t, s.Open(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, StateDisplayQR, snap.State)
	require.NotNil(t, snap.Charge)
	assert.Equal(t, "ch_1", snap.Charge.ID)
	assert.Greater(t, snap.RemainingSeconds, 590, "countdown starts near 600s")
}

func TestCreateFailureEntersErrorAndRetryReenters(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("gateway down"), status: StatusPending}
	s := newSession(gw, nil, Config{})

	require.Error(t, s.Open(context.Background()))
	assert.Equal(t, StateError, s.Snapshot().State)
	assert.NotEmpty(t, s.Snapshot().ErrorMessage)

	gw.mu.Lock()
	gw.createErr = nil
	gw.mu.Unlock()
	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, StateDisplayQR, s.Snapshot().State)
	assert.Equal(t, 2, gw.creates)
}

func TestPollSettlesOnPaid(t *testing.T) {
	gw := &fakeGateway{status: StatusPending}
	var settles int32
	s := newSession(gw, func(context.Context) error {
		atomic.AddInt32(&settles, 1)
		return nil
	}, Config{PollInterval: time.Millisecond})

	require.NoError(t, s.Open(context.Background()))
	gw.setStatus(StatusPaid)
	waitFor(t, func() bool { return s.Snapshot().State == StatePaid })
	assert.Equal(t, int32(1), atomic.LoadInt32(&settles))
	assert.False(t, s.Snapshot().SettleFailed)
}

func TestSettleFiresExactlyOnceUnderRace(t *testing.T) {
	gw := &fakeGateway{status: StatusPaid}
	var settles int32
	s := newSession(gw, func(context.Context) error {
		atomic.AddInt32(&settles, 1)
		return nil
	}, Config{PollInterval: time.Hour})
	require.NoError(t, s.Open(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.settle(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&settles))
	assert.Equal(t, StatePaid, s.Snapshot().State)
}

func TestSettleCallbackFailureIsSurfacedNotRetried(t *testing.T) {
	gw := &fakeGateway{status: StatusPaid}
	var settles int32
	s := newSession(gw, func(context.Context) error {
		atomic.AddInt32(&settles, 1)
		return errors.New("grant failed")
	}, Config{PollInterval: time.Hour})
	require.NoError(t, s.Open(context.Background()))

	require.NoError(t, s.ManualCheck(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, StatePaid, snap.State, "payment did settle on the gateway side")
	assert.True(t, snap.SettleFailed)

	s.settle(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&settles), "callback must not run again")
}

func TestCountdownExpires(t *testing.T) {
	gw := &fakeGateway{status: StatusPending}
	s := newSession(gw, nil, Config{Countdown: 10 * time.Millisecond, PollInterval: time.Hour})
	require.NoError(t, s.Open(context.Background()))
	waitFor(t, func() bool { return s.Snapshot().State == StateExpired })
}

func TestManualCheckStates(t *testing.T) {
	gw := &fakeGateway{status: StatusPending}
	s := newSession(gw, nil, Config{PollInterval: time.Hour})

	assert.ErrorIs(t, s.ManualCheck(context.Background()), ErrWrongState)

	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.ManualCheck(context.Background()))
	assert.Equal(t, StateDisplayQR, s.Snapshot().State, "PENDING keeps the QR up")

	gw.setStatus(StatusExpired)
	require.NoError(t, s.ManualCheck(context.Background()))
	assert.Equal(t, StateExpired, s.Snapshot().State)
}

func TestCloseRules(t *testing.T) {
	gw := &fakeGateway{status: StatusPaid}
	s := newSession(gw, nil, Config{PollInterval: time.Hour})

	require.NoError(t, s.Open(context.Background()))
	assert.ErrorIs(t, s.Close(), ErrCloseBlocked, "display_qr cannot be dismissed")
	assert.ErrorIs(t, s.Acknowledge(), ErrWrongState)

	require.NoError(t, s.ManualCheck(context.Background()))
	require.Equal(t, StatePaid, s.Snapshot().State)
	assert.ErrorIs(t, s.Close(), ErrCloseBlocked, "paid exits only through acknowledge")
	require.NoError(t, s.Acknowledge())
	assert.Equal(t, StateClosed, s.Snapshot().State)
}

func TestCloseFromExpired(t *testing.T) {
	gw := &fakeGateway{status: StatusExpired}
	s := newSession(gw, nil, Config{PollInterval: time.Hour})
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.ManualCheck(context.Background()))
	require.Equal(t, StateExpired, s.Snapshot().State)
	assert.NoError(t, s.Close())
}

func TestParseAmountCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"49,90", 4990},
		{"R$ 49,90", 4990},
		{"1.234,56", 123456},
		{"50", 5000},
		{"9,9", 990},
	}
	for _, tc := range cases {
		got, err := ParseAmountCents(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "abc", "49,901", "R$"} {
		_, err := ParseAmountCents(bad)
		assert.Error(t, err, bad)
	}
}
