package verify

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []struct{ email, code string }
	err  error
}

func (f *fakeSender) SendCode(_ context.Context, email, code string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, struct{ email, code string }{email, code})
	return nil
}

func (f *fakeSender) last() string { return f.sent[len(f.sent)-1].code }

type fakeProfiles struct {
	upserts int
	err     error
	hook    func()
}

func (f *fakeProfiles) UpsertProfile(_ context.Context, email string) (*models.Profile, error) {
	f.upserts++
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	basic := models.AccessBasic
	return &models.Profile{Email: email, Acesso: &basic}, nil
}

func TestSubmitEmailSendsSixDigitCode(t *testing.T) {
	sender := &fakeSender{}
	flow := NewFlow(sender, &fakeProfiles{})

	require.NoError(t, flow.SubmitEmail(context.Background(), "User@Example.COM"))
	assert.Equal(t, StateCodeSent, flow.State())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "user@example.com", sender.sent[0].email, "email key is lowercased")
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), sender.sent[0].code)
}

func TestDispatchFailureStaysIdle(t *testing.T) {
	sender := &fakeSender{err: errors.New("webhook down")}
	flow := NewFlow(sender, &fakeProfiles{})

	err := flow.SubmitEmail(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.Equal(t, StateIdle, flow.State())
}

func TestVerifyCorrectCodeOnce(t *testing.T) {
	sender := &fakeSender{}
	profiles := &fakeProfiles{}
	flow := NewFlow(sender, profiles)

	require.NoError(t, flow.SubmitEmail(context.Background(), "a@b.com"))
	profile, err := flow.Verify(context.Background(), sender.last())
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "a@b.com", profile.Email)
	assert.Equal(t, StateVerified, flow.State())
	assert.Equal(t, 1, profiles.upserts)

	// the flow is consumed; a second submission has nothing to match
	_, err = flow.Verify(context.Background(), sender.last())
	assert.ErrorIs(t, err, ErrNoPendingCode)
	assert.Equal(t, 1, profiles.upserts, "store must not be touched again")
}

func TestVerifyWrongCodeKeepsExpectation(t *testing.T) {
	sender := &fakeSender{}
	profiles := &fakeProfiles{}
	flow := NewFlow(sender, profiles)

	require.NoError(t, flow.SubmitEmail(context.Background(), "a@b.com"))
	_, err := flow.Verify(context.Background(), "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, StateCodeSent, flow.State())
	assert.Zero(t, profiles.upserts, "mismatch must not touch the store")

	// the original code still works: it was not regenerated
	_, err = flow.Verify(context.Background(), sender.last())
	require.NoError(t, err)
}

func TestResendOverwritesCode(t *testing.T) {
	sender := &fakeSender{}
	flow := NewFlow(sender, &fakeProfiles{})

	require.NoError(t, flow.SubmitEmail(context.Background(), "a@b.com"))
	first := sender.last()
	require.NoError(t, flow.Resend(context.Background()))
	require.Len(t, sender.sent, 2)

	if first != sender.last() {
		_, err := flow.Verify(context.Background(), first)
		assert.ErrorIs(t, err, ErrInvalidCode, "stale code must be rejected after resend")
	}
	_, err := flow.Verify(context.Background(), sender.last())
	assert.NoError(t, err)
}

func TestProfileFailureIsFatalToAttempt(t *testing.T) {
	sender := &fakeSender{}
	profiles := &fakeProfiles{err: errors.New("db down")}
	flow := NewFlow(sender, profiles)

	require.NoError(t, flow.SubmitEmail(context.Background(), "a@b.com"))
	_, err := flow.Verify(context.Background(), sender.last())
	require.Error(t, err)
	assert.NotEqual(t, StateVerified, flow.State())
}

func TestResetDuringVerifyWins(t *testing.T) {
	sender := &fakeSender{}
	profiles := &fakeProfiles{}
	flow := NewFlow(sender, profiles)
	require.NoError(t, flow.SubmitEmail(context.Background(), "a@b.com"))

	// the logout lands while the profile row is being loaded
	profiles.hook = func() { flow.Reset() }
	_, err := flow.Verify(context.Background(), sender.last())
	assert.ErrorIs(t, err, ErrNoPendingCode)
	assert.Equal(t, StateIdle, flow.State())
}

func TestResetDestroysSession(t *testing.T) {
	sender := &fakeSender{}
	flow := NewFlow(sender, &fakeProfiles{})
	require.NoError(t, flow.SubmitEmail(context.Background(), "a@b.com"))

	flow.Reset()
	assert.Equal(t, StateIdle, flow.State())
	_, err := flow.Verify(context.Background(), sender.last())
	assert.ErrorIs(t, err, ErrNoPendingCode)
}
