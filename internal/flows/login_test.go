package flows

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeBackend struct {
	requests  int
	resends   int
	verifies  int
	verifyErr error
	grant     *Grant
}

func (b *fakeBackend) requestOTP(_ context.Context, email string) error {
	b.requests++
	return nil
}

func (b *fakeBackend) resendOTP(_ context.Context, email string) error {
	b.resends++
	return nil
}

func (b *fakeBackend) verifyOTP(_ context.Context, email, otp string) (*Grant, error) {
	b.verifies++
	if b.verifyErr != nil {
		return nil, b.verifyErr
	}
	return b.grant, nil
}

func newTestMachine(t *testing.T) (*LoginMachine, *fakeBackend, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
	backend := &fakeBackend{grant: &Grant{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		UserID:       "u-1",
		UserEmail:    "agent@cleardrive.lk",
		UserRole:     "agent",
	}}
	machine := NewLoginMachine(LoginDeps{
		RequestOTP:     backend.requestOTP,
		ResendOTP:      backend.resendOTP,
		VerifyOTP:      backend.verifyOTP,
		OTPDigits:      6,
		ResendCooldown: 30 * time.Second,
		Now:            clock.Now,
	})
	return machine, backend, clock
}

func TestSubmitEmailAdvancesToCodeStep(t *testing.T) {
	machine, backend, _ := newTestMachine(t)

	require.NoError(t, machine.SubmitEmail(context.Background(), "  Agent@ClearDrive.LK "))

	state := machine.State()
	assert.Equal(t, PhaseAwaitingCode, state.Phase)
	assert.Equal(t, "agent@cleardrive.lk", state.Email)
	assert.Equal(t, 1, backend.requests)
}

func TestSubmitEmailRejectsMalformedAddress(t *testing.T) {
	machine, backend, _ := newTestMachine(t)

	for _, email := range []string{"", "no-at-sign", "trailing@", "@nouser.lk", "user@nodot", "sp ace@x.lk"} {
		err := machine.SubmitEmail(context.Background(), email)
		assert.ErrorIs(t, err, ErrInvalidEmail, "email %q", email)
	}
	assert.Zero(t, backend.requests, "no network call for rejected input")
	assert.Equal(t, PhaseAwaitingCredential, machine.State().Phase)
}

func TestSubmitCodeIssuesGrant(t *testing.T) {
	machine, backend, _ := newTestMachine(t)
	require.NoError(t, machine.SubmitEmail(context.Background(), "agent@cleardrive.lk"))

	var adopted *Grant
	machine.deps.OnVerified = func(_ context.Context, grant *Grant) error {
		adopted = grant
		return nil
	}

	grant, err := machine.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, backend.grant, grant)
	assert.Equal(t, backend.grant, adopted)
	assert.Equal(t, PhaseVerified, machine.State().Phase)
}

func TestSubmitCodeRejectsMalformedWithoutNetwork(t *testing.T) {
	machine, backend, _ := newTestMachine(t)
	require.NoError(t, machine.SubmitEmail(context.Background(), "agent@cleardrive.lk"))

	for _, otp := range []string{"", "12345", "1234567", "12345a", "12 456"} {
		_, err := machine.SubmitCode(context.Background(), otp)
		assert.ErrorIs(t, err, ErrInvalidOTP, "otp %q", otp)
	}
	assert.Zero(t, backend.verifies)
	assert.Equal(t, PhaseAwaitingCode, machine.State().Phase)
}

func TestSubmitCodeBackendRejectionKeepsState(t *testing.T) {
	machine, backend, clock := newTestMachine(t)
	require.NoError(t, machine.SubmitEmail(context.Background(), "agent@cleardrive.lk"))
	backend.verifyErr = errors.New("backend: invalid otp")

	cooldownBefore := machine.ResendAvailableIn()
	_, err := machine.SubmitCode(context.Background(), "654321")
	require.ErrorIs(t, err, backend.verifyErr)

	// The user stays on the verification step and can retry or resend; the
	// rejection does not restart the cooldown.
	state := machine.State()
	assert.Equal(t, PhaseAwaitingCode, state.Phase)
	assert.Equal(t, "agent@cleardrive.lk", state.Email)
	assert.Equal(t, cooldownBefore, machine.ResendAvailableIn())

	backend.verifyErr = nil
	clock.Advance(time.Second)
	_, err = machine.SubmitCode(context.Background(), "123456")
	assert.NoError(t, err)
}

func TestSubmitCodeFailedAdoptionStaysUnverified(t *testing.T) {
	machine, _, _ := newTestMachine(t)
	require.NoError(t, machine.SubmitEmail(context.Background(), "agent@cleardrive.lk"))

	adoptErr := errors.New("durable tier unavailable")
	machine.deps.OnVerified = func(context.Context, *Grant) error { return adoptErr }

	_, err := machine.SubmitCode(context.Background(), "123456")
	require.ErrorIs(t, err, adoptErr)
	assert.Equal(t, PhaseAwaitingCode, machine.State().Phase)
}

func TestSubmitCodeOutsideCodePhase(t *testing.T) {
	machine, backend, _ := newTestMachine(t)

	_, err := machine.SubmitCode(context.Background(), "123456")
	assert.ErrorIs(t, err, ErrNotVerifiable)
	assert.Zero(t, backend.verifies)
}

func TestResendCooldown(t *testing.T) {
	machine, backend, clock := newTestMachine(t)
	require.NoError(t, machine.SubmitEmail(context.Background(), "agent@cleardrive.lk"))

	// The initial issuance opens the window: an immediate resend is a local
	// no-op, not a rate-limited backend call.
	err := machine.Resend(context.Background())
	assert.ErrorIs(t, err, ErrResendCooldown)
	assert.Zero(t, backend.resends)
	assert.Equal(t, 30*time.Second, machine.ResendAvailableIn())

	clock.Advance(29 * time.Second)
	assert.ErrorIs(t, machine.Resend(context.Background()), ErrResendCooldown)
	assert.Zero(t, backend.resends)

	clock.Advance(time.Second)
	require.NoError(t, machine.Resend(context.Background()))
	assert.Equal(t, 1, backend.resends)

	// A successful resend restarts the window.
	assert.ErrorIs(t, machine.Resend(context.Background()), ErrResendCooldown)
	assert.Equal(t, 1, backend.resends)
}

func TestResendRequiresPendingVerification(t *testing.T) {
	machine, backend, _ := newTestMachine(t)
	assert.ErrorIs(t, machine.Resend(context.Background()), ErrMissingEmail)
	assert.Zero(t, backend.resends)
}

func TestEnterCodeStepReconcilesEmail(t *testing.T) {
	t.Run("url parameter wins over stored email", func(t *testing.T) {
		machine, _, _ := newTestMachine(t)
		email, err := machine.EnterCodeStep("URL@cleardrive.lk", "stored@cleardrive.lk")
		require.NoError(t, err)
		assert.Equal(t, "url@cleardrive.lk", email)
		assert.Equal(t, LoginState{Phase: PhaseAwaitingCode, Email: "url@cleardrive.lk"}, machine.State())
	})

	t.Run("stored email backs up a bare url", func(t *testing.T) {
		machine, _, _ := newTestMachine(t)
		email, err := machine.EnterCodeStep("", "stored@cleardrive.lk")
		require.NoError(t, err)
		assert.Equal(t, "stored@cleardrive.lk", email)
	})

	t.Run("no email anywhere falls back to the credential step", func(t *testing.T) {
		machine, _, _ := newTestMachine(t)
		_, err := machine.EnterCodeStep("", "")
		require.ErrorIs(t, err, ErrMissingEmail)
		assert.Equal(t, PhaseAwaitingCredential, machine.State().Phase)
	})
}

func TestSubmitGoogleCarriesResolvedEmail(t *testing.T) {
	machine, _, _ := newTestMachine(t)
	machine.deps.IdentifyGoogle = func(_ context.Context, idToken string) (string, error) {
		return "Agent@ClearDrive.LK", nil
	}

	email, err := machine.SubmitGoogle(context.Background(), "google-id-token")
	require.NoError(t, err)
	assert.Equal(t, "agent@cleardrive.lk", email)
	assert.Equal(t, PhaseAwaitingCode, machine.State().Phase)

	_, err = machine.SubmitGoogle(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestResetKeepsCooldownStamp(t *testing.T) {
	machine, backend, _ := newTestMachine(t)
	require.NoError(t, machine.SubmitEmail(context.Background(), "agent@cleardrive.lk"))

	machine.Reset()
	assert.Equal(t, PhaseAwaitingCredential, machine.State().Phase)

	// Re-identifying immediately does not grant a free resend.
	require.NoError(t, machine.SubmitEmail(context.Background(), "agent@cleardrive.lk"))
	assert.ErrorIs(t, machine.Resend(context.Background()), ErrResendCooldown)
	assert.Zero(t, backend.resends)
}
