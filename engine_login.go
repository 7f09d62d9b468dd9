package authkit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cleardrive/authkit/internal/flows"
	"github.com/cleardrive/authkit/internal/rest"
)

// LoginPhase enumerates the states of the login/verification machine.
type LoginPhase = flows.LoginPhase

const (
	// PhaseAwaitingCredential is an exported constant or variable used by the session engine.
	PhaseAwaitingCredential = flows.PhaseAwaitingCredential
	// PhaseAwaitingCode is an exported constant or variable used by the session engine.
	PhaseAwaitingCode = flows.PhaseAwaitingCode
	// PhaseVerified is an exported constant or variable used by the session engine.
	PhaseVerified = flows.PhaseVerified
)

// LoginState is the externally visible login machine state.
type LoginState = flows.LoginState

// LoginState returns the current state of the login machine.
func (e *Engine) LoginState() LoginState {
	return e.login.State()
}

// BeginLogin identifies the user by email, asks the backend to issue a one-time
// passcode, and advances the login machine to the verification step.
func (e *Engine) BeginLogin(ctx context.Context, email string) error {
	if err := e.login.SubmitEmail(ctx, email); err != nil {
		return e.mapLoginError(err)
	}
	e.metrics.Inc(MetricOTPRequested)
	return nil
}

// BeginGoogleLogin identifies the user via a Google ID token. The backend
// resolves it to an account email and issues a passcode; the returned email is
// what the verification step carries forward.
func (e *Engine) BeginGoogleLogin(ctx context.Context, idToken string) (string, error) {
	email, err := e.login.SubmitGoogle(ctx, idToken)
	if err != nil {
		return "", e.mapLoginError(err)
	}
	e.metrics.Inc(MetricOTPRequested)
	return email, nil
}

// ResumeVerification re-enters the verification step on direct navigation,
// reconciling the email from the URL parameter and short-lived storage (the URL
// wins when they disagree). With no email available anywhere, the machine falls
// back to the credential step and ErrMissingEmail tells the caller to redirect.
func (e *Engine) ResumeVerification(urlEmail, storedEmail string) (string, error) {
	email, err := e.login.EnterCodeStep(urlEmail, storedEmail)
	if err != nil {
		return "", e.mapLoginError(err)
	}
	return email, nil
}

// VerifyOTP submits the passcode. On success every credential tier is populated,
// the in-memory session reflects the returned profile with its role normalized,
// and the machine reaches its terminal state.
func (e *Engine) VerifyOTP(ctx context.Context, otp string) (Session, error) {
	if _, err := e.login.SubmitCode(ctx, otp); err != nil {
		e.metrics.Inc(MetricOTPRejected)
		var apiErr *rest.APIError
		if errors.As(err, &apiErr) && apiErr.Kind == rest.KindValidation {
			// The backend rejected the code itself; surface it as such so the UI
			// can keep the user on the verification step.
			return Session{}, errors.Join(ErrOTPRejected, err)
		}
		return Session{}, e.mapLoginError(err)
	}
	e.metrics.Inc(MetricOTPVerified)
	session, _ := e.Session()
	return session, nil
}

// ResendOTP requests a fresh passcode, subject to the client-enforced cooldown.
// Within the window it is a no-op: no network call is issued.
func (e *Engine) ResendOTP(ctx context.Context) error {
	if err := e.login.Resend(ctx); err != nil {
		if errors.Is(err, flows.ErrResendCooldown) {
			e.metrics.Inc(MetricOTPResendBlocked)
		}
		return e.mapLoginError(err)
	}
	e.metrics.Inc(MetricOTPResent)
	return nil
}

// ResendAvailableIn reports the remaining cooldown before the next resend.
func (e *Engine) ResendAvailableIn() time.Duration {
	return e.login.ResendAvailableIn()
}

// ForgotPassword requests a password-reset code. The backend responds
// identically whether or not the account exists.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return e.rest.ForgotPassword(ctx, email)
}

// ResetPassword completes a password reset. The confirmation mismatch and
// malformed codes are rejected client-side before any network call.
func (e *Engine) ResetPassword(ctx context.Context, email, otp, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	otp = strings.TrimSpace(otp)
	if len(otp) != e.config.OTP.Digits {
		return ErrInvalidOTP
	}
	return e.rest.ResetPassword(ctx, email, otp, newPassword)
}

// verifyOTP adapts the rest client for the login machine.
func (e *Engine) verifyOTP(ctx context.Context, email, otp string) (*flows.Grant, error) {
	grant, err := e.rest.VerifyOTP(ctx, email, otp)
	if err != nil {
		return nil, err
	}
	return &flows.Grant{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    grant.TokenType,
		ExpiresIn:    grant.ExpiresIn,
		UserID:       grant.User.ID,
		UserEmail:    grant.User.Email,
		UserName:     grant.User.Name,
		UserRole:     grant.User.Role,
	}, nil
}

// identifyGoogle adapts the rest client for the login machine.
func (e *Engine) identifyGoogle(ctx context.Context, idToken string) (string, error) {
	identity, err := e.rest.GoogleIdentify(ctx, idToken)
	if err != nil {
		var apiErr *rest.APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return "", errors.Join(ErrGoogleIdentity, err)
		}
		return "", err
	}
	return identity.Email, nil
}

// adoptGrant is the login machine's OnVerified hook: it populates every
// credential tier and the in-memory session in one place, so a verified login
// can never leave them out of step.
func (e *Engine) adoptGrant(ctx context.Context, grant *flows.Grant) error {
	if err := e.store.Set(ctx, grant.AccessToken, grant.RefreshToken); err != nil {
		return err
	}
	session := sessionFromProfile(Profile{
		ID:    grant.UserID,
		Email: grant.UserEmail,
		Name:  grant.UserName,
		Role:  grant.UserRole,
	})
	if expiresAt, ok := accessTokenExpiry(grant.AccessToken); ok {
		session.ExpiresAt = expiresAt
	} else if grant.ExpiresIn > 0 {
		session.ExpiresAt = e.now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	}
	e.setSession(&session)
	return nil
}

// mapLoginError translates flow-level failures onto the public taxonomy while
// letting normalized backend errors through untouched.
func (e *Engine) mapLoginError(err error) error {
	switch {
	case errors.Is(err, flows.ErrInvalidEmail):
		return ErrInvalidEmail
	case errors.Is(err, flows.ErrInvalidOTP):
		return ErrInvalidOTP
	case errors.Is(err, flows.ErrMissingEmail), errors.Is(err, flows.ErrNotVerifiable):
		return ErrMissingEmail
	case errors.Is(err, flows.ErrResendCooldown):
		return ErrResendCooldown
	}
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) && apiErr.Kind == rest.KindNetwork {
		return errors.Join(ErrBackendUnavailable, err)
	}
	return err
}
