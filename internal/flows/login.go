package flows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// LoginPhase enumerates the states of the login/verification machine.
type LoginPhase int

const (
	// PhaseAwaitingCredential accepts an email/password pair or a third-party
	// identity credential.
	PhaseAwaitingCredential LoginPhase = iota
	// PhaseAwaitingCode accepts the fixed-length one-time passcode.
	PhaseAwaitingCode
	// PhaseVerified is terminal: tokens issued, session populated.
	PhaseVerified
)

// LoginState is the externally visible machine state.
type LoginState struct {
	Phase LoginPhase
	// Email is the identified address carried into the verification step; empty
	// outside PhaseAwaitingCode and PhaseVerified.
	Email string
}

// Flow-level failures, mapped onto the public taxonomy by the root package.
var (
	ErrInvalidEmail   = errors.New("invalid email")
	ErrInvalidOTP     = errors.New("invalid otp format")
	ErrMissingEmail   = errors.New("missing email for verification step")
	ErrResendCooldown = errors.New("resend cooldown active")
	ErrNotVerifiable  = errors.New("machine not awaiting a code")
)

// Grant carries the issued token pair and profile returned by a successful
// verification.
type Grant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64

	UserID    string
	UserEmail string
	UserName  string
	UserRole  string
}

// LoginDeps captures login machine dependencies.
type LoginDeps struct {
	RequestOTP     func(ctx context.Context, email string) error
	ResendOTP      func(ctx context.Context, email string) error
	VerifyOTP      func(ctx context.Context, email, otp string) (*Grant, error)
	IdentifyGoogle func(ctx context.Context, idToken string) (string, error)
	// OnVerified persists the grant (credential store + in-memory session). A
	// failure here keeps the machine in PhaseAwaitingCode so no credential is
	// half-written.
	OnVerified     func(ctx context.Context, grant *Grant) error
	OTPDigits      int
	ResendCooldown time.Duration
	Now            func() time.Time
}

// LoginMachine drives credential submission, passcode verification, and the
// resend sub-flow as an explicit state machine. All methods are safe for
// concurrent use.
type LoginMachine struct {
	mu       sync.Mutex
	deps     LoginDeps
	state    LoginState
	lastSend time.Time
}

// NewLoginMachine builds a machine in PhaseAwaitingCredential.
func NewLoginMachine(deps LoginDeps) *LoginMachine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &LoginMachine{deps: deps}
}

// State returns a copy of the current machine state.
func (m *LoginMachine) State() LoginState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SubmitEmail identifies the user by email, triggers passcode issuance, and
// advances to PhaseAwaitingCode. The issuance counts as a send for the resend
// cooldown window.
func (m *LoginMachine) SubmitEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	if err := m.deps.RequestOTP(ctx, email); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = LoginState{Phase: PhaseAwaitingCode, Email: email}
	m.lastSend = m.deps.Now()
	return nil
}

// SubmitGoogle identifies the user by a third-party ID token. The backend
// resolves the token to an email and issues a passcode to it; the machine
// advances to PhaseAwaitingCode carrying that email.
func (m *LoginMachine) SubmitGoogle(ctx context.Context, idToken string) (string, error) {
	if strings.TrimSpace(idToken) == "" {
		return "", ErrInvalidEmail
	}
	email, err := m.deps.IdentifyGoogle(ctx, idToken)
	if err != nil {
		return "", err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if !validEmail(email) {
		return "", ErrInvalidEmail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = LoginState{Phase: PhaseAwaitingCode, Email: email}
	m.lastSend = m.deps.Now()
	return email, nil
}

// EnterCodeStep resumes the verification step on direct navigation, reconciling
// the email from the URL parameter and short-lived storage. When both are
// present and disagree, the URL parameter wins since it is explicit. With no
// email available the machine falls back to PhaseAwaitingCredential rather than
// attempting verification with an empty identity.
func (m *LoginMachine) EnterCodeStep(urlEmail, storedEmail string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(urlEmail))
	if email == "" {
		email = strings.TrimSpace(strings.ToLower(storedEmail))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !validEmail(email) {
		m.state = LoginState{Phase: PhaseAwaitingCredential}
		return "", ErrMissingEmail
	}
	m.state = LoginState{Phase: PhaseAwaitingCode, Email: email}
	return email, nil
}

// SubmitCode verifies the passcode. Malformed codes are rejected before any
// network call. A backend rejection leaves the machine in PhaseAwaitingCode with
// no credential written and the resend cooldown untouched.
func (m *LoginMachine) SubmitCode(ctx context.Context, otp string) (*Grant, error) {
	m.mu.Lock()
	if m.state.Phase != PhaseAwaitingCode {
		m.mu.Unlock()
		return nil, ErrNotVerifiable
	}
	email := m.state.Email
	m.mu.Unlock()

	if email == "" {
		return nil, ErrMissingEmail
	}
	otp = strings.TrimSpace(otp)
	if len(otp) != m.deps.OTPDigits || !isNumericString(otp) {
		return nil, ErrInvalidOTP
	}

	grant, err := m.deps.VerifyOTP(ctx, email, otp)
	if err != nil {
		return nil, err
	}
	if m.deps.OnVerified != nil {
		if err := m.deps.OnVerified(ctx, grant); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.state = LoginState{Phase: PhaseVerified, Email: email}
	m.mu.Unlock()
	return grant, nil
}

// Resend requests a fresh passcode. Within the cooldown window the call is a
// no-op that reports ErrResendCooldown without issuing a network call.
func (m *LoginMachine) Resend(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Phase != PhaseAwaitingCode || m.state.Email == "" {
		m.mu.Unlock()
		return ErrMissingEmail
	}
	email := m.state.Email
	if since := m.deps.Now().Sub(m.lastSend); since < m.deps.ResendCooldown {
		m.mu.Unlock()
		return ErrResendCooldown
	}
	m.mu.Unlock()

	if err := m.deps.ResendOTP(ctx, email); err != nil {
		return err
	}
	m.mu.Lock()
	m.lastSend = m.deps.Now()
	m.mu.Unlock()
	return nil
}

// ResendAvailableIn reports how long until the next resend is allowed; zero when
// one is allowed now.
func (m *LoginMachine) ResendAvailableIn() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := m.deps.ResendCooldown - m.deps.Now().Sub(m.lastSend)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset returns the machine to PhaseAwaitingCredential, dropping any pending
// email. The cooldown stamp is kept so resetting cannot bypass the window.
func (m *LoginMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = LoginState{Phase: PhaseAwaitingCredential}
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	if strings.IndexByte(domain, '.') <= 0 || strings.HasSuffix(domain, ".") {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
