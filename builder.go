package authkit

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleardrive/authkit/credstore"
	"github.com/cleardrive/authkit/internal/flows"
	"github.com/cleardrive/authkit/internal/rest"
	"github.com/cleardrive/authkit/transport"
)

// Builder defines a public type used by authkit APIs.
//
// Builder instances are intended to be configured during initialization and then
// treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	ephemeral credstore.Ephemeral
	durable   credstore.Durable
	mirror    credstore.Mirror

	baseTransport http.RoundTripper
	log           zerolog.Logger
	now           func() time.Time
	onInvalidated func()

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder carrying the default configuration; nothing is allocated
// beyond the Builder until Build.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		log:    zerolog.Nop(),
		now:    time.Now,
	}
}

// WithConfig replaces the configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the backend API base URL, keeping the rest of the defaults.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithEphemeral sets the access-credential tier. Defaults to the memguard-backed
// in-memory tier.
func (b *Builder) WithEphemeral(tier credstore.Ephemeral) *Builder {
	b.ephemeral = tier
	return b
}

// WithDurable sets the refresh-credential tier. Required: the durable tier is
// what makes a session survive restarts, so there is no safe default.
func (b *Builder) WithDurable(tier credstore.Durable) *Builder {
	b.durable = tier
	return b
}

// WithMirror sets the cookie mirror tier. Optional; without it, edge routing
// logic cannot observe the session.
func (b *Builder) WithMirror(mirror credstore.Mirror) *Builder {
	b.mirror = mirror
	return b
}

// WithBaseTransport sets the http.RoundTripper beneath the authenticator,
// primarily for tests and custom TLS setups.
func (b *Builder) WithBaseTransport(rt http.RoundTripper) *Builder {
	b.baseTransport = rt
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.log = log
	return b
}

// WithClock sets the time source (primarily for testing).
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithSessionInvalidatedHook registers the callback fired when an unrecoverable
// refresh failure destroys the session — the navigation layer's cue to redirect
// to the login route.
func (b *Builder) WithSessionInvalidatedHook(hook func()) *Builder {
	b.onInvalidated = hook
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, assembles the storage tiers, transport, and
// login machine, and returns the ready Engine. A Builder may only be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.durable == nil {
		return nil, errors.New("durable credential tier required")
	}
	if b.ephemeral == nil {
		b.ephemeral = credstore.NewMemoryEphemeral()
	}

	storeOpts := []credstore.Option{}
	if b.mirror != nil {
		storeOpts = append(storeOpts, credstore.WithMirror(b.mirror, b.config.Credentials.CookieMaxAge))
	}
	store, err := credstore.New(b.ephemeral, b.durable, storeOpts...)
	if err != nil {
		return nil, err
	}

	restClient, err := rest.New(
		b.config.API.BaseURL,
		&http.Client{Timeout: b.config.API.Timeout},
		b.log.With().Str("component", "rest").Logger(),
	)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:        b.config,
		store:         store,
		rest:          restClient,
		metrics:       NewMetrics(),
		log:           b.log,
		now:           b.now,
		onInvalidated: b.onInvalidated,
	}

	engine.coordinator = transport.NewCoordinator(
		refresherFunc(engine.refreshCredentials),
		b.log.With().Str("component", "refresh").Logger(),
	)
	authenticator := transport.NewAuthenticator(
		b.baseTransport,
		store,
		engine.coordinator,
		b.log.With().Str("component", "transport").Logger(),
	)
	engine.httpClient = &http.Client{Transport: authenticator}

	engine.login = flows.NewLoginMachine(flows.LoginDeps{
		RequestOTP:     restClient.RequestOTP,
		ResendOTP:      restClient.ResendOTP,
		VerifyOTP:      engine.verifyOTP,
		IdentifyGoogle: engine.identifyGoogle,
		OnVerified:     engine.adoptGrant,
		OTPDigits:      b.config.OTP.Digits,
		ResendCooldown: b.config.OTP.ResendCooldown,
		Now:            b.now,
	})

	b.built = true
	return engine, nil
}

// refresherFunc adapts a function to the transport.Refresher interface.
type refresherFunc func(ctx context.Context) (string, error)

// Refresh implements transport.Refresher.
func (f refresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}
