// Package rest is the typed client for the ClearDrive auth endpoints. It owns
// HTTP encoding and the normalization of backend error payloads; nothing above it
// touches raw responses.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TokenGrant is the response of a successful OTP verification.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// User is the backend profile embedded in a TokenGrant.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// TokenPair is the response of a successful refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GoogleIdentity is the response of a successful third-party identification.
type GoogleIdentity struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	GoogleID string `json:"google_id"`
}

// Client calls the backend auth endpoints over a plain (non-coordinating) HTTP
// client. The refresh coordinator depends on this client, so it must never route
// through the authenticated transport itself.
type Client struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

// New builds a Client for the API base URL.
func New(baseURL string, httpClient *http.Client, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.New("rest: base URL must be absolute")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: base, http: httpClient, log: log}, nil
}

// RequestOTP issues a one-time passcode to email.
func (c *Client) RequestOTP(ctx context.Context, email string) error {
	return c.post(ctx, "/auth/request-otp", map[string]string{"email": email}, nil, "")
}

// ResendOTP reissues the passcode for email.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.post(ctx, "/auth/resend-otp", map[string]string{"email": email}, nil, "")
}

// VerifyOTP exchanges the passcode for a session grant.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*TokenGrant, error) {
	var grant TokenGrant
	err := c.post(ctx, "/auth/verify-otp", map[string]string{"email": email, "otp": otp}, &grant, "")
	if err != nil {
		return nil, err
	}
	if grant.AccessToken == "" || grant.RefreshToken == "" {
		return nil, &APIError{Kind: KindServer, Message: "verify-otp response missing tokens"}
	}
	return &grant, nil
}

// GoogleIdentify resolves a Google ID token to the account email, which triggers
// the OTP step server-side.
func (c *Client) GoogleIdentify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	var identity GoogleIdentity
	err := c.post(ctx, "/auth/google", map[string]string{"id_token": idToken}, &identity, "")
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// ForgotPassword requests a password-reset code. The backend answers 2xx whether
// or not the account exists, to avoid account enumeration.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil, "")
}

// ResetPassword completes a password reset.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	body := map[string]string{"email": email, "otp": otp, "new_password": newPassword}
	return c.post(ctx, "/auth/reset-password", body, nil, "")
}

// Refresh rotates the access credential. The refresh credential travels in the
// body, never as a bearer header.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	err := c.post(ctx, "/auth/refresh", map[string]string{"refresh_token": refreshToken}, &pair, "")
	if err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, &APIError{Kind: KindServer, Message: "refresh response missing access token"}
	}
	return &pair, nil
}

// Logout invalidates the session server-side. Callers treat this as best-effort;
// the bearer token is passed explicitly because this client never reads the
// credential store.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.post(ctx, "/auth/logout", nil, nil, accessToken)
}

func (c *Client) post(ctx context.Context, path string, body, out any, bearer string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest: encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("rest: build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Debug().Str("path", path).Err(err).Msg("backend call failed")
		return &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		c.log.Debug().Str("path", path).Int("status", apiErr.Status).Msg("backend rejected call")
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: KindServer, Status: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}
