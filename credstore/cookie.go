package credstore

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// RefreshCookie builds the cookie mirror of the refresh credential with the
// attributes the route guard depends on. A non-positive maxAge produces an
// expired cookie, which is how the mirror is cleared on the wire.
func RefreshCookie(name, value string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge / time.Second)
	} else {
		cookie.MaxAge = -1
	}
	return cookie
}

// ReadRefreshCookie extracts the mirrored refresh credential from an incoming
// request. The second return is false when the cookie is absent or empty.
func ReadRefreshCookie(r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// JarMirror mirrors the refresh credential into an http.CookieJar under the
// application origin, so a client process observes the same cookie a browser
// would. All methods are safe for concurrent use.
type JarMirror struct {
	mu     sync.Mutex
	jar    http.CookieJar
	origin *url.URL
	name   string
}

// NewJarMirror builds a mirror writing cookies for origin into jar.
func NewJarMirror(jar http.CookieJar, origin *url.URL, name string) *JarMirror {
	return &JarMirror{jar: jar, origin: origin, name: name}
}

// Set writes the mirror cookie.
func (j *JarMirror) Set(value string, maxAge time.Duration) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(j.origin, []*http.Cookie{RefreshCookie(j.name, value, maxAge)})
	return nil
}

// Clear expires the mirror cookie.
func (j *JarMirror) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(j.origin, []*http.Cookie{RefreshCookie(j.name, "", 0)})
	return nil
}
