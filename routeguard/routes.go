package routeguard

import "strings"

// Class partitions a URL path. Every path falls into at most one class;
// unclassified paths are implicitly public.
type Class int

const (
	// ClassPublic is an exported constant or variable used by the route guard.
	ClassPublic Class = iota
	// ClassProtected is an exported constant or variable used by the route guard.
	ClassProtected
	// ClassAuth is an exported constant or variable used by the route guard.
	ClassAuth
)

// Routes holds the static path partition. Matching is by prefix; the protected
// set wins when a path would match both.
type Routes struct {
	Protected []string
	Auth      []string
}

// DefaultRoutes is the ClearDrive route surface.
func DefaultRoutes() Routes {
	return Routes{
		Protected: []string{"/dashboard", "/profile", "/orders", "/vehicles"},
		Auth:      []string{"/login", "/register", "/verify-otp", "/forgot-password"},
	}
}

// Classify returns the class of path.
func (r Routes) Classify(path string) Class {
	if matchesPrefix(path, r.Protected) {
		return ClassProtected
	}
	if matchesPrefix(path, r.Auth) {
		return ClassAuth
	}
	return ClassPublic
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
