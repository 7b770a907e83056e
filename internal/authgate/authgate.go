// Package authgate decides whether a request may mutate content. The
// policy is chosen once at startup and injected; handlers never inspect
// configuration themselves.
package authgate

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized marks a request that failed the active policy.
var ErrUnauthorized = errors.New("unauthorized")

// State describes the gate's verdict for a request, exposed on the
// auth status endpoint so editing frontends can adapt. Mode is only set
// when the request was admitted; an unauthenticated state carries none.
type State struct {
	Authenticated bool   `json:"authenticated"`
	Mode          string `json:"mode,omitempty"`
}

const (
	ModeBypassed = "bypassed"
	ModeVerified = "verified"
)

// Policy authorizes one request. Implementations must be safe for
// concurrent use.
type Policy interface {
	// Authorize returns the resulting state, or ErrUnauthorized.
	Authorize(r *http.Request) (State, error)
}

// Bypass admits every request. Used in local editor mode, where the
// process and the editor share a machine and there is nothing to prove.
type Bypass struct{}

func (Bypass) Authorize(*http.Request) (State, error) {
	return State{Authenticated: true, Mode: ModeBypassed}, nil
}

// Token verifies a bearer token against a single configured secret.
type Token struct {
	secret []byte
}

func NewToken(secret string) *Token {
	return &Token{secret: []byte(secret)}
}

func (t *Token) Authorize(r *http.Request) (State, error) {
	presented, ok := bearerToken(r)
	if !ok {
		return State{}, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(presented), t.secret) != 1 {
		return State{}, ErrUnauthorized
	}
	return State{Authenticated: true, Mode: ModeVerified}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
