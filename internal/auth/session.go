// Package auth obtains the bearer token shared by every request of one module
// run.
package auth

import (
	"time"
)

// Session is the outcome of one login bootstrap. It is written once, before
// any endpoint runs, and only read afterwards.
type Session struct {
	Token      string    `json:"-"`
	Source     string    `json:"source,omitempty"`
	Status     int       `json:"status"`
	ObtainedAt time.Time `json:"obtained_at"`
	Err        error     `json:"-"`
}

// Authenticated reports whether the session carries a token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Header returns the Authorization header value, or "" when there is no token.
func (s *Session) Header() string {
	if !s.Authenticated() {
		return ""
	}
	return "Bearer " + s.Token
}

// Static wraps a preconfigured token, skipping the login call.
func Static(token string) *Session {
	return &Session{Token: token, Source: "static", ObtainedAt: time.Now()}
}

// Anonymous is a session with no token.
func Anonymous() *Session {
	return &Session{ObtainedAt: time.Now()}
}
