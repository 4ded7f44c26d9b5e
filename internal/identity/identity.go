// Package identity resolves the authenticated user into the stable key used
// for every per-user lookup.
package identity

import (
	"context"
	"errors"
)

// ErrNoSession is returned by providers that have no authenticated user.
var ErrNoSession = errors.New("no identity session")

// User is what the identity provider knows about the signed-in user.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is a snapshot of the identity provider.
// User is nil when unauthenticated or while Loading is true.
type Session struct {
	User    *User
	Loading bool
}

// Provider supplies the current identity session.
type Provider interface {
	Session(ctx context.Context) (Session, error)
}

// Key derives the identity key: the email when non-empty, otherwise the id.
// Returns "" when neither is set.
func Key(email, id string) string {
	if email != "" {
		return email
	}
	return id
}

// Key returns the identity key for the session. ok is false while the
// provider is loading or when nobody is signed in.
func (s Session) Key() (key string, ok bool) {
	if s.Loading || s.User == nil {
		return "", false
	}
	key = Key(s.User.Email, s.User.ID)
	return key, key != ""
}

// Static is a provider backed by a fixed user, typically from config.
type Static struct {
	user *User
}

// NewStatic returns a provider for the given user. A user with neither email
// nor id yields an unauthenticated session.
func NewStatic(email, id string) *Static {
	if email == "" && id == "" {
		return &Static{}
	}
	return &Static{user: &User{ID: id, Email: email}}
}

// Session returns the configured user.
func (s *Static) Session(context.Context) (Session, error) {
	if s.user == nil {
		return Session{}, nil
	}
	u := *s.user
	return Session{User: &u}, nil
}
