package client

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrNoSession is returned when a refresh is attempted before login.
var ErrNoSession = errors.New("client: no session")

// Session holds the tokens of one signed-in teacher.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// RefreshFunc exchanges a refresh token for a new session.
type RefreshFunc func(ctx context.Context, refreshToken string) (Session, error)

// Refresher guards the session shared by every client of one teacher. At most one
// refresh is in flight; concurrent callers wait for it and share its result.
// A Refresher is safe for concurrent use and must be passed by reference.
type Refresher struct {
	mu      sync.RWMutex
	session Session
	group   singleflight.Group
}

// NewRefresher returns a guard holding the given session.
func NewRefresher(session Session) *Refresher {
	return &Refresher{session: session}
}

// Session returns the current tokens.
func (r *Refresher) Session() Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// Set replaces the session, e.g. after login.
func (r *Refresher) Set(session Session) {
	r.mu.Lock()
	r.session = session
	r.mu.Unlock()
}

// Refresh renews the session that issued staleAccess. When another caller already
// replaced it, the current session is returned without calling fn.
func (r *Refresher) Refresh(ctx context.Context, staleAccess string, fn RefreshFunc) (Session, error) {
	v, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		current := r.Session()
		if current.AccessToken != staleAccess {
			return current, nil
		}
		if current.RefreshToken == "" {
			return Session{}, ErrNoSession
		}
		next, err := fn(ctx, current.RefreshToken)
		if err != nil {
			return Session{}, err
		}
		r.Set(next)
		return next, nil
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}
