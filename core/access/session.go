// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package access

import (
	"context"
	"errors"
	"sync"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/logger"
)

// SessionBuilder is a builder helper for the Session
type SessionBuilder struct {
	// Provider is the identity provider. This is mandatory.
	Provider Provider
	// Registrar registers signed in principals with the backend. This is optional.
	Registrar Registrar
}

// Session holds the signed in principal and the backend session token.
//
// The principal is written only by the session itself; everybody else reads copies.
type Session struct {
	provider  Provider
	registrar Registrar

	mutex     sync.RWMutex
	principal *Principal
	token     string
	listeners map[int]func(*Principal)
	nextID    int

	// notify serializes deliveries to listeners
	notify sync.Mutex

	background sync.WaitGroup
	errors     chan error
}

// NewSession creates a new session. It starts out with whatever principal the
// provider considers signed in.
func NewSession(b SessionBuilder) *Session {
	if b.Provider == nil {
		panic("Provider is missing")
	}
	s := &Session{
		provider:  b.Provider,
		registrar: b.Registrar,
		listeners: make(map[int]func(*Principal)),
		errors:    make(chan error, 16),
	}
	if current := b.Provider.Current(); current != nil {
		p := *current
		s.principal = &p
	}
	return s
}

// Principal returns a copy of the signed in principal, or nil
func (s *Session) Principal() *Principal {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.principal == nil {
		return nil
	}
	p := *s.principal
	return &p
}

// Token returns the backend session token, empty until registration succeeded
func (s *Session) Token() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.token
}

// OnChange registers fn. It is called immediately with the current principal and
// again after every change, until the returned function is called. Calls are
// never concurrent and the last one always carries the current principal. fn
// must not call OnChange itself.
func (s *Session) OnChange(fn func(*Principal)) (unregister func()) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mutex.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.principal
	if current != nil {
		p := *current
		current = &p
	}
	s.mutex.Unlock()

	fn(current)

	return func() {
		s.mutex.Lock()
		delete(s.listeners, id)
		s.mutex.Unlock()
	}
}

// SignIn runs the provider's interactive flow. A dismissed flow yields an
// AuthCancelled failure, anything else an AuthError failure. In both cases the
// session stays signed out.
//
// On success the principal is registered with the backend in the background.
// Registration failures never fail the sign-in, they are logged and reported
// on Errors().
func (s *Session) SignIn(ctx context.Context) (Principal, error) {
	rlog := logger.FromContext(ctx)
	principal, err := s.provider.SignIn(ctx)
	if err != nil {
		if errors.Is(err, ErrDismissed) || errors.Is(err, context.Canceled) {
			rlog.Debugln("sign-in dismissed")
			return Principal{}, &core.Failure{Kind: core.KindAuthCancelled, Err: err}
		}
		rlog.WithError(err).Warnln("sign-in failed")
		return Principal{}, &core.Failure{Kind: core.KindAuth, Err: err}
	}

	s.mutex.Lock()
	p := principal
	s.principal = &p
	s.token = ""
	s.mutex.Unlock()
	rlog.Infof("signed in as %s", principal.Email)
	s.changed()

	if s.registrar != nil {
		s.background.Add(1)
		// registration outlives the sign-in call
		go s.register(logger.ContextWithEntry(context.Background(), rlog), principal)
	}
	return principal, nil
}

func (s *Session) register(ctx context.Context, principal Principal) {
	defer s.background.Done()
	rlog := logger.FromContext(ctx)
	token, err := s.registrar.Register(ctx, principal)
	if err != nil {
		rlog.WithError(err).Errorf("cannot register %s with the backend", principal.Email)
		select {
		case s.errors <- err:
		default:
			rlog.Warnln("registration error channel is full, dropping error")
		}
		return
	}
	s.mutex.Lock()
	// the user might have signed out or switched accounts in the meantime
	if s.principal != nil && s.principal.ID == principal.ID {
		s.token = token
	}
	s.mutex.Unlock()
	rlog.Debugf("registered %s with the backend", principal.Email)
}

// SignOut signs out of the provider. The local principal and token are
// always cleared, even if the provider fails; that failure is only logged.
func (s *Session) SignOut(ctx context.Context) {
	if err := s.provider.SignOut(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Warnln("provider sign-out failed, clearing session anyway")
	}
	s.mutex.Lock()
	wasSignedIn := s.principal != nil
	s.principal = nil
	s.token = ""
	s.mutex.Unlock()
	if wasSignedIn {
		s.changed()
	}
}

// Errors returns the channel on which background registration failures are reported.
// The channel is buffered; errors are dropped when nobody reads it.
func (s *Session) Errors() <-chan error {
	return s.errors
}

// Wait blocks until all background registrations have finished
func (s *Session) Wait() {
	s.background.Wait()
}

func (s *Session) changed() {
	s.notify.Lock()
	defer s.notify.Unlock()
	principal := s.Principal()
	s.mutex.RLock()
	listeners := make([]func(*Principal), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mutex.RUnlock()
	for _, fn := range listeners {
		if principal == nil {
			fn(nil)
			continue
		}
		p := *principal
		fn(&p)
	}
}
