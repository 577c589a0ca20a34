// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package store provides in-memory mirrors of remote collections

A Store holds the client side copy of a server side collection (posts, comments,
topics, users). The mirror changes in exactly three situations:

  - Load succeeded: the mirror is replaced wholesale by what the server returned
  - Create, Update or Remove was confirmed by the server: the change is applied
  - Change was confirmed by the server: the caller's modification is applied

Nothing is applied optimistically. When a call fails the mirror keeps its last
known good content and a notice is sent to the configured core.Notifier.

Concurrent loads are not sequenced: whichever response completes last determines
the mirror. Every operation takes a context; if the context is done before the
response is applied, the response is discarded and the mirror is not touched.
*/
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/logger"
)

// Entity is anything with a stable key
type Entity interface {
	Key() string
}

// Remote is the server side of a mirrored collection. D is the draft type used
// for create and update.
type Remote[T Entity, D any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, draft D) (T, error)
	Update(ctx context.Context, key string, patch D) (T, error)
	Delete(ctx context.Context, key string) error
}

// Placement decides where created entities enter the mirror
type Placement int

const (
	// Prepend puts new entities first (posts, topics)
	Prepend Placement = iota
	// Append puts new entities last (comments)
	Append
)

// State is the load state of a mirror
type State string

// all mirror states
const (
	StateUnloaded   State = "unloaded"
	StateLoading    State = "loading"
	StateLoaded     State = "loaded"
	StateLoadFailed State = "load_failed"
)

// Builder is a builder helper for the Store
type Builder[T Entity, D any] struct {
	// Resource names the collection in notices and logs, e.g. "post". This is mandatory.
	Resource string
	// Remote is the server side of the collection. This is mandatory.
	Remote Remote[T, D]
	// Validate checks drafts before anything is sent. Return a validation failure,
	// see Required(). This is optional.
	Validate func(D) error
	// Placement of created entities, default is Prepend
	Placement Placement
	// Notifier receives a notice for every failed operation. This is optional.
	Notifier core.Notifier
}

// Store is the mirror of one remote collection
type Store[T Entity, D any] struct {
	resource  string
	remote    Remote[T, D]
	validate  func(D) error
	placement Placement
	notifier  core.Notifier

	mutex       sync.RWMutex
	items       []T
	state       State
	creating    int
	subscribers map[int]func([]T)
	nextID      int
}

// ErrNotSupported is returned for operations the remote does not offer
var ErrNotSupported = errors.New("operation not supported")

// New creates a new, unloaded store
func New[T Entity, D any](b Builder[T, D]) *Store[T, D] {
	if b.Resource == "" {
		panic("Resource is missing")
	}
	if b.Remote == nil {
		panic("Remote is missing")
	}
	return &Store[T, D]{
		resource:    b.Resource,
		remote:      b.Remote,
		validate:    b.Validate,
		placement:   b.Placement,
		notifier:    b.Notifier,
		state:       StateUnloaded,
		subscribers: make(map[int]func([]T)),
	}
}

// Resource returns the resource name of this store
func (s *Store[T, D]) Resource() string {
	return s.resource
}

// State returns the current load state
func (s *Store[T, D]) State() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// Items returns a copy of the mirror
func (s *Store[T, D]) Items() []T {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]T{}, s.items...)
}

// Len returns the number of mirrored entities
func (s *Store[T, D]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.items)
}

// Get returns the mirrored entity with the given key
func (s *Store[T, D]) Get(key string) (T, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if i := s.indexOf(key); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// InFlight returns the number of creates waiting for the server. A UI
// should disable its submit control while this is non-zero: there is no
// idempotency key, a second submit creates a second entity.
func (s *Store[T, D]) InFlight() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.creating
}

// Subscribe registers fn to be called with a copy of the mirror after every
// change. The returned function unregisters fn.
func (s *Store[T, D]) Subscribe(fn func([]T)) (unsubscribe func()) {
	s.mutex.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mutex.Unlock()
	return func() {
		s.mutex.Lock()
		delete(s.subscribers, id)
		s.mutex.Unlock()
	}
}

// Load fetches the full collection and replaces the mirror with it.
func (s *Store[T, D]) Load(ctx context.Context) error {
	s.mutex.Lock()
	previous := s.state
	s.state = StateLoading
	s.mutex.Unlock()

	items, err := s.remote.List(ctx)

	if ctxErr := ctx.Err(); ctxErr != nil {
		s.mutex.Lock()
		if s.state == StateLoading {
			s.state = previous
		}
		s.mutex.Unlock()
		logger.FromContext(ctx).Debugf("%s: discarding load, %v", s.resource, ctxErr)
		return core.WrapFailure(core.KindTransport, ctxErr)
	}

	if err != nil {
		s.mutex.Lock()
		s.state = StateLoadFailed
		s.mutex.Unlock()
		return s.fail(ctx, core.OperationList, err)
	}

	s.mutex.Lock()
	s.items = append([]T{}, items...)
	s.state = StateLoaded
	s.mutex.Unlock()
	logger.FromContext(ctx).Debugf("%s: loaded %d", s.resource, len(items))
	s.publish()
	return nil
}

// Create validates the draft, creates it on the server and inserts the entity the
// server returned into the mirror. An invalid draft is rejected with a
// ValidationError and no request is made.
func (s *Store[T, D]) Create(ctx context.Context, draft D) (T, error) {
	var zero T
	if err := s.check(draft); err != nil {
		return zero, s.fail(ctx, core.OperationCreate, err)
	}

	s.mutex.Lock()
	s.creating++
	s.mutex.Unlock()
	defer func() {
		s.mutex.Lock()
		s.creating--
		s.mutex.Unlock()
	}()

	created, err := s.remote.Create(ctx, draft)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, core.WrapFailure(core.KindTransport, ctxErr)
	}
	if err != nil {
		return zero, s.fail(ctx, core.OperationCreate, err)
	}

	s.mutex.Lock()
	if s.placement == Append {
		s.items = append(append([]T{}, s.items...), created)
	} else {
		s.items = append([]T{created}, s.items...)
	}
	s.mutex.Unlock()
	s.publish()
	return created, nil
}

// Update sends patch for the entity addressed by key and, once the server
// confirmed, replaces the mirrored entity with the one the server returned. The
// mirrored entity is matched by the returned entity's Key(), so key may be any
// server side address of it (a post's slug, for example).
func (s *Store[T, D]) Update(ctx context.Context, key string, patch D) (T, error) {
	var zero T
	if err := s.check(patch); err != nil {
		return zero, s.fail(ctx, core.OperationUpdate, err)
	}

	updated, err := s.remote.Update(ctx, key, patch)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, core.WrapFailure(core.KindTransport, ctxErr)
	}
	if err != nil {
		return zero, s.fail(ctx, core.OperationUpdate, err)
	}

	match := updated.Key()
	if match == "" {
		match = key
	}
	s.mutex.Lock()
	i := s.indexOf(match)
	if i >= 0 {
		s.items = append([]T{}, s.items...)
		s.items[i] = updated
	}
	s.mutex.Unlock()
	if i >= 0 {
		s.publish()
	}
	return updated, nil
}

// Remove deletes the entity on the server and, once the server confirmed,
// removes it from the mirror.
func (s *Store[T, D]) Remove(ctx context.Context, key string) error {
	err := s.remote.Delete(ctx, key)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return core.WrapFailure(core.KindTransport, ctxErr)
	}
	if err != nil {
		return s.fail(ctx, core.OperationDelete, err)
	}

	s.mutex.Lock()
	i := s.indexOf(key)
	if i >= 0 {
		items := make([]T, 0, len(s.items)-1)
		items = append(items, s.items[:i]...)
		s.items = append(items, s.items[i+1:]...)
	}
	s.mutex.Unlock()
	if i >= 0 {
		s.publish()
	}
	return nil
}

// Change runs call against the server and, once it succeeded, replaces the
// mirrored entity with key by apply(entity). This serves modifications which
// are not a plain update, for example adding a comment to a topic. apply must
// not modify its argument in place; it is not called if key is not mirrored.
func (s *Store[T, D]) Change(ctx context.Context, operation core.Operation, key string,
	call func(ctx context.Context) error, apply func(T) T) error {

	err := call(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return core.WrapFailure(core.KindTransport, ctxErr)
	}
	if err != nil {
		return s.fail(ctx, operation, err)
	}

	s.mutex.Lock()
	i := s.indexOf(key)
	if i >= 0 {
		s.items = append([]T{}, s.items...)
		s.items[i] = apply(s.items[i])
	}
	s.mutex.Unlock()
	if i >= 0 {
		s.publish()
	}
	return nil
}

func (s *Store[T, D]) check(draft D) error {
	if s.validate == nil {
		return nil
	}
	err := s.validate(draft)
	if err == nil {
		return nil
	}
	if core.KindOf(err) == "" {
		err = &core.Failure{Kind: core.KindValidation, Err: err}
	}
	return err
}

// fail raises a notice and passes err through
func (s *Store[T, D]) fail(ctx context.Context, operation core.Operation, err error) error {
	logger.FromContext(ctx).WithError(err).Warnf("%s: %s failed", s.resource, operation)
	if s.notifier != nil {
		s.notifier.Notify(s.resource, operation, err)
	}
	return err
}

// indexOf must be called with the mutex held
func (s *Store[T, D]) indexOf(key string) int {
	for i := range s.items {
		if s.items[i].Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store[T, D]) publish() {
	s.mutex.RLock()
	items := append([]T{}, s.items...)
	subscribers := make([]func([]T), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mutex.RUnlock()
	for _, fn := range subscribers {
		fn(items)
	}
}
