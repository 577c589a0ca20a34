// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/fashionera/core"
)

type entry struct {
	ID    string
	Title string
	Tags  []string
}

func (e entry) Key() string { return e.ID }

type draft struct {
	Title string
}

// fakeRemote records calls and answers with whatever the test configured
type fakeRemote struct {
	mutex   sync.Mutex
	calls   []string
	list    func(ctx context.Context) ([]entry, error)
	create  func(d draft) (entry, error)
	update  func(key string, d draft) (entry, error)
	deleted func(key string) error
}

func (f *fakeRemote) record(call string) {
	f.mutex.Lock()
	f.calls = append(f.calls, call)
	f.mutex.Unlock()
}

func (f *fakeRemote) callCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) List(ctx context.Context) ([]entry, error) {
	f.record("list")
	return f.list(ctx)
}

func (f *fakeRemote) Create(ctx context.Context, d draft) (entry, error) {
	f.record("create")
	return f.create(d)
}

func (f *fakeRemote) Update(ctx context.Context, key string, d draft) (entry, error) {
	f.record("update " + key)
	return f.update(key, d)
}

func (f *fakeRemote) Delete(ctx context.Context, key string) error {
	f.record("delete " + key)
	return f.deleted(key)
}

type notices struct {
	mutex sync.Mutex
	got   []error
}

func (n *notices) Notify(resource string, operation core.Operation, err error) {
	n.mutex.Lock()
	n.got = append(n.got, err)
	n.mutex.Unlock()
}

func serverSet() []entry {
	return []entry{{ID: "1", Title: "Fabric Tips"}, {ID: "2", Title: "Sewing Machines"}}
}

func newStore(remote *fakeRemote, n *notices, placement Placement) *Store[entry, draft] {
	return New(Builder[entry, draft]{
		Resource: "topic",
		Remote:   remote,
		Validate: func(d draft) error {
			return Required(Field{Name: "title", Value: d.Title})
		},
		Placement: placement,
		Notifier:  n,
	})
}

func TestLoadMirrorsServer(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{list: func(ctx context.Context) ([]entry, error) { return serverSet(), nil }}
	s := newStore(remote, &notices{}, Prepend)

	if s.State() != StateUnloaded {
		t.Fatal("new store must be unloaded")
	}
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, StateLoaded, s.State())
	assert.Equal(t, serverSet(), s.Items())

	// loading twice does not duplicate anything
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, serverSet(), s.Items())
}

func TestLoadFailureKeepsLastKnownGood(t *testing.T) {
	ctx := context.Background()
	fail := false
	remote := &fakeRemote{list: func(ctx context.Context) ([]entry, error) {
		if fail {
			return nil, &core.Failure{Kind: core.KindHTTP, Status: 500, Message: "boom"}
		}
		return serverSet(), nil
	}}
	n := &notices{}
	s := newStore(remote, n, Prepend)

	require.NoError(t, s.Load(ctx))
	fail = true
	err := s.Load(ctx)
	assert.True(t, core.IsKind(err, core.KindHTTP))
	assert.Equal(t, StateLoadFailed, s.State())
	assert.Equal(t, serverSet(), s.Items())
	assert.Len(t, n.got, 1)
}

func TestLastCompletionWins(t *testing.T) {
	ctx := context.Background()
	first := make(chan []entry)
	second := make(chan []entry)
	gates := make(chan chan []entry, 2)
	gates <- first
	gates <- second
	remote := &fakeRemote{list: func(ctx context.Context) ([]entry, error) {
		return <-<-gates, nil
	}}
	s := newStore(remote, &notices{}, Prepend)

	done := make(chan error, 2)
	go func() { done <- s.Load(ctx) }()
	go func() { done <- s.Load(ctx) }()

	// the load issued second answers first
	second <- []entry{{ID: "b"}}
	require.NoError(t, <-done)
	first <- []entry{{ID: "a"}}
	require.NoError(t, <-done)

	assert.Equal(t, []entry{{ID: "a"}}, s.Items())
	assert.Equal(t, StateLoaded, s.State())
}

func TestCreateValidatesFirst(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{create: func(d draft) (entry, error) {
		return entry{ID: "3", Title: d.Title}, nil
	}}
	n := &notices{}
	s := newStore(remote, n, Prepend)

	_, err := s.Create(ctx, draft{Title: "   "})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindValidation))
	assert.Contains(t, err.Error(), "title")
	assert.Equal(t, 0, remote.callCount(), "an invalid draft must not reach the server")
	assert.Equal(t, 0, s.Len())
	assert.Len(t, n.got, 1)
}

func TestCreatePlacement(t *testing.T) {
	ctx := context.Background()
	next := 0
	remote := &fakeRemote{
		list: func(ctx context.Context) ([]entry, error) { return serverSet(), nil },
		create: func(d draft) (entry, error) {
			next++
			return entry{ID: "new" + string(rune('0'+next)), Title: d.Title}, nil
		},
	}

	prepending := newStore(remote, &notices{}, Prepend)
	require.NoError(t, prepending.Load(ctx))
	created, err := prepending.Create(ctx, draft{Title: "Trend Report"})
	require.NoError(t, err)
	items := prepending.Items()
	assert.Equal(t, created, items[0])
	assert.Len(t, items, 3)

	appending := newStore(remote, &notices{}, Append)
	require.NoError(t, appending.Load(ctx))
	created, err = appending.Create(ctx, draft{Title: "Nice"})
	require.NoError(t, err)
	items = appending.Items()
	assert.Equal(t, created, items[len(items)-1])
	assert.Equal(t, 0, appending.InFlight())
}

func TestCreateFailureLeavesMirror(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{
		list: func(ctx context.Context) ([]entry, error) { return serverSet(), nil },
		create: func(d draft) (entry, error) {
			return entry{}, &core.Failure{Kind: core.KindHTTP, Status: 400, Message: "duplicate"}
		},
	}
	n := &notices{}
	s := newStore(remote, n, Prepend)
	require.NoError(t, s.Load(ctx))

	_, err := s.Create(ctx, draft{Title: "Fabric Tips"})
	assert.Equal(t, 400, core.StatusOf(err))
	assert.Equal(t, serverSet(), s.Items())
	assert.Len(t, n.got, 1)
}

func TestInFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	entered := make(chan struct{})
	remote := &fakeRemote{create: func(d draft) (entry, error) {
		close(entered)
		<-release
		return entry{ID: "x", Title: d.Title}, nil
	}}
	s := newStore(remote, &notices{}, Prepend)

	done := make(chan error)
	go func() {
		_, err := s.Create(ctx, draft{Title: "slow"})
		done <- err
	}()
	<-entered
	assert.Equal(t, 1, s.InFlight())
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, s.InFlight())
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	failing := map[string]bool{"2": true}
	remote := &fakeRemote{
		list: func(ctx context.Context) ([]entry, error) { return serverSet(), nil },
		deleted: func(key string) error {
			if failing[key] {
				return &core.Failure{Kind: core.KindHTTP, Status: 403, Message: "not yours"}
			}
			return nil
		},
	}
	n := &notices{}
	s := newStore(remote, n, Prepend)
	require.NoError(t, s.Load(ctx))

	require.NoError(t, s.Remove(ctx, "1"))
	_, ok := s.Get("1")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())

	err := s.Remove(ctx, "2")
	assert.Equal(t, 403, core.StatusOf(err))
	_, ok = s.Get("2")
	assert.True(t, ok, "a rejected delete must leave the entity mirrored")
	assert.Len(t, n.got, 1)
}

func TestUpdateMatchesReturnedKey(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{
		list: func(ctx context.Context) ([]entry, error) { return serverSet(), nil },
		update: func(key string, d draft) (entry, error) {
			// addressed by some other name, answered with the canonical entity
			if key != "sewing-machines" {
				return entry{}, &core.Failure{Kind: core.KindHTTP, Status: 404}
			}
			return entry{ID: "2", Title: d.Title}, nil
		},
	}
	s := newStore(remote, &notices{}, Prepend)
	require.NoError(t, s.Load(ctx))

	var published [][]entry
	unsubscribe := s.Subscribe(func(items []entry) { published = append(published, items) })

	_, err := s.Update(ctx, "sewing-machines", draft{Title: "Sewing Machines 2"})
	require.NoError(t, err)
	updated, _ := s.Get("2")
	assert.Equal(t, "Sewing Machines 2", updated.Title)
	assert.Len(t, published, 1)

	unsubscribe()
	_, err = s.Update(ctx, "nope", draft{Title: "x"})
	assert.Equal(t, 404, core.StatusOf(err))
	assert.Len(t, published, 1)
}

func TestChange(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{list: func(ctx context.Context) ([]entry, error) { return serverSet(), nil }}
	s := newStore(remote, &notices{}, Prepend)
	require.NoError(t, s.Load(ctx))

	tag := func(e entry) entry {
		e.Tags = append(append([]string{}, e.Tags...), "hot")
		return e
	}
	require.NoError(t, s.Change(ctx, core.OperationUpdate, "1", func(ctx context.Context) error { return nil }, tag))
	one, _ := s.Get("1")
	two, _ := s.Get("2")
	assert.Equal(t, []string{"hot"}, one.Tags)
	assert.Empty(t, two.Tags)

	err := s.Change(ctx, core.OperationUpdate, "2", func(ctx context.Context) error {
		return errors.New("offline")
	}, tag)
	require.Error(t, err)
	two, _ = s.Get("2")
	assert.Empty(t, two.Tags)
}

func TestCancelledResponseIsDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	remote := &fakeRemote{
		list: func(ctx context.Context) ([]entry, error) {
			cancel()
			return serverSet(), nil
		},
	}
	n := &notices{}
	s := newStore(remote, n, Prepend)

	err := s.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateUnloaded, s.State())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, n.got, "cancellation is not a failure worth a notice")
}
