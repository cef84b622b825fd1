package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/client/remote"
	"github.com/dmitrijs2005/studiosync/internal/client/store"
	"github.com/dmitrijs2005/studiosync/internal/client/writequeue"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/timex"
)

// fakeNotifier records buffered change events.
type fakeNotifier struct {
	mu           sync.Mutex
	inserted     []models.Inserted
	availability []models.AvailabilityChange
	updated      []string
}

func (n *fakeNotifier) Inserted(uuid, table string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inserted = append(n.inserted, models.Inserted{UUID: uuid, Table: table})
}

func (n *fakeNotifier) AvailabilityChanged(uuid string, available bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.availability = append(n.availability, models.AvailabilityChange{UUID: uuid, Available: available})
}

func (n *fakeNotifier) Updated(uuid string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, uuid)
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inserted, n.availability, n.updated = nil, nil, nil
}

// fakeLink records posts and lets tests inject replies.
type fakeLink struct {
	mu        sync.Mutex
	posts     []string
	bodies    []map[string]any
	logins    [][2]string
	listeners []remote.ResponseListener
	stateObs  []remote.StateListener
	waitErr   error
	offline   []string
	loginResp *models.Response
	loginLost bool
}

func (l *fakeLink) Post(query string, body map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.posts = append(l.posts, query)
	l.bodies = append(l.bodies, body)
}

func (l *fakeLink) Login(username, password string) {
	l.mu.Lock()
	l.logins = append(l.logins, [2]string{username, password})
	resp, lost := l.loginResp, l.loginLost
	l.mu.Unlock()
	if lost {
		l.transition(remote.Offline)
	}
	if resp != nil {
		l.reply(*resp)
	}
}

func (l *fakeLink) WaitOnline(ctx context.Context) error { return l.waitErr }

func (l *fakeLink) Flush(ctx context.Context) {}

func (l *fakeLink) GoOffline(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.offline = append(l.offline, reason)
}

func (l *fakeLink) OnResponse(fn remote.ResponseListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *fakeLink) OnStateChange(fn remote.StateListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stateObs = append(l.stateObs, fn)
}

func (l *fakeLink) transition(s remote.State) {
	l.mu.Lock()
	obs := append([]remote.StateListener(nil), l.stateObs...)
	l.mu.Unlock()
	for _, fn := range obs {
		fn(s, "")
	}
}

func (l *fakeLink) reply(resp models.Response) {
	l.mu.Lock()
	ls := append([]remote.ResponseListener(nil), l.listeners...)
	l.mu.Unlock()
	for _, fn := range ls {
		fn(resp)
	}
}

type replica struct {
	store *store.Store
	queue *writequeue.Queue
}

func newReplica(t *testing.T) *replica {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, store.Options{Path: filepath.Join(t.TempDir(), "local.db")}, logging.Discard())
	require.NoError(t, err)

	q := writequeue.New(s.Writer(), logging.Discard())
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = q.Run(runCtx)
		close(done)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = s.Close()
	})
	return &replica{store: s, queue: q}
}

func (r *replica) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.True(t, r.queue.AwaitQuiescent(ctx))
}

func (r *replica) upsert(t *testing.T, table, uuid, data string, at time.Time) {
	t.Helper()
	_, err := r.store.Records(r.store.Writer()).Upsert(context.Background(), table, uuid, data, at)
	require.NoError(t, err)
}

func (r *replica) setRemoved(t *testing.T, table, uuid string, removed bool, at time.Time) {
	t.Helper()
	_, err := r.store.Records(r.store.Writer()).SetRemoved(context.Background(), table, uuid, removed, at)
	require.NoError(t, err)
}

func (r *replica) get(t *testing.T, table, uuid string) *models.Record {
	t.Helper()
	rec, err := r.store.Get(context.Background(), table, uuid)
	require.NoError(t, err)
	return rec
}

// dump returns every row of every table.
func (r *replica) dump(t *testing.T) []models.Record {
	t.Helper()
	var all []models.Record
	for _, table := range r.store.Tables() {
		recs, err := r.store.ListModifiedSince(context.Background(), table, timex.Epoch)
		require.NoError(t, err)
		all = append(all, recs...)
	}
	return all
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}
