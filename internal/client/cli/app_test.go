package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/client/remote"
	"github.com/dmitrijs2005/studiosync/internal/common"
)

type write struct {
	op, table, uuid, data string
}

type fakeEngine struct {
	state      remote.State
	loginErr   error
	localErr   error
	loggedOut  bool
	writes     []write
	records    map[string]*models.Record
	lists      map[string][]string
	syncs      int
	server     models.ServerConfig
	savedCount int
}

func (f *fakeEngine) Login(ctx context.Context, username, password string) error { return f.loginErr }
func (f *fakeEngine) LocalLogin(ctx context.Context, username, password string) (string, error) {
	return "u-1", f.localErr
}
func (f *fakeEngine) Logout(ctx context.Context) error { f.loggedOut = true; return nil }
func (f *fakeEngine) GoOnline()                        { f.state = remote.Connecting }
func (f *fakeEngine) GoOffline()                       { f.state = remote.Offline }
func (f *fakeEngine) State() remote.State              { return f.state }
func (f *fakeEngine) ServerVersion() string            { return "0.9" }
func (f *fakeEngine) EnqueueWrite(table, uuid, data string) error {
	f.writes = append(f.writes, write{"put", table, uuid, data})
	return nil
}
func (f *fakeEngine) SoftDelete(table, uuid string) error {
	f.writes = append(f.writes, write{op: "delete", table: table, uuid: uuid})
	return nil
}
func (f *fakeEngine) Restore(table, uuid string) error {
	f.writes = append(f.writes, write{op: "restore", table: table, uuid: uuid})
	return nil
}
func (f *fakeEngine) Query(ctx context.Context, table, uuid string) (*models.Record, error) {
	rec, ok := f.records[table+"/"+uuid]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rec, nil
}
func (f *fakeEngine) List(ctx context.Context, table string, includeRemoved bool) ([]string, error) {
	key := table
	if includeRemoved {
		key += "+all"
	}
	return f.lists[key], nil
}
func (f *fakeEngine) Tables() []string                      { return []string{"projects", "shots"} }
func (f *fakeEngine) AwaitQuiescent(ctx context.Context) bool { return true }
func (f *fakeEngine) RunSync(ctx context.Context) error     { f.syncs++; return nil }
func (f *fakeEngine) ServerConfig() models.ServerConfig     { return f.server }
func (f *fakeEngine) SaveServerConfig(cfg models.ServerConfig) error {
	f.server = cfg
	f.savedCount++
	return nil
}
func (f *fakeEngine) OnBatch(fn func(models.Batch))         {}
func (f *fakeEngine) OnStateChange(fn remote.StateListener) {}

func newTestApp(e *fakeEngine, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{engine: e, reader: bufio.NewReader(strings.NewReader(input)), out: &out}, &out
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { readPassword = orig })
}

func TestLogin_Online(t *testing.T) {
	stubPassword(t, "secret")
	e := &fakeEngine{state: remote.Online}
	a, _ := newTestApp(e, "ana\n")

	require.NoError(t, a.Login(context.Background(), nil))
	assert.True(t, a.isLoggedIn())
	assert.False(t, a.offline)
	assert.Equal(t, "(ana online)", a.getStatus())
}

func TestLogin_FallsBackToLocalUsers(t *testing.T) {
	stubPassword(t, "secret")
	e := &fakeEngine{loginErr: common.ErrUnavailable}
	a, _ := newTestApp(e, "ana\n")

	require.NoError(t, a.Login(context.Background(), nil))
	assert.True(t, a.offline)
	assert.Equal(t, "(ana offline, local session)", a.getStatus())

	require.NoError(t, a.Logout(context.Background(), nil))
	assert.False(t, e.loggedOut)
	assert.False(t, a.isLoggedIn())
}

func TestLogin_RefusedDoesNotFallBack(t *testing.T) {
	stubPassword(t, "bad")
	e := &fakeEngine{loginErr: common.ErrInvalidCredentials}
	a, _ := newTestApp(e, "ana\n")

	err := a.Login(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.False(t, a.isLoggedIn())
}

func TestPut_GeneratesUUID(t *testing.T) {
	e := &fakeEngine{}
	a, out := newTestApp(e, "{\"name\":\"sh010\"}\n\n")

	require.NoError(t, a.Put(context.Background(), []string{"shots"}))
	require.Len(t, e.writes, 1)
	assert.Equal(t, "shots", e.writes[0].table)
	assert.Len(t, e.writes[0].uuid, 36)
	assert.Equal(t, `{"name":"sh010"}`, e.writes[0].data)
	assert.Contains(t, out.String(), e.writes[0].uuid)
}

func TestPut_RejectsInvalidDocument(t *testing.T) {
	e := &fakeEngine{}
	a, _ := newTestApp(e, "name: sh010\n\n")

	err := a.Put(context.Background(), []string{"shots"})
	assert.ErrorIs(t, err, errNotJSON)
	assert.Empty(t, e.writes)
}

func TestRecordCommands(t *testing.T) {
	e := &fakeEngine{
		records: map[string]*models.Record{
			"shots/a": {Table: "shots", UUID: "a", Data: "{}", Modified: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Removed: true},
		},
		lists: map[string][]string{"shots": {"b"}, "shots+all": {"a", "b"}},
	}
	a, out := newTestApp(e, "")
	ctx := context.Background()

	require.NoError(t, a.Show(ctx, []string{"shots", "a"}))
	assert.Contains(t, out.String(), "modified: 2024-06-01 00:00:00")
	assert.Contains(t, out.String(), "removed:  yes")

	assert.ErrorIs(t, a.Show(ctx, []string{"shots", "zzz"}), common.ErrNotFound)

	out.Reset()
	require.NoError(t, a.List(ctx, []string{"shots", "all"}))
	assert.Equal(t, "a\nb\n", out.String())

	out.Reset()
	require.NoError(t, a.List(ctx, nil))
	assert.Equal(t, "projects shots\n", out.String())

	require.NoError(t, a.Delete(ctx, []string{"shots", "a"}))
	require.NoError(t, a.Restore(ctx, []string{"shots", "a"}))
	assert.Equal(t, []write{{op: "delete", table: "shots", uuid: "a"}, {op: "restore", table: "shots", uuid: "a"}}, e.writes)

	assert.ErrorIs(t, a.Delete(ctx, []string{"shots"}), errUsage)

	require.NoError(t, a.Sync(ctx, nil))
	assert.Equal(t, 1, e.syncs)
}

func TestServer_ShowAndSet(t *testing.T) {
	e := &fakeEngine{state: remote.Online, server: models.ServerConfig{Address: "old.example/", Timeout: 3000}}
	a, out := newTestApp(e, "new.example/api/\ny\n120\n\n")
	ctx := context.Background()

	require.NoError(t, a.Server(ctx, nil))
	assert.Contains(t, out.String(), "address:      old.example/")
	assert.Contains(t, out.String(), "version:      0.9")

	require.NoError(t, a.Server(ctx, []string{"set"}))
	assert.Equal(t, models.ServerConfig{Address: "new.example/api/", UseSSL: true, UpdateDelay: 120, Timeout: 3000}, e.server)
	assert.Equal(t, 1, e.savedCount)
}

func TestServer_SetRejectsBadNumber(t *testing.T) {
	e := &fakeEngine{server: models.ServerConfig{Address: "old.example/"}}
	a, _ := newTestApp(e, "\n\nsoon\n")

	err := a.Server(context.Background(), []string{"set"})
	assert.ErrorIs(t, err, errUsage)
	assert.Zero(t, e.savedCount)
}
