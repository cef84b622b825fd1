package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/server/models"
)

type fakeUsers struct {
	sessions map[string]string // token -> user
	expired  map[string]bool
	password string
	loginErr error
	issued   []string
}

func (f *fakeUsers) IssueToken(userName string) (string, error) {
	f.issued = append(f.issued, userName)
	return "tok-" + userName, nil
}

func (f *fakeUsers) Authenticate(token string) (string, error) {
	if f.expired[token] {
		return "", common.ErrTokenExpired
	}
	if u, ok := f.sessions[token]; ok {
		return u, nil
	}
	return "", common.ErrUnauthorized
}

func (f *fakeUsers) Login(ctx context.Context, userName, passwordHash string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	if passwordHash != f.password {
		return "", common.ErrInvalidCredentials
	}
	return "tok-" + userName, nil
}

type fakeSync struct {
	user string
	got  models.SyncRequest
	out  models.SyncReply
	err  error
}

func (f *fakeSync) Sync(ctx context.Context, userName string, req models.SyncRequest) (models.SyncReply, error) {
	f.user, f.got = userName, req
	return f.out, f.err
}

func newTestRouter() (*gin.Engine, *fakeUsers, *fakeSync) {
	gin.SetMode(gin.TestMode)
	u := &fakeUsers{
		sessions: map[string]string{"tok-ana": "ana"},
		expired:  map[string]bool{"old": true},
		password: "hash",
	}
	s := &fakeSync{}
	return NewRouter(Deps{Users: u, Sync: s, Version: "1.2.3", Log: logging.Discard()}), u, s
}

func postJSON(t *testing.T, r http.Handler, query string, body map[string]any) map[string]any {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/?"+query, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestPing_IssuesAnonymousToken(t *testing.T) {
	r, u, _ := newTestRouter()

	resp := postJSON(t, r, "ping", map[string]any{"version": "0.1.0"})
	assert.Equal(t, "ping", resp["query"])
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "tok-", resp["token"])
	assert.Equal(t, map[string]any{"version": "1.2.3"}, resp["content"])
	assert.Equal(t, []string{""}, u.issued)
}

func TestPing_RenewsSession(t *testing.T) {
	r, _, _ := newTestRouter()

	resp := postJSON(t, r, "ping", map[string]any{"token": "tok-ana"})
	assert.Equal(t, "tok-ana", resp["token"])
}

func TestLogin_Form(t *testing.T) {
	r, _, _ := newTestRouter()

	form := url.Values{"username": {"ana"}, "password": {"hash"}, "version": {"0.1.0"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/?login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "tok-ana", resp.Token)
}

func TestLogin_Refused(t *testing.T) {
	r, _, _ := newTestRouter()

	resp := postJSON(t, r, "login", map[string]any{"username": "ana", "password": "nope"})
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, true, resp["accepted"])
	assert.Equal(t, msgBadCredentials, resp["message"])
}

func TestLogin_InternalError(t *testing.T) {
	r, u, _ := newTestRouter()
	u.loginErr = errors.New("db down")

	resp := postJSON(t, r, "login", map[string]any{"username": "ana", "password": "hash"})
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, msgServerError, resp["message"])
}

func TestSync_Authenticated(t *testing.T) {
	r, _, s := newTestRouter()
	s.out = models.SyncReply{Tables: []models.TableRows{{Name: "shots", ModifiedRows: []models.Row{{UUID: "a", Data: "{}", Modified: "2024-01-01 00:00:00"}}}}}

	resp := postJSON(t, r, "sync", map[string]any{
		"token":            "tok-ana",
		"previousSyncDate": "2023-12-31 00:00:00",
		"tables":           []map[string]any{{"name": "shots", "modifiedRows": []map[string]any{{"uuid": "b", "data": "{}", "modified": "2024-01-01 00:00:00", "removed": true}}}},
	})

	assert.Equal(t, "ana", s.user)
	assert.Equal(t, "2023-12-31 00:00:00", s.got.PreviousSyncDate)
	require.Len(t, s.got.Tables, 1)
	assert.True(t, s.got.Tables[0].ModifiedRows[0].Removed)

	assert.Equal(t, true, resp["success"])
	content := resp["content"].(map[string]any)
	tables := content["tables"].([]any)
	require.Len(t, tables, 1)
	assert.Equal(t, "shots", tables[0].(map[string]any)["name"])
}

func TestSync_NotLoggedIn(t *testing.T) {
	r, _, s := newTestRouter()

	resp := postJSON(t, r, "sync", map[string]any{"token": "tok-"})
	assert.Equal(t, "sync", resp["query"])
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, msgNotLoggedIn, resp["message"])
	assert.Empty(t, s.user)
}

func TestSync_ExpiredSessionLogsOut(t *testing.T) {
	r, _, _ := newTestRouter()

	resp := postJSON(t, r, "sync", map[string]any{"token": "old"})
	assert.Equal(t, common.QueryLoggedOut, resp["query"])
}

func TestSync_ServiceError(t *testing.T) {
	r, _, s := newTestRouter()
	s.err = errors.New("boom")

	resp := postJSON(t, r, "sync", map[string]any{"token": "tok-ana"})
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, msgServerError, resp["message"])
}

func TestLogout(t *testing.T) {
	r, _, _ := newTestRouter()

	resp := postJSON(t, r, "logout", map[string]any{"token": "tok-ana"})
	assert.Equal(t, common.QueryLoggedOut, resp["query"])
	assert.Equal(t, true, resp["success"])
}

func TestUnknownQuery(t *testing.T) {
	r, _, _ := newTestRouter()

	resp := postJSON(t, r, "dance", map[string]any{})
	assert.Equal(t, "dance", resp["query"])
	assert.Equal(t, false, resp["accepted"])
	assert.Equal(t, msgUnknownQuery, resp["message"])
}

func TestMalformedJSON(t *testing.T) {
	r, _, _ := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/?ping", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
