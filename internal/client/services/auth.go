package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/client/remote"
	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/cryptox"
	"github.com/dmitrijs2005/studiosync/internal/logging"
)

// AuthService signs the user in against the server or, offline, against
// the cached user table.
type AuthService interface {
	Login(ctx context.Context, username, password string) error
	LocalLogin(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context) error
}

type authService struct {
	store   Store
	link    Link
	salt    string
	dataKey []byte
	log     logging.Logger

	loginMu sync.Mutex
	results chan models.Response
	lost    chan remote.State
}

// NewAuthService builds the service. dataKey, when not nil, decrypts user
// documents stored with cryptox.EncryptDocument.
func NewAuthService(store Store, link Link, salt string, dataKey []byte, log logging.Logger) AuthService {
	a := &authService{
		store:   store,
		link:    link,
		salt:    salt,
		dataKey: dataKey,
		log:     log.With("module", "auth"),
		results: make(chan models.Response, 1),
		lost:    make(chan remote.State, 1),
	}
	link.OnResponse(a.onResponse)
	link.OnStateChange(a.onStateChange)
	return a
}

// onResponse picks up login replies, including unparsable bodies sent
// back for a login request.
func (a *authService) onResponse(resp models.Response) {
	if !resp.Answers(common.QueryLogin) {
		return
	}
	select {
	case a.results <- resp:
	default:
	}
}

// onStateChange records that the link dropped out of Online, which
// abandons any login still queued or in flight.
func (a *authService) onStateChange(s remote.State, _ string) {
	if s != remote.Offline && s != remote.Error {
		return
	}
	select {
	case a.lost <- s:
	default:
	}
}

// Login queues a login and waits for its reply. The handshake runs first
// when the link is not online. Losing the connection before the reply
// arrives yields common.ErrUnavailable.
func (a *authService) Login(ctx context.Context, username, password string) error {
	a.loginMu.Lock()
	defer a.loginMu.Unlock()

	select {
	case <-a.results:
	default:
	}
	select {
	case <-a.lost:
	default:
	}

	if err := a.link.WaitOnline(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	a.link.Login(username, password)

	select {
	case resp := <-a.results:
		if !resp.Success {
			a.log.Warn(ctx, "login refused", "user", username, "message", resp.Message)
			return fmt.Errorf("%w: %s", common.ErrInvalidCredentials, resp.Message)
		}
		a.log.Info(ctx, "logged in", "user", username)
		return nil
	case s := <-a.lost:
		a.log.Warn(ctx, "connection lost during login", "user", username, "state", s.String())
		return fmt.Errorf("login: %w", common.ErrUnavailable)
	case <-ctx.Done():
		return fmt.Errorf("login: %w", ctx.Err())
	}
}

type userDocument struct {
	Password string `json:"password"`
}

// LocalLogin checks the password against the cached user document and
// returns the user's uuid.
func (a *authService) LocalLogin(ctx context.Context, username, password string) (string, error) {
	rec, err := a.store.FindUser(ctx, username)
	if errors.Is(err, common.ErrNotFound) {
		return "", common.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("local login: %w", err)
	}

	data := rec.Data
	if a.dataKey != nil {
		if data, err = cryptox.DecryptDocument(rec.Data, a.dataKey); err != nil {
			return "", fmt.Errorf("local login: decrypt user: %w", err)
		}
	}

	var doc userDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return "", fmt.Errorf("local login: decode user: %w", err)
	}

	want := cryptox.HashPassword(password, a.salt)
	if doc.Password == "" || subtle.ConstantTimeCompare([]byte(doc.Password), []byte(want)) == 0 {
		return "", common.ErrInvalidCredentials
	}
	return rec.UUID, nil
}

// Logout tells the server, waits for the request to leave and goes offline.
func (a *authService) Logout(ctx context.Context) error {
	a.link.Post(common.QueryLogout, nil)
	a.link.Flush(ctx)
	a.link.GoOffline("Logged out.")
	return nil
}
