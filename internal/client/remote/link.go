// Package remote implements the link to the sync server: the connection
// state machine, the paced single-flight request pipeline and the
// classification of transport faults.
//
// A Link starts Offline. GoOnline, WaitOnline or any queued request starts
// the handshake: the state moves to Connecting and a ping is sent. A
// successful ping moves it to Online and caches the session token and the
// server version; a ping answered with success=false moves it to Error. A
// handshake that does not finish within PingTimeout, any transport fault and
// any reply whose query is "loggedout" force Offline, which clears the token
// and abandons queued requests.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/cryptox"
	"github.com/dmitrijs2005/studiosync/internal/logging"
)

const maxResponseSize = 64 << 20

type StateListener func(s State, reason string)

type ResponseListener func(resp models.Response)

type Link struct {
	opts   Options
	client *http.Client
	log    logging.Logger

	life   context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	token         string
	serverVersion string
	attempt       uint64
	changed       chan struct{}
	queue         []outbound
	stateObs      []StateListener
	respObs       []ResponseListener

	// sendMu keeps at most one request in transit; dispatchMu keeps queued
	// requests in order when the dispatcher and Flush overlap.
	sendMu     sync.Mutex
	dispatchMu sync.Mutex
	kick       chan struct{}
}

func New(opts Options, log logging.Logger) *Link {
	opts.setDefaults()
	life, cancel := context.WithCancel(context.Background())

	return &Link{
		opts:    opts,
		client:  &http.Client{Timeout: opts.HTTPTimeout},
		log:     log.With("module", "remote"),
		life:    life,
		cancel:  cancel,
		changed: make(chan struct{}),
		kick:    make(chan struct{}, 1),
	}
}

func (l *Link) OnStateChange(fn StateListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stateObs = append(l.stateObs, fn)
}

func (l *Link) OnResponse(fn ResponseListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.respObs = append(l.respObs, fn)
}

func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Link) Token() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token
}

func (l *Link) ServerVersion() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.serverVersion
}

// Pending returns the number of queued requests.
func (l *Link) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// SetServer changes the target. The link goes Offline so that the next
// request handshakes with the new server.
func (l *Link) SetServer(address string, useSSL bool) {
	l.mu.Lock()
	same := l.opts.Address == address && l.opts.UseSSL == useSSL
	l.opts.Address, l.opts.UseSSL = address, useSSL
	l.mu.Unlock()

	if !same {
		l.GoOffline("Server settings changed.")
	}
}

// SetPingTimeout changes the handshake bound for the next connection
// attempt. Non-positive values are ignored.
func (l *Link) SetPingTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts.PingTimeout = d
}

// setState must be called with l.mu held. It returns the listeners to
// notify once the lock is released.
func (l *Link) setState(s State, reason string) []StateListener {
	prev := l.state
	if s == Online && prev != Online && !l.opts.UseSSL {
		l.log.Warn(l.life, "Connection is not secured!")
	}

	if s == Offline {
		l.token = ""
		if n := len(l.queue); n > 0 {
			l.log.Warn(l.life, "abandoning queued requests", "count", n)
		}
		l.queue = nil
	}
	if s == prev {
		return nil
	}

	l.state = s
	close(l.changed)
	l.changed = make(chan struct{})

	switch s {
	case Offline:
		l.log.Info(l.life, "Disconnected: "+reason)
	case Connecting:
		l.log.Info(l.life, "Connecting: "+reason)
	case Online:
		l.log.Info(l.life, "Connected: "+reason)
	case Error:
		l.log.Error(l.life, "Connection error: "+reason)
	}
	return append([]StateListener(nil), l.stateObs...)
}

func notifyState(obs []StateListener, s State, reason string) {
	for _, fn := range obs {
		fn(s, reason)
	}
}

func (l *Link) transition(s State, reason string) {
	l.mu.Lock()
	obs := l.setState(s, reason)
	l.mu.Unlock()
	notifyState(obs, s, reason)
}

// GoOffline switches to offline mode explicitly.
func (l *Link) GoOffline(reason string) {
	if reason == "" {
		reason = "Switched to offline mode."
	}
	l.transition(Offline, reason)
}

// GoOnline starts a handshake unless one is running or the link is
// already Online. It does not wait for the outcome.
func (l *Link) GoOnline() {
	l.mu.Lock()
	if l.state == Online || l.state == Connecting {
		l.mu.Unlock()
		return
	}
	obs := l.connectLocked()
	l.mu.Unlock()
	notifyState(obs, Connecting, "Server ping")
}

// connectLocked moves to Connecting, sends the ping in the background and
// arms the handshake watchdog.
func (l *Link) connectLocked() []StateListener {
	obs := l.setState(Connecting, "Server ping")
	l.attempt++
	attempt := l.attempt

	time.AfterFunc(l.opts.PingTimeout, func() {
		l.mu.Lock()
		if l.state != Connecting || l.attempt != attempt {
			l.mu.Unlock()
			return
		}
		obs := l.setState(Offline, "Cannot process request, server unavailable.")
		l.mu.Unlock()
		notifyState(obs, Offline, "Cannot process request, server unavailable.")
	})

	go func() {
		_, _ = l.send(l.life, outbound{query: common.QueryPing, json: map[string]any{}, attempt: attempt})
	}()
	return obs
}

// WaitOnline starts the handshake when Offline and waits for its outcome.
// It returns nil once Online, common.ErrProtocol in the Error state and
// common.ErrUnavailable when the link ended up Offline.
func (l *Link) WaitOnline(ctx context.Context) error {
	l.mu.Lock()
	var obs []StateListener
	if l.state == Offline {
		obs = l.connectLocked()
	}
	l.mu.Unlock()
	notifyState(obs, Connecting, "Server ping")

	for {
		l.mu.Lock()
		state, changed := l.state, l.changed
		l.mu.Unlock()

		switch state {
		case Online:
			return nil
		case Error:
			return common.ErrProtocol
		case Offline:
			return common.ErrUnavailable
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Post queues a JSON request. The version and the current token are added
// when it is dispatched.
func (l *Link) Post(query string, body map[string]any) {
	l.enqueue(outbound{query: query, json: body})
}

// PostForm queues a form-encoded request.
func (l *Link) PostForm(query string, form url.Values) {
	l.enqueue(outbound{query: query, form: form})
}

// Login queues a login request. The password is hashed with the configured
// salt before it leaves the process.
func (l *Link) Login(username, password string) {
	l.PostForm(common.QueryLogin, url.Values{
		"username": {username},
		"password": {cryptox.HashPassword(password, l.opts.PasswordSalt)},
	})
}

func (l *Link) enqueue(o outbound) {
	l.mu.Lock()
	l.queue = append(l.queue, o)
	l.mu.Unlock()

	select {
	case l.kick <- struct{}{}:
	default:
	}
}

func (l *Link) pop() (outbound, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return outbound{}, false
	}
	o := l.queue[0]
	l.queue[0] = outbound{}
	l.queue = l.queue[1:]
	return o, true
}

// sendNext dispatches the head of the queue. It reports false when the
// queue is empty.
func (l *Link) sendNext(ctx context.Context) bool {
	l.dispatchMu.Lock()
	defer l.dispatchMu.Unlock()

	o, ok := l.pop()
	if !ok {
		return false
	}
	_, _ = l.send(ctx, o)
	return true
}

// Run drives the paced dispatcher and the heartbeat until ctx is done.
func (l *Link) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.dispatch(ctx) })
	g.Go(func() error { return l.heartbeat(ctx) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (l *Link) dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.kick:
		}
		if err := l.drain(ctx); err != nil {
			return err
		}
	}
}

// drain sends queued requests, one per RequestDelay tick, until the queue
// is empty or the link cannot get Online.
func (l *Link) drain(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.RequestDelay)
	defer ticker.Stop()

	for l.Pending() > 0 {
		if err := l.WaitOnline(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Error(ctx, "Cannot process request, server unavailable.", "error", err)
			l.mu.Lock()
			l.queue = nil
			l.mu.Unlock()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		l.sendNext(ctx)
	}
	return nil
}

func (l *Link) heartbeat(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		l.mu.Lock()
		online, attempt := l.state == Online, l.attempt
		l.mu.Unlock()
		if online {
			_, _ = l.send(ctx, outbound{query: common.QueryPing, json: map[string]any{}, attempt: attempt})
		}
	}
}

// Flush sends everything still queued without the pacing ticker, pausing
// RequestDelay/4 between sends, then waits RequestDelay once more.
func (l *Link) Flush(ctx context.Context) {
	if l.Pending() == 0 {
		return
	}
	l.log.Info(ctx, "Flushing remaining requests.")

	for l.Pending() > 0 {
		if err := l.WaitOnline(ctx); err != nil {
			l.log.Warn(ctx, "flush aborted", "error", err)
			return
		}
		l.sendNext(ctx)
		if !sleep(ctx, l.opts.RequestDelay/4) {
			return
		}
	}
	sleep(ctx, l.opts.RequestDelay)
	l.log.Info(ctx, "All requests sent.")
}

// Close stops background pings started by the handshake.
func (l *Link) Close() {
	l.cancel()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// send performs one HTTP round trip and handles the reply.
func (l *Link) send(ctx context.Context, o outbound) (models.Response, error) {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	l.mu.Lock()
	opts, token := l.opts, l.token
	l.mu.Unlock()

	req, err := build(opts, o, token)
	if err != nil {
		l.log.Error(ctx, "cannot encode request", "query", o.query, "error", err)
		return models.Response{}, err
	}

	l.log.Debug(ctx, "New request: "+redactURL(req.URL))
	if req.Query == common.QueryLogin && !l.opts.Debug {
		l.log.Debug(ctx, "Request data: [Hidden login info]")
	} else {
		l.log.Debug(ctx, "Request data: "+string(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		f := &Fault{Kind: FaultNetwork, Reason: "Invalid server, check the network settings.", Err: err}
		l.fail(ctx, o, f)
		return models.Response{}, f
	}
	httpReq.Header.Set("Content-Type", req.ContentType)
	httpReq.Header.Set("User-Agent", l.opts.UserAgent)

	httpResp, err := l.client.Do(httpReq)
	if err != nil {
		f := classifyError(err)
		l.fail(ctx, o, f)
		return models.Response{}, f
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= http.StatusBadRequest {
		f := classifyStatus(httpResp.StatusCode)
		l.fail(ctx, o, f)
		return models.Response{}, f
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		f := classifyError(err)
		l.fail(ctx, o, f)
		return models.Response{}, f
	}

	resp := models.DecodeResponse(req.Query, raw)
	l.handle(ctx, o, resp, raw)
	return resp, nil
}

// staleLocked reports whether o is a ping from a handshake or an online
// session that has since ended: the link went Offline, failed, or started
// another attempt. Must be called with l.mu held.
func (l *Link) staleLocked(o outbound) bool {
	if o.query != common.QueryPing {
		return false
	}
	return o.attempt != l.attempt || (l.state != Connecting && l.state != Online)
}

func (l *Link) fail(ctx context.Context, o outbound, f *Fault) {
	l.log.Error(ctx, "Network error: "+f.Reason, "kind", string(f.Kind), "status", f.Status, "error", f.Err)

	l.mu.Lock()
	stale := l.staleLocked(o)
	l.mu.Unlock()
	if stale {
		return
	}
	l.transition(Offline, "Network error: "+f.Reason)
}

func (l *Link) handle(ctx context.Context, o outbound, resp models.Response, raw []byte) {
	l.log.Debug(ctx, "response", "query", resp.Query, "message", resp.Message, "content", string(raw))
	if resp.Message != "" {
		if !resp.Success || strings.HasPrefix(strings.ToLower(resp.Message), "warning") {
			l.log.Warn(ctx, resp.Message, "query", resp.Query)
		} else {
			l.log.Info(ctx, resp.Message, "query", resp.Query)
		}
	}

	var (
		obs    []StateListener
		state  State
		reason string
		online bool
	)

	l.mu.Lock()
	switch resp.Query {
	case common.QueryPing:
		if l.staleLocked(o) {
			l.log.Debug(ctx, "ignoring ping reply of an abandoned handshake", "attempt", o.attempt, "state", l.state.String())
			break
		}
		if resp.Success {
			state, reason = Online, "Server ready"
			online = true
		} else {
			state, reason = Error, "The server request was not successful. This is probably a bug or a configuration error."
		}
		obs = l.setState(state, reason)
		l.token = resp.Token
		var pc models.PingContent
		if len(resp.Content) > 0 && json.Unmarshal(resp.Content, &pc) == nil {
			l.serverVersion = pc.Version
		}
	case common.QueryLogin:
		if resp.Token != "" {
			l.token = resp.Token
		}
	case common.QueryLoggedOut:
		state, reason = Offline, "The server ended your session."
		obs = l.setState(state, reason)
	}
	respObs := append([]ResponseListener(nil), l.respObs...)
	l.mu.Unlock()

	notifyState(obs, state, reason)
	if online {
		select {
		case l.kick <- struct{}{}:
		default:
		}
	}
	for _, fn := range respObs {
		fn(resp)
	}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}

// String is used in logs.
func (l *Link) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("%s%s (%s)", l.opts.scheme(), l.opts.Address, l.state)
}
