package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/studiosync/internal/buildinfo"
	"github.com/dmitrijs2005/studiosync/internal/client/config"
	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/client/notify"
	"github.com/dmitrijs2005/studiosync/internal/client/remote"
	"github.com/dmitrijs2005/studiosync/internal/client/services"
	"github.com/dmitrijs2005/studiosync/internal/client/store"
	"github.com/dmitrijs2005/studiosync/internal/client/writequeue"
	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/cryptox"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/timex"
)

var now = timex.Now

// ErrorHandler receives failed write operations.
type ErrorHandler func(op string, err error)

type Engine struct {
	cfg config.Config
	log logging.Logger

	store    *store.Store
	queue    *writequeue.Queue
	notifier *notify.Aggregator
	link     *remote.Link
	sync     services.SyncService
	auth     services.AuthService
	dataKey  []byte

	group  *errgroup.Group
	cancel context.CancelFunc

	mu           sync.Mutex
	server       models.ServerConfig
	onError      []ErrorHandler
	reconfigured chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// New opens the local store and starts the background workers. Connection
// settings saved in the store take precedence over cfg.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*Engine, error) {
	policy, err := services.ParseMergePolicy(cfg.MergePolicy)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{Path: cfg.DataFile}, log)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:          *cfg,
		log:          log.With("module", "engine"),
		store:        st,
		reconfigured: make(chan struct{}, 1),
	}

	e.server = models.ServerConfig{
		Address: cfg.ServerAddress,
		UseSSL:  cfg.UseSSL,
		Timeout: int(cfg.PingTimeout / time.Millisecond),
	}
	if saved, err := st.ServerConfig(ctx); err == nil {
		e.server = *saved
	} else if !errors.Is(err, common.ErrNotFound) {
		e.log.Warn(ctx, "ignoring saved server settings", "error", err)
	}

	if cfg.DataKey != "" {
		e.dataKey = cryptox.DeriveMasterKey([]byte(cfg.DataKey), []byte(cfg.PasswordSalt))
	}

	e.notifier = notify.New(cfg.Debounce, log)
	e.queue = writequeue.New(st.Writer(), log)
	e.queue.AddListener(e.notifier)
	e.queue.OnError(e.reportError)

	pingTimeout := cfg.PingTimeout
	if d := e.server.TimeoutDuration(); d > 0 {
		pingTimeout = d
	}
	e.link = remote.New(remote.Options{
		Address:      e.server.Address,
		UseSSL:       e.server.UseSSL,
		RequestDelay: cfg.RequestDelay,
		PingInterval: cfg.PingInterval,
		PingTimeout:  pingTimeout,
		HTTPTimeout:  cfg.HTTPTimeout,
		Debug:        buildinfo.Debug(),
		PasswordSalt: cfg.PasswordSalt,
	}, log)

	e.sync = services.NewSyncService(st, e.queue, e.notifier, e.link, policy, log)
	e.auth = services.NewAuthService(st, e.link, cfg.PasswordSalt, e.dataKey, log)

	runCtx, cancel := context.WithCancel(context.Background())
	g, runCtx := errgroup.WithContext(runCtx)
	g.Go(func() error { return e.queue.Run(runCtx) })
	g.Go(func() error { return e.link.Run(runCtx) })
	g.Go(func() error { return e.autoSync(runCtx) })
	e.group, e.cancel = g, cancel

	e.log.Info(ctx, "engine started", "data_file", cfg.DataFile, "tables", len(st.Tables()), "server", e.server.Address)
	return e, nil
}

// Close flushes queued requests, closes the write queue (running the final
// VACUUM), stops the aggregator and closes the store. The whole sequence
// is bounded by the configured shutdown timeout.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		if e.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
			defer cancel()
		}

		var errs []error

		e.link.Flush(ctx)
		if err := e.queue.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		e.notifier.Stop()

		e.cancel()
		e.link.Close()
		if err := e.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}

		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
		e.closeErr = errors.Join(errs...)
		e.log.Info(ctx, "engine stopped")
	})
	return e.closeErr
}

func (e *Engine) reportError(op string, err error) {
	e.mu.Lock()
	handlers := append([]ErrorHandler(nil), e.onError...)
	e.mu.Unlock()

	for _, h := range handlers {
		h(op, err)
	}
}

// autoSync starts a sync round every ServerConfig.UpdateDelay seconds
// while the link is online.
func (e *Engine) autoSync(ctx context.Context) error {
	for {
		var tick <-chan time.Time
		var timer *time.Timer
		if d := e.ServerConfig().Delay(); d > 0 {
			timer = time.NewTimer(d)
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return ctx.Err()
		case <-e.reconfigured:
			stopTimer(timer)
			continue
		case <-tick:
		}

		if e.link.State() != remote.Online {
			continue
		}
		if err := e.sync.Run(ctx); err != nil {
			e.log.Warn(ctx, "automatic sync skipped", "error", err)
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (e *Engine) checkTable(table string) error {
	if !e.store.HasTable(table) {
		return fmt.Errorf("%w: %q", common.ErrUnknownTable, table)
	}
	return nil
}

// EnqueueWrite creates the record or replaces its document. Subscribers
// get an inserted event for a new record and an updated event otherwise.
func (e *Engine) EnqueueWrite(table, uuid, data string) error {
	common.MustIdentify(table, uuid)
	if err := e.checkTable(table); err != nil {
		return err
	}

	return e.queue.Enqueue("set_data", func(ctx context.Context, db *sql.DB) error {
		inserted, err := e.store.Records(db).Upsert(ctx, table, uuid, data, now())
		if err != nil {
			return err
		}
		if inserted {
			e.notifier.Inserted(uuid, table)
		} else {
			e.notifier.Updated(uuid)
		}
		return nil
	})
}

// SetUser writes a user document together with its lookup name. The
// document is encrypted when a data key is configured.
func (e *Engine) SetUser(uuid, userName, data string) error {
	common.MustIdentify(common.UserTable, uuid)

	if e.dataKey != nil {
		sealed, err := cryptox.EncryptDocument(data, e.dataKey)
		if err != nil {
			return fmt.Errorf("encrypt user: %w", err)
		}
		data = sealed
	}

	return e.queue.Enqueue("set_user", func(ctx context.Context, db *sql.DB) error {
		inserted, err := e.store.Records(db).SetUser(ctx, uuid, userName, data, now())
		if err != nil {
			return err
		}
		if inserted {
			e.notifier.Inserted(uuid, common.UserTable)
		} else {
			e.notifier.Updated(uuid)
		}
		return nil
	})
}

// SoftDelete sets the tombstone of the record.
func (e *Engine) SoftDelete(table, uuid string) error {
	return e.setRemoved("remove", table, uuid, true)
}

// Restore clears the tombstone of the record.
func (e *Engine) Restore(table, uuid string) error {
	return e.setRemoved("restore", table, uuid, false)
}

func (e *Engine) setRemoved(name, table, uuid string, removed bool) error {
	common.MustIdentify(table, uuid)
	if err := e.checkTable(table); err != nil {
		return err
	}

	return e.queue.Enqueue(name, func(ctx context.Context, db *sql.DB) error {
		flipped, err := e.store.Records(db).SetRemoved(ctx, table, uuid, removed, now())
		if err != nil {
			return err
		}
		if flipped {
			e.notifier.AvailabilityChanged(uuid, !removed)
		}
		return nil
	})
}

// Query reads one record. User documents are decrypted when a data key is
// configured.
func (e *Engine) Query(ctx context.Context, table, uuid string) (*models.Record, error) {
	rec, err := e.store.Get(ctx, table, uuid)
	if err != nil {
		return nil, err
	}
	if table == common.UserTable && e.dataKey != nil {
		plain, err := cryptox.DecryptDocument(rec.Data, e.dataKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt user: %w", err)
		}
		rec.Data = plain
	}
	return rec, nil
}

// List returns the uuids of table in insertion order.
func (e *Engine) List(ctx context.Context, table string, includeRemoved bool) ([]string, error) {
	return e.store.ListUUIDs(ctx, table, includeRemoved)
}

func (e *Engine) Tables() []string {
	return e.store.Tables()
}

// AwaitQuiescent waits until every enqueued write has been applied.
func (e *Engine) AwaitQuiescent(ctx context.Context) bool {
	return e.queue.AwaitQuiescent(ctx)
}

// RunSync starts a sync round. Its result is applied asynchronously and
// announced through the change subscribers.
func (e *Engine) RunSync(ctx context.Context) error {
	return e.sync.Run(ctx)
}

func (e *Engine) Login(ctx context.Context, username, password string) error {
	return e.auth.Login(ctx, username, password)
}

func (e *Engine) LocalLogin(ctx context.Context, username, password string) (string, error) {
	return e.auth.LocalLogin(ctx, username, password)
}

func (e *Engine) Logout(ctx context.Context) error {
	return e.auth.Logout(ctx)
}

func (e *Engine) GoOnline() {
	e.link.GoOnline()
}

func (e *Engine) GoOffline() {
	e.link.GoOffline("")
}

func (e *Engine) State() remote.State {
	return e.link.State()
}

func (e *Engine) ServerVersion() string {
	return e.link.ServerVersion()
}

// ServerConfig returns the connection settings in use.
func (e *Engine) ServerConfig() models.ServerConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.server
}

// SaveServerConfig persists cfg through the write queue and applies it to
// the link. Changing the address or SSL drops the current session.
func (e *Engine) SaveServerConfig(cfg models.ServerConfig) error {
	if cfg.Address == "" {
		return fmt.Errorf("%w: empty server address", common.ErrValidation)
	}

	err := e.queue.Enqueue("server_config", func(ctx context.Context, db *sql.DB) error {
		return e.store.SaveServerConfig(ctx, db, cfg)
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.server = cfg
	e.mu.Unlock()

	e.link.SetPingTimeout(cfg.TimeoutDuration())
	e.link.SetServer(cfg.Address, cfg.UseSSL)

	select {
	case e.reconfigured <- struct{}{}:
	default:
	}
	return nil
}

func (e *Engine) OnInserted(fn func([]models.Inserted)) {
	e.notifier.OnInserted(fn)
}

func (e *Engine) OnAvailabilityChanged(fn func([]models.AvailabilityChange)) {
	e.notifier.OnAvailabilityChanged(fn)
}

func (e *Engine) OnUpdated(fn func([]string)) {
	e.notifier.OnUpdated(fn)
}

func (e *Engine) OnReady(fn func()) {
	e.notifier.OnReady(fn)
}

// OnBatch delivers each coalesced batch as a whole.
func (e *Engine) OnBatch(fn func(models.Batch)) {
	e.notifier.Subscribe(fn)
}

func (e *Engine) OnError(fn ErrorHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = append(e.onError, fn)
}

func (e *Engine) OnStateChange(fn remote.StateListener) {
	e.link.OnStateChange(fn)
}
