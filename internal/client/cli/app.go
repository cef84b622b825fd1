package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/client/remote"
)

// Engine is the part of *engine.Engine the CLI uses.
type Engine interface {
	Login(ctx context.Context, username, password string) error
	LocalLogin(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context) error

	GoOnline()
	GoOffline()
	State() remote.State
	ServerVersion() string

	EnqueueWrite(table, uuid, data string) error
	SoftDelete(table, uuid string) error
	Restore(table, uuid string) error
	Query(ctx context.Context, table, uuid string) (*models.Record, error)
	List(ctx context.Context, table string, includeRemoved bool) ([]string, error)
	Tables() []string
	AwaitQuiescent(ctx context.Context) bool
	RunSync(ctx context.Context) error

	ServerConfig() models.ServerConfig
	SaveServerConfig(cfg models.ServerConfig) error

	OnBatch(fn func(models.Batch))
	OnStateChange(fn remote.StateListener)
}

type App struct {
	engine   Engine
	reader   *bufio.Reader
	out      io.Writer
	userName string
	offline  bool
}

func NewApp(e Engine) *App {
	return &App{engine: e, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// Run prints change notifications in the background and runs the REPL
// until the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	a.engine.OnBatch(a.printBatch)
	a.engine.OnStateChange(func(s remote.State, reason string) {
		fmt.Fprintf(a.out, "\n[%s] %s\n", s, reason)
	})

	fmt.Fprintln(a.out, "Welcome to StudioSync CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) printBatch(b models.Batch) {
	for _, ins := range b.Inserted {
		fmt.Fprintf(a.out, "\n+ %s/%s\n", ins.Table, ins.UUID)
	}
	for _, ch := range b.Availability {
		if ch.Available {
			fmt.Fprintf(a.out, "\n~ %s restored\n", ch.UUID)
		} else {
			fmt.Fprintf(a.out, "\n- %s removed\n", ch.UUID)
		}
	}
	for _, id := range b.Updated {
		fmt.Fprintf(a.out, "\n* %s updated\n", id)
	}
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	s += a.engine.State().String()
	if a.offline {
		s += ", local session"
	}
	return fmt.Sprintf("(%s)", s)
}
