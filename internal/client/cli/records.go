package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var errUsage = errors.New("wrong arguments")

// Put creates or replaces a record: put <table> [uuid]. A new uuid is
// generated when none is given. The document is read from the terminal.
func (a *App) Put(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: put <table> [uuid]", errUsage)
	}
	table, id := args[0], uuid.NewString()
	if len(args) == 2 {
		id = args[1]
	}

	data, err := a.askDocument("Document")
	if err != nil {
		return err
	}
	if err := a.engine.EnqueueWrite(table, id, data); err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

// Show prints one record: show <table> <uuid>.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: show <table> <uuid>", errUsage)
	}
	rec, err := a.engine.Query(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "uuid:     %s\n", rec.UUID)
	fmt.Fprintf(a.out, "modified: %s\n", rec.Modified.Format(time.DateTime))
	if rec.Removed {
		fmt.Fprintln(a.out, "removed:  yes")
	}
	if rec.UserName != "" {
		fmt.Fprintf(a.out, "user:     %s\n", rec.UserName)
	}
	fmt.Fprintln(a.out, rec.Data)
	return nil
}

// List prints the uuids of a table: list <table> [all]. Without a table it
// prints the table names.
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, strings.Join(a.engine.Tables(), " "))
		return nil
	}
	all := len(args) > 1 && args[1] == "all"

	ids, err := a.engine.List(ctx, args[0], all)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(a.out, id)
	}
	return nil
}

// Delete soft-deletes a record: delete <table> <uuid>.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: delete <table> <uuid>", errUsage)
	}
	return a.engine.SoftDelete(args[0], args[1])
}

// Restore clears the tombstone of a record: restore <table> <uuid>.
func (a *App) Restore(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: restore <table> <uuid>", errUsage)
	}
	return a.engine.Restore(args[0], args[1])
}

// Sync waits for local writes to land and starts a sync round.
func (a *App) Sync(ctx context.Context, _ []string) error {
	a.engine.AwaitQuiescent(ctx)
	return a.engine.RunSync(ctx)
}
