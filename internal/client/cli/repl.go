package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Put(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Online(ctx context.Context, args []string) error
	Offline(ctx context.Context, args []string) error
	Server(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the StudioSync CLI.
//
// It reads a line, parses the first token as the command and passes the
// remaining tokens to the matching method of a. Errors returned by a
// command are printed and the loop continues. The loop exits on EOF or
// when the user types "exit" or "quit".
//
//	Not logged in:
//	  help, login, server [set], online, offline, exit | quit
//
//	Logged in, additionally:
//	  put <table> [uuid], show <table> <uuid>, list [table [all]],
//	  delete <table> <uuid>, restore <table> <uuid>, sync, logout
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ss %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var run func(context.Context, []string) error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: put, show, (l)ist, delete, restore, sync, server, online, offline, logout, exit")
			} else {
				printlnFn("Available commands: login, server, online, offline, exit")
			}
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "login":
			run = a.Login
		case "server":
			run = a.Server
		case "online":
			run = a.Online
		case "offline":
			run = a.Offline
		}

		if run == nil && a.isLoggedIn() {
			switch cmd {
			case "put":
				run = a.Put
			case "show":
				run = a.Show
			case "l", "list":
				run = a.List
			case "delete":
				run = a.Delete
			case "restore":
				run = a.Restore
			case "sync":
				run = a.Sync
			case "logout":
				run = a.Logout
			}
		}

		if run == nil {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if err := run(ctx, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}
