package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Online starts the connection handshake.
func (a *App) Online(ctx context.Context, _ []string) error {
	a.engine.GoOnline()
	return nil
}

// Offline drops the connection and the queued requests.
func (a *App) Offline(ctx context.Context, _ []string) error {
	a.engine.GoOffline()
	return nil
}

// Server prints the connection settings, or edits them with "server set".
func (a *App) Server(ctx context.Context, args []string) error {
	cfg := a.engine.ServerConfig()

	if len(args) == 0 {
		fmt.Fprintf(a.out, "address:      %s\n", cfg.Address)
		fmt.Fprintf(a.out, "ssl:          %t\n", cfg.UseSSL)
		fmt.Fprintf(a.out, "update delay: %ds\n", cfg.UpdateDelay)
		fmt.Fprintf(a.out, "timeout:      %dms\n", cfg.Timeout)
		fmt.Fprintf(a.out, "state:        %s\n", a.engine.State())
		if v := a.engine.ServerVersion(); v != "" {
			fmt.Fprintf(a.out, "version:      %s\n", v)
		}
		return nil
	}
	if args[0] != "set" {
		return fmt.Errorf("%w: server [set]", errUsage)
	}

	var err error
	if cfg.Address, err = a.ask("Server address", cfg.Address); err != nil {
		return err
	}

	ssl, err := a.ask("Use SSL (y/n)", yesNo(cfg.UseSSL))
	if err != nil {
		return err
	}
	cfg.UseSSL = strings.HasPrefix(strings.ToLower(ssl), "y")

	if cfg.UpdateDelay, err = a.askInt("Sync every N seconds, 0 = never", cfg.UpdateDelay); err != nil {
		return err
	}
	if cfg.Timeout, err = a.askInt("Connection timeout in ms", cfg.Timeout); err != nil {
		return err
	}

	return a.engine.SaveServerConfig(cfg)
}

func (a *App) askInt(prompt string, current int) (int, error) {
	s, err := a.ask(prompt, strconv.Itoa(current))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a positive number", errUsage, s)
	}
	return n, nil
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
