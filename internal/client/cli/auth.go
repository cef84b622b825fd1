package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/studiosync/internal/common"
)

// Login prompts for credentials and signs in against the server. When the
// server cannot be reached it falls back to the users cached locally.
func (a *App) Login(ctx context.Context, _ []string) error {
	userName, err := a.ask("User name", a.userName)
	if err != nil {
		return err
	}
	password, err := a.askSecret("Password")
	if err != nil {
		return err
	}

	err = a.engine.Login(ctx, userName, password)
	switch {
	case err == nil:
		log.Printf("Login successful")
		a.userName, a.offline = userName, false
		return nil
	case errors.Is(err, common.ErrUnavailable), errors.Is(err, common.ErrProtocol):
		log.Printf("Server unavailable, trying offline login...")
	default:
		return fmt.Errorf("login: %w", err)
	}

	if _, err := a.engine.LocalLogin(ctx, userName, password); err != nil {
		return fmt.Errorf("offline login: %w", err)
	}
	log.Printf("Offline login successful")
	a.userName, a.offline = userName, true
	return nil
}

// Logout ends the session on the server and forgets the user.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if !a.offline {
		if err := a.engine.Logout(ctx); err != nil {
			return err
		}
	}
	a.userName, a.offline = "", false
	return nil
}
