package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/melon/internal/repositories"
	"github.com/urfave/cli/v3"
)

const defaultLoginTimeout = 5 * time.Minute

// credentialStatus is the JSON shape of `auth status`.
type credentialStatus struct {
	LoggedIn    bool      `json:"loggedIn"`
	Usable      bool      `json:"usable"`
	Refreshable bool      `json:"refreshable"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
}

// AuthLogin runs the PKCE authorization flow and stores the resulting credential.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	authenticator, err := r.authenticator()
	if err != nil {
		return err
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.logger.Info("starting Spotify authorization", "timeout", timeout)
	r.writePlain("Opening the Spotify authorization page in your browser...\n")

	cred, err := authenticator.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	r.writePlain("✓ Authorization successful\n")
	return r.writePlain("Token valid until %s\n", time.UnixMilli(cred.ExpiresAt).Local().Format(time.DateTime))
}

// AuthStatus reports the stored credential without refreshing it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	cred, err := repositories.NewCredentialRepository(db).Get(ctx)
	if err != nil {
		return err
	}
	now := time.Now()

	if cmd.Bool("json") {
		status := credentialStatus{}
		if cred != nil {
			status.LoggedIn = true
			status.Usable = cred.Usable(now)
			status.Refreshable = cred.RefreshToken != ""
			status.ExpiresAt = time.UnixMilli(cred.ExpiresAt).UTC()
		}
		return r.writeJSON(status, true)
	}

	return r.writePlain("%s\n", r.palette.RenderCredentialStatus(cred, now))
}

// AuthLogout removes the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	if err := repositories.NewCredentialRepository(db).Clear(ctx); err != nil {
		return err
	}

	r.logger.Info("credential cleared")
	return r.writePlain("✓ Logged out\n")
}
