package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pathum-vimukthi/bookvault/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in and stores the returned token and username.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	username := strings.TrimSpace(cmd.String("username"))
	if username == "" {
		var err error
		if username, err = r.prompter.Line("Username: "); err != nil {
			return err
		}
	}
	password := cmd.String("password")
	if password == "" {
		var err error
		if password, err = r.prompter.Password("Password: "); err != nil {
			return err
		}
	}
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password", shared.ErrMissingArgument)
	}

	r.logger.Info("signing in", "username", username, "api", r.api.BaseURL())

	res, err := r.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := r.session.SaveLogin(res); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	r.logger.Info("authentication successful", "username", res.Username)
	return r.writePlain("✓ Logged in as %s\n", res.Username)
}

// AuthRegister creates an account. It does not sign in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	username := strings.TrimSpace(cmd.String("username"))
	email := strings.TrimSpace(cmd.String("email"))
	password := cmd.String("password")
	if password == "" {
		var err error
		if password, err = r.prompter.Password("Password: "); err != nil {
			return err
		}
	}
	if username == "" || email == "" || password == "" {
		return fmt.Errorf("%w: username, email and password", shared.ErrMissingArgument)
	}

	ack, err := r.api.Register(ctx, username, email, password)
	if err != nil {
		return err
	}

	r.logger.Info("registered account", "username", username)
	if msg := strings.TrimSpace(ack.Message); msg != "" {
		r.writePlain("✓ %s\n", msg)
	} else {
		r.writePlain("✓ Registered %s\n", username)
	}
	return r.writePlain("Run 'bookvault auth login' to sign in\n")
}

// AuthLogout clears the stored session. It makes no request.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if err := r.session.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	r.logger.Info("signed out")
	return r.writePlain("✓ Logged out\n")
}

type authStatus struct {
	Authenticated bool       `json:"authenticated"`
	Username      string     `json:"username,omitempty"`
	UserID        int64      `json:"userId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Expired       bool       `json:"expired,omitempty"`
	Email         string     `json:"email,omitempty"`
}

// AuthStatus reports the stored session, and the backend profile with --remote.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	var status authStatus
	sess, err := r.session.Current()
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
	case err != nil:
		return err
	default:
		status.Authenticated = true
		status.Username = sess.Username
		status.UserID = sess.Claims.UserID
		if exp := sess.Claims.ExpiresAt; !exp.IsZero() {
			status.ExpiresAt = &exp
			status.Expired = sess.Claims.Expired(time.Now())
		}
	}

	if status.Authenticated && cmd.Bool("remote") {
		profile, err := r.api.Profile(ctx)
		if err != nil {
			return r.session.Guard(err)
		}
		status.Email = profile.Email
		if profile.Username != "" {
			status.Username = profile.Username
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.Authenticated {
		return r.writePlain("✗ Not authenticated\nRun 'bookvault auth login' to sign in\n")
	}
	r.writePlain("✓ Authenticated as %s\n", status.Username)
	if status.UserID != 0 {
		r.writePlain("User ID: %d\n", status.UserID)
	}
	if status.Email != "" {
		r.writePlain("Email: %s\n", status.Email)
	}
	if status.ExpiresAt != nil {
		state := "valid until"
		if status.Expired {
			state = "expired at"
		}
		r.writePlain("Token: %s %s\n", state, status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}
