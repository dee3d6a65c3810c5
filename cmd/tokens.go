package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotomi/internal/shared"
	"github.com/urfave/cli/v3"
)

func tokensCommand(r *Runner) *cli.Command {
	uidFlag := &cli.StringFlag{
		Name:     "uid",
		Usage:    "User ID",
		Required: true,
	}

	return &cli.Command{
		Name:  "tokens",
		Usage: "Inspect and revoke stored user credentials",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show a user's token record",
				Flags:  []cli.Flag{uidFlag},
				Action: r.TokensShow,
			},
			{
				Name:   "revoke",
				Usage:  "Delete a user's token record",
				Flags:  []cli.Flag{uidFlag},
				Action: r.TokensRevoke,
			},
		},
	}
}

// TokensShow prints a user's token record without revealing the secrets.
func (r *Runner) TokensShow(ctx context.Context, cmd *cli.Command) error {
	uid := cmd.String("uid")

	st, closeStore, err := r.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	token, err := st.Token(ctx, uid)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return fmt.Errorf("%w: no token on record for %s", shared.ErrNotAuthenticated, uid)
		}
		return err
	}

	record := map[string]any{
		"uid":               uid,
		"token_type":        token.TokenType,
		"expires_at":        token.Expiry.Format(time.RFC3339),
		"expired":           !token.Expiry.IsZero() && token.Expiry.Before(time.Now()),
		"has_refresh_token": token.RefreshToken != "",
	}

	if ref, err := st.DefaultPlaylist(ctx, uid); err == nil {
		record["default_playlist"] = ref
	}

	return r.writeJSON(record, true)
}

// TokensRevoke deletes a user's token record.
func (r *Runner) TokensRevoke(ctx context.Context, cmd *cli.Command) error {
	uid := cmd.String("uid")

	st, closeStore, err := r.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := st.DeleteToken(ctx, uid); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	r.logger.Info("token revoked", "uid", uid)
	r.writePlain("✓ Revoked credentials for %s\n", uid)
	return nil
}
