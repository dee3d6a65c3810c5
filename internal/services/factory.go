package services

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotomi/internal/store"
	"golang.org/x/oauth2"
)

// Factory produces a [Service] bound to the given user's stored token.
//
// Returns [shared.ErrNotAuthenticated] (wrapped) when the user has no token record.
type Factory func(ctx context.Context, uid string) (Service, error)

// NewUserFactory builds a [Factory] backed by the token store.
//
// Each call loads the user's token, binds a fresh [SpotifyService] to it, and
// registers a refresh callback that writes refreshed tokens back to the store.
func NewUserFactory(credentials map[string]string, st store.Store, logger *log.Logger) Factory {
	return func(ctx context.Context, uid string) (Service, error) {
		token, err := st.Token(ctx, uid)
		if err != nil {
			return nil, err
		}

		svc, err := NewSpotifyService(credentials)
		if err != nil {
			return nil, err
		}

		svc.SetTokenRefreshCallback(func(refreshed *oauth2.Token) {
			if err := st.SaveToken(context.WithoutCancel(ctx), uid, refreshed); err != nil {
				logger.Warn("failed to persist refreshed token", "uid", uid, "error", err)
			}
		})

		if err := svc.Authenticate(ctx, token); err != nil {
			return nil, err
		}

		return svc, nil
	}
}
