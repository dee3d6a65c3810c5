// package store persists per-user OAuth tokens, default playlists, and pending
// authorization states behind a small key-value interface.
//
// Records are opaque to callers: the only structural rule is that access tokens
// carry their expiry so the services layer can refresh before use.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotomi/internal/shared"
	"golang.org/x/oauth2"
)

// PlaylistRef identifies a playlist a user selected as their default target
// for add_to_playlist calls that don't name one.
type PlaylistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store defines the key-value persistence operations the service needs.
//
// Implementations: [SQLiteStore], [BoltStore], [MemoryStore].
type Store interface {
	// SaveToken stores or replaces the OAuth token record for a user.
	SaveToken(ctx context.Context, uid string, token *oauth2.Token) error

	// Token retrieves a user's OAuth token record.
	// Returns [shared.ErrNotAuthenticated] when the user has no record.
	Token(ctx context.Context, uid string) (*oauth2.Token, error)

	// DeleteToken removes a user's OAuth token record. Deleting a missing
	// record is not an error.
	DeleteToken(ctx context.Context, uid string) error

	// SaveDefaultPlaylist stores or replaces the user's default playlist.
	SaveDefaultPlaylist(ctx context.Context, uid string, ref PlaylistRef) error

	// DefaultPlaylist retrieves the user's default playlist.
	// Returns [shared.ErrNotFound] when none is set.
	DefaultPlaylist(ctx context.Context, uid string) (*PlaylistRef, error)

	// SaveAuthState records a pending OAuth state token for a user with a TTL.
	SaveAuthState(ctx context.Context, state, uid string, ttl time.Duration) error

	// ConsumeAuthState resolves a state token to its user id and removes it.
	// Unknown, expired, or already-consumed states return [shared.ErrStateMismatch].
	ConsumeAuthState(ctx context.Context, state string) (string, error)

	// Close releases any underlying resources.
	Close() error
}

// Open creates a [Store] for the configured driver.
func Open(cfg shared.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLiteStore(cfg)
	case "bolt":
		return NewBoltStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}
