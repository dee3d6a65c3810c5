package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotomi/internal/shared"
	"golang.org/x/oauth2"
)

// SQLiteStore implements [Store] on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at cfg.Path and runs migrations.
func NewSQLiteStore(cfg shared.StoreConfig) (*SQLiteStore, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate token store: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveToken(ctx context.Context, uid string, token *oauth2.Token) error {
	query := `
		INSERT INTO spotify_tokens (uid, access_token, refresh_token, token_type, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	var expiry any
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.UTC()
	}

	_, err := s.db.ExecContext(ctx, query, uid, token.AccessToken, token.RefreshToken, token.TokenType, expiry, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Token(ctx context.Context, uid string) (*oauth2.Token, error) {
	query := `
		SELECT access_token, refresh_token, token_type, expires_at
		FROM spotify_tokens
		WHERE uid = ?
	`

	var (
		accessToken  string
		refreshToken string
		tokenType    string
		expiresAt    sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query, uid).Scan(&accessToken, &refreshToken, &tokenType, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no token for user %s", shared.ErrNotAuthenticated, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
	}
	if expiresAt.Valid {
		token.Expiry = expiresAt.Time
	}

	return token, nil
}

func (s *SQLiteStore) DeleteToken(ctx context.Context, uid string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM spotify_tokens WHERE uid = ?", uid); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveDefaultPlaylist(ctx context.Context, uid string, ref PlaylistRef) error {
	query := `
		INSERT INTO default_playlists (uid, playlist_id, playlist_name, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			playlist_id = excluded.playlist_id,
			playlist_name = excluded.playlist_name,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, uid, ref.ID, ref.Name, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save default playlist: %w", err)
	}

	return nil
}

func (s *SQLiteStore) DefaultPlaylist(ctx context.Context, uid string) (*PlaylistRef, error) {
	var ref PlaylistRef

	query := "SELECT playlist_id, playlist_name FROM default_playlists WHERE uid = ?"
	err := s.db.QueryRowContext(ctx, query, uid).Scan(&ref.ID, &ref.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no default playlist for user %s", shared.ErrNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query default playlist: %w", err)
	}

	return &ref, nil
}

func (s *SQLiteStore) SaveAuthState(ctx context.Context, state, uid string, ttl time.Duration) error {
	query := "INSERT INTO auth_states (state, uid, expires_at) VALUES (?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, query, state, uid, time.Now().UTC().Add(ttl)); err != nil {
		return fmt.Errorf("failed to save auth state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ConsumeAuthState(ctx context.Context, state string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		uid       string
		expiresAt time.Time
	)

	err = tx.QueryRowContext(ctx, "SELECT uid, expires_at FROM auth_states WHERE state = ?", state).Scan(&uid, &expiresAt)
	if err == sql.ErrNoRows {
		return "", shared.ErrStateMismatch
	}
	if err != nil {
		return "", fmt.Errorf("failed to query auth state: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM auth_states WHERE state = ?", state); err != nil {
		return "", fmt.Errorf("failed to consume auth state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	if time.Now().UTC().After(expiresAt) {
		return "", shared.ErrStateMismatch
	}

	return uid, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
