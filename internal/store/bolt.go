package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/spotomi/internal/shared"
	"go.etcd.io/bbolt"
	"golang.org/x/oauth2"
)

var (
	tokenBucket    = []byte("tokens")
	playlistBucket = []byte("default_playlists")
	stateBucket    = []byte("auth_states")
)

// BoltStore implements [Store] on a bbolt database, one bucket per record kind.
type BoltStore struct {
	db *bbolt.DB
}

// authState is the serialized form of a pending authorization record.
type authState struct {
	UID       string    `json:"uid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewBoltStore opens (or creates) the bbolt database at dbPath.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	options := &bbolt.Options{Timeout: 1 * time.Second}
	db, err := bbolt.Open(dbPath, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("could not open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{tokenBucket, playlistBucket, stateBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) SaveToken(ctx context.Context, uid string, token *oauth2.Token) error {
	value, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("error serializing token: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tokenBucket).Put([]byte(uid), value)
	})
}

func (s *BoltStore) Token(ctx context.Context, uid string) (*oauth2.Token, error) {
	var token oauth2.Token
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(tokenBucket).Get([]byte(uid))
		if value == nil {
			return nil
		}
		found = true
		return json.Unmarshal(value, &token)
	})
	if err != nil {
		return nil, fmt.Errorf("error deserializing token: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: no token for user %s", shared.ErrNotAuthenticated, uid)
	}

	return &token, nil
}

func (s *BoltStore) DeleteToken(ctx context.Context, uid string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tokenBucket).Delete([]byte(uid))
	})
}

func (s *BoltStore) SaveDefaultPlaylist(ctx context.Context, uid string, ref PlaylistRef) error {
	value, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("error serializing playlist ref: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(playlistBucket).Put([]byte(uid), value)
	})
}

func (s *BoltStore) DefaultPlaylist(ctx context.Context, uid string) (*PlaylistRef, error) {
	var ref PlaylistRef
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(playlistBucket).Get([]byte(uid))
		if value == nil {
			return nil
		}
		found = true
		return json.Unmarshal(value, &ref)
	})
	if err != nil {
		return nil, fmt.Errorf("error deserializing playlist ref: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: no default playlist for user %s", shared.ErrNotFound, uid)
	}

	return &ref, nil
}

func (s *BoltStore) SaveAuthState(ctx context.Context, state, uid string, ttl time.Duration) error {
	value, err := json.Marshal(authState{UID: uid, ExpiresAt: time.Now().UTC().Add(ttl)})
	if err != nil {
		return fmt.Errorf("error serializing auth state: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(state), value)
	})
}

func (s *BoltStore) ConsumeAuthState(ctx context.Context, state string) (string, error) {
	var record authState
	found := false

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		value := b.Get([]byte(state))
		if value == nil {
			return nil
		}
		found = true
		if err := json.Unmarshal(value, &record); err != nil {
			return err
		}
		return b.Delete([]byte(state))
	})
	if err != nil {
		return "", fmt.Errorf("error consuming auth state: %w", err)
	}
	if !found || time.Now().UTC().After(record.ExpiresAt) {
		return "", shared.ErrStateMismatch
	}

	return record.UID, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
