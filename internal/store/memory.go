package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/spotomi/internal/shared"
	"golang.org/x/oauth2"
)

// MemoryStore implements [Store] with in-process maps. Used in tests and
// for ephemeral single-node deployments where losing tokens on restart is
// acceptable (users just reconnect).
type MemoryStore struct {
	mu        sync.RWMutex
	tokens    map[string]oauth2.Token
	playlists map[string]PlaylistRef
	states    map[string]authState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens:    make(map[string]oauth2.Token),
		playlists: make(map[string]PlaylistRef),
		states:    make(map[string]authState),
	}
}

func (s *MemoryStore) SaveToken(ctx context.Context, uid string, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[uid] = *token
	return nil
}

func (s *MemoryStore) Token(ctx context.Context, uid string) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[uid]
	if !ok {
		return nil, fmt.Errorf("%w: no token for user %s", shared.ErrNotAuthenticated, uid)
	}

	copied := token
	return &copied, nil
}

func (s *MemoryStore) DeleteToken(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, uid)
	return nil
}

func (s *MemoryStore) SaveDefaultPlaylist(ctx context.Context, uid string, ref PlaylistRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[uid] = ref
	return nil
}

func (s *MemoryStore) DefaultPlaylist(ctx context.Context, uid string) (*PlaylistRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.playlists[uid]
	if !ok {
		return nil, fmt.Errorf("%w: no default playlist for user %s", shared.ErrNotFound, uid)
	}

	copied := ref
	return &copied, nil
}

func (s *MemoryStore) SaveAuthState(ctx context.Context, state, uid string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = authState{UID: uid, ExpiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (s *MemoryStore) ConsumeAuthState(ctx context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.states[state]
	if !ok {
		return "", shared.ErrStateMismatch
	}
	delete(s.states, state)

	if time.Now().UTC().After(record.ExpiresAt) {
		return "", shared.ErrStateMismatch
	}

	return record.UID, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
