package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotomi/internal/services"
	"github.com/desertthunder/spotomi/internal/shared"
	"github.com/desertthunder/spotomi/internal/store"
	th "github.com/desertthunder/spotomi/internal/testing"
	"github.com/desertthunder/spotomi/internal/tools"
	"golang.org/x/oauth2"
)

func factoryFor(svc services.Service, connected string) services.Factory {
	return func(ctx context.Context, uid string) (services.Service, error) {
		if uid != connected {
			return nil, shared.ErrNotAuthenticated
		}
		return svc, nil
	}
}

func TestToolsHandler(t *testing.T) {
	svc := &th.MockService{
		SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
			return []services.Track{{ID: "t1", Title: "Song One", Artists: []string{"Artist One"}}}, nil
		},
	}

	st := store.NewMemoryStore()
	engine := tools.NewEngine(factoryFor(svc, "user1"), st, log.New(io.Discard))
	handler := NewToolsHandler(engine, log.New(io.Discard))

	t.Run("dispatches tool calls", func(t *testing.T) {
		body := strings.NewReader(`{"uid":"user1","query":"song one"}`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tools/search_songs", body))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp tools.Response
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !strings.Contains(resp.Result, "Song One") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
	})

	t.Run("tool errors keep a 200 status", func(t *testing.T) {
		body := strings.NewReader(`{"uid":"stranger","query":"song"}`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tools/search_songs", body))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp tools.Response
		json.NewDecoder(rec.Body).Decode(&resp)
		if !strings.Contains(resp.Error, "connect your Spotify account") {
			t.Errorf("unexpected error: %s", resp.Error)
		}
	})

	t.Run("rejects non-POST requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools/search_songs", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("unknown tool is a 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tools/delete_account", strings.NewReader(`{}`)))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestManifestHandler(t *testing.T) {
	handler := NewManifestHandler(tools.DefaultManifest(), log.New(io.Discard))

	t.Run("serves the manifest", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/omi-tools.json", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var manifest tools.Manifest
		if err := json.NewDecoder(rec.Body).Decode(&manifest); err != nil {
			t.Fatalf("failed to decode manifest: %v", err)
		}
		if len(manifest.Tools) != 8 {
			t.Errorf("expected 8 tools, got %d", len(manifest.Tools))
		}
	})

	t.Run("rejects non-GET requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/.well-known/omi-tools.json", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestSettingsHandler(t *testing.T) {
	ctx := context.Background()

	newFixture := func(svc services.Service) (*SettingsHandler, *store.MemoryStore) {
		st := store.NewMemoryStore()
		return NewSettingsHandler(st, factoryFor(svc, "user1"), log.New(io.Discard)), st
	}

	t.Run("home", func(t *testing.T) {
		t.Run("without uid", func(t *testing.T) {
			handler, _ := newFixture(&th.MockService{})

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Missing user ID") {
				t.Errorf("expected error message, got: %s", rec.Body.String())
			}
		})

		t.Run("unauthenticated user sees the connect button", func(t *testing.T) {
			handler, _ := newFixture(&th.MockService{})

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?uid=stranger", nil))

			body := rec.Body.String()
			if !strings.Contains(body, "Connect Spotify") {
				t.Errorf("expected connect button, got: %s", body)
			}
			if !strings.Contains(body, "/auth/spotify?uid=stranger") {
				t.Errorf("expected oauth link, got: %s", body)
			}
		})

		t.Run("authenticated user sees profile and playlists", func(t *testing.T) {
			svc := &th.MockService{
				UserProfileFn: func(ctx context.Context) (*services.User, error) {
					return &services.User{ID: "sp1", DisplayName: "Alex"}, nil
				},
				UserPlaylistsFn: func(ctx context.Context, limit, offset int) ([]services.Playlist, error) {
					return []services.Playlist{{ID: "pl1", Name: "Road Trip", TrackCount: 42}}, nil
				},
			}

			handler, st := newFixture(svc)
			if err := st.SaveDefaultPlaylist(ctx, "user1", store.PlaylistRef{ID: "pl1", Name: "Road Trip"}); err != nil {
				t.Fatalf("failed to save default: %v", err)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?uid=user1", nil))

			body := rec.Body.String()
			if !strings.Contains(body, "Alex") {
				t.Errorf("expected profile name, got: %s", body)
			}
			if !strings.Contains(body, "Road Trip") {
				t.Errorf("expected playlist, got: %s", body)
			}
			if !strings.Contains(body, "Disconnect") {
				t.Errorf("expected disconnect link, got: %s", body)
			}
		})
	})

	t.Run("setup status", func(t *testing.T) {
		handler, st := newFixture(&th.MockService{})

		check := func(t *testing.T, uid string, want bool) {
			t.Helper()
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/setup/spotify?uid="+uid, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}

			var resp map[string]bool
			json.NewDecoder(rec.Body).Decode(&resp)
			if resp["is_setup_completed"] != want {
				t.Errorf("is_setup_completed = %v, want %v", resp["is_setup_completed"], want)
			}
		}

		check(t, "user1", false)

		if err := st.SaveToken(ctx, "user1", &oauth2.Token{AccessToken: "linked"}); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		check(t, "user1", true)
	})

	t.Run("set default playlist", func(t *testing.T) {
		handler, st := newFixture(&th.MockService{})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
			"/settings/default-playlist?uid=user1&playlist_id=pl1&playlist_name=Favorites", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		ref, err := st.DefaultPlaylist(ctx, "user1")
		if err != nil {
			t.Fatalf("default playlist not stored: %v", err)
		}
		if ref.ID != "pl1" || ref.Name != "Favorites" {
			t.Errorf("unexpected ref %+v", ref)
		}

		t.Run("requires all parameters", func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settings/default-playlist?uid=user1", nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})

		t.Run("rejects GET", func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings/default-playlist?uid=user1", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected 405, got %d", rec.Code)
			}
		})
	})

	t.Run("health", func(t *testing.T) {
		handler, _ := newFixture(&th.MockService{})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		var resp map[string]string
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp["status"] != "healthy" {
			t.Errorf("unexpected health response %+v", resp)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Recover", func(t *testing.T) {
		handler := Recover(log.New(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("RequestLogger passes requests through", func(t *testing.T) {
		handler := RequestLogger(log.New(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusTeapot {
			t.Errorf("expected 418, got %d", rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("expected a request id header")
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("filters methods", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodPost, "/submit", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submit", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
		if rec.Code != http.StatusCreated {
			t.Errorf("expected 201, got %d", rec.Code)
		}
	})

	t.Run("applies middleware in order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/ordered", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ordered", nil))

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})
}
