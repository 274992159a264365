package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState(key string) *State {
	return &State{
		Key: key,
		Cookies: []Cookie{{
			Name:     "sessionid",
			Value:    "s3cr3t",
			Domain:   ".saleor.cloud",
			Path:     "/",
			Expires:  1767225600,
			HTTPOnly: true,
			Secure:   true,
			SameSite: "Lax",
		}},
		Origins: []Origin{{
			Origin:         "https://store.saleor.cloud",
			LocalStorage:   []Entry{{Name: "saleor_auth_module_refresh_token", Value: "r-1"}},
			SessionStorage: []Entry{{Name: "tab", Value: "orders"}},
		}},
		CapturedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Load(ctx, "dashboard-user")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Save(ctx, "dashboard-user", sampleState("dashboard-user")))
	require.NoError(t, store.Save(ctx, "staff-user", sampleState("staff-user")))

	loaded, err := store.Load(ctx, "dashboard-user")
	require.NoError(t, err)
	assert.Equal(t, sampleState("dashboard-user"), loaded)

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard-user", "staff-user"}, keys)

	require.NoError(t, store.Delete(ctx, "dashboard-user"))
	_, err = store.Load(ctx, "dashboard-user")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, store.Delete(ctx, "dashboard-user"), "deleting a missing key is not an error")

	assert.True(t, errors.Is(store.Save(ctx, "", sampleState("")), ErrEmptyKey))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())

	t.Run("returned state is a copy", func(t *testing.T) {
		ctx := context.Background()
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, "k", sampleState("k")))

		loaded, err := store.Load(ctx, "k")
		require.NoError(t, err)
		loaded.Cookies[0].Value = "tampered"
		loaded.Origins[0].LocalStorage[0].Value = "tampered"

		again, err := store.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "s3cr3t", again.Cookies[0].Value)
		assert.Equal(t, "r-1", again.Origins[0].LocalStorage[0].Value)
	})
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, store)

	t.Run("keys with unsafe characters map to safe file names", func(t *testing.T) {
		assert.Equal(t, filepath.Join(dir, "dashboard-user.json"), store.Path("dashboard-user"))
		name := filepath.Base(store.Path("team/admin user"))
		assert.Regexp(t, `^team_admin_user-[0-9a-f]{8}\.json$`, name)

		ctx := context.Background()
		require.NoError(t, store.Save(ctx, "team/admin user", sampleState("team/admin user")))
		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, "team/admin user")
	})

	t.Run("keys that sanitize alike do not overwrite each other", func(t *testing.T) {
		ctx := context.Background()
		assert.NotEqual(t, store.Path("a/b"), store.Path("a_b"))

		require.NoError(t, store.Save(ctx, "a/b", sampleState("a/b")))
		require.NoError(t, store.Save(ctx, "a_b", sampleState("a_b")))

		s, err := store.Load(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, "a/b", s.Key)
		s, err = store.Load(ctx, "a_b")
		require.NoError(t, err)
		assert.Equal(t, "a_b", s.Key)

		cache := NewCache(store)
		for _, key := range []string{"a/b", "a_b"} {
			target := &fakeTarget{}
			outcome, err := cache.Session(ctx, key, target, nil)
			require.NoError(t, err, key)
			assert.Equal(t, Restored, outcome, key)
		}
	})

	t.Run("corrupt files are rejected", func(t *testing.T) {
		require.NoError(t, os.WriteFile(store.Path("broken"), []byte(`{"cookies": "nope"}`), 0o600))
		_, err := store.Load(context.Background(), "broken")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidDocument))
	})

	t.Run("playwright storage-state files are readable", func(t *testing.T) {
		doc := `{"cookies":[{"name":"a","value":"b","domain":"x.io","path":"/","expires":-1,"httpOnly":false,"secure":false,"sameSite":"Lax"}],
"origins":[{"origin":"https://x.io","localStorage":[{"name":"k","value":"v"}]}]}`
		require.NoError(t, os.WriteFile(store.Path("imported"), []byte(doc), 0o600))

		s, err := store.Load(context.Background(), "imported")
		require.NoError(t, err)
		assert.Equal(t, "", s.Key)
		assert.Equal(t, "a", s.Cookies[0].Name)
		assert.Equal(t, "v", s.Origins[0].LocalStorage[0].Value)
	})
}

func TestStateHelpers(t *testing.T) {
	t.Run("IsEmpty", func(t *testing.T) {
		var nilState *State
		assert.True(t, nilState.IsEmpty())
		assert.True(t, (&State{Origins: []Origin{{Origin: "https://x.io"}}}).IsEmpty())
		assert.False(t, sampleState("k").IsEmpty())
	})

	t.Run("SetLocalStorage adds and replaces", func(t *testing.T) {
		s := &State{}
		s.SetLocalStorage("https://x.io", "a", "1")
		s.SetLocalStorage("https://x.io", "b", "2")
		s.SetLocalStorage("https://x.io", "a", "3")
		s.SetLocalStorage("https://y.io", "a", "4")

		require.Len(t, s.Origins, 2)
		assert.Equal(t, []Entry{{"a", "3"}, {"b", "2"}}, s.Origins[0].LocalStorage)
		assert.Equal(t, []Entry{{"a", "4"}}, s.Origins[1].LocalStorage)
	})

	t.Run("Marshal output passes the schema", func(t *testing.T) {
		data, err := (&State{Key: "k"}).Marshal()
		require.NoError(t, err)
		s, err := ValidateDocument(data)
		require.NoError(t, err)
		assert.Equal(t, "k", s.Key)
	})
}
