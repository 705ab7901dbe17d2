package session_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/chefserve/chef-vendor/internal/authflow"
	"github.com/chefserve/chef-vendor/internal/session"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := session.NewFileStore(filepath.Join(t.TempDir(), "state", "session.json"))
	ctx := context.Background()

	if got, err := store.Get(ctx, "user"); err != nil || got != "" {
		t.Fatalf("expected empty read from fresh store, got %q err %v", got, err)
	}

	if err := store.Set(ctx, "user", `{"id":42}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := store.Get(ctx, "user"); got != `{"id":42}` {
		t.Fatalf("expected stored value, got %q", got)
	}

	// Overwrite on re-login.
	if err := store.Set(ctx, "user", `{"id":43}`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := store.Get(ctx, "user"); got != `{"id":43}` {
		t.Fatalf("expected overwritten value, got %q", got)
	}

	if err := store.Remove(ctx, "user"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got, _ := store.Get(ctx, "user"); got != "" {
		t.Fatalf("expected empty after remove, got %q", got)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := session.NewRedisStore(client, "")
	ctx := context.Background()

	if got, err := store.Get(ctx, "user"); err != nil || got != "" {
		t.Fatalf("expected empty read, got %q err %v", got, err)
	}
	if err := store.Set(ctx, "user", `{"id":42}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := store.Get(ctx, "user"); got != `{"id":42}` {
		t.Fatalf("expected stored value, got %q", got)
	}
	if err := store.Remove(ctx, "user"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got, _ := store.Get(ctx, "user"); got != "" {
		t.Fatalf("expected empty after remove, got %q", got)
	}
}

func TestCurrentUser(t *testing.T) {
	store := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	ctx := context.Background()

	user, err := session.CurrentUser(ctx, store)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user when logged out, got %+v", user)
	}

	record, _ := json.Marshal(authflow.User{ID: 42, Name: "Asha Kitchen", KYCStatus: "approved"})
	if err := store.Set(ctx, authflow.DefaultSessionKey, string(record)); err != nil {
		t.Fatalf("set: %v", err)
	}

	user, err = session.CurrentUser(ctx, store)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user == nil || user.ID != 42 || user.KYCStatus != "approved" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if err := session.Clear(ctx, store); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if user, _ := session.CurrentUser(ctx, store); user != nil {
		t.Fatalf("expected nil after clear, got %+v", user)
	}
}
