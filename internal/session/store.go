// Package session persists the logged-in vendor record. It is the keyed
// storage the auth flow writes once per successful login or registration;
// the rest of the app reads it through CurrentUser.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chefserve/chef-vendor/internal/authflow"
	"github.com/redis/go-redis/v9"
)

// FileStore is a JSON-file key-value store, the on-device analog of the
// mobile app's local storage. Writes go through a temp file rename so a
// crash never leaves a torn session record.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readAll()
	if err != nil {
		return "", err
	}
	return data[key], nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readAll()
	if err != nil {
		return err
	}
	data[key] = value
	return s.writeAll(data)
}

func (s *FileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readAll()
	if err != nil {
		return err
	}
	delete(data, key)
	return s.writeAll(data)
}

func (s *FileStore) readAll() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	data := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decoding session file: %w", err)
		}
	}
	return data, nil
}

func (s *FileStore) writeAll(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

// RedisStore keeps the session record in Redis, for deployments where the
// flow runs server-side and sessions must survive process restarts.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session from redis: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	// Sessions live until logout; no TTL.
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("writing session to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("removing session from redis: %w", err)
	}
	return nil
}

var (
	_ authflow.SessionStore = (*FileStore)(nil)
	_ authflow.SessionStore = (*RedisStore)(nil)
)

// CurrentUser loads the persisted vendor record, or nil when logged out.
// Stale reads are acceptable while a login is mid-flight.
func CurrentUser(ctx context.Context, store authflow.SessionStore) (*authflow.User, error) {
	raw, err := store.Get(ctx, authflow.DefaultSessionKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	var user authflow.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decoding session record: %w", err)
	}
	return &user, nil
}

// Clear removes the session record (logout).
func Clear(ctx context.Context, store authflow.SessionStore) error {
	return store.Remove(ctx, authflow.DefaultSessionKey)
}
