package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/wfunc/gameengine/models"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), "", 0, ttl)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore_SaveGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t, 300*time.Second)
	ctx := context.Background()

	state := models.NewRoomState("room1")
	state.AddPlayer(models.NewPlayer("p1"), 1000)
	state.AddBullet(&models.Bullet{BulletID: "b1", ShooterID: "p1", CreatedAt: 1000, Damage: models.BulletDamage}, 1000)

	if err := s.Save(ctx, "room1", state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Get(ctx, "room1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.RoomID != "room1" || loaded.Version != state.Version {
		t.Errorf("Loaded state mismatch: %+v", loaded)
	}
	if loaded.PlayerCount() != 1 || loaded.BulletCount() != 1 {
		t.Errorf("Expected 1 player and 1 bullet, got %d/%d", loaded.PlayerCount(), loaded.BulletCount())
	}
	if loaded.Players["p1"].Health != models.MaxPlayerHealth {
		t.Errorf("Player health lost in round trip: %d", loaded.Players["p1"].Health)
	}
}

func TestRedisStore_EmptyRoomSaveSetsConfiguredTTL(t *testing.T) {
	s, mr := newTestStore(t, 300*time.Second)
	ctx := context.Background()

	if err := s.Save(ctx, "room1", models.NewRoomState("room1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got := mr.TTL("room:room1"); got != 300*time.Second {
		t.Errorf("Expected TTL 300s on the stored key, got %v", got)
	}
}

func TestRedisStore_SaveRefreshesTTL(t *testing.T) {
	s, mr := newTestStore(t, 300*time.Second)
	ctx := context.Background()

	state := models.NewRoomState("room1")
	if err := s.Save(ctx, "room1", state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mr.FastForward(200 * time.Second)
	if err := s.Save(ctx, "room1", state); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	if got := mr.TTL("room:room1"); got != 300*time.Second {
		t.Errorf("Save must reset the TTL, got %v", got)
	}

	// With no refreshing write the key is evicted.
	mr.FastForward(301 * time.Second)
	if _, err := s.Get(ctx, "room1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after TTL expiry, got %v", err)
	}
}

func TestRedisStore_GetMissingIsErrNotFound(t *testing.T) {
	s, _ := newTestStore(t, 300*time.Second)

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_DeleteAndExists(t *testing.T) {
	s, _ := newTestStore(t, 300*time.Second)
	ctx := context.Background()

	exists, err := s.Exists(ctx, "room1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Room should not exist before save")
	}

	if err := s.Save(ctx, "room1", models.NewRoomState("room1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exists, _ = s.Exists(ctx, "room1")
	if !exists {
		t.Error("Room should exist after save")
	}

	if err := s.Delete(ctx, "room1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, _ = s.Exists(ctx, "room1")
	if exists {
		t.Error("Room should not exist after delete")
	}
}
