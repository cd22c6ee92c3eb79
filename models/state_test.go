package models

import "testing"

func TestPlayer_SetHealthClamps(t *testing.T) {
	p := NewPlayer("p1")

	p.SetHealth(150)
	if p.Health != MaxPlayerHealth {
		t.Errorf("Expected health clamped to %d, got %d", MaxPlayerHealth, p.Health)
	}

	p.SetHealth(-10)
	if p.Health != 0 {
		t.Errorf("Expected health clamped to 0, got %d", p.Health)
	}

	p.TakeDamage(25)
	if p.Health != 0 {
		t.Errorf("Damage below zero should stay at 0, got %d", p.Health)
	}

	p.Heal(30)
	if p.Health != 30 {
		t.Errorf("Expected health 30 after heal, got %d", p.Health)
	}
}

func TestRoomState_VersionBumpsOnStructuralMutation(t *testing.T) {
	state := NewRoomState("room1")
	if state.Version != 0 {
		t.Fatalf("New room should start at version 0, got %d", state.Version)
	}

	state.AddPlayer(NewPlayer("p1"), 100)
	if state.Version != 1 {
		t.Errorf("Expected version 1 after adding player, got %d", state.Version)
	}
	if state.Timestamp != 100 {
		t.Errorf("Expected timestamp 100, got %d", state.Timestamp)
	}

	state.AddBullet(&Bullet{BulletID: "b1", CreatedAt: 100}, 200)
	if state.Version != 2 {
		t.Errorf("Expected version 2 after adding bullet, got %d", state.Version)
	}

	state.RemoveBullet("b1", 300)
	if state.Version != 3 {
		t.Errorf("Expected version 3 after removing bullet, got %d", state.Version)
	}

	state.RemovePlayer("p1", 400)
	if state.Version != 4 {
		t.Errorf("Expected version 4 after removing player, got %d", state.Version)
	}

	// Removing something that is not there must not bump the version.
	state.RemovePlayer("ghost", 500)
	state.RemoveBullet("ghost", 500)
	if state.Version != 4 {
		t.Errorf("Version should not change for no-op removals, got %d", state.Version)
	}
}

func TestRoomState_ClearExpiredBullets(t *testing.T) {
	state := NewRoomState("room1")
	state.AddBullet(&Bullet{BulletID: "old", CreatedAt: 0}, 0)
	state.AddBullet(&Bullet{BulletID: "fresh", CreatedAt: 4000}, 4000)

	// "old" is past the lifetime bound, "fresh" is exactly at it.
	now := int64(BulletLifetimeMs + 4000)
	state.ClearExpiredBullets(now)

	if state.BulletCount() != 1 {
		t.Fatalf("Expected 1 bullet after sweep, got %d", state.BulletCount())
	}
	if state.Bullets[0].BulletID != "fresh" {
		t.Errorf("Expected the fresh bullet to survive, got %s", state.Bullets[0].BulletID)
	}
}

func TestRoomState_IsEmpty(t *testing.T) {
	state := NewRoomState("room1")
	if !state.IsEmpty() {
		t.Error("New room should be empty")
	}

	state.AddPlayer(NewPlayer("p1"), 1)
	if state.IsEmpty() {
		t.Error("Room with a player should not be empty")
	}
}

func TestRoomState_CloneIsDeep(t *testing.T) {
	state := NewRoomState("room1")
	state.AddPlayer(NewPlayer("p1"), 1)
	state.AddBullet(&Bullet{BulletID: "b1", ShooterID: "p1", CreatedAt: 1}, 1)

	clone := state.Clone()
	clone.Players["p1"].SetHealth(1)
	clone.Bullets[0].Position.X = 999

	if state.Players["p1"].Health != MaxPlayerHealth {
		t.Error("Mutating the clone's player leaked into the original")
	}
	if state.Bullets[0].Position.X != 0 {
		t.Error("Mutating the clone's bullet leaked into the original")
	}
}

func TestVelocity_Magnitude(t *testing.T) {
	v := Velocity{VX: 3, VY: 4}
	if v.Magnitude() != 5 {
		t.Errorf("Expected magnitude 5, got %f", v.Magnitude())
	}
	if !(Velocity{}).IsZero() {
		t.Error("Zero velocity should report IsZero")
	}
}
