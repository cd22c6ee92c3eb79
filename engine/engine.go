// engine/engine.go
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/models"
)

// Engine applies player events to room state. Apply is deterministic:
// the same (state, event, now) inputs always produce the same output,
// so replaying a batch after a crash converges on the same state.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Apply runs one event against the room state and returns the updated
// state. A nil state stands for an unseen room and is created with the
// default world dimensions. The state is mutated in place.
func (e *Engine) Apply(state *models.RoomState, event models.PlayerEvent, now int64) *models.RoomState {
	if state == nil {
		state = models.NewRoomState(event.RoomID)
	}

	switch event.ActionType {
	case models.ActionMove:
		e.applyMove(state, event, now)
	case models.ActionShoot:
		e.applyShoot(state, event, now)
	case models.ActionJump:
		e.applyJump(state, event, now)
	default:
		// Unknown action types are a no-op, never a crash.
		logger.Log.Warnw("Unknown action type",
			"actionType", event.ActionType, "roomId", event.RoomID, "playerId", event.PlayerID)
	}

	e.stepPhysics(state, now)
	state.ClearExpiredBullets(now)

	return state
}

func (e *Engine) applyMove(state *models.RoomState, event models.PlayerEvent, now int64) {
	player := e.getOrCreatePlayer(state, event.PlayerID, now)

	if event.Position != nil {
		player.Position = clampPosition(*event.Position, state.WorldWidth, state.WorldHeight)
	}
	if event.Velocity != nil {
		player.Velocity = clampVelocity(*event.Velocity)
	}

	integratePlayer(player, state.WorldWidth, state.WorldHeight)

	player.LastAction = string(models.ActionMove)
	player.LastActionTimestamp = now
}

func (e *Engine) applyShoot(state *models.RoomState, event models.PlayerEvent, now int64) {
	player := e.getOrCreatePlayer(state, event.PlayerID, now)

	if !player.Alive() {
		return
	}

	// Identity is derived from the event, not from randomness, so a
	// redelivered Shoot regenerates the same id prefix and is skipped.
	prefix := fmt.Sprintf("%s:%s:%d:", state.RoomID, event.PlayerID, event.Timestamp)
	for _, b := range state.Bullets {
		if strings.HasPrefix(b.BulletID, prefix) {
			return
		}
	}

	direction := shootDirection(player, event)
	bullet := &models.Bullet{
		BulletID:  prefix + fmt.Sprintf("%d", state.NextBulletSeq()),
		ShooterID: event.PlayerID,
		Position:  player.Position,
		Velocity:  scaleToBulletSpeed(direction),
		CreatedAt: now,
		Damage:    models.BulletDamage,
	}
	state.AddBullet(bullet, now)

	player.LastAction = string(models.ActionShoot)
	player.LastActionTimestamp = now
}

func (e *Engine) applyJump(state *models.RoomState, event models.PlayerEvent, now int64) {
	player := e.getOrCreatePlayer(state, event.PlayerID, now)

	if !player.Alive() {
		return
	}

	// Fixed upward impulse on the vertical component.
	player.Velocity = clampVelocity(models.Velocity{
		VX: player.Velocity.VX,
		VY: player.Velocity.VY - 3.0,
	})

	player.LastAction = string(models.ActionJump)
	player.LastActionTimestamp = now
}

// stepPhysics advances every bullet in the room by one step: integrate
// position, drop bullets that left the world, then resolve at most one
// player hit per bullet.
func (e *Engine) stepPhysics(state *models.RoomState, now int64) {
	bullets := make([]*models.Bullet, len(state.Bullets))
	copy(bullets, state.Bullets)

	for _, bullet := range bullets {
		bullet.Position.X += bullet.Velocity.VX
		bullet.Position.Y += bullet.Velocity.VY

		if outOfBounds(bullet.Position, state.WorldWidth, state.WorldHeight) {
			state.RemoveBullet(bullet.BulletID, now)
			continue
		}

		e.resolveCollision(state, bullet, now)
	}
}

// resolveCollision damages the first living non-shooter player within
// the combined radius. Players are visited in id order so a bullet in
// range of two targets resolves identically on every run.
func (e *Engine) resolveCollision(state *models.RoomState, bullet *models.Bullet, now int64) {
	ids := make([]string, 0, len(state.Players))
	for id := range state.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		player := state.Players[id]
		if player.PlayerID == bullet.ShooterID || !player.Alive() {
			continue
		}

		// Strictly less than the combined radius counts as a hit.
		if bullet.Position.Distance(player.Position) < models.PlayerRadius+models.BulletRadius {
			player.TakeDamage(bullet.Damage)
			state.RemoveBullet(bullet.BulletID, now)
			return
		}
	}
}

func (e *Engine) getOrCreatePlayer(state *models.RoomState, playerID string, now int64) *models.Player {
	if player := state.GetPlayer(playerID); player != nil {
		return player
	}
	player := models.NewPlayer(playerID)
	player.Position = models.Position{
		X: state.WorldWidth / 2,
		Y: state.WorldHeight / 2,
	}
	state.AddPlayer(player, now)
	return player
}

// integratePlayer adds velocity to position, clamps to world bounds and
// zeroes the velocity component on any axis that hit a boundary.
func integratePlayer(player *models.Player, worldWidth, worldHeight float64) {
	minX, maxX := models.WorldBoundaryPadding, worldWidth-models.WorldBoundaryPadding
	minY, maxY := models.WorldBoundaryPadding, worldHeight-models.WorldBoundaryPadding

	x := player.Position.X + player.Velocity.VX
	y := player.Position.Y + player.Velocity.VY

	if x <= minX {
		x = minX
		player.Velocity.VX = 0
	} else if x >= maxX {
		x = maxX
		player.Velocity.VX = 0
	}
	if y <= minY {
		y = minY
		player.Velocity.VY = 0
	} else if y >= maxY {
		y = maxY
		player.Velocity.VY = 0
	}

	player.Position = models.Position{X: x, Y: y}
}

func clampPosition(pos models.Position, worldWidth, worldHeight float64) models.Position {
	return models.Position{
		X: clamp(pos.X, models.WorldBoundaryPadding, worldWidth-models.WorldBoundaryPadding),
		Y: clamp(pos.Y, models.WorldBoundaryPadding, worldHeight-models.WorldBoundaryPadding),
	}
}

func clampVelocity(vel models.Velocity) models.Velocity {
	magnitude := vel.Magnitude()
	if magnitude > models.MaxPlayerSpeed {
		scale := models.MaxPlayerSpeed / magnitude
		return models.Velocity{VX: vel.VX * scale, VY: vel.VY * scale}
	}
	return vel
}

func shootDirection(player *models.Player, event models.PlayerEvent) models.Velocity {
	if event.Velocity != nil && !event.Velocity.IsZero() {
		return *event.Velocity
	}
	if !player.Velocity.IsZero() {
		return player.Velocity
	}
	// Default: shoot along +x.
	return models.Velocity{VX: models.BulletSpeed, VY: 0}
}

func scaleToBulletSpeed(direction models.Velocity) models.Velocity {
	magnitude := direction.Magnitude()
	if magnitude == 0 {
		return models.Velocity{VX: models.BulletSpeed, VY: 0}
	}
	scale := models.BulletSpeed / magnitude
	return models.Velocity{VX: direction.VX * scale, VY: direction.VY * scale}
}

func outOfBounds(pos models.Position, worldWidth, worldHeight float64) bool {
	return pos.X < 0 || pos.X > worldWidth || pos.Y < 0 || pos.Y > worldHeight
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
