// models/state.go
package models

// 游戏世界常量
const (
	DefaultWorldWidth    = 1000.0
	DefaultWorldHeight   = 1000.0
	WorldBoundaryPadding = 20.0

	MaxPlayerHealth = 100
	MaxPlayerSpeed  = 5.0
	PlayerRadius    = 10.0

	BulletSpeed      = 10.0
	BulletRadius     = 2.0
	BulletDamage     = 25
	BulletLifetimeMs = 5000
)

// Player 房间内的玩家
type Player struct {
	PlayerID            string   `json:"playerId"`
	Position            Position `json:"position"`
	Velocity            Velocity `json:"velocity"`
	Health              int      `json:"health"`
	LastAction          string   `json:"lastAction"`
	LastActionTimestamp int64    `json:"lastActionTimestamp"`
}

// NewPlayer creates a player at full health with zero position and velocity.
func NewPlayer(playerID string) *Player {
	return &Player{
		PlayerID: playerID,
		Health:   MaxPlayerHealth,
	}
}

// Alive reports whether the player can still act as a target or shooter.
func (p *Player) Alive() bool {
	return p.Health > 0
}

// SetHealth clamps health into [0, MaxPlayerHealth] on every write.
func (p *Player) SetHealth(health int) {
	if health < 0 {
		health = 0
	}
	if health > MaxPlayerHealth {
		health = MaxPlayerHealth
	}
	p.Health = health
}

// TakeDamage reduces health, clamped at zero.
func (p *Player) TakeDamage(damage int) {
	p.SetHealth(p.Health - damage)
}

// Heal raises health, clamped at MaxPlayerHealth.
func (p *Player) Heal(amount int) {
	p.SetHealth(p.Health + amount)
}

// Bullet 子弹
type Bullet struct {
	BulletID  string   `json:"bulletId"`
	ShooterID string   `json:"shooterId"`
	Position  Position `json:"position"`
	Velocity  Velocity `json:"velocity"`
	CreatedAt int64    `json:"createdAt"`
	Damage    int      `json:"damage"`
}

// Expired reports whether the bullet has outlived its lifetime bound.
func (b *Bullet) Expired(now int64) bool {
	return now-b.CreatedAt > BulletLifetimeMs
}

// RoomState 房间的权威状态，存储在Redis键 "room:<roomId>" 下
type RoomState struct {
	RoomID      string             `json:"roomId"`
	Players     map[string]*Player `json:"players"`
	Bullets     []*Bullet          `json:"bullets"`
	Timestamp   int64              `json:"timestamp"`
	Version     int64              `json:"version"`
	WorldWidth  float64            `json:"worldWidth"`
	WorldHeight float64            `json:"worldHeight"`
	// BulletSeq feeds deterministic bullet identity; it only ever grows.
	BulletSeq uint64 `json:"bulletSeq"`
}

// NewRoomState creates an empty room with the default world dimensions.
func NewRoomState(roomID string) *RoomState {
	return &RoomState{
		RoomID:      roomID,
		Players:     make(map[string]*Player),
		Bullets:     make([]*Bullet, 0),
		WorldWidth:  DefaultWorldWidth,
		WorldHeight: DefaultWorldHeight,
	}
}

// GetPlayer returns the player or nil.
func (s *RoomState) GetPlayer(playerID string) *Player {
	return s.Players[playerID]
}

// AddPlayer registers a player and bumps the version.
func (s *RoomState) AddPlayer(player *Player, now int64) {
	if s.Players == nil {
		s.Players = make(map[string]*Player)
	}
	s.Players[player.PlayerID] = player
	s.bumpVersion(now)
}

// RemovePlayer drops a player and bumps the version.
func (s *RoomState) RemovePlayer(playerID string, now int64) {
	if _, exists := s.Players[playerID]; !exists {
		return
	}
	delete(s.Players, playerID)
	s.bumpVersion(now)
}

// AddBullet appends a bullet and bumps the version.
func (s *RoomState) AddBullet(bullet *Bullet, now int64) {
	s.Bullets = append(s.Bullets, bullet)
	s.bumpVersion(now)
}

// RemoveBullet drops a bullet by id and bumps the version.
func (s *RoomState) RemoveBullet(bulletID string, now int64) {
	for i, b := range s.Bullets {
		if b.BulletID == bulletID {
			s.Bullets = append(s.Bullets[:i], s.Bullets[i+1:]...)
			s.bumpVersion(now)
			return
		}
	}
}

// ClearExpiredBullets strips bullets older than the lifetime bound.
func (s *RoomState) ClearExpiredBullets(now int64) {
	kept := s.Bullets[:0]
	removed := false
	for _, b := range s.Bullets {
		if b.Expired(now) {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	s.Bullets = kept
	if removed {
		s.bumpVersion(now)
	}
}

// NextBulletSeq advances and returns the per-room bullet sequence.
func (s *RoomState) NextBulletSeq() uint64 {
	s.BulletSeq++
	return s.BulletSeq
}

func (s *RoomState) bumpVersion(now int64) {
	s.Version++
	s.Timestamp = now
}

// IsEmpty reports whether the room holds no players and no bullets.
func (s *RoomState) IsEmpty() bool {
	return len(s.Players) == 0 && len(s.Bullets) == 0
}

// PlayerCount returns the number of players.
func (s *RoomState) PlayerCount() int {
	return len(s.Players)
}

// BulletCount returns the number of live bullets.
func (s *RoomState) BulletCount() int {
	return len(s.Bullets)
}

// Clone returns a deep copy, used to diff consecutive versions.
func (s *RoomState) Clone() *RoomState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Players = make(map[string]*Player, len(s.Players))
	for id, p := range s.Players {
		cp := *p
		clone.Players[id] = &cp
	}
	clone.Bullets = make([]*Bullet, len(s.Bullets))
	for i, b := range s.Bullets {
		cb := *b
		clone.Bullets[i] = &cb
	}
	return &clone
}
