// models/models.go
package models

import "math"

// ActionType 玩家动作类型
type ActionType string

const (
	ActionMove  ActionType = "MOVE"
	ActionShoot ActionType = "SHOOT"
	ActionJump  ActionType = "JUMP"
)

// Known reports whether the action type is one the engine dispatches on.
func (a ActionType) Known() bool {
	switch a {
	case ActionMove, ActionShoot, ActionJump:
		return true
	}
	return false
}

// Position 2D位置
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the euclidean distance to another position.
func (p Position) Distance(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Velocity 2D速度
type Velocity struct {
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Magnitude returns the velocity magnitude.
func (v Velocity) Magnitude() float64 {
	return math.Sqrt(v.VX*v.VX + v.VY*v.VY)
}

// IsZero reports whether both components are zero.
func (v Velocity) IsZero() bool {
	return v.VX == 0 && v.VY == 0
}

// PlayerEvent 玩家动作事件，按roomId分区写入player-events主题
type PlayerEvent struct {
	PlayerID   string     `json:"playerId"`
	RoomID     string     `json:"roomId"`
	ActionType ActionType `json:"actionType"`
	Timestamp  int64      `json:"timestamp"`
	Position   *Position  `json:"position,omitempty"`
	Velocity   *Velocity  `json:"velocity,omitempty"`
}
