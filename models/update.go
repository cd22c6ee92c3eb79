// models/update.go
package models

// StateUpdate 发布到game-state-updates主题的状态更新消息，按roomId分区
type StateUpdate struct {
	RoomID     string     `json:"roomId"`
	State      *RoomState `json:"gameState,omitempty"`
	Diff       *StateDiff `json:"diff,omitempty"`
	Timestamp  int64      `json:"timestamp"`
	FullUpdate bool       `json:"fullUpdate"`
}

// NewFullUpdate wraps a complete room snapshot.
func NewFullUpdate(roomID string, state *RoomState, now int64) *StateUpdate {
	return &StateUpdate{
		RoomID:     roomID,
		State:      state,
		Timestamp:  now,
		FullUpdate: true,
	}
}

// NewDiffUpdate wraps a delta between two consecutive room versions.
func NewDiffUpdate(roomID string, diff *StateDiff, now int64) *StateUpdate {
	return &StateUpdate{
		RoomID:     roomID,
		Diff:       diff,
		Timestamp:  now,
		FullUpdate: false,
	}
}

// StateDiff 两个相邻版本之间的增量
type StateDiff struct {
	UpdatedPlayers map[string]*Player `json:"updatedPlayers"`
	RemovedPlayers []string           `json:"removedPlayers"`
	NewBullets     []*Bullet          `json:"newBullets"`
	RemovedBullets []string           `json:"removedBullets"`
	Version        int64              `json:"version"`
}

// IsEmpty reports whether the diff carries no changes.
func (d *StateDiff) IsEmpty() bool {
	return len(d.UpdatedPlayers) == 0 &&
		len(d.RemovedPlayers) == 0 &&
		len(d.NewBullets) == 0 &&
		len(d.RemovedBullets) == 0
}
