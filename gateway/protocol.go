// gateway/protocol.go
package gateway

import "github.com/wfunc/gameengine/models"

const (
	MsgTypeHeartbeat    = 1
	MsgTypeJoinRoom     = 101
	MsgTypeLeaveRoom    = 102
	MsgTypePlayerAction = 201
	MsgTypeStateUpdate  = 301
)

// JoinRequest binds a session to a room and player identity.
type JoinRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// ActionRequest is the client-facing action payload; the gateway stamps
// the session's room/player ids and the timestamp before forwarding.
type ActionRequest struct {
	ActionType string           `json:"actionType"`
	Position   *models.Position `json:"position,omitempty"`
	Velocity   *models.Velocity `json:"velocity,omitempty"`
}
