// gateway/gateway.go
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"github.com/wfunc/gameengine/config"
	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/models"
	"github.com/wfunc/gameengine/monitor"
	"github.com/wfunc/gameengine/timer"
)

const idleTimeout = 5 * time.Minute

// eventProducer is the slice of kafka.Writer the gateway needs.
type eventProducer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Server bridges WebSocket clients and the event log: client actions
// become PlayerEvents keyed by room id on the inbound topic, and the
// outbound update stream is fanned out to the sessions of each room.
// The engine core makes no assumption about this transport.
type Server struct {
	addr         string
	cfg          config.KafkaConfig
	upgrader     websocket.Upgrader
	sessions     *SessionManager
	producer     eventProducer
	monitor      *monitor.Monitor
	timers       *timer.Manager
	shutdownChan chan struct{}
}

func NewServer(addr string, cfg config.KafkaConfig, mon *monitor.Monitor) *Server {
	s := &Server{
		addr:     addr,
		cfg:      cfg,
		sessions: NewSessionManager(),
		producer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.PlayerEventsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		monitor:      mon,
		timers:       timer.NewManager(),
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.timers.Schedule(time.Minute, time.Minute, s.sweepIdleSessions)

	return s
}

// Start runs the update-stream fanout and the WebSocket listener; it
// blocks serving HTTP.
func (s *Server) Start(ctx context.Context) error {
	go s.consumeUpdates(ctx)

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Gateway listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *Server) Shutdown() {
	close(s.shutdownChan)
	s.timers.Close()
	if err := s.producer.Close(); err != nil {
		logger.Log.Errorf("Failed to close event producer: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(NewWSConnection(conn))
}

func (s *Server) handleConnection(conn Connection) {
	sess := NewSession(uuid.New().String(), conn)
	s.sessions.Add(sess)
	s.monitor.IncGatewaySessions()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed, session ID: %s", sess.GetID())
		s.sessions.Remove(sess.GetID())
		s.monitor.DecGatewaySessions()
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := conn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *Server) handlePacket(sess *Session, packet *Packet) {
	switch packet.MsgID {
	case MsgTypeHeartbeat:
		sess.Touch()
	case MsgTypeJoinRoom:
		s.handleJoin(sess, packet)
	case MsgTypeLeaveRoom:
		sess.Unbind()
	case MsgTypePlayerAction:
		s.handleAction(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *Server) handleJoin(sess *Session, packet *Packet) {
	var req JoinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		logger.Log.Warnf("Malformed join from session %s: %v", sess.GetID(), err)
		return
	}
	if req.RoomID == "" || req.PlayerID == "" {
		logger.Log.Warnf("Join without room or player id from session %s", sess.GetID())
		return
	}

	sess.Bind(req.RoomID, req.PlayerID)
	logger.Log.Infof("Session %s joined room %s as %s", sess.GetID(), req.RoomID, req.PlayerID)

	resp, _ := json.Marshal(map[string]string{"roomId": req.RoomID, "playerId": req.PlayerID})
	sess.Send(MsgTypeJoinRoom, resp)
}

// handleAction stamps the session identity onto the client action and
// produces it keyed by room id, preserving per-room ordering upstream.
func (s *Server) handleAction(sess *Session, packet *Packet) {
	roomID := sess.Room()
	if roomID == "" {
		logger.Log.Warnf("Session %s sent an action but is not in a room", sess.GetID())
		return
	}

	var req ActionRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		logger.Log.Warnf("Malformed action from session %s: %v", sess.GetID(), err)
		return
	}

	event := models.PlayerEvent{
		PlayerID:   sess.Player(),
		RoomID:     roomID,
		ActionType: models.ActionType(req.ActionType),
		Timestamp:  time.Now().UnixMilli(),
		Position:   req.Position,
		Velocity:   req.Velocity,
	}
	// Unknown action types are still forwarded; the engine treats them
	// as an observable no-op.
	if !event.ActionType.Known() {
		logger.Log.Debugf("Forwarding unknown action type %q from session %s", req.ActionType, sess.GetID())
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("Failed to encode event for session %s: %v", sess.GetID(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(roomID),
		Value: data,
	}); err != nil {
		logger.Log.Errorf("Failed to produce event for room %s: %v", roomID, err)
	}
}

// consumeUpdates reads the per-room update stream and broadcasts each
// message to the sessions of that room. The raw payload is passed
// through untouched.
func (s *Server) consumeUpdates(ctx context.Context) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.cfg.Brokers,
		GroupID:  s.cfg.GroupID + "-gateway",
		Topic:    s.cfg.StateUpdatesTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Log.Errorf("Failed to read state update: %v", err)
			continue
		}

		var update models.StateUpdate
		if err := json.Unmarshal(msg.Value, &update); err != nil {
			logger.Log.Warnf("Malformed state update on partition %d offset %d: %v", msg.Partition, msg.Offset, err)
			continue
		}

		for _, sess := range s.sessions.GetByRoom(update.RoomID) {
			if err := sess.Send(MsgTypeStateUpdate, msg.Value); err != nil {
				// Dead connections fall out via the read loop.
				continue
			}
		}
	}
}

func (s *Server) sweepIdleSessions() {
	cutoff := time.Now().Add(-idleTimeout)
	for _, sess := range s.sessions.All() {
		if sess.IdleSince(cutoff) {
			logger.Log.Infof("Closing idle session %s", sess.GetID())
			sess.Close()
		}
	}
}
