package gateway

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/models"
	"github.com/wfunc/gameengine/monitor"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// MockConnection is a test double for the Connection interface.
type MockConnection struct {
	sent []Packet
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, Packet{MsgID: msgID, Data: data})
	return nil
}
func (m *MockConnection) Close() error                 { return nil }
func (m *MockConnection) RemoteAddr() net.Addr         { return &net.TCPAddr{} }
func (m *MockConnection) ReadPacket() (*Packet, error) { return nil, nil }

// MockProducer records produced messages.
type MockProducer struct {
	messages []kafka.Message
}

func (m *MockProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.messages = append(m.messages, msgs...)
	return nil
}
func (m *MockProducer) Close() error { return nil }

func newTestServer(name string) (*Server, *MockProducer) {
	producer := &MockProducer{}
	s := &Server{
		sessions:     NewSessionManager(),
		producer:     producer,
		monitor:      monitor.NewMonitor(name),
		shutdownChan: make(chan struct{}),
	}
	return s, producer
}

func TestDecodePacket(t *testing.T) {
	payload := []byte(`{"roomId":"r1"}`)
	frame := append([]byte{0, MsgTypeJoinRoom, 0, byte(len(payload))}, payload...)

	packet, err := DecodePacket(frame)
	if err != nil {
		t.Fatalf("DecodePacket failed: %v", err)
	}
	if packet.MsgID != MsgTypeJoinRoom {
		t.Errorf("Expected msg id %d, got %d", MsgTypeJoinRoom, packet.MsgID)
	}
	if string(packet.Data) != string(payload) {
		t.Errorf("Payload mismatch: %s", packet.Data)
	}

	if _, err := DecodePacket([]byte{0, 1}); err == nil {
		t.Error("Short frames must be rejected")
	}
}

func TestHandleJoin_BindsSession(t *testing.T) {
	s, _ := newTestServer("test_gateway_join")
	conn := &MockConnection{}
	sess := NewSession("s1", conn)
	s.sessions.Add(sess)

	data, _ := json.Marshal(JoinRequest{RoomID: "room1", PlayerID: "p1"})
	s.handlePacket(sess, &Packet{MsgID: MsgTypeJoinRoom, Data: data})

	if sess.Room() != "room1" || sess.Player() != "p1" {
		t.Errorf("Session not bound: room=%q player=%q", sess.Room(), sess.Player())
	}
	if len(conn.sent) != 1 || conn.sent[0].MsgID != MsgTypeJoinRoom {
		t.Error("Expected a join acknowledgment")
	}
}

func TestHandleAction_ProducesKeyedEvent(t *testing.T) {
	s, producer := newTestServer("test_gateway_action")
	sess := NewSession("s1", &MockConnection{})
	sess.Bind("room1", "p1")
	s.sessions.Add(sess)

	data, _ := json.Marshal(ActionRequest{
		ActionType: "MOVE",
		Velocity:   &models.Velocity{VX: 2, VY: 0},
	})
	s.handlePacket(sess, &Packet{MsgID: MsgTypePlayerAction, Data: data})

	if len(producer.messages) != 1 {
		t.Fatalf("Expected one produced message, got %d", len(producer.messages))
	}

	msg := producer.messages[0]
	if string(msg.Key) != "room1" {
		t.Errorf("Events must be keyed by room id, got %s", msg.Key)
	}

	var event models.PlayerEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		t.Fatalf("Produced payload is not a PlayerEvent: %v", err)
	}
	if event.PlayerID != "p1" || event.RoomID != "room1" || event.ActionType != models.ActionMove {
		t.Errorf("Event not stamped with session identity: %+v", event)
	}
	if event.Velocity == nil || event.Velocity.VX != 2 {
		t.Errorf("Velocity lost in translation: %+v", event.Velocity)
	}
	if event.Timestamp == 0 {
		t.Error("Gateway must stamp the event timestamp")
	}
}

func TestHandleAction_RequiresRoom(t *testing.T) {
	s, producer := newTestServer("test_gateway_noroom")
	sess := NewSession("s1", &MockConnection{})
	s.sessions.Add(sess)

	data, _ := json.Marshal(ActionRequest{ActionType: "JUMP"})
	s.handlePacket(sess, &Packet{MsgID: MsgTypePlayerAction, Data: data})

	if len(producer.messages) != 0 {
		t.Error("Actions from unbound sessions must not be produced")
	}
}

func TestSessionManager_GetByRoom(t *testing.T) {
	m := NewSessionManager()

	s1 := NewSession("s1", &MockConnection{})
	s1.Bind("room1", "p1")
	s2 := NewSession("s2", &MockConnection{})
	s2.Bind("room1", "p2")
	s3 := NewSession("s3", &MockConnection{})
	s3.Bind("room2", "p3")
	m.Add(s1)
	m.Add(s2)
	m.Add(s3)

	if got := len(m.GetByRoom("room1")); got != 2 {
		t.Errorf("Expected 2 sessions in room1, got %d", got)
	}
	if got := len(m.GetByRoom("room2")); got != 1 {
		t.Errorf("Expected 1 session in room2, got %d", got)
	}

	m.Remove("s1")
	if got := len(m.GetByRoom("room1")); got != 1 {
		t.Errorf("Expected 1 session in room1 after removal, got %d", got)
	}
}
