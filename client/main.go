// Load simulator: connects synthetic players to the gateway and drives
// random Move/Shoot/Jump actions to exercise the pipeline end to end.
package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MsgTypeJoinRoom     = 101
	MsgTypePlayerAction = 201
	MsgTypeStateUpdate  = 301
)

type joinRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

type actionRequest struct {
	ActionType string    `json:"actionType"`
	Velocity   *velocity `json:"velocity,omitempty"`
}

type velocity struct {
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// send formats and sends a message to the WebSocket gateway.
func send(c *websocket.Conn, mu *sync.Mutex, msgID uint16, data []byte) error {
	mu.Lock()
	defer mu.Unlock()

	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func randomAction(rng *rand.Rand) actionRequest {
	switch rng.Intn(3) {
	case 0:
		return actionRequest{
			ActionType: "MOVE",
			Velocity:   &velocity{VX: rng.Float64()*10 - 5, VY: rng.Float64()*10 - 5},
		}
	case 1:
		return actionRequest{ActionType: "SHOOT"}
	default:
		return actionRequest{ActionType: "JUMP"}
	}
}

func runPlayer(addr, roomID string, interval time.Duration, seed int64, done <-chan struct{}, updates *int64, mu *sync.Mutex) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Printf("Dial failed: %v", err)
		return
	}
	defer c.Close()

	playerID := uuid.New().String()
	rng := rand.New(rand.NewSource(seed))
	var sendMu sync.Mutex

	// Read loop counts received state updates.
	go func() {
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				return
			}
			if len(message) >= 4 && binary.BigEndian.Uint16(message[0:2]) == MsgTypeStateUpdate {
				mu.Lock()
				*updates++
				mu.Unlock()
			}
		}
	}()

	joinData, _ := json.Marshal(joinRequest{RoomID: roomID, PlayerID: playerID})
	if err := send(c, &sendMu, MsgTypeJoinRoom, joinData); err != nil {
		log.Printf("Join failed: %v", err)
		return
	}
	log.Printf("Player %s joined room %s", playerID, roomID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			actionData, _ := json.Marshal(randomAction(rng))
			if err := send(c, &sendMu, MsgTypePlayerAction, actionData); err != nil {
				log.Printf("Write error: %v", err)
				return
			}
		}
	}
}

func main() {
	addr := flag.String("addr", "localhost:8080", "gateway address")
	rooms := flag.Int("rooms", 2, "number of rooms")
	players := flag.Int("players", 4, "players per room")
	interval := flag.Duration("interval", 200*time.Millisecond, "delay between actions")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	var updates int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for r := 0; r < *rooms; r++ {
		roomID := fmt.Sprintf("sim-room-%d", r)
		for p := 0; p < *players; p++ {
			wg.Add(1)
			seed := int64(r*1000 + p)
			go func() {
				defer wg.Done()
				runPlayer(*addr, roomID, *interval, seed, done, &updates, &mu)
			}()
		}
	}

	log.Printf("Simulator started: %d rooms x %d players", *rooms, *players)

	<-interrupt
	log.Println("Interrupt received, closing connections.")
	close(done)
	wg.Wait()

	mu.Lock()
	log.Printf("Simulator done, received %d state updates", updates)
	mu.Unlock()
}
