// publisher/publisher.go
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/models"
	"github.com/wfunc/gameengine/monitor"
)

// kafkaWriter is the slice of kafka.Writer the publisher uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher ships one StateUpdate per room mutation to the update topic,
// keyed by room id. Sends are fire-and-forget: a failed publication is
// logged and counted but never fails event processing, since the state
// is already durably saved by then.
type Publisher struct {
	writer     kafkaWriter
	enableDiff bool
	monitor    *monitor.Monitor
}

func New(brokers []string, topic string, enableDiff bool, mon *monitor.Monitor) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		enableDiff: enableDiff,
		monitor:    mon,
	}
}

// Publish builds the update for a room mutation and sends it
// asynchronously. prev is the state before the event (nil for a fresh
// room) and next the state after; with diff updates enabled and a prior
// state available, only the delta between the two is shipped.
func (p *Publisher) Publish(roomID string, prev, next *models.RoomState) {
	update := p.buildUpdate(roomID, prev, next)
	go p.send(roomID, update)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) buildUpdate(roomID string, prev, next *models.RoomState) *models.StateUpdate {
	if p.enableDiff && prev != nil {
		return models.NewDiffUpdate(roomID, ComputeDiff(prev, next), next.Timestamp)
	}
	return models.NewFullUpdate(roomID, next, next.Timestamp)
}

func (p *Publisher) send(roomID string, update *models.StateUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		logger.Log.Errorw("Failed to encode state update", "roomId", roomID, "error", err)
		p.monitor.IncPublishFailures()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(roomID),
		Value: data,
	})
	if err != nil {
		logger.Log.Errorw("Failed to publish state update", "roomId", roomID, "error", err)
		p.monitor.IncPublishFailures()
		return
	}

	logger.Log.Debugw("Published state update", "roomId", roomID, "fullUpdate", update.FullUpdate)
}

// ComputeDiff returns the delta between two consecutive room versions:
// players whose fields changed or appeared, players that vanished, and
// bullets added or removed.
func ComputeDiff(prev, next *models.RoomState) *models.StateDiff {
	diff := &models.StateDiff{
		UpdatedPlayers: make(map[string]*models.Player),
		RemovedPlayers: make([]string, 0),
		NewBullets:     make([]*models.Bullet, 0),
		RemovedBullets: make([]string, 0),
		Version:        next.Version,
	}

	for id, player := range next.Players {
		if old, ok := prev.Players[id]; !ok || *old != *player {
			diff.UpdatedPlayers[id] = player
		}
	}
	for id := range prev.Players {
		if _, ok := next.Players[id]; !ok {
			diff.RemovedPlayers = append(diff.RemovedPlayers, id)
		}
	}

	prevBullets := make(map[string]bool, len(prev.Bullets))
	for _, b := range prev.Bullets {
		prevBullets[b.BulletID] = true
	}
	nextBullets := make(map[string]bool, len(next.Bullets))
	for _, b := range next.Bullets {
		nextBullets[b.BulletID] = true
		if !prevBullets[b.BulletID] {
			diff.NewBullets = append(diff.NewBullets, b)
		}
	}
	for _, b := range prev.Bullets {
		if !nextBullets[b.BulletID] {
			diff.RemovedBullets = append(diff.RemovedBullets, b.BulletID)
		}
	}

	return diff
}
