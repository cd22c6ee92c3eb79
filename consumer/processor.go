// consumer/processor.go
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/models"
	"github.com/wfunc/gameengine/monitor"
	"github.com/wfunc/gameengine/store"
)

// UpdatePublisher 状态更新发布接口
type UpdatePublisher interface {
	Publish(roomID string, prev, next *models.RoomState)
}

// Processor runs one event through load -> apply -> save -> publish.
// Room ownership is positional: all events for a room arrive on the same
// partition, so at most one processor touches a room at a time and the
// read-modify-write cycle needs no locking.
type Processor struct {
	engine    *engine.Engine
	store     store.Store
	publisher UpdatePublisher
	monitor   *monitor.Monitor
}

func NewProcessor(e *engine.Engine, s store.Store, p UpdatePublisher, mon *monitor.Monitor) *Processor {
	return &Processor{
		engine:    e,
		store:     s,
		publisher: p,
		monitor:   mon,
	}
}

// ProcessEvent handles a single raw event. Any returned error means the
// event is skipped; the caller decides nothing beyond logging, so state
// for unrelated events is never blocked by one bad message.
func (p *Processor) ProcessEvent(ctx context.Context, value []byte, now int64) error {
	var event models.PlayerEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if event.RoomID == "" || event.PlayerID == "" {
		return errors.New("event missing room or player id")
	}

	start := time.Now()

	state, err := p.store.Get(ctx, event.RoomID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load state: %w", err)
		}
		// Absent state is valid: the room is created by the engine.
		state = nil
	}

	prev := state.Clone()

	next, err := p.apply(state, event, now)
	if err != nil {
		return err
	}

	if err := p.store.Save(ctx, event.RoomID, next); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	p.publisher.Publish(event.RoomID, prev, next)
	p.monitor.ObserveApplyLatency(time.Since(start))

	return nil
}

// apply confines an engine panic to this event.
func (p *Processor) apply(state *models.RoomState, event models.PlayerEvent, now int64) (next *models.RoomState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return p.engine.Apply(state, event, now), nil
}
