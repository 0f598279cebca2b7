package heatmap

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zeusync/dodgebot/internal/core/bot"
	"github.com/zeusync/dodgebot/internal/core/events/bus"
	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

const source = "heatmap"

// Frame is the payload of bus.TypeHeat events.
type Frame struct {
	Tick  uint64 `json:"tick"`
	Cells []Cell `json:"cells"`
}

// Publisher turns every bot.TypeTick event into a heat-map Frame published
// on the same bus. It runs in the publisher's goroutine, after the
// decision for the tick has already been applied.
type Publisher struct {
	events bus.EventBus
	mapper *Mapper
	arena  physics.AABB
	sub    bus.Subscription
	frames atomic.Uint64
	once   sync.Once
}

func NewPublisher(events bus.EventBus, m *Mapper, arena physics.AABB) (*Publisher, error) {
	if events == nil || m == nil {
		return nil, errors.New("heatmap: publisher needs an event bus and a mapper")
	}
	p := &Publisher{events: events, mapper: m, arena: arena}
	sub, err := events.Subscribe(bus.TypeTick, p.onTick)
	if err != nil {
		return nil, err
	}
	p.sub = sub
	return p, nil
}

func (p *Publisher) onTick(e bus.Event) error {
	info, ok := e.Data().(bot.TickInfo)
	if !ok {
		return nil
	}
	frame := Frame{Tick: info.Tick, Cells: p.mapper.Build(info.HazardBodies, p.arena)}
	p.frames.Add(1)
	return p.events.Publish(bus.NewEvent(bus.TypeHeat, source, frame))
}

// Frames returns how many frames have been published.
func (p *Publisher) Frames() uint64 { return p.frames.Load() }

// Close stops listening. Safe to call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() { _ = p.events.Unsubscribe(p.sub) })
}
