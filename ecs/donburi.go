// Package ecs provides ECS adapters for bubblemind.
package ecs

import (
	"github.com/phanxgames/bubblemind"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// ChangeEventType is the Donburi event type for canvas change events.
// Subscribe to this in your ECS systems to receive graph mutations.
var ChangeEventType = events.NewEventType[bubblemind.ChangeEvent]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an EventSink backed by a Donburi world.
// Change events are published to ChangeEventType and can be consumed with
// events.Subscribe and ProcessEvents.
func NewDonburiSink(world donburi.World) bubblemind.EventSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) EmitEvent(event bubblemind.ChangeEvent) {
	ChangeEventType.Publish(s.world, event)
}
