// Package ecs provides ECS adapters for the bubblemind change event system.
//
// The primary adapter is [NewDonburiSink], which bridges canvas change events
// (nodes and edges added, removed or changed, pan, ink erase) into a
// [Donburi] world as typed events. Subscribe to [ChangeEventType] in your ECS
// systems to receive them.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	canvas.SetEventSink(sink)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
