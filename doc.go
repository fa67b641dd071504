// Package bubblemind is the core of a freehand mind-map canvas.
//
// Draw a circle around handwriting and it becomes a bubble: the circled ink
// is captured and sent to a recognition service, and the bubble appears at
// once while the service answers. Draw a line from one bubble to another and
// the two are linked as parent and child. Double click, the pin tool or the
// long-press menu pops a bubble.
//
// The package has no rendering dependency. A front end (see the view
// package) feeds pointer events to a [Canvas] and draws what it holds; the
// same pipeline runs headless in tests and from JSON gesture scripts.
//
// # Quick start
//
//	client, err := backend.New(backend.Config{BaseURL: "http://localhost:9999"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	canvas := bubblemind.NewCanvas(client, bubblemind.CanvasConfig{
//		Logger: logger,
//	})
//	defer canvas.Close()
//
//	// every frame
//	canvas.PointerDown(ev) // PointerMove, PointerUp as they arrive
//	canvas.Update(dt)
//
// # Pipeline
//
// Pointer samples in client coordinates pass through the [Transform], which
// removes the canvas origin and pan offset. The [Interaction] state machine
// decides between drawing, dragging a bubble, panning and the long-press
// menu. A finished stroke goes to the [Classifier]; a circle or a
// connection becomes an optimistic change to the [Graph], and the
// [Controller] reconciles it with the [Backend].
//
// Backend calls run on their own goroutines but their results are applied
// only inside [Canvas.Update]. Every call has a deadline on the injected
// [Clock]; a result that arrives after the deadline is discarded and the
// optimistic change is rolled back.
//
// # Animation
//
// The [Animator] listens to graph events and tweens bubbles in (via
// [gween]) and bursts them into particles on removal. The [Transform] pan
// reset is tweened the same way.
//
// # Scripts
//
// [LoadTestScript] reads a JSON list of gestures (circle, line, click,
// press, wait, menu and others) that [Canvas.SetTestRunner] plays back one
// frame at a time through the normal input path.
//
// [gween]: https://github.com/tanema/gween
package bubblemind
