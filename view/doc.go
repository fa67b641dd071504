// Package view renders a [bubblemind.Canvas] with Ebitengine and feeds it
// mouse, touch and keyboard input.
//
// The root bubblemind package is headless. This package supplies the pieces
// that need a GPU: the ink layer that strokes are painted into and captured
// from, the bubble and edge renderer, the context menu, the status bar and an
// optional FPS overlay.
//
//	canvas := bubblemind.NewCanvas(client, bubblemind.CanvasConfig{})
//	game, err := view.New(canvas, view.Options{Width: 1280, Height: 800})
//	if err != nil {
//		log.Fatal(err)
//	}
//	log.Fatal(game.Run("BubbleMind"))
//
// # Coordinates
//
// Layout reports the outside size multiplied by the device pixel ratio, so
// the screen image handed to Draw is the backing buffer. Cursor and touch
// positions are divided by the ratio before they reach the canvas, which
// works in client (CSS) units.
//
// # Ink
//
// [InkLayer] keeps every stroke as a logical path and repaints itself when
// the pan offset or the pixel ratio changes. Pen ink is black on a white
// page; the eraser and consumed strokes paint white.
package view
