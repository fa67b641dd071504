package view

import (
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/phanxgames/bubblemind"
)

type keyBinding struct {
	key  ebiten.Key
	help string
	run  func(g *Game)
}

// keyBindings maps keyboard shortcuts to canvas commands.
var keyBindings = []keyBinding{
	{ebiten.KeyP, "pen", func(g *Game) { g.canvas.SetTool(bubblemind.ToolPen) }},
	{ebiten.KeyE, "eraser", func(g *Game) { g.canvas.SetTool(bubblemind.ToolEraser) }},
	{ebiten.KeyD, "pan", func(g *Game) { g.canvas.SetTool(bubblemind.ToolPan) }},
	{ebiten.KeyT, "pin", func(g *Game) { g.canvas.SetTool(bubblemind.ToolPin) }},
	{ebiten.KeyR, "reset pan", func(g *Game) { g.canvas.ResetPan() }},
	{ebiten.KeyC, "clear ink", func(g *Game) { g.canvas.ClearInk() }},
	{ebiten.KeyH, "check server", func(g *Game) { g.canvas.CheckHealth() }},
	{ebiten.KeyL, "refresh lists", func(g *Game) { g.canvas.RefreshCatalog() }},
	{ebiten.KeyDigit1, "new thought", func(g *Game) { g.canvas.SetNewKind(bubblemind.KindThought) }},
	{ebiten.KeyDigit2, "new solution", func(g *Game) { g.canvas.SetNewKind(bubblemind.KindSolution) }},
	{ebiten.KeyDigit3, "new topic", func(g *Game) { g.canvas.SetNewKind(bubblemind.KindTopic) }},
	{ebiten.KeyX, "delete", func(g *Game) { g.menuKey(bubblemind.MenuDelete) }},
	{ebiten.KeyO, "make thought", func(g *Game) { g.menuKey(bubblemind.MenuSetThought) }},
	{ebiten.KeyS, "make solution", func(g *Game) { g.menuKey(bubblemind.MenuSetSolution) }},
	{ebiten.KeyG, "make topic", func(g *Game) { g.menuKey(bubblemind.MenuSetTopic) }},
	{ebiten.KeyEscape, "close menu", func(g *Game) { g.menuKey(bubblemind.MenuClose) }},
	{ebiten.KeyF, "toggle fps", func(g *Game) { g.showFPS = !g.showFPS }},
}

// pressKey runs the binding for k. It reports false for unbound keys.
func (g *Game) pressKey(k ebiten.Key) bool {
	for _, b := range keyBindings {
		if b.key == k {
			b.run(g)
			g.redraw = true
			return true
		}
	}
	return false
}

// menuKey applies a menu action from the keyboard. It does nothing unless a
// menu is open.
func (g *Game) menuKey(a bubblemind.MenuAction) {
	if g.canvas.MenuNode() == nil {
		return
	}
	if err := g.canvas.MenuAction(a); err != nil {
		g.logger.Debug("menu action failed", zap.Error(err))
	}
}

// KeyHelp lists the keyboard shortcuts, one "key: action" entry per binding.
func KeyHelp() []string {
	out := make([]string, len(keyBindings))
	for i, b := range keyBindings {
		out[i] = b.key.String() + ": " + b.help
	}
	return out
}
