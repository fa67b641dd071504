package view

import (
	"github.com/phanxgames/bubblemind"
)

// Menu item geometry in client units.
const (
	menuItemWidth  = 112.0
	menuItemHeight = 30.0
	menuGap        = 12.0
)

type menuItem struct {
	Label  string
	Action bubblemind.MenuAction
	Rect   bubblemind.Rect // client coordinates
}

// menuItems lays out the context menu for n as a column beside the bubble.
// Solutions are archived rather than deleted, and the entry for the bubble's
// current kind is left out.
func menuItems(n *bubblemind.Node, t *bubblemind.Transform) []menuItem {
	if n == nil {
		return nil
	}
	items := make([]menuItem, 0, 5)
	if n.Kind == bubblemind.KindSolution {
		items = append(items, menuItem{Label: "Archive", Action: bubblemind.MenuDelete})
	} else {
		items = append(items, menuItem{Label: "Delete", Action: bubblemind.MenuDelete})
	}
	for _, k := range []struct {
		kind   bubblemind.Kind
		label  string
		action bubblemind.MenuAction
	}{
		{bubblemind.KindThought, "Make thought", bubblemind.MenuSetThought},
		{bubblemind.KindSolution, "Make solution", bubblemind.MenuSetSolution},
		{bubblemind.KindTopic, "Make topic", bubblemind.MenuSetTopic},
	} {
		if k.kind != n.Kind {
			items = append(items, menuItem{Label: k.label, Action: k.action})
		}
	}
	items = append(items, menuItem{Label: "Close", Action: bubblemind.MenuClose})

	c := t.ToClient(n.Position)
	x := c.X + n.Radius() + menuGap
	y := c.Y - float64(len(items))*menuItemHeight/2
	for i := range items {
		items[i].Rect = bubblemind.Rect{
			X:      x,
			Y:      y + float64(i)*menuItemHeight,
			Width:  menuItemWidth,
			Height: menuItemHeight,
		}
	}
	return items
}

// hitMenu returns the item under the client point, if any.
func hitMenu(items []menuItem, x, y float64) (menuItem, bool) {
	for _, it := range items {
		if it.Rect.Contains(x, y) {
			return it, true
		}
	}
	return menuItem{}, false
}
