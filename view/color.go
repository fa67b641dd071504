package view

import (
	"image/color"

	"github.com/phanxgames/bubblemind"
)

var (
	inkColor   = bubblemind.Color{R: 0, G: 0, B: 0, A: 1}
	paperColor = bubblemind.ColorWhite
)

// toRGBA converts a straight-alpha color to the premultiplied form ebiten
// expects.
func toRGBA(c bubblemind.Color) color.RGBA {
	a := clamp01(c.A)
	return color.RGBA{
		R: uint8(clamp01(c.R)*a*255 + 0.5),
		G: uint8(clamp01(c.G)*a*255 + 0.5),
		B: uint8(clamp01(c.B)*a*255 + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

// fade scales the alpha of c by a.
func fade(c bubblemind.Color, a float64) bubblemind.Color {
	c.A *= a
	return c
}

// shade mixes c toward black by amount, keeping alpha.
func shade(c bubblemind.Color, amount float64) bubblemind.Color {
	k := 1 - clamp01(amount)
	return bubblemind.Color{R: c.R * k, G: c.G * k, B: c.B * k, A: c.A}
}

func paletteColor(i int) bubblemind.Color {
	n := len(bubblemind.Palette)
	return bubblemind.Palette[((i%n)+n)%n]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
