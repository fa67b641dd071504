package view

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// Font is the interface for text measurement and layout.
type Font interface {
	MeasureString(text string) (width, height float64)
	LineHeight() float64
}

// TTFFont is a TrueType face rendered with Ebitengine text/v2.
type TTFFont struct {
	face   *text.GoTextFace
	source *text.GoTextFaceSource
	size   float64
	lh     float64
}

// LoadTTFFont loads a TrueType or OpenType font from raw data at the given
// size in pixels.
func LoadTTFFont(ttfData []byte, size float64) (*TTFFont, error) {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(ttfData))
	if err != nil {
		return nil, fmt.Errorf("view: failed to parse font data: %w", err)
	}
	return newTTFFont(source, size), nil
}

// DefaultFont returns Go Regular at the given size. It has no CJK glyphs;
// load a CJK face with LoadTTFFont to render Chinese recognition results.
func DefaultFont(size float64) (*TTFFont, error) {
	return LoadTTFFont(goregular.TTF, size)
}

func newTTFFont(source *text.GoTextFaceSource, size float64) *TTFFont {
	face := &text.GoTextFace{Source: source, Size: size}
	m := face.Metrics()
	return &TTFFont{
		face:   face,
		source: source,
		size:   size,
		lh:     m.HAscent + m.HDescent + m.HLineGap,
	}
}

// WithSize returns the same face at another size, sharing the parsed source.
func (f *TTFFont) WithSize(size float64) *TTFFont {
	if size == f.size {
		return f
	}
	return newTTFFont(f.source, size)
}

// Size returns the face size in pixels.
func (f *TTFFont) Size() float64 { return f.size }

// MeasureString returns the width and height of the rendered text.
func (f *TTFFont) MeasureString(s string) (width, height float64) {
	return text.Measure(s, f.face, f.lh)
}

// LineHeight returns the vertical distance between baselines.
func (f *TTFFont) LineHeight() float64 { return f.lh }

// Face returns the underlying GoTextFace for direct text/v2 rendering.
func (f *TTFFont) Face() *text.GoTextFace { return f.face }

const ellipsis = "…"

// wrapLabel breaks s into at most maxLines lines no wider than maxWidth.
// Lines break at the last space that fits, or between any two runes when a
// word (or a run of CJK text) is too long. Text that does not fit in
// maxLines is cut and ends with an ellipsis.
func wrapLabel(f Font, s string, maxWidth float64, maxLines int) []string {
	s = strings.TrimSpace(s)
	if s == "" || maxLines <= 0 {
		return nil
	}
	width := func(str string) float64 {
		w, _ := f.MeasureString(str)
		return w
	}

	var lines []string
	runes := []rune(s)
	for len(runes) > 0 && len(lines) < maxLines {
		end := fitRunes(runes, maxWidth, width)
		if end < len(runes) {
			if sp := lastSpace(runes[:end+1]); sp > 0 {
				end = sp
			}
		}
		lines = append(lines, strings.TrimRightFunc(string(runes[:end]), unicode.IsSpace))
		runes = trimLeftSpace(runes[end:])
	}
	if len(runes) > 0 {
		last := []rune(lines[len(lines)-1])
		for len(last) > 0 && width(string(last)+ellipsis) > maxWidth {
			last = last[:len(last)-1]
		}
		lines[len(lines)-1] = strings.TrimRightFunc(string(last), unicode.IsSpace) + ellipsis
	}
	return lines
}

// fitRunes returns how many leading runes fit in maxWidth, at least one.
func fitRunes(runes []rune, maxWidth float64, width func(string) float64) int {
	n := 1
	for n < len(runes) && width(string(runes[:n+1])) <= maxWidth {
		n++
	}
	return n
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func trimLeftSpace(runes []rune) []rune {
	for len(runes) > 0 && unicode.IsSpace(runes[0]) {
		runes = runes[1:]
	}
	return runes
}
