package bubblemind

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

// ErrEmptyCapture is returned when the requested region has no area.
var ErrEmptyCapture = errors.New("bubblemind: empty capture region")

// InkSource exposes the rendered ink layer in backing-buffer pixels, with the
// pan offset and device pixel ratio already applied.
type InkSource interface {
	InkImage() image.Image
}

// CaptureRegion crops the logical rectangle b out of src and encodes it as a
// PNG at logical (CSS) size. The crop is composited onto black so
// transparent areas read as background.
func CaptureRegion(src image.Image, t *Transform, b Rect) ([]byte, error) {
	w := int(math.Ceil(b.Width))
	h := int(math.Ceil(b.Height))
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyCapture
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	if src != nil {
		sr := t.BackingRect(b)
		clip := sr.Intersect(src.Bounds())
		if !clip.Empty() {
			sx := float64(w) / float64(sr.Dx())
			sy := float64(h) / float64(sr.Dy())
			dr := image.Rect(
				int(math.Floor(float64(clip.Min.X-sr.Min.X)*sx)),
				int(math.Floor(float64(clip.Min.Y-sr.Min.Y)*sy)),
				int(math.Ceil(float64(clip.Max.X-sr.Min.X)*sx)),
				int(math.Ceil(float64(clip.Max.Y-sr.Min.Y)*sy)),
			)
			draw.ApproxBiLinear.Scale(dst, dr, src, clip, draw.Over, nil)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	return buf.Bytes(), nil
}

// NRGBAFromPremultiplied converts premultiplied RGBA pixels, as returned by
// GPU read-backs, to a straight-alpha image.
func NRGBAFromPremultiplied(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := min(len(pixels), len(img.Pix))
	for i := 0; i+3 < n; i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}

// SaveCapture writes an encoded capture to dir under a timestamped name
// and returns the path.
func SaveCapture(dir, label string, data []byte, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", at.Format("20060102_150405.000"), sanitizeLabel(label)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
