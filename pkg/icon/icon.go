// Package icon renders the tray status icon for the API server.
//
// Every status is a filled circle with a single bold ASCII glyph:
//   - Starting: amber "~"
//   - Ready: green "+"
//   - Degraded (health check timed out, or server exited): amber "?"
//   - Failed (server could not be spawned): red "!"
//   - External (development mode, server managed outside the app): grey "D"
//
// Generated icons are 48×48 pixels for optimal display on KDE and GNOME.
package icon

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Size is the standard system tray icon size (48×48 for KDE/GNOME).
const Size = 48

// Status is the server state an icon depicts.
type Status int

const (
	Starting Status = iota
	Ready
	Degraded
	Failed
	External
)

func (s Status) String() string {
	switch s {
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	case External:
		return "external"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

var (
	green = color.RGBA{40, 167, 69, 255}
	amber = color.RGBA{255, 176, 32, 255}
	red   = color.RGBA{220, 53, 69, 255}
	grey  = color.RGBA{108, 117, 125, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// style returns the fill color and glyph for s.
func style(s Status) (color.RGBA, string, error) {
	switch s {
	case Starting:
		return amber, "~", nil
	case Ready:
		return green, "+", nil
	case Degraded:
		return amber, "?", nil
	case Failed:
		return red, "!", nil
	case External:
		return grey, "D", nil
	default:
		return color.RGBA{}, "", fmt.Errorf("unknown status %d", int(s))
	}
}

// Render draws the PNG icon for s.
func Render(s Status) ([]byte, error) {
	fill, glyph, err := style(s)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	drawCircle(img, fill, glyph)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawCircle renders a large filled circle with bold centered text.
func drawCircle(img *image.RGBA, fill color.RGBA, text string) {
	radius := float64(Size) / 2
	cx := radius
	cy := radius

	for py := range Size {
		for px := range Size {
			dx := float64(px) - cx + 0.5
			dy := float64(py) - cy + 0.5
			if math.Sqrt(dx*dx+dy*dy) <= radius {
				img.Set(px, py, fill)
			}
		}
	}

	drawBoldText(img, text, Size/2, Size/2)
}

// drawBoldText renders text centered on (centerX, centerY) using Go's monospace bold font.
func drawBoldText(img *image.RGBA, text string, centerX, centerY int) {
	face, err := opentype.Parse(gomonobold.TTF)
	if err != nil {
		return // Graceful fallback: colored circle without glyph
	}

	fontFace, err := opentype.NewFace(face, &opentype.FaceOptions{
		Size: 32,
		DPI:  72,
	})
	if err != nil {
		return
	}
	defer fontFace.Close() //nolint:errcheck // Close error is not critical for rendering

	bounds, advance := font.BoundString(fontFace, text)
	textWidth := advance.Ceil()

	// Baseline sits visualCenter below the requested center.
	visualCenter := (bounds.Max.Y + bounds.Min.Y) / 2
	baselineY := fixed.I(centerY) - visualCenter
	x := fixed.I(centerX - textWidth/2)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(white),
		Face: fontFace,
		Dot:  fixed.Point26_6{X: x, Y: baselineY},
	}
	drawer.DrawString(text)
}

// Cache stores rendered icons; there are only a handful of statuses.
type Cache struct {
	icons map[Status][]byte
	mu    sync.Mutex
}

// NewCache creates an icon cache.
func NewCache() *Cache {
	return &Cache{icons: make(map[Status][]byte)}
}

// Get returns the icon for s, rendering it on first use.
func (c *Cache) Get(s Status) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data, ok := c.icons[s]; ok {
		return data, nil
	}
	data, err := Render(s)
	if err != nil {
		return nil, err
	}
	c.icons[s] = data
	return data, nil
}
