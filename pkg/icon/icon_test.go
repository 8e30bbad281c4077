package icon

import (
	"bytes"
	"image/png"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		wantErr bool
	}{
		{"starting", Starting, false},
		{"ready", Ready, false},
		{"degraded", Degraded, false},
		{"failed", Failed, false},
		{"external", External, false},
		{"unknown", Status(99), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Render(tt.status)
			if tt.wantErr {
				if err == nil {
					t.Error("Render() should fail for unknown status")
				}
				return
			}
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}

			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("invalid PNG: %v", err)
			}
			bounds := img.Bounds()
			if bounds.Dx() != Size || bounds.Dy() != Size {
				t.Errorf("wrong dimensions: got %dx%d, want %dx%d",
					bounds.Dx(), bounds.Dy(), Size, Size)
			}

			// Corners stay transparent outside the circle.
			if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
				t.Errorf("corner alpha = %d, want 0", a)
			}
		})
	}
}

func TestRenderDistinctColors(t *testing.T) {
	center := func(s Status) uint32 {
		data, err := Render(s)
		if err != nil {
			t.Fatalf("Render(%v) error = %v", s, err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		// Sample near the edge of the circle, away from the glyph.
		r, g, b, _ := img.At(Size/2, 2).RGBA()
		return r>>8<<16 | g>>8<<8 | b>>8
	}

	if center(Ready) == center(Failed) {
		t.Error("ready and failed icons should differ in color")
	}
	if center(Ready) == center(External) {
		t.Error("ready and external icons should differ in color")
	}
}

func TestCache(t *testing.T) {
	c := NewCache()

	first, err := c.Get(Ready)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, err := c.Get(Ready)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if &first[0] != &second[0] {
		t.Error("second Get() should return the cached slice")
	}

	if _, err := c.Get(Status(42)); err == nil {
		t.Error("Get() should fail for unknown status")
	}
}

func TestStatusString(t *testing.T) {
	if got := Degraded.String(); got != "degraded" {
		t.Errorf("Degraded.String() = %q", got)
	}
	if got := Status(9).String(); got != "Status(9)" {
		t.Errorf("Status(9).String() = %q", got)
	}
}
