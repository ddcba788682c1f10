package app

import (
	"image/color"

	"tinygo.org/x/drivers"

	"minikern/hal"
)

// screen draws into an RGB565 framebuffer. It satisfies the tinyterm and
// tinyfont display interfaces.
type screen struct {
	fb hal.Framebuffer
}

func newScreen(fb hal.Framebuffer) *screen {
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 || fb.Buffer() == nil {
		return nil
	}
	return &screen{fb: fb}
}

func (s *screen) Size() (x, y int16) {
	return int16(s.fb.Width()), int16(s.fb.Height())
}

func (s *screen) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= s.fb.Width() || iy < 0 || iy >= s.fb.Height() {
		return
	}
	buf := s.fb.Buffer()
	off := iy*s.fb.StrideBytes() + ix*2
	if off+1 >= len(buf) {
		return
	}
	pixel := hal.RGB565(c.R, c.G, c.B)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (s *screen) Display() error { return s.fb.Present() }

func (s *screen) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	w, h := s.fb.Width(), s.fb.Height()
	x0 := clampInt(int(x), 0, w)
	y0 := clampInt(int(y), 0, h)
	x1 := clampInt(int(x)+int(width), 0, w)
	y1 := clampInt(int(y)+int(height), 0, h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	pixel := hal.RGB565(c.R, c.G, c.B)
	lo, hi := byte(pixel), byte(pixel>>8)
	buf := s.fb.Buffer()
	stride := s.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := py * stride
		for px := x0; px < x1; px++ {
			off := row + px*2
			if off+1 >= len(buf) {
				break
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
	return nil
}

// SetScroll is a no-op: the console redraws whole frames.
func (s *screen) SetScroll(line int16) {}

// SetRotation is accepted and ignored; the framebuffer has one orientation.
func (s *screen) SetRotation(rotation drivers.Rotation) error {
	_ = rotation
	return nil
}

func (s *screen) clear(c color.RGBA) {
	s.fb.ClearRGB(c.R, c.G, c.B)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
