//go:build !tinygo && cgo

package hal

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"minikern/internal/buildinfo"
)

// RunWindow opens a desktop window showing the framebuffer and forwards
// keyboard input. Ticks are released at the configured HZ measured in wall
// time, however often the window updates. It blocks until the window closes
// or step fails.
func RunWindow(newApp func(HAL) func() error, opts Options) error {
	h := newHost(opts)
	step := newApp(h)

	g := &hostGame{h: h, step: step}
	ebiten.SetWindowTitle(fmt.Sprintf("minikern %s @ %d Hz", buildinfo.Short(), h.opts.HZ))
	ebiten.SetWindowSize(h.fb.width*h.opts.Scale, h.fb.height*h.opts.Scale)
	ebiten.SetTPS(min(h.opts.HZ, 60))
	return ebiten.RunGame(g)
}

type hostGame struct {
	h       *hostHAL
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	step    func() error
}

func (g *hostGame) Update() error {
	g.h.kbd.poll()
	g.h.t.step(1)
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)

	src := g.scratch
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
