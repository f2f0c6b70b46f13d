//go:build screen

package indicator

import (
	"encoding/binary"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/d21d3q/framebuffer"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"

	"rotenc/encoder"
)

const defaultFontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"

type videoScreen int

const (
	screenConnectionLost videoScreen = iota
	screenIdle
	screenRotated
	screenOff
)

// Video implements Indicator on a 16bpp framebuffer. Each detent shows the
// direction and position; status changes fill the screen with a banner.
// Drawing happens on its own goroutine so the poll loop never waits on it.
type Video struct {
	mu       sync.Mutex
	dc       *gg.Context
	rgba     *image.RGBA
	pix      []byte // mapped framebuffer
	back     []byte
	width    int
	height   int
	stride   int
	fontPath string
	fontErr  bool

	screen    videoScreen
	dir       encoder.Direction
	position  int64
	connected bool
	released  bool

	kick chan struct{}
	done chan struct{}
}

// NewVideo opens the framebuffer device and starts the render loop.
func NewVideo(device, fontPath string) (*Video, error) {
	if device == "" {
		device = "/dev/fb0"
	}
	fb, err := framebuffer.OpenFrameBuffer(device, os.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("open framebuffer %s: %w", device, err)
	}
	varInfo, err := fb.VarScreenInfo()
	if err != nil {
		return nil, fmt.Errorf("get variable screen info: %w", err)
	}
	fixedInfo, err := fb.FixScreenInfo()
	if err != nil {
		return nil, fmt.Errorf("get fixed screen info: %w", err)
	}
	if varInfo.BitsPerPixel != 16 {
		return nil, fmt.Errorf("framebuffer %s is %d bpp, only 16 bpp is supported", device, varInfo.BitsPerPixel)
	}
	pix, err := fb.Pixels()
	if err != nil {
		return nil, fmt.Errorf("get pixel data: %w", err)
	}

	slog.Info("framebuffer opened", "device", device,
		"width", varInfo.XRes, "height", varInfo.YRes, "stride", fixedInfo.LineLength)

	v := newVideo(pix, int(varInfo.XRes), int(varInfo.YRes), int(fixedInfo.LineLength), fontPath)
	v.done = make(chan struct{})
	go v.run()
	v.set(func() {})
	return v, nil
}

func newVideo(pix []byte, width, height, stride int, fontPath string) *Video {
	if fontPath == "" {
		fontPath = defaultFontPath
	}
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	return &Video{
		dc:       gg.NewContextForRGBA(rgba),
		rgba:     rgba,
		pix:      pix,
		back:     make([]byte, height*stride),
		width:    width,
		height:   height,
		stride:   stride,
		fontPath: fontPath,
		kick:     make(chan struct{}, 1),
	}
}

func (v *Video) run() {
	defer close(v.done)
	for range v.kick {
		v.render()
	}
}

// kickRender schedules a redraw; pending redraws coalesce. Callers hold mu.
func (v *Video) kickRender() {
	if v.released {
		return
	}
	select {
	case v.kick <- struct{}{}:
	default:
	}
}

func (v *Video) set(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn()
	v.kickRender()
}

// Idle implements Indicator.Idle.
func (v *Video) Idle() {
	v.set(func() {
		v.connected = true
		v.screen = screenIdle
	})
}

// Rotated implements Indicator.Rotated.
func (v *Video) Rotated(dir encoder.Direction, position int64) {
	v.set(func() {
		v.dir = dir
		v.position = position
		v.screen = screenRotated
	})
}

// ConnectionLost implements Indicator.ConnectionLost.
func (v *Video) ConnectionLost() {
	v.set(func() {
		v.connected = false
		v.screen = screenConnectionLost
	})
}

// Shutdown implements Indicator.Shutdown.
func (v *Video) Shutdown() {
	v.set(func() { v.screen = screenOff })
}

// Release implements Indicator.Release. The screen is left blank.
func (v *Video) Release() error {
	v.mu.Lock()
	if v.released {
		v.mu.Unlock()
		return nil
	}
	v.released = true
	v.screen = screenOff
	close(v.kick)
	v.mu.Unlock()

	if v.done != nil {
		<-v.done
	}
	v.render()
	return nil
}

func (v *Video) render() {
	v.mu.Lock()
	defer v.mu.Unlock()

	h := float64(v.height)
	switch v.screen {
	case screenOff:
		draw.Draw(v.rgba, v.rgba.Bounds(), image.Black, image.Point{}, draw.Src)
	case screenIdle:
		v.fill(0, 0.5, 0) // Green
		v.setFontSize(h / 5)
		v.drawCentered("Ready", h/2-h/8, 1, 1, 1)
		v.setFontSize(h / 8)
		v.drawCentered(fmt.Sprintf("%d", v.position), h/2+h/8, 1, 1, 0)
	case screenConnectionLost:
		v.fill(0.5, 0.3, 0) // Orange-ish
		v.setFontSize(h / 6)
		v.drawCentered("Connection Lost", h/2-h/8, 1, 1, 1)
		v.setFontSize(h / 8)
		v.drawCentered(fmt.Sprintf("%d", v.position), h/2+h/8, 1, 1, 1)
	case screenRotated:
		if v.connected {
			v.fill(0, 0, 0.3) // Dark blue
		} else {
			v.fill(0.3, 0.15, 0) // Dim orange while offline
		}
		v.setFontSize(h / 8)
		v.drawCentered(strings.ToUpper(v.dir.String()), h/5, 1, 1, 0)
		v.setFontSize(h / 3)
		v.drawCentered(fmt.Sprintf("%d", v.position), h/2+h/10, 1, 1, 1)
	}
	v.flush()
}

func (v *Video) fill(r, g, b float64) {
	v.dc.SetRGB(r, g, b)
	v.dc.DrawRectangle(0, 0, float64(v.width), float64(v.height))
	v.dc.Fill()
}

// setFontSize loads the TrueType font, falling back to the built-in bitmap
// face when it is missing.
func (v *Video) setFontSize(points float64) {
	if !v.fontErr {
		err := v.dc.LoadFontFace(v.fontPath, points)
		if err == nil {
			return
		}
		slog.Warn("video font unavailable, using bitmap font", "path", v.fontPath, "error", err)
		v.fontErr = true
	}
	v.dc.SetFontFace(basicfont.Face7x13)
}

func (v *Video) drawCentered(text string, y float64, r, g, b float64) {
	v.dc.SetRGB(r, g, b)
	v.dc.DrawStringAnchored(text, float64(v.width/2), y, 0.5, 0.5)
}

// flush packs the RGBA image into RGB565 and copies it to the framebuffer.
func (v *Video) flush() {
	for y := 0; y < v.height; y++ {
		for x := 0; x < v.width; x++ {
			i := v.rgba.PixOffset(x, y)
			r, g, b := v.rgba.Pix[i], v.rgba.Pix[i+1], v.rgba.Pix[i+2]
			pixel16 := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
			fbIdx := y*v.stride + x*2
			if fbIdx+1 < len(v.back) {
				binary.LittleEndian.PutUint16(v.back[fbIdx:], pixel16)
			}
		}
	}
	copy(v.pix, v.back)
}
