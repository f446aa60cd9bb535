// Package overlay draws the camera-name/date/time/fps text burned into
// every dispatched frame (spec.md §4.2), as a pure function of the
// image and the values to render, following the teacher's font.Drawer
// usage in internal/stream/mjpeg.go.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	shadowColor = color.Black
	textColor   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	face        = basicfont.Face7x13
)

// Info carries the values to render. FPS is ignored (omitted) when zero.
type Info struct {
	CameraName string
	Time       time.Time
	FPS        float64
}

// Draw burns camera name (top-left), date and time (bottom-right, two
// lines), and fps (top-right, if non-zero) into dst. Each string is
// drawn twice: a black copy offset by one pixel down-right as a shadow,
// then the bright green foreground. Date is the bottommost line, time
// one line above it, per spec.md §4.2.
func Draw(dst draw.Image, info Info) {
	b := dst.Bounds()
	lineHeight := face.Height + 2

	drawText(dst, info.CameraName, b.Min.X+6, b.Min.Y+lineHeight)

	dateStr := info.Time.Format("02-01-2006")
	timeStr := info.Time.Format("15:04:05.000")
	dateW := textWidth(dateStr)
	timeW := textWidth(timeStr)

	drawText(dst, dateStr, b.Max.X-dateW-6, b.Max.Y-4)
	drawText(dst, timeStr, b.Max.X-timeW-6, b.Max.Y-4-lineHeight)

	if info.FPS != 0 {
		fpsStr := fmt.Sprintf("%.1f fps", info.FPS)
		fpsW := textWidth(fpsStr)
		drawText(dst, fpsStr, b.Max.X-fpsW-6, b.Min.Y+lineHeight)
	}
}

func textWidth(s string) int {
	d := &font.Drawer{Face: face}
	return d.MeasureString(s).Round()
}

func drawText(dst draw.Image, s string, x, y int) {
	shadow := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(shadowColor),
		Face: face,
		Dot:  fixed.P(x+1, y+1),
	}
	shadow.DrawString(s)

	fg := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	fg.DrawString(s)
}
