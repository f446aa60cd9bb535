package motion

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

const (
	maxProcessedWidth  = 640
	maxProcessedHeight = 480
)

// processedResolution scales (w,h) down preserving aspect ratio to fit
// within 640x480 if larger; otherwise returns the original resolution
// with needResize=false (spec.md §4.5 step 1).
func processedResolution(w, h int) (procW, procH int, needResize bool) {
	if w <= maxProcessedWidth && h <= maxProcessedHeight {
		return w, h, false
	}
	scale := float64(maxProcessedWidth) / float64(w)
	if hs := float64(maxProcessedHeight) / float64(h); hs < scale {
		scale = hs
	}
	procW = int(float64(w) * scale)
	procH = int(float64(h) * scale)
	if procW < 1 {
		procW = 1
	}
	if procH < 1 {
		procH = 1
	}
	return procW, procH, true
}

// toGray converts a BGR24 raw buffer directly to single-channel
// luminance, skipping an intermediate color.Image allocation, and
// resizes it to (procW, procH) if needResize.
func toGray(pix []byte, w, h, procW, procH int, needResize bool) *image.Gray {
	full := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * w * 3
		for x := 0; x < w; x++ {
			i := row + x*3
			b, g, r := pix[i], pix[i+1], pix[i+2]
			full.SetGray(x, y, color.GrayModel.Convert(color.RGBA{R: r, G: g, B: b, A: 255}).(color.Gray))
		}
	}
	if !needResize {
		return full
	}
	small := image.NewGray(image.Rect(0, 0, procW, procH))
	draw.CatmullRom.Scale(small, small.Bounds(), full, full.Bounds(), draw.Over, nil)
	return small
}

// gaussianBlur5x5 applies a fixed 5x5 Gaussian kernel (sigma ~1),
// matching cv2.GaussianBlur(gray, (5,5), 0).
func gaussianBlur5x5(src *image.Gray) *image.Gray {
	kernel := [5][5]int{
		{1, 4, 6, 4, 1},
		{4, 16, 24, 16, 4},
		{6, 24, 36, 24, 6},
		{4, 16, 24, 16, 4},
		{1, 4, 6, 4, 1},
	}
	const kernelSum = 256

	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum := 0
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					sx := clampInt(x+kx, b.Min.X, b.Max.X-1)
					sy := clampInt(y+ky, b.Min.Y, b.Max.Y-1)
					sum += int(src.GrayAt(sx, sy).Y) * kernel[ky+2][kx+2]
				}
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(sum / kernelSum)})
		}
	}
	return dst
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

// absDiff computes the per-pixel absolute difference of two same-sized
// grayscale images.
func absDiff(a, b *image.Gray) *image.Gray {
	bounds := a.Bounds()
	out := image.NewGray(bounds)
	for i := range a.Pix {
		av, bv := int(a.Pix[i]), int(b.Pix[i])
		d := av - bv
		if d < 0 {
			d = -d
		}
		out.Pix[i] = uint8(d)
	}
	return out
}

// threshold binarizes diff at level: pixels >= level become 255, else 0
// (cv2.threshold(..., THRESH_BINARY)).
func threshold(diff *image.Gray, level uint8) *image.Gray {
	out := image.NewGray(diff.Bounds())
	for i, v := range diff.Pix {
		if v >= level {
			out.Pix[i] = 255
		}
	}
	return out
}

// dilate grows foreground (255) regions by one pixel using a 3x3
// structuring element, applied `iterations` times (cv2.dilate default
// kernel, iterations=2 per spec.md §4.5).
func dilate(bin *image.Gray, iterations int) *image.Gray {
	cur := bin
	for i := 0; i < iterations; i++ {
		cur = dilateOnce(cur)
	}
	return cur
}

func dilateOnce(src *image.Gray) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := uint8(0)
			for dy := -1; dy <= 1 && v == 0; dy++ {
				for dx := -1; dx <= 1; dx++ {
					sx, sy := x+dx, y+dy
					if sx < b.Min.X || sx >= b.Max.X || sy < b.Min.Y || sy >= b.Max.Y {
						continue
					}
					if src.GrayAt(sx, sy).Y != 0 {
						v = 255
						break
					}
				}
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}

// countNonZero counts foreground pixels.
func countNonZero(img *image.Gray) int {
	n := 0
	for _, v := range img.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// connectedComponentAreas labels 8-connected foreground regions and
// returns their areas, excluding the background (label 0), matching
// cv2.connectedComponentsWithStats.
func connectedComponentAreas(bin *image.Gray) []int {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	labels := make([]int, w*h)
	var areas []int

	neighbors := [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if bin.GrayAt(b.Min.X+x, b.Min.Y+y).Y == 0 || labels[idx] != 0 {
				continue
			}
			// BFS flood fill for a new component.
			label := len(areas) + 1
			area := 0
			stack := [][2]int{{x, y}}
			labels[idx] = label
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				area++
				for _, n := range neighbors {
					nx, ny := p[0]+n[0], p[1]+n[1]
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					ni := ny*w + nx
					if labels[ni] != 0 || bin.GrayAt(b.Min.X+nx, b.Min.Y+ny).Y == 0 {
						continue
					}
					labels[ni] = label
					stack = append(stack, [2]int{nx, ny})
				}
			}
			areas = append(areas, area)
		}
	}
	return areas
}

// isMotion decides per spec.md §4.5 step 4: non-zero pixel count must
// clear pixelThreshold AND at least one connected component's area
// must clear objectThreshold.
func isMotion(dilated *image.Gray, pixelThreshold, objectThreshold float64) bool {
	if float64(countNonZero(dilated)) < pixelThreshold {
		return false
	}
	for _, area := range connectedComponentAreas(dilated) {
		if float64(area) >= objectThreshold {
			return true
		}
	}
	return false
}
