package flow

import (
	"errors"
	"image"
	"image/color"
	"math"
)

// ErrSurfaceUnreadable is returned when a surface refuses pixel reads.
var ErrSurfaceUnreadable = errors.New("surface pixels are not readable")

// Surface is the opaque layer the wipe step erases.
type Surface interface {
	Bounds() image.Rectangle
	// Erase removes coverage under a soft round brush. Alpha never increases.
	Erase(x, y, radius float64)
	// Sample returns alpha values on a stride grid inside r.
	Sample(r image.Rectangle, stride int) ([]uint8, error)
}

// AlphaSurface is a Surface backed by an 8-bit alpha raster.
type AlphaSurface struct {
	img *image.Alpha
}

// NewAlphaSurface creates a fully opaque surface.
func NewAlphaSurface(w, h int) *AlphaSurface {
	img := image.NewAlpha(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return &AlphaSurface{img: img}
}

func (s *AlphaSurface) Bounds() image.Rectangle { return s.img.Bounds() }

// Erase applies destination-out composition with a brush that is solid over its
// inner 60% and fades linearly to the rim.
func (s *AlphaSurface) Erase(x, y, radius float64) {
	if radius <= 0 {
		return
	}
	b := s.img.Bounds()
	area := image.Rect(
		int(math.Floor(x-radius)), int(math.Floor(y-radius)),
		int(math.Ceil(x+radius))+1, int(math.Ceil(y+radius))+1,
	).Intersect(b)

	inner := radius * 0.6
	for py := area.Min.Y; py < area.Max.Y; py++ {
		for px := area.Min.X; px < area.Max.X; px++ {
			d := math.Hypot(float64(px)+0.5-x, float64(py)+0.5-y)
			if d > radius {
				continue
			}
			brush := 1.0
			if d > inner {
				brush = (radius - d) / (radius - inner)
			}
			i := s.img.PixOffset(px, py)
			old := float64(s.img.Pix[i])
			s.img.Pix[i] = uint8(math.Floor(old * (1 - brush)))
		}
	}
}

// EraseLine erases along the segment so fast strokes leave no gaps.
func (s *AlphaSurface) EraseLine(x0, y0, x1, y1, radius float64) {
	eraseLine(s, x0, y0, x1, y1, radius)
}

func (s *AlphaSurface) Sample(r image.Rectangle, stride int) ([]uint8, error) {
	r = r.Intersect(s.img.Bounds())
	if stride < 1 {
		stride = 1
	}
	out := make([]uint8, 0, (r.Dx()/stride+1)*(r.Dy()/stride+1))
	for y := r.Min.Y; y < r.Max.Y; y += stride {
		for x := r.Min.X; x < r.Max.X; x += stride {
			out = append(out, s.img.Pix[s.img.PixOffset(x, y)])
		}
	}
	return out, nil
}

// AlphaAt returns the alpha of one pixel.
func (s *AlphaSurface) AlphaAt(x, y int) uint8 {
	return s.img.AlphaAt(x, y).A
}

// Image exposes the raster for renderers.
func (s *AlphaSurface) Image() *image.Alpha { return s.img }

// Opaque reports whether a pixel still has any coverage.
func (s *AlphaSurface) Opaque(x, y int) bool {
	return s.img.AlphaAt(x, y) != color.Alpha{}
}

func eraseLine(s Surface, x0, y0, x1, y1, radius float64) {
	dist := math.Hypot(x1-x0, y1-y0)
	step := radius / 2
	if step <= 0 || dist <= step {
		s.Erase(x1, y1, radius)
		return
	}
	n := int(math.Ceil(dist / step))
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s.Erase(x0+(x1-x0)*t, y0+(y1-y0)*t, radius)
	}
}

// sampleRegion is the central part of the surface inside the given margin fraction.
func sampleRegion(b image.Rectangle, margin float64) image.Rectangle {
	mx := int(float64(b.Dx()) * margin)
	my := int(float64(b.Dy()) * margin)
	return image.Rect(b.Min.X+mx, b.Min.Y+my, b.Max.X-mx, b.Max.Y-my)
}

// clearedFraction estimates erased coverage from sampled alpha values.
func clearedFraction(samples []uint8, method WipeMethod, cutoff uint8) float64 {
	if len(samples) == 0 {
		return 0
	}
	switch method {
	case WipeMethodAverage:
		var sum int
		for _, a := range samples {
			sum += int(a)
		}
		return 1 - float64(sum)/float64(len(samples)*255)
	default:
		cleared := 0
		for _, a := range samples {
			if a < cutoff {
				cleared++
			}
		}
		return float64(cleared) / float64(len(samples))
	}
}
