package customizer

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Slider bounds, in percent except blur which is in pixels.
const (
	MinBrightness = 50
	MaxBrightness = 150
	MinContrast   = 50
	MaxContrast   = 150
	MinSaturation = 0
	MaxSaturation = 200
	MinBlur       = 0.0
	MaxBlur       = 10.0
	BlurStep      = 0.5
)

type opKind int

const (
	opBrightness opKind = iota
	opContrast
	opSaturate
	opSepia
	opGrayscale
	opHueRotate
	opBlur
)

type op struct {
	kind   opKind
	amount float64
}

func (o op) css() string {
	switch o.kind {
	case opBrightness:
		return fmt.Sprintf("brightness(%g)", o.amount)
	case opContrast:
		return fmt.Sprintf("contrast(%g)", o.amount)
	case opSaturate:
		return fmt.Sprintf("saturate(%g)", o.amount)
	case opSepia:
		return fmt.Sprintf("sepia(%g)", o.amount)
	case opGrayscale:
		return fmt.Sprintf("grayscale(%g)", o.amount)
	case opHueRotate:
		return fmt.Sprintf("hue-rotate(%gdeg)", o.amount)
	case opBlur:
		return fmt.Sprintf("blur(%gpx)", o.amount)
	default:
		return ""
	}
}

// Preset is a named filter chain applied before the sliders.
type Preset struct {
	Name  string
	Label string
	ops   []op
}

// CSS renders the preset chain in CSS filter syntax, "none" for the original.
func (p Preset) CSS() string {
	if len(p.ops) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(p.ops))
	for _, o := range p.ops {
		parts = append(parts, o.css())
	}
	return strings.Join(parts, " ")
}

var presets = []Preset{
	{Name: "original", Label: "Original"},
	{Name: "vintage", Label: "Vintage", ops: []op{{opSepia, 0.3}, {opContrast, 1.1}, {opBrightness, 0.9}}},
	{Name: "bw", Label: "Black & White", ops: []op{{opGrayscale, 1}}},
	{Name: "cool", Label: "Cool", ops: []op{{opHueRotate, 180}, {opSaturate, 0.8}}},
	{Name: "warm", Label: "Warm", ops: []op{{opSepia, 0.2}, {opSaturate, 1.2}, {opHueRotate, -10}}},
	{Name: "dramatic", Label: "Dramatic", ops: []op{{opContrast, 1.3}, {opSaturate, 1.2}, {opBrightness, 0.8}}},
	{Name: "soft", Label: "Soft", ops: []op{{opBlur, 0.5}, {opBrightness, 1.1}, {opSaturate, 0.9}}},
	{Name: "vivid", Label: "Vivid", ops: []op{{opSaturate, 1.5}, {opContrast, 1.1}}},
}

// Presets lists the available presets in display order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

func lookupPreset(name string) (Preset, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Filter is the active preset plus the four manual sliders.
type Filter struct {
	Preset     string
	Brightness float64
	Contrast   float64
	Saturation float64
	Blur       float64
}

// DefaultFilter is the untouched image.
func DefaultFilter() Filter {
	return Filter{Preset: "original", Brightness: 100, Contrast: 100, Saturation: 100}
}

func (f Filter) ops() []op {
	var chain []op
	if p, ok := lookupPreset(f.Preset); ok {
		chain = append(chain, p.ops...)
	}
	return append(chain,
		op{opBrightness, f.Brightness / 100},
		op{opContrast, f.Contrast / 100},
		op{opSaturate, f.Saturation / 100},
		op{opBlur, f.Blur},
	)
}

// IsIdentity reports whether the filter leaves pixels unchanged.
func (f Filter) IsIdentity() bool {
	p, _ := lookupPreset(f.Preset)
	return len(p.ops) == 0 && f == Filter{Preset: f.Preset, Brightness: 100, Contrast: 100, Saturation: 100}
}

// CSS renders the full chain the way a browser canvas filter would take it.
func (f Filter) CSS() string {
	parts := make([]string, 0, 8)
	if p, ok := lookupPreset(f.Preset); ok && len(p.ops) > 0 {
		parts = append(parts, p.CSS())
	}
	parts = append(parts, fmt.Sprintf("brightness(%g%%) contrast(%g%%) saturate(%g%%) blur(%gpx)",
		f.Brightness, f.Contrast, f.Saturation, f.Blur))
	return strings.Join(parts, " ")
}

// apply runs the chain over img in place.
func (f Filter) apply(img *image.NRGBA) {
	if f.IsIdentity() {
		return
	}
	for _, o := range f.ops() {
		if o.kind == opBlur {
			boxBlur(img, o.amount)
			continue
		}
		fn := o.colorFunc()
		if fn == nil {
			continue
		}
		pix := img.Pix
		for i := 0; i+3 < len(pix); i += 4 {
			r, g, b := fn(float64(pix[i])/255, float64(pix[i+1])/255, float64(pix[i+2])/255)
			pix[i] = toByte(r)
			pix[i+1] = toByte(g)
			pix[i+2] = toByte(b)
		}
	}
}

type colorFunc func(r, g, b float64) (float64, float64, float64)

func (o op) colorFunc() colorFunc {
	a := o.amount
	switch o.kind {
	case opBrightness:
		if a == 1 {
			return nil
		}
		return func(r, g, b float64) (float64, float64, float64) {
			return r * a, g * a, b * a
		}
	case opContrast:
		if a == 1 {
			return nil
		}
		return func(r, g, b float64) (float64, float64, float64) {
			return (r-0.5)*a + 0.5, (g-0.5)*a + 0.5, (b-0.5)*a + 0.5
		}
	case opSaturate:
		if a == 1 {
			return nil
		}
		return matrix([9]float64{
			0.213 + 0.787*a, 0.715 - 0.715*a, 0.072 - 0.072*a,
			0.213 - 0.213*a, 0.715 + 0.285*a, 0.072 - 0.072*a,
			0.213 - 0.213*a, 0.715 - 0.715*a, 0.072 + 0.928*a,
		})
	case opSepia:
		s := 1 - clamp(a, 0, 1)
		return matrix([9]float64{
			0.393 + 0.607*s, 0.769 - 0.769*s, 0.189 - 0.189*s,
			0.349 - 0.349*s, 0.686 + 0.314*s, 0.168 - 0.168*s,
			0.272 - 0.272*s, 0.534 - 0.534*s, 0.131 + 0.869*s,
		})
	case opGrayscale:
		s := 1 - clamp(a, 0, 1)
		return matrix([9]float64{
			0.2126 + 0.7874*s, 0.7152 - 0.7152*s, 0.0722 - 0.0722*s,
			0.2126 - 0.2126*s, 0.7152 + 0.2848*s, 0.0722 - 0.0722*s,
			0.2126 - 0.2126*s, 0.7152 - 0.7152*s, 0.0722 + 0.9278*s,
		})
	case opHueRotate:
		rad := a * math.Pi / 180
		c, s := math.Cos(rad), math.Sin(rad)
		return matrix([9]float64{
			0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928,
			0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283,
			0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072,
		})
	default:
		return nil
	}
}

func matrix(m [9]float64) colorFunc {
	return func(r, g, b float64) (float64, float64, float64) {
		return clamp(m[0]*r+m[1]*g+m[2]*b, 0, 1),
			clamp(m[3]*r+m[4]*g+m[5]*b, 0, 1),
			clamp(m[6]*r+m[7]*g+m[8]*b, 0, 1)
	}
}

// boxBlur approximates a gaussian of the given deviation with one separable box pass.
func boxBlur(img *image.NRGBA, sigma float64) {
	if sigma <= 0 {
		return
	}
	radius := int(math.Round(sigma))
	if radius < 1 {
		radius = 1
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	tmp := make([]uint8, len(img.Pix))
	blurPass(img.Pix, tmp, w, h, img.Stride, radius, true)
	blurPass(tmp, img.Pix, w, h, img.Stride, radius, false)
}

func blurPass(src, dst []uint8, w, h, stride, radius int, horizontal bool) {
	outer, inner := h, w
	if !horizontal {
		outer, inner = w, h
	}
	index := func(o, i int) int {
		if horizontal {
			return o*stride + i*4
		}
		return i*stride + o*4
	}
	span := float64(2*radius + 1)
	for o := 0; o < outer; o++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += float64(src[index(o, clampInt(k, 0, inner-1))+c])
			}
			for i := 0; i < inner; i++ {
				dst[index(o, i)+c] = toByte(sum / span / 255)
				drop := clampInt(i-radius, 0, inner-1)
				add := clampInt(i+radius+1, 0, inner-1)
				sum += float64(src[index(o, add)+c]) - float64(src[index(o, drop)+c])
			}
		}
	}
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 1) * 255))
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

func clampInt(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
