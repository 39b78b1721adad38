package customizer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Overlay limits and defaults.
const (
	MaxTextRunes    = 200
	MinFontSize     = 12
	MaxFontSize     = 72
	DefaultFontSize = 24
	DefaultFont     = "serif"
	DefaultColor    = "#ffffff"
	shadowOffset    = 2
	textMaxWidth    = 0.9
)

// Fonts are the selectable font families. The family is recorded for the print
// pipeline; the preview renders every family with one bitmap face.
var Fonts = []string{"serif", "sans-serif", "cursive", "monospace"}

// Colors is the text colour palette.
var Colors = []string{"#ffffff", "#000000", "#dc2626", "#16a34a", "#2563eb", "#9333ea", "#ea580c"}

var shadowColor = color.NRGBA{A: 128}

// Position anchors the centre of the text block, in percent of the preview.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultPosition sits the text near the bottom centre.
var DefaultPosition = Position{X: 50, Y: 80}

func (p Position) clamped() Position {
	return Position{X: clamp(p.X, 0, 100), Y: clamp(p.Y, 0, 100)}
}

func parseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("customizer: invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("customizer: invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// drawText renders text centred at pos onto dst with a drop shadow. The glyphs are
// drawn with a 13px bitmap face then scaled to size.
func drawText(dst draw.Image, text string, size int, col color.Color, pos Position) {
	face := basicfont.Face7x13
	scale := float64(size) / float64(face.Height)
	bounds := dst.Bounds()

	maxWidth := int(float64(bounds.Dx()) * textMaxWidth / scale)
	lines := wrap(face, text, maxWidth)
	if len(lines) == 0 {
		return
	}

	blockW := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > blockW {
			blockW = w
		}
	}
	blockH := face.Height * len(lines)
	if blockW == 0 {
		return
	}

	glyphs := image.NewGray(image.Rect(0, 0, blockW, blockH))
	d := &font.Drawer{Dst: glyphs, Src: image.White, Face: face}
	for i, line := range lines {
		w := font.MeasureString(face, line).Ceil()
		d.Dot = fixed.P((blockW-w)/2, i*face.Height+face.Ascent)
		d.DrawString(line)
	}

	outW := uint(float64(blockW) * scale)
	outH := uint(float64(blockH) * scale)
	if outW == 0 || outH == 0 {
		return
	}
	mask := grayToAlpha(resize.Resize(outW, outH, glyphs, resize.Bilinear))

	cx := bounds.Min.X + int(float64(bounds.Dx())*pos.X/100)
	cy := bounds.Min.Y + int(float64(bounds.Dy())*pos.Y/100)
	origin := image.Pt(cx-int(outW)/2, cy-int(outH)/2)
	rect := image.Rectangle{Min: origin, Max: origin.Add(mask.Bounds().Size())}

	shadow := rect.Add(image.Pt(shadowOffset, shadowOffset))
	draw.DrawMask(dst, shadow, image.NewUniform(shadowColor), image.Point{}, mask, mask.Bounds().Min, draw.Over)
	draw.DrawMask(dst, rect, image.NewUniform(col), image.Point{}, mask, mask.Bounds().Min, draw.Over)
}

// wrap splits text into lines no wider than maxWidth pixels at the face's size.
func wrap(face font.Face, text string, maxWidth int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			candidate := line + " " + word
			if maxWidth > 0 && font.MeasureString(face, candidate).Ceil() > maxWidth {
				lines = append(lines, line)
				line = word
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

// grayToAlpha reinterprets coverage values as an alpha mask.
func grayToAlpha(img image.Image) *image.Alpha {
	if g, ok := img.(*image.Gray); ok {
		return &image.Alpha{Pix: g.Pix, Stride: g.Stride, Rect: g.Rect}
	}
	b := img.Bounds()
	out := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			out.SetAlpha(x, y, color.Alpha{A: gray.Y})
		}
	}
	return out
}
