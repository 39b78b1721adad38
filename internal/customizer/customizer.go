// Package customizer composes a personalised card preview: an uploaded photo run
// through a filter chain with a positioned text overlay, flattened to PNG data URLs.
package customizer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"mime"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/suggestions"
)

const (
	defaultPreviewWidth  = 600
	defaultPreviewHeight = 400
)

var (
	ErrUnknownPreset = errors.New("customizer: unknown filter preset")
	ErrUnknownFont   = errors.New("customizer: unknown font family")
	ErrUnknownColor  = errors.New("customizer: colour is not in the palette")
	ErrInvalidImage  = errors.New("customizer: image could not be decoded")
)

var dataURLPattern = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

// gradient endpoints for the blank canvas.
var (
	canvasFrom = color.NRGBA{R: 0xd6, G: 0xe4, B: 0xda, A: 0xff}
	canvasTo   = color.NRGBA{R: 0xf3, G: 0xdc, B: 0xd4, A: 0xff}
)

// Result is what Save hands back to the order flow.
type Result struct {
	Text string
	// Image is the filtered photo as a PNG data URL, empty when no photo was loaded.
	Image string
	// Preview is the flattened photo plus text overlay as a PNG data URL.
	Preview      string
	FontSize     int
	FontFamily   string
	TextPosition Position
	TextColor    string
	Filter       string
}

// Session is one editing session. It is not safe for concurrent use.
type Session struct {
	previewWidth int

	source image.Image
	filter Filter

	text       string
	fontSize   int
	fontFamily string
	textColor  string
	position   Position
}

// Option customises a Session.
type Option func(*Session)

// WithPreviewWidth sets the width loaded images are scaled to.
func WithPreviewWidth(width int) Option {
	return func(s *Session) {
		if width > 0 {
			s.previewWidth = width
		}
	}
}

// WithText seeds the overlay text.
func WithText(text string) Option {
	return func(s *Session) {
		s.SetText(text)
	}
}

// NewSession starts an empty session with default overlay settings.
func NewSession(opts ...Option) *Session {
	s := &Session{previewWidth: defaultPreviewWidth}
	s.reset()
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Session) reset() {
	s.source = nil
	s.filter = DefaultFilter()
	s.text = ""
	s.fontSize = DefaultFontSize
	s.fontFamily = DefaultFont
	s.textColor = DefaultColor
	s.position = DefaultPosition
}

// Load replaces the photo. Content that is not image/* is ignored and reports false.
func (s *Session) Load(contentType string, data []byte) (bool, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return false, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if img.Bounds().Dx() != s.previewWidth {
		img = resize.Resize(uint(s.previewWidth), 0, img, resize.Lanczos3)
	}
	s.source = img
	return true, nil
}

// LoadDataURL is Load for a base64 data URL.
func (s *Session) LoadDataURL(dataURL string) (bool, error) {
	m := dataURLPattern.FindStringSubmatch(strings.TrimSpace(dataURL))
	if m == nil {
		return false, nil
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return s.Load(m[1], data)
}

// HasImage reports whether a photo is loaded.
func (s *Session) HasImage() bool { return s.source != nil }

// ApplyPreset selects a preset. Slider values are kept and apply on top of it.
func (s *Session) ApplyPreset(name string) error {
	p, ok := lookupPreset(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	s.filter.Preset = p.Name
	return nil
}

func (s *Session) SetBrightness(v float64) {
	s.filter.Brightness = math.Round(clamp(v, MinBrightness, MaxBrightness))
}

func (s *Session) SetContrast(v float64) {
	s.filter.Contrast = math.Round(clamp(v, MinContrast, MaxContrast))
}

func (s *Session) SetSaturation(v float64) {
	s.filter.Saturation = math.Round(clamp(v, MinSaturation, MaxSaturation))
}

// SetBlur snaps v to the nearest half pixel within range.
func (s *Session) SetBlur(v float64) {
	s.filter.Blur = math.Round(clamp(v, MinBlur, MaxBlur)/BlurStep) * BlurStep
}

// ResetFilters returns to the original image.
func (s *Session) ResetFilters() { s.filter = DefaultFilter() }

// Filter returns the current filter settings.
func (s *Session) Filter() Filter { return s.filter }

// SetText replaces the overlay text, truncated to MaxTextRunes.
func (s *Session) SetText(text string) {
	if utf8.RuneCountInString(text) > MaxTextRunes {
		text = string([]rune(text)[:MaxTextRunes])
	}
	s.text = text
}

func (s *Session) Text() string { return s.text }

func (s *Session) SetFontFamily(family string) error {
	family = strings.ToLower(strings.TrimSpace(family))
	if !slices.Contains(Fonts, family) {
		return fmt.Errorf("%w: %q", ErrUnknownFont, family)
	}
	s.fontFamily = family
	return nil
}

// SetFontSize clamps size into [MinFontSize, MaxFontSize].
func (s *Session) SetFontSize(size int) {
	s.fontSize = clampInt(size, MinFontSize, MaxFontSize)
}

func (s *Session) SetTextColor(hex string) error {
	hex = strings.ToLower(strings.TrimSpace(hex))
	if !slices.Contains(Colors, hex) {
		return fmt.Errorf("%w: %q", ErrUnknownColor, hex)
	}
	s.textColor = hex
	return nil
}

// Click positions the text at a pixel inside a preview of width x height. Coordinates
// outside the preview clamp to its edges; non-finite input leaves the text where it is.
func (s *Session) Click(x, y, width, height float64) Position {
	if width <= 0 || height <= 0 || !finite(x, y, width, height) {
		return s.position
	}
	s.position = Position{X: x / width * 100, Y: y / height * 100}.clamped()
	return s.position
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SetPosition places the text anchor directly, in percent.
func (s *Session) SetPosition(p Position) { s.position = p.clamped() }

func (s *Session) Position() Position { return s.position }

// ApplySuggestion copies a ready-made overlay into the session. Values outside the
// font or palette lists are kept as they are.
func (s *Session) ApplySuggestion(sg suggestions.Suggestion) {
	s.SetText(sg.Text)
	if sg.FontSize > 0 {
		s.SetFontSize(sg.FontSize)
	}
	_ = s.SetFontFamily(sg.FontFamily)
	_ = s.SetTextColor(sg.TextColor)
	s.SetPosition(Position{X: sg.Position.X, Y: sg.Position.Y})
}

// Render flattens the filtered photo, or a blank gradient canvas, with the text overlay.
func (s *Session) Render() (image.Image, error) {
	canvas := s.filtered()
	if strings.TrimSpace(s.text) != "" {
		col, err := parseHexColor(s.textColor)
		if err != nil {
			return nil, err
		}
		drawText(canvas, s.text, s.fontSize, col, s.position)
	}
	return canvas, nil
}

func (s *Session) filtered() *image.NRGBA {
	if s.source == nil {
		return gradientCanvas(s.previewWidth, s.previewWidth*defaultPreviewHeight/defaultPreviewWidth)
	}
	b := s.source.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), s.source, b.Min, draw.Src)
	s.filter.apply(out)
	return out
}

// Save flattens the session into a Result.
func (s *Session) Save() (Result, error) {
	res := Result{
		Text:         s.text,
		FontSize:     s.fontSize,
		FontFamily:   s.fontFamily,
		TextPosition: s.position,
		TextColor:    s.textColor,
		Filter:       s.filter.CSS(),
	}
	if s.source != nil {
		img, err := encodeDataURL(s.filtered())
		if err != nil {
			return Result{}, err
		}
		res.Image = img
	}
	flat, err := s.Render()
	if err != nil {
		return Result{}, err
	}
	if res.Preview, err = encodeDataURL(flat); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Cancel discards every edit.
func (s *Session) Cancel() { s.reset() }

func encodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("customizer: encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL returns the content type and bytes of a base64 data URL.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	m := dataURLPattern.FindStringSubmatch(strings.TrimSpace(dataURL))
	if m == nil {
		return "", nil, errors.New("customizer: not a base64 data url")
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, fmt.Errorf("customizer: decode data url: %w", err)
	}
	return m[1], data, nil
}

func gradientCanvas(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	span := float64(width + height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := float64(x+y) / span
			img.SetNRGBA(x, y, color.NRGBA{
				R: lerp(canvasFrom.R, canvasTo.R, t),
				G: lerp(canvasFrom.G, canvasTo.G, t),
				B: lerp(canvasFrom.B, canvasTo.B, t),
				A: 0xff,
			})
		}
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
