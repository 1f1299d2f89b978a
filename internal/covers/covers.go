// Package covers renders playlist cover art for month playlists.
package covers

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/monthlify/internal/shared"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultSize    = 640
	DefaultQuality = 90
)

type gradient struct {
	top, bottom color.RGBA
}

var presets = []gradient{
	{color.RGBA{0, 180, 255, 255}, color.RGBA{255, 0, 150, 255}},    // blue to pink
	{color.RGBA{255, 95, 109, 255}, color.RGBA{255, 195, 113, 255}}, // coral to peach
	{color.RGBA{131, 58, 180, 255}, color.RGBA{253, 29, 29, 255}},   // purple to red
	{color.RGBA{29, 253, 149, 255}, color.RGBA{29, 87, 253, 255}},   // green to blue
	{color.RGBA{255, 204, 0, 255}, color.RGBA{255, 82, 82, 255}},    // yellow to red
}

// Renderer draws square JPEG covers. The same token always renders the same image.
type Renderer struct {
	Size    int
	Quality int
}

// NewRenderer returns a Renderer producing 640x640 covers.
func NewRenderer() *Renderer {
	return &Renderer{Size: DefaultSize, Quality: DefaultQuality}
}

// ParseToken splits a YYYY-MM token into its month and year.
func ParseToken(token string) (time.Month, int, error) {
	year, month, ok := strings.Cut(token, "-")
	if !ok || len(year) != 4 || len(month) != 2 {
		return 0, 0, fmt.Errorf("%w: cover token must be YYYY-MM, got %q", shared.ErrInvalidInput, token)
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid year %q", shared.ErrInvalidInput, year)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("%w: invalid month %q", shared.ErrInvalidInput, month)
	}
	return time.Month(m), y, nil
}

// Render returns the JPEG cover for token.
func (r *Renderer) Render(token string) ([]byte, error) {
	img, err := r.Image(token)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality()}); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

// Image draws the cover for token: a vertical gradient, three translucent circles, the month and the year.
func (r *Renderer) Image(token string) (*image.RGBA, error) {
	month, year, err := ParseToken(token)
	if err != nil {
		return nil, err
	}

	size := r.size()
	h := fnv.New64a()
	h.Write([]byte(token))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>7|1))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	fillGradient(img, presets[seed%uint64(len(presets))])

	white := image.NewUniform(color.NRGBA{255, 255, 255, 60})
	for range 3 {
		diameter := size/3 + rng.IntN(size/2-size/3+1)
		x := rng.IntN(size+1) - diameter/2
		y := rng.IntN(size+1) - diameter/2
		c := &circle{center: image.Pt(x+diameter/2, y+diameter/2), radius: diameter / 2}
		draw.DrawMask(img, img.Bounds(), white, image.Point{}, c, image.Point{}, draw.Over)
	}

	padding := size / 12
	label := strings.ToUpper(month.String()[:3])
	drawText(img, label, image.Pt(padding, padding), size/5, color.NRGBA{255, 255, 255, 255}, color.NRGBA{0, 0, 0, 150})
	drawText(img, strconv.Itoa(year), image.Pt(padding, padding+size/4), size/7, color.NRGBA{235, 235, 235, 255}, color.NRGBA{0, 0, 0, 140})

	return img, nil
}

func (r *Renderer) size() int {
	if r.Size <= 0 {
		return DefaultSize
	}
	return r.Size
}

func (r *Renderer) quality() int {
	if r.Quality <= 0 || r.Quality > 100 {
		return DefaultQuality
	}
	return r.Quality
}

func fillGradient(img *image.RGBA, g gradient) {
	b := img.Bounds()
	height := b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		c := color.RGBA{
			R: lerp(g.top.R, g.bottom.R, y, height),
			G: lerp(g.top.G, g.bottom.G, y, height),
			B: lerp(g.top.B, g.bottom.B, y, height),
			A: 255,
		}
		draw.Draw(img, image.Rect(b.Min.X, y, b.Max.X, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
}

func lerp(from, to uint8, step, steps int) uint8 {
	return uint8(int(from) + (int(to)-int(from))*step/steps)
}

// drawText draws s with its top-left corner at at, scaled to height pixels, over a soft shadow.
func drawText(dst draw.Image, s string, at image.Point, height int, fg, shadow color.NRGBA) {
	mask := textMask(s, height)

	blurred := softened(mask, 4)
	offset := at.Add(image.Pt(height/24, height/24))
	draw.DrawMask(dst, blurred.Bounds().Add(offset), image.NewUniform(shadow), image.Point{}, blurred, image.Point{}, draw.Over)

	draw.DrawMask(dst, mask.Bounds().Add(at), image.NewUniform(fg), image.Point{}, mask, image.Point{}, draw.Over)
}

// textMask renders s with the 7x13 bitmap face and scales it up to height pixels.
func textMask(s string, height int) *image.Alpha {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	small := image.NewAlpha(image.Rect(0, 0, width, face.Height))

	d := font.Drawer{Dst: small, Src: image.Opaque, Face: face, Dot: fixed.P(0, face.Ascent)}
	d.DrawString(s)

	scaled := image.NewAlpha(image.Rect(0, 0, width*height/face.Height, height))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), small, small.Bounds(), draw.Src, nil)
	return scaled
}

// softened blurs a mask by shrinking it by factor and scaling it back up bilinearly.
func softened(mask *image.Alpha, factor int) *image.Alpha {
	b := mask.Bounds()
	small := image.NewAlpha(image.Rect(0, 0, max(1, b.Dx()/factor), max(1, b.Dy()/factor)))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), mask, b, draw.Src, nil)

	out := image.NewAlpha(b)
	draw.ApproxBiLinear.Scale(out, b, small, small.Bounds(), draw.Src, nil)
	return out
}

// circle is an alpha mask that is opaque inside the circle.
type circle struct {
	center image.Point
	radius int
}

func (c *circle) ColorModel() color.Model {
	return color.AlphaModel
}

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.center.X-c.radius, c.center.Y-c.radius, c.center.X+c.radius, c.center.Y+c.radius)
}

func (c *circle) At(x, y int) color.Color {
	dx, dy := x-c.center.X, y-c.center.Y
	if dx*dx+dy*dy <= c.radius*c.radius {
		return color.Alpha{255}
	}
	return color.Alpha{0}
}
