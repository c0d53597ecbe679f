package ui

import (
	"image"
	"image/draw"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	atlasWidth = 1024
	glyphPad   = 1
	firstRune  = ' '
	lastRune   = '~'
)

type Glyph struct {
	Advance float32
	// Bounds relative to the pen position on the baseline.
	X0, Y0, X1, Y1 float32
	U0, V0, U1, V1 float32
	Visible        bool
}

type Font struct {
	Name       string
	Size       float64
	Ascent     float32
	LineHeight float32
	glyphs     map[rune]Glyph
	fallback   Glyph
}

func (f *Font) Glyph(r rune) Glyph {
	if g, ok := f.glyphs[r]; ok {
		return g
	}
	return f.fallback
}

// Measure returns the pen advance of s.
func (f *Font) Measure(s string) float32 {
	var w float32
	for _, r := range s {
		w += f.Glyph(r).Advance
	}
	return w
}

// Atlas is a single RGBA8 texture holding every rasterized glyph of every
// loaded font, plus a white texel used for solid fills.
type Atlas struct {
	Width  int
	Height int
	Pixels []byte

	Fonts []*Font
	// WhiteU, WhiteV address the centre of the white texel.
	WhiteU, WhiteV float32
}

// Default is the first font loaded.
func (a *Atlas) Default() *Font {
	return a.Fonts[0]
}

type FontSource struct {
	Name string
	Data []byte
}

// LoadAtlas reads every TrueType file and rasterizes each at every size.
func LoadAtlas(paths []string, sizes []float64) (*Atlas, error) {
	var sources []FontSource
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "load font")
		}
		sources = append(sources, FontSource{Name: path, Data: data})
	}
	return BuildAtlas(sources, sizes)
}

type placed struct {
	font  *Font
	r     rune
	glyph Glyph
	mask  *image.Alpha
	x, y  int
}

func BuildAtlas(sources []FontSource, sizes []float64) (*Atlas, error) {
	if len(sources) == 0 || len(sizes) == 0 {
		return nil, errors.New("atlas needs at least one font and one size")
	}

	atlas := &Atlas{Width: atlasWidth}
	var glyphs []*placed

	// Reserve a white block at the origin for solid fills.
	pk := packer{width: atlasWidth}
	pk.place(2+glyphPad, 2+glyphPad)

	for _, src := range sources {
		parsed, err := opentype.Parse(src.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "parse font %s", src.Name)
		}

		for _, size := range sizes {
			face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
				Size:    size,
				DPI:     72,
				Hinting: font.HintingFull,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "font %s at %vpt", src.Name, size)
			}

			f, placedGlyphs := rasterize(face, src.Name, size, &pk)
			face.Close()

			atlas.Fonts = append(atlas.Fonts, f)
			glyphs = append(glyphs, placedGlyphs...)
		}
	}

	atlas.Height = nextPowerOfTwo(pk.height())
	img := image.NewNRGBA(image.Rect(0, 0, atlas.Width, atlas.Height))
	draw.Draw(img, image.Rect(0, 0, 2, 2), image.White, image.Point{}, draw.Src)

	for _, p := range glyphs {
		b := p.mask.Bounds()
		dst := image.Rect(p.x, p.y, p.x+b.Dx(), p.y+b.Dy())
		draw.DrawMask(img, dst, image.White, image.Point{}, p.mask, b.Min, draw.Over)

		g := p.glyph
		g.U0 = float32(dst.Min.X) / float32(atlas.Width)
		g.V0 = float32(dst.Min.Y) / float32(atlas.Height)
		g.U1 = float32(dst.Max.X) / float32(atlas.Width)
		g.V1 = float32(dst.Max.Y) / float32(atlas.Height)
		p.font.glyphs[p.r] = g
		if p.r == '?' {
			p.font.fallback = g
		}
	}

	atlas.Pixels = img.Pix
	atlas.WhiteU = 1 / float32(atlas.Width)
	atlas.WhiteV = 1 / float32(atlas.Height)

	return atlas, nil
}

func rasterize(face font.Face, name string, size float64, pk *packer) (*Font, []*placed) {
	metrics := face.Metrics()
	f := &Font{
		Name:       name,
		Size:       size,
		Ascent:     fixedToFloat(metrics.Ascent),
		LineHeight: fixedToFloat(metrics.Height),
		glyphs:     make(map[rune]Glyph),
	}

	var out []*placed
	for r := rune(firstRune); r <= lastRune; r++ {
		dr, mask, maskp, advance, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		g := Glyph{
			Advance: fixedToFloat(advance),
			X0:      float32(dr.Min.X),
			Y0:      float32(dr.Min.Y),
			X1:      float32(dr.Max.X),
			Y1:      float32(dr.Max.Y),
		}

		if dr.Empty() {
			f.glyphs[r] = g
			continue
		}
		g.Visible = true

		// The face reuses its mask buffer between calls.
		copied := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
		draw.Draw(copied, copied.Bounds(), mask, maskp, draw.Src)

		x, y := pk.place(dr.Dx()+glyphPad, dr.Dy()+glyphPad)
		out = append(out, &placed{font: f, r: r, glyph: g, mask: copied, x: x, y: y})
		f.glyphs[r] = g
	}

	return f, out
}

// packer places rectangles on horizontal shelves.
type packer struct {
	width        int
	x, y, shelfH int
}

func (p *packer) place(w, h int) (int, int) {
	if p.x+w > p.width {
		p.x = 0
		p.y += p.shelfH
		p.shelfH = 0
	}
	x, y := p.x, p.y
	p.x += w
	if h > p.shelfH {
		p.shelfH = h
	}
	return x, y
}

func (p *packer) height() int {
	return p.y + p.shelfH
}

func nextPowerOfTwo(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
