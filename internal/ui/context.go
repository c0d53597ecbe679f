package ui

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

type Vertex struct {
	Position mgl32.Vec2
	TexCoord mgl32.Vec2
	Color    mgl32.Vec4
}

const (
	VertexStride   = int(unsafe.Sizeof(Vertex{}))
	PositionOffset = int(unsafe.Offsetof(Vertex{}.Position))
	TexCoordOffset = int(unsafe.Offsetof(Vertex{}.TexCoord))
	ColorOffset    = int(unsafe.Offsetof(Vertex{}.Color))
)

var (
	ColorText     = mgl32.Vec4{0.92, 0.92, 0.92, 1}
	ColorTitle    = mgl32.Vec4{1, 1, 1, 1}
	ColorTitleBar = mgl32.Vec4{0.16, 0.29, 0.48, 0.95}
	ColorPanel    = mgl32.Vec4{0.06, 0.06, 0.06, 0.85}
	ColorBar      = mgl32.Vec4{0.26, 0.59, 0.98, 1}
	ColorBarTrack = mgl32.Vec4{0.2, 0.2, 0.2, 1}
)

const (
	panelPadding = 8
	panelMinW    = 220
	barHeight    = 8
)

// DrawData is the geometry of one UI frame in pixel coordinates with a
// top-left origin.
type DrawData struct {
	DisplayWidth  float32
	DisplayHeight float32
	Vertices      []Vertex
	Indices       []uint32
}

func (d DrawData) Empty() bool {
	return len(d.Indices) == 0
}

type quad struct {
	x0, y0, x1, y1 float32
	u0, v0, u1, v1 float32
	color          mgl32.Vec4
}

type panel struct {
	x, y      float32
	width     float32
	bgIndex   int
	titleBarH float32
}

// Context is an immediate-mode builder: widgets are re-declared every frame
// and turned into textured quads against the atlas.
type Context struct {
	atlas *Atlas
	font  *Font

	displayW, displayH float32

	background []quad
	foreground []quad

	cursor mgl32.Vec2
	panel  *panel
}

func NewContext(atlas *Atlas) *Context {
	return &Context{
		atlas: atlas,
		font:  atlas.Default(),
	}
}

func (c *Context) Atlas() *Atlas {
	return c.atlas
}

func (c *Context) NewFrame(width, height float32) {
	c.displayW = width
	c.displayH = height
	c.background = c.background[:0]
	c.foreground = c.foreground[:0]
	c.panel = nil
	c.font = c.atlas.Default()
}

// SetFont selects a loaded font by index; out of range selects the default.
func (c *Context) SetFont(index int) {
	if index < 0 || index >= len(c.atlas.Fonts) {
		c.font = c.atlas.Default()
		return
	}
	c.font = c.atlas.Fonts[index]
}

// Begin opens a panel at (x, y). Its background is sized at End.
func (c *Context) Begin(title string, x, y float32) {
	if c.panel != nil {
		c.End()
	}

	p := &panel{x: x, y: y, width: panelMinW, titleBarH: c.font.LineHeight + panelPadding}
	p.bgIndex = len(c.background)
	c.background = append(c.background, c.solid(0, 0, 0, 0, ColorPanel), c.solid(0, 0, 0, 0, ColorTitleBar))
	c.panel = p

	c.cursor = mgl32.Vec2{x + panelPadding, y + panelPadding/2}
	c.text(title, ColorTitle)
	c.cursor[1] += panelPadding / 2
}

func (c *Context) Text(format string, args ...any) {
	c.text(fmt.Sprintf(format, args...), ColorText)
}

// Bar draws a horizontal progress bar filled to fraction.
func (c *Context) Bar(fraction float32) {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	x0, y0 := c.cursor[0], c.cursor[1]+2
	width := float32(panelMinW - 2*panelPadding)
	if c.panel != nil {
		width = c.panel.width - 2*panelPadding
	}

	c.foreground = append(c.foreground,
		c.solid(x0, y0, x0+width, y0+barHeight, ColorBarTrack),
		c.solid(x0, y0, x0+width*fraction, y0+barHeight, ColorBar),
	)
	c.cursor[1] += barHeight + 4
}

func (c *Context) Separator() {
	c.cursor[1] += panelPadding / 2
}

func (c *Context) End() {
	p := c.panel
	if p == nil {
		return
	}

	bottom := c.cursor[1] + panelPadding/2
	c.background[p.bgIndex] = c.solid(p.x, p.y, p.x+p.width, bottom, ColorPanel)
	c.background[p.bgIndex+1] = c.solid(p.x, p.y, p.x+p.width, p.y+p.titleBarH, ColorTitleBar)
	c.panel = nil
}

func (c *Context) text(s string, color mgl32.Vec4) {
	penX := c.cursor[0]
	baseline := c.cursor[1] + c.font.Ascent

	for _, r := range s {
		g := c.font.Glyph(r)
		if g.Visible {
			c.foreground = append(c.foreground, quad{
				x0: penX + g.X0, y0: baseline + g.Y0,
				x1: penX + g.X1, y1: baseline + g.Y1,
				u0: g.U0, v0: g.V0, u1: g.U1, v1: g.V1,
				color: color,
			})
		}
		penX += g.Advance
	}

	if p := c.panel; p != nil {
		if w := penX - p.x + panelPadding; w > p.width {
			p.width = w
		}
	}
	c.cursor[1] += c.font.LineHeight
}

func (c *Context) solid(x0, y0, x1, y1 float32, color mgl32.Vec4) quad {
	u, v := c.atlas.WhiteU, c.atlas.WhiteV
	return quad{x0: x0, y0: y0, x1: x1, y1: y1, u0: u, v0: v, u1: u, v1: v, color: color}
}

// Render closes any open panel and emits the frame's geometry, backgrounds
// first.
func (c *Context) Render() DrawData {
	c.End()

	total := len(c.background) + len(c.foreground)
	data := DrawData{
		DisplayWidth:  c.displayW,
		DisplayHeight: c.displayH,
		Vertices:      make([]Vertex, 0, total*4),
		Indices:       make([]uint32, 0, total*6),
	}

	for _, layer := range [][]quad{c.background, c.foreground} {
		for _, q := range layer {
			base := uint32(len(data.Vertices))
			data.Vertices = append(data.Vertices,
				Vertex{Position: mgl32.Vec2{q.x0, q.y0}, TexCoord: mgl32.Vec2{q.u0, q.v0}, Color: q.color},
				Vertex{Position: mgl32.Vec2{q.x1, q.y0}, TexCoord: mgl32.Vec2{q.u1, q.v0}, Color: q.color},
				Vertex{Position: mgl32.Vec2{q.x1, q.y1}, TexCoord: mgl32.Vec2{q.u1, q.v1}, Color: q.color},
				Vertex{Position: mgl32.Vec2{q.x0, q.y1}, TexCoord: mgl32.Vec2{q.u0, q.v1}, Color: q.color},
			)
			data.Indices = append(data.Indices, base, base+1, base+2, base+2, base+3, base)
		}
	}

	return data
}

// Projection maps pixel coordinates to clip space: scale then translate.
func (d DrawData) Projection() (scale, translate mgl32.Vec2) {
	if d.DisplayWidth <= 0 || d.DisplayHeight <= 0 {
		return mgl32.Vec2{}, mgl32.Vec2{-1, -1}
	}
	return mgl32.Vec2{2 / d.DisplayWidth, 2 / d.DisplayHeight}, mgl32.Vec2{-1, -1}
}
