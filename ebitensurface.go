package marionette

import (
	"image/color"
	"log"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// circleSegments is the fan resolution for keypoint dots.
const circleSegments = 16

// white pixel singleton used as the texture for solid-color triangles
// (no sync.Once — marionette is single-threaded)
var whitePixelImage *ebiten.Image

func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return whitePixelImage
}

// EbitenSurface renders marionette shapes onto an ebiten image. Shapes are
// retained and drawn back-to-front in creation order on each BatchDraw.
// Points and lines are emitted as colored triangles over a shared white
// pixel texture; quads stretch a loaded image across their four corners.
type EbitenSurface struct {
	target *ebiten.Image
	shapes []Shape
}

// NewEbitenSurface creates a surface that draws onto target.
func NewEbitenSurface(target *ebiten.Image) *EbitenSurface {
	return &EbitenSurface{target: target}
}

// SetTarget redirects drawing to a new image, keeping all shapes.
func (s *EbitenSurface) SetTarget(target *ebiten.Image) {
	s.target = target
}

func (s *EbitenSurface) NewPoint() PointShape {
	p := &ebitenPoint{ebitenShape: newEbitenShape()}
	s.shapes = append(s.shapes, p)
	return p
}

func (s *EbitenSurface) NewLine() LineShape {
	l := &ebitenLine{ebitenShape: newEbitenShape()}
	s.shapes = append(s.shapes, l)
	return l
}

func (s *EbitenSurface) NewQuad(imagePath string) QuadShape {
	q := &ebitenQuad{ebitenShape: newEbitenShape()}
	if imagePath != "" {
		img, _, err := ebitenutil.NewImageFromFile(imagePath)
		if err != nil {
			log.Printf("marionette: failed to load image %q, drawing outline only: %v", imagePath, err)
		} else {
			q.image = img
		}
	}
	s.shapes = append(s.shapes, q)
	return q
}

// Remove detaches a shape from the surface. Safe to call with a shape the
// surface no longer holds.
func (s *EbitenSurface) Remove(shape Shape) {
	for i, sh := range s.shapes {
		if sh == shape {
			s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
			return
		}
	}
}

// BatchDraw renders every visible shape onto the target.
func (s *EbitenSurface) BatchDraw() {
	if s.target == nil {
		return
	}
	for _, sh := range s.shapes {
		sh.(ebitenDrawer).draw(s.target)
	}
}

type ebitenDrawer interface {
	draw(target *ebiten.Image)
}

// ebitenShape carries the styling shared by all shape kinds.
type ebitenShape struct {
	visible     bool
	stroke      Color
	strokeWidth float64
	fill        Color
	alpha       float64
}

func newEbitenShape() ebitenShape {
	return ebitenShape{visible: true, strokeWidth: 1, alpha: 1}
}

func (b *ebitenShape) SetVisible(v bool)            { b.visible = v }
func (b *ebitenShape) SetStroke(c Color, w float64) { b.stroke, b.strokeWidth = c, w }
func (b *ebitenShape) SetFill(c Color)              { b.fill = c }
func (b *ebitenShape) SetAlpha(a float64)           { b.alpha = a }

// vertex builds an ebiten vertex at p tinted with c at the shape's alpha.
func (b *ebitenShape) vertex(p Vec2, c Color) ebiten.Vertex {
	return ebiten.Vertex{
		DstX:   float32(p.X),
		DstY:   float32(p.Y),
		SrcX:   0,
		SrcY:   0,
		ColorR: float32(c.R),
		ColorG: float32(c.G),
		ColorB: float32(c.B),
		ColorA: float32(c.A * b.alpha),
	}
}

// appendSegment emits a solid quad of the given width between a and b.
func (b *ebitenShape) appendSegment(verts []ebiten.Vertex, inds []uint16, a, bb Vec2, width float64, c Color) ([]ebiten.Vertex, []uint16) {
	dx, dy := bb.X-a.X, bb.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return verts, inds
	}
	// unit normal scaled to half width
	nx := -dy / length * width / 2
	ny := dx / length * width / 2
	base := uint16(len(verts))
	verts = append(verts,
		b.vertex(Vec2{X: a.X + nx, Y: a.Y + ny}, c),
		b.vertex(Vec2{X: bb.X + nx, Y: bb.Y + ny}, c),
		b.vertex(Vec2{X: bb.X - nx, Y: bb.Y - ny}, c),
		b.vertex(Vec2{X: a.X - nx, Y: a.Y - ny}, c),
	)
	inds = append(inds, base, base+1, base+2, base, base+2, base+3)
	return verts, inds
}

func drawTriangles(target *ebiten.Image, verts []ebiten.Vertex, inds []uint16, src *ebiten.Image) {
	if len(inds) == 0 {
		return
	}
	var op ebiten.DrawTrianglesOptions
	target.DrawTriangles(verts, inds, src, &op)
}

// ebitenPoint is a filled dot with an outline ring.
type ebitenPoint struct {
	ebitenShape
	center Vec2
	radius float64
}

func (p *ebitenPoint) SetCenter(c Vec2)    { p.center = c }
func (p *ebitenPoint) SetRadius(r float64) { p.radius = r }

func (p *ebitenPoint) draw(target *ebiten.Image) {
	if !p.visible || p.radius <= 0 {
		return
	}
	var verts []ebiten.Vertex
	var inds []uint16

	// filled fan
	center := uint16(0)
	verts = append(verts, p.vertex(p.center, p.fill))
	for i := 0; i <= circleSegments; i++ {
		a := float64(i) / circleSegments * 2 * math.Pi
		verts = append(verts, p.vertex(Vec2{
			X: p.center.X + math.Cos(a)*p.radius,
			Y: p.center.Y + math.Sin(a)*p.radius,
		}, p.fill))
		if i > 0 {
			inds = append(inds, center, uint16(i), uint16(i+1))
		}
	}

	// outline ring as short segments
	prev := Vec2{X: p.center.X + p.radius, Y: p.center.Y}
	for i := 1; i <= circleSegments; i++ {
		a := float64(i) / circleSegments * 2 * math.Pi
		next := Vec2{
			X: p.center.X + math.Cos(a)*p.radius,
			Y: p.center.Y + math.Sin(a)*p.radius,
		}
		verts, inds = p.appendSegment(verts, inds, prev, next, p.strokeWidth, p.stroke)
		prev = next
	}
	drawTriangles(target, verts, inds, ensureWhitePixel())
}

// ebitenLine is a stroked segment.
type ebitenLine struct {
	ebitenShape
	a, b Vec2
}

func (l *ebitenLine) SetEndpoints(a, b Vec2) { l.a, l.b = a, b }

func (l *ebitenLine) draw(target *ebiten.Image) {
	if !l.visible {
		return
	}
	var verts []ebiten.Vertex
	var inds []uint16
	verts, inds = l.appendSegment(verts, inds, l.a, l.b, l.strokeWidth, l.stroke)
	drawTriangles(target, verts, inds, ensureWhitePixel())
}

// ebitenQuad stretches an image across four corners, tl-tr-br-bl. With no
// image (load failure or empty path) only the outline is drawn.
type ebitenQuad struct {
	ebitenShape
	image   *ebiten.Image
	corners [4]Vec2
	set     bool
}

func (q *ebitenQuad) SetCorners(tl, tr, br, bl Vec2) {
	q.corners = [4]Vec2{tl, tr, br, bl}
	q.set = true
}

func (q *ebitenQuad) draw(target *ebiten.Image) {
	if !q.visible || !q.set {
		return
	}
	if q.image != nil {
		w, h := q.image.Bounds().Dx(), q.image.Bounds().Dy()
		src := [4]Vec2{{0, 0}, {float64(w), 0}, {float64(w), float64(h)}, {0, float64(h)}}
		white := Color{R: 1, G: 1, B: 1, A: 1}
		verts := make([]ebiten.Vertex, 4)
		for i := range verts {
			verts[i] = q.vertex(q.corners[i], white)
			verts[i].SrcX = float32(src[i].X)
			verts[i].SrcY = float32(src[i].Y)
		}
		drawTriangles(target, verts, []uint16{0, 1, 2, 0, 2, 3}, q.image)
		return
	}
	var verts []ebiten.Vertex
	var inds []uint16
	for i := 0; i < 4; i++ {
		verts, inds = q.appendSegment(verts, inds, q.corners[i], q.corners[(i+1)%4], q.strokeWidth, q.stroke)
	}
	drawTriangles(target, verts, inds, ensureWhitePixel())
}
