package marionette

// stubSurface is a headless Surface that records shape allocations and
// mutations, letting rendering behavior be asserted without ebiten.
type stubSurface struct {
	points  []*stubPoint
	lines   []*stubLine
	quads   []*stubQuad
	removed int
	draws   int
}

func newStubSurface() *stubSurface {
	return &stubSurface{}
}

func (s *stubSurface) NewPoint() PointShape {
	p := &stubPoint{stubShape: stubShape{visible: true}}
	s.points = append(s.points, p)
	return p
}

func (s *stubSurface) NewLine() LineShape {
	l := &stubLine{stubShape: stubShape{visible: true}}
	s.lines = append(s.lines, l)
	return l
}

func (s *stubSurface) NewQuad(imagePath string) QuadShape {
	q := &stubQuad{stubShape: stubShape{visible: true}, imagePath: imagePath}
	s.quads = append(s.quads, q)
	return q
}

func (s *stubSurface) Remove(Shape) { s.removed++ }
func (s *stubSurface) BatchDraw()   { s.draws++ }

type stubShape struct {
	visible     bool
	stroke      Color
	strokeWidth float64
	fill        Color
	alpha       float64
}

func (s *stubShape) SetVisible(v bool)            { s.visible = v }
func (s *stubShape) SetStroke(c Color, w float64) { s.stroke, s.strokeWidth = c, w }
func (s *stubShape) SetFill(c Color)              { s.fill = c }
func (s *stubShape) SetAlpha(a float64)           { s.alpha = a }

type stubPoint struct {
	stubShape
	center Vec2
	radius float64
}

func (p *stubPoint) SetCenter(c Vec2)    { p.center = c }
func (p *stubPoint) SetRadius(r float64) { p.radius = r }

type stubLine struct {
	stubShape
	a, b Vec2
}

func (l *stubLine) SetEndpoints(a, b Vec2) { l.a, l.b = a, b }

type stubQuad struct {
	stubShape
	imagePath string
	corners   [4]Vec2
}

func (q *stubQuad) SetCorners(tl, tr, br, bl Vec2) {
	q.corners = [4]Vec2{tl, tr, br, bl}
}
