package marionette

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// Named colors used by the default skeleton styling.
var (
	ColorWhite = Color{1, 1, 1, 1}
	ColorBlack = Color{0, 0, 0, 1}

	// ColorKeypoint is the default fill for keypoint dots.
	ColorKeypoint = Color{0.13, 0.59, 0.95, 1}
	// ColorBone is the default stroke for bone lines.
	ColorBone = Color{0.0, 0.74, 0.83, 1}
	// ColorSelected marks selected entities.
	ColorSelected = Color{1, 0.6, 0, 1}
	// ColorMissingPartner flags a keypoint whose bone partner has no
	// position yet. Applied to the endpoint that does exist.
	ColorMissingPartner = Color{0.96, 0.26, 0.21, 1}
	// ColorDetail is the muted stroke for face/hand detail keypoints.
	ColorDetail = Color{0.62, 0.62, 0.62, 1}
)

// Vec2 is a 2D vector used for positions, offsets, and sizes throughout the API.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Mid returns the midpoint between v and o.
func (v Vec2) Mid(o Vec2) Vec2 {
	return Vec2{(v.X + o.X) / 2, (v.Y + o.Y) / 2}
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// mapPoint maps p from the source rectangle into the destination rectangle
// with an axis-aligned affine transform. When the destination has zero width
// and height, only the translation between the rectangle origins is applied
// (the source layout is kept verbatim).
func mapPoint(p Vec2, src, dst Rect) Vec2 {
	if dst.Width == 0 && dst.Height == 0 {
		return Vec2{p.X - src.X + dst.X, p.Y - src.Y + dst.Y}
	}
	sx, sy := 1.0, 1.0
	if src.Width != 0 {
		sx = dst.Width / src.Width
	}
	if src.Height != 0 {
		sy = dst.Height / src.Height
	}
	return Vec2{
		X: dst.X + (p.X-src.X)*sx,
		Y: dst.Y + (p.Y-src.Y)*sy,
	}
}

// EntityKind distinguishes the role of an Entity in the scene graph.
// Each kind has a closed set of valid operations; kind-specific behavior is
// dispatched with a switch rather than runtime type tests.
type EntityKind uint8

const (
	KindGroup    EntityKind = iota // plain grouping node (scene root)
	KindKeypoint                   // named point, possibly undetected (nil position)
	KindBone                       // connector between two keypoints
	KindLimb                       // named grouping of bones for one body region
	KindPerson                     // posable person drawable
	KindImage                      // distortable image drawable (4-corner quad)
)

// String returns the lowercase name of the kind.
func (k EntityKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindKeypoint:
		return "keypoint"
	case KindBone:
		return "bone"
	case KindLimb:
		return "limb"
	case KindPerson:
		return "person"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// IsDrawable reports whether the kind is a top-level posable object
// (a person or a distortable image).
func (k EntityKind) IsDrawable() bool {
	return k == KindPerson || k == KindImage
}
