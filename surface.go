package marionette

// Surface is the rendering collaborator a PoseLayer draws onto. The core
// creates shapes lazily through it and mutates them via the Shape setters;
// what a shape actually looks like is owned by the surface implementation.
// EbitenSurface is the bundled implementation; tests use a recording stub.
type Surface interface {
	// NewPoint allocates a dot shape for a keypoint.
	NewPoint() PointShape
	// NewLine allocates a line shape for a bone.
	NewLine() LineShape
	// NewQuad allocates a quadrilateral shape for a distortable image.
	// A failure to decode the image at path is recovered inside the surface
	// (logged, outline-only quad); construction never fails.
	NewQuad(imagePath string) QuadShape
	// Remove releases a shape. Removing a shape twice is a no-op.
	Remove(Shape)
	// BatchDraw flushes pending shape mutations to the output. Called once
	// per logical batch of scene changes, not per mutation.
	BatchDraw()
}

// Shape is the common mutation protocol for all surface shapes.
type Shape interface {
	SetVisible(visible bool)
	SetStroke(c Color, width float64)
	SetFill(c Color)
	SetAlpha(a float64)
}

// PointShape is a keypoint dot.
type PointShape interface {
	Shape
	SetCenter(p Vec2)
	SetRadius(r float64)
}

// LineShape is a bone line.
type LineShape interface {
	Shape
	SetEndpoints(a, b Vec2)
}

// QuadShape is a distortable image quad defined by its four corners in
// TopLeft, TopRight, BotRight, BotLeft order.
type QuadShape interface {
	Shape
	SetCorners(tl, tr, br, bl Vec2)
}
