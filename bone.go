package marionette

// NewBone creates a bone connecting two keypoints. The bone references its
// endpoints but does not own them; their lifetime is governed by the
// enclosing drawable. Both keypoints record the bone so position changes can
// trigger a re-render without the caller knowing about the relation.
func NewBone(name string, start, end *Entity) *Entity {
	e := newEntity(KindBone, name)
	e.start = start
	e.end = end
	if start != nil {
		start.registerBone(e)
	}
	if end != nil {
		end.registerBone(e)
	}
	return e
}

// Endpoints returns the bone's start and end keypoints.
func (e *Entity) Endpoints() (start, end *Entity) {
	return e.start, e.end
}

// bonePosition returns the midpoint of the endpoints, or nil if either
// endpoint is missing or undetected.
func (e *Entity) bonePosition() *Vec2 {
	if e.start == nil || e.end == nil || e.start.pos == nil || e.end.pos == nil {
		return nil
	}
	m := e.start.pos.Mid(*e.end.pos)
	return &m
}

// renderBone updates the bone's visual state. With both endpoints detected
// the line shape is lazily created and positioned. With an undetected
// endpoint no line is ever created (an existing one is hidden), and the
// endpoint that does have a position is flagged with the missing-partner
// color so the gap is visible on the canvas.
func (e *Entity) renderBone() {
	if e.destroyed {
		return
	}
	defined := e.start != nil && e.end != nil && e.start.pos != nil && e.end.pos != nil
	if !defined {
		if e.shape != nil {
			e.shape.SetVisible(false)
		}
		e.updateEndpointFlags()
		return
	}
	e.updateEndpointFlags()
	if e.surface != nil {
		if e.shape == nil {
			e.shape = e.surface.NewLine()
		}
		e.shape.(LineShape).SetEndpoints(*e.start.pos, *e.end.pos)
	}
	e.restyleBone()
}

// updateEndpointFlags recomputes the missing-partner flag on both endpoints.
// A keypoint can be shared by several bones, so the flag holds whenever ANY
// referencing bone has an undetected partner, not just this one.
func (e *Entity) updateEndpointFlags() {
	for _, kp := range []*Entity{e.start, e.end} {
		if kp == nil || kp.destroyed || kp.pos == nil {
			continue
		}
		missing := false
		for _, b := range kp.bones {
			if b.destroyed {
				continue
			}
			other := b.start
			if other == kp {
				other = b.end
			}
			if other == nil || other.destroyed || other.pos == nil {
				missing = true
				break
			}
		}
		if kp.missingPartner != missing {
			kp.missingPartner = missing
			kp.restyleKeypoint()
		}
	}
}

// restyleBone applies the resolved style to an existing line shape. A bone
// with an undetected endpoint is never visible regardless of its resolved
// visibility.
func (e *Entity) restyleBone() {
	if e.shape == nil {
		return
	}
	stroke := e.StrokeColor()
	if e.Selected() {
		stroke = ColorSelected
	}
	defined := e.start != nil && e.end != nil && e.start.pos != nil && e.end.pos != nil
	e.shape.SetStroke(stroke, e.StrokeWidth())
	e.shape.SetAlpha(e.Alpha())
	e.shape.SetVisible(e.Visible() && defined)
}
