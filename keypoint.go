package marionette

import "strings"

// Shape sizing for keypoint dots.
const (
	keypointRadius = 5.0
	detailRadius   = 2.5
)

// detailPrefixes marks keypoint name families that receive reduced visual
// weight (smaller radius, muted color) by convention. The grouping is purely
// visual; detail keypoints are structurally identical to any other keypoint.
var detailPrefixes = []string{"Face", "LHand", "RHand"}

func isDetailName(name string) bool {
	for _, p := range detailPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// NewKeypoint creates a named keypoint. pos may be nil, meaning the point is
// undetected (or has been removed); an undetected keypoint renders nothing.
func NewKeypoint(name string, pos *Vec2) *Entity {
	e := newEntity(KindKeypoint, name)
	e.detail = isDetailName(name)
	if pos != nil {
		p := *pos
		e.pos = &p
	}
	return e
}

// setKeypointPosition applies a position change and re-renders every bone
// referencing this keypoint. Re-rendering the bones is how a bone visually
// appears the moment its second endpoint gains a position, without the
// caller knowing which bones reference which keypoints.
func (e *Entity) setKeypointPosition(p *Vec2) {
	if p == nil {
		e.pos = nil
	} else {
		v := *p
		e.pos = &v
	}
	e.renderKeypoint()
	for _, b := range e.bones {
		b.renderBone()
	}
	if p := e.Parent; p != nil && p.Kind == KindImage {
		p.renderImage()
	}
}

// renderKeypoint lazily creates the dot shape once a surface is bound and a
// position exists, then applies the resolved geometry and style. With no
// position the existing shape (if any) is hidden, never destroyed.
func (e *Entity) renderKeypoint() {
	if e.destroyed || e.surface == nil {
		return
	}
	if e.pos == nil {
		if e.shape != nil {
			e.shape.SetVisible(false)
		}
		return
	}
	if e.shape == nil {
		e.shape = e.surface.NewPoint()
	}
	pt := e.shape.(PointShape)
	pt.SetCenter(*e.pos)
	if e.detail {
		pt.SetRadius(detailRadius)
	} else {
		pt.SetRadius(keypointRadius)
	}
	e.restyleKeypoint()
}

// restyleKeypoint applies the resolved style to an existing dot shape.
// Selection and the missing-partner flag override the resolved colors.
func (e *Entity) restyleKeypoint() {
	if e.shape == nil {
		return
	}
	stroke := e.StrokeColor()
	fill := e.FillColor()
	switch {
	case e.Selected():
		stroke = ColorSelected
		fill = ColorSelected
	case e.missingPartner:
		stroke = ColorMissingPartner
		fill = ColorMissingPartner
	}
	e.shape.SetStroke(stroke, e.StrokeWidth())
	e.shape.SetFill(fill)
	e.shape.SetAlpha(e.Alpha())
	e.shape.SetVisible(e.Visible() && e.pos != nil)
}

// registerBone records a bone as referencing this keypoint. The reference is
// weak: the bone's lifetime is governed by its owning limb, not by this list.
func (e *Entity) registerBone(b *Entity) {
	e.bones = append(e.bones, b)
}

// unregisterBone removes a bone from this keypoint's reference list.
func (e *Entity) unregisterBone(b *Entity) {
	for i, x := range e.bones {
		if x == b {
			e.bones = append(e.bones[:i], e.bones[i+1:]...)
			return
		}
	}
}
