package marionette

import (
	"context"
	"log"
	"sort"
)

// rootKeypointName is the keypoint that defines a person's canonical position.
const rootKeypointName = "Neck"

// Corner keypoint names of a distortable image, in quad order.
const (
	CornerTopLeft  = "TopLeft"
	CornerTopRight = "TopRight"
	CornerBotRight = "BotRight"
	CornerBotLeft  = "BotLeft"
)

// FormatQuad4 is the fixed 4-corner format used by distortable images.
const FormatQuad4 = "QUAD4"

// quad4 is registered alongside the body formats so image drawables reuse
// the ordinary skeleton build path.
var quad4 = &Format{
	Name: FormatQuad4,
	Keypoints: []FormatKeypoint{
		{CornerTopLeft, 0, 0},
		{CornerTopRight, 100, 0},
		{CornerBotRight, 100, 100},
		{CornerBotLeft, 0, 100},
	},
	Edges: [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
	Limbs: []FormatLimb{{"Frame", []int{0, 1, 2, 3}}},
}

func init() {
	builtinFormats[FormatQuad4] = quad4
}

// PersonData seeds keypoint positions during a skeleton build, typically
// produced by ImportPoses. A nil position means the keypoint was not
// detected; names absent from the map are treated the same way.
type PersonData struct {
	Format    string
	Keypoints map[string]*Vec2
}

// NewPerson creates a person drawable for the given skeleton format.
// The skeleton itself is built separately with BuildSkeleton.
func NewPerson(name, format string) *Entity {
	e := newEntity(KindPerson, name)
	e.Format = format
	e.keypoints = make(map[string]*Entity)
	return e
}

// NewDistortableImage creates an image drawable whose four corner keypoints
// span the given bounding box. The raster at imagePath is decoded by the
// rendering surface; a decode failure degrades to an outline-only quad.
func NewDistortableImage(name, imagePath string, bbox Rect) *Entity {
	e := newEntity(KindImage, name)
	e.Format = FormatQuad4
	e.ImagePath = imagePath
	e.keypoints = make(map[string]*Entity)
	e.BuildSkeleton(context.Background(), Builtin(), bbox, nil)
	return e
}

// BuildSkeleton instantiates (or re-seats) the drawable's skeleton from its
// named format. Target positions come from an affine map of the format's
// natural layout onto bbox — translation only when bbox has zero size — or
// from personData when given.
//
// The rebuild is idempotent: when keypoints already exist only their
// positions are updated, in place; the keypoint/bone/limb structure is never
// duplicated. Only a drawable with an empty keypoint dict gets a fresh
// structure, with each edge assigned to the first limb containing both of
// its endpoints and the leftovers collected into a synthetic "Others" limb.
//
// A template-load or build failure is logged and leaves the drawable
// without a skeleton (possibly partially built, always destroy-safe);
// callers detect the condition by checking the keypoint dict for emptiness.
func (e *Entity) BuildSkeleton(ctx context.Context, provider FormatProvider, bbox Rect, personData *PersonData) {
	if !e.Kind.IsDrawable() {
		panic("marionette: BuildSkeleton on non-drawable " + e.Kind.String())
	}
	f, err := provider.Load(ctx, e.Format)
	if err != nil {
		log.Printf("marionette: build skeleton for %q: %v", e.Name, err)
		return
	}
	e.OriginalBBox = bbox
	e.OverStateChange(func() {
		targets := make([]*Vec2, len(f.Keypoints))
		for i, fk := range f.Keypoints {
			if personData != nil {
				if p, ok := personData.Keypoints[fk.Name]; ok && p != nil {
					v := *p
					targets[i] = &v
				}
				continue
			}
			v := mapPoint(Vec2{fk.X, fk.Y}, f.NaturalBounds, bbox)
			targets[i] = &v
		}
		if len(e.keypoints) > 0 {
			// Existing skeleton: update positions only.
			for i, fk := range f.Keypoints {
				if kp := e.keypoints[fk.Name]; kp != nil {
					kp.SetPosition(targets[i])
				}
			}
			return
		}
		e.buildStructure(f, targets)
	})
	e.render()
}

// buildStructure creates the keypoints, bones, and limbs for a fresh
// skeleton. Must only be called with an empty keypoint dict.
func (e *Entity) buildStructure(f *Format, targets []*Vec2) {
	kps := make([]*Entity, len(f.Keypoints))
	for i, fk := range f.Keypoints {
		kp := NewKeypoint(fk.Name, targets[i])
		kps[i] = kp
		e.keypoints[fk.Name] = kp
		e.AddChild(kp, true)
	}

	limbs := make([]*Entity, len(f.Limbs))
	members := make([]map[int]bool, len(f.Limbs))
	for i, fl := range f.Limbs {
		limbs[i] = NewLimb(fl.Name)
		members[i] = make(map[int]bool, len(fl.Vertices))
		for _, v := range fl.Vertices {
			members[i][v] = true
		}
	}

	var others *Entity
	for _, edge := range f.Edges {
		a, b := kps[edge[0]], kps[edge[1]]
		bone := NewBone(a.Name+"-"+b.Name, a, b)
		assigned := false
		for i := range limbs {
			if members[i][edge[0]] && members[i][edge[1]] {
				limbs[i].AddBone(bone)
				assigned = true
				break
			}
		}
		if !assigned {
			if others == nil {
				others = NewLimb(OthersLimbName)
			}
			others.AddBone(bone)
		}
	}
	if others != nil {
		limbs = append(limbs, others)
	}
	for _, l := range limbs {
		e.limbs = append(e.limbs, l)
		e.AddChild(l, true)
	}
}

// ResetPose re-seats every keypoint at its template-default position within
// the drawable's original bounding box. This is a pure position update; the
// skeleton structure is untouched.
func (e *Entity) ResetPose(ctx context.Context, provider FormatProvider) {
	e.BuildSkeleton(ctx, provider, e.OriginalBBox, nil)
}

// Keypoint returns the named keypoint, or nil.
func (e *Entity) Keypoint(name string) *Entity {
	return e.keypoints[name]
}

// Keypoints returns the keypoint dict. The returned map MUST NOT be mutated.
func (e *Entity) Keypoints() map[string]*Entity {
	return e.keypoints
}

// KeypointNames returns the keypoint names in sorted order, for
// deterministic traversal.
func (e *Entity) KeypointNames() []string {
	names := make([]string, 0, len(e.keypoints))
	for name := range e.keypoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Limbs returns the drawable's ordered limb list.
func (e *Entity) Limbs() []*Entity {
	return e.limbs
}

// Layer returns the pose layer this drawable is bound to, or nil.
func (e *Entity) Layer() *PoseLayer {
	return e.layer
}

// --- Rendering ---

// bindSurface attaches (or re-attaches) the subtree to a rendering surface.
// Shapes created on a previous surface are released first; shapes on the new
// surface are created lazily on the next render.
func (e *Entity) bindSurface(s Surface) {
	if e.surface != s {
		e.releaseSurfaceShape()
		e.surface = s
	}
	for _, c := range e.children {
		c.bindSurface(s)
	}
}

// releaseSurfaceShape drops the current shape without marking the entity
// destroyed, for surface re-binding.
func (e *Entity) releaseSurfaceShape() {
	if e.shape != nil && e.surface != nil {
		e.surface.Remove(e.shape)
	}
	e.shape = nil
}

// render creates or refreshes the visual representation of the subtree.
// Entities without a bound surface render nothing.
func (e *Entity) render() {
	switch e.Kind {
	case KindKeypoint:
		e.renderKeypoint()
	case KindBone:
		e.renderBone()
	case KindImage:
		e.renderImage()
	}
	for _, c := range e.children {
		c.render()
	}
}

// renderImage updates the image quad from the four corner keypoints. With
// any corner undetected the quad is hidden rather than drawn degenerate.
func (e *Entity) renderImage() {
	if e.destroyed || e.surface == nil {
		return
	}
	corners := [4]*Vec2{}
	for i, name := range [4]string{CornerTopLeft, CornerTopRight, CornerBotRight, CornerBotLeft} {
		kp := e.keypoints[name]
		if kp == nil || kp.pos == nil {
			if e.shape != nil {
				e.shape.SetVisible(false)
			}
			return
		}
		corners[i] = kp.pos
	}
	if e.shape == nil {
		e.shape = e.surface.NewQuad(e.ImagePath)
	}
	e.shape.(QuadShape).SetCorners(*corners[0], *corners[1], *corners[2], *corners[3])
	e.restyleImage()
}

// restyleImage applies the resolved style to an existing image quad.
func (e *Entity) restyleImage() {
	if e.shape == nil {
		return
	}
	stroke := e.StrokeColor()
	if e.Selected() {
		stroke = ColorSelected
	}
	e.shape.SetStroke(stroke, e.StrokeWidth())
	e.shape.SetAlpha(e.Alpha())
	e.shape.SetVisible(e.Visible())
}
