package marionette

import (
	"github.com/google/uuid"
)

// Scene is the root of the pose document: it owns every top-level drawable,
// the ordered pose layer list, and the single change-notification hook that
// the revision manager observes.
type Scene struct {
	root     *Entity
	layers   []*PoseLayer
	onChange func()
	debug    bool
}

// NewScene creates an empty scene with a pre-created root group.
func NewScene() *Scene {
	root := NewGroup("scene")
	s := &Scene{root: root}
	root.scene = s
	return s
}

// Root returns the scene's root entity.
func (s *Scene) Root() *Entity {
	return s.root
}

// OnChange registers the change-notification hook. It fires synchronously,
// at most once per unlocked batch of mutations, and never while any lock in
// the root's lock group is held.
func (s *Scene) OnChange(fn func()) {
	s.onChange = fn
}

// notifyChange is invoked by the root entity's changeState when unlocked.
func (s *Scene) notifyChange() {
	if s.onChange != nil {
		s.onChange()
	}
}

// OverStateChange runs fn as one batch: however many mutations fn performs,
// observers see exactly one change notification.
func (s *Scene) OverStateChange(fn func()) {
	s.root.OverStateChange(fn)
}

// AddDrawable attaches a drawable to the scene, joining the scene's lock
// group so batched operations on the drawable coalesce.
// Panics if d is not a drawable kind.
func (s *Scene) AddDrawable(d *Entity) {
	if !d.Kind.IsDrawable() {
		panic("marionette: AddDrawable on non-drawable " + d.Kind.String())
	}
	s.root.AddChild(d, true)
}

// RemoveDrawable destroys a drawable and detaches it from its layer and the
// scene. The destruction is observed as a single change.
func (s *Scene) RemoveDrawable(d *Entity) {
	if l := d.layer; l != nil {
		l.detach(d)
	}
	d.Destroy()
}

// Drawables returns the scene's top-level drawables in insertion order.
func (s *Scene) Drawables() []*Entity {
	var out []*Entity
	for _, c := range s.root.children {
		if c.Kind.IsDrawable() {
			out = append(out, c)
		}
	}
	return out
}

// DrawableByID returns the drawable with the given id, or nil.
func (s *Scene) DrawableByID(id uuid.UUID) *Entity {
	for _, c := range s.root.children {
		if c.Kind.IsDrawable() && c.ID == id {
			return c
		}
	}
	return nil
}

// clearDirty resets the dirty flags of the whole tree. Called by the
// revision manager after each processed batch.
func (s *Scene) clearDirty() {
	s.root.clearDirty()
}

// SetDebugMode enables or disables debug mode. When enabled, destroyed-
// entity access panics, deep-tree warnings are printed, and revision capture
// timing is logged to stderr.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
}

// globalDebug mirrors the most recently set Scene debug flag so entity
// operations (which lack a Scene pointer) can check it cheaply. Only valid
// with a single Scene; multiple Scenes with differing debug modes will
// reflect whichever called SetDebugMode last.
var globalDebug bool

// --- Layers ---

// NewLayer appends a pose layer bound to the given rendering surface.
func (s *Scene) NewLayer(name string, surface Surface) *PoseLayer {
	l := &PoseLayer{ID: uuid.New(), Name: name, scene: s, surface: surface}
	s.layers = append(s.layers, l)
	s.root.changeState()
	return l
}

// restoreLayer re-creates a layer under a historical id, for revision replay.
func (s *Scene) restoreLayer(id uuid.UUID, name string, surface Surface) *PoseLayer {
	l := &PoseLayer{ID: id, Name: name, scene: s, surface: surface}
	s.layers = append(s.layers, l)
	s.root.changeState()
	return l
}

// RemoveLayer removes a layer, unbinding (but not destroying) its drawables.
// The removal and every unbinding land as a single change, so history records
// the whole layer deletion as one transaction.
func (s *Scene) RemoveLayer(l *PoseLayer) {
	s.OverStateChange(func() {
		for _, d := range append([]*Entity(nil), l.drawables...) {
			l.Detach(d)
		}
		for i, x := range s.layers {
			if x == l {
				s.layers = append(s.layers[:i], s.layers[i+1:]...)
				break
			}
		}
	})
}

// Layers returns the scene's layer list. The returned slice MUST NOT be mutated.
func (s *Scene) Layers() []*PoseLayer {
	return s.layers
}

// LayerByID returns the layer with the given id, or nil.
func (s *Scene) LayerByID(id uuid.UUID) *PoseLayer {
	for _, l := range s.layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// BatchDraw flushes every layer's surface once. Call after processing a
// batch of changes (typically from the frame loop).
func (s *Scene) BatchDraw() {
	for _, l := range s.layers {
		if l.surface != nil {
			l.surface.BatchDraw()
		}
	}
}
