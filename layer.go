package marionette

import "github.com/google/uuid"

// PoseLayer binds a subset of the scene's drawables to one rendering
// surface. The id is stable for the lifetime of the session so revision
// replay can re-target reconstructed drawables to the right layer.
type PoseLayer struct {
	ID   uuid.UUID
	Name string

	scene     *Scene
	surface   Surface
	drawables []*Entity
}

// Surface returns the layer's rendering surface.
func (l *PoseLayer) Surface() Surface {
	return l.surface
}

// Drawables returns the drawables currently rendered on this layer.
// The returned slice MUST NOT be mutated.
func (l *PoseLayer) Drawables() []*Entity {
	return l.drawables
}

// Attach binds a drawable to this layer. A drawable bound to another layer
// is moved; its shapes are released from the old surface and lazily
// re-created on this layer's surface. The membership change is observed as
// one scene change.
func (l *PoseLayer) Attach(d *Entity) {
	if !d.Kind.IsDrawable() {
		panic("marionette: Attach on non-drawable " + d.Kind.String())
	}
	if d.layer == l {
		return
	}
	if d.layer != nil {
		d.layer.detach(d)
	}
	d.layer = l
	l.drawables = append(l.drawables, d)
	d.bindSurface(l.surface)
	d.render()
	d.changeState()
}

// Detach unbinds a drawable from this layer, releasing its shapes.
// No-op if the drawable is not on this layer.
func (l *PoseLayer) Detach(d *Entity) {
	if d.layer != l {
		return
	}
	l.detach(d)
	d.bindSurface(nil)
	d.changeState()
}

// detach removes d from the membership list and clears its layer pointer
// without touching surfaces.
func (l *PoseLayer) detach(d *Entity) {
	for i, x := range l.drawables {
		if x == d {
			l.drawables = append(l.drawables[:i], l.drawables[i+1:]...)
			break
		}
	}
	d.layer = nil
}

// Rebind points the layer at a different rendering surface. Every bound
// drawable releases its shapes and re-creates them on the new surface.
func (l *PoseLayer) Rebind(surface Surface) {
	l.surface = surface
	for _, d := range l.drawables {
		d.bindSurface(surface)
		d.render()
	}
}
