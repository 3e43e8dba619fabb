package marionette

// OthersLimbName is the synthetic limb that collects edges not assigned to
// any named limb of a skeleton format. It is always appended last.
const OthersLimbName = "Others"

// NewLimb creates a limb: a named grouping of bones forming one body region.
// A limb has no geometry of its own beyond the aggregate of the keypoints
// reachable through its bones.
func NewLimb(name string) *Entity {
	return newEntity(KindLimb, name)
}

// AddBone attaches a bone to this limb, sharing the limb's lock group so a
// batched mutation across the limb is reported as one change.
func (e *Entity) AddBone(bone *Entity) {
	e.AddChild(bone, true)
}

// Bones returns the limb's bone children.
func (e *Entity) Bones() []*Entity {
	return e.children
}
