package marionette

import (
	"fmt"

	"github.com/google/uuid"
)

// --- Lock groups ---

// Lock state is tracked per lock group rather than per entity. Entities hold
// a group id; a subtree attached with lock shares its parent's group so that
// batched mutations anywhere in the subtree suppress the same notification.
// A plain map and counter are used (no atomics — marionette is single-threaded).
var (
	lockGroupCounter uint32
	lockCounts       = map[uint32]int{}
)

func newLockGroup() uint32 {
	lockGroupCounter++
	lockCounts[lockGroupCounter] = 0
	return lockGroupCounter
}

// setLockGroup replaces the old lock group id with the new one across the
// subtree rooted at e. Only entities that actually shared the old group are
// rewritten; a descendant attached without lock keeps its own group.
func setLockGroup(e *Entity, newGroup, oldGroup uint32) {
	if e.lockGroup != oldGroup {
		return
	}
	e.lockGroup = newGroup
	for _, c := range e.children {
		setLockGroup(c, newGroup, oldGroup)
	}
}

// --- Entity ---

// Entity is the fundamental element of the pose scene graph. A single flat
// struct is used for all kinds (keypoints, bones, limbs, drawables) to avoid
// interface dispatch; kind-specific fields are simply unused for other kinds.
type Entity struct {
	// Identity
	ID   uuid.UUID
	Name string
	Kind EntityKind

	// Hierarchy
	Parent   *Entity
	children []*Entity

	// Nullable attribute overrides. nil means "inherit from parent";
	// resolution walks up the parent chain and falls back to kind defaults.
	visible     *bool
	strokeColor *Color
	fillColor   *Color
	strokeWidth *float64
	alpha       *float64
	selected    *bool

	// Change tracking
	lockGroup uint32
	dirty     bool
	destroyed bool
	scene     *Scene // set on the scene root only

	// Keypoint fields (KindKeypoint)
	pos            *Vec2
	bones          []*Entity // bones referencing this keypoint (not owned)
	detail         bool      // face/hand detail point: smaller radius, muted color
	missingPartner bool      // a referencing bone has an undetected endpoint

	// Bone fields (KindBone)
	start, end *Entity // referenced keypoints (not owned)

	// Drawable fields (KindPerson, KindImage)
	Format       string
	OriginalBBox Rect
	ImagePath    string
	keypoints    map[string]*Entity
	limbs        []*Entity
	layer        *PoseLayer

	// Rendering (lazily created when a surface is bound)
	shape   Shape
	surface Surface
}

// newEntity creates an entity of the given kind with a fresh UUID and an
// independent lock group.
func newEntity(kind EntityKind, name string) *Entity {
	return &Entity{
		ID:        uuid.New(),
		Name:      name,
		Kind:      kind,
		lockGroup: newLockGroup(),
	}
}

// NewGroup creates a plain grouping entity with no geometry of its own.
func NewGroup(name string) *Entity {
	return newEntity(KindGroup, name)
}

// String returns a short description for diagnostics.
func (e *Entity) String() string {
	return fmt.Sprintf("%s %q", e.Kind, e.Name)
}

// --- Tree manipulation ---

// AddChild appends child to this entity's children. If withLock is true the
// child's subtree adopts this entity's lock group, so mutations inside it
// participate in the parent's notification batching.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this entity (cycle).
func (e *Entity) AddChild(child *Entity, withLock bool) {
	if child == nil {
		panic("marionette: cannot add nil child")
	}
	if globalDebug {
		debugCheckDestroyed(e, "AddChild (parent)")
		debugCheckDestroyed(child, "AddChild (child)")
	}
	if isAncestor(child, e) {
		panic("marionette: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.detachChild(child)
	}
	child.Parent = e
	e.children = append(e.children, child)
	if withLock && child.lockGroup != e.lockGroup {
		// A lock held on the moving subtree stays balanced: its count is
		// transferred into the adopting group, so the holder's batch keeps
		// suppressing notifications until its matching unlock.
		old := child.lockGroup
		setLockGroup(child, e.lockGroup, old)
		lockCounts[e.lockGroup] += lockCounts[old]
		delete(lockCounts, old)
	}
	if globalDebug {
		debugCheckTreeDepth(child)
	}
	e.changeState()
}

// RemoveChild detaches child from this entity without destroying it.
// If the child's lock group was shared with this entity, the detached subtree
// is moved to a fresh independent group so it can never suppress or observe
// the former parent's lock state. Panics if child.Parent != e.
func (e *Entity) RemoveChild(child *Entity) {
	if child == nil || child.Parent != e {
		panic("marionette: child's parent is not this entity")
	}
	e.detachChild(child)
	child.Parent = nil
	if child.lockGroup == e.lockGroup {
		setLockGroup(child, newLockGroup(), child.lockGroup)
	}
	e.changeState()
}

// detachChild removes child from e.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (e *Entity) detachChild(child *Entity) {
	for i, c := range e.children {
		if c == child {
			copy(e.children[i:], e.children[i+1:])
			e.children[len(e.children)-1] = nil
			e.children = e.children[:len(e.children)-1]
			return
		}
	}
}

// Children returns the child list. The returned slice MUST NOT be mutated.
func (e *Entity) Children() []*Entity {
	return e.children
}

// NumChildren returns the number of children.
func (e *Entity) NumChildren() int {
	return len(e.children)
}

// ChildByName returns the first child with the given name, or nil.
func (e *Entity) ChildByName(name string) *Entity {
	for _, c := range e.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// isAncestor reports whether candidate is an ancestor of entity (or entity itself).
func isAncestor(candidate, entity *Entity) bool {
	for p := entity; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// --- Destruction ---

// Destroy releases this entity's visual shape, recursively destroys all
// children, and detaches the entity from its parent. It is safe against
// re-entry: a destroyed entity ignores further Destroy calls. The children
// list is snapshotted before iteration so destruction handlers that mutate
// the list cannot skip entries.
func (e *Entity) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.releaseShape()
	if e.Kind == KindBone {
		if e.start != nil {
			e.start.unregisterBone(e)
		}
		if e.end != nil {
			e.end.unregisterBone(e)
		}
	}
	kids := make([]*Entity, len(e.children))
	copy(kids, e.children)
	for _, c := range kids {
		c.Destroy()
	}
	e.children = nil
	e.keypoints = nil
	e.limbs = nil
	e.pos = nil
	e.bones = nil
	e.start = nil
	e.end = nil
	if p := e.Parent; p != nil && !p.destroyed {
		p.detachChild(e)
		e.Parent = nil
		p.changeState()
	}
}

// Destroyed reports whether this entity has been destroyed.
func (e *Entity) Destroyed() bool {
	return e.destroyed
}

// releaseShape removes the entity's shape from its surface, if any.
func (e *Entity) releaseShape() {
	if e.shape != nil && e.surface != nil {
		e.surface.Remove(e.shape)
	}
	e.shape = nil
	e.surface = nil
}

// --- Dirty state and locking ---

// changeState marks this entity and every ancestor dirty. Propagation happens
// regardless of lock state; the lock only gates the scene notification fired
// at the root, never the flags themselves.
func (e *Entity) changeState() {
	e.dirty = true
	if e.Parent != nil {
		e.Parent.changeState()
		return
	}
	if e.scene != nil && lockCounts[e.lockGroup] == 0 {
		e.scene.notifyChange()
	}
}

// Dirty reports whether this entity has unprocessed changes.
func (e *Entity) Dirty() bool {
	return e.dirty
}

// clearDirty resets the dirty flag on this entity and all descendants.
func (e *Entity) clearDirty() {
	e.dirty = false
	for _, c := range e.children {
		c.clearDirty()
	}
}

// LockStateChange increments the lock counter of this entity's lock group,
// suppressing scene notifications for every entity sharing the group.
func (e *Entity) LockStateChange() {
	lockCounts[e.lockGroup]++
}

// UnlockStateChange decrements the lock counter of this entity's lock group.
func (e *Entity) UnlockStateChange() {
	if lockCounts[e.lockGroup] > 0 {
		lockCounts[e.lockGroup]--
	}
}

// OverStateChange runs fn with the lock held, then forces a single state
// change. Any number of mutations inside fn produce exactly one scene
// notification, fired after fn returns even if fn made no net change.
func (e *Entity) OverStateChange(fn func()) {
	e.LockStateChange()
	fn()
	e.UnlockStateChange()
	e.changeState()
}

// --- Attribute inheritance ---

// Visible resolves the effective visibility: the entity's own override if
// set, else the nearest ancestor's, else true.
func (e *Entity) Visible() bool {
	if e.visible != nil {
		return *e.visible
	}
	if e.Parent != nil {
		return e.Parent.Visible()
	}
	return true
}

// SetVisible sets this entity's visibility override and re-resolves the
// visual state of the subtree. Children with their own override are
// unaffected beyond re-resolution.
func (e *Entity) SetVisible(v bool) {
	e.visible = &v
	e.changeState()
	e.restyle()
}

// Alpha resolves the effective opacity in [0, 1], defaulting to 1.
func (e *Entity) Alpha() float64 {
	if e.alpha != nil {
		return *e.alpha
	}
	if e.Parent != nil {
		return e.Parent.Alpha()
	}
	return 1
}

// SetAlpha sets this entity's opacity override and re-resolves the subtree.
func (e *Entity) SetAlpha(a float64) {
	e.alpha = &a
	e.changeState()
	e.restyle()
}

// StrokeColor resolves the effective stroke color. With no override anywhere
// in the ancestor chain the kind default applies: bones use ColorBone,
// detail keypoints ColorDetail, everything else ColorKeypoint.
func (e *Entity) StrokeColor() Color {
	if c, ok := e.lookupStroke(); ok {
		return c
	}
	return e.defaultColor()
}

func (e *Entity) lookupStroke() (Color, bool) {
	if e.strokeColor != nil {
		return *e.strokeColor, true
	}
	if e.Parent != nil {
		return e.Parent.lookupStroke()
	}
	return Color{}, false
}

// SetStrokeColor sets this entity's stroke color override and re-resolves
// the subtree. A child's own explicit color is never overwritten; children
// merely re-resolve through the new ancestor value.
func (e *Entity) SetStrokeColor(c Color) {
	e.strokeColor = &c
	e.changeState()
	e.restyle()
}

// FillColor resolves the effective fill color, falling back to the same
// kind default as StrokeColor.
func (e *Entity) FillColor() Color {
	if e.fillColor != nil {
		return *e.fillColor
	}
	if e.Parent != nil {
		return e.Parent.FillColor()
	}
	return e.defaultColor()
}

// SetFillColor sets this entity's fill color override and re-resolves the subtree.
func (e *Entity) SetFillColor(c Color) {
	e.fillColor = &c
	e.changeState()
	e.restyle()
}

// StrokeWidth resolves the effective stroke width, defaulting to 2 (1 for
// detail keypoints).
func (e *Entity) StrokeWidth() float64 {
	if e.strokeWidth != nil {
		return *e.strokeWidth
	}
	if e.Parent != nil {
		return e.Parent.StrokeWidth()
	}
	if e.detail {
		return 1
	}
	return 2
}

// SetStrokeWidth sets this entity's stroke width override and re-resolves the subtree.
func (e *Entity) SetStrokeWidth(w float64) {
	e.strokeWidth = &w
	e.changeState()
	e.restyle()
}

// Selected resolves the effective selection flag: selecting a drawable
// selects its keypoints and bones unless they carry their own flag.
func (e *Entity) Selected() bool {
	if e.selected != nil {
		return *e.selected
	}
	if e.Parent != nil {
		return e.Parent.Selected()
	}
	return false
}

// SetSelected sets this entity's selection flag and re-resolves the subtree.
func (e *Entity) SetSelected(sel bool) {
	e.selected = &sel
	e.changeState()
	e.restyle()
}

// defaultColor returns the root-default color for this entity's kind.
func (e *Entity) defaultColor() Color {
	switch e.Kind {
	case KindBone:
		return ColorBone
	case KindKeypoint:
		if e.detail {
			return ColorDetail
		}
		return ColorKeypoint
	default:
		return ColorKeypoint
	}
}

// restyle reapplies the resolved style to this entity's shape (if one
// exists) and recurses into all children so they re-resolve through any
// changed ancestor value. Explicit overrides on descendants shadow ancestors
// naturally during resolution.
func (e *Entity) restyle() {
	switch e.Kind {
	case KindKeypoint:
		e.restyleKeypoint()
	case KindBone:
		e.restyleBone()
	case KindImage:
		e.restyleImage()
	}
	for _, c := range e.children {
		c.restyle()
	}
}

// --- Position protocol ---

// Position returns the entity's canonical position, or nil when undefined:
// a keypoint's own point, a bone's midpoint (nil if either endpoint is
// undetected), a person's root ("Neck") keypoint, or the top-left corner
// keypoint of an image. Panics for kinds with no canonical position (groups
// and limbs are moved with SetOffset instead).
func (e *Entity) Position() *Vec2 {
	switch e.Kind {
	case KindKeypoint:
		if e.pos == nil {
			return nil
		}
		p := *e.pos
		return &p
	case KindBone:
		return e.bonePosition()
	case KindPerson:
		if kp := e.keypoints[rootKeypointName]; kp != nil {
			return kp.Position()
		}
		return nil
	case KindImage:
		if kp := e.keypoints[CornerTopLeft]; kp != nil {
			return kp.Position()
		}
		return nil
	default:
		panic(fmt.Sprintf("marionette: %s has no canonical position; use SetOffset", e.Kind))
	}
}

// SetPosition moves the entity to the given position. The move is applied
// first and the state change fires after it, so a synchronous observer of
// the scene notification always sees the post-move state. For bones and
// drawables the move is a uniform offset of the underlying keypoints; a
// move of an entity whose current position is undefined is a no-op for
// those kinds. Panics for kinds with no canonical position.
func (e *Entity) SetPosition(p *Vec2) {
	switch e.Kind {
	case KindKeypoint:
		e.setKeypointPosition(p)
		e.changeState()
	case KindBone, KindPerson, KindImage:
		if p == nil {
			return
		}
		cur := e.Position()
		if cur == nil {
			return
		}
		e.SetOffset(p.Sub(*cur))
	default:
		panic(fmt.Sprintf("marionette: %s has no canonical position; use SetOffset", e.Kind))
	}
}

// SetOffset translates every keypoint at or below this entity by delta.
// This is the generic way to move composites that have no single canonical
// point. Keypoints reachable more than once (a bone endpoint shared by two
// bones of the same limb, or a drawable's dict entry that is also a bone
// endpoint) are moved exactly once. Undetected keypoints are left untouched.
// The whole translation is one batch: observers see a single notification,
// fired after every keypoint has moved.
func (e *Entity) SetOffset(delta Vec2) {
	kps := e.gatherKeypoints(nil, map[*Entity]bool{})
	e.LockStateChange()
	for _, kp := range kps {
		if kp.pos != nil {
			p := kp.pos.Add(delta)
			kp.SetPosition(&p)
		}
	}
	e.UnlockStateChange()
	e.changeState()
}

// gatherKeypoints appends every distinct keypoint reachable from e, in
// traversal order: a keypoint yields itself, a bone yields its endpoints,
// everything else recurses into children.
func (e *Entity) gatherKeypoints(out []*Entity, seen map[*Entity]bool) []*Entity {
	switch e.Kind {
	case KindKeypoint:
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	case KindBone:
		for _, kp := range []*Entity{e.start, e.end} {
			if kp != nil && !seen[kp] {
				seen[kp] = true
				out = append(out, kp)
			}
		}
	default:
		for _, c := range e.children {
			out = c.gatherKeypoints(out, seen)
		}
	}
	return out
}
