package marionette

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxHistory is the default transaction cap; the oldest transaction
// is evicted when the cap is exceeded.
const DefaultMaxHistory = 50

// ChangeType identifies the kind of change record inside a transaction.
type ChangeType uint8

const (
	ChangeCreate       ChangeType = iota // a drawable appeared
	ChangeDestroy                        // a drawable disappeared (record carries full last state)
	ChangeModify                         // a drawable's attributes or keypoints changed
	ChangeLayerCreate                    // a pose layer appeared
	ChangeLayerDestroy                   // a pose layer disappeared
)

// String returns the record type name.
func (t ChangeType) String() string {
	switch t {
	case ChangeCreate:
		return "create"
	case ChangeDestroy:
		return "destroy"
	case ChangeModify:
		return "modify"
	case ChangeLayerCreate:
		return "layer_create"
	case ChangeLayerDestroy:
		return "layer_destroy"
	default:
		return "unknown"
	}
}

// layerState is the captured identity of a pose layer. The surface reference
// is kept directly: history is session-scoped, so rebinding a reconstructed
// layer to the live surface object is always valid.
type layerState struct {
	ID      uuid.UUID
	Name    string
	Surface Surface
}

// ChangeRecord is one entry of a transaction.
type ChangeRecord struct {
	Type  ChangeType
	UUID  uuid.UUID      // drawable id for entity records
	State *drawableState // full state for create/destroy
	Diff  *stateDiff     // field diff for modify
	Layer *layerState    // identity for layer records
}

// RevisionManager observes scene change notifications, maintains a
// UUID-keyed snapshot of every drawable, and turns detected differences into
// an undo/redo history of transactions.
//
// Undo and Redo are re-entrancy guarded: mutations they perform never loop
// back into capture. Callers must serialize Undo/Redo against user edits;
// there is no internal mutex beyond the guard.
type RevisionManager struct {
	scene    *Scene
	provider FormatProvider

	// MaxHistory caps the number of stored transactions; <= 0 means unlimited.
	MaxHistory int

	snapshot  map[uuid.UUID]*drawableState
	order     []uuid.UUID // snapshot iteration order (scene insertion order)
	layerSnap []layerState

	history   [][]ChangeRecord
	redoStack [][]ChangeRecord
	isUndoing bool
}

// NewRevisionManager attaches a revision manager to the scene's change
// notification hook and takes the initial snapshot. The provider is used to
// rebuild skeletons when undoing a drawable destruction.
func NewRevisionManager(scene *Scene, provider FormatProvider) *RevisionManager {
	rm := &RevisionManager{
		scene:      scene,
		provider:   provider,
		MaxHistory: DefaultMaxHistory,
	}
	scene.OnChange(rm.capture)
	rm.InitializeSnapshot()
	return rm
}

// InitializeSnapshot rebuilds the snapshot from the live scene and clears
// all dirty flags. Called at session start and after every undo/redo: the
// snapshot is the single source of truth for "last known good state", and
// rebuilding it wholesale after a revert is the only reliable way to keep
// future diffs consistent with a reconstructed graph.
func (rm *RevisionManager) InitializeSnapshot() {
	rm.snapshot = make(map[uuid.UUID]*drawableState)
	rm.order = rm.order[:0]
	for _, d := range rm.scene.Drawables() {
		rm.snapshot[d.ID] = captureDrawable(d)
		rm.order = append(rm.order, d.ID)
	}
	rm.layerSnap = rm.layerSnap[:0]
	for _, l := range rm.scene.Layers() {
		rm.layerSnap = append(rm.layerSnap, layerState{ID: l.ID, Name: l.Name, Surface: l.surface})
	}
	rm.scene.clearDirty()
}

// CanUndo reports whether at least one transaction can be undone.
func (rm *RevisionManager) CanUndo() bool {
	return len(rm.history) > 0
}

// CanRedo reports whether at least one undone transaction can be reapplied.
func (rm *RevisionManager) CanRedo() bool {
	return len(rm.redoStack) > 0
}

// capture processes one unlocked scene notification: it diffs the live
// drawable set against the snapshot and pushes any differences as a single
// transaction. Dirty flags are reset afterwards whether or not anything
// changed.
func (rm *RevisionManager) capture() {
	if rm.isUndoing {
		return
	}
	var t0 time.Time
	if rm.scene.debug {
		t0 = time.Now()
	}

	var tx []ChangeRecord

	// Layer record placement is direction-sensitive: a referenced layer must
	// exist before any entity record binds to it, in BOTH replay directions.
	// layer_create records go first (redo walks forward, the layer exists
	// before bindings apply) and layer_destroy records go last (undo walks
	// backward, so restoreLayer runs before the bindings are reverted).
	liveLayers := rm.scene.Layers()
	for _, l := range liveLayers {
		if !rm.layerKnown(l.ID) {
			tx = append(tx, ChangeRecord{Type: ChangeLayerCreate, Layer: &layerState{ID: l.ID, Name: l.Name, Surface: l.surface}})
		}
	}
	var destroyedLayers []ChangeRecord
	for _, ls := range rm.layerSnap {
		if rm.scene.LayerByID(ls.ID) == nil {
			rec := ls
			destroyedLayers = append(destroyedLayers, ChangeRecord{Type: ChangeLayerDestroy, Layer: &rec})
		}
	}

	live := rm.scene.Drawables()
	liveSet := make(map[uuid.UUID]bool, len(live))
	for _, d := range live {
		liveSet[d.ID] = true
	}

	// Destructions: in snapshot, absent now. The record carries the full
	// last-known state so the drawable can be resurrected.
	remaining := rm.order[:0]
	for _, id := range rm.order {
		if liveSet[id] {
			remaining = append(remaining, id)
			continue
		}
		tx = append(tx, ChangeRecord{Type: ChangeDestroy, UUID: id, State: rm.snapshot[id]})
		delete(rm.snapshot, id)
	}
	rm.order = remaining

	// Creations and modifications, in scene order.
	for _, d := range live {
		prev, known := rm.snapshot[d.ID]
		if !known {
			st := captureDrawable(d)
			rm.snapshot[d.ID] = st
			rm.order = append(rm.order, d.ID)
			tx = append(tx, ChangeRecord{Type: ChangeCreate, UUID: d.ID, State: st})
			continue
		}
		if !d.dirty {
			continue
		}
		cur := captureDrawable(d)
		if diff := diffStates(prev, cur); !diff.empty() {
			tx = append(tx, ChangeRecord{Type: ChangeModify, UUID: d.ID, Diff: diff})
			rm.snapshot[d.ID] = cur
		}
	}

	tx = append(tx, destroyedLayers...)

	rm.layerSnap = rm.layerSnap[:0]
	for _, l := range liveLayers {
		rm.layerSnap = append(rm.layerSnap, layerState{ID: l.ID, Name: l.Name, Surface: l.surface})
	}

	if len(tx) > 0 {
		rm.history = append(rm.history, tx)
		if rm.MaxHistory > 0 && len(rm.history) > rm.MaxHistory {
			rm.history = rm.history[len(rm.history)-rm.MaxHistory:]
		}
		rm.redoStack = nil
	}
	rm.scene.clearDirty()

	if rm.scene.debug {
		debugLogCapture(captureStats{
			captureTime: time.Since(t0),
			drawables:   len(live),
			records:     len(tx),
		})
	}
}

func (rm *RevisionManager) layerKnown(id uuid.UUID) bool {
	for _, ls := range rm.layerSnap {
		if ls.ID == id {
			return true
		}
	}
	return false
}

// Undo reverts the most recent transaction, processing its records in
// reverse order, and pushes it onto the redo stack. Reverting is
// best-effort: an inconsistent record (unknown drawable or layer) is logged
// and skipped rather than aborting the replay. The context bounds skeleton
// template loads during reconstruction.
func (rm *RevisionManager) Undo(ctx context.Context) error {
	if len(rm.history) == 0 {
		return nil
	}
	tx := rm.history[len(rm.history)-1]
	rm.history = rm.history[:len(rm.history)-1]
	rm.redoStack = append(rm.redoStack, tx)

	rm.isUndoing = true
	defer func() {
		rm.InitializeSnapshot()
		rm.isUndoing = false
	}()
	for i := len(tx) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		rm.revert(ctx, tx[i])
	}
	return nil
}

// Redo reapplies the most recently undone transaction, processing its
// records in forward order, and pushes it back onto the history.
func (rm *RevisionManager) Redo(ctx context.Context) error {
	if len(rm.redoStack) == 0 {
		return nil
	}
	tx := rm.redoStack[len(rm.redoStack)-1]
	rm.redoStack = rm.redoStack[:len(rm.redoStack)-1]
	rm.history = append(rm.history, tx)

	rm.isUndoing = true
	defer func() {
		rm.InitializeSnapshot()
		rm.isUndoing = false
	}()
	for _, rec := range tx {
		if err := ctx.Err(); err != nil {
			return err
		}
		rm.apply(ctx, rec)
	}
	return nil
}

// revert applies the inverse of one record (the undo direction).
func (rm *RevisionManager) revert(ctx context.Context, rec ChangeRecord) {
	switch rec.Type {
	case ChangeCreate:
		rm.removeDrawable(rec.UUID)
	case ChangeDestroy:
		rm.reconstruct(ctx, rec.State)
	case ChangeModify:
		d := rm.scene.DrawableByID(rec.UUID)
		if d == nil {
			log.Printf("marionette: undo: drawable %s not found, skipping", rec.UUID)
			return
		}
		applyDiff(rm.scene, d, rec.Diff, true)
	case ChangeLayerCreate:
		rm.removeLayer(rec.Layer.ID)
	case ChangeLayerDestroy:
		rm.scene.restoreLayer(rec.Layer.ID, rec.Layer.Name, rec.Layer.Surface)
	}
}

// apply replays one record forward (the redo direction).
func (rm *RevisionManager) apply(ctx context.Context, rec ChangeRecord) {
	switch rec.Type {
	case ChangeCreate:
		rm.reconstruct(ctx, rec.State)
	case ChangeDestroy:
		rm.removeDrawable(rec.UUID)
	case ChangeModify:
		d := rm.scene.DrawableByID(rec.UUID)
		if d == nil {
			log.Printf("marionette: redo: drawable %s not found, skipping", rec.UUID)
			return
		}
		applyDiff(rm.scene, d, rec.Diff, false)
	case ChangeLayerCreate:
		rm.scene.restoreLayer(rec.Layer.ID, rec.Layer.Name, rec.Layer.Surface)
	case ChangeLayerDestroy:
		rm.removeLayer(rec.Layer.ID)
	}
}

func (rm *RevisionManager) removeDrawable(id uuid.UUID) {
	d := rm.scene.DrawableByID(id)
	if d == nil {
		log.Printf("marionette: revision replay: drawable %s not found, skipping", id)
		return
	}
	rm.scene.RemoveDrawable(d)
}

func (rm *RevisionManager) removeLayer(id uuid.UUID) {
	l := rm.scene.LayerByID(id)
	if l == nil {
		log.Printf("marionette: revision replay: layer %s not found, skipping", id)
		return
	}
	rm.scene.RemoveLayer(l)
}

// reconstruct rebuilds a drawable from its saved state: construction args
// first, then attributes and per-keypoint state matched by name. The fresh
// UUID of the replacement is overwritten with the historical one BEFORE the
// drawable joins the scene — identity must survive destroy/undo cycles or
// every later diff referencing this UUID silently desyncs.
func (rm *RevisionManager) reconstruct(ctx context.Context, st *drawableState) {
	var d *Entity
	switch st.Kind {
	case KindPerson:
		d = NewPerson(st.Name, st.Format)
		d.BuildSkeleton(ctx, rm.provider, st.OriginalBBox, nil)
	case KindImage:
		d = NewDistortableImage(st.Name, st.ImagePath, st.OriginalBBox)
	default:
		log.Printf("marionette: revision replay: cannot reconstruct kind %s, skipping", st.Kind)
		return
	}
	d.ID = st.UUID
	rm.scene.AddDrawable(d)

	if st.LayerID != uuid.Nil {
		if l := rm.scene.LayerByID(st.LayerID); l != nil {
			l.Attach(d)
		} else {
			log.Printf("marionette: revision replay: layer %s not found for %q, skipping binding", st.LayerID, st.Name)
		}
	}

	d.SetVisible(st.Visible)
	d.SetAlpha(st.Alpha)
	d.SetFillColor(st.FillColor)
	d.SetStrokeColor(st.StrokeColor)

	for _, name := range sortedChildNames(st.Children) {
		cs := st.Children[name]
		kp := d.keypoints[name]
		if kp == nil {
			log.Printf("marionette: revision replay: keypoint %q missing on rebuilt %q, skipping", name, st.Name)
			continue
		}
		if cs.Position != nil {
			p := *cs.Position
			kp.SetPosition(&p)
		} else {
			kp.SetPosition(nil)
		}
		kp.SetVisible(cs.Visible)
		kp.SetStrokeColor(cs.StrokeColor)
		kp.SetFillColor(cs.FillColor)
	}
}

func sortedChildNames(m map[string]childState) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
