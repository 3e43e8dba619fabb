package marionette

import (
	"log"
	"sort"

	"github.com/google/uuid"
)

// childState is the captured per-keypoint state, keyed by entity name
// (unique within a drawable).
type childState struct {
	Position    *Vec2
	Visible     bool
	StrokeColor Color
	FillColor   Color
}

// drawableState is the revision manager's serializable state for one
// drawable. The construction fields (Name, Format, ImagePath, OriginalBBox)
// capture exactly what is needed to rebuild the drawable from scratch; the
// attribute and child fields are reapplied on top of the rebuilt skeleton.
type drawableState struct {
	Kind         EntityKind
	UUID         uuid.UUID
	Name         string
	Format       string
	ImagePath    string
	OriginalBBox Rect

	Visible     bool
	Alpha       float64
	FillColor   Color
	StrokeColor Color
	LayerID     uuid.UUID // uuid.Nil when not bound to a layer

	Children map[string]childState
}

// captureDrawable records the resolved state of a drawable and its keypoints.
func captureDrawable(d *Entity) *drawableState {
	st := &drawableState{
		Kind:         d.Kind,
		UUID:         d.ID,
		Name:         d.Name,
		Format:       d.Format,
		ImagePath:    d.ImagePath,
		OriginalBBox: d.OriginalBBox,
		Visible:      d.Visible(),
		Alpha:        d.Alpha(),
		FillColor:    d.FillColor(),
		StrokeColor:  d.StrokeColor(),
		Children:     make(map[string]childState, len(d.keypoints)),
	}
	if d.layer != nil {
		st.LayerID = d.layer.ID
	}
	for name, kp := range d.keypoints {
		cs := childState{
			Visible:     kp.Visible(),
			StrokeColor: kp.StrokeColor(),
			FillColor:   kp.FillColor(),
		}
		if kp.pos != nil {
			p := *kp.pos
			cs.Position = &p
		}
		st.Children[name] = cs
	}
	return st
}

// stateAttr identifies one diffable field of a drawable or keypoint state.
type stateAttr uint8

const (
	attrVisible stateAttr = iota
	attrAlpha
	attrFillColor
	attrStrokeColor
	attrLayer
	attrPosition
)

// String returns the attribute name for diagnostics.
func (a stateAttr) String() string {
	switch a {
	case attrVisible:
		return "visible"
	case attrAlpha:
		return "alpha"
	case attrFillColor:
		return "fillColor"
	case attrStrokeColor:
		return "strokeColor"
	case attrLayer:
		return "layer"
	case attrPosition:
		return "position"
	default:
		return "unknown"
	}
}

// attrChange is one {from, to} pair for a changed field.
type attrChange struct {
	Attr stateAttr
	From any
	To   any
}

// stateDiff is the set of changed fields between two captures of the same
// drawable. An empty diff means no-op and suppresses the transaction record.
type stateDiff struct {
	Fields   []attrChange
	Children map[string][]attrChange
}

func (d *stateDiff) empty() bool {
	return len(d.Fields) == 0 && len(d.Children) == 0
}

// samePos compares optional positions by value.
func samePos(a, b *Vec2) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// diffStates computes the value diff between two captures. Child names are
// visited in sorted order so record layout is deterministic.
func diffStates(from, to *drawableState) *stateDiff {
	d := &stateDiff{}
	if from.Visible != to.Visible {
		d.Fields = append(d.Fields, attrChange{attrVisible, from.Visible, to.Visible})
	}
	if from.Alpha != to.Alpha {
		d.Fields = append(d.Fields, attrChange{attrAlpha, from.Alpha, to.Alpha})
	}
	if from.FillColor != to.FillColor {
		d.Fields = append(d.Fields, attrChange{attrFillColor, from.FillColor, to.FillColor})
	}
	if from.StrokeColor != to.StrokeColor {
		d.Fields = append(d.Fields, attrChange{attrStrokeColor, from.StrokeColor, to.StrokeColor})
	}
	if from.LayerID != to.LayerID {
		d.Fields = append(d.Fields, attrChange{attrLayer, from.LayerID, to.LayerID})
	}

	names := make([]string, 0, len(to.Children))
	for name := range to.Children {
		names = append(names, name)
	}
	for name := range from.Children {
		if _, ok := to.Children[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fc := from.Children[name]
		tc := to.Children[name]
		var changes []attrChange
		if !samePos(fc.Position, tc.Position) {
			changes = append(changes, attrChange{attrPosition, fc.Position, tc.Position})
		}
		if fc.Visible != tc.Visible {
			changes = append(changes, attrChange{attrVisible, fc.Visible, tc.Visible})
		}
		if fc.StrokeColor != tc.StrokeColor {
			changes = append(changes, attrChange{attrStrokeColor, fc.StrokeColor, tc.StrokeColor})
		}
		if fc.FillColor != tc.FillColor {
			changes = append(changes, attrChange{attrFillColor, fc.FillColor, tc.FillColor})
		}
		if len(changes) > 0 {
			if d.Children == nil {
				d.Children = make(map[string][]attrChange)
			}
			d.Children[name] = changes
		}
	}
	return d
}

// applyDiff replays a diff on a live drawable. backward applies the From
// values (undo); forward applies the To values (redo). An unknown layer id
// or missing keypoint is logged and skipped so a partial revert still
// applies everything else.
func applyDiff(s *Scene, d *Entity, diff *stateDiff, backward bool) {
	pick := func(c attrChange) any {
		if backward {
			return c.From
		}
		return c.To
	}
	for _, c := range diff.Fields {
		switch c.Attr {
		case attrVisible:
			d.SetVisible(pick(c).(bool))
		case attrAlpha:
			d.SetAlpha(pick(c).(float64))
		case attrFillColor:
			d.SetFillColor(pick(c).(Color))
		case attrStrokeColor:
			d.SetStrokeColor(pick(c).(Color))
		case attrLayer:
			id := pick(c).(uuid.UUID)
			if id == uuid.Nil {
				if d.layer != nil {
					d.layer.Detach(d)
				}
				continue
			}
			l := s.LayerByID(id)
			if l == nil {
				log.Printf("marionette: revision replay: layer %s not found, skipping", id)
				continue
			}
			l.Attach(d)
		}
	}
	for _, name := range sortedKeys(diff.Children) {
		kp := d.keypoints[name]
		if kp == nil {
			log.Printf("marionette: revision replay: keypoint %q not found on %q, skipping", name, d.Name)
			continue
		}
		for _, c := range diff.Children[name] {
			switch c.Attr {
			case attrPosition:
				if p, _ := pick(c).(*Vec2); p != nil {
					v := *p
					kp.SetPosition(&v)
				} else {
					kp.SetPosition(nil)
				}
			case attrVisible:
				kp.SetVisible(pick(c).(bool))
			case attrStrokeColor:
				kp.SetStrokeColor(pick(c).(Color))
			case attrFillColor:
				kp.SetFillColor(pick(c).(Color))
			}
		}
	}
}

func sortedKeys(m map[string][]attrChange) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
