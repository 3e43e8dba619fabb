package marionette

import (
	"context"
	"fmt"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// PoseTween animates a drawable's keypoints toward a target pose. Create
// one via TweenPose and call Update(dt) each frame.
//
// The drawable's state changes stay locked from the first Update to the
// last, so the whole animation lands as a single revision instead of one
// per frame. If the drawable is destroyed mid-flight the tween stops and
// releases the lock.
//
// There is no global animation manager. Users call Update themselves.
type PoseTween struct {
	target *Entity
	names  []string
	xs     []*gween.Tween
	ys     []*gween.Tween
	locked bool
	Done   bool
}

// TweenPose creates a PoseTween moving every keypoint that is defined on
// the drawable and present in the target pose. Undetected keypoints and
// target entries for names the drawable lacks are skipped. Panics if the
// entity is not a drawable.
func TweenPose(d *Entity, to map[string]Vec2, duration float32, fn ease.TweenFunc) *PoseTween {
	if !d.Kind.IsDrawable() {
		panic("marionette: TweenPose called on non-drawable " + d.Kind.String())
	}
	t := &PoseTween{target: d}
	for _, name := range d.KeypointNames() {
		kp := d.keypoints[name]
		if kp.pos == nil {
			continue
		}
		dst, ok := to[name]
		if !ok {
			continue
		}
		t.names = append(t.names, name)
		t.xs = append(t.xs, gween.New(float32(kp.pos.X), float32(dst.X), duration, fn))
		t.ys = append(t.ys, gween.New(float32(kp.pos.Y), float32(dst.Y), duration, fn))
	}
	if len(t.names) == 0 {
		t.Done = true
	}
	return t
}

// TweenResetPose is the animated counterpart of [Entity.ResetPose]: it
// returns a tween moving every defined keypoint back to its template
// position within the drawable's original bounding box. The error is the
// template load failure, if any.
func TweenResetPose(ctx context.Context, d *Entity, provider FormatProvider, duration float32, fn ease.TweenFunc) (*PoseTween, error) {
	if !d.Kind.IsDrawable() {
		panic("marionette: TweenResetPose called on non-drawable " + d.Kind.String())
	}
	f, err := provider.Load(ctx, d.Format)
	if err != nil {
		return nil, fmt.Errorf("marionette: reset pose for %q: %w", d.Name, err)
	}
	to := make(map[string]Vec2, len(f.Keypoints))
	for _, fk := range f.Keypoints {
		to[fk.Name] = mapPoint(Vec2{fk.X, fk.Y}, f.NaturalBounds, d.OriginalBBox)
	}
	return TweenPose(d, to, duration, fn), nil
}

// Update advances the tween by dt seconds and writes the interpolated
// positions to the keypoints. Returns true when the tween has finished.
func (t *PoseTween) Update(dt float32) bool {
	if t.Done {
		return true
	}
	if t.target.destroyed {
		t.finish()
		return true
	}
	if !t.locked {
		t.target.LockStateChange()
		t.locked = true
	}

	allDone := true
	for i, name := range t.names {
		kp := t.target.keypoints[name]
		if kp == nil || kp.destroyed {
			continue
		}
		x, fx := t.xs[i].Update(dt)
		y, fy := t.ys[i].Update(dt)
		kp.SetPosition(&Vec2{X: float64(x), Y: float64(y)})
		if !fx || !fy {
			allDone = false
		}
	}
	if allDone {
		t.finish()
	}
	return t.Done
}

// Cancel stops the tween where it is, releasing the batch lock. Positions
// written so far are kept.
func (t *PoseTween) Cancel() {
	t.finish()
}

func (t *PoseTween) finish() {
	if t.locked {
		t.target.UnlockStateChange()
		t.locked = false
		if !t.target.destroyed {
			t.target.changeState()
		}
	}
	t.Done = true
}
