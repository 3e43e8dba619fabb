package marionette

import (
	"context"
	"errors"
	"fmt"
)

// ErrPickCanceled is returned by a PositionPicker when the user backs out
// of a pick without choosing a point.
var ErrPickCanceled = errors.New("marionette: position pick canceled")

// PositionPicker prompts for a single scene position. Pick blocks until the
// user chooses a point, cancels (ErrPickCanceled), or ctx is done. The
// prompt names the keypoint being placed.
type PositionPicker interface {
	Pick(ctx context.Context, prompt string) (Vec2, error)
}

// PickFunc adapts a function to the PositionPicker interface.
type PickFunc func(ctx context.Context, prompt string) (Vec2, error)

func (f PickFunc) Pick(ctx context.Context, prompt string) (Vec2, error) {
	return f(ctx, prompt)
}

// RepairKeypoint interactively gives an undetected keypoint a position.
// The picker is invoked once for the named keypoint; on success the point
// is defined at the chosen position, which re-renders every bone it
// anchors. A canceled pick leaves the drawable untouched and returns
// ErrPickCanceled. Panics if the entity is not a drawable.
func (e *Entity) RepairKeypoint(ctx context.Context, picker PositionPicker, name string) error {
	if !e.Kind.IsDrawable() {
		panic("marionette: RepairKeypoint called on non-drawable " + e.Kind.String())
	}
	kp := e.keypoints[name]
	if kp == nil {
		return fmt.Errorf("marionette: drawable %q has no keypoint %q", e.Name, name)
	}
	if kp.pos != nil {
		return nil
	}
	pos, err := picker.Pick(ctx, name)
	if err != nil {
		return err
	}
	kp.SetPosition(&pos)
	return nil
}

// RepairKeypoints runs RepairKeypoint over every undetected keypoint of the
// drawable, in name order. It stops at the first error; a cancel therefore
// keeps all repairs made before it.
func (e *Entity) RepairKeypoints(ctx context.Context, picker PositionPicker) error {
	for _, name := range e.KeypointNames() {
		if err := e.RepairKeypoint(ctx, picker, name); err != nil {
			return err
		}
	}
	return nil
}
