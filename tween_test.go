package marionette

import (
	"context"
	"testing"

	"github.com/tanema/gween/ease"
)

func TestTweenPoseReachesTarget(t *testing.T) {
	p := newTestPerson(t, "a")
	target := map[string]Vec2{
		"Neck": {X: 200, Y: 200},
		"Nose": {X: 200, Y: 160},
	}
	tw := TweenPose(p, target, 1.0, ease.Linear)

	for i := 0; i < 10 && !tw.Done; i++ {
		tw.Update(0.25)
	}
	if !tw.Done {
		t.Fatal("tween should finish")
	}
	if got := *p.Keypoint("Neck").Position(); got != target["Neck"] {
		t.Errorf("Neck = %v, want %v", got, target["Neck"])
	}
	if got := *p.Keypoint("Nose").Position(); got != target["Nose"] {
		t.Errorf("Nose = %v, want %v", got, target["Nose"])
	}
}

func TestTweenPoseSingleTransaction(t *testing.T) {
	s := NewScene()
	p := newTestPerson(t, "a")
	s.AddDrawable(p)
	rm := NewRevisionManager(s, Builtin())

	tw := TweenPose(p, map[string]Vec2{"Neck": {X: 50, Y: 50}}, 1.0, ease.Linear)
	for i := 0; i < 8; i++ {
		tw.Update(0.2)
	}
	if !tw.Done {
		t.Fatal("tween should finish")
	}
	if got := len(rm.history); got != 1 {
		t.Errorf("transactions = %d, want 1; frames must coalesce", got)
	}
}

func TestTweenPoseSkipsUndetectedAndUnknown(t *testing.T) {
	pd := &PersonData{Format: FormatBody18, Keypoints: map[string]*Vec2{
		"Neck": {X: 0, Y: 0},
	}}
	p := NewPerson("a", FormatBody18)
	p.BuildSkeleton(context.Background(), Builtin(), Rect{}, pd)

	tw := TweenPose(p, map[string]Vec2{
		"Neck":  {X: 10, Y: 10},
		"Nose":  {X: 99, Y: 99}, // undetected, skipped
		"Ghost": {X: 1, Y: 1},   // unknown name, skipped
	}, 0.5, ease.Linear)

	for i := 0; i < 5 && !tw.Done; i++ {
		tw.Update(0.25)
	}
	if got := *p.Keypoint("Neck").Position(); got != (Vec2{X: 10, Y: 10}) {
		t.Errorf("Neck = %v, want {10 10}", got)
	}
	if p.Keypoint("Nose").Position() != nil {
		t.Error("undetected keypoint must not be animated")
	}
}

func TestTweenPoseEmptySelectionDone(t *testing.T) {
	pd := &PersonData{Format: FormatBody18, Keypoints: map[string]*Vec2{}}
	p := NewPerson("a", FormatBody18)
	p.BuildSkeleton(context.Background(), Builtin(), Rect{}, pd)

	tw := TweenPose(p, map[string]Vec2{"Neck": {X: 1, Y: 1}}, 1.0, ease.Linear)
	if !tw.Done {
		t.Error("tween with nothing to animate should start done")
	}
}

func TestTweenPoseCancelReleasesLock(t *testing.T) {
	s := NewScene()
	p := newTestPerson(t, "a")
	s.AddDrawable(p)

	tw := TweenPose(p, map[string]Vec2{"Neck": {X: 50, Y: 50}}, 1.0, ease.Linear)
	tw.Update(0.1)
	tw.Cancel()

	var n int
	s.OnChange(func() { n++ })
	p.Keypoint("Neck").SetPosition(&Vec2{X: 1, Y: 1})
	if n != 1 {
		t.Errorf("notifications = %d, want 1; cancel must release the lock", n)
	}
}

func TestTweenResetPoseRestoresTemplate(t *testing.T) {
	p := newTestPerson(t, "a")
	p.Keypoint("Neck").SetPosition(&Vec2{X: 300, Y: 300})

	tw, err := TweenResetPose(context.Background(), p, Builtin(), 0.5, ease.Linear)
	if err != nil {
		t.Fatalf("TweenResetPose: %v", err)
	}
	for i := 0; i < 10 && !tw.Done; i++ {
		tw.Update(0.1)
	}
	if !tw.Done {
		t.Fatal("tween should finish")
	}
	if got := *p.Keypoint("Neck").Position(); got != (Vec2{X: 100, Y: 80}) {
		t.Errorf("Neck = %v, want {100 80}", got)
	}
}

func TestTweenResetPoseUnknownFormat(t *testing.T) {
	p := NewPerson("a", "NOPE")
	if _, err := TweenResetPose(context.Background(), p, Builtin(), 0.5, ease.Linear); err == nil {
		t.Error("expected error for unknown format")
	}
}
