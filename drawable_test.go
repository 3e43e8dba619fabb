package marionette

import (
	"context"
	"testing"
)

func TestBuildSkeletonBody18(t *testing.T) {
	p := newTestPerson(t, "a")

	if len(p.Keypoints()) != 18 {
		t.Errorf("keypoints = %d, want 18", len(p.Keypoints()))
	}
	if len(p.Limbs()) != 6 {
		t.Errorf("limbs = %d, want 6", len(p.Limbs()))
	}
	bones := 0
	for _, l := range p.Limbs() {
		bones += len(l.Bones())
	}
	if bones != 17 {
		t.Errorf("bones = %d, want 17", bones)
	}
	for _, l := range p.Limbs() {
		if l.Name == OthersLimbName {
			t.Error("BODY18 assigns every edge; no Others limb expected")
		}
	}

	// Building into the natural bounds keeps the template coordinates.
	if got := *p.Keypoint("Neck").Position(); got != (Vec2{X: 100, Y: 80}) {
		t.Errorf("Neck = %v, want {100 80}", got)
	}
}

func TestBuildSkeletonScalesToBBox(t *testing.T) {
	p := NewPerson("a", FormatBody18)
	p.BuildSkeleton(context.Background(), Builtin(), Rect{X: 0, Y: 0, Width: 180, Height: 616}, nil)

	// Natural bounds are {55 32 90 308}; the target box doubles both axes.
	if got := *p.Keypoint("Neck").Position(); got != (Vec2{X: 90, Y: 96}) {
		t.Errorf("Neck = %v, want {90 96}", got)
	}
}

func TestBuildSkeletonIdempotent(t *testing.T) {
	p := newTestPerson(t, "a")
	neck := p.Keypoint("Neck")
	children := p.NumChildren()

	p.Keypoint("Neck").SetPosition(&Vec2{X: 1, Y: 1})
	p.BuildSkeleton(context.Background(), Builtin(), body18Natural, nil)

	if p.Keypoint("Neck") != neck {
		t.Error("rebuild must reuse existing keypoint entities")
	}
	if p.NumChildren() != children {
		t.Errorf("children = %d, want %d; structure must not duplicate", p.NumChildren(), children)
	}
	if got := *neck.Position(); got != (Vec2{X: 100, Y: 80}) {
		t.Errorf("Neck = %v, want template position after rebuild", got)
	}
}

func TestBuildSkeletonPersonData(t *testing.T) {
	pd := &PersonData{Format: FormatBody18, Keypoints: map[string]*Vec2{
		"Neck": {X: 50, Y: 60},
		"Nose": nil,
	}}
	p := NewPerson("a", FormatBody18)
	p.BuildSkeleton(context.Background(), Builtin(), Rect{}, pd)

	if got := *p.Keypoint("Neck").Position(); got != (Vec2{X: 50, Y: 60}) {
		t.Errorf("Neck = %v, want seeded position", got)
	}
	if p.Keypoint("Nose").Position() != nil {
		t.Error("nil seed should mean undetected")
	}
	if p.Keypoint("LWrist").Position() != nil {
		t.Error("names absent from the seed should mean undetected")
	}
}

func TestBuildSkeletonUnknownFormat(t *testing.T) {
	p := NewPerson("a", "NOPE")
	p.BuildSkeleton(context.Background(), Builtin(), body18Natural, nil)
	if len(p.Keypoints()) != 0 {
		t.Error("unknown format should leave the keypoint dict empty")
	}
}

func TestOthersLimbCollectsUnassignedEdges(t *testing.T) {
	f := &Format{
		Name: "TRI",
		Keypoints: []FormatKeypoint{
			{"a", 0, 0}, {"b", 10, 0}, {"c", 5, 10},
		},
		Edges: [][2]int{{0, 1}, {1, 2}},
		Limbs: []FormatLimb{{"top", []int{0, 1}}},
	}
	if err := f.validate(); err != nil {
		t.Fatal(err)
	}
	provider := StaticProvider{"TRI": f}

	p := NewPerson("p", "TRI")
	p.BuildSkeleton(context.Background(), provider, Rect{}, nil)

	limbs := p.Limbs()
	if len(limbs) != 2 {
		t.Fatalf("limbs = %d, want 2", len(limbs))
	}
	last := limbs[len(limbs)-1]
	if last.Name != OthersLimbName {
		t.Errorf("last limb = %q, want %q", last.Name, OthersLimbName)
	}
	if len(last.Bones()) != 1 {
		t.Errorf("Others bones = %d, want 1", len(last.Bones()))
	}
}

func TestResetPose(t *testing.T) {
	p := newTestPerson(t, "a")
	p.Keypoint("Neck").SetPosition(&Vec2{X: 999, Y: 999})

	p.ResetPose(context.Background(), Builtin())
	if got := *p.Keypoint("Neck").Position(); got != (Vec2{X: 100, Y: 80}) {
		t.Errorf("Neck = %v, want template position", got)
	}
}

func TestBuildSkeletonBatchesAsOneChange(t *testing.T) {
	s := NewScene()
	p := NewPerson("a", FormatBody18)
	s.AddDrawable(p)

	var n int
	s.OnChange(func() { n++ })
	p.BuildSkeleton(context.Background(), Builtin(), body18Natural, nil)
	if n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}
}

// --- Distortable images ---

func TestNewDistortableImageCorners(t *testing.T) {
	bbox := Rect{X: 10, Y: 20, Width: 200, Height: 100}
	img := NewDistortableImage("bg", "missing.png", bbox)

	wantCorners := map[string]Vec2{
		CornerTopLeft:  {X: 10, Y: 20},
		CornerTopRight: {X: 210, Y: 20},
		CornerBotRight: {X: 210, Y: 120},
		CornerBotLeft:  {X: 10, Y: 120},
	}
	for name, want := range wantCorners {
		got := img.Keypoint(name)
		if got == nil || *got.Position() != want {
			t.Errorf("%s = %v, want %v", name, got.Position(), want)
		}
	}
	if got := *img.Position(); got != (Vec2{X: 10, Y: 20}) {
		t.Errorf("image position = %v, want top-left corner", got)
	}
}

func TestImageQuadFollowsCorners(t *testing.T) {
	s := NewScene()
	surf := newStubSurface()
	l := s.NewLayer("main", surf)
	img := NewDistortableImage("bg", "", Rect{X: 0, Y: 0, Width: 100, Height: 100})
	s.AddDrawable(img)
	l.Attach(img)

	if len(surf.quads) != 1 {
		t.Fatalf("quads = %d, want 1", len(surf.quads))
	}
	img.Keypoint(CornerTopLeft).SetPosition(&Vec2{X: -20, Y: -30})
	if got := surf.quads[0].corners[0]; got != (Vec2{X: -20, Y: -30}) {
		t.Errorf("quad TL = %v, want {-20 -30}", got)
	}
}

func TestImageQuadHiddenWhenCornerUndetected(t *testing.T) {
	s := NewScene()
	surf := newStubSurface()
	l := s.NewLayer("main", surf)
	img := NewDistortableImage("bg", "", Rect{Width: 100, Height: 100})
	s.AddDrawable(img)
	l.Attach(img)

	img.Keypoint(CornerBotLeft).SetPosition(nil)
	if surf.quads[0].visible {
		t.Error("quad should hide when a corner is undetected")
	}
}

// --- Keypoint rendering ---

func TestUndetectedKeypointRendersNothing(t *testing.T) {
	s := NewScene()
	surf := newStubSurface()
	l := s.NewLayer("main", surf)

	pd := &PersonData{Format: FormatBody18, Keypoints: map[string]*Vec2{}}
	p := NewPerson("a", FormatBody18)
	p.BuildSkeleton(context.Background(), Builtin(), Rect{}, pd)
	s.AddDrawable(p)
	l.Attach(p)

	if len(surf.points) != 0 {
		t.Fatalf("points = %d, want 0 with every keypoint undetected", len(surf.points))
	}
	p.Keypoint("Neck").SetPosition(&Vec2{X: 5, Y: 5})
	if len(surf.points) != 1 {
		t.Errorf("points = %d, want 1 after a keypoint appears", len(surf.points))
	}
}

func TestDetailKeypointRendersSmaller(t *testing.T) {
	f := &Format{
		Name: "FACE",
		Keypoints: []FormatKeypoint{
			{"FaceBrow", 0, 0}, {"Neck", 10, 10},
		},
		Edges: [][2]int{{0, 1}},
		Limbs: []FormatLimb{{"all", []int{0, 1}}},
	}
	if err := f.validate(); err != nil {
		t.Fatal(err)
	}
	s := NewScene()
	surf := newStubSurface()
	l := s.NewLayer("main", surf)
	p := NewPerson("p", "FACE")
	p.BuildSkeleton(context.Background(), StaticProvider{"FACE": f}, Rect{}, nil)
	s.AddDrawable(p)
	l.Attach(p)

	var detail, plain *stubPoint
	for _, pt := range surf.points {
		if pt.radius == detailRadius {
			detail = pt
		}
		if pt.radius == keypointRadius {
			plain = pt
		}
	}
	if detail == nil || plain == nil {
		t.Fatal("expected one detail and one plain point")
	}
	if detail.stroke != ColorDetail {
		t.Errorf("detail stroke = %v, want %v", detail.stroke, ColorDetail)
	}
}

func TestSelectedOverridesMissingPartnerColor(t *testing.T) {
	s := NewScene()
	surf := newStubSurface()
	l := s.NewLayer("main", surf)

	pd := &PersonData{Format: FormatBody18, Keypoints: map[string]*Vec2{
		"Neck": {X: 10, Y: 10},
	}}
	p := NewPerson("a", FormatBody18)
	p.BuildSkeleton(context.Background(), Builtin(), Rect{}, pd)
	s.AddDrawable(p)
	l.Attach(p)

	if len(surf.points) != 1 {
		t.Fatalf("points = %d, want 1", len(surf.points))
	}
	if surf.points[0].fill != ColorMissingPartner {
		t.Errorf("fill = %v, want missing-partner color", surf.points[0].fill)
	}

	p.SetSelected(true)
	if surf.points[0].fill != ColorSelected {
		t.Errorf("fill = %v, want selection color over missing-partner", surf.points[0].fill)
	}
}
