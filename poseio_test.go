package marionette

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// openPoseJSON builds a single-person OpenPose file with n keypoints, the
// given triple overriding index 1 (Neck).
func openPoseJSON(n int, neckX, neckY, neckConf float64) []byte {
	var b strings.Builder
	b.WriteString(`{"version":1.3,"people":[{"pose_keypoints_2d":[`)
	for i := 0; i < n; i++ {
		x, y, c := float64(i), float64(i*2), 0.9
		if i == 1 {
			x, y, c = neckX, neckY, neckConf
		}
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%g,%g,%g", x, y, c)
	}
	b.WriteString("]}]}")
	return []byte(b.String())
}

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Dialect
	}{
		{"openpose", `{"people":[]}`, DialectOpenPose},
		{"document", `{"drawables":[]}`, DialectDocument},
		{"neither", `{"foo":1}`, DialectUnknown},
		{"malformed", `nope`, DialectUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDialect([]byte(tt.data)); got != tt.want {
				t.Errorf("DetectDialect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImportOpenPose18(t *testing.T) {
	people, err := ImportPoses(openPoseJSON(18, 320, 240, 0.9))
	if err != nil {
		t.Fatal(err)
	}
	if len(people) != 1 {
		t.Fatalf("people = %d, want 1", len(people))
	}
	pd := people[0]
	if pd.Format != FormatBody18 {
		t.Errorf("Format = %q, want %q", pd.Format, FormatBody18)
	}
	if got := pd.Keypoints["Neck"]; got == nil || *got != (Vec2{X: 320, Y: 240}) {
		t.Errorf("Neck = %v, want {320 240}", got)
	}
}

func TestImportOpenPoseZeroConfidence(t *testing.T) {
	people, err := ImportPoses(openPoseJSON(18, 320, 240, 0))
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := people[0].Keypoints["Neck"]; !ok || got != nil {
		t.Errorf("zero-confidence Neck should import as undetected, got %v", got)
	}
}

func TestImportOpenPose25(t *testing.T) {
	people, err := ImportPoses(openPoseJSON(25, 100, 100, 1))
	if err != nil {
		t.Fatal(err)
	}
	if people[0].Format != FormatBody25 {
		t.Errorf("Format = %q, want %q", people[0].Format, FormatBody25)
	}
	if len(people[0].Keypoints) != 25 {
		t.Errorf("keypoints = %d, want 25", len(people[0].Keypoints))
	}
}

func TestImportOpenPoseBadCount(t *testing.T) {
	if _, err := ImportPoses(openPoseJSON(20, 0, 0, 1)); err == nil {
		t.Error("unsupported keypoint count should error")
	}
}

func TestImportUnknownDialect(t *testing.T) {
	if _, err := ImportPoses([]byte(`{"foo":1}`)); err == nil {
		t.Error("unknown dialect should error")
	}
}

func TestExportPoseMissingKeypoints(t *testing.T) {
	f, _ := Builtin().Load(context.Background(), FormatBody25)
	p := newTestPerson(t, "a") // BODY18 drawable, BODY25 target

	_, err := ExportPose(p, f)
	var missing *MissingKeypointsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingKeypointsError", err)
	}
	if missing.Format != FormatBody25 {
		t.Errorf("Format = %q, want %q", missing.Format, FormatBody25)
	}
	found := false
	for _, n := range missing.Names {
		if n == "MidHip" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names = %v, should include MidHip", missing.Names)
	}
}

func TestExportPoseRoundTrip(t *testing.T) {
	f, _ := Builtin().Load(context.Background(), FormatBody18)
	p := newTestPerson(t, "a")
	p.Keypoint("Neck").SetPosition(&Vec2{X: 320, Y: 240})
	p.Keypoint("LWrist").SetPosition(nil) // undetected exports as zero triple

	data, err := ExportPose(p, f)
	if err != nil {
		t.Fatal(err)
	}

	people, err := ImportPoses(data)
	if err != nil {
		t.Fatal(err)
	}
	got := people[0].Keypoints
	if got["Neck"] == nil || *got["Neck"] != (Vec2{X: 320, Y: 240}) {
		t.Errorf("Neck = %v, want {320 240}", got["Neck"])
	}
	if got["LWrist"] != nil {
		t.Errorf("LWrist = %v, want undetected", got["LWrist"])
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewScene()
	surf := newStubSurface()
	l := s.NewLayer("people", surf)
	p := newTestPerson(t, "alice")
	s.AddDrawable(p)
	l.Attach(p)
	p.Keypoint("Neck").SetPosition(&Vec2{X: 7, Y: 8})

	data, err := ExportDocument(s)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		t.Fatal(err)
	}
	s2 := NewScene()
	LoadDocument(ctx, s2, Builtin(), doc, newStubSurface())

	ds := s2.Drawables()
	if len(ds) != 1 {
		t.Fatalf("drawables = %d, want 1", len(ds))
	}
	d := ds[0]
	if d.Name != "alice" || d.Format != FormatBody18 {
		t.Errorf("drawable = %q/%q", d.Name, d.Format)
	}
	if got := *d.Keypoint("Neck").Position(); got != (Vec2{X: 7, Y: 8}) {
		t.Errorf("Neck = %v, want {7 8}", got)
	}
	if d.Layer() == nil || d.Layer().Name != "people" {
		t.Error("drawable should rebind to its saved layer by name")
	}
}

func TestLoadDocumentSingleNotification(t *testing.T) {
	doc := &Document{
		Layers: []DocumentLayer{{Name: "main"}},
		Drawables: []DocumentDrawable{
			{Name: "a", Format: FormatBody18, BBox: body18Natural, Layer: "main",
				Keypoints: map[string]*Vec2{"Neck": {X: 1, Y: 1}}},
			{Name: "b", Format: FormatBody18, BBox: body18Natural, Layer: "main",
				Keypoints: map[string]*Vec2{"Neck": {X: 2, Y: 2}}},
		},
	}
	s := NewScene()
	var n int
	s.OnChange(func() { n++ })
	LoadDocument(context.Background(), s, Builtin(), doc, newStubSurface())
	if n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}
	if len(s.Drawables()) != 2 || len(s.Layers()) != 1 {
		t.Errorf("scene = %d drawables / %d layers, want 2/1", len(s.Drawables()), len(s.Layers()))
	}
}
