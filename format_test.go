package marionette

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinFormats(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{FormatBody18, FormatBody25, FormatQuad4} {
		f, err := Builtin().Load(ctx, name)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if f.Name != name {
			t.Errorf("Name = %q, want %q", f.Name, name)
		}
	}
	if _, err := Builtin().Load(ctx, "NOPE"); err == nil {
		t.Error("unknown builtin should error")
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name string
		f    Format
	}{
		{"no keypoints", Format{Name: "x"}},
		{"duplicate name", Format{Name: "x", Keypoints: []FormatKeypoint{{"a", 0, 0}, {"a", 1, 1}}}},
		{"edge out of range", Format{
			Name:      "x",
			Keypoints: []FormatKeypoint{{"a", 0, 0}},
			Edges:     [][2]int{{0, 3}},
		}},
		{"limb vertex out of range", Format{
			Name:      "x",
			Keypoints: []FormatKeypoint{{"a", 0, 0}},
			Limbs:     []FormatLimb{{"l", []int{5}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.f.validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestFormatNaturalBoundsAutofill(t *testing.T) {
	f := Format{
		Name:      "x",
		Keypoints: []FormatKeypoint{{"a", 10, 20}, {"b", 110, 70}},
	}
	if err := f.validate(); err != nil {
		t.Fatal(err)
	}
	want := Rect{X: 10, Y: 20, Width: 100, Height: 50}
	if f.NaturalBounds != want {
		t.Errorf("NaturalBounds = %v, want %v", f.NaturalBounds, want)
	}
}

func TestParseFormat(t *testing.T) {
	data := []byte(`{
		"name": "MINI",
		"keypoints": [{"name": "a", "x": 0, "y": 0}, {"name": "b", "x": 10, "y": 0}],
		"edges": [[0, 1]],
		"limbs": [{"name": "all", "vertices": [0, 1]}]
	}`)
	f, err := ParseFormat(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "MINI" || len(f.Keypoints) != 2 || len(f.Edges) != 1 {
		t.Errorf("parsed format = %+v", f)
	}

	if _, err := ParseFormat([]byte(`{"name": "BAD"}`)); err == nil {
		t.Error("invalid format should fail validation")
	}
	if _, err := ParseFormat([]byte(`not json`)); err == nil {
		t.Error("malformed JSON should error")
	}
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`{
		"name": "MINI",
		"keypoints": [{"name": "a", "x": 0, "y": 0}, {"name": "b", "x": 10, "y": 0}],
		"edges": [[0, 1]],
		"limbs": [{"name": "all", "vertices": [0, 1]}]
	}`)
	if err := os.WriteFile(filepath.Join(dir, "MINI.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	p := &DirProvider{Dir: dir}

	// Builtins resolve without touching the directory.
	if _, err := p.Load(ctx, FormatBody18); err != nil {
		t.Fatalf("builtin load: %v", err)
	}

	f1, err := p.Load(ctx, "MINI")
	if err != nil {
		t.Fatal(err)
	}
	f2, err := p.Load(ctx, "MINI")
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Error("second load should come from the cache")
	}

	if _, err := p.Load(ctx, "MISSING"); err == nil {
		t.Error("missing file should error")
	}
}

func TestDirProviderHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &DirProvider{Dir: t.TempDir()}
	if _, err := p.Load(ctx, "ANYTHING"); err == nil {
		t.Error("canceled context should abort the disk load")
	}
}

func TestRequiredNames(t *testing.T) {
	f, _ := Builtin().Load(context.Background(), FormatBody18)
	names := f.RequiredNames()
	if len(names) != 18 || names[0] != "Nose" || names[1] != "Neck" {
		t.Errorf("RequiredNames = %v", names)
	}
}
