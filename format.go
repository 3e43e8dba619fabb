package marionette

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FormatKeypoint is one named vertex of a skeleton format, with its position
// in the format's natural (untransformed) layout.
type FormatKeypoint struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// FormatLimb groups format vertices into one body region. Edges are assigned
// to the first limb whose vertex set contains both endpoints, so limb order
// is significant.
type FormatLimb struct {
	Name     string `json:"name"`
	Vertices []int  `json:"vertices"`
}

// Format is a skeleton template: the ordered vertex list, the edge list
// (index pairs into Keypoints), the ordered limb groupings, and the natural
// bounding box of the vertex layout.
type Format struct {
	Name          string           `json:"name"`
	Keypoints     []FormatKeypoint `json:"keypoints"`
	Edges         [][2]int         `json:"edges"`
	Limbs         []FormatLimb     `json:"limbs"`
	NaturalBounds Rect             `json:"naturalBounds,omitempty"`
}

// validate checks index ranges and name uniqueness, and fills in
// NaturalBounds from the vertex layout when it was not provided.
func (f *Format) validate() error {
	if len(f.Keypoints) == 0 {
		return fmt.Errorf("marionette: format %q has no keypoints", f.Name)
	}
	seen := make(map[string]bool, len(f.Keypoints))
	for _, kp := range f.Keypoints {
		if seen[kp.Name] {
			return fmt.Errorf("marionette: format %q: duplicate keypoint name %q", f.Name, kp.Name)
		}
		seen[kp.Name] = true
	}
	n := len(f.Keypoints)
	for _, edge := range f.Edges {
		if edge[0] < 0 || edge[0] >= n || edge[1] < 0 || edge[1] >= n {
			return fmt.Errorf("marionette: format %q: edge %v out of range", f.Name, edge)
		}
	}
	for _, limb := range f.Limbs {
		for _, v := range limb.Vertices {
			if v < 0 || v >= n {
				return fmt.Errorf("marionette: format %q: limb %q vertex %d out of range", f.Name, limb.Name, v)
			}
		}
	}
	if f.NaturalBounds == (Rect{}) {
		f.NaturalBounds = f.layoutBounds()
	}
	return nil
}

// layoutBounds computes the bounding box of the natural vertex layout.
func (f *Format) layoutBounds() Rect {
	minX, minY := f.Keypoints[0].X, f.Keypoints[0].Y
	maxX, maxY := minX, minY
	for _, kp := range f.Keypoints[1:] {
		if kp.X < minX {
			minX = kp.X
		}
		if kp.X > maxX {
			maxX = kp.X
		}
		if kp.Y < minY {
			minY = kp.Y
		}
		if kp.Y > maxY {
			maxY = kp.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// RequiredNames returns the vertex names of the format in order.
func (f *Format) RequiredNames() []string {
	names := make([]string, len(f.Keypoints))
	for i, kp := range f.Keypoints {
		names[i] = kp.Name
	}
	return names
}

// FormatProvider resolves a format identifier to a skeleton template.
// Loading may hit the filesystem or network, so it is context-aware;
// implementations are expected to cache by name.
type FormatProvider interface {
	Load(ctx context.Context, name string) (*Format, error)
}

// StaticProvider serves formats from an in-memory map. It backs the builtin
// formats and is handy for tests.
type StaticProvider map[string]*Format

// Load returns the named format or an error naming the unknown format.
func (p StaticProvider) Load(_ context.Context, name string) (*Format, error) {
	f, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("marionette: unknown format %q", name)
	}
	return f, nil
}

// DirProvider loads formats from <Dir>/<name>.json, validating and caching
// each by name. Builtin formats are consulted first so a directory can add
// formats without shadowing BODY18/BODY25.
type DirProvider struct {
	Dir   string
	cache map[string]*Format
}

// Load returns the named format, from the builtin set, the cache, or disk.
func (p *DirProvider) Load(ctx context.Context, name string) (*Format, error) {
	if f, ok := builtinFormats[name]; ok {
		return f, nil
	}
	if f, ok := p.cache[name]; ok {
		return f, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(p.Dir, name+".json"))
	if err != nil {
		return nil, fmt.Errorf("marionette: load format %q: %w", name, err)
	}
	f, err := ParseFormat(data)
	if err != nil {
		return nil, err
	}
	if p.cache == nil {
		p.cache = make(map[string]*Format)
	}
	p.cache[name] = f
	return f, nil
}

// ParseFormat parses and validates a skeleton format from JSON.
func ParseFormat(data []byte) (*Format, error) {
	var f Format
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("marionette: failed to parse format JSON: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Builtin returns a provider serving only the builtin formats.
func Builtin() FormatProvider {
	return StaticProvider(builtinFormats)
}

// Builtin format names.
const (
	FormatBody18 = "BODY18"
	FormatBody25 = "BODY25"
)

var builtinFormats = map[string]*Format{
	FormatBody18: body18,
	FormatBody25: body25,
}

func init() {
	for _, f := range builtinFormats {
		if err := f.validate(); err != nil {
			panic(err)
		}
	}
}

// body18 is the 18-point COCO-style body layout. Natural coordinates form a
// standing figure roughly 200x400 units.
var body18 = &Format{
	Name: FormatBody18,
	Keypoints: []FormatKeypoint{
		{"Nose", 100, 40},
		{"Neck", 100, 80},
		{"RShoulder", 70, 85},
		{"RElbow", 60, 140},
		{"RWrist", 55, 195},
		{"LShoulder", 130, 85},
		{"LElbow", 140, 140},
		{"LWrist", 145, 195},
		{"RHip", 80, 190},
		{"RKnee", 78, 265},
		{"RAnkle", 76, 340},
		{"LHip", 120, 190},
		{"LKnee", 122, 265},
		{"LAnkle", 124, 340},
		{"REye", 92, 32},
		{"LEye", 108, 32},
		{"REar", 84, 38},
		{"LEar", 116, 38},
	},
	Edges: [][2]int{
		{1, 2}, {1, 5}, {2, 3}, {3, 4}, {5, 6}, {6, 7},
		{1, 8}, {8, 9}, {9, 10}, {1, 11}, {11, 12}, {12, 13},
		{1, 0}, {0, 14}, {14, 16}, {0, 15}, {15, 17},
	},
	Limbs: []FormatLimb{
		{"Head", []int{0, 1, 14, 15, 16, 17}},
		{"Torso", []int{1, 2, 5, 8, 11}},
		{"RightArm", []int{2, 3, 4}},
		{"LeftArm", []int{5, 6, 7}},
		{"RightLeg", []int{8, 9, 10}},
		{"LeftLeg", []int{11, 12, 13}},
	},
}

// body25 is the 25-point body layout with mid-hip and foot detail.
var body25 = &Format{
	Name: FormatBody25,
	Keypoints: []FormatKeypoint{
		{"Nose", 100, 40},
		{"Neck", 100, 80},
		{"RShoulder", 70, 85},
		{"RElbow", 60, 140},
		{"RWrist", 55, 195},
		{"LShoulder", 130, 85},
		{"LElbow", 140, 140},
		{"LWrist", 145, 195},
		{"MidHip", 100, 190},
		{"RHip", 80, 190},
		{"RKnee", 78, 265},
		{"RAnkle", 76, 340},
		{"LHip", 120, 190},
		{"LKnee", 122, 265},
		{"LAnkle", 124, 340},
		{"REye", 92, 32},
		{"LEye", 108, 32},
		{"REar", 84, 38},
		{"LEar", 116, 38},
		{"LBigToe", 130, 352},
		{"LSmallToe", 136, 350},
		{"LHeel", 120, 346},
		{"RBigToe", 70, 352},
		{"RSmallToe", 64, 350},
		{"RHeel", 80, 346},
	},
	Edges: [][2]int{
		{1, 8}, {1, 2}, {1, 5}, {2, 3}, {3, 4}, {5, 6}, {6, 7},
		{8, 9}, {9, 10}, {10, 11}, {8, 12}, {12, 13}, {13, 14},
		{1, 0}, {0, 15}, {15, 17}, {0, 16}, {16, 18},
		{14, 19}, {19, 20}, {14, 21}, {11, 22}, {22, 23}, {11, 24},
	},
	Limbs: []FormatLimb{
		{"Head", []int{0, 1, 15, 16, 17, 18}},
		{"Torso", []int{1, 2, 5, 8}},
		{"RightArm", []int{2, 3, 4}},
		{"LeftArm", []int{5, 6, 7}},
		{"RightLeg", []int{8, 9, 10, 11, 22, 23, 24}},
		{"LeftLeg", []int{8, 12, 13, 14, 19, 20, 21}},
	},
}
