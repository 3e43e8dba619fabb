package marionette

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Dialect identifies a pose JSON schema variant.
type Dialect uint8

const (
	DialectUnknown  Dialect = iota
	DialectOpenPose         // machine output: flat x,y,confidence triples per person
	DialectDocument         // editor document: named keypoint maps, bbox, layers
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectOpenPose:
		return "openpose"
	case DialectDocument:
		return "document"
	default:
		return "unknown"
	}
}

// openposeFile is the machine-estimation output layout.
type openposeFile struct {
	People []struct {
		PoseKeypoints2D []float64 `json:"pose_keypoints_2d"`
	} `json:"people"`
}

// Document is the editor's own save format.
type Document struct {
	Layers    []DocumentLayer    `json:"layers,omitempty"`
	Drawables []DocumentDrawable `json:"drawables"`
}

// DocumentLayer is a pose layer reference inside a document.
type DocumentLayer struct {
	Name string `json:"name"`
}

// DocumentDrawable is one drawable inside a document. A nil keypoint value
// means the point is undetected.
type DocumentDrawable struct {
	Name      string           `json:"name"`
	Format    string           `json:"format"`
	ImagePath string           `json:"imagePath,omitempty"`
	BBox      Rect             `json:"bbox"`
	Layer     string           `json:"layer,omitempty"`
	Keypoints map[string]*Vec2 `json:"keypoints"`
}

// DetectDialect probes the top-level keys of pose JSON to classify its
// schema variant without fully parsing it.
func DetectDialect(data []byte) Dialect {
	var probe struct {
		People    json.RawMessage `json:"people"`
		Drawables json.RawMessage `json:"drawables"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return DialectUnknown
	}
	switch {
	case probe.People != nil:
		return DialectOpenPose
	case probe.Drawables != nil:
		return DialectDocument
	default:
		return DialectUnknown
	}
}

// ImportPoses converts pose JSON of any supported dialect into one
// PersonData per detected person, ready to seed BuildSkeleton. For the
// OpenPose dialect the body format is chosen by keypoint count (18 or 25)
// and zero-confidence points import as undetected.
func ImportPoses(data []byte) ([]PersonData, error) {
	switch DetectDialect(data) {
	case DialectOpenPose:
		return importOpenPose(data)
	case DialectDocument:
		doc, err := ParseDocument(data)
		if err != nil {
			return nil, err
		}
		out := make([]PersonData, 0, len(doc.Drawables))
		for _, dd := range doc.Drawables {
			out = append(out, PersonData{Format: dd.Format, Keypoints: dd.Keypoints})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("marionette: unrecognized pose JSON dialect")
	}
}

func importOpenPose(data []byte) ([]PersonData, error) {
	var file openposeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("marionette: failed to parse pose JSON: %w", err)
	}
	out := make([]PersonData, 0, len(file.People))
	for i, person := range file.People {
		triples := person.PoseKeypoints2D
		var f *Format
		switch len(triples) {
		case 18 * 3:
			f = body18
		case 25 * 3:
			f = body25
		default:
			return nil, fmt.Errorf("marionette: person %d has %d values, expected %d or %d",
				i, len(triples), 18*3, 25*3)
		}
		pd := PersonData{Format: f.Name, Keypoints: make(map[string]*Vec2, len(f.Keypoints))}
		for j, fk := range f.Keypoints {
			x, y, conf := triples[j*3], triples[j*3+1], triples[j*3+2]
			if conf == 0 {
				pd.Keypoints[fk.Name] = nil
				continue
			}
			pd.Keypoints[fk.Name] = &Vec2{X: x, Y: y}
		}
		out = append(out, pd)
	}
	return out, nil
}

// ParseDocument parses the editor document dialect.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("marionette: failed to parse document JSON: %w", err)
	}
	return &doc, nil
}

// LoadDocument rebuilds a scene's drawables from a document: layers first,
// then one drawable per entry with its saved pose, bound to its layer by
// name. Layers named in the document use the given surface. The whole load
// is one batch (one change notification).
func LoadDocument(ctx context.Context, s *Scene, provider FormatProvider, doc *Document, surface Surface) {
	s.OverStateChange(func() {
		byName := make(map[string]*PoseLayer, len(doc.Layers))
		for _, dl := range doc.Layers {
			byName[dl.Name] = s.NewLayer(dl.Name, surface)
		}
		for _, dd := range doc.Drawables {
			var d *Entity
			if dd.Format == FormatQuad4 || dd.ImagePath != "" {
				d = NewDistortableImage(dd.Name, dd.ImagePath, dd.BBox)
				d.BuildSkeleton(ctx, provider, dd.BBox, &PersonData{Format: dd.Format, Keypoints: dd.Keypoints})
			} else {
				d = NewPerson(dd.Name, dd.Format)
				d.BuildSkeleton(ctx, provider, dd.BBox, &PersonData{Format: dd.Format, Keypoints: dd.Keypoints})
			}
			s.AddDrawable(d)
			if l := byName[dd.Layer]; l != nil {
				l.Attach(d)
			}
		}
	})
}

// MissingKeypointsError reports an export whose target format requires
// keypoints the drawable does not have. The export is blocked outright; a
// silent partial export is never produced.
type MissingKeypointsError struct {
	Format string
	Names  []string
}

func (e *MissingKeypointsError) Error() string {
	return fmt.Sprintf("marionette: drawable is missing keypoints required by format %s: %v", e.Format, e.Names)
}

// ExportPose serializes one drawable to the OpenPose dialect for the given
// target format. Every keypoint the format names must exist on the drawable
// (undetected is fine and exports as a zero-confidence triple); otherwise a
// MissingKeypointsError naming the absentees is returned.
func ExportPose(d *Entity, f *Format) ([]byte, error) {
	var missing []string
	for _, fk := range f.Keypoints {
		if d.keypoints[fk.Name] == nil {
			missing = append(missing, fk.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingKeypointsError{Format: f.Name, Names: missing}
	}

	var file openposeFile
	triples := make([]float64, 0, len(f.Keypoints)*3)
	for _, fk := range f.Keypoints {
		kp := d.keypoints[fk.Name]
		if kp.pos == nil {
			triples = append(triples, 0, 0, 0)
			continue
		}
		triples = append(triples, kp.pos.X, kp.pos.Y, 1)
	}
	file.People = append(file.People, struct {
		PoseKeypoints2D []float64 `json:"pose_keypoints_2d"`
	}{PoseKeypoints2D: triples})
	return json.MarshalIndent(&file, "", "  ")
}

// ExportDocument serializes the whole scene to the document dialect.
func ExportDocument(s *Scene) ([]byte, error) {
	doc := Document{}
	for _, l := range s.Layers() {
		doc.Layers = append(doc.Layers, DocumentLayer{Name: l.Name})
	}
	for _, d := range s.Drawables() {
		dd := DocumentDrawable{
			Name:      d.Name,
			Format:    d.Format,
			ImagePath: d.ImagePath,
			BBox:      d.OriginalBBox,
			Keypoints: make(map[string]*Vec2, len(d.keypoints)),
		}
		if d.layer != nil {
			dd.Layer = d.layer.Name
		}
		for name, kp := range d.keypoints {
			if kp.pos == nil {
				dd.Keypoints[name] = nil
				continue
			}
			p := *kp.pos
			dd.Keypoints[name] = &p
		}
		doc.Drawables = append(doc.Drawables, dd)
	}
	return json.MarshalIndent(&doc, "", "  ")
}
