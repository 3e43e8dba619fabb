// Command poseedit is an interactive pose skeleton editor.
//
// Controls:
//
//	drag       move a keypoint (one revision per drag)
//	N          add a BODY18 person at the cursor
//	Delete     remove the last touched person
//	R          animate the active person back to its template pose
//	P          repair the next undetected keypoint (then click to place it)
//	Ctrl+Z     undo
//	Ctrl+Y     redo
//	Ctrl+S     save the document
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/tanema/gween/ease"

	"github.com/posekit/marionette"
)

// grabRadius is the pick distance for keypoint dragging, in pixels.
const grabRadius = 12.0

type editor struct {
	log      zerolog.Logger
	scene    *marionette.Scene
	rm       *marionette.RevisionManager
	surface  *marionette.EbitenSurface
	layer    *marionette.PoseLayer
	provider marionette.FormatProvider

	drag       *marionette.Entity // keypoint under the cursor button
	dragOwner  *marionette.Entity // its drawable, lock held while dragging
	active     *marionette.Entity // last touched drawable
	tween      *marionette.PoseTween
	repairName string // keypoint awaiting a placement click, "" when idle
	personSeq  int
}

func newEditor(log zerolog.Logger) *editor {
	ed := &editor{
		log:      log,
		scene:    marionette.NewScene(),
		surface:  marionette.NewEbitenSurface(nil),
		provider: &marionette.DirProvider{Dir: viper.GetString("formats.dir")},
	}
	ed.scene.SetDebugMode(viper.GetBool("debug"))
	ed.layer = ed.scene.NewLayer("main", ed.surface)
	ed.rm = marionette.NewRevisionManager(ed.scene, ed.provider)
	ed.rm.MaxHistory = viper.GetInt("history.max")
	ed.loadDocument()
	return ed
}

// loadDocument restores the saved scene, if a document exists.
func (ed *editor) loadDocument() {
	path := viper.GetString("document.path")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			ed.log.Warn().Err(err).Str("path", path).Msg("failed to read document")
		}
		return
	}
	doc, err := marionette.ParseDocument(data)
	if err != nil {
		ed.log.Warn().Err(err).Str("path", path).Msg("failed to parse document")
		return
	}
	marionette.LoadDocument(context.Background(), ed.scene, ed.provider, doc, ed.surface)
	ed.rm.InitializeSnapshot()
	ed.log.Info().Int("drawables", len(ed.scene.Drawables())).Str("path", path).Msg("document loaded")
}

func (ed *editor) saveDocument() {
	path := viper.GetString("document.path")
	data, err := marionette.ExportDocument(ed.scene)
	if err != nil {
		ed.log.Error().Err(err).Msg("failed to export document")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		ed.log.Error().Err(err).Str("path", path).Msg("failed to write document")
		return
	}
	ed.log.Info().Str("path", path).Msg("document saved")
}

func (ed *editor) Update() error {
	ctx := context.Background()
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl)

	switch {
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyZ):
		if err := ed.rm.Undo(ctx); err != nil {
			ed.log.Warn().Err(err).Msg("undo failed")
		}
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyY):
		if err := ed.rm.Redo(ctx); err != nil {
			ed.log.Warn().Err(err).Msg("redo failed")
		}
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyS):
		ed.saveDocument()
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		ed.addPerson(ctx)
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete):
		ed.removeActive()
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		ed.resetActive(ctx)
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		ed.armRepair()
	}

	if ed.tween != nil {
		if ed.tween.Update(1.0 / float32(ebiten.TPS())) {
			ed.tween = nil
		}
	}
	if ed.repairName != "" {
		ed.updateRepair(ctx)
		return nil
	}
	ed.updateDrag()
	return nil
}

// resetActive animates the active person back to its template pose. The
// whole animation lands as one revision.
func (ed *editor) resetActive(ctx context.Context) {
	if ed.active == nil {
		return
	}
	if ed.tween != nil {
		ed.tween.Cancel()
	}
	t, err := marionette.TweenResetPose(ctx, ed.active, ed.provider, 0.4, ease.OutQuad)
	if err != nil {
		ed.log.Warn().Err(err).Msg("reset pose failed")
		return
	}
	ed.tween = t
}

// armRepair selects the active drawable's first undetected keypoint and
// waits for a placement click.
func (ed *editor) armRepair() {
	if ed.active == nil {
		return
	}
	for _, name := range ed.active.KeypointNames() {
		if ed.active.Keypoint(name).Position() == nil {
			ed.repairName = name
			ed.log.Info().Str("keypoint", name).Msg("click to place keypoint")
			return
		}
	}
	ed.log.Info().Msg("no undetected keypoints")
}

// updateRepair consumes the next click as the armed keypoint's position.
// Escape cancels.
func (ed *editor) updateRepair(ctx context.Context) {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		ed.repairName = ""
		return
	}
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	pos := marionette.Vec2{X: float64(mx), Y: float64(my)}
	pick := marionette.PickFunc(func(context.Context, string) (marionette.Vec2, error) {
		return pos, nil
	})
	name := ed.repairName
	ed.repairName = ""
	if err := ed.active.RepairKeypoint(ctx, pick, name); err != nil {
		ed.log.Warn().Err(err).Str("keypoint", name).Msg("repair failed")
		return
	}
	ed.log.Info().Str("keypoint", name).Msg("keypoint placed")
}

// addPerson places a new BODY18 skeleton centered on the cursor.
func (ed *editor) addPerson(ctx context.Context) {
	mx, my := ebiten.CursorPosition()
	ed.personSeq++
	name := fmt.Sprintf("person-%d", ed.personSeq)
	bbox := marionette.Rect{
		X:      float64(mx) - 100,
		Y:      float64(my) - 150,
		Width:  200,
		Height: 300,
	}
	p := marionette.NewPerson(name, marionette.FormatBody18)
	p.BuildSkeleton(ctx, ed.provider, bbox, nil)
	if len(p.Keypoints()) == 0 {
		ed.log.Error().Str("format", marionette.FormatBody18).Msg("skeleton build failed")
		return
	}
	ed.scene.OverStateChange(func() {
		ed.scene.AddDrawable(p)
		ed.layer.Attach(p)
	})
	ed.active = p
	ed.log.Info().Str("name", name).Msg("person added")
}

func (ed *editor) removeActive() {
	if ed.active == nil {
		return
	}
	name := ed.active.Name
	ed.scene.RemoveDrawable(ed.active)
	ed.active = nil
	ed.log.Info().Str("name", name).Msg("drawable removed")
}

// updateDrag moves a grabbed keypoint with the cursor. The drawable's lock
// is held for the whole drag so the drag lands as one revision; the final
// position is reapplied after unlock to flush that revision.
func (ed *editor) updateDrag() {
	mx, my := ebiten.CursorPosition()
	cursor := marionette.Vec2{X: float64(mx), Y: float64(my)}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		kp, owner := ed.pickKeypoint(cursor)
		if kp != nil {
			ed.drag, ed.dragOwner, ed.active = kp, owner, owner
			owner.LockStateChange()
		}
		return
	}
	if ed.drag == nil {
		return
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		ed.drag.SetPosition(&cursor)
		return
	}
	ed.dragOwner.UnlockStateChange()
	if p := ed.drag.Position(); p != nil {
		ed.drag.SetPosition(p)
	}
	ed.drag, ed.dragOwner = nil, nil
}

// pickKeypoint returns the nearest defined keypoint within grabRadius of
// the cursor, and the drawable that owns it.
func (ed *editor) pickKeypoint(cursor marionette.Vec2) (kp, owner *marionette.Entity) {
	best := grabRadius
	for _, d := range ed.scene.Drawables() {
		for _, name := range d.KeypointNames() {
			k := d.Keypoint(name)
			p := k.Position()
			if p == nil {
				continue
			}
			dist := math.Hypot(p.X-cursor.X, p.Y-cursor.Y)
			if dist <= best {
				best, kp, owner = dist, k, d
			}
		}
	}
	return kp, owner
}

func (ed *editor) Draw(screen *ebiten.Image) {
	ed.surface.SetTarget(screen)
	ed.scene.BatchDraw()
}

func (ed *editor) Layout(_, _ int) (int, int) {
	return viper.GetInt("window.width"), viper.GetInt("window.height")
}

func main() {
	if err := loadConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "poseedit:", err)
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	switch strings.ToUpper(viper.GetString("logLevel")) {
	case "DEBUG":
		level = zerolog.DebugLevel
	case "WARN":
		level = zerolog.WarnLevel
	case "ERROR":
		level = zerolog.ErrorLevel
	case "TRACE":
		level = zerolog.TraceLevel
	}
	zerolog.SetGlobalLevel(level)
	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	ed := newEditor(log)

	ebiten.SetWindowTitle(viper.GetString("window.title"))
	ebiten.SetWindowSize(viper.GetInt("window.width"), viper.GetInt("window.height"))
	if err := ebiten.RunGame(ed); err != nil {
		log.Fatal().Err(err).Msg("editor exited")
	}
}
