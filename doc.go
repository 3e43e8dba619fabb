// Package marionette is a retained-mode 2D pose skeleton editor core for
// [Ebitengine].
//
// Marionette provides the entity graph, attribute inheritance, pose layer
// management, skeleton construction from keypoint formats, revision history
// with undo/redo, and pose JSON import/export that an interactive pose
// editor needs.
//
// # Quick start
//
// Build a scene, attach a surface-backed layer, and place a person:
//
//	scene := marionette.NewScene()
//	rm := marionette.NewRevisionManager(scene, marionette.Builtin())
//	layer := scene.NewLayer("people", marionette.NewEbitenSurface(screen))
//
//	person := marionette.NewPerson("alice", marionette.FormatBody18)
//	person.BuildSkeleton(ctx, marionette.Builtin(), bbox, nil)
//	scene.AddDrawable(person)
//	layer.Attach(person)
//
// Undo and redo run through the revision manager:
//
//	_ = rm.Undo(ctx)
//	_ = rm.Redo(ctx)
//
// # Entity graph
//
// Every element is an [Entity] with an [EntityKind]. Entities form a tree
// rooted at [Scene.Root]. Styling attributes (visibility, colors, stroke width,
// alpha, selection) resolve up the parent chain: an entity without its own
// override inherits the nearest ancestor's value, falling back to a
// per-kind default.
//
// Create entities with typed constructors: [NewGroup], [NewKeypoint],
// [NewBone], [NewLimb], [NewPerson], [NewDistortableImage].
//
// # State changes and revisions
//
// Any mutation marks the entity and its ancestors dirty and notifies the
// scene, unless the entity's lock group is held. [Entity.OverStateChange]
// batches many mutations into one notification; [RevisionManager] turns
// each notification into one undoable revision by diffing against its
// snapshot. Destroyed drawables resurrect on undo with their original IDs.
//
// # Formats and poses
//
// A [Format] names a skeleton's keypoints, bone edges, and limb grouping.
// BODY18 and BODY25 are built in; [DirProvider] loads more from disk.
// [ImportPoses] accepts both machine estimation output and editor
// documents, detecting the dialect automatically.
//
// [Ebitengine]: https://ebitengine.org
package marionette
