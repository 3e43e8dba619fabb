package marionette

import (
	"fmt"
	"os"
	"time"
)

// debugCheckDestroyed panics with a descriptive message when a destroyed
// entity is used in a tree operation. Only called when debug mode is on;
// in release mode callers skip this entirely.
func debugCheckDestroyed(e *Entity, op string) {
	if e.destroyed {
		panic(fmt.Sprintf("marionette debug: %s on destroyed entity %q (%s)", op, e.Name, e.Kind))
	}
}

// debugMaxTreeDepth warns on stderr if the entity tree gets deeper than
// expected. A pose scene is scene -> drawable -> limb -> bone at most; depth
// beyond this threshold indicates runaway re-parenting.
const debugMaxTreeDepth = 16

func debugCheckTreeDepth(e *Entity) {
	depth := 0
	for p := e; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		_, _ = fmt.Fprintf(os.Stderr, "[marionette] warning: tree depth %d exceeds %d (entity %q)\n",
			depth, debugMaxTreeDepth, e.Name)
	}
}

// captureStats holds per-capture timing and record metrics.
// Only populated when the scene is in debug mode.
type captureStats struct {
	captureTime time.Duration
	drawables   int
	records     int
}

// debugLogCapture prints capture stats to stderr.
func debugLogCapture(stats captureStats) {
	_, _ = fmt.Fprintf(os.Stderr,
		"[marionette] capture: %v | drawables: %d | records: %d\n",
		stats.captureTime, stats.drawables, stats.records)
}
