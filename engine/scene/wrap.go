package scene

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// groupsPerAxis is the side of the meta-grid of tile groups.
const groupsPerAxis = 3

// wrapAxis returns the shift that brings position p back inside [-span/2, span/2] on one axis.
// Moving negative (dir < 0) only wraps groups that fell off the negative side, moving positive
// only those past the positive side; a neutral direction checks both. The shift is a whole
// number of spans, so any single-frame delta lands back in range in one step.
func wrapAxis(p, span float32, dir int) float32 {
	if span <= 0 {
		return 0
	}
	half := span / 2
	if dir <= 0 && p < -half {
		return float32(math.Ceil(float64((-half-p)/span))) * span
	}
	if dir >= 0 && p > half {
		return -float32(math.Ceil(float64((p-half)/span))) * span
	}
	return 0
}

// covers reports whether groupsPerAxis groups of groupW x groupH, wrapped at half a span, always
// fill a viewport of visibleW x visibleH plus one tile of margin. The wrapped groups are
// guaranteed to cover one group size on each side of the centre.
func covers(visibleW, visibleH, tileW, tileH, groupW, groupH float32) bool {
	return visibleW/2+tileW <= groupW && visibleH/2+tileH <= groupH
}

// groupAnchor is one tile group of the meta-grid. Its position is base + scroll + offset, where
// offset accumulates whole spans from wraparound.
type groupAnchor struct {
	mu *sync.Mutex

	index  int
	base   mgl32.Vec2
	offset mgl32.Vec2
	pos    mgl32.Vec2
}

func newGroupAnchors(groupW, groupH float32) []*groupAnchor {
	anchors := make([]*groupAnchor, 0, groupsPerAxis*groupsPerAxis)
	for i := 0; i < groupsPerAxis*groupsPerAxis; i++ {
		col, row := i%groupsPerAxis, i/groupsPerAxis
		base := mgl32.Vec2{float32(col-1) * groupW, float32(1-row) * groupH}
		anchors = append(anchors, &groupAnchor{mu: &sync.Mutex{}, index: i, base: base, pos: base})
	}
	return anchors
}

func (a *groupAnchor) Index() int {
	return a.index
}

func (a *groupAnchor) Position() mgl32.Vec3 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos.Vec3(0)
}

// wrap projects the anchor at scroll and teleports it by whole spans when it left the
// meta-grid in the scroll direction.
func (a *groupAnchor) wrap(scroll, span mgl32.Vec2, dx, dy int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.base.Add(scroll).Add(a.offset)
	shift := mgl32.Vec2{wrapAxis(p.X(), span.X(), dx), wrapAxis(p.Y(), span.Y(), dy)}
	a.offset = a.offset.Add(shift)
	a.pos = p.Add(shift)
}
