package dnd

import (
	"cmp"
	"slices"
)

// Region is a droppable area registered by the rendering layer for one tick.
type Region struct {
	ID     string `json:"id"`
	Bounds Rect   `json:"bounds"`
}

// Collision is one detector hit. Value is detector specific: a distance for
// the distance-based detectors, an overlap ratio for rect intersection.
type Collision struct {
	Target Target
	Bounds Rect
	Value  float64
}

// candidate is a region whose identifier parsed cleanly.
type candidate struct {
	target Target
	bounds Rect
}

// compileRegions parses region identifiers, dropping malformed ones while
// keeping registration order.
func compileRegions(regions []Region) []candidate {
	out := make([]candidate, 0, len(regions))
	for _, region := range regions {
		target, ok := ParseTarget(region.ID)
		if !ok {
			continue
		}
		out = append(out, candidate{target: target, bounds: region.Bounds})
	}
	return out
}

// pointerWithin returns the candidates whose bounds contain the pointer, in
// registration order. A nil pointer (keyboard drag) matches nothing.
func pointerWithin(pointer *Point, cands []candidate) []Collision {
	if pointer == nil {
		return nil
	}
	var out []Collision
	for _, c := range cands {
		if !c.bounds.ContainsPoint(*pointer) {
			continue
		}
		var total float64
		for _, corner := range c.bounds.Corners() {
			total += distance(*pointer, corner)
		}
		out = append(out, Collision{Target: c.target, Bounds: c.bounds, Value: total / 4})
	}
	return out
}

// rectIntersection returns the candidates overlapping the dragged rectangle,
// in registration order.
func rectIntersection(dragged Rect, cands []candidate) []Collision {
	var out []Collision
	for _, c := range cands {
		ratio := intersectionRatio(dragged, c.bounds)
		if ratio <= 0 {
			continue
		}
		out = append(out, Collision{Target: c.target, Bounds: c.bounds, Value: ratio})
	}
	return out
}

// closestCenter ranks candidates by distance between ref and their centroid.
// Equal distances rank the lower element id first, then registration order.
func closestCenter(ref Point, cands []candidate) []Collision {
	out := make([]Collision, 0, len(cands))
	for _, c := range cands {
		out = append(out, Collision{Target: c.target, Bounds: c.bounds, Value: distance(ref, c.bounds.Center())})
	}
	slices.SortStableFunc(out, func(a, b Collision) int {
		if byDist := cmp.Compare(a.Value, b.Value); byDist != 0 {
			return byDist
		}
		return cmp.Compare(a.Target.ElementID(), b.Target.ElementID())
	})
	return out
}

// closestCorners ranks candidates by the mean distance between the matching
// corners of the dragged rectangle and each candidate.
func closestCorners(dragged Rect, cands []candidate) []Collision {
	from := dragged.Corners()
	out := make([]Collision, 0, len(cands))
	for _, c := range cands {
		to := c.bounds.Corners()
		var total float64
		for i := range from {
			total += distance(from[i], to[i])
		}
		out = append(out, Collision{Target: c.target, Bounds: c.bounds, Value: total / 4})
	}
	slices.SortStableFunc(out, func(a, b Collision) int {
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}
