package audioworld

import "fmt"

const quadCorners = 4

// OrderQuadVertices puts the four corners of an axis-aligned rectangle into
// perimeter order, starting from points[0]. Coordinates are rounded before
// they are compared so mesh noise does not break axis equality; the returned
// points are the caller's originals.
//
// Each step picks the first of points[1..3] that differs from the previous
// corner on exactly one axis and has not been placed before (the point we
// just came from is the only placed point it may equal). A step without such
// a candidate means the input is not a rectangle and ErrDegenerateGeometry is
// returned. This is a heuristic for axis-aligned walls, not a general
// polygon orderer.
func OrderQuadVertices(points []Point3) ([4]Point3, error) {
	var ordered [4]Point3

	if len(points) != quadCorners {
		return ordered, fmt.Errorf("quad needs %d points, got %d: %w", quadCorners, len(points), ErrInvalidInput)
	}

	var rounded [4]Point3
	for i, p := range points {
		if !p.IsFinite() {
			return ordered, fmt.Errorf("quad point %d is not finite %v: %w", i, p, ErrInvalidInput)
		}
		rounded[i] = p.Rounded()
	}

	placed := make([]int, 1, quadCorners)
	used := [4]bool{true}

	for pass := 1; pass < quadCorners; pass++ {
		next := nextQuadCorner(rounded, placed, used)
		if next < 0 {
			return ordered, fmt.Errorf("no corner follows %v after %d points: %w", points[placed[len(placed)-1]], len(placed), ErrDegenerateGeometry)
		}
		placed = append(placed, next)
		used[next] = true
	}

	// the last edge closes the loop back to the start
	if rounded[placed[3]].axisMatches(rounded[placed[0]]) != 2 {
		return ordered, fmt.Errorf("quad does not close from %v to %v: %w", points[placed[3]], points[placed[0]], ErrDegenerateGeometry)
	}
	// neighbouring edges turn a corner; collinear runs are not a face
	for i := range placed {
		a := rounded[placed[i]]
		b := rounded[placed[(i+1)%quadCorners]]
		c := rounded[placed[(i+2)%quadCorners]]
		if differingAxis(a, b) == differingAxis(b, c) {
			return ordered, fmt.Errorf("quad edges at %v do not turn: %w", points[placed[(i+1)%quadCorners]], ErrDegenerateGeometry)
		}
	}

	for i, idx := range placed {
		ordered[i] = points[idx]
	}
	return ordered, nil
}

func nextQuadCorner(rounded [4]Point3, placed []int, used [4]bool) int {
	last := rounded[placed[len(placed)-1]]

	for i := 1; i < quadCorners; i++ {
		if used[i] {
			continue
		}
		candidate := rounded[i]
		if candidate.axisMatches(last) != 2 {
			continue
		}
		if !differsFromAllButLast(candidate, rounded, placed) {
			continue
		}
		return i
	}
	return -1
}

func differsFromAllButLast(candidate Point3, rounded [4]Point3, placed []int) bool {
	if len(placed) < 2 {
		return true
	}
	for _, idx := range placed[:len(placed)-1] {
		if rounded[idx] == candidate {
			return false
		}
	}
	return true
}

// differingAxis returns the index of the first axis on which a and b differ,
// or -1 when they are equal.
func differingAxis(a, b Point3) int {
	switch {
	case a.X != b.X:
		return 0
	case a.Y != b.Y:
		return 1
	case a.Z != b.Z:
		return 2
	}
	return -1
}
