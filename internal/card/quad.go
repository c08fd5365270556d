package card

import (
	"image"
	"math"
)

// Quad holds the four corners of a card boundary. After OrderCorners the
// points are top-left, top-right, bottom-right, bottom-left.
type Quad [4]image.Point

// OrderCorners assigns corner roles by coordinate sum and difference:
// top-left has the smallest x+y, bottom-right the largest, top-right the
// smallest y-x and bottom-left the largest. Ties resolve on the points
// themselves, so the input order never changes the result.
func OrderCorners(q Quad) Quad {
	var tl, tr, br, bl image.Point
	for i, p := range q {
		if i == 0 {
			tl, tr, br, bl = p, p, p, p
			continue
		}
		if s := p.X + p.Y; s < tl.X+tl.Y || (s == tl.X+tl.Y && less(p, tl)) {
			tl = p
		}
		if s := p.X + p.Y; s > br.X+br.Y || (s == br.X+br.Y && less(br, p)) {
			br = p
		}
		if d := p.Y - p.X; d < tr.Y-tr.X || (d == tr.Y-tr.X && less(tr, p)) {
			tr = p
		}
		if d := p.Y - p.X; d > bl.Y-bl.X || (d == bl.Y-bl.X && less(p, bl)) {
			bl = p
		}
	}
	return Quad{tl, tr, br, bl}
}

func less(a, b image.Point) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

// Size returns the rectified width and height for an ordered quad: the
// longer of each pair of opposite edges, truncated to whole pixels.
func (q Quad) Size() (w, h int) {
	tl, tr, br, bl := q[0], q[1], q[2], q[3]
	w = int(math.Max(dist(br, bl), dist(tr, tl)))
	h = int(math.Max(dist(tr, br), dist(tl, bl)))
	return w, h
}

func (q Quad) Points() []image.Point {
	return []image.Point{q[0], q[1], q[2], q[3]}
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
