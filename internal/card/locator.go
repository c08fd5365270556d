// Package card finds a rectangular card in a photo and flattens it to a
// top-down view.
package card

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"

	"gocv.io/x/gocv"
)

// Edge detection settings, tuned for a 500px wide working image.
const (
	blurSize        = 5
	cannyLow        = 50
	cannyHigh       = 150
	approxTolerance = 0.02
)

var (
	ErrCardNotFound   = errors.New("card contour not found, adjust edge detection parameters")
	ErrDegenerateQuad = errors.New("card contour collapses to zero width or height")
)

var contourColor = color.RGBA{G: 255, A: 255}

// Card is a located and rectified card.
type Card struct {
	Corners Quad
	Image   image.Image
}

type Locator struct {
	debug Debugger
}

// NewLocator returns a Locator. debug may be nil.
func NewLocator(debug Debugger) *Locator {
	return &Locator{debug: debug}
}

// Locate expects a BGR Mat. label only names debug output.
func (l *Locator) Locate(src gocv.Mat, label string) (*Card, error) {
	edged := edgeMap(src)
	defer edged.Close()

	l.show(label, "image", src)
	l.show(label, "edged", edged)
	l.wait()

	quad, err := findQuad(edged)
	if err != nil {
		return nil, err
	}

	warped, err := FourPointTransform(src, quad)
	if err != nil {
		return nil, err
	}
	defer warped.Close()

	if l.debug != nil {
		output := src.Clone()
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{quad.Points()})
		gocv.DrawContours(&output, pv, -1, contourColor, 2)
		pv.Close()
		l.show(label, "card", output)
		l.show(label, "transform", warped)
		l.wait()
		output.Close()
	}

	img, err := warped.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting rectified card: %w", err)
	}
	return &Card{Corners: OrderCorners(quad), Image: img}, nil
}

func edgeMap(src gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurSize, blurSize), 0, 0, gocv.BorderDefault)

	edged := gocv.NewMat()
	gocv.Canny(blurred, &edged, cannyLow, cannyHigh)
	return edged
}

// findQuad walks the external contours from largest to smallest area and
// returns the first whose polygon approximation has exactly four vertices.
func findQuad(edged gocv.Mat) (Quad, error) {
	contours := gocv.FindContours(edged, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	n := contours.Size()
	areas := make([]float64, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		areas[i] = gocv.ContourArea(contours.At(i))
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return areas[order[a]] > areas[order[b]]
	})

	for _, i := range order {
		c := contours.At(i)
		peri := gocv.ArcLength(c, true)
		approx := gocv.ApproxPolyDP(c, approxTolerance*peri, true)
		pts := approx.ToPoints()
		approx.Close()

		if len(pts) == 4 {
			return Quad{pts[0], pts[1], pts[2], pts[3]}, nil
		}
	}
	return Quad{}, ErrCardNotFound
}

// FourPointTransform warps the region bounded by q (corners in any order)
// onto an upright rectangle sized by Quad.Size. The caller owns the result.
func FourPointTransform(src gocv.Mat, q Quad) (gocv.Mat, error) {
	rect := OrderCorners(q)
	w, h := rect.Size()
	if w < 1 || h < 1 {
		return gocv.NewMat(), ErrDegenerateQuad
	}

	srcPts := gocv.NewPoint2fVectorFromPoints([]gocv.Point2f{
		toPoint2f(rect[0]), toPoint2f(rect[1]), toPoint2f(rect[2]), toPoint2f(rect[3]),
	})
	defer srcPts.Close()
	dstPts := gocv.NewPoint2fVectorFromPoints([]gocv.Point2f{
		{X: 0, Y: 0},
		{X: float32(w - 1), Y: 0},
		{X: float32(w - 1), Y: float32(h - 1)},
		{X: 0, Y: float32(h - 1)},
	})
	defer dstPts.Close()

	m := gocv.GetPerspectiveTransform2f(srcPts, dstPts)
	defer m.Close()

	warped := gocv.NewMat()
	gocv.WarpPerspective(src, &warped, m, image.Pt(w, h))
	return warped, nil
}

func toPoint2f(p image.Point) gocv.Point2f {
	return gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
}

func (l *Locator) show(label, stage string, m gocv.Mat) {
	if l.debug != nil {
		l.debug.Show(label, stage, m)
	}
}

func (l *Locator) wait() {
	if l.debug != nil {
		l.debug.Wait()
	}
}
