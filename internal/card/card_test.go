package card

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

// fillQuad draws a white convex quadrilateral on black.
func fillQuad(w, h int, q Quad) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{A: 255}
			if insideConvex(q, image.Pt(x, y)) {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func insideConvex(q Quad, p image.Point) bool {
	var pos, neg bool
	for i := range q {
		a, b := q[i], q[(i+1)%4]
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if cross > 0 {
			pos = true
		} else if cross < 0 {
			neg = true
		}
	}
	return !(pos && neg)
}

func fillCircle(w, h int, center image.Point, r int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{A: 255}
			dx, dy := x-center.X, y-center.Y
			if dx*dx+dy*dy <= r*r {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func toMat(t *testing.T, img image.Image) gocv.Mat {
	t.Helper()
	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		t.Fatalf("converting fixture: %v", err)
	}
	return m
}

func near(a, b image.Point, tol int) bool {
	return math.Abs(float64(a.X-b.X)) <= float64(tol) && math.Abs(float64(a.Y-b.Y)) <= float64(tol)
}

var cardCorners = Quad{{50, 50}, {450, 60}, {440, 440}, {60, 430}}

func TestLocator_SyntheticCard(t *testing.T) {
	// Arrange
	src := toMat(t, fillQuad(500, 500, cardCorners))
	defer src.Close()
	wantW, wantH := cardCorners.Size()

	// Act
	c, err := NewLocator(nil).Locate(src, "synthetic.png")

	// Assert
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	for i, want := range cardCorners {
		if !near(c.Corners[i], want, 3) {
			t.Errorf("corner %d: expected ~%v, got %v", i, want, c.Corners[i])
		}
	}
	b := c.Image.Bounds()
	if math.Abs(float64(b.Dx()-wantW)) > 3 || math.Abs(float64(b.Dy()-wantH)) > 3 {
		t.Errorf("expected ~%dx%d rectified card, got %dx%d", wantW, wantH, b.Dx(), b.Dy())
	}

	// the rectified card is the white interior
	r, g, bl, _ := c.Image.At(b.Dx()/2, b.Dy()/2).RGBA()
	if r>>8 < 200 || g>>8 < 200 || bl>>8 < 200 {
		t.Errorf("expected white card centre, got %d,%d,%d", r>>8, g>>8, bl>>8)
	}
}

func TestLocator_LargestQuadWins(t *testing.T) {
	small := Quad{{20, 20}, {80, 20}, {80, 70}, {20, 70}}
	big := Quad{{150, 120}, {460, 130}, {450, 460}, {140, 450}}
	img := fillQuad(500, 500, big)
	smallImg := fillQuad(500, 500, small)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, smallImg.At(x, y))
		}
	}
	src := toMat(t, img)
	defer src.Close()

	c, err := NewLocator(nil).Locate(src, "two.png")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if !near(c.Corners[0], big[0], 3) || !near(c.Corners[2], big[2], 3) {
		t.Errorf("expected the larger quad, got %v", c.Corners)
	}
}

func TestLocator_NoCard(t *testing.T) {
	testCases := []struct {
		name string
		img  image.Image
	}{
		{name: "blank", img: image.NewRGBA(image.Rect(0, 0, 500, 400))},
		{name: "circle", img: fillCircle(500, 500, image.Pt(250, 250), 180)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := toMat(t, tc.img)
			defer src.Close()

			c, err := NewLocator(nil).Locate(src, tc.name)

			if !errors.Is(err, ErrCardNotFound) {
				t.Errorf("expected ErrCardNotFound, got %v", err)
			}
			if c != nil {
				t.Errorf("expected no card, got %+v", c.Corners)
			}
		})
	}
}

func TestOrderCorners_Permutations(t *testing.T) {
	want := Quad{{50, 50}, {450, 60}, {440, 440}, {60, 430}}

	for _, perm := range permutations([]int{0, 1, 2, 3}) {
		in := Quad{want[perm[0]], want[perm[1]], want[perm[2]], want[perm[3]]}
		if got := OrderCorners(in); got != want {
			t.Errorf("order %v: expected %v, got %v", perm, want, got)
		}
	}
}

func TestOrderCorners_TiesAreStable(t *testing.T) {
	// a diamond ties on both coordinate sums and differences
	diamond := Quad{{100, 0}, {200, 100}, {100, 200}, {0, 100}}
	first := OrderCorners(diamond)
	for _, perm := range permutations([]int{0, 1, 2, 3}) {
		in := Quad{diamond[perm[0]], diamond[perm[1]], diamond[perm[2]], diamond[perm[3]]}
		if got := OrderCorners(in); got != first {
			t.Errorf("order %v: expected %v, got %v", perm, first, got)
		}
	}
}

func TestQuad_Size(t *testing.T) {
	w, h := OrderCorners(cardCorners).Size()

	// top edge (50,50)-(450,60) is the widest, both side edges are ~380.1
	if w != 400 || h != 380 {
		t.Errorf("expected 400x380, got %dx%d", w, h)
	}
}

func TestFourPointTransform_OrderIndependent(t *testing.T) {
	src := toMat(t, fillQuad(500, 500, cardCorners))
	defer src.Close()

	ref, err := FourPointTransform(src, cardCorners)
	if err != nil {
		t.Fatalf("FourPointTransform failed: %v", err)
	}
	defer ref.Close()
	if ref.Cols() != 400 || ref.Rows() != 380 {
		t.Fatalf("expected 400x380, got %dx%d", ref.Cols(), ref.Rows())
	}

	for _, perm := range permutations([]int{0, 1, 2, 3}) {
		q := Quad{cardCorners[perm[0]], cardCorners[perm[1]], cardCorners[perm[2]], cardCorners[perm[3]]}
		got, err := FourPointTransform(src, q)
		if err != nil {
			t.Fatalf("order %v: %v", perm, err)
		}

		diff := gocv.NewMat()
		gocv.AbsDiff(ref, got, &diff)
		gray := gocv.NewMat()
		gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
		if n := gocv.CountNonZero(gray); n != 0 {
			t.Errorf("order %v: %d pixels differ", perm, n)
		}
		gray.Close()
		diff.Close()
		got.Close()
	}
}

func TestFourPointTransform_Degenerate(t *testing.T) {
	src := toMat(t, image.NewRGBA(image.Rect(0, 0, 50, 50)))
	defer src.Close()

	m, err := FourPointTransform(src, Quad{{10, 10}, {10, 10}, {10, 10}, {10, 10}})
	defer m.Close()

	if !errors.Is(err, ErrDegenerateQuad) {
		t.Errorf("expected ErrDegenerateQuad, got %v", err)
	}
}

func TestDirDebugger_WritesStages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	dbg, err := NewDirDebugger(dir)
	if err != nil {
		t.Fatalf("NewDirDebugger failed: %v", err)
	}
	src := toMat(t, fillQuad(500, 500, cardCorners))
	defer src.Close()

	if _, err := NewLocator(dbg).Locate(src, "/photos/bean.jpg"); err != nil {
		t.Fatalf("Locate failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	stages := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "bean"+DebugMarker) {
			t.Errorf("unexpected debug file %s", name)
		}
		stages[strings.TrimSuffix(strings.TrimPrefix(name, "bean"+DebugMarker), ".png")] = true
	}
	for _, stage := range []string{"image", "edged", "card", "transform"} {
		if !stages[stage] {
			t.Errorf("missing debug stage %s", stage)
		}
	}
}

func permutations(xs []int) [][]int {
	if len(xs) <= 1 {
		return [][]int{append([]int(nil), xs...)}
	}
	var out [][]int
	for i := range xs {
		rest := make([]int, 0, len(xs)-1)
		rest = append(rest, xs[:i]...)
		rest = append(rest, xs[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]int{xs[i]}, p...))
		}
	}
	return out
}
