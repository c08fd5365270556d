package preprocess

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/webp"
)

const DefaultWidth = 500

var ErrDecode = errors.New("decode image")

// Preprocessor undoes camera rotation and scales photos to a fixed working
// width so edge thresholds behave the same for every source resolution.
type Preprocessor struct {
	Width int
}

func NewPreprocessor(width int) *Preprocessor {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Preprocessor{Width: width}
}

func (p *Preprocessor) Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}
	return p.resize(img), nil
}

func (p *Preprocessor) Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return p.resize(img), nil
}

// ToBGR converts img into the 8-bit, 3-channel BGR layout OpenCV routines expect.
func (p *Preprocessor) ToBGR(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("converting image to mat: %w", err)
	}
	return mat, nil
}

func (p *Preprocessor) Prepare(path string) (gocv.Mat, error) {
	img, err := p.Load(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	return p.ToBGR(img)
}

func (p *Preprocessor) resize(img image.Image) image.Image {
	if img.Bounds().Dx() == p.Width {
		return img
	}
	// height 0 keeps the aspect ratio
	return imaging.Resize(img, p.Width, 0, imaging.Lanczos)
}
