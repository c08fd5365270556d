package pipeline

import (
	"context"
	"fmt"
	"image"

	"beancard/internal/card"
	"beancard/internal/data"
	"beancard/internal/logger"
	"beancard/internal/ocr"
	"beancard/internal/preprocess"
)

// Processor runs the per-image steps: preprocess, locate and rectify the
// card, recognize its text and map fragments to fields. It holds the one
// OCR engine handle shared by every call site.
type Processor struct {
	pre       *preprocess.Preprocessor
	locator   *card.Locator
	engine    ocr.Engine
	extractor *data.DataExtractor
}

func NewProcessor(pre *preprocess.Preprocessor, locator *card.Locator, engine ocr.Engine) *Processor {
	return &Processor{
		pre:       pre,
		locator:   locator,
		engine:    engine,
		extractor: data.NewDataExtractor(),
	}
}

type Scan struct {
	Card  *card.Card
	Lines []string
	Bean  *data.BeanCard
}

func (p *Processor) LocateFile(path string) (*card.Card, error) {
	mat, err := p.pre.Prepare(path)
	defer mat.Close()
	if err != nil {
		return nil, err
	}
	c, err := p.locator.Locate(mat, path)
	if err != nil {
		return nil, fmt.Errorf("locating card in %s: %w", path, err)
	}
	return c, nil
}

// LocateImage expects img to be preprocessed already.
func (p *Processor) LocateImage(img image.Image, label string) (*card.Card, error) {
	mat, err := p.pre.ToBGR(img)
	defer mat.Close()
	if err != nil {
		return nil, err
	}
	c, err := p.locator.Locate(mat, label)
	if err != nil {
		return nil, fmt.Errorf("locating card in %s: %w", label, err)
	}
	return c, nil
}

func (p *Processor) Recognize(ctx context.Context, c *card.Card, label string) ([]string, error) {
	lines, err := p.engine.Recognize(ctx, c.Image)
	if err != nil {
		return nil, fmt.Errorf("recognizing %s: %w", label, err)
	}
	logger.DebugLog("[recognize]: %s: %q (%d fragments)", label, lines, len(lines))
	return lines, nil
}

func (p *Processor) Extract(lines []string, label string) (*data.BeanCard, error) {
	return p.extractor.ExtractFromLines(lines, label)
}

// Scan runs the whole chain on an already decoded image.
func (p *Processor) Scan(ctx context.Context, img image.Image, label string) (*Scan, error) {
	c, err := p.LocateImage(img, label)
	if err != nil {
		return nil, err
	}
	lines, err := p.Recognize(ctx, c, label)
	if err != nil {
		return nil, err
	}
	bean, err := p.Extract(lines, label)
	if err != nil {
		return &Scan{Card: c, Lines: lines}, err
	}
	return &Scan{Card: c, Lines: lines, Bean: bean}, nil
}
