package ocr

import (
	"context"
	"image"
)

// Result carries the text fragments recognized on one card, in reading order.
type Result struct {
	Filename string
	Lines    []string
	Error    error
}

type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]string, error)
	Close() error
}
