package pipeline

import (
	"context"

	"beancard/internal/logger"
	"beancard/internal/ocr"
)

func performOcr(ctx context.Context, p *Processor, cards <-chan locatedCard, ocrChan chan<- ocr.Result) {
	for item := range cards {
		if ctx.Err() != nil {
			logger.DebugLog("[performOcr]: context cancelled")
			return
		}

		res := ocr.Result{Filename: item.path, Error: item.err}
		if item.err == nil {
			logger.DebugLog("[performOcr]: processing card from %s", item.path)
			res.Lines, res.Error = p.Recognize(ctx, item.card, item.path)
		}

		logger.DebugLog("[performOcr]: sending OCR result - %d lines (err=%v)", len(res.Lines), res.Error)
		select {
		case ocrChan <- res:
		case <-ctx.Done():
			logger.DebugLog("[performOcr]: context done while sending OCR result for %s", item.path)
			return
		}
	}
}
