package pipeline

import (
	"context"

	"beancard/internal/data"
	"beancard/internal/logger"
	"beancard/internal/ocr"
)

func extractData(ctx context.Context, p *Processor, ocrChan <-chan ocr.Result, results chan<- result[data.BeanCard]) {
	for ocrOutput := range ocrChan {
		if ctx.Err() != nil {
			logger.DebugLog("[extractData]: context cancelled")
			return
		}

		if ocrOutput.Error != nil {
			logger.DebugLog("[extractData]: upstream error for %s: %v", ocrOutput.Filename, ocrOutput.Error)
			if !send(ctx, results, result[data.BeanCard]{path: ocrOutput.Filename, err: ocrOutput.Error}) {
				return
			}
			continue
		}

		logger.DebugLog("[extractData]: extracting data from %s", ocrOutput.Filename)
		res, err := p.Extract(ocrOutput.Lines, ocrOutput.Filename)
		if err != nil {
			logger.DebugLog("[extractData]: extraction failed for %s: %v", ocrOutput.Filename, err)
			if !send(ctx, results, result[data.BeanCard]{path: ocrOutput.Filename, err: err}) {
				return
			}
			continue
		}
		logger.DebugLog("[extractData]: sending extracted data for %s", ocrOutput.Filename)
		if !send(ctx, results, result[data.BeanCard]{path: ocrOutput.Filename, data: *res}) {
			return
		}
	}
}
