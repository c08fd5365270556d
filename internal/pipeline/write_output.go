package pipeline

import (
	"context"
	"fmt"

	"beancard/internal/data"
	"beancard/internal/logger"
	"beancard/internal/writer"
)

func writeOutput(ctx context.Context,
	w *writer.CSVWriter[data.BeanCard],
	output string,
	extractedChan <-chan result[data.BeanCard],
	results *writeResult[data.BeanCard]) {
	for res := range extractedChan {
		if ctx.Err() != nil {
			logger.DebugLog("[writeOutput]: context cancelled")
			return
		}

		if res.err != nil {
			logger.DebugLog("[writeOutput]: failure for %s: %v", res.path, res.err)
			results.addFailure(res.path, res.err)
			continue
		}

		logger.DebugLog("[writeOutput]: writing data for %s", res.path)
		if err := w.WriteToFile([]data.BeanCard{res.data}, output); err != nil {
			logger.DebugLog("[writeOutput]: error writing to file %s: %v", output, err)
			results.addFailure(res.path, fmt.Errorf("writing to file %s: %w", output, err))
			continue
		}

		logger.DebugLog("[writeOutput]: successfully wrote data for %s", res.path)
		results.addWrite(res.path, res.data)
	}
}

func (r *writeResult[T]) addWrite(path string, data T) {
	r.mu.Lock()
	r.writes[path] = data
	r.mu.Unlock()
}

func (r *writeResult[T]) addFailure(path string, err error) {
	r.mu.Lock()
	r.failures[path] = err
	r.mu.Unlock()
}
