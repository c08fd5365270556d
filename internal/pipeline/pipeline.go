package pipeline

import (
	"context"
	"sync"

	"beancard/internal/data"
	"beancard/internal/logger"
	"beancard/internal/ocr"
	"beancard/internal/writer"
)

type result[T any] struct {
	path string
	data T
	err  error
}

type writeResult[T any] struct {
	mu       sync.Mutex
	writes   map[string]T
	failures map[string]error
}

type Options struct {
	OutputFile string

	// Workers is the number of concurrent OCR calls. With one worker every
	// image is finished before the next, and rows keep file order.
	Workers int
}

// RunDir processes every image below directory.
func RunDir(ctx context.Context, p *Processor, directory string, opts Options) (writes map[string]data.BeanCard, failures map[string]error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 1)
	files := make(chan string) // Unbuffered channel for file paths

	go func() {
		defer close(files)
		defer close(errChan)
		logger.DebugLog("Starting [walkFiles] goroutine")
		walkFiles(ctx, directory, files, errChan)
		logger.DebugLog("[walkFiles] goroutine finished")
	}()

	writes, failures = Run(ctx, p, files, opts)
	for err := range errChan {
		failures[directory] = err
	}
	return writes, failures
}

// Run processes paths from files until the channel is closed or ctx ends.
// Failures are keyed by image path; one failing image does not stop the rest.
func Run(ctx context.Context, p *Processor, files <-chan string, opts Options) (writes map[string]data.BeanCard, failures map[string]error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger.DebugLog("Pipeline started with output=%s, workers=%d", opts.OutputFile, opts.Workers)

	csvWriter := writer.NewCSVWriter(data.MapCSVRecord, data.GetCSVHeader)
	defer func() {
		logger.DebugLog("Closing CSV writer")
		csvWriter.Close()
	}()

	cardChan := make(chan locatedCard, 1)               // Bounded buffer: at most one rectified card waits for OCR
	ocrChan := make(chan ocr.Result)                    // OCR results
	extractChan := make(chan result[data.BeanCard], 10) // Extracted rows waiting for the writer
	results := &writeResult[data.BeanCard]{
		writes:   make(map[string]data.BeanCard),
		failures: make(map[string]error),
	}

	go func() {
		defer close(cardChan)
		logger.DebugLog("Starting [locateCard] goroutine")
		locateCard(ctx, p, files, cardChan)
		logger.DebugLog("[locateCard] goroutine finished")
	}()

	processCount := opts.Workers
	if processCount < 1 {
		processCount = 1
	}
	var wg sync.WaitGroup

	for i := 0; i < processCount; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			logger.DebugLog("Starting [performOcr] worker #%d", worker+1)
			performOcr(ctx, p, cardChan, ocrChan)
			logger.DebugLog("[performOcr] worker #%d finished", worker+1)
		}(i)
	}
	go func() {
		wg.Wait()
		logger.DebugLog("All [performOcr] workers finished, closing ocrChan")
		close(ocrChan)
	}()

	go func() {
		defer close(extractChan)
		logger.DebugLog("Starting [extractData] goroutine")
		extractData(ctx, p, ocrChan, extractChan)
		logger.DebugLog("[extractData] goroutine finished")
	}()

	writeOutput(ctx, csvWriter, opts.OutputFile, extractChan, results)
	logger.DebugLog("Pipeline finished (ctx err=%v)", ctx.Err())
	return results.writes, results.failures
}

func send[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
