package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"beancard/internal/card"
	"beancard/internal/config"
	"beancard/internal/data"
	"beancard/internal/logger"
	"beancard/internal/ocr"
	"beancard/internal/pipeline"
	"beancard/internal/preprocess"
	"beancard/internal/server"
	"beancard/internal/watch"
	"beancard/internal/writer"
)

var stdout io.Writer = os.Stdout

type CLI struct {
	cfg *config.Config

	debug   bool
	verbose bool
	watch   bool
	serve   bool
}

func NewCLI() (*CLI, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &CLI{cfg: cfg}, nil
}

func (c *CLI) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("beancard", flag.ContinueOnError)

	fs.StringVar(&c.cfg.ImagesDir, "images", c.cfg.ImagesDir, "Directory containing card photos")
	fs.StringVar(&c.cfg.OutputFile, "output", c.cfg.OutputFile, "CSV file rows are appended to")
	fs.StringVar(&c.cfg.Engine, "engine", c.cfg.Engine, "OCR engine type (gosseract, ollama)")
	fs.StringVar(&c.cfg.Language, "lang", c.cfg.Language, "Tesseract language(s), e.g. chi_sim or chi_sim+eng")
	fs.IntVar(&c.cfg.Width, "width", c.cfg.Width, "Working width photos are scaled to before edge detection")
	fs.IntVar(&c.cfg.Workers, "workers", c.cfg.Workers, "Concurrent OCR workers")
	fs.StringVar(&c.cfg.DebugDir, "debug-dir", c.cfg.DebugDir, "Write intermediate images to this directory")
	fs.StringVar(&c.cfg.Addr, "addr", c.cfg.Addr, "Listen address for -serve")
	fs.BoolVar(&c.debug, "debug", false, "Show intermediate images in windows, a key press advances")
	fs.BoolVar(&c.verbose, "verbose", false, "Print debug logs")
	fs.BoolVar(&c.watch, "watch", false, "Keep running and process photos added to the images directory")
	fs.BoolVar(&c.serve, "serve", false, "Serve POST /cards instead of processing a directory")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parsing flags: %w", err)
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if c.verbose {
		logger.SetDebug(true)
	}

	engine, err := ocr.NewEngine(ocr.Config{
		Type:        c.cfg.Engine,
		Language:    c.cfg.Language,
		OllamaURL:   c.cfg.OllamaURL,
		OllamaModel: c.cfg.OllamaModel,
	})
	if err != nil {
		return fmt.Errorf("creating OCR engine: %w", err)
	}
	defer func() {
		logger.DebugLog("Closing OCR engine")
		engine.Close()
	}()

	debugger, closeDebugger, err := c.debugger()
	if err != nil {
		return err
	}
	defer closeDebugger()

	pre := preprocess.NewPreprocessor(c.cfg.Width)
	proc := pipeline.NewProcessor(pre, card.NewLocator(debugger), engine)

	switch {
	case c.serve:
		return c.runServer(ctx, pre, proc)
	case c.watch:
		return c.runWatch(ctx, proc)
	default:
		return c.runBatch(ctx, proc)
	}
}

func (c *CLI) debugger() (card.Debugger, func(), error) {
	switch {
	case c.debug:
		d := card.NewWindowDebugger()
		return d, func() { d.Close() }, nil
	case c.cfg.DebugDir != "":
		d, err := card.NewDirDebugger(c.cfg.DebugDir)
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	}
	return nil, func() {}, nil
}

func (c *CLI) options() pipeline.Options {
	return pipeline.Options{OutputFile: c.cfg.OutputFile, Workers: c.cfg.Workers}
}

func (c *CLI) runBatch(ctx context.Context, proc *pipeline.Processor) error {
	results, failures := pipeline.RunDir(ctx, proc, c.cfg.ImagesDir, c.options())
	report(results, failures)
	fmt.Fprintf(stdout, "\nProcessing complete! Results saved to: %s\n", c.cfg.OutputFile)
	fmt.Fprintf(stdout, "Processed %d records\n", len(results)+len(failures))
	return nil
}

func (c *CLI) runWatch(ctx context.Context, proc *pipeline.Processor) error {
	files := make(chan string)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watch.Watch(ctx, c.cfg.ImagesDir, pipeline.IsImageFile, files)
	}()

	results, failures := pipeline.Run(ctx, proc, files, c.options())
	report(results, failures)
	return <-watchErr
}

func (c *CLI) runServer(ctx context.Context, pre *preprocess.Preprocessor, proc *pipeline.Processor) error {
	w := writer.NewCSVWriter(data.MapCSVRecord, data.GetCSVHeader)
	defer w.Close()

	srv := &http.Server{
		Addr:    c.cfg.Addr,
		Handler: server.NewRouter(server.New(pre, proc, w, c.cfg.OutputFile)),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(stdout, "Listening on %s\n", c.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

func report(results map[string]data.BeanCard, failures map[string]error) {
	reportTo(stdout, results, failures)
}

func reportTo(w io.Writer, results map[string]data.BeanCard, failures map[string]error) {
	for _, path := range sortedKeys(failures) {
		fmt.Fprintf(w, "Error processing %s: %v\n", path, failures[path])
	}
	for _, path := range sortedKeys(results) {
		fmt.Fprintf(w, "Processed %s: %v\n", path, data.MapCSVRecord(results[path]))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
