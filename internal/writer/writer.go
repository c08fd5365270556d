package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type WriteMode int

const (
	ModeReplace WriteMode = iota
	ModeAppend
)

// utf8BOM lets spreadsheet tools detect the encoding of the Chinese header.
const utf8BOM = "\ufeff"

type MapperFunc[T any] func(T) []string

type HeaderFunc func() []string

type WriteRequest[T any] struct {
	Data       []T
	OutputPath string
	Mode       WriteMode
	ResponseCh chan error
}

// CSVWriter funnels every write through one goroutine, so callers from
// several pipeline stages never interleave rows. The header (preceded by a
// BOM) is written only when a file is created; rows are never deduplicated.
type CSVWriter[T any] struct {
	queue    chan WriteRequest[T]
	shutdown chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	mapper   MapperFunc[T]
	header   HeaderFunc
}

func NewCSVWriter[T any](mapper MapperFunc[T], header HeaderFunc) *CSVWriter[T] {
	cw := &CSVWriter[T]{
		queue:    make(chan WriteRequest[T]), // unbuffered: a queued request always gets an answer
		shutdown: make(chan struct{}),
		mapper:   mapper,
		header:   header,
	}
	cw.startWorker()
	return cw
}

func (cw *CSVWriter[T]) startWorker() {
	cw.wg.Add(1)
	go func() {
		defer cw.wg.Done()
		for {
			select {
			case req := <-cw.queue:
				err := cw.writeToFileSync(req.Data, req.OutputPath, req.Mode)
				req.ResponseCh <- err
			case <-cw.shutdown:
				return
			}
		}
	}()
}

func (cw *CSVWriter[T]) Close() {
	cw.once.Do(func() {
		close(cw.shutdown)
		cw.wg.Wait()
	})
}

func (cw *CSVWriter[T]) WriteToFile(data []T, outputPath string, overwrite ...bool) error {
	if len(overwrite) > 0 && overwrite[0] {
		return cw.WriteToFileWithMode(data, outputPath, ModeReplace)
	}
	return cw.WriteToFileWithMode(data, outputPath, ModeAppend)
}

func (cw *CSVWriter[T]) WriteToFileWithMode(data []T, outputPath string, mode WriteMode) error {
	responseCh := make(chan error, 1)
	req := WriteRequest[T]{
		Data:       data,
		OutputPath: outputPath,
		Mode:       mode,
		ResponseCh: responseCh,
	}

	select {
	case cw.queue <- req:
		return <-responseCh
	case <-cw.shutdown:
		return fmt.Errorf("writer is shutting down")
	}
}

func (cw *CSVWriter[T]) writeToFileSync(data []T, outputPath string, mode WriteMode) (err error) {
	if len(data) == 0 {
		return nil
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	exists, err := fileExists(outputPath)
	if err != nil {
		return fmt.Errorf("checking CSV file: %w", err)
	}

	var file *os.File
	writeHeader := false

	// Open file in append mode if it exists and we are appending, otherwise create a new file
	if mode == ModeAppend && exists {
		file, err = os.OpenFile(outputPath, os.O_APPEND|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(outputPath)
		writeHeader = true
	}
	if err != nil {
		return fmt.Errorf("opening CSV file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing CSV file: %w", cerr)
		}
	}()

	if writeHeader {
		if _, err := file.WriteString(utf8BOM); err != nil {
			return fmt.Errorf("writing BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if writeHeader {
		if err := writer.Write(cw.header()); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
	}

	for _, item := range data {
		record := cw.mapper(item)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return true, nil
}
