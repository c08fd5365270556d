package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"beancard/internal/card"
	"beancard/internal/logger"
)

// WalkFiles lists the image files under directory, recursively, in lexical
// order. Debug renderings of earlier runs are skipped.
func WalkFiles(directory string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsImageFile(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", directory, err)
	}
	return files, nil
}

func walkFiles(ctx context.Context, directory string, results chan<- string, errChan chan<- error) {
	files, err := WalkFiles(directory)
	if err != nil {
		logger.DebugLog("[walkFiles]: failed to read directory %s: %v", directory, err)
		errChan <- fmt.Errorf("[walkFiles]: %w", err)
		return
	}

	for _, fullPath := range files {
		logger.DebugLog("[walkFiles]: sending file %s", fullPath)
		select {
		case results <- fullPath:
		case <-ctx.Done():
			logger.DebugLog("[walkFiles]: context done while sending file %s", fullPath)
			return
		}
	}
}

func isDebugFile(filename string) bool {
	return strings.Contains(filename, card.DebugMarker)
}

func IsImageFile(filename string) bool {
	if isDebugFile(filename) {
		return false
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}
