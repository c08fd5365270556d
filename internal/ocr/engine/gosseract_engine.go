package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

const defaultLanguage = "chi_sim"

// GosseractEngine owns one Tesseract client for its whole lifetime. The
// client is not safe for concurrent use, so calls are serialized.
type GosseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func NewGosseractEngine(language string) (*GosseractEngine, error) {
	if language == "" {
		language = defaultLanguage
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting tesseract language %s: %w", language, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting page segmentation mode: %w", err)
	}
	return &GosseractEngine{client: client}, nil
}

// Recognize returns one entry per recognized text line.
func (g *GosseractEngine) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding card image: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}
	boxes, err := g.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text lines: %w", err)
	}

	lines := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if line := cleanLine(b.Word); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (g *GosseractEngine) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		err := g.client.Close()
		g.client = nil
		return err
	}
	return nil
}

// cleanLine collapses whitespace and drops the spaces Tesseract puts
// between Han characters.
func cleanLine(text string) string {
	fields := strings.Fields(text)
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 && !(endsHan(fields[i-1]) && startsHan(f)) {
			sb.WriteByte(' ')
		}
		sb.WriteString(f)
	}
	return sb.String()
}

func startsHan(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.Is(unicode.Han, r)
}

func endsHan(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.Is(unicode.Han, r)
}
