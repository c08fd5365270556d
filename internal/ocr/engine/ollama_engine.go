package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"

	"beancard/internal/logger"
)

type OllamaEngine struct {
	baseURL string
	model   string
	client  *http.Client
}

type OllamaRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type OllamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2-vision"
)

const linesPrompt = `
You are an OCR helper.
The image is a coffee bean information card, mostly in Chinese.

Your job:

1. Read every separate piece of text on the card, label and value alike.
2. Keep them in reading order: top to bottom, left to right within a row.
3. Return **only** a JSON array of strings, one string per text piece:

["<text 1>", "<text 2>", ...]

* Do not merge neighbouring pieces and do not translate anything.
* Do not add any other text, explanations, or formatting.
* Make sure the JSON is syntactically correct – double quotes, no trailing commas, no comments.
`

func NewOllamaEngine(baseURL, model string) *OllamaEngine {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}

	return &OllamaEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

func (o *OllamaEngine) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	request := OllamaRequest{
		Model:  o.model,
		Prompt: linesPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(buf.Bytes())},
		Stream: false,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var ollamaResp OllamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	lines, err := extractLines(ollamaResp.Response)
	if err != nil {
		return nil, fmt.Errorf("failed to extract lines from response: %w", err)
	}

	return lines, nil
}

func (o *OllamaEngine) Close() error {
	return nil
}

// extractLines cuts the first balanced JSON array out of a model response.
func extractLines(input string) ([]string, error) {
	logger.DebugLog("[ollama]: extracting lines from response: %s", input)

	start := strings.IndexByte(input, '[')
	if start == -1 {
		return nil, fmt.Errorf("no JSON array found in text")
	}

	// Track bracket depth, ignoring brackets inside string literals
	depth := 0
	end := -1
	inString := false
	escaped := false

matchingBracket:
	for i := start; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '[':
			depth++
		case ch == ']':
			depth--
			if depth == 0 {
				end = i + 1
				break matchingBracket
			}
		}
	}

	if end == -1 {
		return nil, fmt.Errorf("no matching closing bracket found")
	}

	var raw []any
	if err := json.Unmarshal([]byte(input[start:end]), &raw); err != nil {
		return nil, fmt.Errorf("extracted text is not valid JSON: %w", err)
	}

	lines := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	return lines, nil
}
