package ocr

import (
	"fmt"

	"beancard/internal/ocr/engine"
)

type Config struct {
	Type        string
	Language    string
	OllamaURL   string
	OllamaModel string
}

func NewEngine(cfg Config) (Engine, error) {
	var e Engine
	var err error

	switch cfg.Type {
	case "ollama":
		e = engine.NewOllamaEngine(cfg.OllamaURL, cfg.OllamaModel)
	case "gosseract", "":
		e, err = engine.NewGosseractEngine(cfg.Language)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown engine type: %s", cfg.Type)
	}

	return e, nil
}
