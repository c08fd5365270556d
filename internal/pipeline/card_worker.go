package pipeline

import (
	"context"

	"beancard/internal/card"
	"beancard/internal/logger"
)

type locatedCard struct {
	path string
	card *card.Card
	err  error
}

func locateCard(ctx context.Context, p *Processor, files <-chan string, results chan<- locatedCard) {
	for file := range files {
		if ctx.Err() != nil {
			logger.DebugLog("[locateCard]: context cancelled")
			return
		}

		logger.DebugLog("[locateCard]: locating card in %s", file)
		c, err := p.LocateFile(file)
		if err != nil {
			logger.DebugLog("[locateCard]: error processing %s: %v", file, err)
		}

		select {
		case results <- locatedCard{path: file, card: c, err: err}:
		case <-ctx.Done():
			logger.DebugLog("[locateCard]: context done while sending %s", file)
			return
		}
	}
}
