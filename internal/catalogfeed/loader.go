package catalogfeed

import (
	"context"
	"fmt"
	"os"

	"bazaar/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped feed files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based feed loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "feed-loader").Logger(),
	}
}

// Load reads a gzipped feed file.
func (l *fileLoader) Load(ctx context.Context, filePath string) ([]model.Product, error) {
	l.logger.Info().Str("file", filePath).Msg("loading feed file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open feed file")
		return nil, fmt.Errorf("failed to open feed file %s: %w", filePath, err)
	}
	defer file.Close()

	products, err := decode(ctx, file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("error reading feed file")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("products_loaded", len(products)).
		Msg("feed file loaded successfully")

	return products, nil
}
