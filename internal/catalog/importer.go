package catalog

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads bounds parallel file reads during an import.
const maxConcurrentLoads = 4

// Importer loads catalogue files and writes their products.
type Importer struct {
	loader Loader
	repo   repository.ProductRepository
	logger zerolog.Logger
}

// NewImporter creates a new catalogue importer.
func NewImporter(loader Loader, repo repository.ProductRepository, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		repo:   repo,
		logger: logger.With().Str("component", "catalog-importer").Logger(),
	}
}

// Import loads every path concurrently and upserts the products in one
// write. Nothing is written unless every file loads. When several files
// define the same product id, the file listed last wins.
func (i *Importer) Import(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	i.logger.Info().Int("file_count", len(paths)).Msg("importing catalogue")

	loaded := make([][]model.Product, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for idx, path := range paths {
		g.Go(func() error {
			products, err := i.loader.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to load catalogue file %s: %w", path, err)
			}
			loaded[idx] = products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i.logger.Error().Err(err).Msg("catalogue import aborted")
		return 0, err
	}

	products := merge(loaded)

	n, err := i.repo.Upsert(ctx, products)
	if err != nil {
		i.logger.Error().Err(err).Int("count", len(products)).Msg("failed to store catalogue")
		return 0, fmt.Errorf("failed to store catalogue: %w", err)
	}

	i.logger.Info().Int("products", n).Msg("catalogue imported")
	return n, nil
}

// merge flattens per-file products, keeping the last definition of each id
// at the position it was first seen.
func merge(loaded [][]model.Product) []model.Product {
	index := make(map[string]int)
	var out []model.Product
	for _, products := range loaded {
		for _, p := range products {
			if pos, ok := index[p.ID]; ok {
				out[pos] = p
				continue
			}
			index[p.ID] = len(out)
			out = append(out, p)
		}
	}
	return out
}
