package catalogfeed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bazaar/internal/model"

	"github.com/rs/zerolog"
)

// Result summarises an import run.
type Result struct {
	Shops    int
	Products int
	Skipped  int
}

// Importer loads feeds and writes their shops and products to a Store.
type Importer struct {
	loader Loader
	store  Store
	logger zerolog.Logger
}

// NewImporter creates a new catalog importer.
func NewImporter(loader Loader, store Store, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		store:  store,
		logger: logger.With().Str("component", "catalog-importer").Logger(),
	}
}

// Import loads every feed concurrently, then saves them in order. Products
// failing validation are skipped and counted; storage errors abort the run.
func (i *Importer) Import(ctx context.Context, paths ...string) (*Result, error) {
	feeds, err := i.loadAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	shops := make(map[string]int64)

	for f, products := range feeds {
		for n := range products {
			p := &products[n]
			if err := i.importProduct(ctx, p, shops, result); err != nil {
				if _, ok := model.AsDomainError(err); ok {
					i.logger.Warn().
						Err(err).
						Str("feed", paths[f]).
						Str("product_slug", p.Slug).
						Msg("skipping invalid product")
					result.Skipped++
					continue
				}
				return result, err
			}
			result.Products++
		}
	}

	i.logger.Info().
		Int("shops", result.Shops).
		Int("products", result.Products).
		Int("skipped", result.Skipped).
		Msg("catalog import finished")

	return result, nil
}

func (i *Importer) importProduct(ctx context.Context, p *model.Product, shops map[string]int64, result *Result) error {
	if p.Shop == nil || p.Shop.Slug == "" {
		return model.NewDomainError(model.KindValidation, model.ErrCodeInvalidProduct, "shop is required")
	}

	shopID, seen := shops[p.Shop.Slug]
	if !seen {
		if err := i.store.SaveShop(ctx, p.Shop); err != nil {
			return fmt.Errorf("failed to save shop %s: %w", p.Shop.Slug, err)
		}
		shopID = p.Shop.ID
		shops[p.Shop.Slug] = shopID
		result.Shops++
	}
	p.ShopID = shopID

	if err := p.Validate(); err != nil {
		return err
	}
	if err := i.store.SaveProduct(ctx, p); err != nil {
		return fmt.Errorf("failed to save product %s: %w", p.Slug, err)
	}
	return nil
}

func (i *Importer) loadAll(ctx context.Context, paths []string) ([][]model.Product, error) {
	if len(paths) == 0 {
		return nil, errors.New("no feed paths given")
	}

	type loadResult struct {
		index    int
		products []model.Product
		err      error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for idx, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			products, err := i.loader.Load(ctx, path)
			resultChan <- loadResult{index: index, products: products, err: err}
		}(idx, path)
	}

	wg.Wait()
	close(resultChan)

	// Collect results in order
	feeds := make([][]model.Product, len(paths))
	for res := range resultChan {
		if res.err != nil {
			i.logger.Error().Err(res.err).Str("feed", paths[res.index]).Msg("failed to load feed")
			return nil, fmt.Errorf("failed to load feed %s: %w", paths[res.index], res.err)
		}
		feeds[res.index] = res.products
	}
	return feeds, nil
}
