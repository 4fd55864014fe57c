package service

import (
	"context"
	"fmt"

	"bazaar/internal/model"
	"bazaar/internal/pricing"
	"bazaar/internal/repository"
	"bazaar/internal/stock"

	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List retrieves a page of products. Filter fields other than paging reach storage untouched.
func (s *productService) List(ctx context.Context, filter model.ProductFilter) (*model.Page[model.ProductView], error) {
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Int("page", filter.Page).
			Int("limit", filter.Limit).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	views := make([]model.ProductView, len(products))
	for i, p := range products {
		views[i] = NewProductView(p)
	}

	s.logger.Debug().
		Int("count", len(views)).
		Int("total", total).
		Msg("retrieved products")

	return &model.Page[model.ProductView]{
		Items: views,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id int64) (*model.ProductView, error) {
	if id <= 0 {
		s.logger.Warn().Int64("product_id", id).Msg("invalid product ID")
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Int64("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	view := NewProductView(*product)
	return &view, nil
}

// NewProductView resolves the product-level price and availability of p.
func NewProductView(p model.Product) model.ProductView {
	q := pricing.Resolve(p, nil)
	return model.ProductView{
		Product:         p,
		UnitPrice:       q.UnitPrice,
		OriginalPrice:   q.OriginalPrice,
		IsOnSale:        q.OnSale,
		DiscountPercent: pricing.DiscountPercent(q),
		Available:       stock.Available(p, nil),
		MaxOrderable:    stock.MaxOrderable(p, nil),
		InStock:         stock.InStock(p, nil),
	}
}
