package repository

import (
	"context"
	"testing"

	"bazaar/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_SaveAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	shop := seedShop(t, repo, "potters", 7)
	saved := seedProduct(t, repo, shop.ID, "mug", 10,
		model.ProductVariant{SKU: "MUG-S", Name: "Small", Stock: 5},
		model.ProductVariant{SKU: "MUG-L", Name: "Large", Price: price("150.00"), SalePrice: price("120.00"), Stock: 3,
			Attributes: []byte(`{"size":"L"}`)},
	)

	require.NotZero(t, saved.ID)
	require.Len(t, saved.Variants, 2)
	assert.NotZero(t, saved.Variants[0].ID)

	got, err := repo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "mug", got.Slug)
	assert.True(t, decimal.RequireFromString("100").Equal(got.BasePrice))
	assert.False(t, got.SalePrice.Valid)
	require.NotNil(t, got.Shop)
	assert.Equal(t, int64(7), got.Shop.OwnerID)
	assert.Equal(t, "INR", got.Shop.Currency)

	require.Len(t, got.Variants, 2)
	assert.Equal(t, "MUG-S", got.Variants[0].SKU)
	assert.False(t, got.Variants[0].Price.Valid)
	assert.True(t, decimal.RequireFromString("120").Equal(got.Variants[1].SalePrice.Decimal))
	assert.JSONEq(t, `{"size":"L"}`, string(got.Variants[1].Attributes))
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())

	got, err := repo.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProductRepository_SaveProduct_ReplacesVariants(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	shop := seedShop(t, repo, "weavers", 3)
	p := seedProduct(t, repo, shop.ID, "scarf", 0,
		model.ProductVariant{SKU: "RED", Stock: 2},
		model.ProductVariant{SKU: "BLUE", Stock: 2},
	)
	redID := p.Variants[0].ID

	p.Variants = []model.ProductVariant{{SKU: "RED", Stock: 9}}
	require.NoError(t, repo.SaveProduct(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, redID, got.Variants[0].ID)
	assert.Equal(t, 9, got.Variants[0].Stock)
}

func TestProductRepository_SaveProduct_KeepsHeldStock(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	shop := seedShop(t, repo, "reimport", 3)
	plain := seedProduct(t, repo, shop.ID, "plain", 5)
	varied := seedProduct(t, repo, shop.ID, "varied", 0,
		model.ProductVariant{SKU: "RED", Stock: 3},
		model.ProductVariant{SKU: "BLUE", Stock: 2},
	)
	redID := varied.Variants[0].ID

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.AdjustStock(ctx, tx, []StockAdjustment{
		{ProductID: plain.ID, Quantity: 2, Op: StockReserve},
		{ProductID: varied.ID, VariantID: &redID, Quantity: 2, Op: StockReserve},
	}))
	require.NoError(t, tx.Commit(ctx))

	// product stock is net of open orders and survives a re-import
	plain.Stock = 5
	plain.Name = "Renamed"
	require.NoError(t, repo.SaveProduct(ctx, plain))
	assert.Equal(t, 3, plain.Stock)

	got, err := repo.GetByID(ctx, plain.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, "Renamed", got.Name)

	// variant stock below its reservation is refused
	varied.Variants = []model.ProductVariant{{SKU: "RED", Stock: 1}, {SKU: "BLUE", Stock: 2}}
	err = repo.SaveProduct(ctx, varied)
	assert.ErrorIs(t, err, model.ErrStockBelowReserved)

	// a reserved variant cannot be dropped
	varied.Variants = []model.ProductVariant{{SKU: "BLUE", Stock: 2}}
	err = repo.SaveProduct(ctx, varied)
	assert.ErrorIs(t, err, model.ErrVariantReserved)

	got, err = repo.GetByID(ctx, varied.ID)
	require.NoError(t, err)
	require.Len(t, got.Variants, 2)
	assert.Equal(t, 3, got.Variants[0].Stock)
	assert.Equal(t, 2, got.Variants[0].Reserved)

	// restocking at or above the reservation is accepted
	varied.Variants = []model.ProductVariant{{SKU: "RED", Stock: 6}, {SKU: "BLUE", Stock: 2}}
	require.NoError(t, repo.SaveProduct(ctx, varied))

	got, err = repo.GetByID(ctx, varied.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Variants[0].Stock)
	assert.Equal(t, 2, got.Variants[0].Reserved)
}

func TestProductRepository_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	a := seedShop(t, repo, "shop-a", 1)
	b := seedShop(t, repo, "shop-b", 2)
	seedProduct(t, repo, a.ID, "apple", 1)
	seedProduct(t, repo, a.ID, "banana", 1)
	seedProduct(t, repo, b.ID, "cherry", 1)

	tests := []struct {
		name      string
		filter    model.ProductFilter
		wantSlugs []string
		wantTotal int
	}{
		{
			name:      "All products",
			filter:    model.ProductFilter{},
			wantSlugs: []string{"apple", "banana", "cherry"},
			wantTotal: 3,
		},
		{
			name:      "Filter by shop",
			filter:    model.ProductFilter{ShopID: a.ID},
			wantSlugs: []string{"apple", "banana"},
			wantTotal: 2,
		},
		{
			name:      "Search by name",
			filter:    model.ProductFilter{Search: "cher"},
			wantSlugs: []string{"cherry"},
			wantTotal: 1,
		},
		{
			name:      "Second page",
			filter:    model.ProductFilter{Page: 2, Limit: 2},
			wantSlugs: []string{"cherry"},
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, total, err := repo.List(ctx, tt.filter)

			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			slugs := make([]string, len(products))
			for i, p := range products {
				slugs[i] = p.Slug
			}
			assert.Equal(t, tt.wantSlugs, slugs)
		})
	}
}

func TestProductRepository_AdjustStock(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	shop := seedShop(t, repo, "stock", 1)
	plain := seedProduct(t, repo, shop.ID, "plain", 5)
	varied := seedProduct(t, repo, shop.ID, "varied", 0, model.ProductVariant{SKU: "V1", Stock: 4})
	variantID := varied.Variants[0].ID

	apply := func(adjustments ...StockAdjustment) error {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		if err := repo.AdjustStock(ctx, tx, adjustments); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		return tx.Commit(ctx)
	}

	// reserve
	require.NoError(t, apply(
		StockAdjustment{ProductID: plain.ID, Quantity: 2, Op: StockReserve},
		StockAdjustment{ProductID: varied.ID, VariantID: &variantID, Quantity: 3, Op: StockReserve},
	))

	p, err := repo.GetByID(ctx, plain.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	v, err := repo.GetByID(ctx, varied.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Variants[0].Stock)
	assert.Equal(t, 3, v.Variants[0].Reserved)

	// over-reserve is rejected and rolled back
	err = apply(
		StockAdjustment{ProductID: plain.ID, Quantity: 1, Op: StockReserve},
		StockAdjustment{ProductID: varied.ID, VariantID: &variantID, Quantity: 2, Op: StockReserve},
	)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	p, err = repo.GetByID(ctx, plain.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	// consume and release
	require.NoError(t, apply(
		StockAdjustment{ProductID: varied.ID, VariantID: &variantID, Quantity: 1, Op: StockConsume},
		StockAdjustment{ProductID: varied.ID, VariantID: &variantID, Quantity: 2, Op: StockRelease},
		StockAdjustment{ProductID: plain.ID, Quantity: 2, Op: StockRelease},
		StockAdjustment{ProductID: plain.ID, Quantity: 1, Op: StockConsume},
	))

	v, err = repo.GetByID(ctx, varied.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Variants[0].Stock)
	assert.Equal(t, 0, v.Variants[0].Reserved)

	p, err = repo.GetByID(ctx, plain.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestProductRepository_GetShop(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	shop := seedShop(t, repo, "bakery", 11)

	got, err := repo.GetShop(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, *shop, *got)

	missing, err := repo.GetShop(ctx, shop.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
