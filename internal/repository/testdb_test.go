package repository

import (
	"context"
	"testing"
	"time"

	"bazaar/internal/database"
	"bazaar/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer with the application schema.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	opts := database.DefaultPoolOptions()
	opts.MinConns = 1
	pool, err := database.Open(ctx, connStr, opts, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// seedShop saves a shop owned by ownerID.
func seedShop(t *testing.T, repo ProductRepository, slug string, ownerID int64) *model.ShopInfo {
	shop := &model.ShopInfo{Name: "Shop " + slug, Slug: slug, OwnerID: ownerID, Currency: "INR"}
	require.NoError(t, repo.SaveShop(context.Background(), shop))
	return shop
}

// seedProduct saves an active tracked product with the given stock and variants.
func seedProduct(t *testing.T, repo ProductRepository, shopID int64, slug string, stock int, variants ...model.ProductVariant) *model.Product {
	p := &model.Product{
		ShopID:     shopID,
		Slug:       slug,
		Name:       "Product " + slug,
		Category:   "general",
		BasePrice:  decimal.RequireFromString("100.00"),
		Stock:      stock,
		TrackStock: true,
		Status:     model.ProductActive,
		Variants:   variants,
	}
	require.NoError(t, repo.SaveProduct(context.Background(), p))
	return p
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
