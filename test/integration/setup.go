package integration

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bazaar/internal/catalogfeed"
	"bazaar/internal/database"
	"bazaar/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Shop owner and buyer used throughout the suite.
const (
	SellerID int64 = 7
	BuyerID  int64 = 11
)

// catalogFeed is the catalog every test starts from.
var catalogFeed = []string{
	`{"slug":"mug","name":"Mug","category":"kitchen","basePrice":"12.50","salePrice":"9.99","stock":5,"trackStock":true,"status":"active","shop":{"slug":"north","name":"North","ownerId":7,"currency":"EUR"}}`,
	`{"slug":"shirt","name":"Shirt","category":"apparel","basePrice":"20","trackStock":true,"status":"active","shop":{"slug":"north","name":"North","ownerId":7,"currency":"EUR"},"variants":[{"sku":"S-RED","price":"22","stock":4},{"sku":"S-BLUE","stock":2}]}`,
	`{"slug":"ebook","name":"E-book","category":"books","basePrice":"5","trackStock":false,"status":"active","shop":{"slug":"north","name":"North","ownerId":7,"currency":"EUR"}}`,
	`{"slug":"prototype","name":"Prototype","basePrice":"99","stock":1,"trackStock":true,"status":"draft","shop":{"slug":"north","name":"North","ownerId":7,"currency":"EUR"}}`,
}

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the schema applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	opts := database.DefaultPoolOptions()
	opts.MaxConns = 10
	opts.MinConns = 2

	pool, err := database.Open(ctx, connStr, opts, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedCatalog imports the test catalog through the feed importer.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	for _, line := range catalogFeed {
		if _, err := gzipWriter.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("failed to write feed: %v", err)
		}
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("failed to close feed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "catalog.jsonl.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("failed to write feed file: %v", err)
	}

	logger := zerolog.Nop()
	importer := catalogfeed.NewImporter(
		catalogfeed.NewFileLoader(logger),
		repository.NewProductRepository(pool, logger),
		logger,
	)
	result, err := importer.Import(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to import catalog: %v", err)
	}
	if result.Products != len(catalogFeed) {
		t.Fatalf("imported %d products, want %d", result.Products, len(catalogFeed))
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"TRUNCATE order_items, orders, product_variants, products, shops RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}
