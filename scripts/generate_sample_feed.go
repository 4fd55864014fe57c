//go:build ignore

// Generates data/feeds/catalog.jsonl.gz for local development:
//
//	go run scripts/generate_sample_feed.go
package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"bazaar/internal/model"

	"github.com/shopspring/decimal"
)

func main() {
	dataDir := "data/feeds"

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	north := &model.ShopInfo{Slug: "north-goods", Name: "North Goods", OwnerID: 7, Currency: "EUR"}
	harbor := &model.ShopInfo{Slug: "harbor-prints", Name: "Harbor Prints", OwnerID: 8, Currency: "EUR"}

	products := []model.Product{
		{
			Shop: north, Slug: "enamel-mug", Name: "Enamel Mug", Category: "kitchen",
			BasePrice: price("12.50"), SalePrice: sale("9.99"),
			Stock: 40, TrackStock: true, Status: model.ProductActive,
		},
		{
			Shop: north, Slug: "linen-shirt", Name: "Linen Shirt", Category: "apparel",
			BasePrice: price("48.00"), TrackStock: true, Status: model.ProductActive,
			Variants: []model.ProductVariant{
				{SKU: "LS-S", Name: "Small", Stock: 6, Attributes: json.RawMessage(`{"size":"S"}`)},
				{SKU: "LS-M", Name: "Medium", Stock: 10, Attributes: json.RawMessage(`{"size":"M"}`)},
				{SKU: "LS-XL", Name: "Extra large", Price: sale("52.00"), Stock: 2, Attributes: json.RawMessage(`{"size":"XL"}`)},
			},
		},
		{
			Shop: north, Slug: "wool-socks", Name: "Wool Socks", Category: "apparel",
			BasePrice: price("14.00"), Stock: 0, TrackStock: true, AllowBackorder: true, Status: model.ProductActive,
		},
		{
			Shop: north, Slug: "winter-catalog", Name: "Winter Catalog", Category: "books",
			BasePrice: price("0"), TrackStock: false, Status: model.ProductActive,
		},
		{
			Shop: harbor, Slug: "harbor-poster", Name: "Harbor Poster", Category: "prints",
			BasePrice: price("30.00"), SalePrice: sale("24.00"), TrackStock: true, Status: model.ProductActive,
			Variants: []model.ProductVariant{
				{SKU: "HP-A3", Name: "A3", Stock: 12},
				{SKU: "HP-A2", Name: "A2", Price: sale("38.00"), SalePrice: sale("31.00"), Stock: 5},
			},
		},
		{
			Shop: harbor, Slug: "print-pack", Name: "Printable Pack", Category: "digital",
			BasePrice: price("7.00"), TrackStock: false, Status: model.ProductActive,
		},
		{
			Shop: harbor, Slug: "lighthouse-print", Name: "Lighthouse Print", Category: "prints",
			BasePrice: price("45.00"), Stock: 3, TrackStock: true, Status: model.ProductDraft,
		},
	}

	filePath := filepath.Join(dataDir, "catalog.jsonl.gz")
	if err := createFeedFile(filePath, products); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d products\n", filePath, len(products))
}

func createFeedFile(filePath string, products []model.Product) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := json.NewEncoder(gzipWriter)
	for _, p := range products {
		if err := encoder.Encode(p); err != nil {
			return fmt.Errorf("failed to write product %s: %w", p.Slug, err)
		}
	}

	return nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sale(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
