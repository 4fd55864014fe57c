// Package catalogfeed imports shop catalogs from gzipped JSON-lines feeds.
//
// Each line of a feed is one product with its shop and variants nested:
//
//	{"slug":"mug","name":"Mug","basePrice":"12.50","status":"active",
//	 "shop":{"slug":"north","name":"North","ownerId":7,"currency":"EUR"},
//	 "variants":[{"sku":"MUG-RED","stock":4}]}
package catalogfeed

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"bazaar/internal/model"
)

// Loader reads a catalog feed and returns its products.
type Loader interface {
	Load(ctx context.Context, path string) ([]model.Product, error)
}

// Store persists imported shops and products.
type Store interface {
	SaveShop(ctx context.Context, shop *model.ShopInfo) error
	SaveProduct(ctx context.Context, p *model.Product) error
}

// decode reads gzipped JSON lines from r. Blank lines are skipped.
func decode(ctx context.Context, r io.Reader, source string) ([]model.Product, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	// Variant lists make for long lines
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var products []model.Product
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var p model.Product
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, lineNo, err)
		}
		products = append(products, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading feed %s: %w", source, err)
	}
	return products, nil
}
