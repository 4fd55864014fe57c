//go:build ignore

// Checks that the database from the environment is reachable and migrated:
//
//	go run scripts/check_db.go
package main

import (
	"context"
	"fmt"
	"os"

	"bazaar/internal/config"
	"bazaar/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logger, "check-db")

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)

	for _, table := range []string{"shops", "products", "product_variants", "orders", "order_items"} {
		var exists bool
		err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists)
		if err != nil {
			fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  %-18s %v\n", table, exists)
	}
}
