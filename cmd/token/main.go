// Command token prints a bearer token for a user, signed with JWT_SECRET.
//
//	token -user 42 [-ttl 2h]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"bazaar/internal/auth"
	"bazaar/internal/config"
)

func main() {
	userID := flag.Int64("user", 0, "user ID to issue the token for")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_TTL)")
	flag.Parse()

	if err := run(*userID, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(userID int64, ttl time.Duration) error {
	if userID <= 0 {
		return fmt.Errorf("-user must be a positive ID")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}

	token, err := auth.Issue(cfg.Auth.JWTSecret, userID, ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Println(token)
	return nil
}
