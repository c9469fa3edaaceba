// Command devtoken prints a signed Bearer token for a user ID, for calling the
// registration service locally when JWT_SECRET is set.
//
//	JWT_SECRET=dev go run ./cmd/devtoken -user 1
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"eventregistration/config"
	"eventregistration/internal/adapters/auth"
)

func main() {
	userID := flag.Int64("user", 0, "user ID to put in the token subject")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}
	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "-user must be a positive ID")
		os.Exit(2)
	}

	token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(*userID, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
