// File: cmd/admintoken/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/infra/api"
)

// Prints an operator bearer token signed with admin.jwt_secret.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	subject := flag.String("sub", "admin", "token subject (operator name)")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to admin.token_ttl")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	lifetime := cfg.Admin.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}
	tok, err := api.NewAuthManager(cfg.Admin.JWTSecret, lifetime).Mint(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(lifetime).Format(time.RFC3339))
	fmt.Println(tok)
}
